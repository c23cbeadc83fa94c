package juniper

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"after-spawn", "after-spawn"},
		{"frame.01", "frame.01"},
		{"has spaces", "has_spaces"},
		{"path/to/thing", "path_to_thing"},
		{"back\\slash", "back_slash"},
		{"special!@#$%", "special_____"},
		{"", "unlabeled"},
		{"   ", "unlabeled"},
		{"MixedCase123", "MixedCase123"},
	}
	for _, tt := range tests {
		got := sanitizeLabel(tt.in)
		if got != tt.want {
			t.Errorf("sanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnpremultiply(t *testing.T) {
	pixels := []byte{
		128, 64, 0, 128, // half alpha
		10, 20, 30, 255, // opaque
		0, 0, 0, 0, // transparent
	}
	img := unpremultiply(pixels, 3, 1)
	want := []color.NRGBA{
		{255, 127, 0, 128},
		{10, 20, 30, 255},
		{0, 0, 0, 0},
	}
	for x, w := range want {
		if got := img.NRGBAAt(x, 0); got != w {
			t.Errorf("pixel %d = %v, want %v", x, got, w)
		}
	}
}

func TestSaveSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(2, 1, color.NRGBA{1, 2, 3, 255})

	path, err := SaveSnapshot(dir, "my shot", img)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "_my_shot.png") {
		t.Errorf("path = %q, want suffix _my_shot.png", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v, want %v", decoded.Bounds(), img.Bounds())
	}
	r, g, b, _ := decoded.At(2, 1).RGBA()
	if r>>8 != 1 || g>>8 != 2 || b>>8 != 3 {
		t.Errorf("pixel = %d %d %d, want 1 2 3", r>>8, g>>8, b>>8)
	}
}

func TestNullDeviceSnapshotUsesClearColor(t *testing.T) {
	d := NewNullDevice()
	d.Viewport(0, 0, 2, 2)
	d.Clear(Color{0, 0, 1, 0.5}, true)
	img, err := d.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	got := img.NRGBAAt(1, 1)
	if got.B < 254 || got.A != 128 || got.R != 0 {
		t.Errorf("pixel = %v, want straight-alpha blue at half alpha", got)
	}
}
