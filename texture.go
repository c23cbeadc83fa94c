package juniper

// TextureHandle identifies a device texture. Zero means none.
type TextureHandle uint32

// TextureTarget selects the texture binding type.
type TextureTarget uint8

const (
	Texture2D TextureTarget = iota
	TextureCube
)

// TextureFilter selects sampling behavior.
type TextureFilter uint8

const (
	FilterLinear TextureFilter = iota
	FilterNearest
	FilterLinearMipmap
	FilterNearestMipmap
)

func (f TextureFilter) mipmapped() bool {
	return f == FilterLinearMipmap || f == FilterNearestMipmap
}

// TextureWrap selects addressing outside [0, 1].
type TextureWrap uint8

const (
	WrapRepeat TextureWrap = iota
	WrapClamp
	WrapMirror
)

// TextureParams is the sampler state of a texture.
type TextureParams struct {
	MinFilter  TextureFilter
	MagFilter  TextureFilter
	WrapS      TextureWrap
	WrapT      TextureWrap
	Anisotropy int
}

// Texture is RGBA8 image data plus the device handle created for it. A
// texture that is not ready yet is replaced by a placeholder at draw time.
type Texture struct {
	Name   string
	Target TextureTarget
	Width  int
	Height int
	// Pixels is RGBA8, straight alpha. Cube textures hold six faces.
	Pixels []byte
	Params TextureParams

	ready       bool
	needsUpdate bool
	handle      TextureHandle

	applied      TextureParams
	appliedValid bool
}

// NewTexture returns a ready 2D texture.
func NewTexture(name string, w, h int, pixels []byte) *Texture {
	return &Texture{
		Name:   name,
		Width:  w,
		Height: h,
		Pixels: pixels,
		Params: TextureParams{MinFilter: FilterLinearMipmap, MagFilter: FilterLinear, Anisotropy: 1},
		ready:  pixels != nil,
	}
}

// NewPendingTexture returns a texture whose data is still loading. Call
// SetPixels when it arrives.
func NewPendingTexture(name string, target TextureTarget) *Texture {
	return &Texture{
		Name:   name,
		Target: target,
		Params: TextureParams{MinFilter: FilterLinearMipmap, MagFilter: FilterLinear, Anisotropy: 1},
	}
}

// SetPixels replaces the image data and marks the texture ready.
func (t *Texture) SetPixels(w, h int, pixels []byte) {
	t.Width, t.Height, t.Pixels = w, h, pixels
	t.ready = true
	t.needsUpdate = true
}

// MarkDirty schedules a re-upload of Pixels on the next bind.
func (t *Texture) MarkDirty() { t.needsUpdate = true }

// Ready reports whether the texture has image data.
func (t *Texture) Ready() bool { return t.ready }

// Handle returns the device handle, or zero before the first upload.
func (t *Texture) Handle() TextureHandle { return t.handle }

// PowerOfTwo reports whether both dimensions are powers of two.
func (t *Texture) PowerOfTwo() bool {
	return isPowerOfTwo(t.Width) && isPowerOfTwo(t.Height)
}

// effectiveParams returns Params adjusted for what the texture supports.
// Non-power-of-two textures clamp and never sample mipmaps.
func (t *Texture) effectiveParams() TextureParams {
	p := t.Params
	if p.Anisotropy < 1 {
		p.Anisotropy = 1
	}
	if t.PowerOfTwo() {
		return p
	}
	p.WrapS, p.WrapT = WrapClamp, WrapClamp
	switch p.MinFilter {
	case FilterLinearMipmap:
		p.MinFilter = FilterLinear
	case FilterNearestMipmap:
		p.MinFilter = FilterNearest
	}
	return p
}

// newPlaceholderTexture returns a 1x1 neutral texture for target. Cube
// placeholders hold six white faces.
func newPlaceholderTexture(target TextureTarget) *Texture {
	faces := 1
	name := "placeholder2D"
	if target == TextureCube {
		faces = 6
		name = "placeholderCube"
	}
	pixels := make([]byte, 4*faces)
	for i := range pixels {
		pixels[i] = 255
	}
	return &Texture{
		Name:   name,
		Target: target,
		Width:  1,
		Height: 1,
		Pixels: pixels,
		Params: TextureParams{MinFilter: FilterNearest, MagFilter: FilterNearest, WrapS: WrapClamp, WrapT: WrapClamp, Anisotropy: 1},
		ready:  true,
	}
}
