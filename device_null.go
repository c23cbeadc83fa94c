package juniper

import (
	"image"
	"image/draw"
)

// NullStats counts the calls a NullDevice received.
type NullStats struct {
	BufferCreates  int
	BufferBinds    int
	BufferUpdates  int
	TextureCreates int
	TextureBinds   int
	ProgramCreates int
	ProgramUses    int
	UniformSets    int
	StateChanges   int
	Clears         int
	DrawCalls      int
	Primitives     int
}

// NullDevice is a headless Device that allocates handles and counts calls.
// It draws nothing. Snapshots return the last clear color.
type NullDevice struct {
	Caps  Capabilities
	Stats NullStats

	next       uint32
	clearColor Color
	viewport   image.Rectangle
}

// NewNullDevice returns a device reporting 16 texture units.
func NewNullDevice() *NullDevice {
	return &NullDevice{Caps: Capabilities{MaxTextureUnits: 16, MaxAnisotropy: 16}}
}

func (d *NullDevice) handle() uint32 {
	d.next++
	return d.next
}

func (d *NullDevice) Capabilities() Capabilities { return d.Caps }

func (d *NullDevice) CreateBuffer(*BufferData) (BufferHandle, error) {
	d.Stats.BufferCreates++
	return BufferHandle(d.handle()), nil
}

func (d *NullDevice) BindBuffer(BufferTarget, BufferHandle)                { d.Stats.BufferBinds++ }
func (d *NullDevice) UpdateBuffer(BufferTarget, BufferHandle, *BufferData) { d.Stats.BufferUpdates++ }
func (d *NullDevice) DeleteBuffer(BufferHandle)                            {}

func (d *NullDevice) CreateTexture(*Texture) (TextureHandle, error) {
	d.Stats.TextureCreates++
	return TextureHandle(d.handle()), nil
}

func (d *NullDevice) UpdateTexture(TextureHandle, *Texture)                        {}
func (d *NullDevice) BindTexture(int, TextureTarget, TextureHandle)                { d.Stats.TextureBinds++ }
func (d *NullDevice) SetTextureParams(TextureTarget, TextureHandle, TextureParams) {}
func (d *NullDevice) DeleteTexture(TextureHandle)                                  {}

func (d *NullDevice) CreateProgram(ProgramSource) (ProgramHandle, error) {
	d.Stats.ProgramCreates++
	return ProgramHandle(d.handle()), nil
}

func (d *NullDevice) UseProgram(ProgramHandle)                { d.Stats.ProgramUses++ }
func (d *NullDevice) BindAttributes(ProgramHandle, *MeshData) {}
func (d *NullDevice) DeleteProgram(ProgramHandle)             {}

func (d *NullDevice) SetUniform(ProgramHandle, string, any) error {
	d.Stats.UniformSets++
	return nil
}

func (d *NullDevice) EnableDepthTest(bool)           { d.Stats.StateChanges++ }
func (d *NullDevice) DepthMask(bool)                 { d.Stats.StateChanges++ }
func (d *NullDevice) EnableCullFace(bool)            { d.Stats.StateChanges++ }
func (d *NullDevice) CullFace(CullFace)              { d.Stats.StateChanges++ }
func (d *NullDevice) FrontFace(FrontFace)            { d.Stats.StateChanges++ }
func (d *NullDevice) EnableBlend(bool)               { d.Stats.StateChanges++ }
func (d *NullDevice) BlendFunc(BlendState)           { d.Stats.StateChanges++ }
func (d *NullDevice) EnablePolygonOffset(bool)       { d.Stats.StateChanges++ }
func (d *NullDevice) PolygonOffset(float64, float64) { d.Stats.StateChanges++ }
func (d *NullDevice) LineWidth(float64)              { d.Stats.StateChanges++ }

func (d *NullDevice) CreateFramebuffer(int, int) (FramebufferHandle, error) {
	return FramebufferHandle(d.handle()), nil
}

func (d *NullDevice) BindFramebuffer(FramebufferHandle)   {}
func (d *NullDevice) DeleteFramebuffer(FramebufferHandle) {}

func (d *NullDevice) Viewport(x, y, width, height int) {
	d.viewport = image.Rect(x, y, x+width, y+height)
}

func (d *NullDevice) Clear(c Color, _ bool) {
	d.Stats.Clears++
	d.clearColor = c
}

func (d *NullDevice) DrawElements(mode PrimitiveMode, count int) { d.countDraw(mode, count) }
func (d *NullDevice) DrawArrays(mode PrimitiveMode, count int)   { d.countDraw(mode, count) }

func (d *NullDevice) countDraw(mode PrimitiveMode, count int) {
	d.Stats.DrawCalls++
	switch mode {
	case Triangles:
		d.Stats.Primitives += count / 3
	case Lines:
		d.Stats.Primitives += count / 2
	default:
		d.Stats.Primitives += count
	}
}

// Snapshot returns an image of the viewport size filled with the last
// clear color.
func (d *NullDevice) Snapshot() (*image.NRGBA, error) {
	w, h := max(d.viewport.Dx(), 1), max(d.viewport.Dy(), 1)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	c := d.clearColor.toRGBA()
	pixels := []byte{c.R, c.G, c.B, c.A}
	fill := unpremultiply(pixels, 1, 1)
	draw.Draw(img, img.Bounds(), image.NewUniform(fill.At(0, 0)), image.Point{}, draw.Src)
	return img, nil
}
