package juniper

// FramebufferHandle identifies an offscreen render target. Zero is the
// screen.
type FramebufferHandle uint32

// Capabilities reports device limits.
type Capabilities struct {
	MaxTextureUnits int
	MaxAnisotropy   int
}

// Device is the graphics API the Renderer drives. Every call is issued only
// when the DeviceStateCache shows it would change something, so a Device
// may forward calls to the GPU without its own checks.
//
// Create methods may return ErrNotReady when a resource cannot be built yet;
// the Renderer skips the draw and retries on a later frame.
type Device interface {
	Capabilities() Capabilities

	CreateBuffer(b *BufferData) (BufferHandle, error)
	BindBuffer(target BufferTarget, h BufferHandle)
	UpdateBuffer(target BufferTarget, h BufferHandle, b *BufferData)
	DeleteBuffer(h BufferHandle)

	CreateTexture(t *Texture) (TextureHandle, error)
	UpdateTexture(h TextureHandle, t *Texture)
	BindTexture(unit int, target TextureTarget, h TextureHandle)
	SetTextureParams(target TextureTarget, h TextureHandle, p TextureParams)
	DeleteTexture(h TextureHandle)

	CreateProgram(src ProgramSource) (ProgramHandle, error)
	UseProgram(h ProgramHandle)
	BindAttributes(p ProgramHandle, mesh *MeshData)
	SetUniform(p ProgramHandle, name string, value any) error
	DeleteProgram(h ProgramHandle)

	EnableDepthTest(on bool)
	DepthMask(write bool)
	EnableCullFace(on bool)
	CullFace(face CullFace)
	FrontFace(face FrontFace)
	EnableBlend(on bool)
	BlendFunc(state BlendState)
	EnablePolygonOffset(on bool)
	PolygonOffset(factor, units float64)
	LineWidth(w float64)

	CreateFramebuffer(width, height int) (FramebufferHandle, error)
	BindFramebuffer(h FramebufferHandle)
	DeleteFramebuffer(h FramebufferHandle)
	Viewport(x, y, width, height int)
	Clear(c Color, depth bool)

	DrawElements(mode PrimitiveMode, count int)
	DrawArrays(mode PrimitiveMode, count int)
}

// RenderTarget is an offscreen surface the Renderer can draw into.
type RenderTarget struct {
	Name   string
	Width  int
	Height int

	handle FramebufferHandle
}

// NewRenderTarget returns a target of the given size. The device surface is
// created on first use.
func NewRenderTarget(name string, width, height int) *RenderTarget {
	return &RenderTarget{Name: name, Width: width, Height: height}
}

// Handle returns the device handle, or zero before first use.
func (rt *RenderTarget) Handle() FramebufferHandle { return rt.handle }
