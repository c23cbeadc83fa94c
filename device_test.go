package juniper

import (
	"errors"
	"fmt"
	"strings"
)

// recordDevice is a Device that logs every call as a short string so tests
// can assert on the exact sequence the renderer issued.
type recordDevice struct {
	calls []string
	next  uint32

	units int

	// programErr, when set, is returned by CreateProgram for keys it maps.
	programErr map[string]error
	// textureErr is returned by CreateTexture for textures it names.
	textureErr map[string]error
	// uniformErr is returned by SetUniform for the uniform names it maps.
	uniformErr map[string]error

	sources  []ProgramSource
	uniforms map[string]any
}

func newRecordDevice() *recordDevice {
	return &recordDevice{
		units:      8,
		programErr: make(map[string]error),
		textureErr: make(map[string]error),
		uniformErr: make(map[string]error),
		uniforms:   make(map[string]any),
	}
}

func (d *recordDevice) log(format string, args ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *recordDevice) handle() uint32 {
	d.next++
	return d.next
}

// count returns how many recorded calls start with prefix.
func (d *recordDevice) count(prefix string) int {
	n := 0
	for _, c := range d.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// filter returns the recorded calls starting with prefix, in order.
func (d *recordDevice) filter(prefix string) []string {
	var out []string
	for _, c := range d.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (d *recordDevice) reset() { d.calls = d.calls[:0] }

func (d *recordDevice) Capabilities() Capabilities {
	return Capabilities{MaxTextureUnits: d.units, MaxAnisotropy: 4}
}

func (d *recordDevice) CreateBuffer(b *BufferData) (BufferHandle, error) {
	h := BufferHandle(d.handle())
	d.log("CreateBuffer %d", h)
	return h, nil
}

func (d *recordDevice) BindBuffer(target BufferTarget, h BufferHandle) {
	d.log("BindBuffer %d %d", target, h)
}

func (d *recordDevice) UpdateBuffer(target BufferTarget, h BufferHandle, _ *BufferData) {
	d.log("UpdateBuffer %d %d", target, h)
}

func (d *recordDevice) DeleteBuffer(h BufferHandle) { d.log("DeleteBuffer %d", h) }

func (d *recordDevice) CreateTexture(t *Texture) (TextureHandle, error) {
	if err := d.textureErr[t.Name]; err != nil {
		d.log("CreateTexture %s failed", t.Name)
		return 0, err
	}
	h := TextureHandle(d.handle())
	d.log("CreateTexture %s %d", t.Name, h)
	return h, nil
}

func (d *recordDevice) UpdateTexture(h TextureHandle, t *Texture) {
	d.log("UpdateTexture %s %d", t.Name, h)
}

func (d *recordDevice) BindTexture(unit int, target TextureTarget, h TextureHandle) {
	d.log("BindTexture %d %d %d", unit, target, h)
}

func (d *recordDevice) SetTextureParams(target TextureTarget, h TextureHandle, p TextureParams) {
	d.log("SetTextureParams %d %d %+v", target, h, p)
}

func (d *recordDevice) DeleteTexture(h TextureHandle) { d.log("DeleteTexture %d", h) }

func (d *recordDevice) CreateProgram(src ProgramSource) (ProgramHandle, error) {
	d.sources = append(d.sources, src)
	if err := d.programErr[src.Key]; err != nil {
		d.log("CreateProgram %s failed", src.Key)
		return 0, err
	}
	h := ProgramHandle(d.handle())
	d.log("CreateProgram %s %d", src.Key, h)
	return h, nil
}

func (d *recordDevice) UseProgram(h ProgramHandle) { d.log("UseProgram %d", h) }

func (d *recordDevice) BindAttributes(p ProgramHandle, mesh *MeshData) {
	d.log("BindAttributes %d %s", p, mesh.Name)
}

func (d *recordDevice) SetUniform(p ProgramHandle, name string, value any) error {
	if err := d.uniformErr[name]; err != nil {
		d.log("SetUniform %d %s failed", p, name)
		return err
	}
	d.log("SetUniform %d %s", p, name)
	d.uniforms[name] = value
	return nil
}

func (d *recordDevice) DeleteProgram(h ProgramHandle) { d.log("DeleteProgram %d", h) }

func (d *recordDevice) EnableDepthTest(on bool)    { d.log("EnableDepthTest %v", on) }
func (d *recordDevice) DepthMask(write bool)       { d.log("DepthMask %v", write) }
func (d *recordDevice) EnableCullFace(on bool)     { d.log("EnableCullFace %v", on) }
func (d *recordDevice) CullFace(face CullFace)     { d.log("CullFace %d", face) }
func (d *recordDevice) FrontFace(face FrontFace)   { d.log("FrontFace %d", face) }
func (d *recordDevice) EnableBlend(on bool)        { d.log("EnableBlend %v", on) }
func (d *recordDevice) BlendFunc(state BlendState) { d.log("BlendFunc %d", state.Mode) }

func (d *recordDevice) EnablePolygonOffset(on bool) { d.log("EnablePolygonOffset %v", on) }
func (d *recordDevice) PolygonOffset(factor, units float64) {
	d.log("PolygonOffset %g %g", factor, units)
}
func (d *recordDevice) LineWidth(w float64) { d.log("LineWidth %g", w) }

func (d *recordDevice) CreateFramebuffer(width, height int) (FramebufferHandle, error) {
	h := FramebufferHandle(d.handle())
	d.log("CreateFramebuffer %dx%d %d", width, height, h)
	return h, nil
}

func (d *recordDevice) BindFramebuffer(h FramebufferHandle)   { d.log("BindFramebuffer %d", h) }
func (d *recordDevice) DeleteFramebuffer(h FramebufferHandle) { d.log("DeleteFramebuffer %d", h) }

func (d *recordDevice) Viewport(x, y, width, height int) {
	d.log("Viewport %d %d %d %d", x, y, width, height)
}

func (d *recordDevice) Clear(c Color, depth bool) { d.log("Clear %v", depth) }

func (d *recordDevice) DrawElements(mode PrimitiveMode, count int) {
	d.log("DrawElements %d %d", mode, count)
}

func (d *recordDevice) DrawArrays(mode PrimitiveMode, count int) {
	d.log("DrawArrays %d %d", mode, count)
}

var errCompile = errors.New("compile error")
