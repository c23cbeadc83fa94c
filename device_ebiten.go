package juniper

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
)

// Uniform names the EbitenDevice consumes itself. Vertices are projected on
// the CPU with these matrices; every other uniform is forwarded to the Kage
// program.
const (
	EbitenWorldUniform          = "World"
	EbitenViewProjectionUniform = "ViewProjection"
)

// ebitenMaxImages is the number of source images a Kage program can sample.
const ebitenMaxImages = 4

type ebitenProgram struct {
	shader   *ebiten.Shader // nil draws vertex colors times image 0
	uniforms map[string]any
	world    Mat4
	viewProj Mat4
}

type ebitenTexture struct {
	img    *ebiten.Image
	params TextureParams
}

// EbitenDevice implements Device on top of ebiten. Programs are Kage
// fragment shaders built from ProgramSource.Fragment with each define
// injected as a constant; the vertex stage runs on the CPU. ebiten has no
// depth buffer, so depth state is recorded but draw order alone decides
// visibility, and cube textures sample their first face.
//
// EbitenDevice must be used from the ebiten Draw callback.
type EbitenDevice struct {
	screen *ebiten.Image
	target *ebiten.Image

	nextHandle uint32

	buffers      map[BufferHandle]*BufferData
	textures     map[TextureHandle]*ebitenTexture
	programs     map[ProgramHandle]*ebitenProgram
	framebuffers map[FramebufferHandle]*ebitenFramebuffer
	spare        map[image.Point][]*ebiten.Image
	white        *ebiten.Image

	bound    [bufferTargetCount]BufferHandle
	program  ProgramHandle
	attrMesh *MeshData
	units    [ebitenMaxImages]TextureHandle

	cullEnabled bool
	cullFace    CullFace
	frontFace   FrontFace
	blend       BlendState
	blendOn     bool
	viewport    image.Rectangle

	verts    []ebiten.Vertex
	inds     []uint32
	screenXY []float64
	behind   []bool
	triOp    ebiten.DrawTrianglesOptions
	shaderOp ebiten.DrawTrianglesShaderOptions
}

// NewEbitenDevice returns a device drawing to the screen image passed to
// SetScreen.
func NewEbitenDevice() *EbitenDevice {
	return &EbitenDevice{
		buffers:      make(map[BufferHandle]*BufferData),
		textures:     make(map[TextureHandle]*ebitenTexture),
		programs:     make(map[ProgramHandle]*ebitenProgram),
		framebuffers: make(map[FramebufferHandle]*ebitenFramebuffer),
		spare:        make(map[image.Point][]*ebiten.Image),
	}
}

// SetScreen sets the image framebuffer zero draws into. Call it at the start
// of each ebiten Draw.
func (d *EbitenDevice) SetScreen(screen *ebiten.Image) {
	if d.target == d.screen {
		d.target = screen
	}
	d.screen = screen
	if d.viewport.Empty() && screen != nil {
		d.viewport = screen.Bounds()
	}
}

func (d *EbitenDevice) handle() uint32 {
	d.nextHandle++
	return d.nextHandle
}

func (d *EbitenDevice) Capabilities() Capabilities {
	return Capabilities{MaxTextureUnits: ebitenMaxImages}
}

// --- Buffers ---

func (d *EbitenDevice) CreateBuffer(b *BufferData) (BufferHandle, error) {
	h := BufferHandle(d.handle())
	d.buffers[h] = b
	return h, nil
}

func (d *EbitenDevice) BindBuffer(target BufferTarget, h BufferHandle) { d.bound[target] = h }

// UpdateBuffer is a no-op: vertices are read from the BufferData at draw
// time.
func (d *EbitenDevice) UpdateBuffer(BufferTarget, BufferHandle, *BufferData) {}

func (d *EbitenDevice) DeleteBuffer(h BufferHandle) { delete(d.buffers, h) }

// --- Textures ---

func (d *EbitenDevice) CreateTexture(t *Texture) (TextureHandle, error) {
	img, err := textureImage(t)
	if err != nil {
		return 0, err
	}
	h := TextureHandle(d.handle())
	d.textures[h] = &ebitenTexture{img: img, params: t.Params}
	return h, nil
}

func (d *EbitenDevice) UpdateTexture(h TextureHandle, t *Texture) {
	et := d.textures[h]
	if et == nil {
		return
	}
	b := et.img.Bounds()
	if b.Dx() != t.Width || b.Dy() != t.Height {
		img, err := textureImage(t)
		if err != nil {
			return
		}
		et.img.Deallocate()
		et.img = img
		return
	}
	if len(t.Pixels) < 4*t.Width*t.Height {
		return
	}
	et.img.WritePixels(premultiply(t.Pixels[:4*t.Width*t.Height]))
}

// textureImage uploads the first face of t.
func textureImage(t *Texture) (*ebiten.Image, error) {
	if t.Width <= 0 || t.Height <= 0 {
		return nil, fmt.Errorf("texture %q: invalid size %dx%d", t.Name, t.Width, t.Height)
	}
	n := 4 * t.Width * t.Height
	if len(t.Pixels) < n {
		return nil, fmt.Errorf("texture %q: %d bytes of pixels, need %d", t.Name, len(t.Pixels), n)
	}
	img := ebiten.NewImage(t.Width, t.Height)
	img.WritePixels(premultiply(t.Pixels[:n]))
	return img, nil
}

// premultiply returns a premultiplied copy of straight-alpha RGBA pixels.
func premultiply(pixels []byte) []byte {
	out := make([]byte, len(pixels))
	for i := 0; i+3 < len(pixels); i += 4 {
		a := uint16(pixels[i+3])
		out[i] = uint8(uint16(pixels[i]) * a / 255)
		out[i+1] = uint8(uint16(pixels[i+1]) * a / 255)
		out[i+2] = uint8(uint16(pixels[i+2]) * a / 255)
		out[i+3] = pixels[i+3]
	}
	return out
}

func (d *EbitenDevice) BindTexture(unit int, _ TextureTarget, h TextureHandle) {
	if unit >= 0 && unit < ebitenMaxImages {
		d.units[unit] = h
	}
}

func (d *EbitenDevice) SetTextureParams(_ TextureTarget, h TextureHandle, p TextureParams) {
	if et := d.textures[h]; et != nil {
		et.params = p
	}
}

func (d *EbitenDevice) DeleteTexture(h TextureHandle) {
	if et := d.textures[h]; et != nil {
		et.img.Deallocate()
		delete(d.textures, h)
	}
}

// --- Programs ---

// CreateProgram compiles src.Fragment as Kage. An empty fragment source
// selects the built-in path that draws vertex colors modulated by image 0.
func (d *EbitenDevice) CreateProgram(src ProgramSource) (ProgramHandle, error) {
	p := &ebitenProgram{
		uniforms: make(map[string]any),
		world:    Mat4Identity,
		viewProj: Mat4Identity,
	}
	if strings.TrimSpace(src.Fragment) != "" {
		s, err := ebiten.NewShader([]byte(injectDefines(src.Fragment, src.Defines)))
		if err != nil {
			return 0, fmt.Errorf("compile %s: %w", src.Key, err)
		}
		p.shader = s
	}
	h := ProgramHandle(d.handle())
	d.programs[h] = p
	return h, nil
}

// injectDefines inserts a const declaration per define after the package
// clause of a Kage source, in name order.
func injectDefines(src string, defines map[string]string) string {
	if len(defines) == 0 {
		return src
	}
	names := make([]string, 0, len(defines))
	for k := range defines {
		names = append(names, k)
	}
	sort.Strings(names)

	var consts strings.Builder
	for _, k := range names {
		v := defines[k]
		if v == "" {
			v = "true"
		}
		fmt.Fprintf(&consts, "const %s = %s\n", k, v)
	}

	i := strings.Index(src, "package main")
	if i < 0 {
		return src
	}
	end := i + len("package main")
	return src[:end] + "\n\n" + consts.String() + src[end:]
}

func (d *EbitenDevice) UseProgram(h ProgramHandle) { d.program = h }

func (d *EbitenDevice) BindAttributes(_ ProgramHandle, mesh *MeshData) { d.attrMesh = mesh }

// SetUniform records value for the next draw with program p. Matrices named
// EbitenWorldUniform and EbitenViewProjectionUniform are kept for vertex
// projection.
func (d *EbitenDevice) SetUniform(h ProgramHandle, name string, value any) error {
	p := d.programs[h]
	if p == nil {
		return fmt.Errorf("uniform %s: unknown program %d", name, h)
	}
	switch name {
	case EbitenWorldUniform, EbitenViewProjectionUniform:
		m, ok := value.(Mat4)
		if !ok {
			return fmt.Errorf("uniform %s: want Mat4, got %T", name, value)
		}
		if name == EbitenWorldUniform {
			p.world = m
		} else {
			p.viewProj = m
		}
		return nil
	}
	v, err := kageValue(value)
	if err != nil {
		return fmt.Errorf("uniform %s: %w", name, err)
	}
	p.uniforms[name] = v
	return nil
}

// kageValue converts a uniform value to a type Kage accepts.
func kageValue(value any) (any, error) {
	switch v := value.(type) {
	case float32, int, int32, []float32, []int32:
		return v, nil
	case float64:
		return float32(v), nil
	case bool:
		if v {
			return int32(1), nil
		}
		return int32(0), nil
	case Vec3:
		return []float32{float32(v[0]), float32(v[1]), float32(v[2])}, nil
	case Vec4:
		return []float32{float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3])}, nil
	case Color:
		return []float32{float32(v.R), float32(v.G), float32(v.B), float32(v.A)}, nil
	case Mat4:
		out := make([]float32, 16)
		for i, f := range v {
			out[i] = float32(f)
		}
		return out, nil
	case []float64:
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported uniform type %T", value)
}

func (d *EbitenDevice) DeleteProgram(h ProgramHandle) {
	if p := d.programs[h]; p != nil {
		if p.shader != nil {
			p.shader.Deallocate()
		}
		delete(d.programs, h)
	}
}

// --- Fixed-function state ---

// EnableDepthTest is recorded only; ebiten draws in submission order.
func (d *EbitenDevice) EnableDepthTest(bool) {}

// DepthMask is recorded only; ebiten draws in submission order.
func (d *EbitenDevice) DepthMask(bool) {}

func (d *EbitenDevice) EnableCullFace(on bool)     { d.cullEnabled = on }
func (d *EbitenDevice) CullFace(face CullFace)     { d.cullFace = face }
func (d *EbitenDevice) FrontFace(face FrontFace)   { d.frontFace = face }
func (d *EbitenDevice) EnableBlend(on bool)        { d.blendOn = on }
func (d *EbitenDevice) BlendFunc(state BlendState) { d.blend = state }

// EnablePolygonOffset is ignored without a depth buffer.
func (d *EbitenDevice) EnablePolygonOffset(bool) {}

// PolygonOffset is ignored without a depth buffer.
func (d *EbitenDevice) PolygonOffset(float64, float64) {}

// LineWidth is ignored; only triangles are drawn.
func (d *EbitenDevice) LineWidth(float64) {}

// --- Framebuffers ---

// ebitenFramebuffer is an offscreen target. Deleting it parks the image in
// EbitenDevice.spare for the next target of the same size.
type ebitenFramebuffer struct {
	img  *ebiten.Image
	size image.Point
}

// maxSpareFramebuffers caps the parked images kept per size.
const maxSpareFramebuffers = 4

func (d *EbitenDevice) CreateFramebuffer(width, height int) (FramebufferHandle, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("framebuffer: invalid size %dx%d", width, height)
	}
	size := image.Pt(width, height)
	img := d.takeSpare(size)
	if img != nil {
		img.Clear()
	} else {
		img = ebiten.NewImageWithOptions(image.Rectangle{Max: size}, &ebiten.NewImageOptions{Unmanaged: true})
	}
	h := FramebufferHandle(d.handle())
	d.framebuffers[h] = &ebitenFramebuffer{img: img, size: size}
	return h, nil
}

func (d *EbitenDevice) BindFramebuffer(h FramebufferHandle) {
	if fb := d.framebuffers[h]; fb != nil {
		d.target = fb.img
		return
	}
	d.target = d.screen
}

func (d *EbitenDevice) DeleteFramebuffer(h FramebufferHandle) {
	fb := d.framebuffers[h]
	if fb == nil {
		return
	}
	if d.target == fb.img {
		d.target = d.screen
	}
	delete(d.framebuffers, h)
	if !d.parkSpare(fb.size, fb.img) {
		fb.img.Deallocate()
	}
}

// takeSpare pops the most recently parked image of the given size.
func (d *EbitenDevice) takeSpare(size image.Point) *ebiten.Image {
	stack := d.spare[size]
	if len(stack) == 0 {
		return nil
	}
	img := stack[len(stack)-1]
	stack[len(stack)-1] = nil
	d.spare[size] = stack[:len(stack)-1]
	return img
}

// parkSpare keeps img for reuse unless the size already has
// maxSpareFramebuffers parked.
func (d *EbitenDevice) parkSpare(size image.Point, img *ebiten.Image) bool {
	if len(d.spare[size]) >= maxSpareFramebuffers {
		return false
	}
	d.spare[size] = append(d.spare[size], img)
	return true
}

// Framebuffer returns the image behind h so render targets can be sampled
// or drawn by other ebiten code.
func (d *EbitenDevice) Framebuffer(h FramebufferHandle) *ebiten.Image {
	if fb := d.framebuffers[h]; fb != nil {
		return fb.img
	}
	if h == 0 {
		return d.screen
	}
	return nil
}

func (d *EbitenDevice) Viewport(x, y, width, height int) {
	d.viewport = image.Rect(x, y, x+width, y+height)
}

func (d *EbitenDevice) Clear(c Color, _ bool) {
	if d.target != nil {
		d.target.Fill(c.toRGBA())
	}
}

// --- Draws ---

func (d *EbitenDevice) DrawElements(mode PrimitiveMode, count int) {
	ib := d.buffers[d.bound[ElementArrayBuffer]]
	if ib == nil {
		return
	}
	count = min(count, len(ib.Indices))
	d.draw(mode, ib.Indices[:count], count)
}

func (d *EbitenDevice) DrawArrays(mode PrimitiveMode, count int) {
	d.draw(mode, nil, count)
}

// draw projects the bound vertices, culls and clips whole triangles, and
// submits the rest in one ebiten call. indices nil means sequential.
func (d *EbitenDevice) draw(mode PrimitiveMode, indices []uint32, count int) {
	if mode != Triangles || d.target == nil || d.attrMesh == nil {
		return
	}
	vb := d.buffers[d.bound[ArrayBuffer]]
	p := d.programs[d.program]
	if vb == nil || p == nil {
		return
	}
	mesh := d.attrMesh
	stride := mesh.Stride
	if stride <= 0 {
		return
	}
	n := len(vb.Floats) / stride
	if indices == nil {
		count = min(count, n)
	}

	img0 := d.unitImage(0)
	src := img0.Bounds()
	d.projectVertices(vb.Floats, mesh, p, n, float64(src.Dx()), float64(src.Dy()))

	d.inds = d.inds[:0]
	for t := 0; t+2 < count; t += 3 {
		var i0, i1, i2 uint32
		if indices != nil {
			i0, i1, i2 = indices[t], indices[t+1], indices[t+2]
		} else {
			i0, i1, i2 = uint32(t), uint32(t+1), uint32(t+2)
		}
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}
		if d.behind[i0] || d.behind[i1] || d.behind[i2] {
			continue
		}
		if d.culled(i0, i1, i2) {
			continue
		}
		d.inds = append(d.inds, i0, i1, i2)
	}
	if len(d.inds) == 0 {
		return
	}

	blend := ebiten.BlendSourceOver
	if d.blendOn {
		blend = d.blend.Mode.EbitenBlend(d.blend.Custom)
	}

	if p.shader == nil {
		d.triOp.Blend = blend
		d.triOp.ColorScaleMode = ebiten.ColorScaleModeStraightAlpha
		d.triOp.Filter = ebiten.FilterLinear
		d.triOp.Address = ebiten.AddressUnsafe
		if et := d.textures[d.units[0]]; et != nil {
			d.triOp.Filter = ebitenFilter(et.params.MagFilter)
			d.triOp.Address = ebitenAddress(et.params.WrapS)
		}
		d.target.DrawTriangles32(d.verts, d.inds, img0, &d.triOp)
		return
	}

	d.shaderOp.Blend = blend
	d.shaderOp.Uniforms = p.uniforms
	for i := range d.shaderOp.Images {
		d.shaderOp.Images[i] = nil
		if et := d.textures[d.units[i]]; et != nil {
			d.shaderOp.Images[i] = et.img
		}
	}
	d.target.DrawTrianglesShader32(d.verts, d.inds, p.shader, &d.shaderOp)
}

// projectVertices fills d.verts with screen-space vertices and d.behind with
// whether each vertex lies behind the camera.
func (d *EbitenDevice) projectVertices(floats []float32, mesh *MeshData, p *ebitenProgram, n int, srcW, srcH float64) {
	d.verts = d.verts[:0]
	d.behind = d.behind[:0]
	d.screenXY = d.screenXY[:0]

	pos, hasPos := mesh.Attribute(AttrPosition)
	col, hasCol := mesh.Attribute(AttrColor)
	uv, hasUV := mesh.Attribute(AttrUV0)
	if !hasPos {
		return
	}
	mvp := p.viewProj.Mul4(p.world)
	vp := d.viewport
	vw, vh := float64(vp.Dx()), float64(vp.Dy())

	for i := 0; i < n; i++ {
		base := i * mesh.Stride
		clip := mvp.Mul4x1(Vec4{
			float64(floats[base+pos.Offset]),
			float64(floats[base+pos.Offset+1]),
			float64(floats[base+pos.Offset+2]),
			1,
		})
		x, y, w := clip[0], clip[1], clip[3]
		behind := w <= 1e-9
		var sx, sy float64
		if !behind {
			sx = float64(vp.Min.X) + (x/w*0.5+0.5)*vw
			sy = float64(vp.Min.Y) + (0.5-y/w*0.5)*vh
		}

		v := ebiten.Vertex{
			DstX:   float32(sx),
			DstY:   float32(sy),
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		}
		if hasCol && col.Size >= 4 {
			o := base + col.Offset
			v.ColorR, v.ColorG, v.ColorB, v.ColorA = floats[o], floats[o+1], floats[o+2], floats[o+3]
		}
		if hasUV && uv.Size >= 2 {
			o := base + uv.Offset
			v.SrcX = float32(float64(floats[o]) * srcW)
			v.SrcY = float32(float64(floats[o+1]) * srcH)
		}
		d.verts = append(d.verts, v)
		d.behind = append(d.behind, behind)
		d.screenXY = append(d.screenXY, sx, sy)
	}
}

// culled reports whether the cull state discards the screen-space triangle.
// Screen y points down, so counter-clockwise triangles have negative area.
func (d *EbitenDevice) culled(i0, i1, i2 uint32) bool {
	if !d.cullEnabled {
		return false
	}
	if d.cullFace == CullFrontAndBack {
		return true
	}
	x0, y0 := d.screenXY[2*i0], d.screenXY[2*i0+1]
	x1, y1 := d.screenXY[2*i1], d.screenXY[2*i1+1]
	x2, y2 := d.screenXY[2*i2], d.screenXY[2*i2+1]
	area := (x1-x0)*(y2-y0) - (x2-x0)*(y1-y0)
	front := area < 0
	if d.frontFace == FrontCW {
		front = !front
	}
	if d.cullFace == CullBack {
		return !front
	}
	return front
}

// unitImage returns the image bound to unit, or a white pixel.
func (d *EbitenDevice) unitImage(unit int) *ebiten.Image {
	if et := d.textures[d.units[unit]]; et != nil {
		return et.img
	}
	if d.white == nil {
		d.white = ebiten.NewImage(1, 1)
		d.white.Fill(Color{1, 1, 1, 1}.toRGBA())
	}
	return d.white
}

func ebitenFilter(f TextureFilter) ebiten.Filter {
	switch f {
	case FilterNearest, FilterNearestMipmap:
		return ebiten.FilterNearest
	default:
		return ebiten.FilterLinear
	}
}

func ebitenAddress(w TextureWrap) ebiten.Address {
	switch w {
	case WrapClamp:
		return ebiten.AddressClampToZero
	case WrapRepeat, WrapMirror:
		return ebiten.AddressRepeat
	default:
		return ebiten.AddressUnsafe
	}
}

// Snapshot reads back the screen as a straight-alpha image.
func (d *EbitenDevice) Snapshot() (*image.NRGBA, error) {
	if d.screen == nil {
		return nil, ErrNotReady
	}
	b := d.screen.Bounds()
	w, h := b.Dx(), b.Dy()
	pixels := make([]byte, 4*w*h)
	d.screen.ReadPixels(pixels)
	return unpremultiply(pixels, w, h), nil
}
