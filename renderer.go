package juniper

import (
	"errors"
	"fmt"
	"maps"
	"reflect"

	"go.uber.org/zap"
)

// RenderStats counts the work of one Render call.
type RenderStats struct {
	Calls           int // device draw calls
	Passes          int // material passes drawn
	Vertices        int
	Indices         int
	Skipped         int // passes skipped for a missing or unready program
	ProgramSwitches int
	ProgramsBuilt   int
	BufferBinds     int
	BufferElided    int
	TextureBinds    int
	TextureElided   int
	UniformSets     int
	UniformElided   int
}

// Renderer draws sorted render lists through a Device. It owns the
// DeviceStateCache and the program cache and issues a device call only when
// the cache shows the call would change device state.
//
// Renderer is single-threaded.
type Renderer struct {
	device Device
	cache  *DeviceStateCache

	programs     map[string]*program
	placeholders [2]*Texture
	overrides    []*Material
	merged       Material
	defines      map[string]string
	keyScratch   []string
	info         RenderInfo

	width, height int

	buffers  []*BufferData
	textures []*Texture
	targets  []*RenderTarget

	warned   map[string]struct{}
	noShader map[uint64]struct{}
	stats    RenderStats
	ctx      *FrameContext
	log      *zap.Logger
	bus      *EventBus
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithRendererLogger sets the logger for skipped draws and compile errors.
func WithRendererLogger(l *zap.Logger) RendererOption {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

// WithRendererBus sets the bus that receives compile and uniform errors.
func WithRendererBus(bus *EventBus) RendererOption {
	return func(r *Renderer) { r.bus = bus }
}

// WithTextureUnits caps the number of texture units tracked. The default is
// the device's reported limit.
func WithTextureUnits(n int) RendererOption {
	return func(r *Renderer) {
		if n > 0 {
			r.cache = NewDeviceStateCache(n)
		}
	}
}

// NewRenderer returns a renderer drawing through device.
func NewRenderer(device Device, opts ...RendererOption) *Renderer {
	r := &Renderer{
		device:   device,
		programs: make(map[string]*program),
		defines:  make(map[string]string),
		warned:   make(map[string]struct{}),
		noShader: make(map[uint64]struct{}),
		log:      zap.NewNop(),
	}
	r.placeholders[Texture2D] = newPlaceholderTexture(Texture2D)
	r.placeholders[TextureCube] = newPlaceholderTexture(TextureCube)
	for _, o := range opts {
		o(r)
	}
	if r.cache == nil {
		r.cache = NewDeviceStateCache(device.Capabilities().MaxTextureUnits)
	}
	return r
}

// Device returns the device the renderer draws through.
func (r *Renderer) Device() Device { return r.device }

// StateCache returns the renderer's binding records.
func (r *Renderer) StateCache() *DeviceStateCache { return r.cache }

// Stats returns the counters of the last Render call.
func (r *Renderer) Stats() RenderStats { return r.stats }

// ProgramCount returns the number of distinct programs in the cache.
func (r *Renderer) ProgramCount() int { return len(r.programs) }

// SetSize sets the screen size used when no render target is bound.
func (r *Renderer) SetSize(width, height int) {
	r.width, r.height = width, height
	if r.cache.framebufferValid && r.cache.framebuffer == 0 {
		r.cache.setViewport(r.device, 0, 0, width, height)
	}
}

// SetOverrideMaterials replaces every entity's materials for subsequent
// renders: pass i draws with override i merged over the entity's material
// i. Call with no arguments to clear.
func (r *Renderer) SetOverrideMaterials(mats ...*Material) {
	r.overrides = append(r.overrides[:0], mats...)
}

// OverrideMaterials returns the active override list.
func (r *Renderer) OverrideMaterials() []*Material { return r.overrides }

// SetRenderTarget directs drawing to rt, or to the screen when rt is nil.
// Switching targets invalidates the texture-unit records.
func (r *Renderer) SetRenderTarget(rt *RenderTarget) {
	var h FramebufferHandle
	w, ht := r.width, r.height
	if rt != nil {
		if rt.handle == 0 {
			fb, err := r.device.CreateFramebuffer(rt.Width, rt.Height)
			if err != nil {
				r.warnOnce("target:"+rt.Name, "render target unavailable",
					zap.String("target", rt.Name), zap.Error(err))
				return
			}
			rt.handle = fb
			r.targets = append(r.targets, rt)
		}
		h = rt.handle
		w, ht = rt.Width, rt.Height
	}
	if r.cache.bindFramebuffer(r.device, h) {
		r.cache.setViewport(r.device, 0, 0, w, ht)
	}
}

// Clear clears the current target.
func (r *Renderer) Clear(c Color, depth bool) {
	if depth {
		// Depth clears honor the depth mask.
		r.cache.setDepthWrite(r.device, true)
	}
	r.device.Clear(c, depth)
}

// Render draws list in order. Draws that cannot proceed are skipped and
// logged once; Render never fails.
func (r *Renderer) Render(list []Renderable, ctx *FrameContext) {
	r.stats = RenderStats{}
	r.ctx = ctx
	for i := range list {
		r.renderMesh(&list[i])
	}
	r.ctx = nil
	r.merged = Material{Uniforms: r.merged.Uniforms, Textures: r.merged.Textures}
	clear(r.merged.Uniforms)
	clear(r.merged.Textures)
}

func (r *Renderer) renderMesh(rend *Renderable) {
	mesh := rend.Mesh
	if mesh == nil || mesh.Vertices == nil || len(mesh.Vertices.Floats) == 0 ||
		(mesh.Indices != nil && len(mesh.Indices.Indices) == 0) {
		return
	}
	if !r.bindData(mesh.Vertices) {
		return
	}

	count := len(rend.Materials)
	if len(r.overrides) > 0 {
		count = len(r.overrides)
	}
	for pass := 0; pass < count; pass++ {
		mat, owner := r.passMaterial(rend, pass)
		if mat == nil {
			continue
		}
		if mat.Shader == nil {
			if _, done := r.noShader[owner.id]; !done {
				r.noShader[owner.id] = struct{}{}
				r.log.Warn("material has no shader",
					zap.String("material", owner.Name), zap.Error(ErrNoShader))
			}
			r.stats.Skipped++
			continue
		}
		delete(r.noShader, owner.id)

		r.info = RenderInfo{Renderable: rend, Material: mat, Mesh: mesh, Pass: pass}
		if r.ctx != nil {
			r.info.Camera, r.info.Lights, r.info.Time = r.ctx.Camera, r.ctx.Lights, r.ctx.Time
		}

		p := r.programFor(mat.Shader, &r.info)
		if p == nil {
			r.stats.Skipped++
			continue
		}
		if r.cache.useProgram(r.device, p.handle) {
			r.stats.ProgramSwitches++
		}
		r.cache.bindAttributes(r.device, p.handle, mesh)
		r.bindUniforms(p, mat, &r.info)

		r.cache.setDepth(r.device, mat.Depth)
		r.cache.setCull(r.device, mat.Cull)
		r.cache.setBlend(r.device, mat.Blend)
		r.cache.setOffset(r.device, mat.Offset)
		r.updateTextures(p, mat)
		r.cache.setLineWidth(r.device, mat.LineWidth)

		if mat.DualTransparency {
			flipped := mat.Cull
			flipped.Face = flipped.Face.Flip()
			r.cache.setCull(r.device, flipped)
			r.drawBuffers(mesh)
			r.cache.setCull(r.device, mat.Cull)
		}
		r.drawBuffers(mesh)

		r.stats.Passes++
		r.stats.Vertices += mesh.VertexCount()
		r.stats.Indices += mesh.IndexCount()
	}
}

// passMaterial returns the effective material of pass and the material
// owning its identity.
func (r *Renderer) passMaterial(rend *Renderable, pass int) (mat, owner *Material) {
	if pass < len(rend.Materials) {
		mat = rend.Materials[pass]
	}
	var ov *Material
	if pass < len(r.overrides) {
		ov = r.overrides[pass]
	}
	switch {
	case mat != nil && ov != nil:
		mergeMaterial(ov, mat, &r.merged)
		return &r.merged, mat
	case ov != nil:
		return ov, ov
	default:
		return mat, mat
	}
}

// bindData uploads b on first use, binds it, and re-uploads it when marked
// dirty. Reports whether b is bound.
func (r *Renderer) bindData(b *BufferData) bool {
	if b.handle == 0 {
		h, err := r.device.CreateBuffer(b)
		if err != nil {
			if !errors.Is(err, ErrNotReady) {
				r.warnOnce(fmt.Sprintf("buffer:%p", b), "buffer creation failed", zap.Error(err))
			}
			return false
		}
		b.handle = h
		b.needsRefresh = false
		r.buffers = append(r.buffers, b)
		r.cache.InvalidateBuffer(b.Target)
		r.bindBuffer(b)
		return true
	}
	r.bindBuffer(b)
	if b.needsRefresh {
		r.device.UpdateBuffer(b.Target, b.handle, b)
		b.needsRefresh = false
	}
	return true
}

func (r *Renderer) bindBuffer(b *BufferData) {
	if r.cache.bindBuffer(r.device, b.Target, b.handle) {
		r.stats.BufferBinds++
	} else {
		r.stats.BufferElided++
	}
}

func (r *Renderer) drawBuffers(mesh *MeshData) {
	if mesh.Indices != nil {
		if !r.bindData(mesh.Indices) {
			return
		}
		r.device.DrawElements(mesh.Mode, len(mesh.Indices.Indices))
	} else {
		r.device.DrawArrays(mesh.Mode, mesh.VertexCount())
	}
	r.stats.Calls++
}

// --- Programs ---

// programFor returns the ready program for s under the pass's defines,
// compiling it on first use. Returns nil when the program is not ready yet
// or failed to build.
func (r *Renderer) programFor(s *Shader, info *RenderInfo) *program {
	key := ""
	defines := s.Defines
	if len(s.Processors) > 0 {
		clear(r.defines)
		maps.Copy(r.defines, s.Defines)
		for _, proc := range s.Processors {
			r.safeCall("processor", s.Name, info.Renderable, func() { proc(r.defines, info) })
		}
		defines = r.defines
		key = canonicalKey(s.Name, defines, &r.keyScratch)
	} else {
		key = s.Key()
	}

	p, ok := r.programs[key]
	if !ok {
		p = &program{
			key: key,
			source: ProgramSource{
				Key:      key,
				Name:     s.Name,
				Vertex:   s.VertexSource,
				Fragment: s.FragmentSource,
				Defines:  maps.Clone(defines),
				Slots:    s.TextureSlots,
			},
			uniforms: make(map[string]any),
		}
		r.programs[key] = p
	}

	switch p.state {
	case programReady:
		return p
	case programFailed:
		return nil
	}

	h, err := r.device.CreateProgram(p.source)
	if errors.Is(err, ErrNotReady) {
		return nil
	}
	if err != nil {
		p.state = programFailed
		if !p.warned {
			p.warned = true
			r.log.Warn("shader program failed to build",
				zap.String("shader", s.Name), zap.String("key", key), zap.Error(err))
			Publish(r.bus, ErrorEvent{Source: "shader", Err: fmt.Errorf("build %s: %w", key, err)})
		}
		return nil
	}
	p.handle = h
	p.state = programReady
	r.stats.ProgramsBuilt++
	return p
}

// ClearProgramCache deletes every compiled program. Programs are rebuilt on
// next use.
func (r *Renderer) ClearProgramCache() {
	for _, p := range r.programs {
		if p.state == programReady {
			r.device.DeleteProgram(p.handle)
		}
	}
	clear(r.programs)
	r.cache.programValid = false
	r.cache.attrValid = false
}

// --- Uniforms ---

func (r *Renderer) bindUniforms(p *program, mat *Material, info *RenderInfo) {
	for name, v := range mat.Shader.Uniforms {
		if _, overridden := mat.Uniforms[name]; overridden {
			continue
		}
		r.setUniform(p, name, v, info)
	}
	for name, v := range mat.Uniforms {
		r.setUniform(p, name, v, info)
	}
}

func (r *Renderer) setUniform(p *program, name string, v any, info *RenderInfo) {
	value, ok := r.resolveUniform(name, v, info)
	if !ok {
		return
	}
	if last, seen := p.uniforms[name]; seen && uniformEqual(last, value) {
		r.stats.UniformElided++
		return
	}
	if err := r.device.SetUniform(p.handle, name, value); err != nil {
		r.warnOnce("uniform:"+p.key+":"+name, "uniform rejected",
			zap.String("program", p.key), zap.String("uniform", name), zap.Error(err))
		return
	}
	p.uniforms[name] = value
	r.stats.UniformSets++
}

// resolveUniform turns a uniform declaration into a value: callbacks are
// called, built-in binding names looked up, plain values passed through.
func (r *Renderer) resolveUniform(name string, v any, info *RenderInfo) (any, bool) {
	switch fn := v.(type) {
	case UniformFunc:
		return r.callUniform(name, fn, info)
	case func(*RenderInfo) any:
		return r.callUniform(name, fn, info)
	case string:
		value, ok := builtinUniform(fn, info)
		if !ok {
			r.warnOnce("binding:"+fn, "unknown uniform binding",
				zap.String("uniform", name), zap.String("binding", fn))
		}
		return value, ok
	default:
		return v, v != nil
	}
}

func (r *Renderer) callUniform(name string, fn func(*RenderInfo) any, info *RenderInfo) (value any, ok bool) {
	ok = r.safeCall("uniform", name, info.Renderable, func() { value = fn(info) })
	return value, ok && value != nil
}

// builtinUniform resolves the built-in binding named binding.
func builtinUniform(binding string, info *RenderInfo) (any, bool) {
	switch binding {
	case UniformWorldMatrix:
		if info.Renderable == nil {
			return Mat4Identity, true
		}
		return info.Renderable.World, true
	case UniformViewMatrix:
		if info.Camera == nil {
			return Mat4Identity, true
		}
		return info.Camera.View(), true
	case UniformProjectionMatrix:
		if info.Camera == nil {
			return Mat4Identity, true
		}
		return info.Camera.ProjectionMatrix(), true
	case UniformViewProjectionMatrix:
		if info.Camera == nil {
			return Mat4Identity, true
		}
		return info.Camera.ViewProjection(), true
	case UniformCameraPosition:
		if info.Camera == nil {
			return Vec3{}, true
		}
		return info.Camera.Position(), true
	case UniformTime:
		return info.Time, true
	}
	return nil, false
}

// uniformEqual reports whether two uniform values are known to be equal.
// Values of non-comparable types are never equal.
func uniformEqual(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// --- Textures ---

func (r *Renderer) updateTextures(p *program, mat *Material) {
	units := r.cache.TextureUnits()
	for unit, slot := range mat.Shader.TextureSlots {
		if unit >= units {
			r.warnOnce("units:"+p.key, "shader uses more texture units than available",
				zap.String("program", p.key), zap.Int("units", units))
			return
		}
		tex := mat.Textures[slot.Name]
		if tex == nil || !tex.ready || tex.Target != slot.Target {
			tex = r.placeholders[slot.Target]
		}

		if tex.handle == 0 && !r.uploadTexture(tex) {
			tex = r.placeholders[slot.Target]
			if tex.handle == 0 && !r.uploadTexture(tex) {
				continue
			}
		} else if tex.needsUpdate {
			r.device.UpdateTexture(tex.handle, tex)
			tex.needsUpdate = false
		}

		if r.cache.bindTexture(r.device, unit, slot.Target, tex.handle) {
			r.stats.TextureBinds++
		} else {
			r.stats.TextureElided++
		}
		r.updateTextureParams(slot.Target, tex)
		r.setUniform(p, slot.Name, unit, nil)
	}
}

// uploadTexture creates the device texture for tex. Reports whether it now
// has a handle.
func (r *Renderer) uploadTexture(tex *Texture) bool {
	h, err := r.device.CreateTexture(tex)
	if err != nil {
		if !errors.Is(err, ErrNotReady) {
			r.warnOnce("texture:"+tex.Name, "texture upload failed",
				zap.String("texture", tex.Name), zap.Error(err))
		}
		return false
	}
	tex.handle = h
	tex.needsUpdate = false
	tex.appliedValid = false
	r.textures = append(r.textures, tex)
	return true
}

// updateTextureParams applies the sampler state of tex when it differs from
// what was last applied to it.
func (r *Renderer) updateTextureParams(target TextureTarget, tex *Texture) {
	want := tex.effectiveParams()
	if limit := r.device.Capabilities().MaxAnisotropy; limit > 0 && want.Anisotropy > limit {
		want.Anisotropy = limit
	}
	if tex.appliedValid && tex.applied == want {
		return
	}
	r.device.SetTextureParams(target, tex.handle, want)
	tex.applied, tex.appliedValid = want, true
}

// --- Lifecycle ---

// Release deletes every device resource the renderer created and resets
// the binding records. Resources are recreated on next use.
func (r *Renderer) Release() {
	r.ClearProgramCache()
	for _, b := range r.buffers {
		if b.handle != 0 {
			r.device.DeleteBuffer(b.handle)
			b.handle = 0
		}
	}
	for _, t := range r.textures {
		if t.handle != 0 {
			r.device.DeleteTexture(t.handle)
			t.handle = 0
			t.appliedValid = false
		}
	}
	for _, rt := range r.targets {
		if rt.handle != 0 {
			r.device.DeleteFramebuffer(rt.handle)
			rt.handle = 0
		}
	}
	clear(r.buffers)
	clear(r.textures)
	clear(r.targets)
	r.buffers, r.textures, r.targets = r.buffers[:0], r.textures[:0], r.targets[:0]
	r.cache.Invalidate()
	clear(r.warned)
	clear(r.noShader)
}

// --- Error reporting ---

// warnOnce logs msg the first time key is seen.
func (r *Renderer) warnOnce(key, msg string, fields ...zap.Field) {
	if _, done := r.warned[key]; done {
		return
	}
	r.warned[key] = struct{}{}
	r.log.Warn(msg, fields...)
}

// safeCall runs user code, converting a panic into an ErrorEvent. Reports
// whether fn returned normally.
func (r *Renderer) safeCall(source, name string, rend *Renderable, fn func()) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			var e *Entity
			if rend != nil {
				e = rend.Entity
			}
			err := recoveredError(name, rec)
			if r.ctx != nil && r.ctx.Bus != nil {
				r.ctx.reportError(source, e, err)
				return
			}
			r.log.Error("recovered error", zap.String("source", source), zap.Error(err))
			Publish(r.bus, ErrorEvent{Source: source, Entity: e, Err: err})
		}
	}()
	fn()
	return true
}
