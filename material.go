package juniper

import (
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
)

var nextMaterialID atomic.Uint64

// DepthState controls depth testing and writing.
type DepthState struct {
	Enabled bool
	Write   bool
}

// CullState controls face culling.
type CullState struct {
	Enabled   bool
	Face      CullFace
	FrontFace FrontFace
}

// BlendState controls color blending.
type BlendState struct {
	Mode BlendMode
	// Custom is used when Mode is BlendCustom.
	Custom ebiten.Blend
}

// OffsetState controls polygon offset.
type OffsetState struct {
	Enabled bool
	Factor  float64
	Units   float64
}

// Material is a shader plus the uniform values, textures, and render state
// used to draw with it. Materials are shared by reference and must not be
// modified while a frame renders.
type Material struct {
	Name   string
	Shader *Shader

	// Uniforms override the shader's defaults by name. Values are plain
	// values, UniformFunc callbacks, or the name of a built-in binding.
	Uniforms map[string]any
	// Textures maps shader texture slot names to textures.
	Textures map[string]*Texture

	Depth  DepthState
	Cull   CullState
	Blend  BlendState
	Offset OffsetState

	// DualTransparency draws back faces first, then front faces.
	DualTransparency bool
	LineWidth        float64

	renderQueue int
	queueSet    bool

	id uint64
}

// NewMaterial returns a material with depth test and write on, back-face
// culling, no blending, and a line width of 1.
func NewMaterial(name string, shader *Shader) *Material {
	return &Material{
		Name:      name,
		Shader:    shader,
		Uniforms:  make(map[string]any),
		Textures:  make(map[string]*Texture),
		Depth:     DepthState{Enabled: true, Write: true},
		Cull:      CullState{Enabled: true, Face: CullBack, FrontFace: FrontCCW},
		Blend:     BlendState{Mode: BlendNone},
		LineWidth: 1,
		id:        nextMaterialID.Add(1),
	}
}

// ID returns the material's identity used for sorting.
func (m *Material) ID() uint64 { return m.id }

// SetRenderQueue sets the material's queue key, overriding the shader's.
func (m *Material) SetRenderQueue(key int) {
	m.renderQueue = key
	m.queueSet = true
}

// ClearRenderQueue makes the material inherit its shader's queue key again.
func (m *Material) ClearRenderQueue() {
	m.renderQueue = 0
	m.queueSet = false
}

// RenderQueue returns the queue key: the material's own if set, otherwise
// the shader's, otherwise QueueOpaque.
func (m *Material) RenderQueue() int {
	if m.queueSet {
		return m.renderQueue
	}
	if m.Shader != nil {
		return m.Shader.RenderQueue
	}
	return QueueOpaque
}

// SetTexture binds tex to the shader slot named slot.
func (m *Material) SetTexture(slot string, tex *Texture) {
	if m.Textures == nil {
		m.Textures = make(map[string]*Texture)
	}
	m.Textures[slot] = tex
}

// SetUniform sets a uniform override.
func (m *Material) SetUniform(name string, value any) {
	if m.Uniforms == nil {
		m.Uniforms = make(map[string]any)
	}
	m.Uniforms[name] = value
}

// mergeMaterial writes into store the combination of override and base.
// The override's shader wins when set, its render state wins, and its
// uniforms and textures win per name with base filling the rest. store keeps
// base's identity so sorting and one-time warnings stay per material. The
// maps of store are reused and must not alias either input.
func mergeMaterial(override, base, store *Material) {
	uniforms, textures := store.Uniforms, store.Textures
	if uniforms == nil {
		uniforms = make(map[string]any)
	}
	if textures == nil {
		textures = make(map[string]*Texture)
	}
	clear(uniforms)
	clear(textures)

	*store = *override
	store.id = base.id
	store.Name = base.Name
	if store.Shader == nil {
		store.Shader = base.Shader
	}
	for k, v := range base.Uniforms {
		uniforms[k] = v
	}
	for k, v := range override.Uniforms {
		uniforms[k] = v
	}
	for k, v := range base.Textures {
		textures[k] = v
	}
	for k, v := range override.Textures {
		textures[k] = v
	}
	store.Uniforms = uniforms
	store.Textures = textures
}
