package juniper

import (
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ProgramHandle identifies a compiled device program. Zero means none.
type ProgramHandle uint32

// UniformFunc computes a uniform value for the pass being drawn.
type UniformFunc func(info *RenderInfo) any

// ShaderProcessor adjusts a pass's defines before the program lookup, for
// example to match the number of active lights.
type ShaderProcessor func(defines map[string]string, info *RenderInfo)

// Built-in uniform bindings. A uniform whose value is one of these names is
// resolved from the current pass.
const (
	UniformWorldMatrix          = "WORLD_MATRIX"
	UniformViewMatrix           = "VIEW_MATRIX"
	UniformProjectionMatrix     = "PROJECTION_MATRIX"
	UniformViewProjectionMatrix = "VIEW_PROJECTION_MATRIX"
	UniformCameraPosition       = "CAMERA_POSITION"
	UniformTime                 = "TIME"
)

// TextureSlot is a sampler declared by a shader. Slot i binds to texture
// unit i.
type TextureSlot struct {
	Name   string
	Target TextureTarget
}

// Shader describes a device program: sources, compile-time defines, uniform
// defaults, and texture slots. The compiled program for each distinct set of
// defines is owned by the Renderer's program cache.
type Shader struct {
	Name           string
	VertexSource   string
	FragmentSource string

	// Defines are compile-time switches. Changing them after the shader is
	// in use requires Invalidate.
	Defines map[string]string
	// Uniforms are default values, UniformFunc callbacks, or built-in
	// binding names.
	Uniforms map[string]any
	// Attributes maps shader attribute names to mesh attribute names.
	Attributes   map[string]string
	TextureSlots []TextureSlot
	Processors   []ShaderProcessor

	// RenderQueue is the default queue key of materials using this shader.
	RenderQueue int

	key   string
	keyOK bool
	id    uint64
}

// NewShader returns a shader in the opaque queue.
func NewShader(name, vertex, fragment string) *Shader {
	return &Shader{
		Name:           name,
		VertexSource:   vertex,
		FragmentSource: fragment,
		Defines:        make(map[string]string),
		Uniforms:       make(map[string]any),
		Attributes:     make(map[string]string),
		RenderQueue:    QueueOpaque,
	}
}

// Key returns the canonical define key: every define as name_value, sorted,
// joined with "_", then "_" and the shader name. Two shaders with the same
// name and defines share a key regardless of insertion order.
func (s *Shader) Key() string {
	if !s.keyOK {
		s.key = canonicalKey(s.Name, s.Defines, nil)
		s.id = xxhash.Sum64String(s.key)
		s.keyOK = true
	}
	return s.key
}

// ID returns a hash of Key, used to order draws by program.
func (s *Shader) ID() uint64 {
	s.Key()
	return s.id
}

// Invalidate drops the memoized key after Defines change.
func (s *Shader) Invalidate() {
	s.keyOK = false
}

// SetDefine sets a define and invalidates the key.
func (s *Shader) SetDefine(name, value string) {
	if s.Defines == nil {
		s.Defines = make(map[string]string)
	}
	s.Defines[name] = value
	s.keyOK = false
}

// RemoveDefine deletes a define and invalidates the key.
func (s *Shader) RemoveDefine(name string) {
	delete(s.Defines, name)
	s.keyOK = false
}

// canonicalKey builds the define key for name and defines. scratch, when
// non-nil, is reused for the sorted pairs.
func canonicalKey(name string, defines map[string]string, scratch *[]string) string {
	var pairs []string
	if scratch != nil {
		pairs = (*scratch)[:0]
	}
	for k, v := range defines {
		pairs = append(pairs, k+"_"+v)
	}
	slices.Sort(pairs)

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('_')
		}
		b.WriteString(p)
	}
	b.WriteByte('_')
	b.WriteString(name)

	if scratch != nil {
		*scratch = pairs
	}
	return b.String()
}

// ProgramSource is what a Device compiles.
type ProgramSource struct {
	Key      string
	Name     string
	Vertex   string
	Fragment string
	Defines  map[string]string
	Slots    []TextureSlot
}

type programState uint8

const (
	programPending programState = iota
	programReady
	programFailed
)

// program is one compiled variant in the cache.
type program struct {
	key      string
	source   ProgramSource
	handle   ProgramHandle
	state    programState
	uniforms map[string]any // last values sent, for elision
	warned   bool
}
