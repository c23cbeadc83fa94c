package juniper

// --- Kage shader sources ---
// All shaders use //kage:unit pixels as required by Ebitengine. Defines are
// injected as constants after the package clause by EbitenDevice, so every
// constant a source references must have a default in Shader.Defines.

const unlitKageSrc = `//kage:unit pixels
package main

var Tint vec4

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	// Vertex colors are straight alpha; premultiply before modulating.
	v := vec4(color.rgb*color.a, color.a)
	t := mix(vec4(1), vec4(Tint.rgb*Tint.a, Tint.a), TINT_STRENGTH)
	return c * v * t
}
`

const pulseKageSrc = `//kage:unit pixels
package main

var Tint vec4
var Time float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src) * vec4(color.rgb*color.a, color.a)
	pulse := 0.5 + 0.5*sin(Time*PULSE_SPEED)
	rim := vec4(Tint.rgb*Tint.a, Tint.a) * pulse
	return c + rim*(1-c.a)
}
`

// Texture slot used by the built-in shaders.
const BaseTextureSlot = "Texture"

// builtinShader returns a shader wired for EbitenDevice's CPU vertex stage.
func builtinShader(name, kage string) *Shader {
	s := NewShader(name, "", kage)
	s.Uniforms[EbitenWorldUniform] = UniformWorldMatrix
	s.Uniforms[EbitenViewProjectionUniform] = UniformViewProjectionMatrix
	s.Uniforms["Tint"] = Color{1, 1, 1, 1}
	s.TextureSlots = []TextureSlot{{Name: BaseTextureSlot, Target: Texture2D}}
	s.Attributes[AttrPosition] = AttrPosition
	s.Attributes[AttrColor] = AttrColor
	s.Attributes[AttrUV0] = AttrUV0
	return s
}

// NewUnlitShader returns a shader drawing vertex colors times the base
// texture times the Tint uniform. The TINT_STRENGTH define blends between
// no tint (0.0) and full tint (1.0).
func NewUnlitShader() *Shader {
	s := builtinShader("unlit", unlitKageSrc)
	s.Defines["TINT_STRENGTH"] = "1.0"
	return s
}

// NewPulseShader returns a transparent-queue shader that adds a pulsing
// Tint glow driven by the TIME binding. PULSE_SPEED sets the angular speed.
func NewPulseShader() *Shader {
	s := builtinShader("pulse", pulseKageSrc)
	s.Defines["PULSE_SPEED"] = "3.0"
	s.Uniforms["Time"] = UniformTime
	s.RenderQueue = QueueTransparent
	return s
}
