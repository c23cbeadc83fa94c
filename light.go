package juniper

import "github.com/go-gl/mathgl/mgl64"

// LightType selects a light's shape.
type LightType uint8

const (
	LightDirectional LightType = iota
	LightPoint
	LightSpot
)

// Light is a light source. Position and Direction are refreshed from the
// owning entity's world transform each frame.
type Light struct {
	Type      LightType
	Color     Color
	Intensity float64
	// Range is the falloff distance for point and spot lights.
	Range float64
	// Angle is the spot cone angle in radians.
	Angle float64

	Position  Vec3
	Direction Vec3

	Enabled bool
}

// NewLight returns an enabled white light of the given type.
func NewLight(t LightType) *Light {
	return &Light{
		Type:      t,
		Color:     Color{1, 1, 1, 1},
		Intensity: 1,
		Range:     100,
		Angle:     0.8,
		Direction: Vec3{0, 0, -1},
		Enabled:   true,
	}
}

// LightComponent attaches a light to an entity.
type LightComponent struct {
	Light *Light
}

// NewLightComponent wraps l.
func NewLightComponent(l *Light) *LightComponent { return &LightComponent{Light: l} }

func (*LightComponent) Kind() ComponentKind { return KindLight }

// LightingSystem refreshes light positions and collects the enabled lights
// into the frame context.
type LightingSystem struct {
	lights []*Light
}

// NewLightingSystem returns a lighting system.
func NewLightingSystem() *LightingSystem { return &LightingSystem{} }

func (*LightingSystem) Name() string        { return "LightingSystem" }
func (*LightingSystem) Interests() KindMask { return MaskOf(KindTransform, KindLight) }
func (*LightingSystem) Priority() int       { return PriorityLighting }

// Lights returns the lights collected in the last pass.
func (s *LightingSystem) Lights() []*Light { return s.lights }

func (s *LightingSystem) Process(entities []*Entity, ctx *FrameContext) {
	clear(s.lights)
	s.lights = s.lights[:0]
	for _, e := range entities {
		l := e.Light().Light
		if l == nil || !l.Enabled {
			continue
		}
		w := e.Transform().WorldMatrix()
		l.Position = TranslationOf(w)
		l.Direction = normalize(mgl64.TransformNormal(Vec3{0, 0, -1}, w))
		s.lights = append(s.lights, l)
	}
	if ctx != nil {
		ctx.Lights = s.lights
	}
}
