package juniper

import (
	"errors"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

var (
	// ErrUnregisteredKind is returned when a component of a kind the world
	// has not registered is attached.
	ErrUnregisteredKind = errors.New("juniper: component kind not registered")
	// ErrTransformCycle is returned when a reparent would make an entity its
	// own ancestor.
	ErrTransformCycle = errors.New("juniper: transform hierarchy cycle")
	// ErrNilEntity is returned by operations given a nil entity.
	ErrNilEntity = errors.New("juniper: nil entity")
	// ErrMissingTransform is returned by hierarchy operations on entities
	// without a transform component.
	ErrMissingTransform = errors.New("juniper: entity has no transform")
	// ErrNotReady is returned by a Device when a program or resource is not
	// yet available. The draw is skipped and retried next frame.
	ErrNotReady = errors.New("juniper: device resource not ready")
	// ErrNoShader marks a material pass that has no shader to draw with.
	ErrNoShader = errors.New("juniper: material has no shader")
	// ErrSnapshotUnsupported is passed to snapshot callbacks when the device
	// cannot read back the screen.
	ErrSnapshotUnsupported = errors.New("juniper: device cannot take snapshots")
)

// Render queue keys. Lower keys draw first.
const (
	QueueBackground  = 0
	QueueOpaque      = 1000
	QueueTransparent = 2000
	QueueOverlay     = 3000
)

// ComponentKind identifies one of the built-in component types.
type ComponentKind uint8

const (
	KindTransform    ComponentKind = iota // hierarchy and world matrix
	KindMeshData                          // vertex and index buffers
	KindMeshRenderer                      // materials and world bound
	KindCamera                            // view and projection
	KindLight                             // light source
	KindScript                            // per-frame user callbacks
	kindCount
)

var kindNames = [kindCount]string{
	"transform", "meshData", "meshRenderer", "camera", "light", "script",
}

func (k ComponentKind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// KindMask is a set of component kinds.
type KindMask uint32

// MaskOf returns the set containing the given kinds.
func MaskOf(kinds ...ComponentKind) KindMask {
	var m KindMask
	for _, k := range kinds {
		m |= 1 << k
	}
	return m
}

// Has reports whether k is in m.
func (m KindMask) Has(k ComponentKind) bool { return m&(1<<k) != 0 }

// Contains reports whether every kind in o is also in m.
func (m KindMask) Contains(o KindMask) bool { return m&o == o }

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorBlack is opaque black.
var ColorBlack = Color{0, 0, 0, 1}

// toRGBA converts to a premultiplied color.RGBA.
func (c Color) toRGBA() color.RGBA {
	clamp := func(v float64) uint8 {
		if v <= 0 {
			return 0
		}
		if v >= 1 {
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	return color.RGBA{
		R: clamp(c.R * c.A),
		G: clamp(c.G * c.A),
		B: clamp(c.B * c.A),
		A: clamp(c.A),
	}
}

// CullFace selects which triangle faces are discarded.
type CullFace uint8

const (
	CullBack CullFace = iota
	CullFront
	CullFrontAndBack
)

// Flip returns the opposite face. CullFrontAndBack is unchanged.
func (f CullFace) Flip() CullFace {
	switch f {
	case CullBack:
		return CullFront
	case CullFront:
		return CullBack
	default:
		return f
	}
}

// FrontFace selects the winding order of front-facing triangles.
type FrontFace uint8

const (
	FrontCCW FrontFace = iota
	FrontCW
)

// BlendMode selects a compositing operation.
type BlendMode uint8

const (
	BlendNone        BlendMode = iota // opaque copy
	BlendAlpha                        // source-over
	BlendAdditive                     // lighter
	BlendSubtractive                  // destination minus source
	BlendMultiply                     // source * destination
	BlendCustom                       // Material.CustomBlend
)

// EbitenBlend returns the ebiten.Blend value for this mode. custom is used
// only by BlendCustom.
func (b BlendMode) EbitenBlend(custom ebiten.Blend) ebiten.Blend {
	switch b {
	case BlendNone:
		return ebiten.BlendCopy
	case BlendAlpha:
		return ebiten.BlendSourceOver
	case BlendAdditive:
		return ebiten.BlendLighter
	case BlendSubtractive:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOne,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
			BlendOperationRGB:           ebiten.BlendOperationReverseSubtract,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendMultiply:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
			BlendFactorSourceAlpha:      ebiten.BlendFactorDestinationAlpha,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendCustom:
		return custom
	default:
		return ebiten.BlendSourceOver
	}
}

// CullMode controls whether the partitioner may cull an entity.
type CullMode uint8

const (
	CullDynamic CullMode = iota // culled against the camera frustum
	CullNever                   // always considered visible
)
