package juniper

import "go.uber.org/zap"

// System processes the active entities owning every kind in its interest set.
type System interface {
	Name() string
	Interests() KindMask
	Process(entities []*Entity, ctx *FrameContext)
}

// Inserter is implemented by systems that want to know when an entity
// becomes active in them.
type Inserter interface {
	Inserted(e *Entity)
}

// Deleter is implemented by systems that want to know when an entity stops
// being active in them.
type Deleter interface {
	Deleted(e *Entity)
}

// ComponentObserver is implemented by systems that want per-kind
// notifications for kinds in their interest set.
type ComponentObserver interface {
	ComponentAdded(e *Entity, k ComponentKind)
	ComponentRemoved(e *Entity, k ComponentKind)
}

// RenderPass is implemented by systems that draw. World.Render calls each in
// priority order after Process.
type RenderPass interface {
	Render(r *Renderer, ctx *FrameContext)
}

// Prioritized systems run in ascending Priority order. Systems that do not
// implement it have priority 0.
type Prioritized interface {
	Priority() int
}

// Priorities of the built-in systems. User systems default to 0 and so run
// after transforms, cameras, and lights are current.
const (
	PriorityScript    = -300
	PriorityTransform = -200
	PriorityCamera    = -100
	PriorityLighting  = -90
	PriorityRender    = 1000
)

// FrameContext carries per-frame state to systems and the renderer.
type FrameContext struct {
	// Frame counts processed frames, starting at 1.
	Frame uint64
	// Time is the accumulated world time in seconds.
	Time float64
	// TPF is the smoothed time per frame in seconds.
	TPF float64

	// Camera is the main camera, selected by CameraSystem.
	Camera *Camera
	// Lights holds the active lights collected by LightingSystem.
	Lights []*Light

	Bus    *EventBus
	Logger *zap.Logger
}

// reportError logs err and publishes it as an ErrorEvent.
func (ctx *FrameContext) reportError(source string, e *Entity, err error) {
	if ctx == nil {
		return
	}
	if ctx.Logger != nil {
		fields := []zap.Field{zap.String("source", source), zap.Error(err)}
		if e != nil {
			fields = append(fields, zap.Uint64("entity", e.id), zap.String("name", e.Name))
		}
		ctx.Logger.Error("recovered error", fields...)
	}
	Publish(ctx.Bus, ErrorEvent{Source: source, Entity: e, Err: err})
}

func systemPriority(s System) int {
	if p, ok := s.(Prioritized); ok {
		return p.Priority()
	}
	return 0
}
