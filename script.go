package juniper

import "fmt"

// Script is per-entity user code run once per frame by ScriptSystem.
type Script interface {
	Update(e *Entity, ctx *FrameContext)
}

// ScriptSetup is implemented by scripts that initialise on their first frame.
type ScriptSetup interface {
	Setup(e *Entity, ctx *FrameContext)
}

// ScriptCleanup is implemented by scripts that release state when their
// entity leaves the world or loses its script component.
type ScriptCleanup interface {
	Cleanup(e *Entity)
}

// ScriptFunc adapts a function to Script.
type ScriptFunc func(e *Entity, ctx *FrameContext)

func (f ScriptFunc) Update(e *Entity, ctx *FrameContext) { f(e, ctx) }

// ScriptComponent holds the scripts attached to an entity, run in order.
type ScriptComponent struct {
	Scripts []Script

	started []bool
}

// NewScriptComponent returns a component running scripts.
func NewScriptComponent(scripts ...Script) *ScriptComponent {
	return &ScriptComponent{Scripts: scripts}
}

func (*ScriptComponent) Kind() ComponentKind { return KindScript }

// Add appends s.
func (c *ScriptComponent) Add(s Script) { c.Scripts = append(c.Scripts, s) }

// ScriptSystem runs every script of every active entity. A script that
// panics is reported as an ErrorEvent and the frame continues with the next
// script.
type ScriptSystem struct {
	ctx *FrameContext
}

// NewScriptSystem returns a script system.
func NewScriptSystem() *ScriptSystem { return &ScriptSystem{} }

func (*ScriptSystem) Name() string        { return "ScriptSystem" }
func (*ScriptSystem) Interests() KindMask { return MaskOf(KindScript) }
func (*ScriptSystem) Priority() int       { return PriorityScript }

func (s *ScriptSystem) Process(entities []*Entity, ctx *FrameContext) {
	s.ctx = ctx
	for _, e := range entities {
		sc := e.Script()
		for len(sc.started) < len(sc.Scripts) {
			sc.started = append(sc.started, false)
		}
		for i, script := range sc.Scripts {
			if script == nil {
				continue
			}
			if !sc.started[i] {
				sc.started[i] = true
				if su, ok := script.(ScriptSetup); ok {
					s.run(e, func() { su.Setup(e, ctx) })
				}
			}
			s.run(e, func() { script.Update(e, ctx) })
		}
	}
}

func (s *ScriptSystem) Deleted(e *Entity) {
	sc := e.Script()
	if sc == nil {
		return
	}
	s.cleanup(e, sc)
}

func (s *ScriptSystem) cleanup(e *Entity, sc *ScriptComponent) {
	for i, script := range sc.Scripts {
		if i >= len(sc.started) || !sc.started[i] {
			continue
		}
		sc.started[i] = false
		if cu, ok := script.(ScriptCleanup); ok {
			s.run(e, func() { cu.Cleanup(e) })
		}
	}
}

func (s *ScriptSystem) run(e *Entity, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			s.ctx.reportError("script", e, recoveredError(fmt.Sprintf("script on %q", e.Name), rec))
		}
	}()
	fn()
}
