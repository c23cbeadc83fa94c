package juniper

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type commandKind uint8

const (
	cmdSet commandKind = iota
	cmdClear
	cmdAdd
	cmdRemove
)

// command is a structural change deferred to the next sync point.
type command struct {
	kind      commandKind
	entity    *Entity
	component Component
	ck        ComponentKind
	recursive bool
}

// systemEntry tracks a system and the entities currently active in it.
type systemEntry struct {
	sys      System
	mask     KindMask
	priority int
	entities []*Entity
}

// World is the entity/component registry. Structural changes to entities in
// the world are queued and applied in order at the start of Process, so
// systems never observe a half-applied frame.
//
// World is single-threaded: all methods must be called from the frame loop.
type World struct {
	registered KindMask

	table  []*Entity // every created entity, by index
	active []*Entity // entities in the world, in insertion order
	byID   map[uint64]*Entity
	byRef  map[uuid.UUID]*Entity
	nextID uint64

	systems  []*systemEntry
	commands []command

	bus      *EventBus
	log      *zap.Logger
	safeMode bool
	debug    bool
}

// WorldOption configures a World.
type WorldOption func(*World)

// WithLogger sets the logger used for rejected operations and recovered
// errors. The default discards output.
func WithLogger(l *zap.Logger) WorldOption {
	return func(w *World) {
		if l != nil {
			w.log = l
		}
	}
}

// WithEventBus sets the bus that receives entity and error events.
func WithEventBus(bus *EventBus) WorldOption {
	return func(w *World) { w.bus = bus }
}

// WithSafeMode makes Process recover panics raised by systems, reporting
// them as ErrorEvents instead of unwinding the frame.
func WithSafeMode(on bool) WorldOption {
	return func(w *World) { w.safeMode = on }
}

// WithDebug enables hierarchy sanity warnings on Attach.
func WithDebug(on bool) WorldOption {
	return func(w *World) { w.debug = on }
}

// NewWorld creates an empty world with no registered kinds.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		byID:  make(map[uint64]*Entity),
		byRef: make(map[uuid.UUID]*Entity),
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Logger returns the world's logger.
func (w *World) Logger() *zap.Logger { return w.log }

// Bus returns the world's event bus, which may be nil.
func (w *World) Bus() *EventBus { return w.bus }

// RegisterComponent makes kinds attachable to entities of this world.
func (w *World) RegisterComponent(kinds ...ComponentKind) {
	for _, k := range kinds {
		if k < kindCount {
			w.registered |= 1 << k
		}
	}
}

// Registered reports whether k has been registered.
func (w *World) Registered(k ComponentKind) bool { return w.registered.Has(k) }

// CreateEntity returns a fresh entity with no components. It is not in the
// world until AddToWorld takes effect.
func (w *World) CreateEntity(name string) *Entity {
	w.nextID++
	e := &Entity{
		Name:  name,
		id:    w.nextID,
		index: int32(len(w.table)),
		ref:   uuid.New(),
		world: w,
	}
	w.table = append(w.table, e)
	w.byID[e.id] = e
	w.byRef[e.ref] = e
	return e
}

// AddSystem registers s. Systems run in ascending priority; ties keep
// registration order. Entities already in the world that match s become
// active in it immediately.
func (w *World) AddSystem(s System) {
	se := &systemEntry{sys: s, mask: s.Interests(), priority: systemPriority(s)}
	pos := len(w.systems)
	for i, other := range w.systems {
		if se.priority < other.priority {
			pos = i
			break
		}
	}
	w.systems = slices.Insert(w.systems, pos, se)

	for _, e := range w.active {
		if e.mask.Contains(se.mask) {
			w.insertInto(se, e)
		}
	}
}

// Systems returns the registered systems in run order.
func (w *World) Systems() []System {
	out := make([]System, len(w.systems))
	for i, se := range w.systems {
		out[i] = se.sys
	}
	return out
}

// SetComponent attaches c to e, replacing any component of the same kind.
// For entities in the world the change is applied at the next sync point.
func (w *World) SetComponent(e *Entity, c Component) error {
	if e == nil {
		return ErrNilEntity
	}
	if c == nil {
		return fmt.Errorf("set component on %q: nil component", e.Name)
	}
	k := c.Kind()
	if !w.registered.Has(k) {
		w.log.Warn("component kind not registered",
			zap.String("kind", k.String()),
			zap.Uint64("entity", e.id),
			zap.String("name", e.Name))
		return fmt.Errorf("set %s on %q: %w", k, e.Name, ErrUnregisteredKind)
	}
	if e.inWorld {
		w.commands = append(w.commands, command{kind: cmdSet, entity: e, component: c, ck: k})
		return nil
	}
	w.applySet(e, c)
	return nil
}

// ClearComponent detaches e's component of kind k. For entities in the world
// the change is applied at the next sync point.
func (w *World) ClearComponent(e *Entity, k ComponentKind) error {
	if e == nil {
		return ErrNilEntity
	}
	if !w.registered.Has(k) {
		w.log.Warn("component kind not registered",
			zap.String("kind", k.String()),
			zap.Uint64("entity", e.id))
		return fmt.Errorf("clear %s on %q: %w", k, e.Name, ErrUnregisteredKind)
	}
	if e.inWorld {
		w.commands = append(w.commands, command{kind: cmdClear, entity: e, ck: k})
		return nil
	}
	w.applyClear(e, k)
	return nil
}

// AddToWorld queues e for activation at the next sync point.
func (w *World) AddToWorld(e *Entity) {
	if e == nil {
		return
	}
	w.commands = append(w.commands, command{kind: cmdAdd, entity: e})
}

// RemoveFromWorld queues e for removal at the next sync point. Its transform
// is detached from its parent and its children become roots.
func (w *World) RemoveFromWorld(e *Entity) {
	if e == nil {
		return
	}
	w.commands = append(w.commands, command{kind: cmdRemove, entity: e})
}

// RemoveTreeFromWorld queues e and every transform descendant for removal.
func (w *World) RemoveTreeFromWorld(e *Entity) {
	if e == nil {
		return
	}
	w.commands = append(w.commands, command{kind: cmdRemove, entity: e, recursive: true})
}

// Pending returns the number of queued structural changes.
func (w *World) Pending() int { return len(w.commands) }

// Sync applies every queued structural change in submission order. Commands
// queued by notification handlers during Sync are applied in the same call.
func (w *World) Sync() {
	for i := 0; i < len(w.commands); i++ {
		cmd := w.commands[i]
		switch cmd.kind {
		case cmdSet:
			w.applySet(cmd.entity, cmd.component)
		case cmdClear:
			w.applyClear(cmd.entity, cmd.ck)
		case cmdAdd:
			w.applyAdd(cmd.entity)
		case cmdRemove:
			if cmd.recursive {
				w.applyRemoveTree(cmd.entity)
			} else {
				w.applyRemove(cmd.entity)
			}
		}
	}
	clear(w.commands)
	w.commands = w.commands[:0]
}

// Process runs the sync point and then every system's Process in order.
func (w *World) Process(ctx *FrameContext) {
	w.Sync()
	for _, se := range w.systems {
		w.runSystem(se, ctx)
	}
}

// Render calls every system implementing RenderPass, in order.
func (w *World) Render(r *Renderer, ctx *FrameContext) {
	for _, se := range w.systems {
		rp, ok := se.sys.(RenderPass)
		if !ok {
			continue
		}
		if !w.safeMode {
			rp.Render(r, ctx)
			continue
		}
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					ctx.reportError("system", nil, recoveredError(se.sys.Name(), rec))
				}
			}()
			rp.Render(r, ctx)
		}()
	}
}

func (w *World) runSystem(se *systemEntry, ctx *FrameContext) {
	if !w.safeMode {
		se.sys.Process(se.entities, ctx)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			ctx.reportError("system", nil, recoveredError(se.sys.Name(), rec))
		}
	}()
	se.sys.Process(se.entities, ctx)
}

// recoveredError converts a recovered panic value into an error.
func recoveredError(where string, rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("%s: %w", where, err)
	}
	return fmt.Errorf("%s: panic: %v", where, rec)
}

// --- Lookups ---

// EntityByID returns the entity with the given id, or nil.
func (w *World) EntityByID(id uint64) *Entity { return w.byID[id] }

// EntityByIndex returns the entity at the given dense index, or nil.
func (w *World) EntityByIndex(i int) *Entity {
	if i < 0 || i >= len(w.table) {
		return nil
	}
	return w.table[i]
}

// EntityByRef returns the entity with the given reference id, or nil.
func (w *World) EntityByRef(ref uuid.UUID) *Entity { return w.byRef[ref] }

// EntityByName returns the first active entity named name, or nil.
func (w *World) EntityByName(name string) *Entity {
	for _, e := range w.active {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Entities returns the active entities in insertion order. The slice is
// owned by the world and valid until the next sync point.
func (w *World) Entities() []*Entity { return w.active }

// TopEntities returns the active entities with no transform parent.
func (w *World) TopEntities() []*Entity {
	var out []*Entity
	for _, e := range w.active {
		if t := e.Transform(); t == nil || t.parent == noIndex {
			out = append(out, e)
		}
	}
	return out
}

// Size returns the number of active entities.
func (w *World) Size() int { return len(w.active) }

func (w *World) entityAt(i int32) *Entity {
	if i < 0 || int(i) >= len(w.table) {
		return nil
	}
	return w.table[i]
}

// --- Applying commands ---

func (w *World) applySet(e *Entity, c Component) {
	k := c.Kind()
	old := e.components[k]
	oldMask := e.mask

	if t, ok := c.(*TransformComponent); ok {
		t.owner = e.index
		if prev, ok := old.(*TransformComponent); ok && prev != t {
			t.parent = prev.parent
			t.children = prev.children
			prev.parent, prev.children = noIndex, nil
		}
		t.dirty = true
	}

	e.components[k] = c
	e.mask |= 1 << k
	if !e.inWorld {
		return
	}
	w.notifyMaskChange(e, oldMask, e.mask)
	for _, se := range w.systems {
		if !se.mask.Has(k) || !e.mask.Contains(se.mask) {
			continue
		}
		if obs, ok := se.sys.(ComponentObserver); ok {
			obs.ComponentAdded(e, k)
		}
	}
}

func (w *World) applyClear(e *Entity, k ComponentKind) {
	if !e.mask.Has(k) {
		return
	}
	if k == KindTransform {
		w.unlinkTransform(e)
	}
	oldMask := e.mask
	newMask := oldMask &^ (1 << k)
	if e.inWorld {
		// Systems see the component one last time before it goes.
		for _, se := range w.systems {
			if !se.mask.Has(k) || !oldMask.Contains(se.mask) {
				continue
			}
			if obs, ok := se.sys.(ComponentObserver); ok {
				obs.ComponentRemoved(e, k)
			}
		}
		w.notifyMaskChange(e, oldMask, newMask)
	}
	e.components[k] = nil
	e.mask = newMask
}

func (w *World) applyAdd(e *Entity) {
	if e.inWorld {
		return
	}
	e.inWorld = true
	w.active = append(w.active, e)
	for _, se := range w.systems {
		if e.mask.Contains(se.mask) {
			w.insertInto(se, e)
		}
	}
	if t := e.Transform(); t != nil {
		t.dirty = true
	}
	Publish(w.bus, EntityAddedEvent{Entity: e})
}

func (w *World) applyRemove(e *Entity) {
	if !e.inWorld {
		return
	}
	w.unlinkTransform(e)
	e.inWorld = false
	if i := slices.Index(w.active, e); i >= 0 {
		w.active = slices.Delete(w.active, i, i+1)
	}
	for _, se := range w.systems {
		if e.mask.Contains(se.mask) {
			w.deleteFrom(se, e)
		}
	}
	Publish(w.bus, EntityRemovedEvent{Entity: e})
}

func (w *World) applyRemoveTree(e *Entity) {
	// Children first so each removal sees an intact parent link.
	if t := e.Transform(); t != nil {
		for _, idx := range slices.Clone(t.children) {
			if c := w.entityAt(idx); c != nil {
				w.applyRemoveTree(c)
			}
		}
	}
	w.applyRemove(e)
}

// notifyMaskChange moves e in or out of each system whose match status
// differs between oldMask and newMask.
func (w *World) notifyMaskChange(e *Entity, oldMask, newMask KindMask) {
	for _, se := range w.systems {
		was := oldMask.Contains(se.mask)
		now := newMask.Contains(se.mask)
		switch {
		case !was && now:
			w.insertInto(se, e)
		case was && !now:
			w.deleteFrom(se, e)
		}
	}
}

func (w *World) insertInto(se *systemEntry, e *Entity) {
	se.entities = append(se.entities, e)
	if ins, ok := se.sys.(Inserter); ok {
		ins.Inserted(e)
	}
}

func (w *World) deleteFrom(se *systemEntry, e *Entity) {
	i := slices.Index(se.entities, e)
	if i < 0 {
		return
	}
	se.entities = slices.Delete(se.entities, i, i+1)
	if del, ok := se.sys.(Deleter); ok {
		del.Deleted(e)
	}
}
