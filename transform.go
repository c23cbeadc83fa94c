package juniper

import (
	"fmt"
	"slices"
)

// TransformComponent holds an entity's local translation, rotation, and
// scale, its cached local and world matrices, and its place in the scene
// graph. Parent and children are stored as entity indices and resolved
// through the owning world.
//
// The setters mark the transform dirty. Code that writes the exported fields
// directly must call MarkDirty.
type TransformComponent struct {
	Translation Vec3
	Rotation    Quat
	Scale       Vec3

	local   Mat4
	world   Mat4
	dirty   bool
	updated bool

	owner    int32
	parent   int32
	children []int32
}

// NewTransformComponent returns an identity transform with no parent.
func NewTransformComponent() *TransformComponent {
	return &TransformComponent{
		Rotation: QuatIdentity,
		Scale:    Vec3One,
		local:    Mat4Identity,
		world:    Mat4Identity,
		dirty:    true,
		owner:    noIndex,
		parent:   noIndex,
	}
}

func (*TransformComponent) Kind() ComponentKind { return KindTransform }

// SetTranslation sets the local translation.
func (t *TransformComponent) SetTranslation(x, y, z float64) {
	t.Translation = Vec3{x, y, z}
	t.dirty = true
}

// AddTranslation offsets the local translation.
func (t *TransformComponent) AddTranslation(d Vec3) {
	t.Translation = t.Translation.Add(d)
	t.dirty = true
}

// SetRotation sets the local rotation.
func (t *TransformComponent) SetRotation(q Quat) {
	t.Rotation = q.Normalize()
	t.dirty = true
}

// SetRotationEuler sets the local rotation from X, Y, Z Euler angles in
// radians.
func (t *TransformComponent) SetRotationEuler(x, y, z float64) {
	t.Rotation = QuatFromEuler(x, y, z)
	t.dirty = true
}

// Rotate applies q on top of the current local rotation.
func (t *TransformComponent) Rotate(q Quat) {
	t.Rotation = q.Mul(t.Rotation).Normalize()
	t.dirty = true
}

// SetScale sets the local scale.
func (t *TransformComponent) SetScale(x, y, z float64) {
	t.Scale = Vec3{x, y, z}
	t.dirty = true
}

// LookAt rotates the transform so its -Z axis points from its local
// translation toward target.
func (t *TransformComponent) LookAt(target, up Vec3) {
	t.Rotation = LookAtRotation(t.Translation, target, up)
	t.dirty = true
}

// MarkDirty flags the transform for recomputation during the next
// TransformSystem pass.
func (t *TransformComponent) MarkDirty() { t.dirty = true }

// Dirty reports whether the transform awaits recomputation.
func (t *TransformComponent) Dirty() bool { return t.dirty }

// Updated reports whether the world matrix was recomputed in the most recent
// TransformSystem pass.
func (t *TransformComponent) Updated() bool { return t.updated }

// LocalMatrix returns the cached local matrix.
func (t *TransformComponent) LocalMatrix() Mat4 { return t.local }

// WorldMatrix returns the cached world matrix.
func (t *TransformComponent) WorldMatrix() Mat4 { return t.world }

// WorldPosition returns the translation of the world matrix.
func (t *TransformComponent) WorldPosition() Vec3 { return TranslationOf(t.world) }

// updateLocal recomputes the local matrix from translation, rotation, and
// scale.
func (t *TransformComponent) updateLocal() {
	t.local = ComposeTRS(t.Translation, t.Rotation, t.Scale)
}

// updateWorld recomputes the world matrix. A nil parent means root.
func (t *TransformComponent) updateWorld(parent *TransformComponent) {
	if parent == nil {
		t.world = t.local
		return
	}
	t.world = parent.world.Mul4(t.local)
}

// --- Scene graph ---

// Attach makes child a transform child of parent. Both entities need a
// transform component. Attaching to an entity's own descendant is rejected
// with ErrTransformCycle and leaves the graph unchanged. A nil parent
// detaches child.
func (w *World) Attach(parent, child *Entity) error {
	if child == nil {
		return ErrNilEntity
	}
	if parent == nil {
		return w.Detach(child)
	}
	pt, ct := parent.Transform(), child.Transform()
	if pt == nil || ct == nil {
		return fmt.Errorf("attach %q to %q: %w", child.Name, parent.Name, ErrMissingTransform)
	}
	if parent == child || w.isAncestor(child, parent) {
		return fmt.Errorf("attach %q to %q: %w", child.Name, parent.Name, ErrTransformCycle)
	}
	if ct.parent == parent.index {
		return nil
	}
	w.removeFromParent(child)
	pt.children = append(pt.children, child.index)
	ct.parent = parent.index
	ct.dirty = true
	if w.debug {
		w.debugCheckTreeDepth(child)
		w.debugCheckChildCount(parent)
	}
	return nil
}

// Detach makes child a root.
func (w *World) Detach(child *Entity) error {
	if child == nil {
		return ErrNilEntity
	}
	if child.Transform() == nil {
		return fmt.Errorf("detach %q: %w", child.Name, ErrMissingTransform)
	}
	w.removeFromParent(child)
	return nil
}

// isAncestor reports whether a is a transform ancestor of e.
func (w *World) isAncestor(a, e *Entity) bool {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if p == a {
			return true
		}
	}
	return false
}

func (w *World) removeFromParent(child *Entity) {
	ct := child.Transform()
	if ct == nil || ct.parent == noIndex {
		return
	}
	if p := w.entityAt(ct.parent); p != nil {
		if pt := p.Transform(); pt != nil {
			if i := slices.Index(pt.children, child.index); i >= 0 {
				pt.children = slices.Delete(pt.children, i, i+1)
			}
		}
	}
	ct.parent = noIndex
	ct.dirty = true
}

// unlinkTransform detaches e from its parent and turns its children into
// roots.
func (w *World) unlinkTransform(e *Entity) {
	t := e.Transform()
	if t == nil {
		return
	}
	w.removeFromParent(e)
	for _, idx := range t.children {
		if c := w.entityAt(idx); c != nil {
			if ct := c.Transform(); ct != nil {
				ct.parent = noIndex
				ct.dirty = true
			}
		}
	}
	t.children = nil
}

// --- TransformSystem ---

// TransformSystem recomputes world matrices for dirty transforms. Each pass
// first rebuilds the local matrix of every dirty transform, then walks the
// hierarchy depth-first from every root. A dirty node takes its parent's
// world matrix times its local matrix and marks its direct children dirty,
// so an ancestor change reaches the whole subtree while clean subtrees are
// left alone.
type TransformSystem struct {
	numUpdates int
}

// NewTransformSystem returns a transform system.
func NewTransformSystem() *TransformSystem { return &TransformSystem{} }

func (*TransformSystem) Name() string        { return "TransformSystem" }
func (*TransformSystem) Interests() KindMask { return MaskOf(KindTransform) }
func (*TransformSystem) Priority() int       { return PriorityTransform }

// NumUpdates returns how many world matrices the last pass recomputed.
func (s *TransformSystem) NumUpdates() int { return s.numUpdates }

func (s *TransformSystem) Process(entities []*Entity, _ *FrameContext) {
	s.numUpdates = 0
	for _, e := range entities {
		t := e.Transform()
		t.updated = false
		if t.dirty {
			t.updateLocal()
		}
	}
	for _, e := range entities {
		if isTransformRoot(e) {
			s.traverse(e, nil)
		}
	}
}

// isTransformRoot reports whether e has no parent in the world.
func isTransformRoot(e *Entity) bool {
	t := e.Transform()
	if t.parent == noIndex {
		return true
	}
	p := e.world.entityAt(t.parent)
	return p == nil || !p.inWorld
}

func (s *TransformSystem) traverse(e *Entity, parent *TransformComponent) {
	t := e.Transform()
	if t.dirty {
		t.updateWorld(parent)
		for _, idx := range t.children {
			if c := e.world.entityAt(idx); c != nil {
				if ct := c.Transform(); ct != nil {
					ct.dirty = true
				}
			}
		}
		t.dirty = false
		t.updated = true
		s.numUpdates++
	}
	for _, idx := range t.children {
		c := e.world.entityAt(idx)
		if c == nil || !c.inWorld || c.Transform() == nil {
			continue
		}
		s.traverse(c, t)
	}
}
