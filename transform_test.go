package juniper

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// newTransformWorld returns a world with every kind registered and only a
// TransformSystem added.
func newTransformWorld(opts ...WorldOption) (*World, *TransformSystem) {
	w := NewWorld(opts...)
	w.RegisterComponent(KindTransform, KindMeshData, KindMeshRenderer, KindCamera, KindLight, KindScript)
	ts := NewTransformSystem()
	w.AddSystem(ts)
	return w, ts
}

// spawn creates an entity with a transform at pos and queues it for the
// world.
func spawn(t *testing.T, w *World, name string, pos Vec3) *Entity {
	t.Helper()
	e := w.CreateEntity(name)
	tc := NewTransformComponent()
	tc.SetTranslation(pos[0], pos[1], pos[2])
	if err := w.SetComponent(e, tc); err != nil {
		t.Fatalf("SetComponent: %v", err)
	}
	w.AddToWorld(e)
	return e
}

func mustAttach(t *testing.T, w *World, parent, child *Entity) {
	t.Helper()
	if err := w.Attach(parent, child); err != nil {
		t.Fatalf("Attach(%s, %s): %v", parent.Name, child.Name, err)
	}
}

func TestTransformPropagatesThroughChain(t *testing.T) {
	w, _ := newTransformWorld()
	a := spawn(t, w, "a", Vec3{})
	b := spawn(t, w, "b", Vec3{0, 1, 0})
	c := spawn(t, w, "c", Vec3{0, 0, 1})
	mustAttach(t, w, a, b)
	mustAttach(t, w, b, c)
	w.Process(&FrameContext{})

	before := c.Transform().WorldPosition()
	assertVec(t, "c before", before, Vec3{0, 1, 1})
	if b.Transform().Dirty() {
		t.Fatal("b should be clean after the first pass")
	}

	a.Transform().AddTranslation(Vec3{1, 0, 0})
	w.Process(&FrameContext{})

	after := c.Transform().WorldPosition()
	assertVec(t, "c delta", after.Sub(before), Vec3{1, 0, 0})
	if !b.Transform().Updated() {
		t.Error("b should have been recomputed in the pass")
	}
	if b.Transform().Dirty() {
		t.Error("b should be clean after the pass")
	}
}

func TestTransformWorldIsParentTimesLocal(t *testing.T) {
	w, _ := newTransformWorld()
	root := spawn(t, w, "root", Vec3{3, 0, 0})
	root.Transform().SetRotation(QuatFromAxisAngle(Vec3{0, 1, 0}, 0.7))
	root.Transform().SetScale(2, 2, 2)

	prev := root
	var all []*Entity
	for i := range 5 {
		e := spawn(t, w, fmt.Sprintf("n%d", i), Vec3{1, float64(i), -1})
		e.Transform().SetRotationEuler(0.1*float64(i), 0.2, -0.3)
		e.Transform().SetScale(1, 1.5, 0.5)
		mustAttach(t, w, prev, e)
		all = append(all, e)
		prev = e
	}
	w.Process(&FrameContext{})

	for _, e := range all {
		p := e.Parent()
		if p == nil {
			t.Fatalf("%s has no parent", e.Name)
		}
		want := p.Transform().WorldMatrix().Mul4(e.Transform().LocalMatrix())
		assertMat(t, e.Name, e.Transform().WorldMatrix(), want)
	}
	assertMat(t, "root", root.Transform().WorldMatrix(), root.Transform().LocalMatrix())
}

func TestTransformSkipsUnchangedSubtrees(t *testing.T) {
	w, ts := newTransformWorld()
	left := spawn(t, w, "left", Vec3{-1, 0, 0})
	right := spawn(t, w, "right", Vec3{1, 0, 0})
	for i := range 3 {
		mustAttach(t, w, left, spawn(t, w, fmt.Sprintf("l%d", i), Vec3{0, 1, 0}))
		mustAttach(t, w, right, spawn(t, w, fmt.Sprintf("r%d", i), Vec3{0, 1, 0}))
	}
	w.Process(&FrameContext{})
	if got := ts.NumUpdates(); got != 8 {
		t.Fatalf("first pass updates = %d, want 8", got)
	}

	snapshot := make(map[*Entity]Mat4)
	for _, e := range w.Entities() {
		snapshot[e] = e.Transform().WorldMatrix()
	}

	w.Process(&FrameContext{})
	if got := ts.NumUpdates(); got != 0 {
		t.Errorf("idle pass updates = %d, want 0", got)
	}
	for e, m := range snapshot {
		if e.Transform().WorldMatrix() != m {
			t.Errorf("%s world matrix changed without a local change", e.Name)
		}
	}

	right.Transform().SetScale(2, 2, 2)
	w.Process(&FrameContext{})
	if got := ts.NumUpdates(); got != 4 {
		t.Errorf("updates after changing right = %d, want 4", got)
	}
	for _, c := range left.Children() {
		if c.Transform().Updated() {
			t.Errorf("%s under the unchanged root was recomputed", c.Name)
		}
	}
}

func TestTransformMarkDirtyAfterFieldWrite(t *testing.T) {
	w, _ := newTransformWorld()
	e := spawn(t, w, "e", Vec3{})
	w.Process(&FrameContext{})

	tc := e.Transform()
	tc.Translation[0] = 5
	w.Process(&FrameContext{})
	assertNear(t, "without MarkDirty", tc.WorldPosition()[0], 0)

	tc.MarkDirty()
	w.Process(&FrameContext{})
	assertNear(t, "with MarkDirty", tc.WorldPosition()[0], 5)
}

func TestAttachRejectsCycle(t *testing.T) {
	w, _ := newTransformWorld()
	a := spawn(t, w, "a", Vec3{})
	b := spawn(t, w, "b", Vec3{})
	c := spawn(t, w, "c", Vec3{})
	mustAttach(t, w, a, b)
	mustAttach(t, w, b, c)

	if err := w.Attach(c, a); !errors.Is(err, ErrTransformCycle) {
		t.Errorf("Attach(c, a) err = %v, want ErrTransformCycle", err)
	}
	if err := w.Attach(a, a); !errors.Is(err, ErrTransformCycle) {
		t.Errorf("Attach(a, a) err = %v, want ErrTransformCycle", err)
	}
	if a.Parent() != nil {
		t.Error("rejected attach changed a's parent")
	}
	if c.Parent() != b {
		t.Error("rejected attach changed c's parent")
	}
}

func TestAttachRequiresTransform(t *testing.T) {
	w, _ := newTransformWorld()
	a := spawn(t, w, "a", Vec3{})
	bare := w.CreateEntity("bare")
	if err := w.Attach(a, bare); !errors.Is(err, ErrMissingTransform) {
		t.Errorf("err = %v, want ErrMissingTransform", err)
	}
	if err := w.Attach(a, nil); !errors.Is(err, ErrNilEntity) {
		t.Errorf("err = %v, want ErrNilEntity", err)
	}
}

func TestReparentMovesChild(t *testing.T) {
	w, _ := newTransformWorld()
	a := spawn(t, w, "a", Vec3{10, 0, 0})
	b := spawn(t, w, "b", Vec3{-10, 0, 0})
	c := spawn(t, w, "c", Vec3{0, 1, 0})
	mustAttach(t, w, a, c)
	w.Process(&FrameContext{})
	assertVec(t, "under a", c.Transform().WorldPosition(), Vec3{10, 1, 0})

	mustAttach(t, w, b, c)
	if len(a.Children()) != 0 {
		t.Errorf("a still has %d children", len(a.Children()))
	}
	w.Process(&FrameContext{})
	assertVec(t, "under b", c.Transform().WorldPosition(), Vec3{-10, 1, 0})
}

func TestDetachMakesRoot(t *testing.T) {
	w, _ := newTransformWorld()
	a := spawn(t, w, "a", Vec3{10, 0, 0})
	c := spawn(t, w, "c", Vec3{0, 1, 0})
	mustAttach(t, w, a, c)
	w.Process(&FrameContext{})

	if err := w.Detach(c); err != nil {
		t.Fatal(err)
	}
	w.Process(&FrameContext{})
	if c.Parent() != nil {
		t.Error("c still has a parent")
	}
	assertVec(t, "detached", c.Transform().WorldPosition(), Vec3{0, 1, 0})
}

func TestRemoveFromWorldOrphansChildren(t *testing.T) {
	w, _ := newTransformWorld()
	a := spawn(t, w, "a", Vec3{10, 0, 0})
	c := spawn(t, w, "c", Vec3{0, 1, 0})
	mustAttach(t, w, a, c)
	w.Process(&FrameContext{})

	w.RemoveFromWorld(a)
	w.Process(&FrameContext{})
	if c.Parent() != nil {
		t.Error("child of removed entity still has a parent")
	}
	if !c.InWorld() {
		t.Error("child should stay in the world")
	}
	assertVec(t, "orphan", c.Transform().WorldPosition(), Vec3{0, 1, 0})
}

func TestReplacingTransformKeepsLinks(t *testing.T) {
	w, _ := newTransformWorld()
	a := spawn(t, w, "a", Vec3{2, 0, 0})
	b := spawn(t, w, "b", Vec3{})
	c := spawn(t, w, "c", Vec3{})
	mustAttach(t, w, a, b)
	mustAttach(t, w, b, c)
	w.Process(&FrameContext{})

	repl := NewTransformComponent()
	repl.SetTranslation(0, 3, 0)
	if err := w.SetComponent(b, repl); err != nil {
		t.Fatal(err)
	}
	w.Process(&FrameContext{})

	if b.Parent() != a {
		t.Error("replacement lost the parent link")
	}
	if len(b.Children()) != 1 || b.Children()[0] != c {
		t.Error("replacement lost the child links")
	}
	assertVec(t, "c", c.Transform().WorldPosition(), Vec3{2, 3, 0})
}

func TestLookAtFacesTarget(t *testing.T) {
	tc := NewTransformComponent()
	tc.SetTranslation(0, 0, 5)
	tc.LookAt(Vec3{}, Vec3{0, 1, 0})
	tc.updateLocal()
	tc.updateWorld(nil)
	fwd := mgl64.TransformNormal(Vec3{0, 0, -1}, tc.WorldMatrix())
	assertVec(t, "forward", fwd, Vec3{0, 0, -1})
}

func TestRotateComposes(t *testing.T) {
	tc := NewTransformComponent()
	tc.Rotate(QuatFromAxisAngle(Vec3{0, 1, 0}, math.Pi/4))
	tc.Rotate(QuatFromAxisAngle(Vec3{0, 1, 0}, math.Pi/4))
	assertVec(t, "rotated", tc.Rotation.Rotate(Vec3{1, 0, 0}), Vec3{0, 0, -1})
}

func TestDebugTreeDepthWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	w, _ := newTransformWorld(WithDebug(true), WithLogger(zap.New(core)))

	prev := spawn(t, w, "root", Vec3{})
	for i := range debugMaxTreeDepth + 5 {
		e := spawn(t, w, fmt.Sprintf("depth_%d", i), Vec3{})
		mustAttach(t, w, prev, e)
		prev = e
	}
	if logs.FilterMessage("hierarchy too deep").Len() == 0 {
		t.Error("expected a hierarchy depth warning")
	}
}

func TestDebugChildCountWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	w, _ := newTransformWorld(WithDebug(true), WithLogger(zap.New(core)))

	parent := spawn(t, w, "many_children", Vec3{})
	for i := range debugMaxChildCount + 1 {
		mustAttach(t, w, parent, spawn(t, w, fmt.Sprintf("c_%d", i), Vec3{}))
	}
	if logs.FilterMessage("entity has many children").Len() == 0 {
		t.Error("expected a child count warning")
	}
}

func TestNoDebugWarningsWhenOff(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	w, _ := newTransformWorld(WithLogger(zap.New(core)))

	prev := spawn(t, w, "root", Vec3{})
	for i := range debugMaxTreeDepth + 5 {
		e := spawn(t, w, fmt.Sprintf("depth_%d", i), Vec3{})
		mustAttach(t, w, prev, e)
		prev = e
	}
	if logs.Len() != 0 {
		t.Errorf("got %d warnings with debug off", logs.Len())
	}
}
