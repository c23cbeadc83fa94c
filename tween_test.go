package juniper

import (
	"math"
	"testing"

	"github.com/tanema/gween/ease"
)

func TestTweenTranslationReachesTarget(t *testing.T) {
	w, _ := newTransformWorld()
	e := spawn(t, w, "mover", Vec3{10, 20, 0})
	w.Sync()

	g := TweenTranslation(e, Vec3{100, 200, -5}, 1.0, ease.Linear)

	// Exact halves avoid float32 accumulation drift.
	g.Update(0.5)
	if g.Done {
		t.Fatal("done after half the duration")
	}
	if math.Abs(e.Transform().Translation[0]-55) > 0.5 {
		t.Errorf("X midway = %f, want ~55", e.Transform().Translation[0])
	}
	g.Update(0.5)

	if !g.Done {
		t.Fatal("expected Done after full duration")
	}
	tr := e.Transform().Translation
	if math.Abs(tr[0]-100) > 0.5 || math.Abs(tr[1]-200) > 0.5 || math.Abs(tr[2]+5) > 0.5 {
		t.Errorf("translation = %+v, want ~{100 200 -5}", tr)
	}
	if !e.Transform().Dirty() {
		t.Error("tween should mark the transform dirty")
	}
}

func TestTweenScaleReachesTarget(t *testing.T) {
	w, _ := newTransformWorld()
	e := spawn(t, w, "grower", Vec3{})
	w.Sync()

	g := TweenScale(e, Vec3{2, 3, 4}, 0.5, ease.Linear)
	g.Update(0.25)
	g.Update(0.25)

	if !g.Done {
		t.Fatal("expected Done after full duration")
	}
	s := e.Transform().Scale
	if math.Abs(s[0]-2) > 0.01 || math.Abs(s[1]-3) > 0.01 || math.Abs(s[2]-4) > 0.01 {
		t.Errorf("scale = %+v, want ~{2 3 4}", s)
	}
}

func TestTweenRotationComposesOntoBase(t *testing.T) {
	w, _ := newTransformWorld()
	e := spawn(t, w, "spinner", Vec3{})
	e.Transform().SetRotation(QuatFromAxisAngle(Vec3{1, 0, 0}, math.Pi/2))
	w.Sync()

	g := TweenRotation(e, Vec3{0, 2, 0}, 0, math.Pi, 1.0, ease.Linear)
	g.Update(0.5)
	g.Update(0.5)
	if !g.Done {
		t.Fatal("expected Done after full duration")
	}

	want := QuatFromAxisAngle(Vec3{0, 1, 0}, math.Pi).Mul(QuatFromAxisAngle(Vec3{1, 0, 0}, math.Pi/2))
	got := e.Transform().Rotation
	v := Vec3{0, 0, 1}
	a, b := got.Rotate(v), want.Rotate(v)
	if a.Sub(b).Len() > 1e-3 {
		t.Errorf("rotated = %+v, want %+v", a, b)
	}
}

func TestTweenStopsWhenEntityLeaves(t *testing.T) {
	w, _ := newTransformWorld()
	e := spawn(t, w, "mover", Vec3{})
	w.Sync()

	g := TweenTranslation(e, Vec3{10, 0, 0}, 1.0, ease.Linear)
	g.Update(0.1)
	x := e.Transform().Translation[0]

	w.RemoveFromWorld(e)
	w.Sync()
	g.Update(0.1)
	if !g.Done {
		t.Fatal("expected Done after the entity left the world")
	}
	if e.Transform().Translation[0] != x {
		t.Error("a stopped tween must not write")
	}
}

func TestTweenRunsBeforeEntityJoins(t *testing.T) {
	w, _ := newTransformWorld()
	e := spawn(t, w, "pending", Vec3{})

	g := TweenTranslation(e, Vec3{10, 0, 0}, 1.0, ease.Linear)
	g.Update(0.5)
	if g.Done {
		t.Fatal("a tween on an entity not yet in the world should run")
	}
}

func TestTweenStopsWhenTransformReplaced(t *testing.T) {
	w, _ := newTransformWorld()
	e := spawn(t, w, "mover", Vec3{})
	w.Sync()

	g := TweenScale(e, Vec3{2, 2, 2}, 1.0, ease.Linear)
	if err := w.SetComponent(e, NewTransformComponent()); err != nil {
		t.Fatal(err)
	}
	w.Sync()
	g.Update(0.5)
	if !g.Done {
		t.Fatal("expected Done after the transform was replaced")
	}
	if e.Transform().Scale != Vec3One {
		t.Errorf("new transform scale = %+v, want untouched", e.Transform().Scale)
	}
}

func TestTweenWithoutTransformIsDone(t *testing.T) {
	w, _ := newTransformWorld()
	e := w.CreateEntity("bare")
	if g := TweenTranslation(e, Vec3{1, 0, 0}, 1, ease.Linear); !g.Done {
		t.Error("tween on an entity without a transform should start done")
	}
}
