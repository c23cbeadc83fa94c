package juniper

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 4 float64 fields of an entity's transform
// simultaneously. Create one via the convenience constructors
// (TweenTranslation, TweenScale, TweenRotation) and call Update(dt) each
// frame, typically from a script. The group writes the values and marks the
// transform dirty. If the entity leaves the world or loses the transform it
// was created for, the group stops immediately.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	fields [4]*float64
	apply  func()

	entity    *Entity
	transform *TransformComponent
	seen      bool

	Done bool
}

func newTweenGroup(e *Entity, count int) *TweenGroup {
	return &TweenGroup{count: count, entity: e, transform: e.Transform()}
}

// Update advances all tweens by dt seconds, writes values to the target
// fields, and marks the transform dirty.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	if g.stale() {
		g.Done = true
		return
	}

	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		*g.fields[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone

	if g.apply != nil {
		g.apply()
	}
	g.transform.MarkDirty()
}

// stale reports whether the target transform is gone.
func (g *TweenGroup) stale() bool {
	if g.transform == nil || g.entity.Transform() != g.transform {
		return true
	}
	if g.entity.InWorld() {
		g.seen = true
		return false
	}
	return g.seen
}

// TweenTranslation creates a TweenGroup that moves e's local translation to
// the given point over duration seconds using the easing function.
func TweenTranslation(e *Entity, to Vec3, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := newTweenGroup(e, 3)
	if g.transform == nil {
		g.Done = true
		return g
	}
	t := g.transform
	g.tweens[0] = gween.New(float32(t.Translation[0]), float32(to[0]), duration, fn)
	g.tweens[1] = gween.New(float32(t.Translation[1]), float32(to[1]), duration, fn)
	g.tweens[2] = gween.New(float32(t.Translation[2]), float32(to[2]), duration, fn)
	g.fields[0] = &t.Translation[0]
	g.fields[1] = &t.Translation[1]
	g.fields[2] = &t.Translation[2]
	return g
}

// TweenScale creates a TweenGroup that animates e's local scale to the given
// value over duration seconds using the easing function.
func TweenScale(e *Entity, to Vec3, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := newTweenGroup(e, 3)
	if g.transform == nil {
		g.Done = true
		return g
	}
	t := g.transform
	g.tweens[0] = gween.New(float32(t.Scale[0]), float32(to[0]), duration, fn)
	g.tweens[1] = gween.New(float32(t.Scale[1]), float32(to[1]), duration, fn)
	g.tweens[2] = gween.New(float32(t.Scale[2]), float32(to[2]), duration, fn)
	g.fields[0] = &t.Scale[0]
	g.fields[1] = &t.Scale[1]
	g.fields[2] = &t.Scale[2]
	return g
}

// TweenRotation creates a TweenGroup that spins e about axis from angle from
// to angle to (radians), composed onto the rotation e has when the group is
// created.
func TweenRotation(e *Entity, axis Vec3, from, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := newTweenGroup(e, 1)
	if g.transform == nil {
		g.Done = true
		return g
	}
	t := g.transform
	base := t.Rotation
	axis = normalize(axis)
	angle := new(float64)
	g.tweens[0] = gween.New(float32(from), float32(to), duration, fn)
	g.fields[0] = angle
	g.apply = func() {
		t.Rotation = QuatFromAxisAngle(axis, *angle).Mul(base).Normalize()
	}
	return g
}
