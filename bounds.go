package juniper

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BoundingBox is an axis-aligned box described by its center and half
// extents.
type BoundingBox struct {
	Center Vec3
	Extent Vec3
}

// BoundFromPositions returns the box enclosing packed xyz positions.
// An empty slice yields the zero box.
func BoundFromPositions(positions []float32) BoundingBox {
	if len(positions) < 3 {
		return BoundingBox{}
	}
	lo := Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i := 0; i+2 < len(positions); i += 3 {
		for a := 0; a < 3; a++ {
			v := float64(positions[i+a])
			lo[a], hi[a] = math.Min(lo[a], v), math.Max(hi[a], v)
		}
	}
	return BoundingBox{
		Center: lo.Add(hi).Mul(0.5),
		Extent: hi.Sub(lo).Mul(0.5),
	}
}

// Transform returns the axis-aligned box enclosing b after applying m.
func (b BoundingBox) Transform(m Mat4) BoundingBox {
	var e Vec3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			e[row] += math.Abs(m.At(row, col)) * b.Extent[col]
		}
	}
	return BoundingBox{Center: mgl64.TransformCoordinate(b.Center, m), Extent: e}
}

// Min returns the minimum corner.
func (b BoundingBox) Min() Vec3 { return b.Center.Sub(b.Extent) }

// Max returns the maximum corner.
func (b BoundingBox) Max() Vec3 { return b.Center.Add(b.Extent) }

// Ray is a half-line used for picking.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// IntersectRay returns the distance along r to the first hit with b using the
// slab method. ok is false when the ray misses.
func (b BoundingBox) IntersectRay(r Ray) (dist float64, ok bool) {
	lo, hi := b.Min(), b.Max()
	tmin, tmax := math.Inf(-1), math.Inf(1)

	for i := 0; i < 3; i++ {
		o, d := r.Origin[i], r.Direction[i]
		if math.Abs(d) < 1e-12 {
			if o < lo[i] || o > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - o) / d
		t2 := (hi[i] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return 0, true
	}
	return tmin, true
}

// Plane is the set of points p with Normal·p + D = 0. The positive side is
// inside.
type Plane struct {
	Normal Vec3
	D      float64
}

// Frustum holds six inward-facing planes: left, right, bottom, top, near, far.
type Frustum [6]Plane

// FrustumFromMatrix extracts the planes of a view-projection matrix.
func FrustumFromMatrix(m Mat4) Frustum {
	w := m.Row(3)
	plane := func(row int, sign float64) Plane {
		p := w.Add(m.Row(row).Mul(sign))
		n := p.Vec3()
		l := n.Len()
		if l < 1e-12 {
			return Plane{Normal: n, D: p[3]}
		}
		return Plane{Normal: n.Mul(1 / l), D: p[3] / l}
	}
	return Frustum{
		plane(0, 1),
		plane(0, -1),
		plane(1, 1),
		plane(1, -1),
		plane(2, 1),
		plane(2, -1),
	}
}

// IntersectsBox reports whether b is at least partly inside f.
func (f *Frustum) IntersectsBox(b BoundingBox) bool {
	for i := range f {
		p := &f[i]
		r := math.Abs(p.Normal[0])*b.Extent[0] + math.Abs(p.Normal[1])*b.Extent[1] + math.Abs(p.Normal[2])*b.Extent[2]
		if p.Normal.Dot(b.Center)+p.D < -r {
			return false
		}
	}
	return true
}
