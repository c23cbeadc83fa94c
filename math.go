package juniper

import "github.com/go-gl/mathgl/mgl64"

// Vector, rotation and matrix types. Matrices are column-major with the
// translation in elements 12, 13 and 14.
type (
	Vec3 = mgl64.Vec3
	Vec4 = mgl64.Vec4
	Quat = mgl64.Quat
	Mat4 = mgl64.Mat4
)

var (
	// Vec3One is the unit scale.
	Vec3One = Vec3{1, 1, 1}
	// QuatIdentity is the no-rotation quaternion.
	QuatIdentity = mgl64.QuatIdent()
	// Mat4Identity is the identity matrix.
	Mat4Identity = mgl64.Ident4()
)

// normalize returns v scaled to unit length. Vectors too short to normalize
// are returned unchanged.
func normalize(v Vec3) Vec3 {
	if v.Len() < 1e-12 {
		return v
	}
	return v.Normalize()
}

// QuatFromAxisAngle returns a rotation of angle radians around axis.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	return mgl64.QuatRotate(angle, normalize(axis))
}

// QuatFromEuler returns the rotation for Euler angles applied in X, Y, Z order.
func QuatFromEuler(x, y, z float64) Quat {
	return mgl64.AnglesToQuat(x, y, z, mgl64.XYZ)
}

// ComposeTRS builds Translate(t) * Rotate(r) * Scale(s).
func ComposeTRS(t Vec3, r Quat, s Vec3) Mat4 {
	return mgl64.Translate3D(t[0], t[1], t[2]).
		Mul4(r.Mat4()).
		Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}

// Translate returns a pure translation matrix.
func Translate(t Vec3) Mat4 {
	return mgl64.Translate3D(t[0], t[1], t[2])
}

// TranslationOf returns the translation column of m.
func TranslationOf(m Mat4) Vec3 {
	return m.Col(3).Vec3()
}

// Invert returns the inverse of m, or the identity when m is singular.
func Invert(m Mat4) Mat4 {
	if mgl64.FloatEqual(m.Det(), 0) {
		return Mat4Identity
	}
	return m.Inv()
}

// LookAtRotation returns the rotation that points the -Z axis from eye toward
// target. An up vector parallel to the view direction is replaced by +Z, or
// +X when the view runs along Z.
func LookAtRotation(eye, target, up Vec3) Quat {
	dir := target.Sub(eye)
	if dir.Len() < 1e-12 {
		return QuatIdentity
	}
	for _, alt := range []Vec3{{0, 0, 1}, {1, 0, 0}} {
		if dir.Cross(up).Len() >= 1e-12 {
			break
		}
		up = alt
	}
	// The view rotation is orthonormal, so its transpose is the world
	// rotation.
	view := mgl64.LookAtV(eye, target, up)
	return mgl64.Mat4ToQuat(view.Transpose()).Normalize()
}

// isPowerOfTwo reports whether n is a positive power of two.
func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
