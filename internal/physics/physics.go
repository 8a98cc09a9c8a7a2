// Package physics provides the vector math, collision tests and broad-phase
// indexing used by the projectile simulation.
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-6

// Up is the world-up axis.
var Up = mgl64.Vec3{0, 1, 0}

// Forward is the axis a node faces with identity rotation.
var Forward = mgl64.Vec3{0, 0, -1}

// Distance calculates the Euclidean distance between two points.
func Distance(a, b mgl64.Vec3) float64 {
	return b.Sub(a).Len()
}

// DistanceSquared calculates the squared distance between two points.
// Use this when comparing distances to avoid the sqrt cost.
func DistanceSquared(a, b mgl64.Vec3) float64 {
	return b.Sub(a).LenSqr()
}

// PointInSphere checks if a point is within radius of a center.
func PointInSphere(p, center mgl64.Vec3, radius float64) bool {
	return DistanceSquared(p, center) <= radius*radius
}

// SpheresOverlap checks if two spheres overlap.
func SpheresOverlap(c1 mgl64.Vec3, r1 float64, c2 mgl64.Vec3, r2 float64) bool {
	minDist := r1 + r2
	return DistanceSquared(c1, c2) < minDist*minDist
}

// Normalize returns v scaled to unit length, or false if v is (nearly) zero.
func Normalize(v mgl64.Vec3) (mgl64.Vec3, bool) {
	l := v.Len()
	if l <= Epsilon {
		return mgl64.Vec3{}, false
	}
	return v.Mul(1 / l), true
}

// Reflect mirrors v about the plane with unit normal n.
func Reflect(v, n mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}

// RotateAround rotates v by angle radians around axis.
// A degenerate axis leaves v unchanged.
func RotateAround(v, axis mgl64.Vec3, angle float64) mgl64.Vec3 {
	unit, ok := Normalize(axis)
	if !ok || angle == 0 {
		return v
	}
	return mgl64.QuatRotate(angle, unit).Rotate(v)
}

// Facing returns the rotation that turns Forward onto dir.
// Reports false when dir is too short to define a direction.
func Facing(dir mgl64.Vec3) (mgl64.Quat, bool) {
	unit, ok := Normalize(dir)
	if !ok {
		return mgl64.QuatIdent(), false
	}
	return mgl64.QuatBetweenVectors(Forward, unit), true
}

// Decay applies continuous drag: each second the velocity keeps factor of
// its magnitude, so the result does not depend on how dt is sliced.
func Decay(v mgl64.Vec3, factor, dt float64) mgl64.Vec3 {
	if factor >= 1 {
		return v
	}
	return v.Mul(math.Pow(factor, dt))
}
