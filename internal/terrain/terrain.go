// Package terrain provides simple analytic height fields for the ground the
// projectiles fly over.
package terrain

import "github.com/go-gl/mathgl/mgl64"

// Flat is level ground at a fixed height.
type Flat struct {
	Height float64
}

// HeightAt returns the ground height under pos.
func (f Flat) HeightAt(mgl64.Vec3) float64 {
	return f.Height
}

// Ramp is a plane rising by SlopeX per unit along X and SlopeZ per unit
// along Z, passing through Base at the origin.
type Ramp struct {
	Base   float64
	SlopeX float64
	SlopeZ float64
}

// HeightAt returns the ground height under pos.
func (r Ramp) HeightAt(pos mgl64.Vec3) float64 {
	return r.Base + r.SlopeX*pos.X() + r.SlopeZ*pos.Z()
}
