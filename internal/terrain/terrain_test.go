package terrain

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestFlat(t *testing.T) {
	f := Flat{Height: 2.5}
	assert.Equal(t, 2.5, f.HeightAt(mgl64.Vec3{100, -3, 7}))
}

func TestRamp(t *testing.T) {
	r := Ramp{Base: 1, SlopeX: 0.5, SlopeZ: -0.25}
	assert.InDelta(t, 1.0, r.HeightAt(mgl64.Vec3{0, 9, 0}), 1e-12)
	assert.InDelta(t, 2.0, r.HeightAt(mgl64.Vec3{2, 0, 0}), 1e-12)
	assert.InDelta(t, 0.0, r.HeightAt(mgl64.Vec3{0, 0, 4}), 1e-12)
}
