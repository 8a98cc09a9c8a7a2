package arena

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tomz197/volley/internal/physics"
	"github.com/tomz197/volley/internal/projectile"
)

var testBounds = Bounds{MinX: -50, MinZ: -50, MaxX: 50, MaxZ: 50}

func view(pos mgl64.Vec3, layers ...string) projectile.View {
	return projectile.View{Position: pos, Layers: layers}
}

func TestTargets_HitAndMiss(t *testing.T) {
	field := NewTargets(testBounds, 5, Target{Name: "post", Center: mgl64.Vec3{10, 1, 0}, Radius: 1})

	assert.Nil(t, field.CheckObjectCollision(view(mgl64.Vec3{0, 1, 0}), 0.1))

	hit := field.CheckObjectCollision(view(mgl64.Vec3{8.95, 1, 0}), 0.1)
	require.NotNil(t, hit)
	target, ok := hit.Object.(*Target)
	require.True(t, ok)
	assert.Equal(t, "post", target.Name)
	assert.True(t, hit.Normal.ApproxEqualThreshold(mgl64.Vec3{-1, 0, 0}, 1e-9), "normal %v", hit.Normal)
	assert.True(t, hit.Point.ApproxEqualThreshold(mgl64.Vec3{9, 1, 0}, 1e-9), "point %v", hit.Point)

	target.Hits++
	assert.Equal(t, 1, field.At(0).Hits)
	field.ResetHits()
	assert.Zero(t, field.All()[0].Hits)
}

func TestTargets_ClosestWins(t *testing.T) {
	field := NewTargets(testBounds, 5,
		Target{Name: "far", Center: mgl64.Vec3{1.5, 0, 0}, Radius: 1},
		Target{Name: "near", Center: mgl64.Vec3{-0.5, 0, 0}, Radius: 1},
	)

	hit := field.CheckObjectCollision(view(mgl64.Vec3{0, 0, 0}), 0.2)
	require.NotNil(t, hit)
	assert.Equal(t, "near", hit.Object.(*Target).Name)
}

func TestTargets_Layers(t *testing.T) {
	field := NewTargets(testBounds, 5,
		Target{Name: "red", Center: mgl64.Vec3{0, 0, 0}, Radius: 1, Layer: "red"},
		Target{Name: "open", Center: mgl64.Vec3{20, 0, 0}, Radius: 1},
	)

	assert.Nil(t, field.CheckObjectCollision(view(mgl64.Vec3{0, 0, 0}, "blue"), 0.1))
	assert.NotNil(t, field.CheckObjectCollision(view(mgl64.Vec3{0, 0, 0}, "blue", "red"), 0.1))
	assert.NotNil(t, field.CheckObjectCollision(view(mgl64.Vec3{0, 0, 0}), 0.1), "no layers hits everything")
	assert.NotNil(t, field.CheckObjectCollision(view(mgl64.Vec3{20, 0, 0}, "blue"), 0.1), "unlayered targets are hit by all")
}

func TestTargets_CenteredProjectileFallsBackToUp(t *testing.T) {
	field := NewTargets(testBounds, 5, Target{Center: mgl64.Vec3{3, 3, 3}, Radius: 1})

	hit := field.CheckObjectCollision(view(mgl64.Vec3{3, 3, 3}), 0)
	require.NotNil(t, hit)
	assert.Equal(t, physics.Up, hit.Normal)
}

func TestTargets_CellSizeCoversLargestTarget(t *testing.T) {
	field := NewTargets(testBounds, 1, Target{Center: mgl64.Vec3{0, 0, 0}, Radius: 4})
	assert.Equal(t, 8.0, field.grid.CellSize())

	// Large projectile radius falls back to a full scan.
	assert.NotNil(t, field.CheckObjectCollision(view(mgl64.Vec3{30, 0, 0}), 27))
}

func TestRing(t *testing.T) {
	targets := Ring(mgl64.Vec3{0, 1, 0}, 10, 4, 0.5, "targets")
	require.Len(t, targets, 4)

	for _, tg := range targets {
		assert.InDelta(t, 10, physics.Distance(tg.Center, mgl64.Vec3{0, 1, 0}), 1e-9)
		assert.Equal(t, 1.0, tg.Center.Y())
		assert.Equal(t, "targets", tg.Layer)
	}
	assert.Equal(t, "target-1", targets[0].Name)
	assert.InDelta(t, 10, targets[0].Center.X(), 1e-9)
}

func TestTargets_GridMatchesBruteForce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(t, "targets")
		targets := make([]Target, 0, n)
		for i := 0; i < n; i++ {
			targets = append(targets, Target{
				Center: mgl64.Vec3{
					rapid.Float64Range(-60, 60).Draw(t, "x"),
					rapid.Float64Range(-5, 5).Draw(t, "y"),
					rapid.Float64Range(-60, 60).Draw(t, "z"),
				},
				Radius: rapid.Float64Range(0.1, 3).Draw(t, "r"),
			})
		}
		field := NewTargets(testBounds, rapid.Float64Range(1, 10).Draw(t, "cell"), targets...)

		pos := mgl64.Vec3{
			rapid.Float64Range(-60, 60).Draw(t, "px"),
			rapid.Float64Range(-5, 5).Draw(t, "py"),
			rapid.Float64Range(-60, 60).Draw(t, "pz"),
		}
		radius := rapid.Float64Range(0, 2).Draw(t, "pr")

		overlapping := false
		for _, tg := range targets {
			if physics.SpheresOverlap(pos, radius, tg.Center, tg.Radius) {
				overlapping = true
			}
		}

		hit := field.CheckObjectCollision(view(pos), radius)
		if overlapping != (hit != nil) {
			t.Fatalf("grid query returned %v, brute force overlap %v", hit, overlapping)
		}
	})
}
