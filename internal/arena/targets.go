// Package arena holds the static world objects projectiles can hit.
package arena

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tomz197/volley/internal/physics"
	"github.com/tomz197/volley/internal/projectile"
)

// Target is a static sphere in the arena.
type Target struct {
	Name   string
	Center mgl64.Vec3
	Radius float64
	Layer  string // Empty means every projectile can hit it
	Hits   int    // Incremented by the owner of the field, not by collision queries
}

// Bounds is the X/Z extent of the arena.
type Bounds struct {
	MinX, MinZ float64
	MaxX, MaxZ float64
}

// Targets is a fixed set of targets indexed by a spatial grid. It
// implements projectile.Collider. It is not safe for concurrent use.
type Targets struct {
	targets []Target
	grid    *physics.SpatialGrid
	reach   float64 // Largest target radius
}

// NewTargets indexes targets in a grid covering bounds. cellSize is raised
// to the largest target diameter if needed.
func NewTargets(bounds Bounds, cellSize float64, targets ...Target) *Targets {
	t := &Targets{targets: slices.Clone(targets)}
	for _, tg := range t.targets {
		t.reach = max(t.reach, tg.Radius)
	}
	cellSize = max(cellSize, 2*t.reach)

	t.grid = physics.NewSpatialGrid(bounds.MinX, bounds.MinZ, bounds.MaxX, bounds.MaxZ, cellSize)
	for i, tg := range t.targets {
		t.grid.Insert(tg.Center, i)
	}
	return t
}

// Len returns the number of targets.
func (t *Targets) Len() int {
	return len(t.targets)
}

// At returns the target at index i. The pointer stays valid for the life of
// the field.
func (t *Targets) At(i int) *Target {
	return &t.targets[i]
}

// All returns a copy of every target.
func (t *Targets) All() []Target {
	return slices.Clone(t.targets)
}

// ResetHits zeroes every hit counter.
func (t *Targets) ResetHits() {
	for i := range t.targets {
		t.targets[i].Hits = 0
	}
}

// CheckObjectCollision returns the closest target overlapping the
// projectile sphere, or nil. Hit.Object is the *Target.
func (t *Targets) CheckObjectCollision(v projectile.View, radius float64) *projectile.Hit {
	best := -1
	bestGap := math.Inf(1)

	consider := func(i int) bool {
		tg := &t.targets[i]
		if !matchesLayer(v.Layers, tg.Layer) {
			return false
		}
		if !physics.SpheresOverlap(v.Position, radius, tg.Center, tg.Radius) {
			return false
		}
		if gap := physics.Distance(v.Position, tg.Center) - tg.Radius; gap < bestGap {
			best, bestGap = i, gap
		}
		return false
	}

	// The 3x3 neighbourhood only covers one cell in every direction.
	if t.reach+radius <= t.grid.CellSize() {
		t.grid.QueryAround(v.Position, consider)
	} else {
		for i := range t.targets {
			consider(i)
		}
	}

	if best < 0 {
		return nil
	}
	tg := &t.targets[best]
	normal, ok := physics.Normalize(v.Position.Sub(tg.Center))
	if !ok {
		normal = physics.Up
	}
	return &projectile.Hit{
		Object: tg,
		Point:  tg.Center.Add(normal.Mul(tg.Radius)),
		Normal: normal,
	}
}

func matchesLayer(layers []string, layer string) bool {
	return len(layers) == 0 || layer == "" || slices.Contains(layers, layer)
}

// Ring lays n targets out evenly on a horizontal circle.
func Ring(center mgl64.Vec3, ringRadius float64, n int, targetRadius float64, layer string) []Target {
	out := make([]Target, 0, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		out = append(out, Target{
			Name:   fmt.Sprintf("target-%d", i+1),
			Center: center.Add(mgl64.Vec3{math.Cos(angle) * ringRadius, 0, math.Sin(angle) * ringRadius}),
			Radius: targetRadius,
			Layer:  layer,
		})
	}
	return out
}

var _ projectile.Collider = (*Targets)(nil)
