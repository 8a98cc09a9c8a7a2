package projectile

import (
	"github.com/go-gl/mathgl/mgl64"
)

// DestroyReason says why a projectile left the simulation.
type DestroyReason int

const (
	ReasonManual    DestroyReason = iota // Destroyed by a caller
	ReasonLifetime                       // Lifetime ran out
	ReasonCollision                      // Hit something without sticking or bouncing
)

func (r DestroyReason) String() string {
	switch r {
	case ReasonManual:
		return "manual"
	case ReasonLifetime:
		return "lifetime"
	case ReasonCollision:
		return "collision"
	default:
		return "unknown"
	}
}

// Surface identifies what a projectile hit.
type Surface int

const (
	SurfaceTerrain Surface = iota
	SurfaceObject
)

func (s Surface) String() string {
	switch s {
	case SurfaceTerrain:
		return "terrain"
	case SurfaceObject:
		return "object"
	default:
		return "unknown"
	}
}

// HitEvent describes a collision. Every field is a copy except Target,
// which is the collider's own object and is passed through as is. The
// manager never touches it; listeners share it with the collider.
type HitEvent struct {
	Projectile Snapshot
	Surface    Surface
	Target     any        // Collider's object, not copied; nil for terrain
	Point      mgl64.Vec3 // Contact point
	Normal     mgl64.Vec3 // Surface normal at the contact point
	Velocity   mgl64.Vec3 // Velocity before resolution
}

// DestroyEvent describes a projectile leaving the simulation.
type DestroyEvent struct {
	Projectile Snapshot
	Reason     DestroyReason
}

// listeners is an ordered subscriber list. Unsubscribing never mutates a
// slice that an emit may be iterating.
type listeners[E any] struct {
	next    uint64
	entries []listener[E]
}

type listener[E any] struct {
	id uint64
	fn func(E)
}

func (l *listeners[E]) add(fn func(E)) func() {
	id := l.next
	l.next++
	l.entries = append(l.entries, listener[E]{id: id, fn: fn})
	return func() { l.remove(id) }
}

func (l *listeners[E]) remove(id uint64) {
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *listeners[E]) reset() {
	l.entries = nil
}

// emit calls every listener in subscription order. A panicking listener is
// logged and does not stop the others.
func (l *listeners[E]) emit(e E, logger Logger, kind string) {
	for _, entry := range l.entries {
		callListener(entry.fn, e, logger, kind)
	}
}

func callListener[E any](fn func(E), e E, logger Logger, kind string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("listener panicked", "event", kind, "panic", r)
		}
	}()
	fn(e)
}
