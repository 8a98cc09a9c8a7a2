// Package pool provides a generic allocator that recycles instances instead
// of allocating a new one for every short-lived object.
package pool

import (
	"github.com/charmbracelet/log"
)

// Logger receives warnings about misuse (double release, foreign instances).
// *log.Logger from charmbracelet/log satisfies it.
type Logger interface {
	Warn(msg interface{}, keyvals ...interface{})
}

// Config configures a Pool.
type Config[T comparable] struct {
	Initial int      // Instances created up front (bounded by Max)
	Max     int      // Hard ceiling on total instances, 0 = no cap
	Grow    bool     // Whether Get may create instances when empty
	New     func() T // Factory, required
	Reset   func(T)  // Applied on release, optional
	Logger  Logger   // Defaults to the charm default logger
}

// Stats is a point-in-time view of a pool's occupancy.
type Stats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	InUse     int `json:"in_use"`
	Peak      int `json:"peak"`
}

// Pool tracks which instances are available and which are handed out.
// It is not safe for concurrent use; confine it to one goroutine.
type Pool[T comparable] struct {
	available []T
	inUse     map[T]struct{}
	peak      int

	max    int
	grow   bool
	newFn  func() T
	reset  func(T)
	logger Logger
}

// New creates a pool and preallocates cfg.Initial instances.
func New[T comparable](cfg Config[T]) *Pool[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("pool")
	}
	limit := cfg.Max
	if limit < 0 {
		limit = 0
	}

	p := &Pool[T]{
		inUse:  make(map[T]struct{}),
		max:    limit,
		grow:   cfg.Grow,
		newFn:  cfg.New,
		reset:  cfg.Reset,
		logger: logger,
	}
	p.Preallocate(cfg.Initial)
	return p
}

// Get hands out an instance, reusing a released one when possible.
// Returns false when the pool is empty and may not (or cannot) grow.
func (p *Pool[T]) Get() (T, bool) {
	var v T

	if n := len(p.available); n > 0 {
		v = p.available[n-1]
		var zero T
		p.available[n-1] = zero
		p.available = p.available[:n-1]
	} else {
		if !p.grow || p.newFn == nil {
			return v, false
		}
		if p.max > 0 && len(p.inUse) >= p.max {
			return v, false
		}
		v = p.newFn()
	}

	p.inUse[v] = struct{}{}
	if len(p.inUse) > p.peak {
		p.peak = len(p.inUse)
	}
	return v, true
}

// Release returns an instance handed out by Get. Releasing an instance the
// pool does not consider in use is logged and ignored. At capacity the
// instance is dropped instead of kept.
func (p *Pool[T]) Release(v T) {
	if _, ok := p.inUse[v]; !ok {
		p.logger.Warn("release of instance not in use", "available", len(p.available), "in_use", len(p.inUse))
		return
	}

	if p.reset != nil {
		p.reset(v)
	}
	delete(p.inUse, v)

	if p.max == 0 || len(p.available) < p.max {
		p.available = append(p.available, v)
	}
}

// Preallocate tops the total instance count up to at least n, bounded by
// the pool's cap.
func (p *Pool[T]) Preallocate(n int) {
	if p.newFn == nil {
		return
	}
	if p.max > 0 && n > p.max {
		n = p.max
	}
	for p.total() < n {
		p.available = append(p.available, p.newFn())
	}
}

// Clear forgets every instance, available or in use, and resets the peak.
// Instances still held by callers become foreign to the pool.
func (p *Pool[T]) Clear() {
	clear(p.available)
	p.available = p.available[:0]
	clear(p.inUse)
	p.peak = 0
}

// InUse reports whether v is currently handed out by this pool.
func (p *Pool[T]) InUse(v T) bool {
	_, ok := p.inUse[v]
	return ok
}

// Stats returns the current occupancy.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Total:     p.total(),
		Available: len(p.available),
		InUse:     len(p.inUse),
		Peak:      p.peak,
	}
}

func (p *Pool[T]) total() int {
	return len(p.available) + len(p.inUse)
}
