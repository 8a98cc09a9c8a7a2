// Package projectile spawns, moves, collides and retires pooled projectiles.
//
// A Manager owns one pool per registered Definition. Launch draws an
// instance from the matching pool, Update advances every active projectile
// once per tick, and destroyed projectiles go back to their pool. A Manager
// is not safe for concurrent use: drive it from a single simulation
// goroutine.
package projectile

import (
	"crypto/rand"
	"fmt"
	"maps"
	"math"
	mrand "math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tomz197/volley/internal/physics"
	"github.com/tomz197/volley/internal/pool"
	"github.com/tomz197/volley/internal/scene"
)

// DefaultMaxProjectiles caps the active set when Options leaves it unset.
const DefaultMaxProjectiles = 1000

// Pool sizing for registered definitions.
const maxInitialPoolSize = 10

// restSpeed is the speed below which a projectile keeps its orientation.
const restSpeed = 1e-3

// Logger receives warnings about rejected or ignored calls.
type Logger interface {
	Warn(msg interface{}, keyvals ...interface{})
}

// Terrain answers ground height queries.
type Terrain interface {
	HeightAt(pos mgl64.Vec3) float64
}

// TerrainFunc adapts a function to Terrain.
type TerrainFunc func(pos mgl64.Vec3) float64

// HeightAt calls f.
func (f TerrainFunc) HeightAt(pos mgl64.Vec3) float64 { return f(pos) }

// Hit is a collision reported by a Collider.
type Hit struct {
	Object any
	Point  mgl64.Vec3
	Normal mgl64.Vec3
}

// Collider tests a projectile against world objects. It returns at most one
// hit, picking the closest when several objects overlap, or nil.
type Collider interface {
	CheckObjectCollision(v View, radius float64) *Hit
}

// Options configures a Manager. Every field is optional.
type Options struct {
	MaxProjectiles int         // Active projectile cap, DefaultMaxProjectiles when 0
	Graph          scene.Graph // Where launched nodes are attached, scene.Discard when nil
	Terrain        Terrain     // Enables terrain collisions
	Collider       Collider    // Enables object collisions
	Logger         Logger
	Rand           *mrand.Rand      // Spread sampling
	Now            func() time.Time // ID timestamps
}

// LaunchParams describes a single launch.
type LaunchParams struct {
	DefinitionID string
	Origin       mgl64.Vec3
	Direction    mgl64.Vec3 // Need not be normalized
	Strength     float64    // Launch speed before variance
	Physics      *PhysicsOverride
	UserData     map[string]any // Copied into the instance
}

// Stats summarizes the manager and its pools.
type Stats struct {
	Active      int                   `json:"active"`
	Definitions int                   `json:"definitions"`
	Pools       map[string]pool.Stats `json:"pools"`
}

type doomed struct {
	id     ID
	reason DestroyReason
}

// Manager runs the projectile simulation.
type Manager struct {
	defs   map[string]*Definition
	pools  map[string]*pool.Pool[*Instance]
	active *orderedmap.OrderedMap[ID, *Instance]

	hits     listeners[HitEvent]
	destroys listeners[DestroyEvent]

	maxProjectiles int
	graph          scene.Graph
	terrain        Terrain
	collider       Collider
	logger         Logger
	rng            *mrand.Rand
	entropy        *ulid.MonotonicEntropy
	now            func() time.Time

	created  int
	disposed bool

	// Per-tick scratch, reused to avoid allocations.
	order  []ID
	doomed []doomed
}

// New creates a manager.
func New(opts Options) *Manager {
	m := &Manager{
		defs:           make(map[string]*Definition),
		pools:          make(map[string]*pool.Pool[*Instance]),
		active:         orderedmap.New[ID, *Instance](),
		maxProjectiles: opts.MaxProjectiles,
		graph:          opts.Graph,
		terrain:        opts.Terrain,
		collider:       opts.Collider,
		logger:         opts.Logger,
		rng:            opts.Rand,
		entropy:        ulid.Monotonic(rand.Reader, 0),
		now:            opts.Now,
	}
	if m.maxProjectiles <= 0 {
		m.maxProjectiles = DefaultMaxProjectiles
	}
	if m.graph == nil {
		m.graph = scene.Discard
	}
	if m.logger == nil {
		m.logger = log.Default().WithPrefix("projectile")
	}
	if m.rng == nil {
		m.rng = mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64()))
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// RegisterDefinition stores a copy of def and creates its pool.
// Invalid or duplicate definitions are logged and ignored.
func (m *Manager) RegisterDefinition(def Definition) bool {
	if m.disposed {
		m.logger.Warn("register on disposed manager", "definition", def.ID)
		return false
	}
	if err := def.Validate(); err != nil {
		m.logger.Warn("invalid projectile definition", "definition", def.ID, "err", err)
		return false
	}
	if _, dup := m.defs[def.ID]; dup {
		m.logger.Warn("projectile definition already registered", "definition", def.ID)
		return false
	}

	d := def.clone()
	m.defs[d.ID] = d
	m.pools[d.ID] = pool.New(pool.Config[*Instance]{
		Initial: min(d.PoolSize, maxInitialPoolSize),
		Max:     d.PoolSize,
		Grow:    true,
		New: func() *Instance {
			m.created++
			return newInstance(d, fmt.Sprintf("%s#%d", d.ID, m.created))
		},
		Reset:  m.resetInstance,
		Logger: m.logger,
	})
	return true
}

// UnregisterDefinition destroys every active projectile of the definition,
// then drops the definition and its pool.
func (m *Manager) UnregisterDefinition(id string) bool {
	p, ok := m.pools[id]
	if !ok {
		m.logger.Warn("unregister of unknown projectile definition", "definition", id)
		return false
	}

	for _, inst := range m.ProjectilesByType(id) {
		m.DestroyProjectile(inst.id, ReasonManual)
	}
	p.Clear()
	delete(m.pools, id)
	delete(m.defs, id)
	return true
}

// Definition returns a copy of the registered definition.
func (m *Manager) Definition(id string) (Definition, bool) {
	d, ok := m.defs[id]
	if !ok {
		return Definition{}, false
	}
	return *d.clone(), true
}

// DefinitionIDs returns the registered definition IDs in sorted order.
func (m *Manager) DefinitionIDs() []string {
	ids := lo.Keys(m.defs)
	slices.Sort(ids)
	return ids
}

// Launch activates a projectile. It returns nil, after logging why, when the
// definition is unknown, the active cap is reached or the pool is exhausted.
func (m *Manager) Launch(p LaunchParams) *Instance {
	if m.disposed {
		m.logger.Warn("launch on disposed manager", "definition", p.DefinitionID)
		return nil
	}
	def, ok := m.defs[p.DefinitionID]
	if !ok {
		m.logger.Warn("launch of unknown projectile definition", "definition", p.DefinitionID)
		return nil
	}
	if m.active.Len() >= m.maxProjectiles {
		m.logger.Warn("projectile limit reached", "definition", def.ID, "max", m.maxProjectiles)
		return nil
	}
	pl := m.pools[def.ID]
	inst, ok := pl.Get()
	if !ok {
		m.logger.Warn("projectile pool exhausted", "definition", def.ID, "pool_size", def.PoolSize)
		return nil
	}

	id, err := ulid.New(ulid.Timestamp(m.now()), m.entropy)
	if err != nil {
		m.logger.Warn("projectile id generation failed", "definition", def.ID, "err", err)
		pl.Release(inst)
		return nil
	}

	inst.physics = def.Physics.apply(p.Physics)
	dir := m.spreadDirection(p.Direction, def.Spread)
	speed := p.Strength * (1 + (m.rng.Float64()-0.5)*def.Spread.VelocityVariance)

	inst.id = id
	inst.Position = p.Origin
	inst.Velocity = dir.Mul(speed).Add(inst.physics.Velocity)
	if q, ok := physics.Facing(inst.Velocity); ok {
		inst.Rotation = q
	}
	maps.Copy(inst.UserData, p.UserData)

	inst.syncNode()
	inst.node.Visible = true
	m.graph.Add(inst.node)
	inst.active = true
	m.active.Set(id, inst)
	return inst
}

// spreadDirection normalizes direction and perturbs it: first around world
// up, then around the axis perpendicular to the already rotated direction
// and world up. Samples are drawn in that order.
func (m *Manager) spreadDirection(direction mgl64.Vec3, s Spread) mgl64.Vec3 {
	dir, _ := physics.Normalize(direction)

	yaw := (m.rng.Float64() - 0.5) * s.Horizontal
	dir = physics.RotateAround(dir, physics.Up, yaw)

	pitch := (m.rng.Float64() - 0.5) * s.Vertical
	return physics.RotateAround(dir, dir.Cross(physics.Up), pitch)
}

// Update advances the simulation by dt seconds. Every active projectile is
// aged, integrated and collision-tested once, in launch order; destructions
// are applied after the sweep.
func (m *Manager) Update(dt float64) {
	if m.disposed || !(dt > 0) || math.IsInf(dt, 0) {
		return
	}

	m.order = m.order[:0]
	for pair := m.active.Oldest(); pair != nil; pair = pair.Next() {
		m.order = append(m.order, pair.Key)
	}
	m.doomed = m.doomed[:0]

	for _, id := range m.order {
		// A listener may have destroyed it earlier in this sweep.
		inst, ok := m.active.Get(id)
		if !ok {
			continue
		}

		inst.Elapsed += dt
		if inst.physics.Lifetime > 0 && inst.Elapsed > inst.physics.Lifetime {
			m.doomed = append(m.doomed, doomed{id: id, reason: ReasonLifetime})
			continue
		}
		if inst.stuck {
			continue
		}

		m.integrate(inst, dt)
		if m.collide(inst) {
			m.doomed = append(m.doomed, doomed{id: id, reason: ReasonCollision})
		}
	}

	for _, d := range m.doomed {
		m.DestroyProjectile(d.id, d.reason)
	}
}

func (m *Manager) integrate(inst *Instance, dt float64) {
	ph := inst.physics
	inst.Velocity = inst.Velocity.Add(ph.Gravity.Mul(dt))
	inst.Velocity = physics.Decay(inst.Velocity, ph.AirResistance, dt)
	inst.Position = inst.Position.Add(inst.Velocity.Mul(dt))

	if inst.Velocity.Len() > restSpeed {
		if q, ok := physics.Facing(inst.Velocity); ok {
			inst.Rotation = q
		}
	}
	inst.syncNode()
}

// collide evaluates at most one collision for inst and reports whether the
// projectile must be destroyed. Terrain takes priority over objects.
func (m *Manager) collide(inst *Instance) bool {
	c := inst.def.Collision

	if c.CheckTerrain && m.terrain != nil {
		ground := m.terrain.HeightAt(inst.Position)
		if inst.Position.Y() <= ground+c.Radius {
			point := mgl64.Vec3{inst.Position.X(), ground, inst.Position.Z()}
			return m.resolve(inst, HitEvent{
				Surface: SurfaceTerrain,
				Point:   point,
				Normal:  physics.Up,
			})
		}
	}

	if c.CheckObjects && m.collider != nil {
		if hit := m.collider.CheckObjectCollision(inst.View(), c.Radius); hit != nil {
			return m.resolve(inst, HitEvent{
				Surface: SurfaceObject,
				Target:  hit.Object,
				Point:   hit.Point,
				Normal:  hit.Normal,
			})
		}
	}
	return false
}

// resolve notifies hit listeners, then sticks, bounces or condemns inst.
// A bounce moves inst out along the normal until it only touches the surface.
func (m *Manager) resolve(inst *Instance, ev HitEvent) bool {
	id := inst.id
	ev.Projectile = inst.Snapshot()
	ev.Velocity = inst.Velocity
	m.hits.emit(ev, m.logger, "hit")

	if !inst.active || inst.id != id {
		return false
	}

	switch ph := inst.physics; {
	case ph.StickOnHit:
		inst.Velocity = mgl64.Vec3{}
		inst.stuck = true
	case ph.Bounciness > 0:
		normal, ok := physics.Normalize(ev.Normal)
		if !ok {
			normal = physics.Up
		}
		if inst.Velocity.Dot(normal) < 0 {
			inst.Velocity = physics.Reflect(inst.Velocity, normal).Mul(ph.Bounciness)
		}
		radius := inst.def.Collision.Radius
		if depth := inst.Position.Sub(ev.Point).Dot(normal); depth < radius {
			inst.Position = inst.Position.Add(normal.Mul(radius - depth))
		}
		inst.syncNode()
	default:
		return true
	}
	return false
}

// DestroyProjectile removes an active projectile, notifies destroy
// listeners and returns the instance to its pool. Unknown or already
// destroyed IDs are ignored.
func (m *Manager) DestroyProjectile(id ID, reason DestroyReason) bool {
	inst, ok := m.active.Get(id)
	if !ok {
		return false
	}
	m.active.Delete(id)
	inst.active = false

	m.destroys.emit(DestroyEvent{Projectile: inst.Snapshot(), Reason: reason}, m.logger, "destroy")

	if p, ok := m.pools[inst.def.ID]; ok && p.InUse(inst) {
		p.Release(inst)
	} else {
		m.resetInstance(inst)
	}
	return true
}

// DestroyAllProjectiles destroys every active projectile.
func (m *Manager) DestroyAllProjectiles() {
	for _, inst := range m.ActiveProjectiles() {
		m.DestroyProjectile(inst.id, ReasonManual)
	}
}

// ActiveProjectiles returns the active projectiles in launch order.
// The slice is a copy.
func (m *Manager) ActiveProjectiles() []*Instance {
	out := make([]*Instance, 0, m.active.Len())
	for pair := m.active.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// ProjectilesByType returns the active projectiles of one definition in
// launch order. The slice is a copy.
func (m *Manager) ProjectilesByType(id string) []*Instance {
	return lo.Filter(m.ActiveProjectiles(), func(inst *Instance, _ int) bool {
		return inst.def.ID == id
	})
}

// Projectile returns the active projectile with the given ID.
func (m *Manager) Projectile(id ID) (*Instance, bool) {
	return m.active.Get(id)
}

// ActiveCount returns the number of active projectiles.
func (m *Manager) ActiveCount() int {
	return m.active.Len()
}

// Stats returns pool statistics per definition plus aggregate counts.
func (m *Manager) Stats() Stats {
	s := Stats{
		Active:      m.active.Len(),
		Definitions: len(m.defs),
		Pools:       make(map[string]pool.Stats, len(m.pools)),
	}
	for id, p := range m.pools {
		s.Pools[id] = p.Stats()
	}
	return s
}

// OnHit subscribes fn to hit events. The returned function unsubscribes.
func (m *Manager) OnHit(fn func(HitEvent)) (unsubscribe func()) {
	return m.hits.add(fn)
}

// OnDestroy subscribes fn to destroy events. The returned function
// unsubscribes.
func (m *Manager) OnDestroy(fn func(DestroyEvent)) (unsubscribe func()) {
	return m.destroys.add(fn)
}

// Dispose destroys every projectile (listeners still fire), then drops all
// pools, definitions and listeners. The manager refuses work afterwards.
func (m *Manager) Dispose() {
	if m.disposed {
		return
	}
	m.DestroyAllProjectiles()
	for _, p := range m.pools {
		p.Clear()
	}
	clear(m.pools)
	clear(m.defs)
	m.hits.reset()
	m.destroys.reset()
	m.disposed = true
}

// Disposed reports whether Dispose has been called.
func (m *Manager) Disposed() bool {
	return m.disposed
}

// resetInstance detaches the node and restores pooled defaults.
func (m *Manager) resetInstance(inst *Instance) {
	m.graph.Remove(inst.node)
	inst.reset()
}
