package projectile

import (
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oklog/ulid/v2"

	"github.com/tomz197/volley/internal/scene"
)

// ID identifies a launched projectile. IDs minted by one manager are
// strictly increasing.
type ID = ulid.ULID

// Instance is one pooled projectile. Instances are owned by the manager:
// callers may read and adjust the exported fields of an active instance but
// must not keep it after it has been destroyed, since it will be reused.
type Instance struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Rotation mgl64.Quat
	Elapsed  float64        // Seconds since launch
	UserData map[string]any // Cleared on release

	id      ID
	def     *Definition
	node    *scene.Node
	physics Physics // Definition physics merged with launch overrides
	active  bool
	stuck   bool
}

func newInstance(def *Definition, name string) *Instance {
	return &Instance{
		Rotation: mgl64.QuatIdent(),
		UserData: make(map[string]any),
		def:      def,
		node:     def.Visual.Instantiate(name),
		physics:  def.Physics,
	}
}

// ID returns the ID assigned at launch.
func (i *Instance) ID() ID { return i.id }

// Definition returns the template the instance was built from.
func (i *Instance) Definition() *Definition { return i.def }

// Node returns the render handle of the instance.
func (i *Instance) Node() *scene.Node { return i.node }

// Physics returns the effective physics of the current flight.
func (i *Instance) Physics() Physics { return i.physics }

// Active reports whether the instance is in flight.
func (i *Instance) Active() bool { return i.active }

// Stuck reports whether the instance stuck to a surface.
func (i *Instance) Stuck() bool { return i.stuck }

// View returns a cheap read-only view for collision queries. Layers is
// shared with the definition and must not be modified.
func (i *Instance) View() View {
	return View{
		ID:           i.id,
		DefinitionID: i.def.ID,
		Position:     i.Position,
		Velocity:     i.Velocity,
		Layers:       i.def.Collision.Layers,
	}
}

// Snapshot returns a copy of the instance state that stays valid after the
// instance is reused.
func (i *Instance) Snapshot() Snapshot {
	v := i.View()
	v.Layers = slices.Clone(v.Layers)
	return Snapshot{
		View:     v,
		Rotation: i.Rotation,
		Elapsed:  i.Elapsed,
		Stuck:    i.stuck,
		UserData: maps.Clone(i.UserData),
	}
}

// syncNode copies the transform onto the render handle.
func (i *Instance) syncNode() {
	i.node.Position = i.Position
	i.node.Rotation = i.Rotation
}

// reset returns the instance to its pooled defaults.
func (i *Instance) reset() {
	i.id = ulid.ULID{}
	i.Position = mgl64.Vec3{}
	i.Velocity = mgl64.Vec3{}
	i.Rotation = mgl64.QuatIdent()
	i.Elapsed = 0
	clear(i.UserData)
	i.physics = i.def.Physics
	i.active = false
	i.stuck = false
	i.node.Visible = false
	i.syncNode()
}

// View is what collision collaborators see of a projectile.
type View struct {
	ID           ID
	DefinitionID string
	Position     mgl64.Vec3
	Velocity     mgl64.Vec3
	Layers       []string
}

// Snapshot is an immutable copy of a projectile's state.
type Snapshot struct {
	View
	Rotation mgl64.Quat
	Elapsed  float64
	Stuck    bool
	UserData map[string]any
}
