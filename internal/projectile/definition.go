package projectile

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/oops"

	"github.com/tomz197/volley/internal/scene"
)

// Definition is the immutable template one kind of projectile is built from.
type Definition struct {
	ID        string         `yaml:"id"`
	Physics   Physics        `yaml:"physics"`
	Visual    scene.Template `yaml:"visual"`
	Collision Collision      `yaml:"collision"`
	Spread    Spread         `yaml:"spread"`
	PoolSize  int            `yaml:"pool_size"`
}

// Physics holds the motion parameters of a projectile.
type Physics struct {
	Velocity      mgl64.Vec3 `yaml:"velocity"`       // Added to the launch velocity
	Gravity       mgl64.Vec3 `yaml:"gravity"`        // Acceleration, units/s²
	AirResistance float64    `yaml:"air_resistance"` // Fraction of speed kept per second, (0,1]
	Bounciness    float64    `yaml:"bounciness"`     // Speed kept on bounce, [0,1]
	StickOnHit    bool       `yaml:"stick_on_hit"`
	Lifetime      float64    `yaml:"lifetime"` // Seconds, 0 = infinite
}

// Collision holds the collision parameters of a projectile.
type Collision struct {
	Radius       float64  `yaml:"radius"`
	Layers       []string `yaml:"layers"`
	CheckTerrain bool     `yaml:"check_terrain"`
	CheckObjects bool     `yaml:"check_objects"`
}

// Spread randomizes the launch. Angles are full ranges in radians, centered
// on the aimed direction. VelocityVariance is the full range of the speed
// multiplier, so 0.2 means ±10%.
type Spread struct {
	Horizontal       float64 `yaml:"horizontal"`
	Vertical         float64 `yaml:"vertical"`
	VelocityVariance float64 `yaml:"velocity_variance"`
}

// PhysicsOverride replaces individual physics fields for a single launch.
// Nil fields keep the definition's value.
type PhysicsOverride struct {
	Velocity      *mgl64.Vec3
	Gravity       *mgl64.Vec3
	AirResistance *float64
	Bounciness    *float64
	StickOnHit    *bool
	Lifetime      *float64
}

// Defaults returns a definition with every field but ID filled in.
// Catalog entries start from these values.
func Defaults() Definition {
	return Definition{
		Physics: Physics{
			Gravity:       mgl64.Vec3{0, -9.8, 0},
			AirResistance: 0.99,
			Lifetime:      10,
		},
		Visual: scene.Template{
			Geometry:   "sphere",
			Material:   "default",
			CastShadow: true,
		},
		Collision: Collision{
			Radius:       0.1,
			CheckTerrain: true,
			CheckObjects: true,
		},
		PoolSize: 50,
	}
}

// Validate checks the parameter ranges of the definition.
func (d Definition) Validate() error {
	errb := oops.Code("invalid_definition").With("definition", d.ID)

	switch {
	case d.ID == "":
		return errb.Errorf("definition id is required")
	case d.Physics.AirResistance <= 0 || d.Physics.AirResistance > 1:
		return errb.Errorf("air resistance %v outside (0,1]", d.Physics.AirResistance)
	case d.Physics.Bounciness < 0 || d.Physics.Bounciness > 1:
		return errb.Errorf("bounciness %v outside [0,1]", d.Physics.Bounciness)
	case d.Physics.Lifetime < 0:
		return errb.Errorf("lifetime %v is negative", d.Physics.Lifetime)
	case d.Collision.Radius < 0:
		return errb.Errorf("collision radius %v is negative", d.Collision.Radius)
	case d.Spread.Horizontal < 0 || d.Spread.Vertical < 0 || d.Spread.VelocityVariance < 0:
		return errb.Errorf("spread values must not be negative")
	case d.PoolSize <= 0:
		return errb.Errorf("pool size %d must be positive", d.PoolSize)
	}
	return nil
}

func (d Definition) clone() *Definition {
	c := d
	c.Collision.Layers = slices.Clone(d.Collision.Layers)
	return &c
}

// apply merges an override into a copy of p.
func (p Physics) apply(o *PhysicsOverride) Physics {
	if o == nil {
		return p
	}
	if o.Velocity != nil {
		p.Velocity = *o.Velocity
	}
	if o.Gravity != nil {
		p.Gravity = *o.Gravity
	}
	if o.AirResistance != nil {
		p.AirResistance = mgl64.Clamp(*o.AirResistance, 0, 1)
	}
	if o.Bounciness != nil {
		p.Bounciness = mgl64.Clamp(*o.Bounciness, 0, 1)
	}
	if o.StickOnHit != nil {
		p.StickOnHit = *o.StickOnHit
	}
	if o.Lifetime != nil && *o.Lifetime >= 0 {
		p.Lifetime = *o.Lifetime
	}
	return p
}
