package projectile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected an oops error, got %T", err)
	assert.Equal(t, code, oopsErr.Code())
}

func TestParseCatalog_FillsDefaults(t *testing.T) {
	defs, err := ParseCatalog([]byte(`
definitions:
  - id: bolt
    physics:
      bounciness: 0.3
    collision:
      layers: [walls, targets]
  - id: flare
    physics:
      gravity: [0, -1.5, 0]
      lifetime: 0
    pool_size: 4
`))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	bolt := defs[0]
	assert.Equal(t, "bolt", bolt.ID)
	assert.Equal(t, 0.3, bolt.Physics.Bounciness)
	assert.Equal(t, Defaults().Physics.Gravity, bolt.Physics.Gravity)
	assert.Equal(t, 0.99, bolt.Physics.AirResistance)
	assert.Equal(t, []string{"walls", "targets"}, bolt.Collision.Layers)
	assert.Equal(t, 0.1, bolt.Collision.Radius)
	assert.True(t, bolt.Collision.CheckTerrain)
	assert.Equal(t, "sphere", bolt.Visual.Geometry)
	assert.Equal(t, 50, bolt.PoolSize)

	flare := defs[1]
	assert.Equal(t, mgl64.Vec3{0, -1.5, 0}, flare.Physics.Gravity)
	assert.Zero(t, flare.Physics.Lifetime)
	assert.Equal(t, 4, flare.PoolSize)
}

func TestParseCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code string
	}{
		{name: "empty", yaml: "  \n", code: "invalid_catalog"},
		{name: "no definitions", yaml: "definitions: []", code: "invalid_catalog"},
		{name: "malformed", yaml: "definitions: [", code: "invalid_catalog"},
		{name: "wrong vector size", yaml: "definitions:\n  - id: a\n    physics:\n      gravity: [1, 2]", code: "invalid_catalog"},
		{name: "missing id", yaml: "definitions:\n  - pool_size: 3", code: "invalid_definition"},
		{name: "bad bounciness", yaml: "definitions:\n  - id: a\n    physics:\n      bounciness: 2", code: "invalid_definition"},
		{name: "bad air resistance", yaml: "definitions:\n  - id: a\n    physics:\n      air_resistance: 0", code: "invalid_definition"},
		{name: "negative spread", yaml: "definitions:\n  - id: a\n    spread:\n      horizontal: -1", code: "invalid_definition"},
		{name: "duplicate", yaml: "definitions:\n  - id: a\n  - id: a", code: "invalid_catalog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assertCode(t, err, tt.code)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("definitions:\n  - id: pellet\n    pool_size: 2\n"), 0o600))

	defs, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "pellet", defs[0].ID)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultCatalog(t *testing.T) {
	defs := DefaultCatalog()

	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
		assert.NoError(t, d.Validate())
	}
	assert.Equal(t, []string{"arrow", "rock", "dart"}, ids)

	f := newFixture(t, Options{})
	for _, d := range defs {
		assert.True(t, f.m.RegisterDefinition(d), d.ID)
	}
	assert.Equal(t, []string{"arrow", "dart", "rock"}, f.m.DefinitionIDs())
}

func TestDefinition_Validate(t *testing.T) {
	d := Defaults()
	d.ID = "ok"
	assert.NoError(t, d.Validate())

	d.PoolSize = 0
	assertCode(t, d.Validate(), "invalid_definition")

	d = Defaults()
	d.ID = "neg"
	d.Physics.Lifetime = -1
	assertCode(t, d.Validate(), "invalid_definition")
}

func TestPhysics_ApplyClampsOverrides(t *testing.T) {
	base := Defaults().Physics
	air, bounce, life := 3.0, -1.0, -5.0
	got := base.apply(&PhysicsOverride{AirResistance: &air, Bounciness: &bounce, Lifetime: &life})

	assert.Equal(t, 1.0, got.AirResistance)
	assert.Equal(t, 0.0, got.Bounciness)
	assert.Equal(t, base.Lifetime, got.Lifetime, "negative lifetime override is ignored")
	assert.Equal(t, base, base.apply(nil))
}
