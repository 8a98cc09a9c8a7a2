package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/volley/internal/pool"
	"github.com/tomz197/volley/internal/projectile"
	"github.com/tomz197/volley/internal/terrain"
)

func TestMetrics_RecordLaunch(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordLaunch("arrow", true)
	m.RecordLaunch("arrow", true)
	m.RecordLaunch("arrow", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Launches.WithLabelValues("arrow", LaunchAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Launches.WithLabelValues("arrow", LaunchRejected)))
}

func TestMetrics_ObserveStatsDropsStalePools(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveStats(projectile.Stats{
		Active: 4,
		Pools: map[string]pool.Stats{
			"arrow": {Total: 10, Available: 6, InUse: 4, Peak: 5},
			"rock":  {Total: 2, Available: 2},
		},
	})
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ProjectilesActive))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.PoolInstances.WithLabelValues("arrow", "available")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.PoolInstances.WithLabelValues("arrow", "peak")))
	assert.Equal(t, 6, testutil.CollectAndCount(m.PoolInstances))

	m.ObserveStats(projectile.Stats{Pools: map[string]pool.Stats{"arrow": {}}})
	assert.Equal(t, 3, testutil.CollectAndCount(m.PoolInstances))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ProjectilesActive))
}

func TestMetrics_ObserveTick(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveTick(2 * time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.TickSeconds))
}

func TestMetrics_Instrument(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	mgr := projectile.New(projectile.Options{
		Terrain: terrain.Flat{},
		Logger:  log.New(&bytes.Buffer{}),
	})
	def := projectile.Defaults()
	def.ID = "rock"
	def.Physics.Gravity = mgl64.Vec3{}
	require.True(t, mgr.RegisterDefinition(def))

	detach := m.Instrument(mgr)

	launch := func() *projectile.Instance {
		return mgr.Launch(projectile.LaunchParams{
			DefinitionID: "rock",
			Origin:       mgl64.Vec3{0, 0.05, 0},
			Direction:    mgl64.Vec3{0, -1, 0},
			Strength:     1,
		})
	}

	require.NotNil(t, launch())
	mgr.Update(0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Hits.WithLabelValues("rock", "terrain")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Destroys.WithLabelValues("rock", "collision")))

	inst := launch()
	require.NotNil(t, inst)
	mgr.DestroyProjectile(inst.ID(), projectile.ReasonManual)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Destroys.WithLabelValues("rock", "manual")))

	detach()
	require.NotNil(t, launch())
	mgr.Update(0.01)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Hits.WithLabelValues("rock", "terrain")))
}
