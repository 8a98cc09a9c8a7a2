package pool

import (
	"bytes"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type item struct {
	serial int
	dirty  bool
}

func newItemPool(initial, limit int, grow bool, logger Logger) (*Pool[*item], *int) {
	created := 0
	if logger == nil {
		logger = log.New(io.Discard)
	}
	p := New(Config[*item]{
		Initial: initial,
		Max:     limit,
		Grow:    grow,
		New: func() *item {
			created++
			return &item{serial: created}
		},
		Reset: func(it *item) {
			it.dirty = false
		},
		Logger: logger,
	})
	return p, &created
}

func TestPool_GrowthScenario(t *testing.T) {
	p, created := newItemPool(2, 5, true, nil)
	require.Equal(t, 2, *created)

	a, ok := p.Get()
	require.True(t, ok)
	b, ok := p.Get()
	require.True(t, ok)
	assert.NotSame(t, a, b)
	assert.True(t, p.InUse(a))
	assert.True(t, p.InUse(b))

	c, ok := p.Get()
	require.True(t, ok)
	assert.Equal(t, 3, *created, "third Get should grow the pool")

	p.Release(a)
	p.Release(b)
	p.Release(c)

	assert.Equal(t, Stats{Total: 3, Available: 3, InUse: 0, Peak: 3}, p.Stats())
}

func TestPool_GetWithoutGrowth(t *testing.T) {
	p, _ := newItemPool(1, 5, false, nil)

	_, ok := p.Get()
	require.True(t, ok)

	v, ok := p.Get()
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestPool_GetStopsAtCap(t *testing.T) {
	p, created := newItemPool(0, 2, true, nil)

	_, ok := p.Get()
	require.True(t, ok)
	_, ok = p.Get()
	require.True(t, ok)
	_, ok = p.Get()
	assert.False(t, ok)
	assert.Equal(t, 2, *created)
	assert.Equal(t, 2, p.Stats().Peak)
}

func TestPool_UnlimitedWhenMaxIsZero(t *testing.T) {
	p, _ := newItemPool(0, 0, true, nil)

	for i := 0; i < 100; i++ {
		_, ok := p.Get()
		require.True(t, ok)
	}
	assert.Equal(t, 100, p.Stats().InUse)
}

func TestPool_ReleaseResetsInstance(t *testing.T) {
	p, _ := newItemPool(1, 1, true, nil)

	v, ok := p.Get()
	require.True(t, ok)
	v.dirty = true

	p.Release(v)
	assert.False(t, v.dirty)

	again, ok := p.Get()
	require.True(t, ok)
	assert.Same(t, v, again)
}

func TestPool_DoubleReleaseIsLoggedNoop(t *testing.T) {
	var buf bytes.Buffer
	p, _ := newItemPool(0, 4, true, log.New(&buf))

	v, ok := p.Get()
	require.True(t, ok)
	p.Release(v)
	p.Release(v)

	assert.Equal(t, Stats{Total: 1, Available: 1, InUse: 0, Peak: 1}, p.Stats())
	assert.Contains(t, buf.String(), "not in use")
}

func TestPool_ForeignReleaseIsIgnored(t *testing.T) {
	var buf bytes.Buffer
	p, _ := newItemPool(1, 4, true, log.New(&buf))

	p.Release(&item{serial: 99})

	assert.Equal(t, Stats{Total: 1, Available: 1, InUse: 0, Peak: 0}, p.Stats())
	assert.NotEmpty(t, buf.String())
}

func TestPool_ReleaseAtCapacityDropsInstance(t *testing.T) {
	p, _ := newItemPool(0, 2, true, nil)

	a, _ := p.Get()
	b, _ := p.Get()
	p.Release(a)

	// Only reachable when the available list is already full, e.g. after
	// instances were handed back by another owner.
	p.available = append(p.available, &item{serial: 42})
	p.Release(b)

	assert.Equal(t, 2, p.Stats().Available)
	assert.False(t, p.InUse(b))
}

func TestPool_Preallocate(t *testing.T) {
	p, created := newItemPool(0, 8, true, nil)

	p.Preallocate(5)
	assert.Equal(t, 5, *created)

	_, _ = p.Get()
	p.Preallocate(5)
	assert.Equal(t, 5, *created, "in-use instances count toward the total")

	p.Preallocate(50)
	assert.Equal(t, 8, p.Stats().Total)
}

func TestPool_Clear(t *testing.T) {
	p, _ := newItemPool(3, 5, true, nil)

	v, _ := p.Get()
	p.Clear()

	assert.Equal(t, Stats{}, p.Stats())

	p.Release(v)
	assert.Equal(t, Stats{}, p.Stats())
}

func TestPool_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(0, 8).Draw(t, "max")
		initial := rapid.IntRange(0, 10).Draw(t, "initial")
		grow := rapid.Bool().Draw(t, "grow")

		p, _ := newItemPool(initial, limit, grow, nil)
		var held []*item

		t.Repeat(map[string]func(*rapid.T){
			"get": func(t *rapid.T) {
				if v, ok := p.Get(); ok {
					held = append(held, v)
				}
			},
			"release": func(t *rapid.T) {
				if len(held) == 0 {
					t.Skip("nothing held")
				}
				i := rapid.IntRange(0, len(held)-1).Draw(t, "index")
				p.Release(held[i])
				held = append(held[:i], held[i+1:]...)
			},
			"double-release": func(t *rapid.T) {
				v, ok := p.Get()
				if !ok {
					t.Skip("pool empty")
				}
				p.Release(v)
				p.Release(v)
			},
			"preallocate": func(t *rapid.T) {
				p.Preallocate(rapid.IntRange(0, 12).Draw(t, "n"))
			},
			"": func(t *rapid.T) {
				for _, v := range p.available {
					if p.InUse(v) {
						t.Fatalf("instance %d both available and in use", v.serial)
					}
				}
				stats := p.Stats()
				if limit > 0 && stats.Total > limit {
					t.Fatalf("total %d exceeds max %d", stats.Total, limit)
				}
				if stats.InUse != len(held) {
					t.Fatalf("in use %d, held %d", stats.InUse, len(held))
				}
				if stats.Peak < stats.InUse {
					t.Fatalf("peak %d below in use %d", stats.Peak, stats.InUse)
				}
			},
		})
	})
}
