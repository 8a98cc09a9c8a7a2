package main

import (
	"fmt"
	"io"
	mrand "math/rand/v2"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tomz197/volley/internal/loop/config"
	"github.com/tomz197/volley/internal/loop/server"
	"github.com/tomz197/volley/internal/observability"
	"github.com/tomz197/volley/internal/projectile"
)

type benchOptions struct {
	catalog string
	ticks   int
	dt      time.Duration
	rate    float64
	clients int
	seed    uint64
	metrics bool
}

// benchResult is what a headless run produced.
type benchResult struct {
	sent     int
	rejected int
	hits     int
	elapsed  time.Duration
	snapshot *server.WorldSnapshot
}

// NewBenchCmd creates the bench subcommand.
func NewBenchCmd() *cobra.Command {
	opts := benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the simulation headless with bot launchers",
		Long: `Runs the game server without terminals. Bots sit on the launcher
ring and fire at the targets at a fixed rate, cycling through the
catalog. Prints pool, manager and target statistics when done.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "projectile catalog (default: built-in)")
	cmd.Flags().IntVar(&opts.ticks, "ticks", 600, "ticks to simulate")
	cmd.Flags().DurationVar(&opts.dt, "dt", config.ServerTickTime, "simulated time per tick")
	cmd.Flags().Float64Var(&opts.rate, "rate", 4, "launches per second per bot")
	cmd.Flags().IntVar(&opts.clients, "clients", 4, "number of bots")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "seed for spread and bot aim")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "print the Prometheus metrics at the end")

	return cmd
}

func runBench(cmd *cobra.Command, opts benchOptions) error {
	if opts.ticks <= 0 || opts.dt <= 0 || opts.clients <= 0 || opts.rate < 0 {
		return oops.Code("invalid_flags").
			With("ticks", opts.ticks).
			With("dt", opts.dt).
			With("clients", opts.clients).
			With("rate", opts.rate).
			Errorf("ticks, dt and clients must be positive and rate non-negative")
	}
	logger := newLogger(cmd)

	catalog := projectile.DefaultCatalog()
	if opts.catalog != "" {
		var err error
		if catalog, err = projectile.LoadCatalog(opts.catalog); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	gs := server.NewServer(server.Options{
		Catalog: catalog,
		Logger:  logger,
		Metrics: observability.NewMetrics(registry),
		Seed:    opts.seed,
	})

	res := bench(gs, opts)
	logger.Info("bench finished", "ticks", opts.ticks, "elapsed", res.elapsed)

	out := cmd.OutOrStdout()
	printBench(out, opts, res)
	if opts.metrics {
		families, err := registry.Gather()
		if err != nil {
			return err
		}
		enc := expfmt.NewEncoder(out, expfmt.NewFormat(expfmt.TypeTextPlain))
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return err
			}
		}
	}
	return nil
}

// bench drives gs with bots for opts.ticks ticks.
func bench(gs *server.Server, opts benchOptions) benchResult {
	rng := mrand.New(mrand.NewPCG(opts.seed, opts.seed+1))
	defs := gs.Definitions()

	bots := make([]*server.ClientHandle, opts.clients)
	for i := range bots {
		bots[i] = gs.RegisterClient(fmt.Sprintf("bot-%d", i+1))
		// Registrations are picked up by the tick.
		gs.Step(0)
	}

	var res benchResult
	drain := func() {
		for _, bot := range bots {
			for drained := false; !drained; {
				select {
				case ev := <-bot.EventsCh:
					switch ev.Type {
					case server.EventHit:
						res.hits++
					case server.EventRejected:
						res.rejected++
					}
				default:
					drained = true
				}
			}
		}
	}

	start := time.Now()
	budget := 0.0
	for tick := 0; tick < opts.ticks; tick++ {
		budget += opts.rate * opts.dt.Seconds()
		for ; budget >= 1 && len(defs) > 0; budget-- {
			for i, bot := range bots {
				gs.Send(server.Command{
					ClientID:     bot.ID,
					Type:         server.CommandLaunch,
					DefinitionID: defs[(res.sent+i)%len(defs)],
					Yaw:          bot.AimYaw + (rng.Float64()-0.5)*0.3,
					Pitch:        0.05 + rng.Float64()*0.4,
					Strength:     15 + rng.Float64()*20,
				})
			}
			res.sent += len(bots)
		}
		gs.Step(opts.dt)
		drain()
	}
	res.elapsed = time.Since(start)
	res.snapshot = gs.GetSnapshot()

	for _, bot := range bots {
		gs.UnregisterClient(bot.ID)
	}
	gs.Step(0)
	return res
}

func printBench(w io.Writer, opts benchOptions, res benchResult) {
	snap := res.snapshot
	simulated := time.Duration(opts.ticks) * opts.dt
	rate := float64(opts.ticks) / max(res.elapsed.Seconds(), 1e-9)

	fmt.Fprintf(w, "ticks      %d (%s simulated) in %s, %.0f ticks/s\n", opts.ticks, simulated, res.elapsed.Round(time.Microsecond), rate)
	fmt.Fprintf(w, "launches   sent %d rejected %d\n", res.sent, res.rejected)
	fmt.Fprintf(w, "hits       %d\n", res.hits)
	fmt.Fprintf(w, "active     %d\n\n", snap.Stats.Active)

	fmt.Fprintf(w, "%-12s %6s %6s %6s %6s\n", "POOL", "TOTAL", "AVAIL", "INUSE", "PEAK")
	for _, id := range sortedPools(snap.Stats) {
		ps := snap.Stats.Pools[id]
		fmt.Fprintf(w, "%-12s %6d %6d %6d %6d\n", id, ps.Total, ps.Available, ps.InUse, ps.Peak)
	}

	fmt.Fprintf(w, "\n%-12s %6s\n", "TARGET", "HITS")
	for _, t := range snap.Targets {
		fmt.Fprintf(w, "%-12s %6d\n", t.Name, t.Hits)
	}
}

func sortedPools(stats projectile.Stats) []string {
	ids := lo.Keys(stats.Pools)
	slices.Sort(ids)
	return ids
}
