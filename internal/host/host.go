// Package host drives a World through ticks using a chosen algo.Solver,
// applying the resulting joint action and advancing obstacles, and
// collecting simple run metrics. Grounded on internal/sim/simulator.go's
// Simulator (mutex-guarded state, a SimulationConfig struct, Run(ctx),
// periodic verbose progress logging) retargeted from continuous-time
// task scheduling onto this system's discrete tick/joint-action loop.
package host

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/orange-dot/mapf-grid/internal/algo"
	"github.com/orange-dot/mapf-grid/internal/core"
)

// Config configures a Run.
type Config struct {
	World *core.World
	Solver algo.Solver

	// MaxTicks bounds the run; zero means run until Solved or ctx is done.
	MaxTicks core.Tick

	Seed int64

	// Verbose enables periodic progress logging through the standard
	// log package, matching cmd/mapfhetvis/main.go's use of it.
	Verbose bool
}

// Metrics collects simple run statistics.
type Metrics struct {
	StartTime time.Time
	EndTime   time.Time
	Ticks     core.Tick
	Solved    bool
}

// Host runs one Config to completion.
type Host struct {
	mu sync.Mutex

	config  Config
	rng     *rand.Rand
	metrics Metrics
}

// New creates a Host for the given config.
func New(config Config) *Host {
	return &Host{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Run drives the tick loop until the world is solved, MaxTicks is
// reached (if nonzero), or ctx is cancelled.
func (h *Host) Run(ctx context.Context) (Metrics, error) {
	h.mu.Lock()
	h.metrics.StartTime = time.Now()
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			h.finish()
			return h.Metrics(), ctx.Err()
		default:
		}

		if core.Solved(h.config.World) {
			h.mu.Lock()
			h.metrics.Solved = true
			h.mu.Unlock()
			break
		}
		if h.config.MaxTicks > 0 && h.metrics.Ticks >= h.config.MaxTicks {
			break
		}

		h.step()

		if h.config.Verbose && h.metrics.Ticks%50 == 0 {
			log.Printf("tick %d: solved=%v", h.metrics.Ticks, core.Solved(h.config.World))
		}
	}

	h.finish()
	return h.Metrics(), nil
}

func (h *Host) step() {
	h.mu.Lock()
	defer h.mu.Unlock()

	action := h.config.Solver.GetAction(h.config.World, h.rng)
	if !action.Valid(h.config.World) {
		panic(fmt.Sprintf("host: solver %s returned an invalid joint action", h.config.Solver.Name()))
	}
	action.Apply(h.config.World)
	h.config.World.NextTick(h.rng)
	h.metrics.Ticks++
}

func (h *Host) finish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics.EndTime = time.Now()
}

// Metrics returns a snapshot of the run's metrics so far.
func (h *Host) Metrics() Metrics {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.metrics
}
