package host

import (
	"context"
	"testing"

	"github.com/orange-dot/mapf-grid/internal/algo"
	"github.com/orange-dot/mapf-grid/internal/core"
)

func TestRunSolvesSimpleWorld(t *testing.T) {
	m := core.NewMap(4, 4, make([]core.Tile, 16), "test")
	w := core.NewWorld(m)
	w.CreateAgent(core.Position{0, 0}, core.Position{0, 0})

	h := New(Config{World: w, Solver: algo.NewGreedy(), MaxTicks: 10, Seed: 1})
	metrics, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !metrics.Solved {
		t.Fatalf("expected already-solved world to report solved")
	}
	if metrics.Ticks != 0 {
		t.Fatalf("expected 0 ticks for an already-solved world, got %d", metrics.Ticks)
	}
}

func TestRunRespectsMaxTicks(t *testing.T) {
	m := core.NewMap(10, 10, make([]core.Tile, 100), "test")
	w := core.NewWorld(m)
	w.CreateAgent(core.Position{0, 0}, core.Position{9, 9})

	h := New(Config{World: w, Solver: algo.NewGreedy(), MaxTicks: 3, Seed: 2})
	metrics, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metrics.Ticks != 3 {
		t.Fatalf("expected exactly MaxTicks ticks, got %d", metrics.Ticks)
	}
}
