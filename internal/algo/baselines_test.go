package algo

import (
	"math/rand"
	"testing"

	"github.com/orange-dot/mapf-grid/internal/core"
)

func openMap(n int) *core.Map {
	return core.NewMap(n, n, make([]core.Tile, n*n), "open")
}

func TestGreedyMovesAgentTowardGoal(t *testing.T) {
	w := core.NewWorld(openMap(5))
	w.CreateAgent(core.Position{0, 0}, core.Position{4, 4})

	g := NewGreedy()
	rng := rand.New(rand.NewSource(42))

	action := g.GetAction(w, rng)
	if len(action.Actions) != 1 {
		t.Fatalf("expected exactly one action, got %d", len(action.Actions))
	}
}

func TestGreedySkipsAgentAtTarget(t *testing.T) {
	w := core.NewWorld(openMap(5))
	w.CreateAgent(core.Position{2, 2}, core.Position{2, 2})

	g := NewGreedy()
	rng := rand.New(rand.NewSource(1))
	action := g.GetAction(w, rng)
	if len(action.Actions) != 0 {
		t.Fatalf("expected no actions for an agent already at its target")
	}
}

func TestLRAPanicsOnZeroRecalcInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic constructing LRA with recalcInterval <= 0")
		}
	}()
	NewLRA(0)
}

func TestLRAFindsPathAndCaches(t *testing.T) {
	w := core.NewWorld(openMap(6))
	w.CreateAgent(core.Position{0, 0}, core.Position{5, 5})

	l := NewLRA(5)
	rng := rand.New(rand.NewSource(3))

	action := l.GetAction(w, rng)
	if len(action.Actions) != 1 {
		t.Fatalf("expected one action from LRA*, got %d", len(action.Actions))
	}
	if l.recalculations != 1 {
		t.Fatalf("expected exactly one recalculation on first call, got %d", l.recalculations)
	}

	action.Apply(w)
	w.NextTick(rng)
	if next := l.GetAction(w, rng); len(next.Actions) != 1 {
		t.Fatalf("expected one action from the cached path, got %d", len(next.Actions))
	}
	if l.recalculations != 1 {
		t.Fatalf("expected the cached path to be reused without recalculating, got %d recalculations", l.recalculations)
	}
}
