package core

import (
	"math/rand"
	"testing"
)

func smallMap() *Map {
	// 3x3 all free.
	tiles := make([]Tile, 9)
	return NewMap(3, 3, tiles, "test.map")
}

func TestPutGetRemoveAgent(t *testing.T) {
	w := NewWorld(smallMap())
	a := w.CreateAgent(Position{0, 0}, Position{2, 2})

	if w.Get(Position{0, 0}) != Agent {
		t.Fatalf("expected Agent tile at (0,0)")
	}
	got, ok := w.GetAgent(Position{0, 0})
	if !ok || got.ID() != a.ID() {
		t.Fatalf("GetAgent mismatch")
	}

	w.RemoveAgent(Position{0, 0})
	if w.Get(Position{0, 0}) != Free {
		t.Fatalf("expected Free after RemoveAgent")
	}
}

func TestPutAgentPanicsOnOccupied(t *testing.T) {
	w := NewWorld(smallMap())
	w.CreateAgent(Position{1, 1}, Position{0, 0})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic placing agent on occupied cell")
		}
	}()
	w.CreateAgent(Position{1, 1}, Position{0, 0})
}

func TestGetReportsObstacleTile(t *testing.T) {
	w := NewWorld(smallMap())
	rng := rand.New(rand.NewSource(1))
	w.CreateObstacle(Position{1, 1}, NormalDistribution{Mean: 5, StdDev: 1}, rng)

	if w.Get(Position{1, 1}) != Obstacle {
		t.Fatalf("expected Obstacle before agent placed")
	}
}

func TestNextTickMovesDueObstacles(t *testing.T) {
	w := NewWorld(smallMap())
	rng := rand.New(rand.NewSource(7))
	o := w.CreateObstacle(Position{1, 1}, NormalDistribution{Mean: 0, StdDev: 0}, rng)
	_ = o

	before := w.tick
	w.NextTick(rng)
	if w.tick != before+1 {
		t.Fatalf("tick did not advance")
	}
	if _, still := w.GetObstacle(Position{1, 1}); still {
		t.Fatalf("expected the due obstacle to leave (1,1)")
	}
}

func TestSolved(t *testing.T) {
	w := NewWorld(smallMap())
	w.CreateAgent(Position{0, 0}, Position{0, 0})
	if !Solved(w) {
		t.Fatalf("expected solved when agent already at target")
	}

	w2 := NewWorld(smallMap())
	w2.CreateAgent(Position{0, 0}, Position{2, 2})
	if Solved(w2) {
		t.Fatalf("expected not solved")
	}
}

func TestDistanceAndNeighbours(t *testing.T) {
	if Distance(Position{0, 0}, Position{2, 3}) != 5 {
		t.Fatalf("wrong manhattan distance")
	}
	if !Neighbours(Position{1, 1}, Position{1, 2}) {
		t.Fatalf("expected neighbours")
	}
	if Neighbours(Position{1, 1}, Position{2, 2}) {
		t.Fatalf("diagonal should not be neighbours")
	}
}
