package algo

import (
	"math/rand"
	"testing"

	"github.com/orange-dot/mapf-grid/internal/core"
)

func TestPredictorCertainBeforeNextMove(t *testing.T) {
	m := gridMap(3, 3, nil)
	w := core.NewWorld(m)
	rng := rand.New(rand.NewSource(1))
	pos := core.Position{X: 1, Y: 1}
	o := w.CreateObstacle(pos, core.NormalDistribution{Mean: 5, StdDev: 1}, rng)
	o.NextMove = w.Tick() + 5

	p := NewPredictor()
	p.UpdateObstacles(w)

	prob := p.PredictObstacle(core.PositionTime{Position: pos, Time: w.Tick()})
	if prob != 1 {
		t.Fatalf("expected certain occupancy before NextMove, got %v", prob)
	}
}

func TestPredictorDecaysAfterNextMove(t *testing.T) {
	m := gridMap(3, 3, nil)
	w := core.NewWorld(m)
	rng := rand.New(rand.NewSource(1))
	pos := core.Position{X: 1, Y: 1}
	o := w.CreateObstacle(pos, core.NormalDistribution{Mean: 1, StdDev: 0.5}, rng)
	o.NextMove = w.Tick()

	p := NewPredictor()
	p.UpdateObstacles(w)

	atMove := p.PredictObstacle(core.PositionTime{Position: pos, Time: o.NextMove})
	later := p.PredictObstacle(core.PositionTime{Position: pos, Time: o.NextMove + core.Tick(horizon)})

	if later >= atMove {
		t.Fatalf("expected occupancy probability to decay over time: at-move=%v later=%v", atMove, later)
	}

	var neighbourMass float64
	for _, d := range core.AllDirections {
		np := core.Translate(pos, d)
		neighbourMass += p.PredictObstacle(core.PositionTime{Position: np, Time: o.NextMove + core.Tick(horizon)})
	}
	if neighbourMass <= 0 {
		t.Fatalf("expected some probability mass to spread onto neighbouring cells, got %v", neighbourMass)
	}
}

func TestPredictorFieldClampedToUnitRange(t *testing.T) {
	m := gridMap(3, 3, nil)
	w := core.NewWorld(m)
	rng := rand.New(rand.NewSource(1))
	w.CreateObstacle(core.Position{X: 1, Y: 1}, core.NormalDistribution{Mean: 0, StdDev: 0}, rng)

	p := NewPredictor()
	p.UpdateObstacles(w)

	for _, v := range p.Field() {
		if v < 0 || v > 1 {
			t.Fatalf("field value out of [0, 1] range: %v", v)
		}
	}
}
