package algo

import (
	"github.com/orange-dot/mapf-grid/internal/core"
)

// horizon is how many ticks ahead the predictor bothers projecting
// obstacle occupancy; beyond this the field is treated as zero, same
// as the original's implicit cutoff once an obstacle's move probability
// saturates.
const horizon = 8

// Predictor is a space-time occupancy probability field: for every
// (position, future tick) within its horizon, it estimates the chance
// a stochastic obstacle will be standing there. Planners use it two
// ways: as a soft cost (steer around likely-occupied cells) and, above
// a threshold, as a hard passability gate. It is rebuilt from scratch
// on every UpdateObstacles call so it never drifts from the world it
// describes, and is deterministic given the same world and the same
// internal obstacle history (NextMove/MoveDistrib carried on each
// core.Obstacle already fixes that history).
//
// Grounded on the gradient/normalised-field pattern used by the
// teacher's potential-field code, generalised from a position-keyed
// field to a position-time-keyed one, and on the predicted_cost/
// predict_obstacle call sites in the original operator_decomposition.
type Predictor struct {
	field map[core.PositionTime]float64
}

// NewPredictor creates an empty predictor; call UpdateObstacles before
// querying it.
func NewPredictor() *Predictor {
	return &Predictor{field: make(map[core.PositionTime]float64)}
}

// UpdateObstacles recomputes the field from w's current obstacles.
func (p *Predictor) UpdateObstacles(w *core.World) {
	field := make(map[core.PositionTime]float64)
	now := w.Tick()

	for pos, o := range w.Obstacles() {
		spreadObstacle(field, pos, o, now, w.Map())
	}

	p.field = normalizeField(field)
}

// spreadObstacle adds pos's contribution to field across the horizon:
// certain occupancy of pos until the obstacle's scheduled NextMove,
// then a probability mass that grows over time (per its move-delay
// CDF) and is split evenly across the cells it could step to.
func spreadObstacle(field map[core.PositionTime]float64, pos core.Position, o *core.Obstacle, now core.Tick, m *core.Map) {
	reachable := make([]core.Position, 0, 4)
	for _, d := range core.AllDirections {
		np := core.Translate(pos, d)
		if core.InBounds(np, m) && core.Traversable(m.Get(np)) {
			reachable = append(reachable, np)
		}
	}

	for dt := 0; dt <= horizon; dt++ {
		t := now + core.Tick(dt)
		pt := core.PositionTime{Position: pos, Time: t}

		if t < o.NextMove {
			field[pt] += 1.0
			continue
		}

		// Probability the obstacle has moved away by tick t, drawn
		// from how far past NextMove we are, using the move
		// distribution's CDF as a proxy for "has it left yet".
		moved := o.MoveDistrib.CDF(float64(t - o.NextMove))
		field[pt] += 1.0 - moved

		if moved > 0 && len(reachable) > 0 {
			share := moved / float64(len(reachable))
			for _, np := range reachable {
				field[core.PositionTime{Position: np, Time: t}] += share
			}
		}
	}
}

// normalizeField clamps every probability to [0, 1], mirroring the
// teacher's normalizeField for potential fields.
func normalizeField(field map[core.PositionTime]float64) map[core.PositionTime]float64 {
	out := make(map[core.PositionTime]float64, len(field))
	for pt, v := range field {
		if v > 1 {
			v = 1
		}
		if v < 0 {
			v = 0
		}
		out[pt] = v
	}
	return out
}

// PredictObstacle returns the estimated occupancy probability of pt,
// or 0 if it falls outside the field (beyond the horizon, or never
// touched by any obstacle).
func (p *Predictor) PredictObstacle(pt core.PositionTime) float64 {
	return p.field[pt]
}

// Field exposes the full computed field, e.g. for the visualiser's
// overlay or for solver.GetObstacleField().
func (p *Predictor) Field() map[core.PositionTime]float64 {
	return p.field
}
