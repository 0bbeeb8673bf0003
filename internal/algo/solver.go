package algo

import (
	"math/rand"
	"sort"

	"github.com/orange-dot/mapf-grid/internal/core"
)

// Solver is the interface every planner (Greedy, LRA*, WHCA*, Operator
// Decomposition) implements, grounded on the original abstract solver
// base plus operator_decomposition's push-style step override. Only
// GetAction is part of Solver, so host drives every planner the same
// way; OD's GetAction delegates to its own Step, which does its
// per-tick bookkeeping and is not part of this interface.
type Solver interface {
	Name() string

	// GetAction computes the joint action for the current tick without
	// mutating w.
	GetAction(w *core.World, rng *rand.Rand) core.JointAction

	// StatNames/StatValues report the solver's running counters (nodes
	// expanded, recalculations, times without a path, ...) as parallel
	// string slices, matching the original's stat_names()/stat_values().
	StatNames() []string
	StatValues() []string

	// GetPath returns the planner's current best-known path for id, if
	// it tracks one (WHCA* and OD do; Greedy does not).
	GetPath(id core.AgentID) []core.Position

	// GetObstacleField exposes the predictor field backing this
	// planner's decisions, for visualisation; nil if the planner
	// doesn't use one (Greedy, LRA*).
	GetObstacleField() map[core.PositionTime]float64

	// SetWindow configures the planning horizon for windowed planners
	// (WHCA*, OD); a no-op for Greedy/LRA*.
	SetWindow(window uint)
}

// sortedAgentPositions returns the positions of w's agents sorted by
// AgentID, for planners that must process agents in a deterministic
// order (the original iterates a std::map keyed by id for this reason).
func sortedAgentPositions(w *core.World) []core.Position {
	byID := make(map[core.AgentID]core.Position)
	for p, a := range w.Agents() {
		byID[a.ID()] = p
	}
	ids := make([]core.AgentID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]core.Position, len(ids))
	for i, id := range ids {
		out[i] = byID[id]
	}
	return out
}
