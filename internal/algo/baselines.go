package algo

import (
	"math/rand"
	"strconv"

	"github.com/orange-dot/mapf-grid/internal/core"
)

// Greedy moves each agent one step toward its goal, with no
// coordination between agents beyond processing them in a random
// order and rejecting moves onto cells another already-placed agent
// has just taken. Grounded on greedy::get_action in solvers.cpp.
type Greedy struct{}

func NewGreedy() *Greedy { return &Greedy{} }

func (g *Greedy) Name() string { return "Greedy" }

func (g *Greedy) GetAction(w *core.World, rng *rand.Rand) core.JointAction {
	positions := make([]core.Position, 0)
	for p := range w.Agents() {
		positions = append(positions, p)
	}
	rng.Shuffle(len(positions), func(i, j int) { positions[i], positions[j] = positions[j], positions[i] })

	working := w.Clone()
	var result core.JointAction

	for _, pos := range positions {
		a, ok := working.GetAgent(pos)
		if !ok {
			continue // moved already as part of an earlier agent's step this tick
		}
		if pos == a.Target {
			continue
		}

		if rng.Float64() < 0.01 {
			tryRandomMove(pos, working, &result, rng)
			continue
		}

		dx := a.Target.X - pos.X
		dy := a.Target.Y - pos.Y

		var d core.Direction
		if abs(dx) > abs(dy) {
			if dx > 0 {
				d = core.East
			} else {
				d = core.West
			}
		} else {
			if dy > 0 {
				d = core.South
			} else {
				d = core.North
			}
		}

		act := core.Action{From: pos, Dir: d}
		if core.Valid(act, working) {
			result.Add(act)
			working.MoveAgent(pos, core.Translate(pos, d))
		} else {
			tryRandomMove(pos, working, &result, rng)
		}
	}

	return result
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func tryRandomMove(from core.Position, w *core.World, result *core.JointAction, rng *rand.Rand) {
	d := core.AllDirections[rng.Intn(4)]
	act := core.Action{From: from, Dir: d}
	if core.Valid(act, w) {
		result.Add(act)
		w.MoveAgent(from, core.Translate(from, d))
	}
}

func (g *Greedy) StatNames() []string                                { return nil }
func (g *Greedy) StatValues() []string                                { return nil }
func (g *Greedy) GetPath(core.AgentID) []core.Position                { return nil }
func (g *Greedy) GetObstacleField() map[core.PositionTime]float64     { return nil }
func (g *Greedy) SetWindow(uint)                                      {}

// LRA (Local Repair A*) keeps one cached path per agent, recomputing it
// whenever its next step is no longer valid. Grounded on
// separate_paths_solver/lra::find_path in solvers.cpp, with the
// agitation extension from spec.md: a recompute that happens within
// recalcInterval ticks of the agent's previous recompute inflates the
// heuristic by a uniform draw in [0, agitation], which itself grows by
// 5/recalcInterval each time agitation triggers, encouraging the agent
// to take a visibly different route rather than thrash on the same
// blocked cell. recalcInterval must be > 0: the original asserts this
// rather than clamping it, and so do we (REDESIGN FLAGS, DESIGN.md).
type LRA struct {
	recalcInterval core.Tick

	paths       map[core.Position][]core.Direction // keyed by agent's current position
	lastRecalc  map[core.AgentID]core.Tick
	agitation   map[core.AgentID]float64

	timesWithoutPath int
	recalculations   int
	pathInvalid      int
	nodes            int
}

// NewLRA creates an LRA* solver; recalcInterval must be > 0.
func NewLRA(recalcInterval core.Tick) *LRA {
	if recalcInterval <= 0 {
		panic("algo: LRA recalcInterval must be > 0")
	}
	return &LRA{
		recalcInterval: recalcInterval,
		paths:          make(map[core.Position][]core.Direction),
		lastRecalc:     make(map[core.AgentID]core.Tick),
		agitation:      make(map[core.AgentID]float64),
	}
}

func (l *LRA) Name() string { return "LRA*" }

func (l *LRA) GetAction(w *core.World, rng *rand.Rand) core.JointAction {
	var result core.JointAction
	working := w.Clone()

	for _, pos := range sortedAgentPositions(w) {
		a, ok := working.GetAgent(pos)
		if !ok {
			continue
		}
		if pos == a.Target {
			delete(l.paths, pos)
			continue
		}

		path, ok := l.paths[pos]
		if ok && len(path) > 0 {
			if !core.Valid(core.Action{From: pos, Dir: path[len(path)-1]}, working) {
				path = l.recalculate(a, pos, working, rng)
			}
		} else {
			path = l.recalculate(a, pos, working, rng)
		}

		if len(path) == 0 {
			l.timesWithoutPath++
			continue
		}

		d := path[len(path)-1]
		act := core.Action{From: pos, Dir: d}
		if !core.Valid(act, working) {
			l.pathInvalid++
			continue
		}

		result.Add(act)
		newPos := core.Translate(pos, d)
		working.MoveAgent(pos, newPos)
		path = path[:len(path)-1]
		delete(l.paths, pos)
		l.paths[newPos] = path
	}

	return result
}

// recalculate finds a fresh path for the agent currently at pos,
// applying the agitation penalty if this recompute falls within
// recalcInterval ticks of the previous one for this agent.
func (l *LRA) recalculate(a *core.Agent, pos core.Position, w *core.World, rng *rand.Rand) []core.Direction {
	l.recalculations++

	now := w.Tick()
	agitation := l.agitation[a.ID()]
	if last, ok := l.lastRecalc[a.ID()]; ok && now-last < l.recalcInterval {
		agitation += 5.0 / float64(l.recalcInterval)
	}
	l.agitation[a.ID()] = agitation
	l.lastRecalc[a.ID()] = now

	penalty := 0.0
	if agitation > 0 {
		penalty = rng.Float64() * agitation
	}

	m := w.Map()
	search := &Search[core.Position]{
		Start: pos,
		Successors: func(s core.Position) []Successor[core.Position] {
			out := make([]Successor[core.Position], 0, 4)
			for _, d := range core.AllDirections {
				np := core.Translate(s, d)
				if !core.InBounds(np, m) {
					continue
				}
				// Only the agent's own immediate neighbour cells must
				// be unoccupied by another agent/obstacle; further
				// cells are judged purely on the static map, matching
				// lra::find_path's impassable_immediate_neighbour.
				if core.Neighbours(np, pos) && w.Get(np) != core.Free {
					continue
				}
				if !core.Traversable(m.Get(np)) {
					continue
				}
				out = append(out, Successor[core.Position]{State: np, Cost: 1})
			}
			return out
		},
		IsGoal:    func(s core.Position) bool { return s == a.Target },
		Heuristic: func(s core.Position) float64 { return float64(core.Distance(s, a.Target)) + penalty },
	}

	res := search.FindPath()
	l.nodes += res.NodesExpanded

	if len(res.Path) == 0 {
		return nil
	}
	dirs := make([]core.Direction, len(res.Path))
	prev := pos
	for i, p := range res.Path {
		d, _ := core.DirectionTo(prev, p)
		dirs[len(dirs)-1-i] = d
		prev = p
	}
	return dirs
}

func (l *LRA) StatNames() []string {
	return []string{"times_without_path", "recalculations", "path_invalid", "nodes"}
}

func (l *LRA) StatValues() []string {
	return []string{
		strconv.Itoa(l.timesWithoutPath),
		strconv.Itoa(l.recalculations),
		strconv.Itoa(l.pathInvalid),
		strconv.Itoa(l.nodes),
	}
}

func (l *LRA) GetPath(core.AgentID) []core.Position            { return nil }
func (l *LRA) GetObstacleField() map[core.PositionTime]float64 { return nil }
func (l *LRA) SetWindow(uint)                                  {}
