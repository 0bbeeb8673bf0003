package algo

import (
	"math/rand"
	"strconv"

	"github.com/orange-dot/mapf-grid/internal/core"
)

// spaceTimeState is the state type for windowed space-time search: a
// position plus the tick at which the agent is there.
type spaceTimeState struct {
	pos core.Position
	t   core.Tick
}

// WHCA is windowed hierarchical cooperative A*: each agent plans a
// bounded-horizon space-time path against a shared reservation table,
// first trying a short "rejoin" detour back onto its previous path and
// falling back to a fresh windowed search, treating the predictor's
// high-probability cells as impassable the same way static obstacles
// are. Grounded on cooperative_a_star::find_path in solvers.cpp for the
// reserve/search/permanent-park shape, extended per spec.md with a
// window bound, rejoin, and predictor gating (none of which the kept
// C++ snapshot has — see DESIGN.md's Open Question notes).
type WHCA struct {
	window      uint
	rejoinLimit uint

	predictor          *Predictor
	predictorThreshold float64

	reservations *ReservationTable
	heuristics   map[core.AgentID]*HeuristicSearch
	paths        map[core.AgentID][]core.Position // forward order, current position excluded

	nodes int
}

// NewWHCA creates a WHCA* planner with the given window (0 = unbounded,
// i.e. plan all the way to the goal every time), predictor occupancy
// threshold above which a cell is treated as impassable, and a rejoin
// detour bound of rejoinLimit steps (§4.6 step 3).
func NewWHCA(window uint, predictorThreshold float64) *WHCA {
	return &WHCA{
		window:             window,
		rejoinLimit:        window,
		predictor:          NewPredictor(),
		predictorThreshold: predictorThreshold,
		reservations:       NewReservationTable(),
		heuristics:         make(map[core.AgentID]*HeuristicSearch),
		paths:              make(map[core.AgentID][]core.Position),
	}
}

// SetRejoinLimit overrides the default rejoin detour bound (which
// otherwise equals the planning window).
func (p *WHCA) SetRejoinLimit(limit uint) { p.rejoinLimit = limit }

func (p *WHCA) Name() string { return "WHCA*" }

func (p *WHCA) SetWindow(w uint) { p.window = w }

func (p *WHCA) GetAction(w *core.World, rng *rand.Rand) core.JointAction {
	p.predictor.UpdateObstacles(w)

	// Fresh heuristic searches and a fresh reservation table every
	// round: the map and agent set can only be assumed stable for one
	// tick, per spec.md's "rebuild on each tick from a fresh snapshot".
	p.heuristics = make(map[core.AgentID]*HeuristicSearch)
	p.reservations = NewReservationTable()

	now := w.Tick()
	positions := sortedAgentPositions(w)
	rng.Shuffle(len(positions), func(i, j int) { positions[i], positions[j] = positions[j], positions[i] })

	// Pre-reserve every agent's current cell as a self-owned permanent
	// reservation before anyone is planned. An agent processed earlier
	// in the shuffled order then correctly sees a not-yet-processed
	// agent's cell as occupied (instead of wrongly treating it as free
	// because that agent hasn't committed a move yet); planOne releases
	// this pre-reservation for its own agent the moment it starts
	// planning, matching cooperative A*'s standard ordering fix.
	for _, pos := range positions {
		if a, ok := w.GetAgent(pos); ok {
			p.reservations.Reserve(int(a.ID()), pos, nil, now)
		}
	}

	// working tracks which cells this tick's already-committed moves have
	// vacated: the reservation table only tracks future (t > now) cells,
	// not an agent's own current cell once it moves away, so a later
	// agent in the shuffled order legitimately stepping into an earlier
	// agent's just-vacated cell needs a real (not reservation-based)
	// Valid check against a world that reflects those prior moves.
	working := w.Clone()
	var result core.JointAction

	for _, pos := range positions {
		a, ok := w.GetAgent(pos)
		if !ok {
			continue
		}
		if pos == a.Target {
			continue
		}

		path := p.planOne(a, pos, w, now)
		p.paths[a.ID()] = path

		if len(path) == 0 {
			continue
		}

		d, ok := core.DirectionTo(pos, path[0])
		if !ok {
			continue
		}
		act := core.Action{From: pos, Dir: d}
		if core.Valid(act, working) {
			result.Add(act)
			working.MoveAgent(pos, path[0])
		}
	}

	return result
}

// planOne plans one agent's path for this tick: release its own prior
// reservations, try a bounded rejoin detour back onto last tick's path,
// and fall back to a fresh windowed search to the goal. Returns the new
// path (excluding pos itself) and reserves it.
func (p *WHCA) planOne(a *core.Agent, pos core.Position, w *core.World, now core.Tick) []core.Position {
	p.reservations.Unreserve(int(a.ID()))

	hs, ok := p.heuristics[a.ID()]
	if !ok {
		hs = NewHeuristicSearch(a.Target, w.Map())
		p.heuristics[a.ID()] = hs
	}

	m := w.Map()

	successors := func(s spaceTimeState) []Successor[spaceTimeState] {
		out := make([]Successor[spaceTimeState], 0, 5)
		// Waiting in place is always a candidate successor.
		out = append(out, Successor[spaceTimeState]{State: spaceTimeState{pos: s.pos, t: s.t + 1}, Cost: 1})
		for _, d := range core.AllDirections {
			np := core.Translate(s.pos, d)
			if !core.InBounds(np, m) || !core.Traversable(m.Get(np)) {
				continue
			}
			nt := s.t + 1
			if !p.reservations.Passable(int(a.ID()), s.pos, np, nt) {
				continue
			}
			if p.predictor.PredictObstacle(core.PositionTime{Position: np, Time: nt}) > p.predictorThreshold {
				continue
			}
			out = append(out, Successor[spaceTimeState]{State: spaceTimeState{pos: np, t: nt}, Cost: 1})
		}
		return out
	}
	heuristic := func(s spaceTimeState) float64 {
		return float64(hs.FindDistance(s.pos)) + p.predictor.PredictObstacle(core.PositionTime{Position: s.pos, Time: s.t})
	}
	coordinate := func(s spaceTimeState) int { return int(s.t) }

	path, rejoined := p.tryRejoin(a, pos, now, successors, heuristic, coordinate)
	if !rejoined {
		search := &Search[spaceTimeState]{
			Start:      spaceTimeState{pos: pos, t: now},
			Successors: successors,
			IsGoal:     func(s spaceTimeState) bool { return s.pos == a.Target },
			Heuristic:  heuristic,
			Coordinate: coordinate,
		}
		res := search.FindPathToGoalOrWindow(int(p.window))
		p.nodes += res.NodesExpanded

		path = make([]core.Position, len(res.Path))
		for i, s := range res.Path {
			path[i] = s.pos
		}
	}
	p.nodes += hs.NodesExpanded()

	p.reservations.Reserve(int(a.ID()), pos, path, now)
	return path
}

// tryRejoin implements spec.md §4.6 step 3: search for a detour of
// length <= rejoinLimit that lands on any still-free cell of the
// agent's path from last tick, and if found, splice the detour onto
// the remainder of that old path. Reports ok=false (falling through to
// the primary windowed search) when there's no prior path or no detour
// is found within the bound.
func (p *WHCA) tryRejoin(
	a *core.Agent,
	pos core.Position,
	now core.Tick,
	successors func(spaceTimeState) []Successor[spaceTimeState],
	heuristic func(spaceTimeState) float64,
	coordinate func(spaceTimeState) int,
) ([]core.Position, bool) {
	old, ok := p.paths[a.ID()]
	// The agent's current cell and the part of the old path before it
	// are already behind the agent, so they are not rejoin targets.
	for i := len(old) - 1; i >= 0; i-- {
		if old[i] == pos {
			old = old[i+1:]
			break
		}
	}
	if !ok || len(old) == 0 || p.rejoinLimit == 0 {
		return nil, false
	}

	onOldPath := make(map[core.Position]int, len(old))
	for i, op := range old {
		if _, exists := onOldPath[op]; !exists {
			onOldPath[op] = i
		}
	}

	isTarget := func(s spaceTimeState) bool {
		_, onPath := onOldPath[s.pos]
		return onPath
	}
	search := &Search[spaceTimeState]{
		Start:         spaceTimeState{pos: pos, t: now},
		Successors:    successors,
		Heuristic:     heuristic,
		Coordinate:    coordinate,
		MaxExpansions: int(p.rejoinLimit),
	}

	res := search.FindPathTarget(isTarget)
	p.nodes += res.NodesExpanded

	if len(res.Path) == 0 {
		return nil, false
	}

	detour := make([]core.Position, len(res.Path))
	for i, s := range res.Path {
		detour[i] = s.pos
	}

	rejoinIdx := onOldPath[detour[len(detour)-1]]
	// Splice: the detour up to and including the rejoin cell, then the
	// remainder of the old path beyond it. The rejoin cell appears
	// exactly once (detour's last element, not repeated from old), per
	// the Open Question decision in DESIGN.md.
	return append(append([]core.Position{}, detour...), old[rejoinIdx+1:]...), true
}

func (p *WHCA) StatNames() []string  { return []string{"nodes"} }
func (p *WHCA) StatValues() []string { return []string{strconv.Itoa(p.nodes)} }

func (p *WHCA) GetPath(id core.AgentID) []core.Position { return p.paths[id] }

func (p *WHCA) GetObstacleField() map[core.PositionTime]float64 { return p.predictor.Field() }
