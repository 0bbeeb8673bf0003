package algo

import (
	"math/rand"
	"sort"
	"strconv"

	"github.com/orange-dot/mapf-grid/internal/core"
)

// agentAction mirrors the original's agent_action enum, numerically
// aligned with core.Direction so a decided action converts directly.
type agentAction int

const (
	actNorth      agentAction = agentAction(core.North)
	actEast       agentAction = agentAction(core.East)
	actSouth      agentAction = agentAction(core.South)
	actWest       agentAction = agentAction(core.West)
	actStay       agentAction = 4
	actUnassigned agentAction = 5
)

func (a agentAction) destination(p core.Position) core.Position {
	switch a {
	case actNorth, actEast, actSouth, actWest:
		return core.Translate(p, core.Direction(a))
	default:
		return p
	}
}

// agentStateRecord is one agent's slot within a joint decomposition
// state: its position, its identity, and the action decided for it so
// far this decomposition round (actUnassigned until its turn comes).
type agentStateRecord struct {
	pos    core.Position
	id     core.AgentID
	action agentAction
}

// agentsState is one state in the joint operator-decomposition search:
// every agent in the group, plus a cursor naming whose turn it is to
// be assigned next. nextAgent == 0 marks a "full" state — the end of
// one decomposition round, where every agent has a decided action and
// a fresh round is about to begin.
type agentsState struct {
	agents    []agentStateRecord
	nextAgent int
}

func (s agentsState) full() bool { return s.nextAgent == 0 }

// makeFull applies every agent's decided action, resets every action
// to actUnassigned, and rewinds the cursor to 0, turning a completed
// decomposition round into the start of the next one. Mirrors
// state_successors::get's "make_full" reset.
func (s agentsState) makeFull() agentsState {
	next := agentsState{agents: make([]agentStateRecord, len(s.agents))}
	for i, r := range s.agents {
		next.agents[i] = agentStateRecord{pos: r.action.destination(r.pos), id: r.id, action: actUnassigned}
	}
	return next
}

// stateKey is the open/closed-set lookup key. A full state hashes on
// every field; a partial (mid-round) state uses the relaxed equality
// from operator_decomposition.cpp: an already-decided agent's action
// is only part of the key if some still-undecided agent in the group
// sits adjacent to it, because only then can that neighbour's own
// successor generation actually observe the difference (via the
// vacate/swap checks against the already-moved agent's pending
// direction). This lets the open set collapse branches that assign
// actions in a different order but reach indistinguishable partial
// states, which is the entire point of decomposing by agent instead
// of by joint action.
type stateKey struct {
	encoded string
	cursor  int
}

func keyOf(s agentsState) stateKey {
	sorted := append([]agentStateRecord{}, s.agents...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })

	var b []byte
	for i, r := range sorted {
		b = append(b, []byte(posCode(r.pos))...)
		if s.full() || neighbourUndecided(s, i, sorted) {
			b = append(b, byte(r.action))
		}
		b = append(b, ';')
	}
	return stateKey{encoded: string(b), cursor: s.nextAgent}
}

func posCode(p core.Position) string {
	return strconv.Itoa(p.X) + "," + strconv.Itoa(p.Y) + "|"
}

// neighbourUndecided reports whether, within a partial state, any
// still-unassigned agent sits adjacent to sorted[i]'s position.
func neighbourUndecided(s agentsState, i int, sorted []agentStateRecord) bool {
	if s.full() {
		return false
	}
	for j, other := range sorted {
		if j == i || other.action != actUnassigned {
			continue
		}
		if core.Neighbours(other.pos, sorted[i].pos) {
			return true
		}
	}
	return false
}

// successors generates every legal next action for the agent whose
// turn it currently is (s.agents[s.nextAgent]), checked against the
// other agents already decided this round, the shared reservation
// table, and the predictor field.
func (s agentsState) successors(w *core.World, reservations *ReservationTable, predictor *Predictor, threshold float64, now core.Tick, dt int) []Successor[agentsState] {
	cur := s.agents[s.nextAgent]
	var out []Successor[agentsState]

	candidates := []agentAction{actStay, actNorth, actEast, actSouth, actWest}
	for _, act := range candidates {
		dest := act.destination(cur.pos)
		if act != actStay {
			if !core.InBounds(dest, w.Map()) || !core.Traversable(w.Map().Get(dest)) {
				continue
			}
		}
		if conflictsWithDecided(s, cur, dest, act) {
			continue
		}
		if !reservations.Passable(int(cur.id)*-1-1, cur.pos, dest, now+core.Tick(dt)) {
			// Reservation ownership is namespaced per-group elsewhere;
			// here we only check against other groups' reservations,
			// identified by a negative owner id so it never collides
			// with a live group id (see OD.reserve/ownerFor).
			continue
		}
		if predictor.PredictObstacle(core.PositionTime{Position: dest, Time: now + core.Tick(dt)}) >= threshold {
			continue
		}

		nextAgents := append([]agentStateRecord{}, s.agents...)
		nextAgents[s.nextAgent] = agentStateRecord{pos: cur.pos, id: cur.id, action: act}
		nextCursor := (s.nextAgent + 1) % len(s.agents)

		next := agentsState{agents: nextAgents, nextAgent: nextCursor}
		if nextCursor == 0 {
			next = next.makeFull()
		}
		out = append(out, Successor[agentsState]{State: next, Cost: 1})
	}
	return out
}

// conflictsWithDecided rejects a candidate action for the current
// agent if it collides with an already-decided agent this round: same
// destination cell, or a head-on swap (the other agent is moving into
// cur's current cell while cur moves into theirs).
func conflictsWithDecided(s agentsState, cur agentStateRecord, dest core.Position, act agentAction) bool {
	for i, other := range s.agents {
		if other.id == cur.id {
			continue
		}
		decided := i < s.nextAgent
		if !decided {
			// Undecided agents haven't vacated their cell yet, so
			// stepping onto their current position is never legal
			// this round regardless of what they'll later decide.
			if dest == other.pos {
				return true
			}
			continue
		}
		otherDest := other.action.destination(other.pos)
		if otherDest == dest {
			return true
		}
		if otherDest == cur.pos && dest == other.pos {
			return true // head-on swap
		}
	}
	return false
}

// group is one independently-planned cluster of agents (singleton
// until a conflict forces a merge), with its own cached plan.
type group struct {
	id       int
	agentIDs []core.AgentID
	starts   map[core.AgentID]core.Position
	targets  map[core.AgentID]core.Position
	plan     []agentsState // full states only, in time order, earliest first
}

// OD is Operator Decomposition: a joint-state search where each A*
// step assigns exactly one agent's action, with conflicting groups of
// agents merged and replanned jointly until every group's plan is
// simultaneously admissible. A direct, careful port of
// operator_decomposition.{hpp,cpp}.
type OD struct {
	window uint

	predictor          *Predictor
	predictorThreshold float64

	reservations *ReservationTable
	groups       []*group
	nextGroupID  int

	heuristics map[core.AgentID]*HeuristicSearch

	nodes int
}

func NewOD(window uint, predictorThreshold float64) *OD {
	return &OD{
		window:             window,
		predictor:          NewPredictor(),
		predictorThreshold: predictorThreshold,
		reservations:       NewReservationTable(),
		heuristics:         make(map[core.AgentID]*HeuristicSearch),
	}
}

func (o *OD) Name() string     { return "OD" }
func (o *OD) SetWindow(w uint) { o.window = w }

// GetAction implements the pull-style Solver surface by delegating to
// Step and reading back the resulting action.
func (o *OD) GetAction(w *core.World, rng *rand.Rand) core.JointAction {
	return o.Step(w)
}

// Step recomputes the predictor, checks every group's plan is still
// admissible against the current world, replans from scratch if not,
// and pops each group's next full state into a joint action. Mirrors
// operator_decomposition::step.
func (o *OD) Step(w *core.World) core.JointAction {
	o.predictor.UpdateObstacles(w)

	if len(o.groups) == 0 || o.plansAdmissible(w) != admissible {
		o.replan(w)
	}

	var result core.JointAction
	for _, g := range o.groups {
		if len(g.plan) < 2 {
			continue
		}
		cur, next := g.plan[0], g.plan[1]
		for i, r := range cur.agents {
			d, ok := core.DirectionTo(r.pos, next.agents[i].pos)
			if !ok {
				continue // agent stayed in place
			}
			result.Add(core.Action{From: r.pos, Dir: d})
		}
		g.plan = g.plan[1:]
	}
	return result
}

type admissibility int

const (
	admissible admissibility = iota
	incomplete
	invalid
)

// plansAdmissible inspects every group's plan for an agent standing on
// a real (non-predicted) obstacle tile at the next-to-last state, or a
// plan that's empty/hasn't reached the goal, mirroring
// operator_decomposition::plans_admissible.
func (o *OD) plansAdmissible(w *core.World) admissibility {
	for _, g := range o.groups {
		if len(g.plan) == 0 {
			return incomplete
		}
		last := g.plan[len(g.plan)-1]
		for _, r := range last.agents {
			if r.pos != g.targets[r.id] {
				return incomplete
			}
		}
		if len(g.plan) >= 2 {
			check := g.plan[len(g.plan)-2]
			for _, r := range check.agents {
				if w.Get(r.pos) == core.Obstacle {
					return invalid
				}
			}
		}
	}
	return admissible
}

// replan clears all state and rebuilds singleton groups per agent,
// then iterates replanGroups until no conflicts remain, mirroring
// operator_decomposition::replan.
func (o *OD) replan(w *core.World) {
	o.groups = nil
	o.nextGroupID = 0
	o.reservations = NewReservationTable()
	o.heuristics = make(map[core.AgentID]*HeuristicSearch)

	for _, pos := range sortedAgentPositions(w) {
		a, _ := w.GetAgent(pos)
		g := &group{
			id:       o.nextGroupID,
			agentIDs: []core.AgentID{a.ID()},
			starts:   map[core.AgentID]core.Position{a.ID(): pos},
			targets:  map[core.AgentID]core.Position{a.ID(): a.Target},
		}
		o.nextGroupID++
		o.groups = append(o.groups, g)
	}

	for o.replanGroups(w) {
		// loop until every group's plan is conflict-free
	}
}

// replanGroups plans every group with an empty plan, then checks all
// groups pairwise for conflicts; on finding one it merges the
// conflicting groups and reports true so the caller loops again.
// Mirrors operator_decomposition::replan_groups.
func (o *OD) replanGroups(w *core.World) bool {
	for _, g := range o.groups {
		if len(g.plan) == 0 {
			o.replanGroup(g, w)
		}
	}

	for i := 0; i < len(o.groups); i++ {
		for j := i + 1; j < len(o.groups); j++ {
			if gi, gj := o.findConflict(o.groups[i], o.groups[j]); gi {
				_ = gj
				o.mergeGroups(i, j, w)
				return true
			}
		}
	}
	return false
}

// findConflict reports whether groups a and b's plans collide at any
// shared tick: same cell, or a head-on swap. Mirrors
// operator_decomposition::find_conflict over two independent plans.
func (o *OD) findConflict(a, b *group) (bool, bool) {
	n := len(a.plan)
	if len(b.plan) < n {
		n = len(b.plan)
	}
	for t := 0; t < n; t++ {
		occA := make(map[core.Position]core.Position) // dest -> origin, for swap detection
		for _, r := range a.plan[t].agents {
			occA[r.pos] = r.pos
		}
		for _, r := range b.plan[t].agents {
			if _, ok := occA[r.pos]; ok {
				return true, true
			}
		}
		if t+1 < n {
			for _, ra := range a.plan[t].agents {
				for _, rb := range b.plan[t].agents {
					raNext := findPos(a.plan[t+1], ra.id)
					rbNext := findPos(b.plan[t+1], rb.id)
					if ra.pos == rbNext && rb.pos == raNext {
						return true, true
					}
				}
			}
		}
	}
	return false, false
}

func findPos(s agentsState, id core.AgentID) core.Position {
	for _, r := range s.agents {
		if r.id == id {
			return r.pos
		}
	}
	return core.Position{}
}

// mergeGroups unreserves and merges groups at indices i and j into a
// single group (kept at index i), removing j. Mirrors
// operator_decomposition::merge_groups.
func (o *OD) mergeGroups(i, j int, w *core.World) {
	gi, gj := o.groups[i], o.groups[j]
	o.unreserve(gi)
	o.unreserve(gj)

	gi.agentIDs = append(gi.agentIDs, gj.agentIDs...)
	for id, p := range gj.starts {
		gi.starts[id] = p
	}
	for id, p := range gj.targets {
		gi.targets[id] = p
	}
	gi.plan = nil

	o.groups = append(o.groups[:j], o.groups[j+1:]...)
	o.replanGroup(gi, w)
}

// replanGroup runs the joint operator-decomposition search for g's
// agents and records the resulting plan, falling back to an all-stay
// single state if the search found nothing so conflict checks still
// have something to compare against. Mirrors
// operator_decomposition::replan_group.
func (o *OD) replanGroup(g *group, w *core.World) {
	ids := append([]core.AgentID{}, g.agentIDs...)
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	start := agentsState{agents: make([]agentStateRecord, len(ids))}
	for i, id := range ids {
		start.agents[i] = agentStateRecord{pos: g.starts[id], id: id, action: actUnassigned}
	}

	for _, id := range ids {
		if _, ok := o.heuristics[id]; !ok {
			o.heuristics[id] = NewHeuristicSearch(g.targets[id], w.Map())
		}
	}

	limit := int(o.window) * len(ids)

	search := &Search[agentsState]{
		Start: start,
		Successors: func(s agentsState) []Successor[agentsState] {
			dt := (s.nextAgent - start.nextAgent + len(ids)) % len(ids)
			return s.successors(w, o.reservations, o.predictor, o.predictorThreshold, w.Tick(), dt)
		},
		IsGoal: func(s agentsState) bool {
			if !s.full() {
				return false
			}
			for _, r := range s.agents {
				if r.pos != g.targets[r.id] {
					return false
				}
			}
			return true
		},
		Heuristic: func(s agentsState) float64 {
			total := 0.0
			for _, r := range s.agents {
				total += float64(o.heuristics[r.id].FindDistance(r.pos))
			}
			return total
		},
		Coordinate: func(s agentsState) int { return s.nextAgent },
		Close:      func(s agentsState) bool { return s.full() },
	}
	if limit > 0 {
		search.MaxExpansions = limit
	}

	res := search.FindPath()
	o.nodes += res.NodesExpanded

	plan := []agentsState{start}
	for _, s := range res.Path {
		if s.full() {
			plan = append(plan, s)
		}
	}
	if len(plan) < 2 {
		plan = []agentsState{start, start} // all-stay fallback
	}
	g.plan = plan
	o.reserve(g)
}

// reserve walks g's plan forward in time, recording each agent's cell
// at each tick in the shared reservation table under a namespaced
// owner id (group ids and agent-only placeholders both live in the
// same table, so groups use their own non-negative id space while
// single-agent placeholders used during successor generation use
// negative ids — see agentsState.successors).
func (o *OD) reserve(g *group) {
	for t, s := range g.plan {
		if t == 0 {
			continue
		}
		for _, r := range s.agents {
			o.reservations.spaceTime[core.PositionTime{Position: r.pos, Time: core.Tick(t)}] = spaceTimeRecord{owner: g.id, from: findPos(g.plan[t-1], r.id)}
		}
	}
	if len(g.plan) > 0 {
		last := g.plan[len(g.plan)-1]
		for _, r := range last.agents {
			o.reservations.permanent[r.pos] = permanentRecord{owner: g.id, sinceTick: core.Tick(len(g.plan) - 1)}
		}
	}
}

func (o *OD) unreserve(g *group) {
	o.reservations.Unreserve(g.id)
}

func (o *OD) StatNames() []string  { return []string{"nodes"} }
func (o *OD) StatValues() []string { return []string{strconv.Itoa(o.nodes)} }

func (o *OD) GetPath(id core.AgentID) []core.Position {
	for _, g := range o.groups {
		member := false
		for _, aid := range g.agentIDs {
			if aid == id {
				member = true
				break
			}
		}
		if !member {
			continue
		}
		var out []core.Position
		for _, s := range g.plan {
			out = append(out, findPos(s, id))
		}
		return out
	}
	return nil
}

func (o *OD) GetObstacleField() map[core.PositionTime]float64 { return o.predictor.Field() }
