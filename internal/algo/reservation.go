package algo

import "github.com/orange-dot/mapf-grid/internal/core"

// reservationOwner identifies whoever holds a reservation: an agent id
// for WHCA*, or a group id for Operator Decomposition. Both planners
// share the same table shape so it's expressed generically here.
type reservationOwner = int

// spaceTimeRecord is one entry in the space-time reservation table:
// owner holds position/time pt, having arrived there from from (used
// to detect head-on edge swaps against whoever tries to use the
// reverse edge at the same tick).
type spaceTimeRecord struct {
	owner reservationOwner
	from  core.Position
}

// permanentRecord marks that owner will occupy a cell forever from
// sinceTick onward (an agent parked at its goal).
type permanentRecord struct {
	owner     reservationOwner
	sinceTick core.Tick
}

// ReservationTable is the space-time and permanent reservation state
// shared by WHCA* and Operator Decomposition, grounded directly on
// cooperative_a_star's reservations_/permanent_reservations_ and
// operator_decomposition's reservation_table_/permanent_reservation_table_.
type ReservationTable struct {
	spaceTime map[core.PositionTime]spaceTimeRecord
	permanent map[core.Position]permanentRecord
}

// NewReservationTable creates an empty table.
func NewReservationTable() *ReservationTable {
	return &ReservationTable{
		spaceTime: make(map[core.PositionTime]spaceTimeRecord),
		permanent: make(map[core.Position]permanentRecord),
	}
}

// Passable reports whether owner may step onto p at tick t coming from
// q, i.e. none of the three reservation rules in the original reject
// it: p is not already reserved at t by someone else, there is no
// head-on swap with someone else moving p->q at t while owner moves
// q->p, and p is not permanently reserved by someone else from
// at-or-before t.
func (rt *ReservationTable) Passable(owner reservationOwner, q, p core.Position, t core.Tick) bool {
	pt := core.PositionTime{Position: p, Time: t}
	if rec, ok := rt.spaceTime[pt]; ok && rec.owner != owner {
		return false
	}

	// Head-on swap: someone else is reserved to move from p to q at the
	// same tick t we'd move from q to p. Canonicalise each reservation
	// as a directed edge (t, from->to) and look up the mirror edge.
	if rec, ok := rt.spaceTime[core.PositionTime{Position: q, Time: t}]; ok && rec.owner != owner && rec.from == p {
		return false
	}

	if rec, ok := rt.permanent[p]; ok && rec.owner != owner && rec.sinceTick <= t {
		return false
	}

	return true
}

// Reserve records owner's intended path (a sequence of positions
// starting one tick after startTick, i.e. path[i] is occupied at
// startTick+i+1) and, once the path ends, a permanent reservation of
// its final cell from the tick the agent arrives there onward —
// mirroring cooperative_a_star::find_path's reservation loop and
// operator_decomposition::reserve.
func (rt *ReservationTable) Reserve(owner reservationOwner, start core.Position, path []core.Position, startTick core.Tick) {
	from := start
	for i, p := range path {
		t := startTick + core.Tick(i) + 1
		pt := core.PositionTime{Position: p, Time: t}
		rt.spaceTime[pt] = spaceTimeRecord{owner: owner, from: from}
		from = p
	}

	finalPos := start
	if len(path) > 0 {
		finalPos = path[len(path)-1]
	}
	rt.permanent[finalPos] = permanentRecord{owner: owner, sinceTick: startTick + core.Tick(len(path))}
}

// Unreserve removes every reservation (space-time and permanent) held
// by owner, mirroring cooperative_a_star::unreserve and
// operator_decomposition::unreserve's erase-by-owner loops.
func (rt *ReservationTable) Unreserve(owner reservationOwner) {
	for pt, rec := range rt.spaceTime {
		if rec.owner == owner {
			delete(rt.spaceTime, pt)
		}
	}
	for p, rec := range rt.permanent {
		if rec.owner == owner {
			delete(rt.permanent, p)
		}
	}
}

// FindConflict reports whether p at tick t is already held (space-time
// or permanent) by someone other than owner, and if so who.
func (rt *ReservationTable) FindConflict(owner reservationOwner, p core.Position, t core.Tick) (reservationOwner, bool) {
	if rec, ok := rt.spaceTime[core.PositionTime{Position: p, Time: t}]; ok && rec.owner != owner {
		return rec.owner, true
	}
	if rec, ok := rt.permanent[p]; ok && rec.owner != owner && rec.sinceTick <= t {
		return rec.owner, true
	}
	return 0, false
}
