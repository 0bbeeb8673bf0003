// Package algo implements the search and planning machinery shared by
// every solver: a generic space-time A*, a reversed-direction heuristic
// search built on top of it, the stochastic obstacle predictor, the
// reservation tables, and the four planners (Greedy, LRA*, WHCA*, and
// Operator Decomposition).
package algo

import "container/heap"

// Search generalises the original C++ a_star<State, Successors,
// Passability, Heuristic, StepCost, Coordinate, ClosePolicy> template.
// Go favours composing behaviour from fields of closures/interfaces
// over a parameterised type, so Search is configured once per call by
// filling in these fields rather than being instantiated per planner.
type Search[S comparable] struct {
	// Start is the state the search begins from. There is no separate
	// goal field: the search ends at whatever state IsGoal (or the
	// predicate passed to FindPathTarget) accepts.
	Start S

	// Successors returns every state reachable from s in one step,
	// together with the incremental cost of that step.
	Successors func(s S) []Successor[S]

	// IsGoal reports whether s should terminate the search.
	IsGoal func(s S) bool

	// Heuristic estimates the remaining cost from s to the goal. Must
	// be admissible for the result to be optimal; the planners here
	// tolerate inadmissible heuristics (predictor-shaped costs) because
	// they only need bounded-suboptimal plans.
	Heuristic func(s S) float64

	// Coordinate maps a state to the window/depth counter used by
	// MaxExpansions and by windowed callers; for plain space-time
	// search this is just the time component of s.
	Coordinate func(s S) int

	// Close reports whether a state, once expanded, may be safely
	// closed (never revisited). The OD partial-state policy closes
	// fewer states than full ones because incomplete decomposition
	// rounds can be reached via different, non-interchangeable routes.
	Close func(s S) bool

	// MaxExpansions bounds Coordinate(s)-Coordinate(Start); zero means
	// unbounded. Used by WHCA*'s rejoin bound and OD's window*group_size bound.
	MaxExpansions int

	// Cancel, if non-nil, is polled on every pop; when it returns true
	// the search stops and reports no path, mirroring the original's
	// cooperative cancellation flag.
	Cancel func() bool

	nodesExpanded int
}

// Successor is one step reachable from some state, with its incremental
// cost.
type Successor[S any] struct {
	State S
	Cost  float64
}

type searchNode[S comparable] struct {
	state  S
	g      float64
	f      float64
	parent *searchNode[S]
	index  int
}

type searchHeap[S comparable] []*searchNode[S]

func (h searchHeap[S]) Len() int { return len(h) }
func (h searchHeap[S]) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	// Tie-break toward larger g: prefer states further along the
	// path, which tends to reduce wasted re-expansion near the goal.
	return h[i].g > h[j].g
}
func (h searchHeap[S]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *searchHeap[S]) Push(x any) {
	n := x.(*searchNode[S])
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *searchHeap[S]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// Result is the outcome of FindPath: the path as a sequence of states
// from Start to the goal (exclusive of Start, inclusive of the goal),
// and the number of nodes the search expanded. An empty Path with no
// error means no path exists or the search was cancelled — neither is
// an error condition (see spec's error-as-data philosophy).
type Result[S any] struct {
	Path          []S
	NodesExpanded int
}

// FindPath runs the configured search to completion (or cancellation,
// or MaxExpansions) using IsGoal, and returns the path found, if any.
// It never falls back to a partial path when the window is exhausted —
// use FindPathWindow or FindPathToGoalOrWindow for that.
func (s *Search[S]) FindPath() Result[S] {
	return s.run(s.IsGoal)
}

// FindPathTarget runs the search using isTarget in place of the
// configured IsGoal, for target-set searches where any state matching
// a predicate (rather than one fixed goal) terminates the search —
// e.g. the rejoin detour search, whose target set is "any still-free
// cell of the agent's prior path" (§4.6 step 3). Like FindPath, it does
// not fall back to a partial result; MaxExpansions, if set, is a hard
// cutoff with no-path on exhaustion.
func (s *Search[S]) FindPathTarget(isTarget func(S) bool) Result[S] {
	return s.run(isTarget)
}

// FindPathWindow bounds the search to window coordinate units past
// Start and returns the partial path to the best (lowest-f) node
// reached once that bound is hit — IsGoal is never consulted, unlike
// FindPathToGoalOrWindow: "find_path(window=W) terminates successfully
// when the best expanded node has g ≥ W; the partial path from start
// to that node is returned."
func (s *Search[S]) FindPathWindow(window int) Result[S] {
	never := func(S) bool { return false }
	return s.runWindowed(never, window)
}

// FindPathToGoalOrWindow is the primary search WHCA*/OD run every tick:
// it returns the exact path the moment IsGoal is satisfied, or the best
// partial path once the window is exhausted, whichever comes first.
func (s *Search[S]) FindPathToGoalOrWindow(window int) Result[S] {
	return s.runWindowed(s.IsGoal, window)
}

// run is the unbounded/hard-cutoff search shared by FindPath and
// FindPathTarget: MaxExpansions, if set, stops expansion with no
// fallback (an exhausted budget here means no-path, not partial).
func (s *Search[S]) run(isTarget func(S) bool) Result[S] {
	open := &searchHeap[S]{}
	heap.Init(open)

	start := &searchNode[S]{state: s.Start, g: 0, f: s.Heuristic(s.Start)}
	heap.Push(open, start)

	closed := make(map[S]bool)
	startCoord := 0
	if s.Coordinate != nil {
		startCoord = s.Coordinate(s.Start)
	}

	for open.Len() > 0 {
		if s.Cancel != nil && s.Cancel() {
			return Result[S]{NodesExpanded: s.nodesExpanded}
		}

		current := heap.Pop(open).(*searchNode[S])

		if closed[current.state] {
			continue
		}

		if isTarget(current.state) {
			return Result[S]{Path: reconstruct(current), NodesExpanded: s.nodesExpanded}
		}

		if s.Close == nil || s.Close(current.state) {
			closed[current.state] = true
		}
		s.nodesExpanded++

		if s.MaxExpansions > 0 && s.Coordinate != nil {
			if s.Coordinate(current.state)-startCoord >= s.MaxExpansions {
				continue
			}
		}

		for _, succ := range s.Successors(current.state) {
			if closed[succ.State] {
				continue
			}
			node := &searchNode[S]{
				state:  succ.State,
				g:      current.g + succ.Cost,
				f:      current.g + succ.Cost + s.Heuristic(succ.State),
				parent: current,
			}
			heap.Push(open, node)
		}
	}

	return Result[S]{NodesExpanded: s.nodesExpanded}
}

// runWindowed backs FindPathWindow/FindPathToGoalOrWindow: unlike run,
// reaching the window does not mean no-path. The first node popped at
// window depth (the lowest-f node in the open set at that moment) ends
// the search and its path is returned; if the open set empties before
// any node reaches the window, the best (lowest-f) expanded node's path
// is returned instead.
func (s *Search[S]) runWindowed(isTarget func(S) bool, window int) Result[S] {
	open := &searchHeap[S]{}
	heap.Init(open)

	start := &searchNode[S]{state: s.Start, g: 0, f: s.Heuristic(s.Start)}
	heap.Push(open, start)

	closed := make(map[S]bool)
	startCoord := 0
	if s.Coordinate != nil {
		startCoord = s.Coordinate(s.Start)
	}

	var best *searchNode[S]

	for open.Len() > 0 {
		if s.Cancel != nil && s.Cancel() {
			return Result[S]{NodesExpanded: s.nodesExpanded}
		}

		current := heap.Pop(open).(*searchNode[S])

		if closed[current.state] {
			continue
		}

		if isTarget(current.state) {
			return Result[S]{Path: reconstruct(current), NodesExpanded: s.nodesExpanded}
		}

		// Prefer lower f, breaking ties toward larger g (more progress
		// made) — the same tie-break searchHeap.Less uses for pop order,
		// so among equal-f nodes "best" is the deepest one.
		if best == nil || current.f < best.f || (current.f == best.f && current.g > best.g) {
			best = current
		}

		if s.Close == nil || s.Close(current.state) {
			closed[current.state] = true
		}
		s.nodesExpanded++

		if window > 0 && s.Coordinate != nil && s.Coordinate(current.state)-startCoord >= window {
			return Result[S]{Path: reconstruct(current), NodesExpanded: s.nodesExpanded}
		}

		for _, succ := range s.Successors(current.state) {
			if closed[succ.State] {
				continue
			}
			node := &searchNode[S]{
				state:  succ.State,
				g:      current.g + succ.Cost,
				f:      current.g + succ.Cost + s.Heuristic(succ.State),
				parent: current,
			}
			heap.Push(open, node)
		}
	}

	if best == nil {
		return Result[S]{NodesExpanded: s.nodesExpanded}
	}
	return Result[S]{Path: reconstruct(best), NodesExpanded: s.nodesExpanded}
}

func reconstruct[S comparable](n *searchNode[S]) []S {
	var path []S
	for cur := n; cur.parent != nil; cur = cur.parent {
		path = append([]S{cur.state}, path...)
	}
	return path
}

// NodesExpanded reports how many states this search has popped and
// expanded so far, matching the original's nodes_expanded() counter
// used by every solver's stat table.
func (s *Search[S]) NodesExpanded() int { return s.nodesExpanded }
