package algo

import (
	"container/heap"

	"github.com/orange-dot/mapf-grid/internal/core"
)

// HeuristicSearch is a resumable backwards Dijkstra search from an
// agent's goal over the static map only (walls block, obstacles do
// not — obstacles move, so baking them into the heuristic would make
// it inadmissible in a way that actively hurts guidance). Distances
// are memoised as they're discovered; FindDistance resumes the search
// frontier rather than restarting it, matching h_search.find_distance
// in the original cooperative_a_star::find_path.
//
// A HeuristicSearch must be rebuilt from a fresh world snapshot every
// planning round: the static map it searches over is captured once, at
// construction, and never updated.
type HeuristicSearch struct {
	m    *core.Map
	goal core.Position

	dist map[core.Position]int
	open heuristicHeap

	nodesExpanded int
}

type heuristicEntry struct {
	pos  core.Position
	dist int
}

type heuristicHeap []heuristicEntry

func (h heuristicHeap) Len() int            { return len(h) }
func (h heuristicHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h heuristicHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *heuristicHeap) Push(x any)         { *h = append(*h, x.(heuristicEntry)) }
func (h *heuristicHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// NewHeuristicSearch builds a fresh backwards search targeting goal
// over m.
func NewHeuristicSearch(goal core.Position, m *core.Map) *HeuristicSearch {
	hs := &HeuristicSearch{
		m:    m,
		goal: goal,
		dist: map[core.Position]int{goal: 0},
	}
	heap.Init(&hs.open)
	heap.Push(&hs.open, heuristicEntry{pos: goal, dist: 0})
	return hs
}

// FindDistance returns the shortest static-map distance from p to the
// search's goal, expanding the frontier as far as necessary. Returns a
// very large sentinel distance if p is unreachable.
const unreachable = 1 << 30

func (hs *HeuristicSearch) FindDistance(p core.Position) int {
	if d, ok := hs.dist[p]; ok {
		return d
	}

	for hs.open.Len() > 0 {
		cur := heap.Pop(&hs.open).(heuristicEntry)
		if cur.dist > hs.dist[cur.pos] {
			continue // stale entry
		}
		hs.nodesExpanded++

		for _, d := range core.AllDirections {
			np := core.Translate(cur.pos, d)
			if !core.InBounds(np, hs.m) || !core.Traversable(hs.m.Get(np)) {
				continue
			}
			nd := cur.dist + 1
			if old, ok := hs.dist[np]; !ok || nd < old {
				hs.dist[np] = nd
				heap.Push(&hs.open, heuristicEntry{pos: np, dist: nd})
			}
		}

		if cur.pos == p {
			return cur.dist
		}
	}

	if d, ok := hs.dist[p]; ok {
		return d
	}
	return unreachable
}

// NodesExpanded reports how many states this search has settled so
// far, for the caller's cumulative node-count statistic.
func (hs *HeuristicSearch) NodesExpanded() int { return hs.nodesExpanded }
