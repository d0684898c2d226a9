package path

import (
	"container/heap"
	"math"

	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
)

// AStar computes a shortest path using the A* algorithm.
// - start, goal: axial coordinates
// - h: admissible heuristic (e.g., hex.DistanceAxial to goal)
// - neighbors: returns adjacent axial coordinates to explore
// - cost: edge cost between two adjacent axial coordinates (must be >=1)
// Returns the path including start and goal, or nil if no path exists.
func AStar(start, goal hex.Axial,
	h func(a hex.Axial) int,
	neighbors func(a hex.Axial) []hex.Axial,
	cost func(a, b hex.Axial) int,
) []hex.Axial {
	if start == goal {
		return []hex.Axial{start}
	}
	open := &nodePQ{}
	heap.Init(open)
	seq := 0
	push := func(a hex.Axial, f float64) {
		seq++
		heap.Push(open, &pqNode{a: a, f: f, seq: seq})
	}

	g := map[hex.Axial]int{start: 0}
	came := map[hex.Axial]hex.Axial{}
	closed := map[hex.Axial]bool{}
	push(start, float64(h(start)))

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pqNode).a
		if closed[cur] {
			continue
		}
		closed[cur] = true
		if cur == goal {
			return reconstruct(came, start, goal)
		}
		for _, nb := range neighbors(cur) {
			if closed[nb] {
				continue
			}
			step := cost(cur, nb)
			if step <= 0 {
				step = 1
			}
			tentative := g[cur] + step
			old, ok := g[nb]
			if !ok || tentative < old {
				g[nb] = tentative
				came[nb] = cur
				f := float64(tentative + h(nb))
				if math.IsNaN(f) || math.IsInf(f, 0) {
					f = float64(tentative)
				}
				push(nb, f)
			}
		}
	}
	return nil
}

func reconstruct(came map[hex.Axial]hex.Axial, start, goal hex.Axial) []hex.Axial {
	path := []hex.Axial{goal}
	for k := goal; k != start; {
		k = came[k]
		path = append(path, k)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Route finds a shortest unit-cost path between two nodes of g.
// Returns nil if either endpoint is not a node or no path exists.
func Route(g Graph, start, goal hex.Axial) []hex.Axial {
	if g == nil || !g.Contains(start) || !g.Contains(goal) {
		return nil
	}
	return AStar(start, goal, HeuristicTo(goal), g.Neighbors, UnitCost)
}

// UnitCost charges one step per edge.
func UnitCost(a, b hex.Axial) int { return 1 }

// HeuristicTo returns the hex distance heuristic towards goal.
func HeuristicTo(goal hex.Axial) func(a hex.Axial) int {
	return func(a hex.Axial) int { return hex.DistanceAxial(a, goal) }
}

// pqNode ties on f are broken by insertion order so paths are reproducible.
type pqNode struct {
	a   hex.Axial
	f   float64
	seq int
}

type nodePQ []*pqNode

func (p nodePQ) Len() int { return len(p) }
func (p nodePQ) Less(i, j int) bool {
	if p[i].f != p[j].f {
		return p[i].f < p[j].f
	}
	return p[i].seq < p[j].seq
}
func (p nodePQ) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p *nodePQ) Push(x any)   { *p = append(*p, x.(*pqNode)) }
func (p *nodePQ) Pop() any {
	old := *p
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*p = old[:n-1]
	return x
}
