package path

import "github.com/gravitas-games/millworks/pkg/hexcore/hex"

// MultiSourceDistances runs a breadth-first search seeded from every source
// at distance 0 and returns the hop count to each reached node.
//
// Sources that are not graph nodes are ignored. A node is labelled the first
// time it is reached and never revisited, so labels are shortest hop counts
// and do not depend on the order of sources. Nodes farther than maxDistance
// are not labelled; a negative maxDistance yields an empty map.
func MultiSourceDistances(sources []hex.Axial, maxDistance int, g Graph) map[hex.Axial]int {
	dist := make(map[hex.Axial]int)
	if g == nil || maxDistance < 0 {
		return dist
	}

	frontier := make([]hex.Axial, 0, len(sources))
	for _, s := range sources {
		if _, seen := dist[s]; seen || !g.Contains(s) {
			continue
		}
		dist[s] = 0
		frontier = append(frontier, s)
	}

	// expand one ring at a time so the cutoff is a simple depth check
	for depth := 1; len(frontier) > 0 && depth <= maxDistance; depth++ {
		next := make([]hex.Axial, 0, len(frontier)*2)
		for _, cur := range frontier {
			for _, nb := range g.Neighbors(cur) {
				if _, seen := dist[nb]; seen {
					continue
				}
				dist[nb] = depth
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return dist
}
