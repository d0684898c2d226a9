package path

import "github.com/gravitas-games/millworks/pkg/hexcore/hex"

// Graph is a read-only connectivity view over hex cells, e.g. a road network.
// Implementations must be safe to query for cells that are not nodes.
type Graph interface {
	// Contains reports whether a is a node of the graph.
	Contains(a hex.Axial) bool
	// Neighbors returns the nodes adjacent to a. The order should be stable.
	Neighbors(a hex.Axial) []hex.Axial
}

// CellSet is a Graph where two cells are connected when both are members and
// they are hex neighbors. It is the simplest road network there is.
type CellSet map[hex.Axial]bool

// Contains reports whether a is in the set.
func (s CellSet) Contains(a hex.Axial) bool { return s[a] }

// Neighbors returns the members adjacent to a in Directions order.
func (s CellSet) Neighbors(a hex.Axial) []hex.Axial {
	out := make([]hex.Axial, 0, 6)
	for _, d := range hex.Directions {
		b := a.Add(d)
		if s[b] {
			out = append(out, b)
		}
	}
	return out
}

// NewCellSet builds a CellSet from the given cells.
func NewCellSet(cells ...hex.Axial) CellSet {
	s := make(CellSet, len(cells))
	for _, c := range cells {
		s[c] = true
	}
	return s
}
