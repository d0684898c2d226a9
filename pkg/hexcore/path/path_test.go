package path

import (
	"testing"

	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
)

// line returns n cells along the +Q axis starting at the origin.
func line(n int) []hex.Axial {
	cells := make([]hex.Axial, n)
	for i := range cells {
		cells[i] = hex.Axial{Q: i, R: 0}
	}
	return cells
}

func TestMultiSourceDistancesLine(t *testing.T) {
	const n = 12
	cells := line(n)
	g := NewCellSet(cells...)

	fromStart := MultiSourceDistances([]hex.Axial{cells[0]}, 1000, g)
	fromEnd := MultiSourceDistances([]hex.Axial{cells[n-1]}, 1000, g)
	if len(fromStart) != n || len(fromEnd) != n {
		t.Fatalf("expected %d labelled cells, got %d and %d", n, len(fromStart), len(fromEnd))
	}
	for i, c := range cells {
		if fromStart[c] != i {
			t.Errorf("from start: cell %d labelled %d", i, fromStart[c])
		}
		if fromEnd[c] != n-1-i {
			t.Errorf("from end: cell %d labelled %d", i, fromEnd[c])
		}
		if fromStart[c] != fromEnd[cells[n-1-i]] {
			t.Errorf("distances not symmetric at %d", i)
		}
	}
}

func TestMultiSourceDistancesCap(t *testing.T) {
	cells := line(10)
	g := NewCellSet(cells...)

	dist := MultiSourceDistances([]hex.Axial{cells[0]}, 3, g)
	if len(dist) != 4 {
		t.Fatalf("expected 4 cells within cap 3, got %d: %v", len(dist), dist)
	}
	if _, ok := dist[cells[4]]; ok {
		t.Errorf("cell beyond cap should be absent")
	}

	if got := MultiSourceDistances([]hex.Axial{cells[0]}, -1, g); len(got) != 0 {
		t.Errorf("negative cap should label nothing, got %v", got)
	}
	if got := MultiSourceDistances([]hex.Axial{cells[0]}, 0, g); len(got) != 1 || got[cells[0]] != 0 {
		t.Errorf("zero cap should label only the source, got %v", got)
	}
}

func TestMultiSourceDistancesMultipleSources(t *testing.T) {
	cells := line(11)
	g := NewCellSet(cells...)

	a := MultiSourceDistances([]hex.Axial{cells[0], cells[10]}, 1000, g)
	b := MultiSourceDistances([]hex.Axial{cells[10], cells[0]}, 1000, g)
	for i, c := range cells {
		want := min(i, 10-i)
		if a[c] != want {
			t.Errorf("cell %d: got %d, want %d", i, a[c], want)
		}
		if a[c] != b[c] {
			t.Errorf("cell %d: source order changed label (%d vs %d)", i, a[c], b[c])
		}
	}
}

func TestMultiSourceDistancesIgnoresNonNodes(t *testing.T) {
	g := NewCellSet(line(3)...)
	dist := MultiSourceDistances([]hex.Axial{{Q: 50, R: 50}}, 10, g)
	if len(dist) != 0 {
		t.Fatalf("off-graph source should not seed the search, got %v", dist)
	}
	if got := MultiSourceDistances([]hex.Axial{{}}, 10, nil); len(got) != 0 {
		t.Fatalf("nil graph should yield empty result")
	}
}

func TestRouteAlongRoad(t *testing.T) {
	// an L-shaped road: along +Q then along +R
	cells := []hex.Axial{{Q: 0, R: 0}, {Q: 1, R: 0}, {Q: 2, R: 0}, {Q: 2, R: 1}, {Q: 2, R: 2}}
	g := NewCellSet(cells...)

	route := Route(g, hex.Axial{Q: 0, R: 0}, hex.Axial{Q: 2, R: 2})
	if len(route) != len(cells) {
		t.Fatalf("expected %d steps, got %v", len(cells), route)
	}
	for i := range cells {
		if route[i] != cells[i] {
			t.Fatalf("unexpected route %v", route)
		}
	}
	if Route(g, hex.Axial{Q: 0, R: 0}, hex.Axial{Q: 9, R: 9}) != nil {
		t.Errorf("route to non-node should be nil")
	}
	if r := Route(g, hex.Axial{Q: 1, R: 0}, hex.Axial{Q: 1, R: 0}); len(r) != 1 {
		t.Errorf("route to self should be single cell, got %v", r)
	}
}

func TestRouteDisconnected(t *testing.T) {
	g := NewCellSet(hex.Axial{Q: 0, R: 0}, hex.Axial{Q: 1, R: 0}, hex.Axial{Q: 5, R: 0}, hex.Axial{Q: 6, R: 0})
	if r := Route(g, hex.Axial{Q: 0, R: 0}, hex.Axial{Q: 6, R: 0}); r != nil {
		t.Fatalf("expected no route, got %v", r)
	}
}
