package hex

import (
	"math"
	"sort"
)

// Ring returns the axial coordinates at exact distance k from center c,
// starting from direction 4 (south-east) and proceeding counter-clockwise.
// If k==0, returns [c].
func Ring(c Axial, k int) []Axial {
	if k == 0 {
		return []Axial{c}
	}
	res := make([]Axial, 0, 6*k)
	cur := c.Add(Directions[4].Mul(k))
	for side := 0; side < 6; side++ {
		for step := 0; step < k; step++ {
			res = append(res, cur)
			cur = cur.Add(Directions[side])
		}
	}
	return res
}

// Disk returns all axial coordinates at distance <= r from center c,
// ring by ring outwards from c.
func Disk(c Axial, r int) []Axial {
	if r < 0 {
		return nil
	}
	res := make([]Axial, 0, 1+3*r*(r+1))
	for k := 0; k <= r; k++ {
		res = append(res, Ring(c, k)...)
	}
	return res
}

// Footprint describes the cells a structure occupies as offsets relative to
// its root cell. An empty footprint is a single cell at the root.
type Footprint []Axial

// SingleCell is the footprint of a one-hex structure.
var SingleCell = Footprint{{0, 0}}

// Cells returns the world cells covered when the footprint is anchored at root.
// The root is always included even if the offsets omit {0,0}.
func (f Footprint) Cells(root Axial) []Axial {
	if len(f) == 0 {
		return []Axial{root}
	}
	seen := make(map[Axial]bool, len(f)+1)
	out := make([]Axial, 0, len(f)+1)
	add := func(a Axial) {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	add(root)
	for _, off := range f {
		add(root.Add(off))
	}
	return out
}

// Perimeter returns the cells adjacent to the footprint anchored at root that
// are not part of it, sorted with Axial.Less.
func (f Footprint) Perimeter(root Axial) []Axial {
	cells := f.Cells(root)
	inside := make(map[Axial]bool, len(cells))
	for _, c := range cells {
		inside[c] = true
	}
	seen := make(map[Axial]bool)
	out := make([]Axial, 0, 6*len(cells))
	for _, c := range cells {
		for _, nb := range c.Neighbors() {
			if inside[nb] || seen[nb] {
				continue
			}
			seen[nb] = true
			out = append(out, nb)
		}
	}
	SortCells(out)
	return out
}

// SortCells sorts cells in place with Axial.Less.
func SortCells(cells []Axial) {
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
}

// Line returns the cells on the straight hex line from a to b inclusive.
// Consecutive cells are neighbors.
func Line(a, b Axial) []Axial {
	n := DistanceAxial(a, b)
	if n == 0 {
		return []Axial{a}
	}
	ac, bc := a.ToCube(), b.ToCube()
	out := make([]Axial, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		// nudge off cell edges so ties round consistently
		x := lerp(float64(ac.X)+1e-6, float64(bc.X)+1e-6, t)
		y := lerp(float64(ac.Y)+1e-6, float64(bc.Y)+1e-6, t)
		z := lerp(float64(ac.Z)-2e-6, float64(bc.Z)-2e-6, t)
		out = append(out, roundCube(x, y, z).ToAxial())
	}
	return out
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func roundCube(x, y, z float64) Cube {
	rx, ry, rz := math.Round(x), math.Round(y), math.Round(z)
	dx, dy, dz := math.Abs(rx-x), math.Abs(ry-y), math.Abs(rz-z)
	switch {
	case dx > dy && dx > dz:
		rx = -ry - rz
	case dy > dz:
		ry = -rx - rz
	default:
		rz = -rx - ry
	}
	return Cube{X: int(rx), Y: int(ry), Z: int(rz)}
}
