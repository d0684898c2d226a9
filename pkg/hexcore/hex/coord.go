package hex

import (
	"fmt"
	"math"
)

// Axial represents axial coordinates (q, r) for pointy-top orientation.
type Axial struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

// Cube represents cube coordinates (x, y, z) with x+y+z=0.
type Cube struct {
	X int
	Y int
	Z int
}

// Directions for axial neighbors in pointy-top orientation.
var Directions = []Axial{
	{+1, 0}, {+1, -1}, {0, -1}, {-1, 0}, {-1, +1}, {0, +1},
}

// Add returns a+b in axial space.
func (a Axial) Add(b Axial) Axial { return Axial{a.Q + b.Q, a.R + b.R} }

// Sub returns a-b in axial space.
func (a Axial) Sub(b Axial) Axial { return Axial{a.Q - b.Q, a.R - b.R} }

// Mul scales an axial vector by k.
func (a Axial) Mul(k int) Axial { return Axial{a.Q * k, a.R * k} }

// Neighbors returns the six adjacent cells in Directions order.
func (a Axial) Neighbors() []Axial {
	out := make([]Axial, 0, len(Directions))
	for _, d := range Directions {
		out = append(out, a.Add(d))
	}
	return out
}

// Less orders cells by Q, then R. Used wherever a stable cell order matters.
func (a Axial) Less(b Axial) bool {
	if a.Q != b.Q {
		return a.Q < b.Q
	}
	return a.R < b.R
}

func (a Axial) String() string { return fmt.Sprintf("(%d,%d)", a.Q, a.R) }

// ToCube converts axial to cube.
func (a Axial) ToCube() Cube {
	x := a.Q
	z := a.R
	y := -x - z
	return Cube{X: x, Y: y, Z: z}
}

// ToAxial converts cube to axial.
func (c Cube) ToAxial() Axial { return Axial{Q: c.X, R: c.Z} }

// DistanceAxial returns hex distance between two axial coords.
func DistanceAxial(a, b Axial) int {
	return DistanceCube(a.ToCube(), b.ToCube())
}

// DistanceCube returns hex distance between two cube coords.
func DistanceCube(a, b Cube) int {
	dx := int(math.Abs(float64(a.X - b.X)))
	dy := int(math.Abs(float64(a.Y - b.Y)))
	dz := int(math.Abs(float64(a.Z - b.Z)))
	if dx > dy && dx > dz {
		return dx
	}
	if dy > dz {
		return dy
	}
	return dz
}
