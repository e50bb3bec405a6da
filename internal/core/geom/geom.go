package geom

import "fmt"

// Coord is a cell on the grid. North is +Y.
type Coord struct {
	X int
	Y int
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

func (c Coord) Add(d Direction) Coord {
	dx, dy := d.Delta()
	return Coord{X: c.X + dx, Y: c.Y + dy}
}

// DistSq is the squared euclidean distance; no floating point on the hot path.
func (c Coord) DistSq(o Coord) int {
	dx := c.X - o.X
	dy := c.Y - o.Y
	return dx*dx + dy*dy
}

// Chebyshev is the number of 8-connected steps between two cells on an open grid.
func (c Coord) Chebyshev(o Coord) int {
	dx := abs(c.X - o.X)
	dy := abs(c.Y - o.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func (c Coord) InBounds(width, height int) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < width && c.Y < height
}

// DirectionTo quantizes the heading to o into one of the eight directions.
// A pure axis direction is used when the other axis is less than half as far,
// which keeps steps close to the straight line toward o.
func (c Coord) DirectionTo(o Coord) Direction {
	dx := o.X - c.X
	dy := o.Y - c.Y
	if dx == 0 && dy == 0 {
		return Center
	}
	sx, sy := sign(dx), sign(dy)
	ax, ay := abs(dx), abs(dy)
	if ax > 2*ay {
		sy = 0
	} else if ay > 2*ax {
		sx = 0
	}
	return fromDelta(sx, sy)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
