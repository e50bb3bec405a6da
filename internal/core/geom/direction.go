package geom

// Direction indexes the eight compass directions clockwise from north.
// Center is the "no movement" sentinel.
type Direction uint8

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
	Center
)

// Directions lists the eight movable directions in index order.
var Directions = [8]Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

var deltas = [9][2]int{
	{0, 1}, {1, 1}, {1, 0}, {1, -1},
	{0, -1}, {-1, -1}, {-1, 0}, {-1, 1},
	{0, 0},
}

var names = [9]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW", "C"}

func (d Direction) Valid() bool { return d <= Center }

func (d Direction) Delta() (dx, dy int) {
	if d > Center {
		return 0, 0
	}
	v := deltas[d]
	return v[0], v[1]
}

// RotateLeft turns 45 degrees counter-clockwise.
func (d Direction) RotateLeft() Direction {
	if d >= Center {
		return Center
	}
	return (d + 7) % 8
}

// RotateRight turns 45 degrees clockwise.
func (d Direction) RotateRight() Direction {
	if d >= Center {
		return Center
	}
	return (d + 1) % 8
}

func (d Direction) Opposite() Direction {
	if d >= Center {
		return Center
	}
	return (d + 4) % 8
}

func (d Direction) String() string {
	if d > Center {
		return "?"
	}
	return names[d]
}

func fromDelta(dx, dy int) Direction {
	for i, v := range deltas {
		if v[0] == dx && v[1] == dy {
			return Direction(i)
		}
	}
	return Center
}
