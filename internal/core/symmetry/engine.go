// Package symmetry works out which mirror symmetry a map obeys from the
// terrain an agent has actually seen, and predicts where the unseen
// counterpart of a known cell lies.
package symmetry

import "gridswarm.ai/internal/core/geom"

// Transform is a bit in a hypothesis set.
type Transform uint8

const (
	Rotational Transform = 1 << iota // 180 degrees about the center
	Horizontal                       // mirror across the horizontal axis
	Vertical                         // mirror across the vertical axis

	AllTransforms = Rotational | Horizontal | Vertical
)

// Priority order used when more than one hypothesis survives.
var priority = [3]Transform{Rotational, Horizontal, Vertical}

func (t Transform) String() string {
	switch t {
	case Rotational:
		return "rotational"
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	case 0:
		return "none"
	}
	s := ""
	for _, p := range priority {
		if t&p != 0 {
			if s != "" {
				s += "|"
			}
			s += p.String()
		}
	}
	return s
}

// Count is the number of hypotheses in the set.
func (t Transform) Count() int {
	n := 0
	for _, p := range priority {
		if t&p != 0 {
			n++
		}
	}
	return n
}

const (
	unseen int8 = iota
	passable
	blocked
)

type Engine struct {
	width  int
	height int
	alive  Transform
	cells  []int8
}

func New(width, height int) *Engine {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Engine{
		width:  width,
		height: height,
		alive:  AllTransforms,
		cells:  make([]int8, width*height),
	}
}

// Apply maps c through a single transform.
func (e *Engine) Apply(t Transform, c geom.Coord) geom.Coord {
	switch t {
	case Rotational:
		return geom.Coord{X: e.width - 1 - c.X, Y: e.height - 1 - c.Y}
	case Horizontal:
		return geom.Coord{X: c.X, Y: e.height - 1 - c.Y}
	case Vertical:
		return geom.Coord{X: e.width - 1 - c.X, Y: c.Y}
	}
	return c
}

// Observe records the passability of c and eliminates every surviving
// hypothesis whose image of c was seen with the opposite passability.
func (e *Engine) Observe(c geom.Coord, isPassable bool) {
	if !c.InBounds(e.width, e.height) {
		return
	}
	v := blocked
	if isPassable {
		v = passable
	}
	i := c.Y*e.width + c.X
	if e.cells[i] == v {
		return
	}
	e.cells[i] = v
	for _, t := range priority {
		if e.alive&t == 0 {
			continue
		}
		img := e.Apply(t, c)
		seen := e.cells[img.Y*e.width+img.X]
		if seen != unseen && seen != v {
			e.alive &^= t
		}
	}
}

// Merge intersects the set with a teammate's hypotheses. Unknown bits are ignored.
func (e *Engine) Merge(other Transform) {
	e.alive &= other & AllTransforms
}

func (e *Engine) Candidates() Transform { return e.alive }

func (e *Engine) Certain() bool { return e.alive.Count() == 1 }

// Degenerate reports that every hypothesis has been contradicted.
func (e *Engine) Degenerate() bool { return e.alive == 0 }

// Best is the highest-priority surviving transform, or 0 when degenerate.
func (e *Engine) Best() Transform {
	for _, t := range priority {
		if e.alive&t != 0 {
			return t
		}
	}
	return 0
}

func (e *Engine) Center() geom.Coord { return geom.Coord{X: e.width / 2, Y: e.height / 2} }

// Predict maps from through the best surviving transform. With several
// survivors it still answers, breaking ties by priority; with none it falls
// back to the map center.
func (e *Engine) Predict(from geom.Coord) geom.Coord {
	t := e.Best()
	if t == 0 {
		return e.Center()
	}
	return e.Apply(t, from)
}
