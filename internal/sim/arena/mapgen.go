package arena

import (
	"fmt"

	"gridswarm.ai/internal/core/geom"
	"gridswarm.ai/internal/core/mathx"
	"gridswarm.ai/internal/core/symmetry"
	"gridswarm.ai/internal/core/worldmodel"
)

type Team uint8

const (
	TeamA Team = iota
	TeamB
	teamNone
)

func (t Team) String() string {
	switch t {
	case TeamA:
		return "A"
	case TeamB:
		return "B"
	}
	return "none"
}

type structure struct {
	kind  worldmodel.StructureKind
	owner Team
}

type board struct {
	width  int
	height int
	sym    symmetry.Transform
	mirror *symmetry.Engine

	walls      []bool
	paint      []Team
	structures map[geom.Coord]structure
}

var towerKinds = [3]worldmodel.StructureKind{
	worldmodel.KindPaintTower,
	worldmodel.KindMoneyTower,
	worldmodel.KindDefenseTower,
}

// ParseSymmetry maps a tuning name to a transform. Empty picks one from seed.
func ParseSymmetry(name string, seed int64) (symmetry.Transform, error) {
	switch name {
	case "rotational":
		return symmetry.Rotational, nil
	case "horizontal":
		return symmetry.Horizontal, nil
	case "vertical":
		return symmetry.Vertical, nil
	case "":
		all := [3]symmetry.Transform{symmetry.Rotational, symmetry.Horizontal, symmetry.Vertical}
		return all[mathx.Hash2(seed, 0x5e, 0x7a)%3], nil
	}
	return 0, fmt.Errorf("unknown symmetry %q", name)
}

func newBoard(width, height int, sym symmetry.Transform) *board {
	b := &board{
		width:      width,
		height:     height,
		sym:        sym,
		mirror:     symmetry.New(width, height),
		walls:      make([]bool, width*height),
		paint:      make([]Team, width*height),
		structures: map[geom.Coord]structure{},
	}
	for i := range b.paint {
		b.paint[i] = teamNone
	}
	return b
}

func (b *board) index(c geom.Coord) int { return c.Y*b.width + c.X }

func (b *board) inBounds(c geom.Coord) bool { return c.InBounds(b.width, b.height) }

func (b *board) mirrorOf(c geom.Coord) geom.Coord { return b.mirror.Apply(b.sym, c) }

// homeOf reports which team's half c is in. Cells that map onto themselves
// belong to nobody.
func (b *board) homeOf(c geom.Coord) Team {
	i, j := b.index(c), b.index(b.mirrorOf(c))
	switch {
	case i < j:
		return TeamA
	case i > j:
		return TeamB
	}
	return teamNone
}

func (b *board) passable(c geom.Coord) bool {
	if !b.inBounds(c) || b.walls[b.index(c)] {
		return false
	}
	_, ok := b.structures[c]
	return !ok
}

// generate fills walls and structures. Every placement is mirrored, so the
// finished board is invariant under b.sym.
func (b *board) generate(seed int64, wallPermille, towersPerTeam, ruins int) []geom.Coord {
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			c := geom.Coord{X: x, Y: y}
			m := b.mirrorOf(c)
			if b.index(m) < b.index(c) {
				continue
			}
			if mathx.Permille(seed, x, y, wallPermille) {
				b.walls[b.index(c)] = true
				b.walls[b.index(m)] = true
			}
		}
	}

	var towers []geom.Coord
	k := 0
	for len(towers) < towersPerTeam && k < 64*b.width*b.height {
		c := b.candidate(seed, k, 1)
		k++
		if b.homeOf(c) != TeamA || !b.placeable(c) {
			continue
		}
		kind := towerKinds[len(towers)%len(towerKinds)]
		b.put(c, structure{kind: kind, owner: TeamA})
		b.put(b.mirrorOf(c), structure{kind: kind, owner: TeamB})
		towers = append(towers, c)
	}

	placed := 0
	for k = 0; placed < ruins && k < 64*b.width*b.height; k++ {
		c := b.candidate(seed, k, 2)
		if !b.placeable(c) {
			continue
		}
		b.put(c, structure{kind: worldmodel.KindRuin, owner: teamNone})
		placed++
		if m := b.mirrorOf(c); m != c {
			b.put(m, structure{kind: worldmodel.KindRuin, owner: teamNone})
			placed++
		}
	}
	return towers
}

func (b *board) candidate(seed int64, k, salt int) geom.Coord {
	h := mathx.Hash2(seed, k, salt)
	return geom.Coord{X: int(h % uint64(b.width)), Y: int((h >> 32) % uint64(b.height))}
}

// placeable requires no other structure within two cells.
func (b *board) placeable(c geom.Coord) bool {
	if !b.inBounds(c) {
		return false
	}
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			if _, ok := b.structures[geom.Coord{X: c.X + dx, Y: c.Y + dy}]; ok {
				return false
			}
		}
	}
	return true
}

// put places s and clears the walls around it so it can be approached.
func (b *board) put(c geom.Coord, s structure) {
	b.structures[c] = s
	b.walls[b.index(c)] = false
	for _, d := range geom.Directions {
		if n := c.Add(d); b.inBounds(n) {
			b.walls[b.index(n)] = false
		}
	}
}

// spawnCells returns up to n free cells in team A's half nearest to anchor,
// in a stable order.
func (b *board) spawnCells(anchor geom.Coord, n int) []geom.Coord {
	var out []geom.Coord
	for r := 0; len(out) < n && r < b.width+b.height; r++ {
		for dy := -r; dy <= r && len(out) < n; dy++ {
			for dx := -r; dx <= r && len(out) < n; dx++ {
				if mathx.AbsInt(dx) != r && mathx.AbsInt(dy) != r {
					continue
				}
				c := geom.Coord{X: anchor.X + dx, Y: anchor.Y + dy}
				if b.inBounds(c) && b.homeOf(c) == TeamA && b.passable(c) {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

func (b *board) paintCounts() [2]int {
	var out [2]int
	for _, t := range b.paint {
		if t < teamNone {
			out[t]++
		}
	}
	return out
}
