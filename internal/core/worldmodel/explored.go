package worldmodel

import "gridswarm.ai/internal/core/geom"

// MarkExplored sets c's explored bit. Bits are never cleared.
func (m *Model) MarkExplored(c geom.Coord) {
	if !m.inBounds(c) {
		return
	}
	bit := uint(c.Y*m.width + c.X)
	if m.explored.Test(bit) {
		return
	}
	m.explored.Set(bit)
	m.chunkExplored[m.chunkIndex(c)]++
	m.exploredTotal++
}

func (m *Model) IsExplored(c geom.Coord) bool {
	if !m.inBounds(c) {
		return false
	}
	return m.explored.Test(uint(c.Y*m.width + c.X))
}

func (m *Model) ExploredCount() int { return m.exploredTotal }

// FindUnexplored returns the center of the nearest chunk with fewer than half
// of its cells explored.
func (m *Model) FindUnexplored(from geom.Coord) (geom.Coord, bool) {
	return m.FindUnexploredFunc(from, nil)
}

// FindUnexploredFunc is FindUnexplored restricted to chunk centers accepted by
// keep. A nil keep accepts every chunk.
func (m *Model) FindUnexploredFunc(from geom.Coord, keep func(center geom.Coord) bool) (geom.Coord, bool) {
	best := -1
	bestD := 0
	for i := range m.chunkExplored {
		if m.chunkExplored[i]*2 >= m.chunkCapacity(i) {
			continue
		}
		if keep != nil && !keep(m.ChunkCenter(i)) {
			continue
		}
		d := m.ChunkCenter(i).DistSq(from)
		if best < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return geom.Coord{}, false
	}
	return m.ChunkCenter(best), true
}

// MarkTerritory remembers whose paint was last seen on c.
func (m *Model) MarkTerritory(c geom.Coord, owner Owner) {
	if !m.inBounds(c) || owner > OwnerEnemy {
		return
	}
	m.territory[c.Y*m.width+c.X] = owner
}

func (m *Model) TerritoryAt(c geom.Coord) Owner {
	if !m.inBounds(c) {
		return OwnerNone
	}
	return m.territory[c.Y*m.width+c.X]
}

// TerritoryCounts tallies remembered paint by owner.
func (m *Model) TerritoryCounts() (ally, enemy int) {
	for _, o := range m.territory {
		switch o {
		case OwnerAlly:
			ally++
		case OwnerEnemy:
			enemy++
		}
	}
	return ally, enemy
}
