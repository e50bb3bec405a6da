// Package worldmodel is one agent's best-effort picture of the map: the last
// known structure in each 5x5 chunk, which cells it has sensed, and whose
// paint it last saw on each cell. Every query is a fixed scan over chunks.
package worldmodel

import (
	"github.com/bits-and-blooms/bitset"

	"gridswarm.ai/internal/core/geom"
	"gridswarm.ai/internal/core/mathx"
)

const ChunkSize = 5

type Model struct {
	width  int
	height int
	cw     int
	ch     int

	facts []Fact
	known []bool

	// Chunks whose fact changed and has not been relayed yet, oldest first.
	pending   []int
	isPending []bool

	// RelayReceived also queues facts learned from messages for relay.
	// Stationary agents set it so they act as repeaters.
	RelayReceived bool

	explored      *bitset.BitSet
	chunkExplored []int
	exploredTotal int

	territory []Owner
}

func New(width, height int) *Model {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	cw := (width + ChunkSize - 1) / ChunkSize
	ch := (height + ChunkSize - 1) / ChunkSize
	return &Model{
		width:         width,
		height:        height,
		cw:            cw,
		ch:            ch,
		facts:         make([]Fact, cw*ch),
		known:         make([]bool, cw*ch),
		isPending:     make([]bool, cw*ch),
		explored:      bitset.New(uint(width * height)),
		chunkExplored: make([]int, cw*ch),
		territory:     make([]Owner, width*height),
	}
}

func (m *Model) Size() (width, height int) { return m.width, m.height }

// ChunkOf returns the chunk coordinate containing c.
func ChunkOf(c geom.Coord) geom.Coord {
	return geom.Coord{X: mathx.FloorDiv(c.X, ChunkSize), Y: mathx.FloorDiv(c.Y, ChunkSize)}
}

func (m *Model) inBounds(c geom.Coord) bool { return c.InBounds(m.width, m.height) }

func (m *Model) chunkIndex(c geom.Coord) int {
	k := ChunkOf(c)
	return k.Y*m.cw + k.X
}

func (m *Model) chunkSpan(idx int) (x0, y0, x1, y1 int) {
	cx, cy := idx%m.cw, idx/m.cw
	x0, y0 = cx*ChunkSize, cy*ChunkSize
	x1 = mathx.Clamp(x0+ChunkSize-1, x0, m.width-1)
	y1 = mathx.Clamp(y0+ChunkSize-1, y0, m.height-1)
	return x0, y0, x1, y1
}

// ChunkCenter is the middle cell of a chunk, clipped to the map.
func (m *Model) ChunkCenter(idx int) geom.Coord {
	x0, y0, x1, y1 := m.chunkSpan(idx)
	return geom.Coord{X: (x0 + x1) / 2, Y: (y0 + y1) / 2}
}

func (m *Model) chunkCapacity(idx int) int {
	x0, y0, x1, y1 := m.chunkSpan(idx)
	return (x1 - x0 + 1) * (y1 - y0 + 1)
}

// Record overwrites the fact for c's chunk. It reports whether the observable
// fact changed; re-recording the same fact only refreshes SeenTurn.
func (m *Model) Record(c geom.Coord, owner Owner, kind StructureKind, turn uint64) bool {
	return m.record(c, owner, kind, turn, true)
}

func (m *Model) record(c geom.Coord, owner Owner, kind StructureKind, turn uint64, relay bool) bool {
	if !m.inBounds(c) || !kind.Valid() || owner > OwnerEnemy {
		return false
	}
	idx := m.chunkIndex(c)
	next := Fact{Chunk: ChunkOf(c), Loc: c, Owner: owner, Kind: kind, SeenTurn: turn}
	if m.known[idx] {
		cur := m.facts[idx]
		if cur.Loc == next.Loc && cur.Owner == next.Owner && cur.Kind == next.Kind {
			if turn > cur.SeenTurn {
				m.facts[idx].SeenTurn = turn
			}
			return false
		}
	}
	m.facts[idx] = next
	m.known[idx] = true
	if relay {
		m.enqueue(idx)
	}
	return true
}

// Forget drops the fact for c's chunk, returning it to "unknown".
func (m *Model) Forget(c geom.Coord) bool {
	if !m.inBounds(c) {
		return false
	}
	idx := m.chunkIndex(c)
	if !m.known[idx] {
		return false
	}
	m.known[idx] = false
	m.facts[idx] = Fact{}
	return true
}

func (m *Model) Lookup(c geom.Coord) (Fact, bool) {
	if !m.inBounds(c) {
		return Fact{}, false
	}
	idx := m.chunkIndex(c)
	return m.facts[idx], m.known[idx]
}

// Facts returns all known facts in chunk order.
func (m *Model) Facts() []Fact {
	var out []Fact
	for i, ok := range m.known {
		if ok {
			out = append(out, m.facts[i])
		}
	}
	return out
}

// NearestFact returns the matching fact whose chunk center is closest to from.
func (m *Model) NearestFact(from geom.Coord, pred Predicate) (Fact, bool) {
	best := -1
	bestD := 0
	for i, ok := range m.known {
		if !ok || (pred != nil && !pred(m.facts[i])) {
			continue
		}
		d := m.ChunkCenter(i).DistSq(from)
		if best < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return Fact{}, false
	}
	return m.facts[best], true
}

// Nearest returns the center of the closest matching chunk. Not finding one is
// a normal answer, not an error.
func (m *Model) Nearest(from geom.Coord, pred Predicate) (geom.Coord, bool) {
	f, ok := m.NearestFact(from, pred)
	if !ok {
		return geom.Coord{}, false
	}
	return m.ChunkCenter(f.Chunk.Y*m.cw + f.Chunk.X), true
}

func (m *Model) enqueue(idx int) {
	if m.isPending[idx] {
		return
	}
	m.isPending[idx] = true
	m.pending = append(m.pending, idx)
}

// PendingCount is the number of facts waiting to be relayed.
func (m *Model) PendingCount() int { return len(m.pending) }

// TakePending pops up to n facts queued for relay, oldest first. Facts
// forgotten since they were queued are skipped.
func (m *Model) TakePending(n int) []Fact {
	var out []Fact
	for len(m.pending) > 0 && len(out) < n {
		idx := m.pending[0]
		m.pending = m.pending[1:]
		m.isPending[idx] = false
		if m.known[idx] {
			out = append(out, m.facts[idx])
		}
	}
	return out
}
