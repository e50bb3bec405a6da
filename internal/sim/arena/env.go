package arena

import (
	"sort"

	"gridswarm.ai/internal/agent"
	"gridswarm.ai/internal/core/comms"
	"gridswarm.ai/internal/core/geom"
	"gridswarm.ai/internal/core/worldmodel"
	"gridswarm.ai/internal/observerproto"
)

// turnEnv is one body's view of the arena for the current turn.
type turnEnv struct {
	a *Arena
	b *body
}

var _ agent.Env = (*turnEnv)(nil)

func (e *turnEnv) Turn() uint64         { return e.a.turn }
func (e *turnEnv) Position() geom.Coord { return e.b.pos }

func (e *turnEnv) MapSize() (int, int) { return e.a.board.width, e.a.board.height }

func (e *turnEnv) CanMove() bool {
	return e.b.class == comms.ClassMobile && e.a.turn >= e.b.nextMove
}

func (e *turnEnv) CanStep(d geom.Direction) bool {
	if !d.Valid() || d == geom.Center {
		return false
	}
	n := e.b.pos.Add(d)
	if !e.a.board.passable(n) {
		return false
	}
	_, taken := e.a.occupied[n]
	return !taken
}

func (e *turnEnv) Step(d geom.Direction) bool {
	if !e.CanMove() || !e.CanStep(d) {
		return false
	}
	a, b := e.a, e.b
	delete(a.occupied, b.pos)
	b.pos = b.pos.Add(d)
	a.occupied[b.pos] = b.id
	b.nextMove = a.turn + uint64(a.tune.MoveCooldownTurns)
	a.board.paint[a.board.index(b.pos)] = b.team
	return true
}

// Send queues word for the recipient's next turn. Enemies, unknown ids and
// recipients outside messaging range are refused.
func (e *turnEnv) Send(to int, word uint32) bool {
	a, b := e.a, e.b
	if to < 0 || to >= len(a.bodies) || to == b.id {
		return false
	}
	r := a.bodies[to]
	if r.team != b.team || r.pos.DistSq(b.pos) > a.tune.MessageRadiusSq {
		return false
	}
	r.nextInbox = append(r.nextInbox, word)
	a.messages = append(a.messages, observerproto.MessageRecord{
		From: b.id,
		To:   to,
		Word: word,
		Kind: int(comms.Decode(word).Kind),
	})
	return true
}

func (e *turnEnv) ReceiveAll() []uint32 {
	in := e.b.inbox
	e.b.inbox = nil
	return in
}

func (e *turnEnv) Allies() []int {
	a, b := e.a, e.b
	var out []int
	for _, o := range a.bodies {
		if o.id != b.id && o.team == b.team && o.pos.DistSq(b.pos) <= a.tune.MessageRadiusSq {
			out = append(out, o.id)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return a.bodies[out[i]].pos.DistSq(b.pos) < a.bodies[out[j]].pos.DistSq(b.pos)
	})
	return out
}

func (e *turnEnv) relative(t Team) worldmodel.Owner {
	switch {
	case t == teamNone:
		return worldmodel.OwnerNone
	case t == e.b.team:
		return worldmodel.OwnerAlly
	}
	return worldmodel.OwnerEnemy
}

// Sense lists every cell within the sensing radius, row by row.
func (e *turnEnv) Sense() []agent.Sighting {
	a, b := e.a, e.b
	r2 := a.tune.SenseRadiusSq
	r := 0
	for (r+1)*(r+1) <= r2 {
		r++
	}
	out := make([]agent.Sighting, 0, (2*r+1)*(2*r+1))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			c := geom.Coord{X: b.pos.X + dx, Y: b.pos.Y + dy}
			if !a.board.inBounds(c) {
				continue
			}
			s := agent.Sighting{
				Loc:      c,
				Passable: a.board.passable(c),
				Paint:    e.relative(a.board.paint[a.board.index(c)]),
			}
			if st, ok := a.board.structures[c]; ok {
				s.Structure = st.kind
				s.StructureOwner = e.relative(st.owner)
			}
			if id, ok := a.occupied[c]; ok && id != b.id {
				if a.bodies[id].team == b.team {
					s.Occupant = agent.AllyOccupant
				} else {
					s.Occupant = agent.EnemyOccupant
				}
			}
			out = append(out, s)
		}
	}
	return out
}
