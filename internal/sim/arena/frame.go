package arena

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"gridswarm.ai/internal/agent"
	"gridswarm.ai/internal/observerproto"
)

func (a *Arena) frame() observerproto.TurnFrame {
	f := observerproto.TurnFrame{
		Type:            observerproto.TypeTurn,
		ProtocolVersion: observerproto.Version,
		MatchID:         a.cfg.MatchID,
		Turn:            a.turn,
		Digest:          a.digest(),
		Agents:          make([]observerproto.AgentState, 0, len(a.bodies)),
		Paint:           a.board.paintCounts(),
	}
	if len(a.messages) > 0 {
		f.Messages = append([]observerproto.MessageRecord(nil), a.messages...)
	}
	for _, b := range a.bodies {
		f.Agents = append(f.Agents, b.state())
	}
	return f
}

func (b *body) state() observerproto.AgentState {
	d := b.brain.Decision()
	st := b.brain.Nav.Status()
	s := observerproto.AgentState{
		ID:       b.id,
		Team:     b.team.String(),
		Class:    b.class.String(),
		Pos:      [2]int{b.pos.X, b.pos.Y},
		Goal:     d.Goal.String(),
		Tracing:  st.Tracing,
		Moved:    b.last.Moved,
		Explored: b.brain.Model.ExploredCount(),
		Facts:    len(b.brain.Model.Facts()),
		Symmetry: b.brain.Symmetry.Candidates().String(),
		Sent:     b.last.Sent,
		Received: b.last.Received,
	}
	if d.Goal != agent.GoalHold {
		s.Target = &[2]int{d.Target.X, d.Target.Y}
	}
	if b.lastErr != nil {
		s.Error = b.lastErr.Error()
	}
	return s
}

// digest hashes everything that determines the next turn on the host side:
// positions, cooldowns, queued words and paint.
func (a *Arena) digest() string {
	h := sha256.New()
	buf := make([]byte, 0, 64)
	buf = binary.LittleEndian.AppendUint64(buf, a.turn)
	h.Write(buf)
	for _, b := range a.bodies {
		buf = buf[:0]
		buf = binary.LittleEndian.AppendUint32(buf, uint32(b.id))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(b.pos.X))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(b.pos.Y))
		buf = binary.LittleEndian.AppendUint64(buf, b.nextMove)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b.nextInbox)))
		for _, w := range b.nextInbox {
			buf = binary.LittleEndian.AppendUint32(buf, w)
		}
		h.Write(buf)
	}
	paint := make([]byte, len(a.board.paint))
	for i, t := range a.board.paint {
		paint[i] = byte(t)
	}
	h.Write(paint)
	return hex.EncodeToString(h.Sum(nil))
}
