// Package comms packs agent messages into single 32-bit words and meters how
// many an agent may send per turn.
//
// Wire layout, most significant bit first:
//
//	[31..28 kind][27..22 x][21..16 y][15..0 payload]
//
// Kind 0 is reserved for "no message". Everything else is assigned by the
// policy layer; the codec does not interpret it.
package comms

import "gridswarm.ai/internal/core/geom"

type Kind uint8

const (
	KindNone Kind = 0
	MaxKind  Kind = 15
)

const (
	kindShift = 28
	xShift    = 22
	yShift    = 16

	kindMask    = 0xF
	coordMask   = 0x3F
	payloadMask = 0xFFFF

	// MaxCoord is the largest coordinate the wire format can carry.
	MaxCoord = coordMask
)

type Message struct {
	Kind    Kind
	Loc     geom.Coord
	Payload uint16
}

// None is the sentinel for absent or malformed messages.
var None = Message{}

func (m Message) IsNone() bool { return m.Kind == KindNone }

// Encode packs m. Fields wider than the wire format are truncated by masking:
// x=70 encodes the same as x=6.
func Encode(m Message) uint32 {
	return uint32(m.Kind&kindMask)<<kindShift |
		uint32(m.Loc.X&coordMask)<<xShift |
		uint32(m.Loc.Y&coordMask)<<yShift |
		uint32(m.Payload)&payloadMask
}

// Decode unpacks any word. It never fails; use Protocol.Decode to reject
// kinds or coordinates the receiver does not understand.
func Decode(w uint32) Message {
	return Message{
		Kind: Kind((w >> kindShift) & kindMask),
		Loc: geom.Coord{
			X: int((w >> xShift) & coordMask),
			Y: int((w >> yShift) & coordMask),
		},
		Payload: uint16(w & payloadMask),
	}
}

// Protocol is the receiver's view of the channel: which kinds are defined and
// how large the map is.
type Protocol struct {
	Width  int
	Height int

	defined uint16
}

func NewProtocol(width, height int, kinds ...Kind) Protocol {
	p := Protocol{Width: width, Height: height}
	for _, k := range kinds {
		if k == KindNone || k > MaxKind {
			continue
		}
		p.defined |= 1 << k
	}
	return p
}

func (p Protocol) Defines(k Kind) bool {
	return k != KindNone && k <= MaxKind && p.defined&(1<<k) != 0
}

// Decode maps undefined kinds and off-map coordinates to None, so a corrupted
// or newer-protocol word never reaches the world model.
func (p Protocol) Decode(w uint32) Message {
	m := Decode(w)
	if !p.Defines(m.Kind) {
		return None
	}
	if !m.Loc.InBounds(p.Width, p.Height) {
		return None
	}
	return m
}
