package worldmodel

import "gridswarm.ai/internal/core/comms"

// KindStructureFact is the wire kind for structure facts. Payload is owner<<8 | kind.
const KindStructureFact comms.Kind = 1

func FactMessage(f Fact) comms.Message {
	return comms.Message{
		Kind:    KindStructureFact,
		Loc:     f.Loc,
		Payload: uint16(f.Owner)<<8 | uint16(f.Kind),
	}
}

// ApplyMessage records a structure fact received from a teammate. Messages of
// other kinds, or with an unknown owner or kind, are ignored.
func (m *Model) ApplyMessage(msg comms.Message, turn uint64) bool {
	if msg.Kind != KindStructureFact {
		return false
	}
	owner := Owner(msg.Payload >> 8)
	kind := StructureKind(msg.Payload & 0xFF)
	if owner > OwnerEnemy || !kind.Valid() {
		return false
	}
	return m.record(msg.Loc, owner, kind, turn, m.RelayReceived)
}
