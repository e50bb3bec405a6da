package agent

import (
	"gridswarm.ai/internal/core/comms"
	"gridswarm.ai/internal/core/geom"
	"gridswarm.ai/internal/core/nav"
	"gridswarm.ai/internal/core/worldmodel"
)

// Occupant is who stands on a sensed cell, relative to the sensing agent.
type Occupant uint8

const (
	NoOccupant Occupant = iota
	AllyOccupant
	EnemyOccupant
)

// Sighting is one sensed cell. Ownership fields are relative to the sensing
// agent's team; Structure is KindUnknown when the cell holds none.
type Sighting struct {
	Loc            geom.Coord
	Passable       bool
	Paint          worldmodel.Owner
	Structure      worldmodel.StructureKind
	StructureOwner worldmodel.Owner
	Occupant       Occupant
}

// Env is what the host hands an agent for one turn.
type Env interface {
	nav.Mover
	comms.Sender

	Turn() uint64
	MapSize() (width, height int)
	// Sense returns the cells currently within sensing range.
	Sense() []Sighting
	// ReceiveAll drains the words addressed to this agent last turn.
	ReceiveAll() []uint32
	// Allies lists teammates within messaging range, nearest first.
	Allies() []int
}
