package worldmodel

import "gridswarm.ai/internal/core/geom"

// Owner is relative to the team of the agent holding the model.
type Owner uint8

const (
	OwnerNone Owner = iota
	OwnerAlly
	OwnerEnemy
)

func (o Owner) String() string {
	switch o {
	case OwnerAlly:
		return "ally"
	case OwnerEnemy:
		return "enemy"
	}
	return "none"
}

// Flip converts between team-relative views.
func (o Owner) Flip() Owner {
	switch o {
	case OwnerAlly:
		return OwnerEnemy
	case OwnerEnemy:
		return OwnerAlly
	}
	return OwnerNone
}

type StructureKind uint8

const (
	KindUnknown StructureKind = iota
	KindRuin
	KindPaintTower
	KindMoneyTower
	KindDefenseTower
	KindResourcePattern
)

var kindNames = [...]string{"unknown", "ruin", "paint_tower", "money_tower", "defense_tower", "resource_pattern"}

func (k StructureKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func (k StructureKind) Valid() bool { return k > KindUnknown && k <= KindResourcePattern }

func (k StructureKind) IsTower() bool {
	return k == KindPaintTower || k == KindMoneyTower || k == KindDefenseTower
}

// Fact is the last known state of one chunk's structure.
type Fact struct {
	Chunk    geom.Coord
	Loc      geom.Coord
	Owner    Owner
	Kind     StructureKind
	SeenTurn uint64
}

// Predicate selects facts for Nearest.
type Predicate func(Fact) bool

func All(preds ...Predicate) Predicate {
	return func(f Fact) bool {
		for _, p := range preds {
			if !p(f) {
				return false
			}
		}
		return true
	}
}

func OwnedBy(o Owner) Predicate { return func(f Fact) bool { return f.Owner == o } }

func OfKind(k StructureKind) Predicate { return func(f Fact) bool { return f.Kind == k } }

func IsTower() Predicate { return func(f Fact) bool { return f.Kind.IsTower() } }
