package nav

import (
	"gridswarm.ai/internal/core/geom"
	"gridswarm.ai/internal/core/worldmodel"
)

// Scorer rates how desirable it is to stand on a cell. The navigator adds its
// own progress bonus and off-axis penalty on top.
type Scorer interface {
	Score(c geom.Coord) int
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(c geom.Coord) int

func (f ScorerFunc) Score(c geom.Coord) int { return f(c) }

// FlatScorer has no terrain preference.
type FlatScorer struct{}

func (FlatScorer) Score(geom.Coord) int { return 0 }

// TerritoryScorer prefers ally paint and avoids enemy paint, as remembered by
// the agent's world model.
type TerritoryScorer struct {
	Model *worldmodel.Model

	AllyBonus    int
	EnemyPenalty int
}

func NewTerritoryScorer(m *worldmodel.Model) TerritoryScorer {
	return TerritoryScorer{Model: m, AllyBonus: 2, EnemyPenalty: 4}
}

func (s TerritoryScorer) Score(c geom.Coord) int {
	if s.Model == nil {
		return 0
	}
	switch s.Model.TerritoryAt(c) {
	case worldmodel.OwnerAlly:
		return s.AllyBonus
	case worldmodel.OwnerEnemy:
		return -s.EnemyPenalty
	}
	return 0
}
