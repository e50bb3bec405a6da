package nav

import "gridswarm.ai/internal/core/geom"

// MoveAway steps to the free neighbour that most increases the distance from
// threat, using the cell score to break near ties. It never steps closer and
// leaves the MoveToward state alone.
func (n *Navigator) MoveAway(m Mover, threat geom.Coord) bool {
	if !m.CanMove() {
		return false
	}
	pos := m.Position()
	cur := pos.DistSq(threat)
	best := geom.Center
	bestScore := 0
	for _, d := range geom.Directions {
		if !m.CanStep(d) {
			continue
		}
		next := pos.Add(d)
		gain := next.DistSq(threat) - cur
		if gain <= 0 {
			continue
		}
		s := gain*n.cfg.ProgressBonus + n.scorer.Score(next)
		if best == geom.Center || s > bestScore {
			best, bestScore = d, s
		}
	}
	if best == geom.Center {
		return false
	}
	return m.Step(best)
}
