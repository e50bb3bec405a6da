package agent

import (
	"gridswarm.ai/internal/core/comms"
	"gridswarm.ai/internal/core/geom"
	"gridswarm.ai/internal/core/worldmodel"
)

type Goal uint8

const (
	GoalHold Goal = iota
	GoalExplore
	GoalScout
	GoalAttack
	GoalFlee
)

func (g Goal) String() string {
	switch g {
	case GoalExplore:
		return "explore"
	case GoalScout:
		return "scout"
	case GoalAttack:
		return "attack"
	case GoalFlee:
		return "flee"
	default:
		return "hold"
	}
}

// View is the per-turn input a policy sees besides the agent's own state.
type View struct {
	Turn      uint64
	Pos       geom.Coord
	Threat    geom.Coord
	HasThreat bool
}

// Decision is where to go this turn. GoalFlee moves away from Target.
type Decision struct {
	Goal   Goal
	Target geom.Coord
}

// Policy picks a goal after sensing and messages have been applied.
type Policy interface {
	Decide(a *Agent, v View) Decision
}

type PolicyFunc func(a *Agent, v View) Decision

func (f PolicyFunc) Decide(a *Agent, v View) Decision { return f(a, v) }

// Hold never moves.
type Hold struct{}

func (Hold) Decide(*Agent, View) Decision { return Decision{} }

// Explorer is the reference policy: flee adjacent enemies, visit known enemy
// towers, scout the mirror of ally towers, otherwise explore. One Explorer
// belongs to one agent.
type Explorer struct {
	FleeRadiusSq int
	// Patience is how many turns one target is pursued before it is skipped.
	// Zero never gives up.
	Patience uint64

	target  geom.Coord
	goal    Goal
	since   uint64
	active  bool
	skipped map[geom.Coord]bool
	visited map[geom.Coord]bool
}

func NewExplorer(fleeRadiusSq int, patience uint64) *Explorer {
	return &Explorer{
		FleeRadiusSq: fleeRadiusSq,
		Patience:     patience,
		skipped:      map[geom.Coord]bool{},
		visited:      map[geom.Coord]bool{},
	}
}

func (e *Explorer) Decide(a *Agent, v View) Decision {
	if a.Class == comms.ClassStationary {
		return Decision{}
	}
	if e.skipped == nil {
		e.skipped = map[geom.Coord]bool{}
		e.visited = map[geom.Coord]bool{}
	}
	if e.FleeRadiusSq > 0 && v.HasThreat && v.Pos.DistSq(v.Threat) <= e.FleeRadiusSq {
		e.active = false
		return Decision{Goal: GoalFlee, Target: v.Threat}
	}

	enemyTower := worldmodel.All(
		worldmodel.OwnedBy(worldmodel.OwnerEnemy),
		worldmodel.IsTower(),
		func(f worldmodel.Fact) bool { return !e.visited[f.Chunk] && !e.skipped[f.Loc] },
	)
	for {
		f, ok := a.Model.NearestFact(v.Pos, enemyTower)
		if !ok {
			break
		}
		if v.Pos.Chebyshev(f.Loc) <= 1 {
			e.visited[f.Chunk] = true
			continue
		}
		return e.pursue(GoalAttack, f.Loc, v.Turn)
	}

	if f, ok := a.Model.NearestFact(v.Pos, worldmodel.All(worldmodel.OwnedBy(worldmodel.OwnerAlly), worldmodel.IsTower())); ok {
		p := a.Symmetry.Predict(f.Loc)
		if !a.Model.IsExplored(p) && !e.skipped[p] {
			return e.pursue(GoalScout, p, v.Turn)
		}
	}

	if c, ok := a.Model.FindUnexploredFunc(v.Pos, func(c geom.Coord) bool { return !e.skipped[c] }); ok {
		return e.pursue(GoalExplore, c, v.Turn)
	}
	e.active = false
	return Decision{}
}

func (e *Explorer) pursue(goal Goal, target geom.Coord, turn uint64) Decision {
	if !e.active || e.target != target || e.goal != goal {
		e.target, e.goal, e.since, e.active = target, goal, turn, true
	}
	if e.Patience > 0 && turn-e.since > e.Patience {
		e.skipped[target] = true
		e.active = false
		return Decision{}
	}
	return Decision{Goal: goal, Target: target}
}
