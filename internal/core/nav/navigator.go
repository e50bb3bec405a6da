// Package nav moves one agent one cell per call toward a target on a grid
// with obstacles it has not necessarily seen. It advances straight at the
// target while it can and follows the blocking surface when it can't.
package nav

import (
	"math/rand"

	"gridswarm.ai/internal/core/geom"
)

// Mover is the host's movement contract for one agent.
type Mover interface {
	Position() geom.Coord
	// CanMove is false while the agent is on movement cooldown.
	CanMove() bool
	// CanStep reports whether the neighbouring cell in d is free right now.
	CanStep(d geom.Direction) bool
	Step(d geom.Direction) bool
}

// Hand is the side kept against the wall while tracing.
type Hand uint8

const (
	RightHand Hand = iota
	LeftHand
)

func (h Hand) String() string {
	if h == LeftHand {
		return "left"
	}
	return "right"
}

type Config struct {
	// FlipTurns is how long one hand rule is tried before switching sides.
	FlipTurns int
	// StuckLimit is how many consecutive fully boxed-in calls are tolerated
	// before the target is abandoned.
	StuckLimit int

	ProgressBonus  int
	OffAxisPenalty int
}

func DefaultConfig() Config {
	return Config{
		FlipTurns:      15,
		StuckLimit:     3,
		ProgressBonus:  10,
		OffAxisPenalty: 3,
	}
}

// Later flips double the allowance up to FlipTurns<<maxFlipShift.
const maxFlipShift = 4

// Status is a read-only view of the navigator state.
type Status struct {
	Target       geom.Coord
	HasTarget    bool
	Tracing      bool
	TraceStart   geom.Coord
	TraceDir     geom.Direction
	Hand         Hand
	TurnsInTrace int
	Flips        int
	Stuck        int
	// Wander is set after a stuck overflow until the random step is taken.
	Wander       bool
}

type Navigator struct {
	cfg    Config
	scorer Scorer
	rng    *rand.Rand

	target    geom.Coord
	hasTarget bool

	tracing        bool
	traceStart     geom.Coord
	traceStartDist int
	traceDir       geom.Direction
	hand           Hand
	turnsInTrace   int
	flips          int
	stuck          int
	wander         bool

	totalFlips int
	fallbacks  int
}

func New(cfg Config, scorer Scorer, seed int64) *Navigator {
	def := DefaultConfig()
	if cfg.FlipTurns <= 0 {
		cfg.FlipTurns = def.FlipTurns
	}
	if cfg.StuckLimit <= 0 {
		cfg.StuckLimit = def.StuckLimit
	}
	if scorer == nil {
		scorer = FlatScorer{}
	}
	return &Navigator{
		cfg:    cfg,
		scorer: scorer,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// SetScorer swaps the cell-scoring strategy; state is kept.
func (n *Navigator) SetScorer(s Scorer) {
	if s == nil {
		s = FlatScorer{}
	}
	n.scorer = s
}

// Reset clears the target and all tracing state. A pending random step
// survives it.
func (n *Navigator) Reset() {
	n.hasTarget = false
	n.target = geom.Coord{}
	n.clearTrace()
	n.stuck = 0
}

func (n *Navigator) clearTrace() {
	n.tracing = false
	n.traceStart = geom.Coord{}
	n.traceStartDist = 0
	n.traceDir = geom.Center
	n.hand = RightHand
	n.turnsInTrace = 0
	n.flips = 0
}

func (n *Navigator) Status() Status {
	return Status{
		Target:       n.target,
		HasTarget:    n.hasTarget,
		Tracing:      n.tracing,
		TraceStart:   n.traceStart,
		TraceDir:     n.traceDir,
		Hand:         n.hand,
		TurnsInTrace: n.turnsInTrace,
		Flips:        n.flips,
		Stuck:        n.stuck,
		Wander:       n.wander,
	}
}

// Counters reports lifetime hand flips and random fallbacks.
func (n *Navigator) Counters() (flips, fallbacks int) { return n.totalFlips, n.fallbacks }

// MoveToward takes at most one step toward target and reports whether a step
// happened. Not being allowed to move, or already standing on the target, is
// a plain false.
func (n *Navigator) MoveToward(m Mover, target geom.Coord) bool {
	if !m.CanMove() {
		return false
	}
	if !n.hasTarget || n.target != target {
		n.Reset()
		n.target = target
		n.hasTarget = true
	}
	pos := m.Position()
	if pos == target {
		n.wander = false
		return false
	}
	if n.wander {
		if !n.randomStep(m) {
			return false
		}
		n.wander = false
		n.fallbacks++
		return true
	}

	if n.tracing {
		if n.onLine(pos) && pos.DistSq(target) < n.traceStartDist {
			n.clearTrace()
		} else if n.turnsInTrace >= n.flipAllowance() {
			n.hand ^= 1
			n.turnsInTrace = 0
			n.flips++
			n.totalFlips++
		}
	}

	if !n.tracing {
		d := pos.DirectionTo(target)
		if best, ok := n.bestOf(m, pos, d, d, d.RotateLeft(), d.RotateRight()); ok {
			n.stuck = 0
			return m.Step(best)
		}
		n.tracing = true
		n.traceStart = pos
		n.traceStartDist = pos.DistSq(target)
		n.traceDir = d
		n.turnsInTrace = 0
	}
	return n.traceStep(m)
}

func (n *Navigator) flipAllowance() int {
	shift := n.flips
	if shift > maxFlipShift {
		shift = maxFlipShift
	}
	return n.cfg.FlipTurns << shift
}

// onLine is true within one cell of the trace-start -> target line.
func (n *Navigator) onLine(pos geom.Coord) bool {
	ax := n.target.X - n.traceStart.X
	ay := n.target.Y - n.traceStart.Y
	bx := pos.X - n.traceStart.X
	by := pos.Y - n.traceStart.Y
	cross := ax*by - ay*bx
	return cross*cross <= ax*ax+ay*ay
}

func (n *Navigator) traceStep(m Mover) bool {
	n.turnsInTrace++
	pos := m.Position()
	d := n.traceDir
	for i := 0; i < 8; i++ {
		if m.CanStep(d) {
			n.stuck = 0
			// The next turn off the wall, 45 degrees past d, is scored
			// against it. Ties keep d.
			if alt := n.offWall(d); i > 0 && m.CanStep(alt) {
				direct := pos.DirectionTo(n.target)
				if n.score(pos, alt, direct) > n.score(pos, d, direct) {
					d = alt
				}
			}
			// Turn back toward the wall so the next probe hugs it.
			if n.hand == RightHand {
				n.traceDir = d.RotateRight().RotateRight()
			} else {
				n.traceDir = d.RotateLeft().RotateLeft()
			}
			return m.Step(d)
		}
		d = n.offWall(d)
	}

	// Boxed in: after StuckLimit calls give up on the target and take one
	// random step as soon as any neighbour opens.
	n.stuck++
	if n.stuck <= n.cfg.StuckLimit {
		return false
	}
	n.Reset()
	n.wander = true
	return false
}

// offWall rotates d one step away from the wall under the current hand.
func (n *Navigator) offWall(d geom.Direction) geom.Direction {
	if n.hand == RightHand {
		return d.RotateLeft()
	}
	return d.RotateRight()
}

// bestOf picks the passable candidate with the highest score. Earlier
// candidates win ties.
func (n *Navigator) bestOf(m Mover, pos geom.Coord, direct geom.Direction, cands ...geom.Direction) (geom.Direction, bool) {
	best := geom.Center
	bestScore := 0
	found := false
	for _, d := range cands {
		if d == geom.Center || !m.CanStep(d) {
			continue
		}
		s := n.score(pos, d, direct)
		if !found || s > bestScore {
			best, bestScore, found = d, s, true
		}
	}
	return best, found
}

func (n *Navigator) score(pos geom.Coord, d, direct geom.Direction) int {
	next := pos.Add(d)
	s := n.scorer.Score(next)
	if n.hasTarget && next.DistSq(n.target) < pos.DistSq(n.target) {
		s += n.cfg.ProgressBonus
	}
	if d != direct {
		s -= n.cfg.OffAxisPenalty
	}
	return s
}

func (n *Navigator) randomStep(m Mover) bool {
	var open [8]geom.Direction
	k := 0
	for _, d := range geom.Directions {
		if m.CanStep(d) {
			open[k] = d
			k++
		}
	}
	if k == 0 {
		return false
	}
	return m.Step(open[n.rng.Intn(k)])
}
