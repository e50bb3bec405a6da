// Package agent is the per-agent context: one navigator, world model,
// symmetry engine and outbox owned by a single agent, plus the turn handler
// that wires them to the host. Nothing here is shared between agents except
// through the message channel.
package agent

import (
	"errors"
	"fmt"
	"log"

	"gridswarm.ai/internal/core/comms"
	"gridswarm.ai/internal/core/geom"
	"gridswarm.ai/internal/core/nav"
	"gridswarm.ai/internal/core/symmetry"
	"gridswarm.ai/internal/core/worldmodel"
)

// KindSymmetry carries a symmetry hypothesis mask in the payload.
const KindSymmetry comms.Kind = 2

// ErrOutOfBounds means the host reported a position outside the map.
var ErrOutOfBounds = errors.New("position outside map")

type Config struct {
	Nav    nav.Config
	Quotas comms.Quotas
	// TerritoryScoring makes the navigator prefer ally paint.
	TerritoryScoring bool
	Seed             int64
}

func DefaultConfig() Config {
	return Config{
		Nav:              nav.DefaultConfig(),
		Quotas:           comms.DefaultQuotas(),
		TerritoryScoring: true,
	}
}

type Agent struct {
	ID    int
	Class comms.Class

	Nav      *nav.Navigator
	Model    *worldmodel.Model
	Symmetry *symmetry.Engine
	Outbox   *comms.Outbox

	proto  comms.Protocol
	policy Policy
	log    *log.Logger

	width  int
	height int

	decision        Decision
	symSent         symmetry.Transform
	degenerateNoted bool
	fallbacksSeen   int
}

// TurnResult is what the host loop inspects after each turn.
type TurnResult struct {
	Moved    bool
	Goal     Goal
	Sensed   int
	Received int
	Applied  int
	Dropped  int
	Sent     int
}

func New(id int, class comms.Class, width, height int, cfg Config, policy Policy, logger *log.Logger) *Agent {
	m := worldmodel.New(width, height)
	m.RelayReceived = class == comms.ClassStationary

	var scorer nav.Scorer = nav.FlatScorer{}
	if cfg.TerritoryScoring {
		scorer = nav.NewTerritoryScorer(m)
	}
	if policy == nil {
		policy = Hold{}
	}
	return &Agent{
		ID:       id,
		Class:    class,
		Nav:      nav.New(cfg.Nav, scorer, cfg.Seed^int64(id)),
		Model:    m,
		Symmetry: symmetry.New(width, height),
		Outbox:   comms.NewOutbox(comms.NewBudget(cfg.Quotas.For(class)), nil),
		proto:    comms.NewProtocol(width, height, worldmodel.KindStructureFact, KindSymmetry),
		policy:   policy,
		log:      logger,
		width:    width,
		height:   height,
	}
}

func (a *Agent) Decision() Decision { return a.decision }

func (a *Agent) logf(format string, args ...any) {
	if a.log != nil {
		a.log.Printf(format, args...)
	}
}

// TakeTurn runs one turn: sense, read messages, decide, move, send. Only a
// host that breaks its own contract produces an error.
func (a *Agent) TakeTurn(env Env) (TurnResult, error) {
	var res TurnResult
	turn := env.Turn()
	pos := env.Position()
	if !pos.InBounds(a.width, a.height) {
		return res, fmt.Errorf("agent %d turn %d at %v: %w", a.ID, turn, pos, ErrOutOfBounds)
	}
	a.Outbox.Rebind(env)

	threat, hasThreat := a.sense(env, turn, pos, &res)
	a.receive(env, turn, &res)
	a.noteSymmetry(turn)

	view := View{Turn: turn, Pos: pos, Threat: threat, HasThreat: hasThreat}
	a.decision = a.policy.Decide(a, view)
	res.Goal = a.decision.Goal
	switch {
	case a.decision.Goal == GoalFlee:
		res.Moved = a.Nav.MoveAway(env, a.decision.Target)
	case a.decision.Goal != GoalHold:
		res.Moved = a.Nav.MoveToward(env, a.decision.Target)
	}
	if _, fb := a.Nav.Counters(); fb != a.fallbacksSeen {
		a.fallbacksSeen = fb
		a.logf("agent=%d turn=%d navigator stuck, abandoned target and stepped randomly", a.ID, turn)
	}
	if res.Moved {
		a.Model.MarkExplored(env.Position())
	}

	res.Sent = a.send(env, turn)
	return res, nil
}

func (a *Agent) sense(env Env, turn uint64, pos geom.Coord, res *TurnResult) (geom.Coord, bool) {
	var threat geom.Coord
	hasThreat := false
	for _, s := range env.Sense() {
		if !s.Loc.InBounds(a.width, a.height) {
			continue
		}
		res.Sensed++
		a.Model.MarkExplored(s.Loc)
		a.Model.MarkTerritory(s.Loc, s.Paint)
		a.Symmetry.Observe(s.Loc, s.Passable)
		if s.Structure.Valid() {
			a.Model.Record(s.Loc, s.StructureOwner, s.Structure, turn)
		} else if f, ok := a.Model.Lookup(s.Loc); ok && f.Loc == s.Loc {
			a.Model.Forget(s.Loc)
		}
		if s.Occupant == EnemyOccupant {
			if !hasThreat || s.Loc.DistSq(pos) < threat.DistSq(pos) {
				threat, hasThreat = s.Loc, true
			}
		}
	}
	return threat, hasThreat
}

func (a *Agent) receive(env Env, turn uint64, res *TurnResult) {
	for _, w := range env.ReceiveAll() {
		res.Received++
		msg := a.proto.Decode(w)
		switch msg.Kind {
		case worldmodel.KindStructureFact:
			if a.Model.ApplyMessage(msg, turn) {
				res.Applied++
			}
		case KindSymmetry:
			mask, ok := symmetryMask(msg.Payload)
			if !ok {
				res.Dropped++
				continue
			}
			before := a.Symmetry.Candidates()
			a.Symmetry.Merge(mask)
			if a.Symmetry.Candidates() != before {
				res.Applied++
			}
		default:
			res.Dropped++
		}
	}
}

// symmetryMask accepts a payload only if it names at least one transform
// and nothing else.
func symmetryMask(p uint16) (symmetry.Transform, bool) {
	all := uint16(symmetry.AllTransforms)
	if p&^all != 0 || p&all == 0 {
		return 0, false
	}
	return symmetry.Transform(p), true
}

func (a *Agent) noteSymmetry(turn uint64) {
	if a.Symmetry.Degenerate() && !a.degenerateNoted {
		a.degenerateNoted = true
		a.logf("agent=%d turn=%d symmetry hypotheses exhausted, predicting map center", a.ID, turn)
	}
}

// send relays queued facts first, then a narrowed symmetry mask.
func (a *Agent) send(env Env, turn uint64) int {
	allies := env.Allies()
	if len(allies) == 0 {
		return 0
	}
	sent := 0
	for a.Outbox.CanSend(turn) && a.Model.PendingCount() > 0 {
		facts := a.Model.TakePending(1)
		if len(facts) == 0 {
			break
		}
		sent += a.Outbox.Broadcast(turn, allies, worldmodel.FactMessage(facts[0]))
	}
	cand := a.Symmetry.Candidates()
	if cand != symmetry.AllTransforms && cand != 0 && cand != a.symSent && a.Outbox.CanSend(turn) {
		msg := comms.Loc(KindSymmetry, a.Symmetry.Center(), uint16(cand))
		if n := a.Outbox.Broadcast(turn, allies, msg); n > 0 {
			a.symSent = cand
			sent += n
		}
	}
	return sent
}
