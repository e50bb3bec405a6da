// Package arena hosts a match: a seeded symmetric map, two teams of agents
// and the turn loop that drives them through agent.Env.
package arena

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"gridswarm.ai/internal/agent"
	"gridswarm.ai/internal/core/comms"
	"gridswarm.ai/internal/core/geom"
	"gridswarm.ai/internal/core/nav"
	"gridswarm.ai/internal/core/symmetry"
	"gridswarm.ai/internal/observerproto"
	"gridswarm.ai/internal/sim/tuning"
)

// Sink receives every finished turn and the final result. The turn logger,
// the sqlite index and the observer hub are sinks.
type Sink interface {
	WriteTurn(observerproto.TurnFrame) error
	WriteResult(observerproto.ResultMsg) error
}

type Config struct {
	MatchID string
	Seed    int64
	Tuning  tuning.Tuning
	Logger  *log.Logger
}

type body struct {
	id    int
	team  Team
	class comms.Class
	pos   geom.Coord
	brain *agent.Agent

	nextMove  uint64
	inbox     []uint32
	nextInbox []uint32

	last    agent.TurnResult
	lastErr error
}

type Arena struct {
	cfg   Config
	tune  tuning.Tuning
	log   *log.Logger
	board *board

	bodies   []*body
	occupied map[geom.Coord]int

	turn     uint64
	messages []observerproto.MessageRecord
	sinks    []Sink
	finished bool

	stop chan struct{}
}

func New(cfg Config) (*Arena, error) {
	t := cfg.Tuning
	if err := t.Validate(); err != nil {
		return nil, err
	}
	sym, err := ParseSymmetry(t.Symmetry, cfg.Seed)
	if err != nil {
		return nil, err
	}
	if cfg.MatchID == "" {
		cfg.MatchID = uuid.NewString()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[arena] ", log.LstdFlags|log.Lmicroseconds)
	}

	b := newBoard(t.Width, t.Height, sym)
	towers := b.generate(cfg.Seed, t.WallPermille, t.TowersPerTeam, t.RuinCount)

	a := &Arena{
		cfg:      cfg,
		tune:     t,
		log:      logger,
		board:    b,
		occupied: map[geom.Coord]int{},
		stop:     make(chan struct{}),
	}

	anchor := geom.Coord{X: t.Width / 4, Y: t.Height / 4}
	if len(towers) > 0 {
		anchor = towers[0]
	}
	spawns := b.spawnCells(anchor, t.MobilePerTeam)
	if len(spawns) < t.MobilePerTeam {
		return nil, fmt.Errorf("arena: only %d of %d spawn cells free", len(spawns), t.MobilePerTeam)
	}

	// Bodies alternate A, B so turn order is fair and body i+1 mirrors body i.
	place := func(class comms.Class, posA geom.Coord) {
		for _, team := range [2]Team{TeamA, TeamB} {
			pos := posA
			if team == TeamB {
				pos = b.mirrorOf(posA)
			}
			a.addBody(team, class, pos)
		}
	}
	for _, c := range towers {
		place(comms.ClassStationary, c)
	}
	for _, c := range spawns {
		place(comms.ClassMobile, c)
	}
	return a, nil
}

func (a *Arena) agentConfig(id int) agent.Config {
	t := a.tune
	return agent.Config{
		Nav: nav.Config{
			FlipTurns:      t.Nav.FlipTurns,
			StuckLimit:     t.Nav.StuckLimit,
			ProgressBonus:  t.Nav.ProgressBonus,
			OffAxisPenalty: t.Nav.OffAxisPenalty,
		},
		Quotas:           t.Quotas(),
		TerritoryScoring: t.Nav.Territory,
		Seed:             a.cfg.Seed + int64(id)*7919,
	}
}

func (a *Arena) addBody(team Team, class comms.Class, pos geom.Coord) {
	id := len(a.bodies)
	prefix := fmt.Sprintf("[agent %s%d] ", team, id)
	logger := log.New(a.log.Writer(), prefix, a.log.Flags())
	policy := agent.NewExplorer(a.tune.Policy.FleeRadiusSq, uint64(a.tune.Policy.PatienceTurns))
	bd := &body{
		id:    id,
		team:  team,
		class: class,
		pos:   pos,
		brain: agent.New(id, class, a.tune.Width, a.tune.Height, a.agentConfig(id), policy, logger),
	}
	a.bodies = append(a.bodies, bd)
	if class == comms.ClassMobile {
		a.occupied[pos] = id
	}
}

// AddSink registers s for every following turn.
func (a *Arena) AddSink(s Sink) {
	if s != nil {
		a.sinks = append(a.sinks, s)
	}
}

func (a *Arena) MatchID() string              { return a.cfg.MatchID }
func (a *Arena) Symmetry() symmetry.Transform { return a.board.sym }
func (a *Arena) CurrentTurn() uint64          { return a.turn }
func (a *Arena) Agents() int                  { return len(a.bodies) }

// Params describes the match for observers and the match header.
func (a *Arena) Params() observerproto.MatchParams {
	return observerproto.MatchParams{
		Width:           a.tune.Width,
		Height:          a.tune.Height,
		Seed:            a.cfg.Seed,
		Symmetry:        a.board.sym.String(),
		TurnRateHz:      a.tune.TurnRateHz,
		MaxTurns:        a.tune.MaxTurns,
		SenseRadiusSq:   a.tune.SenseRadiusSq,
		MessageRadiusSq: a.tune.MessageRadiusSq,
	}
}

// Done reports whether MaxTurns has been reached.
func (a *Arena) Done() bool {
	return a.tune.MaxTurns > 0 && a.turn >= uint64(a.tune.MaxTurns)
}

// StepOnce runs one turn for every agent and returns the turn number and the
// state digest after it.
func (a *Arena) StepOnce() (uint64, string) {
	a.turn++
	a.messages = a.messages[:0]
	for _, b := range a.bodies {
		b.inbox, b.nextInbox = b.nextInbox, nil
	}

	for _, b := range a.bodies {
		env := &turnEnv{a: a, b: b}
		res, err := b.brain.TakeTurn(env)
		b.last, b.lastErr = res, err
		if err != nil {
			a.log.Printf("turn=%d agent=%d: %v", a.turn, b.id, err)
		}
	}

	f := a.frame()
	for _, s := range a.sinks {
		if err := s.WriteTurn(f); err != nil {
			a.log.Printf("turn=%d sink: %v", a.turn, err)
		}
	}
	return a.turn, f.Digest
}

// Result summarizes the match so far.
func (a *Arena) Result() observerproto.ResultMsg {
	paint := a.board.paintCounts()
	winner := "draw"
	switch {
	case paint[TeamA] > paint[TeamB]:
		winner = TeamA.String()
	case paint[TeamB] > paint[TeamA]:
		winner = TeamB.String()
	}
	return observerproto.ResultMsg{
		Type:            observerproto.TypeResult,
		ProtocolVersion: observerproto.Version,
		MatchID:         a.cfg.MatchID,
		Turns:           a.turn,
		Paint:           paint,
		Winner:          winner,
	}
}

// Finish sends the result to every sink once.
func (a *Arena) Finish() observerproto.ResultMsg {
	r := a.Result()
	if a.finished {
		return r
	}
	a.finished = true
	for _, s := range a.sinks {
		if err := s.WriteResult(r); err != nil {
			a.log.Printf("result sink: %v", err)
		}
	}
	return r
}

// Stop makes Run return after the current turn.
func (a *Arena) Stop() {
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}
}

// Run steps the match on a ticker until MaxTurns, Stop or ctx ends it. A
// zero TurnRateHz runs turns back to back.
func (a *Arena) Run(ctx context.Context) error {
	defer a.Finish()

	var tick <-chan time.Time
	if a.tune.TurnRateHz > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(a.tune.TurnRateHz))
		defer ticker.Stop()
		tick = ticker.C
	}

	for !a.Done() {
		if tick == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-a.stop:
				return nil
			default:
			}
			a.StepOnce()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.stop:
			return nil
		case <-tick:
			a.StepOnce()
		}
	}
	return nil
}
