package arena

import (
	"fmt"

	"gridswarm.ai/internal/sim/tuning"
)

// Header is everything needed to rebuild a match from turn zero. It is
// stored as match.json next to the turn log.
type Header struct {
	MatchID  string        `json:"match_id"`
	Seed     int64         `json:"seed"`
	Symmetry string        `json:"symmetry"`
	Tuning   tuning.Tuning `json:"tuning"`
}

func (a *Arena) Header() Header {
	return Header{
		MatchID:  a.cfg.MatchID,
		Seed:     a.cfg.Seed,
		Symmetry: a.board.sym.String(),
		Tuning:   a.tune,
	}
}

// FromHeader rebuilds the arena a header was taken from. The recorded
// symmetry overrides the tuning so seed-picked maps replay identically.
func FromHeader(h Header, cfg Config) (*Arena, error) {
	cfg.MatchID = h.MatchID
	cfg.Seed = h.Seed
	cfg.Tuning = h.Tuning
	if h.Symmetry != "" {
		cfg.Tuning.Symmetry = h.Symmetry
	}
	a, err := New(cfg)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", h.MatchID, err)
	}
	return a, nil
}
