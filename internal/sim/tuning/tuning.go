package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gridswarm.ai/internal/core/comms"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid tuning")

type Tuning struct {
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Symmetry string `yaml:"symmetry"`

	TurnRateHz int `yaml:"turn_rate_hz"`
	MaxTurns   int `yaml:"max_turns"`

	MobilePerTeam int `yaml:"mobile_per_team"`
	TowersPerTeam int `yaml:"towers_per_team"`
	RuinCount     int `yaml:"ruin_count"`
	WallPermille  int `yaml:"wall_permille"`

	SenseRadiusSq     int `yaml:"sense_radius_sq"`
	MessageRadiusSq   int `yaml:"message_radius_sq"`
	MoveCooldownTurns int `yaml:"move_cooldown_turns"`

	Messages Messages `yaml:"messages"`
	Nav      Nav      `yaml:"nav"`
	Policy   Policy   `yaml:"policy"`
}

type Messages struct {
	MobilePerTurn     int `yaml:"mobile_per_turn"`
	StationaryPerTurn int `yaml:"stationary_per_turn"`
}

type Nav struct {
	FlipTurns      int  `yaml:"flip_turns"`
	StuckLimit     int  `yaml:"stuck_limit"`
	ProgressBonus  int  `yaml:"progress_bonus"`
	OffAxisPenalty int  `yaml:"off_axis_penalty"`
	Territory      bool `yaml:"territory_scoring"`
}

type Policy struct {
	FleeRadiusSq  int `yaml:"flee_radius_sq"`
	PatienceTurns int `yaml:"patience_turns"`
}

func Defaults() Tuning {
	return Tuning{
		Width:    40,
		Height:   40,
		Symmetry: "",

		TurnRateHz: 10,
		MaxTurns:   2000,

		MobilePerTeam: 6,
		TowersPerTeam: 2,
		RuinCount:     6,
		WallPermille:  120,

		SenseRadiusSq:     20,
		MessageRadiusSq:   80,
		MoveCooldownTurns: 1,

		Messages: Messages{
			MobilePerTurn:     comms.DefaultMobileQuota,
			StationaryPerTurn: comms.DefaultStationaryQuota,
		},
		Nav: Nav{
			FlipTurns:      15,
			StuckLimit:     3,
			ProgressBonus:  10,
			OffAxisPenalty: 3,
			Territory:      true,
		},
		Policy: Policy{
			FleeRadiusSq:  2,
			PatienceTurns: 200,
		},
	}
}

// Load reads path over Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	limit := comms.MaxCoord + 1
	switch {
	case t.Width <= 0 || t.Height <= 0:
		return fmt.Errorf("%w: map %dx%d", ErrInvalid, t.Width, t.Height)
	case t.Width > limit || t.Height > limit:
		return fmt.Errorf("%w: map %dx%d exceeds the %d-cell wire limit", ErrInvalid, t.Width, t.Height, limit)
	case t.Symmetry != "" && t.Symmetry != "rotational" && t.Symmetry != "horizontal" && t.Symmetry != "vertical":
		return fmt.Errorf("%w: symmetry %q", ErrInvalid, t.Symmetry)
	case t.TurnRateHz < 0 || t.MaxTurns < 0:
		return fmt.Errorf("%w: turn_rate_hz=%d max_turns=%d", ErrInvalid, t.TurnRateHz, t.MaxTurns)
	case t.MobilePerTeam < 0 || t.TowersPerTeam < 0 || t.RuinCount < 0:
		return fmt.Errorf("%w: negative population", ErrInvalid)
	case t.MobilePerTeam+t.TowersPerTeam == 0:
		return fmt.Errorf("%w: teams are empty", ErrInvalid)
	case t.WallPermille < 0 || t.WallPermille > 600:
		return fmt.Errorf("%w: wall_permille=%d", ErrInvalid, t.WallPermille)
	case t.SenseRadiusSq <= 0 || t.MessageRadiusSq <= 0:
		return fmt.Errorf("%w: radii must be positive", ErrInvalid)
	case t.MoveCooldownTurns < 1:
		return fmt.Errorf("%w: move_cooldown_turns=%d", ErrInvalid, t.MoveCooldownTurns)
	case t.Messages.MobilePerTurn < 0 || t.Messages.StationaryPerTurn < 0:
		return fmt.Errorf("%w: negative message quota", ErrInvalid)
	}
	return nil
}

func (t Tuning) Quotas() comms.Quotas {
	return comms.Quotas{Mobile: t.Messages.MobilePerTurn, Stationary: t.Messages.StationaryPerTurn}
}
