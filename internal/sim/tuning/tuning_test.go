package tuning

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := "width: 30\nsymmetry: vertical\nnav:\n  flip_turns: 8\n"
	if err := os.WriteFile(p, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if got.Width != 30 || got.Height != def.Height || got.Symmetry != "vertical" {
		t.Fatalf("got %+v", got)
	}
	if got.Nav.FlipTurns != 8 || got.Nav.StuckLimit != def.Nav.StuckLimit || !got.Nav.Territory {
		t.Fatalf("nav=%+v", got.Nav)
	}
	if q := got.Quotas(); q.Mobile != 1 || q.Stationary != 20 {
		t.Fatalf("quotas=%+v", q)
	}
}

func TestLoad_RepoConfig(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("configs/tuning.yaml drifted from Defaults:\n%+v\n%+v", got, Defaults())
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("err=%v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Tuning)
	}{
		{"too wide", func(c *Tuning) { c.Width = 65 }},
		{"zero height", func(c *Tuning) { c.Height = 0 }},
		{"bad symmetry", func(c *Tuning) { c.Symmetry = "diagonal" }},
		{"empty teams", func(c *Tuning) { c.MobilePerTeam, c.TowersPerTeam = 0, 0 }},
		{"walls", func(c *Tuning) { c.WallPermille = 900 }},
		{"radius", func(c *Tuning) { c.SenseRadiusSq = 0 }},
		{"cooldown", func(c *Tuning) { c.MoveCooldownTurns = 0 }},
		{"quota", func(c *Tuning) { c.Messages.MobilePerTurn = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Defaults()
			tc.mut(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("err=%v", err)
			}
		})
	}

	edge := Defaults()
	edge.Width, edge.Height = 64, 64
	if err := edge.Validate(); err != nil {
		t.Fatalf("64x64 should be allowed: %v", err)
	}
}
