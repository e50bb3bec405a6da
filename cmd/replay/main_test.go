package main

import (
	"io"
	"log"
	"strings"
	"testing"

	persistlog "gridswarm.ai/internal/persistence/log"
	"gridswarm.ai/internal/sim/arena"
	"gridswarm.ai/internal/sim/tuning"
)

func recordMatch(t *testing.T, seed int64, turns int) (string, arena.Header) {
	t.Helper()
	tune := tuning.Defaults()
	tune.Width, tune.Height = 24, 24
	tune.MobilePerTeam = 3
	tune.TurnRateHz = 0
	tune.MaxTurns = turns

	a, err := arena.New(arena.Config{Seed: seed, Tuning: tune, Logger: log.New(io.Discard, "", 0)})
	if err != nil {
		t.Fatalf("arena: %v", err)
	}
	dir := t.TempDir()
	hdr := a.Header()
	if err := persistlog.WriteHeader(dir, hdr); err != nil {
		t.Fatalf("header: %v", err)
	}
	tl := persistlog.NewTurnLogger(dir, 10)
	a.AddSink(tl)
	for !a.Done() {
		a.StepOnce()
	}
	a.Finish()
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return dir, hdr
}

func rebuild(t *testing.T, dir string) *arena.Arena {
	t.Helper()
	var hdr arena.Header
	if err := persistlog.ReadHeader(dir, &hdr); err != nil {
		t.Fatalf("read header: %v", err)
	}
	a, err := arena.FromHeader(hdr, arena.Config{Logger: log.New(io.Discard, "", 0)})
	if err != nil {
		t.Fatalf("FromHeader: %v", err)
	}
	return a
}

func TestVerify_RecordedMatch(t *testing.T) {
	dir, _ := recordMatch(t, 5, 25)
	checked, err := verify(rebuild(t, dir), dir, 0)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if checked != 25 {
		t.Fatalf("checked=%d want 25", checked)
	}
}

func TestVerify_ToTurn(t *testing.T) {
	dir, _ := recordMatch(t, 5, 25)
	checked, err := verify(rebuild(t, dir), dir, 12)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if checked != 12 {
		t.Fatalf("checked=%d want 12", checked)
	}
}

func TestVerify_DetectsDivergence(t *testing.T) {
	dir, hdr := recordMatch(t, 5, 10)
	hdr.Seed = 6
	other, err := arena.FromHeader(hdr, arena.Config{Logger: log.New(io.Discard, "", 0)})
	if err != nil {
		t.Fatalf("FromHeader: %v", err)
	}
	_, err = verify(other, dir, 0)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch at turn 1") {
		t.Fatalf("err=%v want digest mismatch at turn 1", err)
	}
}
