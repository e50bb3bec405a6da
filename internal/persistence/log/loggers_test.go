package log

import (
	"path/filepath"
	"testing"

	"gridswarm.ai/internal/observerproto"
)

func frame(turn uint64) observerproto.TurnFrame {
	return observerproto.TurnFrame{
		Type:            observerproto.TypeTurn,
		ProtocolVersion: observerproto.Version,
		MatchID:         "m",
		Turn:            turn,
		Agents:          []observerproto.AgentState{{ID: 1, Team: "A", Class: "mobile", Pos: [2]int{int(turn), 0}}},
		Paint:           [2]int{int(turn), 0},
	}
}

func TestTurnLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTurnLogger(dir, 2)
	for turn := uint64(0); turn < 5; turn++ {
		if err := l.WriteTurn(frame(turn)); err != nil {
			t.Fatalf("WriteTurn(%d): %v", turn, err)
		}
	}
	if err := l.WriteResult(observerproto.ResultMsg{Type: observerproto.TypeResult, MatchID: "m", Turns: 5, Winner: "A"}); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := ListSegments(TurnsDir(dir), "turns")
	if err != nil {
		t.Fatalf("ListSegments: %v", err)
	}
	if len(files) != 3 || filepath.Base(files[0]) != "turns-00000000.jsonl.zst" || filepath.Base(files[2]) != "turns-00000004.jsonl.zst" {
		t.Fatalf("files=%v", files)
	}

	var turns []uint64
	var winner string
	err = ReadMatch(dir, Visitor{
		Turn: func(f observerproto.TurnFrame) error {
			if f.Agents[0].Pos[0] != int(f.Turn) {
				t.Fatalf("turn %d payload mismatch: %+v", f.Turn, f.Agents[0])
			}
			turns = append(turns, f.Turn)
			return nil
		},
		Result: func(r observerproto.ResultMsg) error {
			winner = r.Winner
			return nil
		},
	})
	if err != nil {
		t.Fatalf("ReadMatch: %v", err)
	}
	if len(turns) != 5 || turns[0] != 0 || turns[4] != 4 || winner != "A" {
		t.Fatalf("turns=%v winner=%q", turns, winner)
	}
}

func TestTurnLogger_ReopenAppends(t *testing.T) {
	dir := t.TempDir()
	l := NewTurnLogger(dir, 0)
	_ = l.WriteTurn(frame(1))
	_ = l.Close()
	l = NewTurnLogger(dir, 0)
	_ = l.WriteTurn(frame(2))
	_ = l.Close()

	n := 0
	if err := ReadMatch(dir, Visitor{Turn: func(observerproto.TurnFrame) error { n++; return nil }}); err != nil {
		t.Fatalf("ReadMatch: %v", err)
	}
	if n != 2 {
		t.Fatalf("read %d turns, want 2 across appended frames", n)
	}
}

func TestReadMatch_Stop(t *testing.T) {
	dir := t.TempDir()
	l := NewTurnLogger(dir, 0)
	for turn := uint64(0); turn < 4; turn++ {
		_ = l.WriteTurn(frame(turn))
	}
	_ = l.Close()

	n := 0
	err := ReadMatch(dir, Visitor{Turn: func(f observerproto.TurnFrame) error {
		n++
		if f.Turn == 1 {
			return ErrStop
		}
		return nil
	}})
	if err != nil || n != 2 {
		t.Fatalf("err=%v n=%d", err, n)
	}
}

func TestReadMatch_Empty(t *testing.T) {
	if err := ReadMatch(t.TempDir(), Visitor{}); err == nil {
		t.Fatalf("expected error for a match without segments")
	}
}

func TestHeader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "matches", "x")
	type hdr struct {
		MatchID string `json:"match_id"`
		Seed    int64  `json:"seed"`
	}
	if err := WriteHeader(dir, hdr{MatchID: "x", Seed: 42}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	var got hdr
	if err := ReadHeader(dir, &got); err != nil || got.Seed != 42 || got.MatchID != "x" {
		t.Fatalf("got=%+v err=%v", got, err)
	}
}
