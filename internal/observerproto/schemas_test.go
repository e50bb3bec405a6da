package observerproto_test

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"gridswarm.ai/internal/observerproto"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func roundTrip(t *testing.T, v any) any {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_TurnFrame(t *testing.T) {
	s := compile(t, "turn.schema.json")
	target := [2]int{12, 30}
	frame := observerproto.TurnFrame{
		Type:            observerproto.TypeTurn,
		ProtocolVersion: observerproto.Version,
		MatchID:         "m-1",
		Turn:            7,
		Digest:          strings.Repeat("ab", 32),
		Agents: []observerproto.AgentState{
			{ID: 0, Team: "A", Class: "mobile", Pos: [2]int{3, 4}, Goal: "explore", Target: &target, Moved: true, Explored: 40, Facts: 2, Symmetry: "rotational|vertical", Sent: 1},
			{ID: 5, Team: "B", Class: "stationary", Pos: [2]int{36, 35}, Goal: "hold", Symmetry: "rotational|horizontal|vertical"},
		},
		Messages: []observerproto.MessageRecord{{From: 0, To: 1, Word: 0x1234abcd, Kind: 1}},
		Paint:    [2]int{10, 9},
	}
	if err := s.Validate(roundTrip(t, frame)); err != nil {
		t.Fatalf("validate: %v", err)
	}

	frame.Agents[0].Team = "C"
	if err := s.Validate(roundTrip(t, frame)); err == nil {
		t.Fatalf("unknown team accepted")
	}
	frame.Agents[0].Team = "A"
	frame.Agents[1].Pos = [2]int{64, 0}
	if err := s.Validate(roundTrip(t, frame)); err == nil {
		t.Fatalf("off-wire coordinate accepted")
	}
}

func TestSchemas_Result(t *testing.T) {
	s := compile(t, "result.schema.json")
	res := observerproto.ResultMsg{
		Type:            observerproto.TypeResult,
		ProtocolVersion: observerproto.Version,
		MatchID:         "m-1",
		Turns:           2000,
		Paint:           [2]int{300, 280},
		Winner:          "A",
	}
	if err := s.Validate(roundTrip(t, res)); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
