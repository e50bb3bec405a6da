package main

import (
	"strings"
	"testing"

	"gridswarm.ai/internal/observerproto"
)

func TestBootstrapURL(t *testing.T) {
	cases := map[string]string{
		"ws://127.0.0.1:8080/v1/observe":     "http://127.0.0.1:8080/v1/bootstrap",
		"wss://arena.example/v1/observe?x=1": "https://arena.example/v1/bootstrap",
	}
	for in, want := range cases {
		got, err := bootstrapURL(in)
		if err != nil || got != want {
			t.Fatalf("bootstrapURL(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if _, err := bootstrapURL("http://127.0.0.1/v1/observe"); err == nil {
		t.Fatalf("expected error for http scheme")
	}
}

func TestSummarize(t *testing.T) {
	f := observerproto.TurnFrame{
		Turn:  40,
		Paint: [2]int{12, 9},
		Agents: []observerproto.AgentState{
			{ID: 0, Team: "A", Goal: "hold"},
			{ID: 1, Team: "B", Goal: "explore", Tracing: true},
			{ID: 2, Team: "A", Goal: "explore", Error: "boom"},
		},
		Messages: []observerproto.MessageRecord{{From: 0, To: 2}},
	}
	got := summarize(f)
	want := "turn=40 paint A=12 B=9 agents=3 tracing=1 goals[explore=2 hold=1] messages=1 errors=1"
	if got != want {
		t.Fatalf("summarize=%q\nwant      %q", got, want)
	}
}

func TestAgentLine(t *testing.T) {
	a := observerproto.AgentState{ID: 3, Team: "B", Class: "mobile", Pos: [2]int{4, 5}, Goal: "scout", Target: &[2]int{9, 9}, Symmetry: "rotational"}
	got := agentLine(a)
	if !strings.HasPrefix(got, "B3 mobile") || !strings.Contains(got, "-> (9,9)") || !strings.Contains(got, "sym=rotational") {
		t.Fatalf("agentLine=%q", got)
	}
}
