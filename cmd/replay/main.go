package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gridswarm.ai/internal/observerproto"
	"gridswarm.ai/internal/persistence/indexdb"
	persistlog "gridswarm.ai/internal/persistence/log"
	"gridswarm.ai/internal/sim/arena"
)

func main() {
	var (
		dataDir = flag.String("data", "./data", "runtime data directory")
		matchID = flag.String("match", "", "match id under <data>/matches")
		dir     = flag.String("dir", "", "match directory (overrides -data/-match)")
		toTurn  = flag.Uint64("to_turn", 0, "stop after turn (inclusive, optional)")
		list    = flag.Bool("list", false, "list recent matches from the sqlite index and exit")
		verbose = flag.Bool("v", false, "print agent logs while replaying")
	)
	flag.Parse()

	if *list {
		if err := listMatches(filepath.Join(*dataDir, "index.sqlite")); err != nil {
			fmt.Fprintln(os.Stderr, "list:", err)
			os.Exit(1)
		}
		return
	}

	matchDir := *dir
	if matchDir == "" {
		if *matchID == "" {
			fmt.Fprintln(os.Stderr, "missing -match or -dir")
			os.Exit(2)
		}
		matchDir = filepath.Join(*dataDir, "matches", *matchID)
	}

	var hdr arena.Header
	if err := persistlog.ReadHeader(matchDir, &hdr); err != nil {
		fmt.Fprintln(os.Stderr, "read header:", err)
		os.Exit(1)
	}
	fmt.Printf("match=%s seed=%d size=%dx%d symmetry=%s\n", hdr.MatchID, hdr.Seed, hdr.Tuning.Width, hdr.Tuning.Height, hdr.Symmetry)

	var out io.Writer = io.Discard
	if *verbose {
		out = os.Stderr
	}
	a, err := arena.FromHeader(hdr, arena.Config{Logger: log.New(out, "[replay] ", log.LstdFlags|log.Lmicroseconds)})
	if err != nil {
		fmt.Fprintln(os.Stderr, "arena:", err)
		os.Exit(1)
	}

	checked, err := verify(a, matchDir, *toTurn)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d turns\n", checked)
}

// verify steps a alongside the recorded turns and compares digests and, when
// the log is complete, the final result.
func verify(a *arena.Arena, matchDir string, toTurn uint64) (uint64, error) {
	var checked uint64
	err := persistlog.ReadMatch(matchDir, persistlog.Visitor{
		Turn: func(f observerproto.TurnFrame) error {
			if toTurn != 0 && f.Turn > toTurn {
				return persistlog.ErrStop
			}
			turn, digest := a.StepOnce()
			if turn != f.Turn {
				return fmt.Errorf("turn mismatch: stepped=%d logged=%d", turn, f.Turn)
			}
			if digest != f.Digest {
				return fmt.Errorf("digest mismatch at turn %d: got=%s want=%s", turn, digest, f.Digest)
			}
			checked++
			return nil
		},
		Result: func(r observerproto.ResultMsg) error {
			got := a.Result()
			if got.Turns != r.Turns || got.Paint != r.Paint || got.Winner != r.Winner {
				return fmt.Errorf("result mismatch: got turns=%d paint=%v winner=%s want turns=%d paint=%v winner=%s",
					got.Turns, got.Paint, got.Winner, r.Turns, r.Paint, r.Winner)
			}
			return nil
		},
	})
	return checked, err
}

func listMatches(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer idx.Close()
	rows, err := idx.Matches(context.Background(), 20)
	if err != nil {
		return err
	}
	for _, m := range rows {
		winner := m.Winner
		if winner == "" {
			winner = "-"
		}
		fmt.Printf("%s  seed=%d %dx%d %s turns=%d paint=%d/%d winner=%s started=%s\n",
			m.MatchID, m.Seed, m.Width, m.Height, m.Symmetry, m.Turns, m.PaintA, m.PaintB, winner, m.StartedAt)
	}
	return nil
}
