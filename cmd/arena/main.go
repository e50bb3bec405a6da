package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gridswarm.ai/internal/persistence/indexdb"
	persistlog "gridswarm.ai/internal/persistence/log"
	"gridswarm.ai/internal/sim/arena"
	"gridswarm.ai/internal/sim/tuning"
	"gridswarm.ai/internal/transport/observer"
)

func main() {
	var (
		tuningPath   = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (defaults are used when missing)")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		seed         = flag.Int64("seed", 1337, "map and agent seed")
		matchID      = flag.String("match", "", "match id (default: random uuid)")
		turns        = flag.Int("turns", -1, "override max_turns (0 runs until interrupted)")
		hz           = flag.Int("hz", -1, "override turn_rate_hz (0 runs turns back to back)")
		symName      = flag.String("symmetry", "", "override symmetry: rotational, horizontal or vertical")
		addr         = flag.String("addr", "127.0.0.1:8080", "observer http listen address (empty to disable)")
		allowRemote  = flag.Bool("observer_remote", false, "accept observers from non-loopback addresses")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite match index")
		segmentTurns = flag.Int("segment_turns", persistlog.DefaultSegmentTurns, "turns per turn-log segment")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[arena] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Printf("tuning: %s not found, using defaults", *tuningPath)
		tune, err = tuning.Defaults(), nil
	}
	if err != nil {
		logger.Fatalf("tuning: %v", err)
	}
	if *turns >= 0 {
		tune.MaxTurns = *turns
	}
	if *hz >= 0 {
		tune.TurnRateHz = *hz
	}
	if *symName != "" {
		tune.Symmetry = *symName
	}

	a, err := arena.New(arena.Config{MatchID: *matchID, Seed: *seed, Tuning: tune, Logger: logger})
	if err != nil {
		logger.Fatalf("arena: %v", err)
	}
	hdr := a.Header()
	logger.Printf("match=%s seed=%d size=%dx%d symmetry=%s agents=%d", hdr.MatchID, hdr.Seed, tune.Width, tune.Height, hdr.Symmetry, a.Agents())

	matchDir := filepath.Join(*dataDir, "matches", hdr.MatchID)
	if err := os.MkdirAll(matchDir, 0o755); err != nil {
		logger.Fatalf("mkdir: %v", err)
	}
	if err := persistlog.WriteHeader(matchDir, hdr); err != nil {
		logger.Fatalf("header: %v", err)
	}

	turnLog := persistlog.NewTurnLogger(matchDir, *segmentTurns)
	defer turnLog.Close()
	a.AddSink(turnLog)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.sqlite"))
		if err != nil {
			logger.Fatalf("index: %v", err)
		}
		defer idx.Close()
		tj, _ := json.Marshal(tune)
		row := indexdb.MatchRow{
			MatchID:    hdr.MatchID,
			Seed:       hdr.Seed,
			Width:      tune.Width,
			Height:     tune.Height,
			Symmetry:   hdr.Symmetry,
			TuningJSON: string(tj),
		}
		if err := idx.RecordMatchStart(ctx, row); err != nil {
			logger.Fatalf("index: %v", err)
		}
		a.AddSink(idx)
	}

	hub := observer.NewHub(hdr.MatchID, a.Params(), log.New(os.Stdout, "[observer] ", log.LstdFlags|log.Lmicroseconds))
	hub.AllowRemote = *allowRemote
	a.AddSink(hub)

	if *addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/", hub.Handler())
		mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
			writeMetrics(rw, hdr.MatchID, hub, idx)
		})
		srv := &http.Server{
			Addr:              *addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Printf("observer listening on %s", *addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("ListenAndServe: %v", err)
			}
		}()
		defer func() {
			ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel2()
			_ = srv.Shutdown(ctx2)
		}()
	}

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("arena stopped: %v", err)
	}
	res := a.Result()
	logger.Printf("match=%s finished turns=%d paint A=%d B=%d winner=%s", res.MatchID, res.Turns, res.Paint[0], res.Paint[1], res.Winner)
	if idx != nil {
		if st := idx.Stats(); st.DropTurnTotal+st.DropResultTotal > 0 {
			logger.Printf("index dropped turns=%d results=%d", st.DropTurnTotal, st.DropResultTotal)
		}
	}
}

// writeMetrics emits a minimal Prometheus exposition.
func writeMetrics(rw http.ResponseWriter, matchID string, hub *observer.Hub, idx *indexdb.SQLiteIndex) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	hs := hub.Stats()

	fmt.Fprintf(rw, "# HELP gridswarm_turn Latest finished turn.\n")
	fmt.Fprintf(rw, "# TYPE gridswarm_turn gauge\n")
	fmt.Fprintf(rw, "gridswarm_turn{match=%q} %d\n", matchID, hs.Turn)

	fmt.Fprintf(rw, "# HELP gridswarm_observers Connected observers.\n")
	fmt.Fprintf(rw, "# TYPE gridswarm_observers gauge\n")
	fmt.Fprintf(rw, "gridswarm_observers{match=%q} %d\n", matchID, hs.Clients)

	fmt.Fprintf(rw, "# HELP gridswarm_observer_dropped_total Frames dropped for slow observers.\n")
	fmt.Fprintf(rw, "# TYPE gridswarm_observer_dropped_total counter\n")
	fmt.Fprintf(rw, "gridswarm_observer_dropped_total{match=%q} %d\n", matchID, hs.Dropped)

	if idx == nil {
		return
	}
	st := idx.Stats()
	fmt.Fprintf(rw, "# HELP gridswarm_index_queue_depth Pending sqlite index writes.\n")
	fmt.Fprintf(rw, "# TYPE gridswarm_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "gridswarm_index_queue_depth %d\n", st.QueueDepth)

	fmt.Fprintf(rw, "# HELP gridswarm_index_dropped_total Index writes dropped on a full queue.\n")
	fmt.Fprintf(rw, "# TYPE gridswarm_index_dropped_total counter\n")
	fmt.Fprintf(rw, "gridswarm_index_dropped_total{kind=\"turn\"} %d\n", st.DropTurnTotal)
	fmt.Fprintf(rw, "gridswarm_index_dropped_total{kind=\"result\"} %d\n", st.DropResultTotal)
}
