package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"gridswarm.ai/internal/observerproto"
)

func main() {
	var (
		wsURL    = flag.String("url", "ws://127.0.0.1:8080/v1/observe", "observer ws url")
		team     = flag.String("team", "", "only show team A or B")
		messages = flag.Bool("messages", false, "include message traffic")
		every    = flag.Uint64("every", 10, "print every Nth turn")
		agents   = flag.Bool("agents", false, "print one line per agent")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)

	if bu, err := bootstrapURL(*wsURL); err == nil {
		if b, err := fetchBootstrap(bu); err != nil {
			logger.Printf("bootstrap: %v", err)
		} else {
			p := b.Params
			logger.Printf("match=%s turn=%d size=%dx%d symmetry=%s seed=%d", b.MatchID, b.Turn, p.Width, p.Height, p.Symmetry, p.Seed)
		}
	}

	conn, _, err := websocket.DefaultDialer.Dial(*wsURL, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		Team:            *team,
		IncludeMessages: *messages,
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	n := *every
	if n == 0 {
		n = 1
	}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &head); err != nil {
			continue
		}
		switch head.Type {
		case observerproto.TypeTurn:
			var f observerproto.TurnFrame
			if err := json.Unmarshal(msg, &f); err != nil {
				continue
			}
			if f.Turn%n != 0 {
				continue
			}
			logger.Print(summarize(f))
			if *agents {
				for _, a := range f.Agents {
					logger.Print("  " + agentLine(a))
				}
			}
		case observerproto.TypeResult:
			var r observerproto.ResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			logger.Printf("RESULT match=%s turns=%d paint A=%d B=%d winner=%s", r.MatchID, r.Turns, r.Paint[0], r.Paint[1], r.Winner)
		}
	}
}

// bootstrapURL maps ws://host/v1/observe to http://host/v1/bootstrap.
func bootstrapURL(ws string) (string, error) {
	u, err := url.Parse(ws)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/observe") + "/bootstrap"
	u.RawQuery = ""
	return u.String(), nil
}

func fetchBootstrap(u string) (observerproto.BootstrapResponse, error) {
	var b observerproto.BootstrapResponse
	c := http.Client{Timeout: 5 * time.Second}
	resp, err := c.Get(u)
	if err != nil {
		return b, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return b, fmt.Errorf("status %d", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&b)
	return b, err
}

func summarize(f observerproto.TurnFrame) string {
	goals := map[string]int{}
	var tracing, errs int
	for _, a := range f.Agents {
		goals[a.Goal]++
		if a.Tracing {
			tracing++
		}
		if a.Error != "" {
			errs++
		}
	}
	names := make([]string, 0, len(goals))
	for g := range goals {
		names = append(names, g)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, g := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", g, goals[g]))
	}
	s := fmt.Sprintf("turn=%d paint A=%d B=%d agents=%d tracing=%d goals[%s]", f.Turn, f.Paint[0], f.Paint[1], len(f.Agents), tracing, strings.Join(parts, " "))
	if len(f.Messages) > 0 {
		s += fmt.Sprintf(" messages=%d", len(f.Messages))
	}
	if errs > 0 {
		s += fmt.Sprintf(" errors=%d", errs)
	}
	return s
}

func agentLine(a observerproto.AgentState) string {
	s := fmt.Sprintf("%s%d %-10s (%d,%d) %-7s", a.Team, a.ID, a.Class, a.Pos[0], a.Pos[1], a.Goal)
	if a.Target != nil {
		s += fmt.Sprintf(" -> (%d,%d)", a.Target[0], a.Target[1])
	}
	s += fmt.Sprintf(" explored=%d facts=%d sym=%s sent=%d recv=%d", a.Explored, a.Facts, a.Symmetry, a.Sent, a.Received)
	if a.Tracing {
		s += " tracing"
	}
	if a.Error != "" {
		s += " error=" + a.Error
	}
	return s
}
