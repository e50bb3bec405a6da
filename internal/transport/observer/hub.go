// Package observer streams turn frames to websocket spectators.
package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"gridswarm.ai/internal/observerproto"
)

// DefaultClientBuffer is the number of frames queued per spectator before
// the oldest ones are dropped.
const DefaultClientBuffer = 64

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait / 2
)

type client struct {
	id  uint64
	out chan []byte

	mu  sync.Mutex
	sub observerproto.SubscribeMsg
}

func (c *client) subscription() observerproto.SubscribeMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub
}

func (c *client) subscribe(sub observerproto.SubscribeMsg) {
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
}

// push never blocks the caller; a slow reader loses its oldest frames.
func (c *client) push(b []byte) (dropped int) {
	for {
		select {
		case c.out <- b:
			return dropped
		default:
		}
		select {
		case <-c.out:
			dropped++
		default:
		}
	}
}

type HubStats struct {
	Turn    uint64
	Clients int
	Frames  uint64
	Dropped uint64
}

// Hub is an arena sink that fans turns out to connected spectators.
type Hub struct {
	log *log.Logger

	// AllowRemote admits non-loopback clients.
	AllowRemote  bool
	// ClientBuffer overrides DefaultClientBuffer when positive.
	ClientBuffer int

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	frames   atomic.Uint64
	dropped  atomic.Uint64

	mu      sync.Mutex
	matchID string
	params  observerproto.MatchParams
	turn    uint64
	clients map[uint64]*client
}

func NewHub(matchID string, params observerproto.MatchParams, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(log.Writer(), "[observer] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Hub{
		log:     logger,
		matchID: matchID,
		params:  params,
		clients: map[uint64]*client{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (h *Hub) Stats() HubStats {
	h.mu.Lock()
	turn, n := h.turn, len(h.clients)
	h.mu.Unlock()
	return HubStats{Turn: turn, Clients: n, Frames: h.frames.Load(), Dropped: h.dropped.Load()}
}

func (h *Hub) WriteTurn(f observerproto.TurnFrame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turn = f.Turn
	h.frames.Add(1)
	if len(h.clients) == 0 {
		return nil
	}
	// Most spectators share a filter; encode each distinct one once.
	encoded := map[observerproto.SubscribeMsg][]byte{}
	for _, c := range h.clients {
		sub := c.subscription()
		b, ok := encoded[sub]
		if !ok {
			var err error
			b, err = json.Marshal(Filter(f, sub))
			if err != nil {
				return err
			}
			encoded[sub] = b
		}
		if n := c.push(b); n > 0 {
			h.dropped.Add(uint64(n))
		}
	}
	return nil
}

func (h *Hub) WriteResult(r observerproto.ResultMsg) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		if n := c.push(b); n > 0 {
			h.dropped.Add(uint64(n))
		}
	}
	return nil
}

// Filter trims f to what sub asks for. Messages are kept only when their
// sender is on the requested team.
func Filter(f observerproto.TurnFrame, sub observerproto.SubscribeMsg) observerproto.TurnFrame {
	if sub.Team == "" && sub.IncludeMessages {
		return f
	}
	out := f
	if !sub.IncludeMessages {
		out.Messages = nil
	}
	if sub.Team == "" {
		return out
	}
	out.Agents = make([]observerproto.AgentState, 0, len(f.Agents))
	team := make(map[int]string, len(f.Agents))
	for _, a := range f.Agents {
		team[a.ID] = a.Team
		if a.Team == sub.Team {
			out.Agents = append(out.Agents, a)
		}
	}
	if out.Messages != nil {
		out.Messages = nil
		for _, m := range f.Messages {
			if team[m.From] == sub.Team {
				out.Messages = append(out.Messages, m)
			}
		}
	}
	return out
}

func (h *Hub) bootstrap() observerproto.BootstrapResponse {
	h.mu.Lock()
	defer h.mu.Unlock()
	return observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		MatchID:         h.matchID,
		Turn:            h.turn,
		Params:          h.params,
	}
}

func (h *Hub) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !h.admit(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(h.bootstrap())
	}
}

func (h *Hub) admit(r *http.Request) bool {
	return h.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func (h *Hub) join() *client {
	size := h.ClientBuffer
	if size <= 0 {
		size = DefaultClientBuffer
	}
	c := &client{
		id:  h.nextID.Add(1),
		out: make(chan []byte, size),
		sub: observerproto.SubscribeMsg{IncludeMessages: true},
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
}

// WSHandler streams frames to one spectator. A SUBSCRIBE message may be sent
// at any time to change the filter; without one every frame is sent whole.
func (h *Hub) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !h.admit(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := h.join()
		defer h.leave(c)
		h.log.Printf("spectator %d connected from %s", c.id, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		writeErr := make(chan error, 1)
		go func() {
			ping := time.NewTicker(pingPeriod)
			defer ping.Stop()
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case <-ping.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
						writeErr <- err
						return
					}
				case b := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var sub observerproto.SubscribeMsg
			if err := json.Unmarshal(msg, &sub); err != nil {
				continue
			}
			if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
				continue
			}
			if sub.Team != "" && sub.Team != "A" && sub.Team != "B" {
				continue
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			c.subscribe(observerproto.SubscribeMsg{Team: sub.Team, IncludeMessages: sub.IncludeMessages})
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		h.log.Printf("spectator %d disconnected", c.id)
	}
}

// Handler mounts the observer endpoints and a health check.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/bootstrap", h.BootstrapHandler())
	mux.HandleFunc("/v1/observe", h.WSHandler())
	return mux
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
