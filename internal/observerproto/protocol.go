package observerproto

// Version is the observer protocol version.
const Version = "1.0"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeTurn      = "TURN"
	TypeResult    = "RESULT"
)

// Client -> Server. Optional first message on the observer WS connection; can
// be re-sent to change the filter.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// Team limits agents and messages to one team; empty means both.
	Team            string `json:"team,omitempty"`
	IncludeMessages bool   `json:"include_messages"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	MatchID         string      `json:"match_id"`
	Turn            uint64      `json:"turn"`
	Params          MatchParams `json:"params"`
}

type MatchParams struct {
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Seed            int64  `json:"seed"`
	Symmetry        string `json:"symmetry"`
	TurnRateHz      int    `json:"turn_rate_hz"`
	MaxTurns        int    `json:"max_turns"`
	SenseRadiusSq   int    `json:"sense_radius_sq"`
	MessageRadiusSq int    `json:"message_radius_sq"`
}

// Server -> Client. Sent every turn; also the record format of the turn log.
type TurnFrame struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	MatchID         string `json:"match_id"`
	Turn            uint64 `json:"turn"`
	// Digest is a hash of the full arena state after the turn; replay
	// compares it to detect divergence.
	Digest          string `json:"digest"`

	Agents   []AgentState    `json:"agents"`
	Messages []MessageRecord `json:"messages,omitempty"`
	Paint    [2]int          `json:"paint"`
}

type AgentState struct {
	ID    int    `json:"id"`
	Team  string `json:"team"`
	Class string `json:"class"`
	Pos   [2]int `json:"pos"`

	Goal     string  `json:"goal"`
	Target   *[2]int `json:"target,omitempty"`
	Tracing  bool    `json:"tracing,omitempty"`
	Moved    bool    `json:"moved,omitempty"`
	Explored int     `json:"explored"`
	Facts    int     `json:"facts"`
	Symmetry string  `json:"symmetry"`
	Sent     int     `json:"sent,omitempty"`
	Received int     `json:"received,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type MessageRecord struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Word uint32 `json:"word"`
	Kind int    `json:"kind"`
}

// Server -> Client. Sent once when the match ends.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	MatchID         string `json:"match_id"`
	Turns           uint64 `json:"turns"`
	Paint           [2]int `json:"paint"`
	Winner          string `json:"winner"`
}
