package comms

import (
	"gridswarm.ai/internal/core/geom"
	"gridswarm.ai/internal/core/rates"
)

// Class decides the per-turn send quota.
type Class uint8

const (
	ClassMobile Class = iota
	ClassStationary
)

func (c Class) String() string {
	if c == ClassStationary {
		return "stationary"
	}
	return "mobile"
}

const (
	DefaultMobileQuota     = 1
	DefaultStationaryQuota = 20
)

// Quotas maps agent classes to messages per turn.
type Quotas struct {
	Mobile     int
	Stationary int
}

func DefaultQuotas() Quotas {
	return Quotas{Mobile: DefaultMobileQuota, Stationary: DefaultStationaryQuota}
}

func (q Quotas) For(c Class) int {
	if c == ClassStationary {
		return q.Stationary
	}
	return q.Mobile
}

// Budget enforces one agent's per-turn send quota.
type Budget struct {
	w rates.Window
}

func NewBudget(perTurn int) *Budget {
	if perTurn < 0 {
		perTurn = 0
	}
	return &Budget{w: rates.Window{Size: 1, Max: perTurn}}
}

func (b *Budget) closed() bool { return b.w.Max <= 0 }

// CanSend must be checked before Consume; an exhausted budget is a normal outcome.
func (b *Budget) CanSend(turn uint64) bool {
	if b.closed() {
		return false
	}
	return b.w.Remaining(turn) > 0
}

func (b *Budget) Remaining(turn uint64) int {
	if b.closed() {
		return 0
	}
	return b.w.Remaining(turn)
}

// Consume takes one send from this turn's quota; false means declined.
func (b *Budget) Consume(turn uint64) bool {
	if b.closed() {
		return false
	}
	return b.w.Allow(turn)
}

// Sender is the host messaging primitive.
type Sender interface {
	Send(recipient int, word uint32) bool
}

// Outbox applies a Budget in front of the host send primitive.
type Outbox struct {
	budget *Budget
	host   Sender

	sent     int
	declined int
}

func NewOutbox(b *Budget, host Sender) *Outbox {
	return &Outbox{budget: b, host: host}
}

func (o *Outbox) CanSend(turn uint64) bool { return o.budget.CanSend(turn) }

func (o *Outbox) Remaining(turn uint64) int { return o.budget.Remaining(turn) }

// Send encodes and transmits one message. A false return is a declined send:
// either the quota is spent or the host refused (e.g. recipient out of range).
// Host refusals still spend quota.
func (o *Outbox) Send(turn uint64, to int, m Message) bool {
	if o.host == nil || !o.budget.Consume(turn) {
		o.declined++
		return false
	}
	if !o.host.Send(to, Encode(m)) {
		o.declined++
		return false
	}
	o.sent++
	return true
}

// Broadcast sends m to each recipient until the quota runs out and returns
// how many were accepted.
func (o *Outbox) Broadcast(turn uint64, recipients []int, m Message) int {
	n := 0
	for _, to := range recipients {
		if !o.budget.CanSend(turn) {
			break
		}
		if o.Send(turn, to, m) {
			n++
		}
	}
	return n
}

// Rebind points the outbox at this turn's host.
func (o *Outbox) Rebind(host Sender) { o.host = host }

// Stats reports lifetime sent and declined counts.
func (o *Outbox) Stats() (sent, declined int) { return o.sent, o.declined }

// Loc is a convenience for building location messages.
func Loc(k Kind, c geom.Coord, payload uint16) Message {
	return Message{Kind: k, Loc: c, Payload: payload}
}
