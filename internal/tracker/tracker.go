// Package tracker turns raw telephony signals into call lifecycle
// events. The OS delivers signals noisily: duplicates within the same
// broadcast, re-ordered edges after process death. The tracker owns a
// single current-call state machine and is idempotent to repeats.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/tsblive/callpulse/internal/models"
	"github.com/tsblive/callpulse/pkg/logger"
	"go.uber.org/zap"
)

// Raw signal states as delivered by the telephony bridge.
const (
	SignalRinging   = "ringing"
	SignalConnected = "connected"
	SignalIdle      = "idle"
)

// Signal is one raw state transition from the bridge.
type Signal struct {
	State  string `json:"state"`
	Number string `json:"phoneNumber"`
}

// State of the tracked call.
type State int

const (
	StateIdle State = iota
	StateRinging
	StateActive
)

func (s State) String() string {
	switch s {
	case StateRinging:
		return "ringing"
	case StateActive:
		return "active"
	default:
		return "idle"
	}
}

// EventKind classifies lifecycle events.
type EventKind int

const (
	EventStarted EventKind = iota
	EventAnswered
	EventEnded
)

// CallSnapshot is the owned record of one tracked call, handed off to
// the finalizer when the call ends. AnsweredAt is zero for calls that
// were never picked up.
type CallSnapshot struct {
	Number     string
	Direction  string // models.CallIncoming or models.CallOutgoing
	StartedAt  time.Time
	AnsweredAt time.Time
	EndedAt    time.Time
}

// Answered reports whether the call was ever picked up.
func (s *CallSnapshot) Answered() bool {
	return !s.AnsweredAt.IsZero()
}

// Event is a transient lifecycle notification. Never persisted.
// Snapshot is set only for EventEnded.
type Event struct {
	Kind       EventKind
	Direction  string
	Number     string
	ObservedAt time.Time
	Snapshot   *CallSnapshot
}

// dupWindow suppresses a state+number pair repeated within this window,
// so one OS broadcast delivered twice does not re-enter a handler.
const dupWindow = time.Second

// Tracker is the single-call state machine. Process serializes all
// transitions; it is safe to call from concurrent signal deliveries but
// transitions are applied strictly in arrival order.
type Tracker struct {
	mu sync.Mutex

	now func() time.Time

	state      State
	number     string
	direction  string
	startedAt  time.Time
	answeredAt time.Time

	lastSignalKey string
	lastSignalAt  time.Time

	handler func(Event)
}

// New builds an idle tracker.
func New() *Tracker {
	return &Tracker{now: time.Now}
}

// SetHandler registers the lifecycle event consumer. Events are
// delivered synchronously, in transition order.
func (t *Tracker) SetHandler(fn func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = fn
}

// SetClock overrides the time source. Used by tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// State returns the current machine state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Process applies one raw signal. Signals that match no transition in
// the table are no-ops.
func (t *Tracker) Process(sig Signal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()

	key := fmt.Sprintf("%s-%s", sig.State, sig.Number)
	if key == t.lastSignalKey && now.Sub(t.lastSignalAt) < dupWindow {
		logger.Debug("suppressing duplicate signal",
			zap.String("signal", sig.State),
			zap.String("number", sig.Number))
		return
	}
	t.lastSignalKey = key
	t.lastSignalAt = now

	switch t.state {
	case StateIdle:
		t.fromIdle(sig, now)
	case StateRinging:
		t.fromRinging(sig, now)
	case StateActive:
		t.fromActive(sig, now)
	}
}

func (t *Tracker) fromIdle(sig Signal, now time.Time) {
	switch sig.State {
	case SignalRinging:
		t.state = StateRinging
		t.number = sig.Number
		t.direction = models.CallIncoming
		t.startedAt = now
		logger.Info("call started (ringing)",
			zap.String("number", sig.Number))
		t.emit(Event{Kind: EventStarted, Direction: t.direction, Number: t.number, ObservedAt: now})
	case SignalConnected:
		// Outgoing calls skip the ringing phase from this side:
		// start and answer coincide.
		t.state = StateActive
		t.number = sig.Number
		t.direction = models.CallOutgoing
		t.startedAt = now
		t.answeredAt = now
		logger.Info("outgoing call started",
			zap.String("number", sig.Number))
		t.emit(Event{Kind: EventStarted, Direction: t.direction, Number: t.number, ObservedAt: now})
		t.emit(Event{Kind: EventAnswered, Direction: t.direction, Number: t.number, ObservedAt: now})
	}
}

func (t *Tracker) fromRinging(sig Signal, now time.Time) {
	switch sig.State {
	case SignalConnected:
		t.state = StateActive
		t.answeredAt = now
		logger.Info("call answered", zap.String("number", t.number))
		t.emit(Event{Kind: EventAnswered, Direction: t.direction, Number: t.number, ObservedAt: now})
	case SignalIdle:
		// Never answered; becomes a missed call downstream.
		t.end(now)
	}
}

func (t *Tracker) fromActive(sig Signal, now time.Time) {
	switch sig.State {
	case SignalIdle:
		t.end(now)
	default:
		// Call-waiting is out of scope: only one call is tracked.
		logger.Debug("ignoring signal while call active",
			zap.String("signal", sig.State),
			zap.String("number", sig.Number))
	}
}

func (t *Tracker) end(now time.Time) {
	snap := &CallSnapshot{
		Number:     t.number,
		Direction:  t.direction,
		StartedAt:  t.startedAt,
		AnsweredAt: t.answeredAt,
		EndedAt:    now,
	}
	logger.Info("call ended",
		zap.String("number", snap.Number),
		zap.String("direction", snap.Direction),
		zap.Bool("answered", snap.Answered()))

	t.reset()
	t.emit(Event{Kind: EventEnded, Direction: snap.Direction, Number: snap.Number, ObservedAt: now, Snapshot: snap})
}

func (t *Tracker) reset() {
	t.state = StateIdle
	t.number = ""
	t.direction = ""
	t.startedAt = time.Time{}
	t.answeredAt = time.Time{}
}

func (t *Tracker) emit(ev Event) {
	if t.handler != nil {
		t.handler(ev)
	}
}
