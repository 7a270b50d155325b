package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsblive/callpulse/internal/models"
)

// testClock is a manually advanced time source.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker() (*Tracker, *testClock, *[]Event) {
	tr := New()
	clock := newTestClock()
	tr.SetClock(clock.now)

	events := &[]Event{}
	tr.SetHandler(func(ev Event) {
		*events = append(*events, ev)
	})
	return tr, clock, events
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestIncomingAnsweredCall(t *testing.T) {
	tr, clock, events := newTestTracker()

	tr.Process(Signal{State: SignalRinging, Number: "+15550100"})
	clock.advance(12 * time.Second)
	tr.Process(Signal{State: SignalConnected})
	clock.advance(30 * time.Second)
	tr.Process(Signal{State: SignalIdle})

	require.Equal(t, []EventKind{EventStarted, EventAnswered, EventEnded}, kinds(*events))

	ended := (*events)[2]
	require.NotNil(t, ended.Snapshot)
	snap := ended.Snapshot
	assert.Equal(t, "+15550100", snap.Number)
	assert.Equal(t, models.CallIncoming, snap.Direction)
	assert.True(t, snap.Answered())
	assert.Equal(t, 42*time.Second, snap.EndedAt.Sub(snap.StartedAt))
	assert.Equal(t, 30*time.Second, snap.EndedAt.Sub(snap.AnsweredAt))
	assert.Equal(t, StateIdle, tr.State())
}

func TestOutgoingCall(t *testing.T) {
	tr, clock, events := newTestTracker()

	tr.Process(Signal{State: SignalConnected, Number: "+15550199"})
	clock.advance(10 * time.Second)
	tr.Process(Signal{State: SignalIdle})

	require.Equal(t, []EventKind{EventStarted, EventAnswered, EventEnded}, kinds(*events))

	snap := (*events)[2].Snapshot
	assert.Equal(t, models.CallOutgoing, snap.Direction)
	assert.Equal(t, snap.StartedAt, snap.AnsweredAt)
	assert.Equal(t, 10*time.Second, snap.EndedAt.Sub(snap.AnsweredAt))
}

func TestMissedCall(t *testing.T) {
	tr, clock, events := newTestTracker()

	tr.Process(Signal{State: SignalRinging, Number: "+15550100"})
	clock.advance(15 * time.Second)
	tr.Process(Signal{State: SignalIdle})

	require.Equal(t, []EventKind{EventStarted, EventEnded}, kinds(*events))

	snap := (*events)[1].Snapshot
	assert.False(t, snap.Answered())
	assert.Equal(t, models.CallIncoming, snap.Direction)
}

func TestDuplicateSignalSuppressed(t *testing.T) {
	tr, clock, events := newTestTracker()

	tr.Process(Signal{State: SignalRinging, Number: "+15550100"})
	clock.advance(200 * time.Millisecond)
	tr.Process(Signal{State: SignalRinging, Number: "+15550100"})

	assert.Equal(t, []EventKind{EventStarted}, kinds(*events))
	assert.Equal(t, StateRinging, tr.State())
}

func TestRepeatedRingingOutsideWindowIsNoOp(t *testing.T) {
	tr, clock, events := newTestTracker()

	tr.Process(Signal{State: SignalRinging, Number: "+15550100"})
	clock.advance(3 * time.Second)
	// Past the suppression window, but the transition table has no
	// Ringing->Ringing edge: still a no-op.
	tr.Process(Signal{State: SignalRinging, Number: "+15550100"})

	assert.Equal(t, []EventKind{EventStarted}, kinds(*events))
}

func TestSignalsWhileActiveIgnored(t *testing.T) {
	tr, clock, events := newTestTracker()

	tr.Process(Signal{State: SignalConnected, Number: "+15550101"})
	clock.advance(2 * time.Second)
	tr.Process(Signal{State: SignalRinging, Number: "+15550200"})
	clock.advance(2 * time.Second)
	tr.Process(Signal{State: SignalConnected, Number: "+15550200"})
	clock.advance(2 * time.Second)
	tr.Process(Signal{State: SignalIdle})

	// Exactly one call, ended once, for the original number.
	endedCount := 0
	for _, ev := range *events {
		if ev.Kind == EventEnded {
			endedCount++
			assert.Equal(t, "+15550101", ev.Snapshot.Number)
		}
	}
	assert.Equal(t, 1, endedCount)
}

func TestIdleWhileIdleIsNoOp(t *testing.T) {
	tr, _, events := newTestTracker()

	tr.Process(Signal{State: SignalIdle})
	assert.Empty(t, *events)
	assert.Equal(t, StateIdle, tr.State())
}

func TestBackToBackCalls(t *testing.T) {
	tr, clock, events := newTestTracker()

	tr.Process(Signal{State: SignalRinging, Number: "+15550100"})
	clock.advance(5 * time.Second)
	tr.Process(Signal{State: SignalConnected})
	clock.advance(20 * time.Second)
	tr.Process(Signal{State: SignalIdle})

	clock.advance(time.Minute)
	tr.Process(Signal{State: SignalConnected, Number: "+15550101"})
	clock.advance(8 * time.Second)
	tr.Process(Signal{State: SignalIdle})

	endedNumbers := []string{}
	for _, ev := range *events {
		if ev.Kind == EventEnded {
			endedNumbers = append(endedNumbers, ev.Snapshot.Number)
		}
	}
	assert.Equal(t, []string{"+15550100", "+15550101"}, endedNumbers)
}
