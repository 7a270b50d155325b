// Package calllog reads the OS-maintained, append-only record of
// completed calls. The log is the authority on call durations but is
// not updated transactionally with the live signal stream, so readers
// wait a settle delay before trusting it.
package calllog

import "context"

// Entry is one completed call as reported by the authoritative log.
// Timestamp is the call start in epoch millis; the end is
// Timestamp + Duration*1000.
type Entry struct {
	Number    string `json:"number"`
	Type      string `json:"type"` // incoming, outgoing, missed
	Duration  int64  `json:"duration"` // seconds
	Timestamp int64  `json:"timestamp"`
}

// End returns the entry's end timestamp in epoch millis.
func (e *Entry) End() int64 {
	return e.Timestamp + e.Duration*1000
}

// Source is a read-only view of the authoritative call log.
type Source interface {
	// Latest returns the most recent entry, nil when the log is empty.
	Latest(ctx context.Context) (*Entry, error)

	// QueryRange returns entries with Timestamp in (from, to],
	// ascending by Timestamp.
	QueryRange(ctx context.Context, from, to int64) ([]Entry, error)
}
