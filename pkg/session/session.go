// Package session carries the one piece of state shared across
// concurrent file-processing tasks: classified error counts, the
// processed-file counter, and the stop/continue policy. A Session is
// constructed at run start and passed explicitly — there is no
// package-level accumulator, so concurrent runs and tests stay isolated.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EscalationThreshold is the per-kind error count beyond which a
// recoverable kind stops being tolerated for the remainder of the run.
const EscalationThreshold = 10

// Sink is the error-reporting surface the core writes to. Session is the
// canonical implementation; tests substitute their own.
type Sink interface {
	Record(err *Error)
	ShouldContinue(err *Error) bool
}

// Session aggregates one run's outcome. All methods are safe for
// concurrent use.
type Session struct {
	ID      string
	Total   int
	started time.Time

	processed atomic.Int64
	changed   atomic.Int64
	failed    atomic.Int64

	mu     sync.Mutex
	counts map[Kind]int
}

// NewSession starts a fresh session for a run over total files.
func NewSession(total int) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Total:   total,
		started: time.Now(),
		counts:  make(map[Kind]int),
	}
}

// Record increments the counter for the error's kind.
func (s *Session) Record(err *Error) {
	s.mu.Lock()
	s.counts[err.Kind]++
	s.mu.Unlock()
}

// ShouldContinue reports whether the run may proceed after err.
// Non-recoverable kinds stop the run; a recoverable kind stops it once
// its count exceeds EscalationThreshold.
func (s *Session) ShouldContinue(err *Error) bool {
	if !err.Kind.Recoverable() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[err.Kind] <= EscalationThreshold
}

// MarkProcessed records one completed file and returns the running
// completed count.
func (s *Session) MarkProcessed(changed bool) int64 {
	if changed {
		s.changed.Add(1)
	}
	return s.processed.Add(1)
}

// MarkFailed records one failed file and returns the running completed
// count. Failed files count as completed for progress purposes.
func (s *Session) MarkFailed() int64 {
	s.failed.Add(1)
	return s.processed.Add(1)
}

// Processed returns the number of files completed so far.
func (s *Session) Processed() int64 {
	return s.processed.Load()
}

// Changed returns the number of files whose content was rewritten.
func (s *Session) Changed() int64 {
	return s.changed.Load()
}

// Failed returns the number of files that ended in a classified error.
func (s *Session) Failed() int64 {
	return s.failed.Load()
}

// Counts returns a snapshot of the per-kind error counters.
func (s *Session) Counts() map[Kind]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Kind]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Elapsed returns the wall time since the session started.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.started)
}
