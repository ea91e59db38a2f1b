package card

import (
	"log/slog"
	"sync"
)

// DefaultRetryLimit is the number of consecutive frames a session waits for a
// missing expiration date before emitting without one
const DefaultRetryLimit = 3

// Resume returns a paused session to scanning
type Resume func()

// EmitFunc receives a finalized record together with the handle that resumes scanning
type EmitFunc func(Record, Resume)

// Dispatcher hands a function off to the context emissions should run on
type Dispatcher func(func())

// SessionState is a snapshot of a session's counters
type SessionState struct {
	Paused     bool `json:"paused"`
	Stopped    bool `json:"stopped"`
	RetryCount int  `json:"retry_count"`
	RetryLimit int  `json:"retry_limit"`
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithRetryLimit sets how many frames without an expiration date are tolerated
func WithRetryLimit(limit int) SessionOption {
	return func(s *Session) {
		if limit >= 0 {
			s.retryLimit = limit
		}
	}
}

// WithDispatcher sets where emissions run. By default they run inline on the
// goroutine that called Process.
func WithDispatcher(d Dispatcher) SessionOption {
	return func(s *Session) {
		if d != nil {
			s.dispatch = d
		}
	}
}

// WithLogger sets the session logger
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session decides frame by frame whether a candidate is final. After a record
// is emitted the session pauses and ignores frames until it is resumed.
type Session struct {
	mu         sync.Mutex
	paused     bool
	stopped    bool
	retryCount int
	retryLimit int
	cycle      uint64
	result     *Record

	emit     EmitFunc
	dispatch Dispatcher
	logger   *slog.Logger
}

// NewSession creates a scanning session that reports records to emit
func NewSession(emit EmitFunc, opts ...SessionOption) *Session {
	s := &Session{
		retryLimit: DefaultRetryLimit,
		emit:       emit,
		dispatch:   func(fn func()) { fn() },
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process evaluates the candidate extracted from one frame
func (s *Session) Process(c Candidate) {
	s.mu.Lock()
	if s.paused || s.stopped || !c.HasNumber() {
		s.mu.Unlock()
		return
	}

	// Expiration dates are harder to read than numbers, give later frames
	// a chance to pick one up.
	if c.Expiration == nil && s.retryCount < s.retryLimit {
		s.retryCount++
		s.logger.Debug("Card number without expiration, waiting for more frames",
			"retry", s.retryCount, "limit", s.retryLimit)
		s.mu.Unlock()
		return
	}

	record, err := NewRecord(c)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("Discarding invalid candidate", "error", err)
		return
	}

	s.retryCount = 0
	s.paused = true
	s.cycle++
	s.result = &record
	cycle := s.cycle
	s.mu.Unlock()

	s.logger.Info("Card recognized",
		"number", record.MaskedNumber(),
		"has_expiration", record.HasExpiration())

	s.dispatch(func() {
		if s.Stopped() {
			return
		}
		if s.emit != nil {
			s.emit(record, func() { s.resume(cycle) })
		}
	})
}

// Resume clears the last result and returns the session to scanning
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumeLocked()
}

func (s *Session) resume(cycle uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cycle != s.cycle {
		return
	}
	s.resumeLocked()
}

func (s *Session) resumeLocked() {
	if s.stopped {
		return
	}
	s.paused = false
	s.result = nil
}

// Stop ends the session. Frames and pending emissions after Stop are discarded.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Stopped reports whether Stop was called
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// State returns a snapshot of the session counters
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		Paused:     s.paused,
		Stopped:    s.stopped,
		RetryCount: s.retryCount,
		RetryLimit: s.retryLimit,
	}
}

// Result returns the record the session is paused on
func (s *Session) Result() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Record{}, false
	}
	return *s.result, true
}
