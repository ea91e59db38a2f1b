package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/card-reader/internal/card"
	"github.com/zombor/card-reader/internal/scanning"
)

// ErrSessionStopped is returned when frames are submitted to a stopped session
var ErrSessionStopped = errors.New("session stopped")

// IDGenerator generates unique IDs for sessions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// liveSession is a capture session that can still receive frames
type liveSession struct {
	mu      sync.Mutex
	log     SessionLog
	session *card.Session
}

// Service manages remote capture sessions
type Service struct {
	db          DB
	recognizer  scanning.Recognizer
	idGenerator IDGenerator
	timeSource  TimeSource
	retryLimit  int
	metrics     *serviceMetrics

	mu       sync.Mutex
	sessions map[string]*liveSession
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, recognizer scanning.Recognizer, retryLimit int) *Service {
	return NewServiceWithDeps(db, recognizer, retryLimit, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, recognizer scanning.Recognizer, retryLimit int, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		recognizer:  recognizer,
		idGenerator: idGen,
		timeSource:  timeSrc,
		retryLimit:  retryLimit,
		metrics:     newServiceMetrics(),
		sessions:    make(map[string]*liveSession),
	}
}

// StartSession creates a new capture session in the scanning state
func (s *Service) StartSession() (*SessionView, error) {
	now := s.timeSource.Now()
	live := &liveSession{
		log: SessionLog{
			ID:        s.idGenerator.Generate(),
			Status:    StatusScanning,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	live.session = card.NewSession(func(record card.Record, _ card.Resume) {
		// Emission runs inline from Process, which already holds live.mu
		live.log.Emissions++
		live.log.Status = StatusResolved
		s.metrics.recordsEmitted.Inc()
	}, card.WithRetryLimit(s.retryLimit))

	if err := s.db.SaveSessionLog(&live.log); err != nil {
		return nil, fmt.Errorf("saving session log: %w", err)
	}

	s.mu.Lock()
	s.sessions[live.log.ID] = live
	s.mu.Unlock()
	s.metrics.sessionsStarted.Inc()
	s.metrics.sessionsLive.Inc()

	slog.Info("Capture session started", "session", live.log.ID)
	return live.view(), nil
}

// SubmitFrame recognizes the text of a frame image and feeds it to the session
func (s *Service) SubmitFrame(ctx context.Context, id string, data []byte, contentType string) (*SessionView, error) {
	live, err := s.live(id)
	if err != nil {
		return nil, err
	}

	// Frames that arrive while a result is pending are not worth recognizing
	if state := live.session.State(); state.Paused {
		s.metrics.framesSubmitted.WithLabelValues("skipped").Inc()
		return live.view(), nil
	}

	lines, err := s.recognizer.Recognize(ctx, data, contentType)
	if err != nil {
		slog.Warn("Failed to recognize frame",
			"session", id,
			"content_type", contentType,
			"frame_size", len(data),
			"error", err,
		)
		s.metrics.framesSubmitted.WithLabelValues("recognition_error").Inc()
		return nil, fmt.Errorf("recognizing frame: %w", err)
	}

	return s.SubmitLines(id, lines)
}

// SubmitLines runs the recognized lines of one frame through the session
func (s *Service) SubmitLines(id string, lines []card.RecognizedLine) (*SessionView, error) {
	live, err := s.live(id)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	if live.session.Stopped() {
		live.mu.Unlock()
		return nil, ErrSessionStopped
	}
	live.session.Process(card.Extract(lines))
	live.log.FramesProcessed++
	live.log.UpdatedAt = s.timeSource.Now()
	log := live.log
	live.mu.Unlock()
	s.metrics.framesSubmitted.WithLabelValues("processed").Inc()

	s.saveLog(&log)
	return live.view(), nil
}

// GetSession returns the state of a session. Sessions that are no longer
// live are served from the session log.
func (s *Service) GetSession(id string) (*SessionView, error) {
	if live, err := s.live(id); err == nil {
		return live.view(), nil
	}

	log, err := s.db.GetSessionLog(id)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &SessionView{SessionLog: *log, State: card.SessionState{Stopped: true, RetryLimit: s.retryLimit}}, nil
}

// ResumeSession discards the pending result and returns the session to scanning
func (s *Service) ResumeSession(id string) (*SessionView, error) {
	live, err := s.live(id)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	if !live.session.State().Paused {
		live.mu.Unlock()
		return live.view(), nil
	}
	live.session.Resume()
	live.log.Status = StatusScanning
	live.log.UpdatedAt = s.timeSource.Now()
	log := live.log
	live.mu.Unlock()

	s.saveLog(&log)
	return live.view(), nil
}

// StopSession ends a session. It can no longer receive frames.
func (s *Service) StopSession(id string) error {
	s.mu.Lock()
	live, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("stopping session: %w: %s", ErrSessionNotFound, id)
	}
	s.metrics.sessionsLive.Dec()

	live.mu.Lock()
	live.session.Stop()
	live.log.Status = StatusStopped
	live.log.UpdatedAt = s.timeSource.Now()
	log := live.log
	live.mu.Unlock()

	if err := s.db.SaveSessionLog(&log); err != nil {
		return fmt.Errorf("saving session log: %w", err)
	}
	slog.Info("Capture session stopped", "session", id, "frames", log.FramesProcessed, "emissions", log.Emissions)
	return nil
}

// ListSessions returns the log of every session
func (s *Service) ListSessions() ([]*SessionLog, error) {
	logs, err := s.db.ListSessionLogs()
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return logs, nil
}

// Close stops every live session
func (s *Service) Close() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.StopSession(id); err != nil {
			slog.Warn("Failed to stop session", "session", id, "error", err)
		}
	}
}

func (s *Service) live(id string) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return live, nil
}

// saveLog persists a session log entry. Per-frame bookkeeping never fails a frame.
func (s *Service) saveLog(log *SessionLog) {
	if err := s.db.SaveSessionLog(log); err != nil {
		slog.Warn("Failed to save session log", "session", log.ID, "error", err)
	}
}

func (l *liveSession) view() *SessionView {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := &SessionView{
		SessionLog: l.log,
		State:      l.session.State(),
	}
	if record, ok := l.session.Result(); ok {
		v.Record = &record
	}
	return v
}
