package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zombor/card-reader/internal/card"
)

// Recognizer produces the recognized text lines of a frame
type Recognizer interface {
	Recognize(ctx context.Context, imageData []byte, contentType string) ([]card.RecognizedLine, error)
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithRetryLimit sets how many frames without an expiration date the session tolerates
func WithRetryLimit(limit int) Option {
	return func(p *Pipeline) {
		p.sessionOpts = append(p.sessionOpts, card.WithRetryLimit(limit))
	}
}

// WithLogger sets the pipeline logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline drives a capture session: frames from the source are recognized
// and extracted one at a time on a processing goroutine, and records are
// emitted on a separate main goroutine.
type Pipeline struct {
	source     Source
	recognizer Recognizer
	emit       card.EmitFunc
	session    *card.Session
	metrics    *pipelineMetrics
	logger     *slog.Logger

	sessionOpts []card.SessionOption
	mainQueue   chan func()
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// New creates a pipeline that reports records to emit
func New(source Source, recognizer Recognizer, emit card.EmitFunc, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:     source,
		recognizer: recognizer,
		emit:       emit,
		metrics:    newPipelineMetrics(),
		logger:     slog.Default(),
		mainQueue:  make(chan func(), 1),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.sessionOpts = append(p.sessionOpts,
		card.WithDispatcher(p.dispatch),
		card.WithLogger(p.logger),
	)
	p.session = card.NewSession(p.emitRecord, p.sessionOpts...)
	return p
}

// Run starts the source and processes frames until the source runs out, ctx
// is done or Stop is called. Camera failures from the source are returned as
// is. A Pipeline can only be run once.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-p.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	frames, err := p.source.Start(ctx)
	if err != nil {
		p.logger.Error("Failed to start capture", "error", err)
		return err
	}

	mainDone := make(chan struct{})
	go func() {
		defer close(mainDone)
		for fn := range p.mainQueue {
			fn()
		}
	}()

	p.logger.Info("Capture started")
	p.processFrames(ctx, frames)

	if ctx.Err() != nil {
		p.session.Stop()
	}
	close(p.mainQueue)
	<-mainDone

	p.logger.Info("Capture finished", "stopped", p.session.Stopped())
	return nil
}

func (p *Pipeline) processFrames(ctx context.Context, frames <-chan Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			p.processFrame(ctx, frame)
		}
	}
}

func (p *Pipeline) processFrame(ctx context.Context, frame Frame) {
	// Late frames are dropped while a result is waiting on the caller
	if p.session.State().Paused {
		p.metrics.RecordSkip(skipPaused)
		return
	}

	start := time.Now()
	lines, err := p.recognizer.Recognize(ctx, frame.Data, frame.ContentType)
	p.metrics.recognitionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			p.metrics.RecordSkip(skipStopped)
			return
		}
		p.logger.Warn("Failed to recognize frame", "frame", frame.Name, "seq", frame.Seq, "error", err)
		p.metrics.RecordSkip(skipRecognitionError)
		return
	}

	// A result that arrives after Stop is discarded
	if ctx.Err() != nil || p.session.Stopped() {
		p.metrics.RecordSkip(skipStopped)
		return
	}

	p.metrics.RecordFrame()
	p.session.Process(card.Extract(lines))
}

// dispatch hands an emission to the main goroutine
func (p *Pipeline) dispatch(fn func()) {
	select {
	case p.mainQueue <- fn:
	case <-p.stopCh:
	}
}

func (p *Pipeline) emitRecord(record card.Record, resume card.Resume) {
	p.metrics.RecordEmission(record.HasExpiration())
	if p.emit != nil {
		p.emit(record, resume)
	}
}

// Stop ends capture immediately. Frames still in flight are discarded.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		p.session.Stop()
		close(p.stopCh)
	})
}

// State returns a snapshot of the capture session
func (p *Pipeline) State() card.SessionState {
	return p.session.State()
}
