package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"recordpanel/internal/domain"
	"recordpanel/internal/ports"
)

var errStopTimeout = errors.New("timed out waiting for recorder to stop")

type recorderTiming struct {
	FlushInterval time.Duration
	StopGrace     time.Duration
	StopTimeout   time.Duration
}

// chunkedRecorder buffers the chunks of one recorder primitive and turns them
// into a single artifact on finish.
type chunkedRecorder struct {
	factory ports.RecorderFactory
	timing  recorderTiming
	log     *zap.Logger
	onFault func(error)

	primitive ports.Recorder
	mimeType  string

	mu     sync.Mutex
	chunks [][]byte
	size   int
	fault  error

	flushStop  chan struct{}
	flushDone  chan struct{}
	flushOnce  sync.Once
	eventsDone chan struct{}
}

func newChunkedRecorder(factory ports.RecorderFactory, timing recorderTiming, log *zap.Logger, onFault func(error)) *chunkedRecorder {
	if timing.FlushInterval <= 0 {
		timing.FlushInterval = time.Second
	}
	if timing.StopTimeout <= 0 {
		timing.StopTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &chunkedRecorder{factory: factory, timing: timing, log: log, onFault: onFault}
}

// Begin builds the primitive over stream and starts capturing with a periodic
// forced flush.
func (r *chunkedRecorder) Begin(stream ports.MediaStream, mimeType string) error {
	primitive, err := r.factory.NewRecorder(stream, mimeType)
	if err != nil {
		return &domain.RecorderError{Op: "create", Err: err}
	}

	r.primitive = primitive
	r.mimeType = mimeType
	r.eventsDone = make(chan struct{})
	go r.consume(primitive.Events())

	if err := primitive.Start(); err != nil {
		_ = primitive.Stop()
		r.waitEvents(r.timing.StopTimeout)
		return &domain.RecorderError{Op: "start", Err: err}
	}

	r.flushStop = make(chan struct{})
	r.flushDone = make(chan struct{})
	go r.flushLoop(r.flushStop, r.flushDone)
	return nil
}

// MimeType returns the negotiated type, falling back to what the primitive
// reports and finally to a webm default.
func (r *chunkedRecorder) MimeType() string {
	if r.mimeType != "" {
		return r.mimeType
	}
	if r.primitive != nil {
		if reported := r.primitive.MimeType(); reported != "" {
			return reported
		}
	}
	return domain.FallbackMimeType
}

func (r *chunkedRecorder) State() ports.RecorderState {
	if r.primitive == nil {
		return ports.RecorderInactive
	}
	return r.primitive.State()
}

// Pause is a no-op unless the primitive is recording.
func (r *chunkedRecorder) Pause() bool {
	if r.State() != ports.RecorderRecording {
		return false
	}
	if err := r.primitive.Pause(); err != nil {
		r.log.Warn("recorder pause failed", zap.Error(err))
		return false
	}
	return true
}

// Resume is a no-op unless the primitive is paused.
func (r *chunkedRecorder) Resume() bool {
	if r.State() != ports.RecorderPaused {
		return false
	}
	if err := r.primitive.Resume(); err != nil {
		r.log.Warn("recorder resume failed", zap.Error(err))
		return false
	}
	return true
}

// Finish flushes, stops the primitive, waits for its acknowledgement and
// returns the chunks concatenated in arrival order.
func (r *chunkedRecorder) Finish(ctx context.Context) ([]byte, error) {
	if r.primitive == nil {
		return nil, domain.ErrEmptyRecording
	}
	r.stopFlush()

	switch r.primitive.State() {
	case ports.RecorderRecording:
		if err := r.primitive.RequestData(); err != nil {
			r.log.Warn("final data request failed", zap.Error(err))
		}
		if err := sleepContext(ctx, r.timing.StopGrace); err != nil {
			_ = r.primitive.Stop()
			return nil, &domain.RecorderError{Op: "stop", Err: err}
		}
		if err := r.primitive.Stop(); err != nil {
			return nil, &domain.RecorderError{Op: "stop", Err: err}
		}
	case ports.RecorderPaused:
		if err := r.primitive.Stop(); err != nil {
			return nil, &domain.RecorderError{Op: "stop", Err: err}
		}
	}

	timer := time.NewTimer(r.timing.StopTimeout)
	defer timer.Stop()
	select {
	case <-r.eventsDone:
	case <-timer.C:
		return nil, &domain.RecorderError{Op: "stop", Err: errStopTimeout}
	case <-ctx.Done():
		return nil, &domain.RecorderError{Op: "stop", Err: ctx.Err()}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fault != nil && len(r.chunks) == 0 {
		return nil, &domain.RecorderError{Op: "record", Err: r.fault}
	}
	if len(r.chunks) == 0 || r.size == 0 {
		return nil, domain.ErrEmptyRecording
	}

	artifact := make([]byte, 0, r.size)
	for _, chunk := range r.chunks {
		artifact = append(artifact, chunk...)
	}
	r.chunks = nil
	return artifact, nil
}

// Discard stops the primitive without producing an artifact.
func (r *chunkedRecorder) Discard() {
	if r.primitive == nil {
		return
	}
	r.stopFlush()
	if r.primitive.State() != ports.RecorderInactive {
		if err := r.primitive.Stop(); err != nil {
			r.log.Warn("recorder stop failed during discard", zap.Error(err))
		}
	}
	r.waitEvents(r.timing.StopTimeout)

	r.mu.Lock()
	r.chunks = nil
	r.size = 0
	r.mu.Unlock()
}

func (r *chunkedRecorder) consume(events <-chan ports.RecorderEvent) {
	defer close(r.eventsDone)

	for event := range events {
		switch event.Kind {
		case ports.RecorderEventData:
			if len(event.Data) == 0 {
				continue
			}
			chunk := append([]byte(nil), event.Data...)
			r.mu.Lock()
			r.chunks = append(r.chunks, chunk)
			r.size += len(chunk)
			r.mu.Unlock()
		case ports.RecorderEventError:
			err := event.Err
			if err == nil {
				err = errors.New("unknown recorder error")
			}
			r.mu.Lock()
			if r.fault == nil {
				r.fault = err
			}
			r.mu.Unlock()
			r.log.Error("recorder primitive fault", zap.Error(err))
			if r.onFault != nil {
				r.onFault(&domain.RecorderError{Op: "record", Err: err})
			}
		case ports.RecorderEventStop:
		}
	}
}

func (r *chunkedRecorder) flushLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.timing.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			switch r.primitive.State() {
			case ports.RecorderRecording:
				if err := r.primitive.RequestData(); err != nil {
					r.log.Warn("periodic data request failed", zap.Error(err))
					return
				}
			case ports.RecorderInactive:
				return
			}
		}
	}
}

func (r *chunkedRecorder) stopFlush() {
	r.flushOnce.Do(func() {
		if r.flushStop == nil {
			return
		}
		close(r.flushStop)
		<-r.flushDone
	})
}

func (r *chunkedRecorder) waitEvents(timeout time.Duration) {
	if r.eventsDone == nil {
		return
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-r.eventsDone:
	case <-timer.C:
		r.log.Warn("recorder did not acknowledge stop", zap.Duration("timeout", timeout))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
