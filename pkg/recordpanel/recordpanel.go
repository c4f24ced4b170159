// Package recordpanel embeds the screen recorder in a Go program.
//
// A Recorder owns the capture devices, the recording session and a local HTTP
// server that makes finished recordings dereferenceable by URL:
//
//	rec, err := recordpanel.New(recordpanel.WithEvents(recordpanel.EventFuncs{
//		OnReady: func(r recordpanel.Result) { fmt.Println(r.URL) },
//	}))
//	if err != nil {
//		return err
//	}
//	defer rec.Close()
//
//	result, err := rec.Capture(ctx, recordpanel.StartOptions{})
package recordpanel

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"recordpanel/internal/bootstrap"
	"recordpanel/internal/config"
	"recordpanel/internal/domain"
	"recordpanel/internal/logging"
	"recordpanel/internal/usecase"
)

type (
	State        = domain.RecorderState
	Reason       = domain.StateReason
	ErrorCode    = domain.ErrorCode
	StartOptions = domain.StartOptions
	Permissions  = domain.RequestPermissionsOptions
	Result       = domain.RecordingResult
	PanelConfig  = domain.PanelConfig
	Theme        = domain.Theme
	Status       = domain.Status
	Streams      = usecase.StreamPair
)

const (
	StateIdle       = domain.StateIdle
	StateRequesting = domain.StateRequesting
	StateRecording  = domain.StateRecording
	StatePaused     = domain.StatePaused
	StateStopped    = domain.StateStopped
)

var (
	ErrPermissionDenied  = domain.ErrPermissionDenied
	ErrNoDisplayStream   = domain.ErrNoDisplayStream
	ErrInactiveStream    = domain.ErrInactiveStream
	ErrEmptyRecording    = domain.ErrEmptyRecording
	ErrRecorderFault     = domain.ErrRecorderFault
	ErrCancelled         = domain.ErrCancelled
	ErrClosed            = domain.ErrClosed
	ErrCaptureInProgress = domain.ErrCaptureInProgress
	ErrSessionActive     = domain.ErrSessionActive
)

// Bool returns a pointer to v for StartOptions literals.
func Bool(v bool) *bool { return domain.Bool(v) }

// EventFuncs receives recorder events. Nil callbacks are skipped. Callbacks
// must return quickly and must not call back into the Recorder.
type EventFuncs struct {
	OnState      func(State, Reason)
	OnDuration   func(seconds int)
	OnVisibility func(visible bool)
	OnReady      func(Result)
	OnError      func(code ErrorCode, detail string)
}

func (e EventFuncs) StateChanged(state domain.RecorderState, reason domain.StateReason) {
	if e.OnState != nil {
		e.OnState(state, reason)
	}
}

func (e EventFuncs) DurationChanged(seconds int) {
	if e.OnDuration != nil {
		e.OnDuration(seconds)
	}
}

func (e EventFuncs) PanelVisibilityChanged(visible bool) {
	if e.OnVisibility != nil {
		e.OnVisibility(visible)
	}
}

func (e EventFuncs) RecordingReady(result domain.RecordingResult) {
	if e.OnReady != nil {
		e.OnReady(result)
	}
}

func (e EventFuncs) SessionError(code domain.ErrorCode, detail string) {
	if e.OnError != nil {
		e.OnError(code, detail)
	}
}

type options struct {
	events EventFuncs
	addr   string
	panel  *PanelConfig
	log    *zap.Logger
}

type Option func(*options)

func WithEvents(events EventFuncs) Option {
	return func(o *options) { o.events = events }
}

// WithHTTPAddr overrides the address recordings are served on.
func WithHTTPAddr(addr string) Option {
	return func(o *options) { o.addr = addr }
}

func WithPanelConfig(cfg PanelConfig) Option {
	return func(o *options) { o.panel = &cfg }
}

// WithLogger replaces the logger built from configuration.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// Recorder is the embeddable recorder.
type Recorder struct {
	services bootstrap.Services
	ctrl     *usecase.Controller
	cancel   context.CancelFunc
	served   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// New loads configuration the same way the CLI does, applies opts and starts
// serving recordings.
func New(opts ...Option) (*Recorder, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.addr != "" {
		cfg.Server.Addr = o.addr
	}
	if o.panel != nil {
		if o.panel.Theme != "" {
			cfg.Panel.Theme = o.panel.Theme
		}
		if o.panel.StopButtonText != "" {
			cfg.Panel.StopButtonText = o.panel.StopButtonText
		}
	}

	log := o.log
	if log == nil {
		if log, err = logging.New(cfg.Log); err != nil {
			return nil, err
		}
	}

	services, err := bootstrap.BuildWith(cfg, log, o.events)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{services: services, ctrl: services.Controller, cancel: cancel, served: make(chan struct{})}
	go func() {
		defer close(r.served)
		if err := services.Server.Serve(ctx); err != nil {
			log.Warn("recording server stopped", zap.Error(err))
		}
	}()
	return r, nil
}

// BaseURL is where recordings and the panel websocket are served.
func (r *Recorder) BaseURL() string { return r.services.Server.BaseURL() }

func (r *Recorder) RequestPermissions(ctx context.Context, opts Permissions) (Streams, error) {
	return r.ctrl.RequestPermissions(ctx, opts)
}

func (r *Recorder) Start(ctx context.Context, opts StartOptions) error {
	return r.ctrl.Start(ctx, opts)
}

func (r *Recorder) Pause()  { r.ctrl.Pause() }
func (r *Recorder) Resume() { r.ctrl.Resume() }

// Stop finalizes the recording. It returns nil, nil when nothing was recording.
func (r *Recorder) Stop(ctx context.Context) (*Result, error) {
	return r.ctrl.Stop(ctx)
}

func (r *Recorder) Restart(ctx context.Context) error { return r.ctrl.Restart(ctx) }

// Capture records and blocks until the recording is stopped from the panel,
// the display goes away, Hide is called or ctx is done.
func (r *Recorder) Capture(ctx context.Context, opts StartOptions) (Result, error) {
	return r.ctrl.Capture(ctx, opts)
}

func (r *Recorder) Show() { r.ctrl.Show() }

// Hide closes the panel and discards any recording in progress.
func (r *Recorder) Hide() { r.ctrl.Hide() }

func (r *Recorder) ToggleCamera(enabled bool) { r.ctrl.ToggleCamera(enabled) }
func (r *Recorder) ToggleAudio(enabled bool)  { r.ctrl.ToggleAudio(enabled) }

func (r *Recorder) State() State                    { return r.ctrl.State() }
func (r *Recorder) IsRecording() bool               { return r.ctrl.IsRecording() }
func (r *Recorder) IsPaused() bool                  { return r.ctrl.IsPaused() }
func (r *Recorder) IsVisible() bool                 { return r.ctrl.IsVisible() }
func (r *Recorder) RecordingDuration() int          { return r.ctrl.RecordingDuration() }
func (r *Recorder) Status() Status                  { return r.ctrl.Status() }
func (r *Recorder) Config() PanelConfig             { return r.ctrl.Config() }
func (r *Recorder) SetConfig(cfg PanelConfig) error { return r.ctrl.SetConfig(cfg) }

// Revoke drops a published recording; its URL stops resolving.
func (r *Recorder) Revoke(id string) { r.services.Artifacts.Revoke(id) }

// Close releases every device and stops the server. It is safe to call more
// than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()
		<-r.served
		r.closeErr = r.services.Close()
	})
	return r.closeErr
}
