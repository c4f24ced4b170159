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

// Config controls recording behavior.
type Config struct {
	MimeTypes     []string
	FlushInterval time.Duration
	StopGrace     time.Duration
	StopTimeout   time.Duration
	RestartDelay  time.Duration
	TickInterval  time.Duration
	Panel         domain.PanelConfig
	Clock         func() time.Time
}

// Controller is the recording session state machine. It exclusively owns the
// acquired streams, the active recorder and the outstanding capture.
type Controller struct {
	acquirer  streamAcquirer
	graph     ports.AudioGraph
	recorders ports.RecorderFactory
	finalizer resultFinalizer
	events    ports.EventSink
	log       *zap.Logger
	cfg       Config

	// opMu serializes mutating operations; it is held across suspension points.
	opMu sync.Mutex

	mu            sync.Mutex
	state         domain.RecorderState
	streams       StreamPair
	watchStop     chan struct{}
	current       *activeSession
	capture       *captureSession
	lastOptions   domain.StartOptions
	visible       bool
	cameraEnabled bool
	audioEnabled  bool
	panel         domain.PanelConfig

	duration *durationTracker
}

func NewController(
	devices ports.MediaDevices,
	graph ports.AudioGraph,
	recorders ports.RecorderFactory,
	artifacts ports.ArtifactStore,
	events ports.EventSink,
	log *zap.Logger,
	cfg Config,
) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RestartDelay < 0 {
		cfg.RestartDelay = 0
	}
	if cfg.Panel.Theme == "" {
		cfg.Panel.Theme = domain.ThemeAuto
	}
	if cfg.Panel.StopButtonText == "" {
		cfg.Panel.StopButtonText = domain.DefaultPanelConfig().StopButtonText
	}

	c := &Controller{
		acquirer:      newStreamAcquirer(devices),
		graph:         graph,
		recorders:     recorders,
		finalizer:     newResultFinalizer(artifacts),
		events:        events,
		log:           log,
		cfg:           cfg,
		state:         domain.StateIdle,
		cameraEnabled: true,
		audioEnabled:  true,
		panel:         cfg.Panel,
	}
	c.duration = newDurationTracker(cfg.Clock, cfg.TickInterval, events.DurationChanged)
	return c
}

// RequestPermissions acquires the display and camera/microphone streams.
func (c *Controller) RequestPermissions(ctx context.Context, opts domain.RequestPermissionsOptions) (StreamPair, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	active := c.current != nil
	c.mu.Unlock()
	if active {
		return StreamPair{}, domain.ErrSessionActive
	}

	pair, err := c.requestPermissions(ctx, opts)
	if err != nil {
		c.reportError(err)
	}
	return pair, err
}

// Start begins recording, acquiring streams first when none are held.
// It is a no-op while a recording is already active.
func (c *Controller) Start(ctx context.Context, opts domain.StartOptions) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	err := c.start(ctx, opts, domain.ReasonRecordingStarted)
	if err != nil {
		c.reportError(err)
	}
	return err
}

// Pause is a silent no-op unless recording.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.state != domain.StateRecording {
		return
	}
	if c.current.recorder.Pause() {
		c.transitionLocked(domain.StatePaused, domain.ReasonRecordingPaused)
	}
}

// Resume is a silent no-op unless paused.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.state != domain.StatePaused {
		return
	}
	if c.current.recorder.Resume() {
		c.transitionLocked(domain.StateRecording, domain.ReasonRecordingResumed)
	}
}

// Stop finalizes the active recording and releases every stream. It returns
// nil without error when nothing is recording. An outstanding capture is
// settled with the same outcome.
func (c *Controller) Stop(ctx context.Context) (*domain.RecordingResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	result, err := c.stop(ctx)
	if err != nil {
		c.reportError(err)
	}
	return result, err
}

// Restart discards the current attempt and starts a fresh one with the same
// options, keeping the acquired streams. It never settles an outstanding
// capture unless the new attempt fails.
func (c *Controller) Restart(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	session := c.current
	c.current = nil
	options := c.lastOptions
	if c.capture != nil {
		options = c.capture.options
	}
	c.mu.Unlock()

	if session != nil {
		c.discardSession(session)
	}
	c.transition(domain.StateIdle, domain.ReasonRestarting)

	err := sleepContext(ctx, c.cfg.RestartDelay)
	if err == nil {
		err = c.start(ctx, options, domain.ReasonRecordingRestarted)
	}
	if err != nil {
		capture := c.teardown(domain.ReasonRecordingFailed)
		if capture != nil {
			capture.reject(err)
		}
		c.reportError(err)
		return err
	}
	return nil
}

// Capture starts recording and blocks until the session is stopped (result),
// cancelled, or fails. Only one capture may be outstanding.
func (c *Controller) Capture(ctx context.Context, opts domain.StartOptions) (domain.RecordingResult, error) {
	c.opMu.Lock()

	c.mu.Lock()
	if c.capture != nil {
		c.mu.Unlock()
		c.opMu.Unlock()
		return domain.RecordingResult{}, domain.ErrCaptureInProgress
	}
	capture := newCaptureSession(opts)
	c.capture = capture
	c.mu.Unlock()

	if err := c.start(ctx, opts, domain.ReasonRecordingStarted); err != nil {
		c.mu.Lock()
		if c.capture == capture {
			c.capture = nil
		}
		c.mu.Unlock()
		c.opMu.Unlock()
		c.reportError(err)
		return domain.RecordingResult{}, err
	}
	c.opMu.Unlock()

	select {
	case outcome := <-capture.done:
		return outcome.result, outcome.err
	case <-ctx.Done():
		c.cancel(capture, ctx.Err())
		outcome := <-capture.done
		return outcome.result, outcome.err
	}
}

// Show makes the panel visible.
func (c *Controller) Show() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setVisibleLocked(true)
}

// Hide closes the panel. Closing cancels: the session is torn down without a
// result and an outstanding capture is rejected with domain.ErrCancelled.
func (c *Controller) Hide() {
	c.cancel(nil, domain.ErrCancelled)
}

// Cleanup releases everything the controller owns. It is idempotent.
func (c *Controller) Cleanup() {
	c.cancel(nil, domain.ErrClosed)
}

// ToggleCamera mutes or unmutes the acquired camera video in place.
func (c *Controller) ToggleCamera(enabled bool) {
	c.mu.Lock()
	c.cameraEnabled = enabled
	pair := c.streams
	c.mu.Unlock()

	if pair.Camera != nil {
		setEnabled(pair.Camera.VideoTracks(), enabled)
	}
}

// ToggleAudio mutes or unmutes microphone and system audio in place.
func (c *Controller) ToggleAudio(enabled bool) {
	c.mu.Lock()
	c.audioEnabled = enabled
	pair := c.streams
	c.mu.Unlock()

	if pair.Camera != nil {
		setEnabled(pair.Camera.AudioTracks(), enabled)
	}
	if pair.Display != nil {
		setEnabled(pair.Display.AudioTracks(), enabled)
	}
}

func (c *Controller) State() domain.RecorderState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) IsRecording() bool {
	return c.State() == domain.StateRecording
}

func (c *Controller) IsPaused() bool {
	return c.State() == domain.StatePaused
}

func (c *Controller) IsVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// RecordingDuration returns elapsed recording seconds excluding pauses.
func (c *Controller) RecordingDuration() int {
	return c.duration.Seconds()
}

// Streams returns the currently held streams.
func (c *Controller) Streams() StreamPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streams
}

// Status returns the current runtime status.
func (c *Controller) Status() domain.Status {
	c.mu.Lock()
	status := domain.Status{
		State:         c.state,
		Recording:     c.state == domain.StateRecording,
		Paused:        c.state == domain.StatePaused,
		Visible:       c.visible,
		CameraEnabled: c.cameraEnabled,
		AudioEnabled:  c.audioEnabled,
	}
	c.mu.Unlock()
	status.DurationSeconds = c.duration.Seconds()
	return status
}

func (c *Controller) Config() domain.PanelConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panel
}

// SetConfig merges the non-empty fields of cfg into the panel configuration.
func (c *Controller) SetConfig(cfg domain.PanelConfig) error {
	if cfg.Theme != "" && !cfg.Theme.Valid() {
		return domain.ErrInvalidTheme
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.Theme != "" {
		c.panel.Theme = cfg.Theme
	}
	if cfg.StopButtonText != "" {
		c.panel.StopButtonText = cfg.StopButtonText
	}
	return nil
}

func (c *Controller) requestPermissions(ctx context.Context, opts domain.RequestPermissionsOptions) (StreamPair, error) {
	c.releaseStreams()
	c.transition(domain.StateRequesting, domain.ReasonPermissionsRequest)

	pair, err := c.acquirer.Acquire(ctx, opts)
	if err != nil {
		c.transition(domain.StateIdle, domain.ReasonPermissionsDenied)
		return StreamPair{}, err
	}

	stop := make(chan struct{})
	c.mu.Lock()
	c.streams = pair
	c.watchStop = stop
	cameraOn, audioOn := c.cameraEnabled, c.audioEnabled
	c.mu.Unlock()

	if pair.Camera != nil {
		setEnabled(pair.Camera.VideoTracks(), cameraOn)
		setEnabled(pair.Camera.AudioTracks(), audioOn)
	}
	setEnabled(pair.Display.AudioTracks(), audioOn)

	if video := pair.displayVideo(); video != nil {
		go c.watchDisplay(video, stop)
	}

	c.transition(domain.StateIdle, domain.ReasonPermissionsGranted)
	return pair, nil
}

func (c *Controller) start(ctx context.Context, opts domain.StartOptions, reason domain.StateReason) error {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return nil
	}
	pair := c.streams
	c.mu.Unlock()

	if pair.Empty() {
		var err error
		pair, err = c.requestPermissions(ctx, opts.Permissions())
		if err != nil {
			return err
		}
	}

	video := pair.displayVideo()
	if video == nil {
		c.releaseStreams()
		return domain.ErrNoDisplayStream
	}
	if !video.Live() {
		c.releaseStreams()
		c.transition(domain.StateIdle, domain.ReasonStreamInactive)
		return domain.ErrInactiveStream
	}

	audioOn := opts.WantsAudio()

	stream, audioCtx, err := mixStreams(ctx, c.graph, pair, audioOn)
	if err != nil {
		return &domain.RecorderError{Op: "mix", Err: err}
	}

	session := &activeSession{options: opts, stream: stream, audio: audioCtx}
	session.recorder = newChunkedRecorder(c.recorders, recorderTiming{
		FlushInterval: c.cfg.FlushInterval,
		StopGrace:     c.cfg.StopGrace,
		StopTimeout:   c.cfg.StopTimeout,
	}, c.log, func(err error) {
		go c.handleRecorderFault(session, err)
	})

	mimeType := negotiateMimeType(c.recorders, c.cfg.MimeTypes)
	if err := session.recorder.Begin(stream, mimeType); err != nil {
		_ = session.releaseAudio()
		return err
	}

	c.mu.Lock()
	c.current = session
	c.lastOptions = opts
	c.transitionLocked(domain.StateRecording, reason)
	c.setVisibleLocked(true)
	c.mu.Unlock()

	c.log.Info("recording started",
		zap.String("mimeType", session.recorder.MimeType()),
		zap.Bool("audio", audioOn),
		zap.String("reason", string(reason)))
	return nil
}

func (c *Controller) stop(ctx context.Context) (*domain.RecordingResult, error) {
	c.mu.Lock()
	session := c.current
	c.current = nil
	c.mu.Unlock()

	if session == nil {
		// Idle: acquired streams and panel visibility stay as they are.
		c.mu.Lock()
		capture := c.capture
		c.capture = nil
		c.mu.Unlock()
		if capture != nil {
			capture.reject(domain.ErrEmptyRecording)
		}
		return nil, nil
	}

	artifact, err := session.recorder.Finish(ctx)
	if closeErr := session.releaseAudio(); closeErr != nil {
		c.log.Warn("failed to close audio context", zap.Error(closeErr))
	}
	mimeType := session.recorder.MimeType()
	c.transition(domain.StateStopped, domain.ReasonRecordingFinalizing)

	var result domain.RecordingResult
	if err == nil {
		result, err = c.finalizer.Finalize(artifact, mimeType)
	}

	if err != nil {
		if capture := c.teardown(domain.ReasonRecordingFailed); capture != nil {
			capture.reject(err)
		}
		return nil, err
	}

	capture := c.teardown(domain.ReasonRecordingReady)
	c.log.Info("recording ready", zap.String("id", result.ID), zap.Int("size", result.Size), zap.String("mimeType", result.MimeType))
	c.events.RecordingReady(result)
	if capture != nil {
		capture.resolve(result)
	}
	return &result, nil
}

// cancel tears the session down without finalizing. When target is set, it
// only acts if target is still the outstanding capture.
func (c *Controller) cancel(target *captureSession, reason error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if target != nil && c.capture != target {
		c.mu.Unlock()
		return
	}
	session := c.current
	c.current = nil
	c.mu.Unlock()

	if session != nil {
		c.discardSession(session)
	}
	if capture := c.teardown(domain.ReasonRecordingDiscarded); capture != nil {
		capture.reject(reason)
	}
}

func (c *Controller) handleRecorderFault(session *activeSession, err error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.current != session {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()

	c.discardSession(session)
	if capture := c.teardown(domain.ReasonRecordingFailed); capture != nil {
		capture.reject(err)
	}
	c.reportError(err)
}

func (c *Controller) watchDisplay(track ports.Track, stop <-chan struct{}) {
	select {
	case <-stop:
		return
	case <-track.Ended():
	}
	select {
	case <-stop:
		return
	default:
	}

	c.log.Info("display track ended; stopping recording", zap.String("track", track.Label()))
	if _, err := c.Stop(context.Background()); err != nil {
		c.log.Warn("stop after display track ended failed", zap.Error(err))
	}
}

// discardSession drops the recorder-level resources of one attempt.
func (c *Controller) discardSession(session *activeSession) {
	session.recorder.Discard()
	if err := session.releaseAudio(); err != nil {
		c.log.Warn("failed to close audio context", zap.Error(err))
	}
}

// teardown releases the streams, hides the panel, returns to idle and claims
// the outstanding capture for the caller to settle.
func (c *Controller) teardown(reason domain.StateReason) *captureSession {
	c.releaseStreams()

	c.mu.Lock()
	defer c.mu.Unlock()
	capture := c.capture
	c.capture = nil
	c.setVisibleLocked(false)
	c.transitionLocked(domain.StateIdle, reason)
	return capture
}

func (c *Controller) releaseStreams() {
	c.mu.Lock()
	pair := c.streams
	stop := c.watchStop
	c.streams = StreamPair{}
	c.watchStop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	pair.stop()
}

func (c *Controller) transition(next domain.RecorderState, reason domain.StateReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitionLocked(next, reason)
}

func (c *Controller) transitionLocked(next domain.RecorderState, reason domain.StateReason) {
	prev := c.state
	if prev == next {
		return
	}
	c.state = next
	c.duration.Observe(prev, next)
	c.log.Debug("recorder state changed",
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
		zap.String("reason", string(reason)))
	c.events.StateChanged(next, reason)
}

func (c *Controller) setVisibleLocked(visible bool) {
	if c.visible == visible {
		return
	}
	c.visible = visible
	c.events.PanelVisibilityChanged(visible)
}

func (c *Controller) reportError(err error) {
	if errors.Is(err, domain.ErrCancelled) || errors.Is(err, domain.ErrClosed) {
		return
	}
	c.log.Warn("recording operation failed", zap.Error(err))
	c.events.SessionError(domain.ErrorCodeFor(err), err.Error())
}

func setEnabled(tracks []ports.Track, enabled bool) {
	for _, t := range tracks {
		t.SetEnabled(enabled)
	}
}
