package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"recordpanel/internal/domain"
	"recordpanel/internal/media"
	"recordpanel/internal/ports"
)

type fakeDevices struct {
	mu sync.Mutex

	displayErr   error
	userErr      error
	noVideo      bool
	endedDisplay bool

	displayCalls int
	userCalls    int
	displays     []ports.MediaStream
	cameras      []ports.MediaStream
}

func (f *fakeDevices) GetDisplayMedia(_ context.Context, c ports.DisplayConstraints) (ports.MediaStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.displayCalls++
	if f.displayErr != nil {
		return nil, f.displayErr
	}

	var tracks []ports.Track
	if !f.noVideo {
		video := media.NewTrack(ports.TrackKindVideo, "screen")
		if f.endedDisplay {
			video.End()
		}
		tracks = append(tracks, video)
	}
	if c.Audio {
		tracks = append(tracks, media.NewTrack(ports.TrackKindAudio, "system audio"))
	}
	stream := media.NewStream(tracks...)
	f.displays = append(f.displays, stream)
	return stream, nil
}

func (f *fakeDevices) GetUserMedia(_ context.Context, c ports.UserMediaConstraints) (ports.MediaStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	if f.userErr != nil {
		return nil, f.userErr
	}

	var tracks []ports.Track
	if c.Video {
		tracks = append(tracks, media.NewTrack(ports.TrackKindVideo, "camera"))
	}
	if c.Audio {
		tracks = append(tracks, media.NewTrack(ports.TrackKindAudio, "microphone"))
	}
	stream := media.NewStream(tracks...)
	f.cameras = append(f.cameras, stream)
	return stream, nil
}

func (f *fakeDevices) lastDisplay() ports.MediaStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.displays) == 0 {
		return nil
	}
	return f.displays[len(f.displays)-1]
}

func (f *fakeDevices) lastCamera() ports.MediaStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.cameras) == 0 {
		return nil
	}
	return f.cameras[len(f.cameras)-1]
}

func (f *fakeDevices) calls() (display, user int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.displayCalls, f.userCalls
}

type fakeGraph struct {
	mu       sync.Mutex
	err      error
	contexts []*fakeAudioContext
}

func (f *fakeGraph) NewContext(_ context.Context) (ports.AudioContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ctx := &fakeAudioContext{destination: media.NewTrack(ports.TrackKindAudio, "mix")}
	f.contexts = append(f.contexts, ctx)
	return ctx, nil
}

func (f *fakeGraph) snapshot() []*fakeAudioContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeAudioContext(nil), f.contexts...)
}

type fakeAudioContext struct {
	mu          sync.Mutex
	connectErr  error
	connected   []ports.Track
	destination *media.Track
	closeCalls  int
}

func (f *fakeAudioContext) Connect(source ports.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = append(f.connected, source)
	return nil
}

func (f *fakeAudioContext) Destination() ports.Track { return f.destination }

func (f *fakeAudioContext) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.destination.Stop()
	return nil
}

func (f *fakeAudioContext) closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

type fakeRecorderFactory struct {
	mu sync.Mutex

	// supported nil means every type is supported.
	supported map[string]bool
	chunk     []byte
	newErr    error
	startErr  error
	recorders []*fakeRecorder
}

func (f *fakeRecorderFactory) IsTypeSupported(mimeType string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.supported == nil {
		return true
	}
	return f.supported[mimeType]
}

func (f *fakeRecorderFactory) NewRecorder(stream ports.MediaStream, mimeType string) (ports.Recorder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.newErr != nil {
		return nil, f.newErr
	}
	r := newFakeRecorder(stream, mimeType, f.chunk)
	r.startErr = f.startErr
	f.recorders = append(f.recorders, r)
	return r, nil
}

func (f *fakeRecorderFactory) setNewErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newErr = err
}

func (f *fakeRecorderFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recorders)
}

func (f *fakeRecorderFactory) last() *fakeRecorder {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.recorders) == 0 {
		return nil
	}
	return f.recorders[len(f.recorders)-1]
}

// fakeRecorder emits chunk on every RequestData and once more on Stop, the
// way a platform recorder flushes its buffer when it stops.
type fakeRecorder struct {
	mu        sync.Mutex
	stream    ports.MediaStream
	mimeType  string
	chunk     []byte
	startErr  error
	state     ports.RecorderState
	events    chan ports.RecorderEvent
	closed    bool
	requests  int
	stopCalls int
}

func newFakeRecorder(stream ports.MediaStream, mimeType string, chunk []byte) *fakeRecorder {
	return &fakeRecorder{
		stream:   stream,
		mimeType: mimeType,
		chunk:    chunk,
		state:    ports.RecorderInactive,
		events:   make(chan ports.RecorderEvent, 256),
	}
}

func (r *fakeRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.state = ports.RecorderRecording
	return nil
}

func (r *fakeRecorder) RequestData() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == ports.RecorderInactive {
		return errors.New("recorder inactive")
	}
	r.requests++
	r.emitChunkLocked()
	return nil
}

func (r *fakeRecorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != ports.RecorderRecording {
		return errors.New("not recording")
	}
	r.state = ports.RecorderPaused
	return nil
}

func (r *fakeRecorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != ports.RecorderPaused {
		return errors.New("not paused")
	}
	r.state = ports.RecorderRecording
	return nil
}

func (r *fakeRecorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCalls++
	if r.closed {
		return nil
	}
	if r.state != ports.RecorderInactive {
		r.emitChunkLocked()
	}
	r.state = ports.RecorderInactive
	r.closeLocked()
	return nil
}

// fail reports a primitive fault and shuts the recorder down.
func (r *fakeRecorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.events <- ports.RecorderEvent{Kind: ports.RecorderEventError, Err: err}
	r.state = ports.RecorderInactive
	r.closeLocked()
}

func (r *fakeRecorder) State() ports.RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *fakeRecorder) MimeType() string { return r.mimeType }

func (r *fakeRecorder) Events() <-chan ports.RecorderEvent { return r.events }

func (r *fakeRecorder) requestCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests
}

func (r *fakeRecorder) emitChunkLocked() {
	if len(r.chunk) > 0 && !r.closed {
		r.events <- ports.RecorderEvent{Kind: ports.RecorderEventData, Data: r.chunk}
	}
}

func (r *fakeRecorder) closeLocked() {
	r.events <- ports.RecorderEvent{Kind: ports.RecorderEventStop}
	close(r.events)
	r.closed = true
}

type fakeArtifacts struct {
	mu        sync.Mutex
	err       error
	published map[string][]byte
	revoked   []string
	seq       int
}

func (f *fakeArtifacts) Publish(data []byte, _ string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", "", f.err
	}
	if f.published == nil {
		f.published = make(map[string][]byte)
	}
	f.seq++
	id := fmt.Sprintf("rec-%d", f.seq)
	f.published[id] = data
	return id, "http://artifacts.test/recordings/" + id, nil
}

func (f *fakeArtifacts) Revoke(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.published, id)
	f.revoked = append(f.revoked, id)
}

type stateEvent struct {
	state  domain.RecorderState
	reason domain.StateReason
}

type errorEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu         sync.Mutex
	states     []stateEvent
	durations  []int
	visibility []bool
	results    []domain.RecordingResult
	errors     []errorEvent
}

func (f *fakeEventSink) StateChanged(state domain.RecorderState, reason domain.StateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) DurationChanged(seconds int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations = append(f.durations, seconds)
}

func (f *fakeEventSink) PanelVisibilityChanged(visible bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visibility = append(f.visibility, visible)
}

func (f *fakeEventSink) RecordingReady(result domain.RecordingResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errorEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stateEvent(nil), f.states...)
}

func (f *fakeEventSink) snapshotErrors() []errorEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]errorEvent(nil), f.errors...)
}

func (f *fakeEventSink) snapshotResults() []domain.RecordingResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RecordingResult(nil), f.results...)
}

func (f *fakeEventSink) snapshotDurations() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.durations...)
}

func (f *fakeEventSink) reasons() []domain.StateReason {
	states := f.snapshotStates()
	out := make([]domain.StateReason, 0, len(states))
	for _, s := range states {
		out = append(out, s.reason)
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
