package ports

import (
	"context"
	"io"

	"recordpanel/internal/domain"
)

// TrackKind distinguishes audio and video tracks.
type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// Track is one live media source.
type Track interface {
	ID() string
	Kind() TrackKind
	Label() string
	// Live reports whether the source still produces media.
	Live() bool
	Enabled() bool
	// SetEnabled mutes or unmutes the track in place.
	SetEnabled(enabled bool)
	// Ended is closed once the track stops, for whatever reason.
	Ended() <-chan struct{}
	Stop()
}

// MediaStream groups tracks acquired together.
type MediaStream interface {
	ID() string
	Tracks() []Track
	VideoTracks() []Track
	AudioTracks() []Track
}

// PCMSource is implemented by audio tracks that can be read as interleaved
// signed 16-bit little-endian samples.
type PCMSource interface {
	OpenPCM(ctx context.Context) (io.ReadCloser, error)
}

// DisplayConstraints describes a display capture request.
type DisplayConstraints struct {
	Audio bool
}

// UserMediaConstraints describes a camera/microphone capture request.
type UserMediaConstraints struct {
	Video bool
	Audio bool
}

// MediaDevices acquires capture streams from the platform.
type MediaDevices interface {
	GetDisplayMedia(ctx context.Context, c DisplayConstraints) (MediaStream, error)
	GetUserMedia(ctx context.Context, c UserMediaConstraints) (MediaStream, error)
}

// AudioGraph creates mixing contexts.
type AudioGraph interface {
	NewContext(ctx context.Context) (AudioContext, error)
}

// AudioContext sums every connected source into a single destination track.
type AudioContext interface {
	Connect(source Track) error
	Destination() Track
	Close() error
}

// AudioConfig describes how an audio source should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live PCM capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates PCM capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// RecorderState mirrors the recorder primitive's own state.
type RecorderState string

const (
	RecorderInactive  RecorderState = "inactive"
	RecorderRecording RecorderState = "recording"
	RecorderPaused    RecorderState = "paused"
)

// RecorderEventKind identifies a recorder event.
type RecorderEventKind string

const (
	RecorderEventData  RecorderEventKind = "data"
	RecorderEventError RecorderEventKind = "error"
	RecorderEventStop  RecorderEventKind = "stop"
)

// RecorderEvent is emitted by a recorder primitive in arrival order.
type RecorderEvent struct {
	Kind RecorderEventKind
	Data []byte
	Err  error
}

// Recorder is the platform recording primitive bound to one stream.
// Events are delivered on a single channel; a stop event is always the last
// one and the channel is closed right after it.
type Recorder interface {
	Start() error
	RequestData() error
	Pause() error
	Resume() error
	Stop() error
	State() RecorderState
	MimeType() string
	Events() <-chan RecorderEvent
}

// RecorderFactory builds recorders and reports supported formats.
type RecorderFactory interface {
	IsTypeSupported(mimeType string) bool
	NewRecorder(stream MediaStream, mimeType string) (Recorder, error)
}

// ArtifactStore makes finalized recordings dereferenceable.
type ArtifactStore interface {
	Publish(data []byte, mimeType string) (id string, url string, err error)
	Revoke(id string)
}

// EventSink emits recorder state/events to the panel and host.
// Implementations must not call back into the controller synchronously.
type EventSink interface {
	StateChanged(state domain.RecorderState, reason domain.StateReason)
	DurationChanged(seconds int)
	PanelVisibilityChanged(visible bool)
	RecordingReady(result domain.RecordingResult)
	SessionError(code domain.ErrorCode, detail string)
}
