// Package media provides the in-process track and stream containers shared by
// the platform adapters and the recording core.
package media

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"recordpanel/internal/ports"
)

// Track is a basic ports.Track. Platform tracks embed it and add their
// source-specific behavior.
type Track struct {
	id    string
	kind  ports.TrackKind
	label string

	enabled atomic.Bool
	ended   chan struct{}
	endOnce sync.Once

	onStop func()
}

// TrackOption customizes a Track.
type TrackOption func(*Track)

// WithStopHook runs fn exactly once when the track ends.
func WithStopHook(fn func()) TrackOption {
	return func(t *Track) {
		t.onStop = fn
	}
}

// NewTrack creates an enabled, live track.
func NewTrack(kind ports.TrackKind, label string, opts ...TrackOption) *Track {
	t := &Track{
		id:    uuid.NewString(),
		kind:  kind,
		label: label,
		ended: make(chan struct{}),
	}
	t.enabled.Store(true)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Track) ID() string            { return t.id }
func (t *Track) Kind() ports.TrackKind { return t.kind }
func (t *Track) Label() string         { return t.label }
func (t *Track) Enabled() bool         { return t.enabled.Load() }

func (t *Track) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}

func (t *Track) Ended() <-chan struct{} {
	return t.ended
}

func (t *Track) Live() bool {
	select {
	case <-t.ended:
		return false
	default:
		return true
	}
}

// Stop ends the track on behalf of the owner.
func (t *Track) Stop() {
	t.End()
}

// End marks the track as ended because its source went away.
func (t *Track) End() {
	t.endOnce.Do(func() {
		close(t.ended)
		if t.onStop != nil {
			t.onStop()
		}
	})
}

// Stream is a basic ports.MediaStream.
type Stream struct {
	id     string
	tracks []ports.Track
}

// NewStream groups tracks, preserving their order.
func NewStream(tracks ...ports.Track) *Stream {
	kept := make([]ports.Track, 0, len(tracks))
	for _, t := range tracks {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &Stream{id: uuid.NewString(), tracks: kept}
}

func (s *Stream) ID() string { return s.id }

func (s *Stream) Tracks() []ports.Track {
	out := make([]ports.Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

func (s *Stream) VideoTracks() []ports.Track {
	return s.byKind(ports.TrackKindVideo)
}

func (s *Stream) AudioTracks() []ports.Track {
	return s.byKind(ports.TrackKindAudio)
}

func (s *Stream) byKind(kind ports.TrackKind) []ports.Track {
	var out []ports.Track
	for _, t := range s.tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// StopAll stops every track of every non-nil stream.
func StopAll(streams ...ports.MediaStream) {
	for _, s := range streams {
		if s == nil {
			continue
		}
		for _, t := range s.Tracks() {
			if t.Live() {
				t.Stop()
			}
		}
	}
}
