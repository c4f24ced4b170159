package platform

import (
	"context"
	"errors"
	"io"
	"sync"

	"recordpanel/internal/media"
	"recordpanel/internal/ports"
)

var errTrackEnded = errors.New("track has ended")

// InputSpec is the ffmpeg demuxer input that produces a video track.
type InputSpec struct {
	Format string
	Device string
	// Options are demuxer options placed before -i.
	Options []string
}

// Args returns the ffmpeg arguments that open the input.
func (s InputSpec) Args() []string {
	args := append([]string(nil), s.Options...)
	return append(args, "-f", s.Format, "-i", s.Device)
}

// VideoSource is implemented by video tracks the ffmpeg recorder can open.
type VideoSource interface {
	Input() InputSpec
}

// VideoTrack is a display or camera track backed by an ffmpeg input.
type VideoTrack struct {
	*media.Track
	input InputSpec
}

func newVideoTrack(label string, input InputSpec) *VideoTrack {
	return &VideoTrack{Track: media.NewTrack(ports.TrackKindVideo, label), input: input}
}

func (t *VideoTrack) Input() InputSpec {
	return t.input
}

// AudioTrack is a microphone or system audio track read through ffmpeg. Every
// open PCM session is stopped when the track stops.
type AudioTrack struct {
	*media.Track
	capture ports.AudioCapture
	cfg     ports.AudioConfig

	mu       sync.Mutex
	sessions []ports.AudioSession
}

func newAudioTrack(label string, capture ports.AudioCapture, cfg ports.AudioConfig) *AudioTrack {
	t := &AudioTrack{capture: capture, cfg: cfg}
	t.Track = media.NewTrack(ports.TrackKindAudio, label, media.WithStopHook(t.stopSessions))
	return t
}

func (t *AudioTrack) OpenPCM(ctx context.Context) (io.ReadCloser, error) {
	if !t.Live() {
		return nil, errTrackEnded
	}
	session, err := t.capture.Start(ctx, t.cfg)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.sessions = append(t.sessions, session)
	t.mu.Unlock()

	if !t.Live() {
		_ = session.Stop()
		return nil, errTrackEnded
	}
	return session, nil
}

func (t *AudioTrack) stopSessions() {
	t.mu.Lock()
	sessions := t.sessions
	t.sessions = nil
	t.mu.Unlock()

	for _, s := range sessions {
		_ = s.Stop()
	}
}
