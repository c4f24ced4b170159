package usecase

import (
	"sync"

	"recordpanel/internal/domain"
	"recordpanel/internal/media"
	"recordpanel/internal/ports"
)

// StreamPair owns the display and camera streams of one controller. Display is
// required for a session to exist; Camera is optional.
type StreamPair struct {
	Display ports.MediaStream
	Camera  ports.MediaStream
}

// Empty reports whether no display stream has been acquired.
func (p StreamPair) Empty() bool {
	return p.Display == nil
}

func (p StreamPair) displayVideo() ports.Track {
	if p.Display == nil {
		return nil
	}
	tracks := p.Display.VideoTracks()
	if len(tracks) == 0 {
		return nil
	}
	return tracks[0]
}

func (p StreamPair) stop() {
	media.StopAll(p.Display, p.Camera)
}

// activeSession is one recording attempt.
type activeSession struct {
	options  domain.StartOptions
	recorder *chunkedRecorder
	stream   ports.MediaStream
	audio    ports.AudioContext

	releaseOnce sync.Once
}

// releaseAudio closes the mixing context. Safe to call from every teardown path.
func (s *activeSession) releaseAudio() error {
	var err error
	s.releaseOnce.Do(func() {
		if s.audio != nil {
			err = s.audio.Close()
		}
	})
	return err
}
