package usecase

import (
	"context"
	"fmt"

	"recordpanel/internal/media"
	"recordpanel/internal/ports"
)

// mixStreams builds the composite stream handed to the recorder: the display
// video plus, when audio is enabled, one destination track summing display
// audio and microphone audio. The returned context is nil when audio is off
// and must be closed by the caller on every teardown path.
func mixStreams(ctx context.Context, graph ports.AudioGraph, pair StreamPair, audioEnabled bool) (ports.MediaStream, ports.AudioContext, error) {
	if pair.Display == nil {
		return nil, nil, fmt.Errorf("mix streams: no display stream")
	}
	video := pair.Display.VideoTracks()

	if !audioEnabled {
		return media.NewStream(video...), nil, nil
	}

	audioCtx, err := graph.NewContext(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create audio context: %w", err)
	}

	sources := pair.Display.AudioTracks()
	if pair.Camera != nil {
		sources = append(sources, pair.Camera.AudioTracks()...)
	}
	for _, source := range sources {
		if err := audioCtx.Connect(source); err != nil {
			_ = audioCtx.Close()
			return nil, nil, fmt.Errorf("connect %s to audio graph: %w", source.Label(), err)
		}
	}

	tracks := append(append([]ports.Track(nil), video...), audioCtx.Destination())
	return media.NewStream(tracks...), audioCtx, nil
}
