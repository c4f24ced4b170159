package panel

import (
	"recordpanel/internal/domain"
	"recordpanel/internal/ports"
)

// Fanout forwards every event to each sink in order. Nil sinks are skipped.
type Fanout []ports.EventSink

func (f Fanout) StateChanged(state domain.RecorderState, reason domain.StateReason) {
	for _, sink := range f {
		if sink != nil {
			sink.StateChanged(state, reason)
		}
	}
}

func (f Fanout) DurationChanged(seconds int) {
	for _, sink := range f {
		if sink != nil {
			sink.DurationChanged(seconds)
		}
	}
}

func (f Fanout) PanelVisibilityChanged(visible bool) {
	for _, sink := range f {
		if sink != nil {
			sink.PanelVisibilityChanged(visible)
		}
	}
}

func (f Fanout) RecordingReady(result domain.RecordingResult) {
	for _, sink := range f {
		if sink != nil {
			sink.RecordingReady(result)
		}
	}
}

func (f Fanout) SessionError(code domain.ErrorCode, detail string) {
	for _, sink := range f {
		if sink != nil {
			sink.SessionError(code, detail)
		}
	}
}
