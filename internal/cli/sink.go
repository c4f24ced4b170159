package cli

import (
	"fmt"
	"io"
	"sync"

	"recordpanel/internal/domain"
)

// TerminalSink prints controller events as plain lines.
type TerminalSink struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func NewTerminalSink(w io.Writer) *TerminalSink {
	return &TerminalSink{w: w}
}

// SetVerbose enables per-second duration lines.
func (s *TerminalSink) SetVerbose(verbose bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verbose = verbose
}

func (s *TerminalSink) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format+"\n", args...)
}

func (s *TerminalSink) StateChanged(state domain.RecorderState, reason domain.StateReason) {
	s.printf("state: %s (%s)", state, reason)
}

func (s *TerminalSink) DurationChanged(seconds int) {
	s.mu.Lock()
	verbose := s.verbose
	s.mu.Unlock()
	if verbose {
		s.printf("recording: %ds", seconds)
	}
}

func (s *TerminalSink) PanelVisibilityChanged(bool) {}

func (s *TerminalSink) RecordingReady(result domain.RecordingResult) {
	s.printf("ready: %s (%s, %d bytes)", result.URL, result.MimeType, result.Size)
}

func (s *TerminalSink) SessionError(code domain.ErrorCode, detail string) {
	s.printf("error [%s]: %s", code, detail)
}
