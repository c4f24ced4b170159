package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied  = errors.New("permission denied")
	ErrNoDisplayStream   = errors.New("no display stream available; request permissions first")
	ErrInactiveStream    = errors.New("display stream is not active")
	ErrEmptyRecording    = errors.New("no recording data available")
	ErrRecorderFault     = errors.New("recorder failed")
	ErrCancelled         = errors.New("recording cancelled by user")
	ErrClosed            = errors.New("recorder closed")
	ErrCaptureInProgress = errors.New("a capture is already in progress")
	ErrSessionActive     = errors.New("a recording session is active")
	ErrInvalidTheme      = errors.New("invalid theme")
	ErrArtifactPublish   = errors.New("recording could not be published")
)

// PermissionError reports a denied or cancelled capture request.
type PermissionError struct {
	Source string
	Err    error
}

func (e *PermissionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s capture permission denied", e.Source)
	}
	return fmt.Sprintf("%s capture permission denied: %v", e.Source, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

func (e *PermissionError) Is(target error) bool { return target == ErrPermissionDenied }

// RecorderError reports a fault of the underlying recorder primitive.
type RecorderError struct {
	Op  string
	Err error
}

func (e *RecorderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("recorder %s failed", e.Op)
	}
	return fmt.Sprintf("recorder %s failed: %v", e.Op, e.Err)
}

func (e *RecorderError) Unwrap() error { return e.Err }

func (e *RecorderError) Is(target error) bool { return target == ErrRecorderFault }

// ErrorCodeFor maps an error onto the code reported to the panel.
func ErrorCodeFor(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return ErrorCodePermission
	case errors.Is(err, ErrNoDisplayStream), errors.Is(err, ErrInactiveStream):
		return ErrorCodeStream
	case errors.Is(err, ErrEmptyRecording):
		return ErrorCodeEmpty
	case errors.Is(err, ErrRecorderFault):
		return ErrorCodeRecorder
	case errors.Is(err, ErrArtifactPublish):
		return ErrorCodeArtifact
	case errors.Is(err, ErrCancelled), errors.Is(err, ErrClosed):
		return ErrorCodeCancelled
	default:
		return ErrorCodeUnknown
	}
}
