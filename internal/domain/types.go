package domain

// RecorderState models the recording session lifecycle.
type RecorderState string

const (
	StateIdle       RecorderState = "idle"
	StateRequesting RecorderState = "requesting"
	StateRecording  RecorderState = "recording"
	StatePaused     RecorderState = "paused"
	StateStopped    RecorderState = "stopped"
)

// StateReason provides a structured reason for state transitions.
type StateReason string

const (
	ReasonReady               StateReason = "ready"
	ReasonPermissionsRequest  StateReason = "permissions_requested"
	ReasonPermissionsGranted  StateReason = "permissions_granted"
	ReasonPermissionsDenied   StateReason = "permissions_denied"
	ReasonRecordingStarted    StateReason = "recording_started"
	ReasonRecordingRestarted  StateReason = "recording_restarted"
	ReasonRecordingPaused     StateReason = "recording_paused"
	ReasonRecordingResumed    StateReason = "recording_resumed"
	ReasonRecordingFinalizing StateReason = "recording_finalizing"
	ReasonRecordingReady      StateReason = "recording_ready"
	ReasonRecordingDiscarded  StateReason = "recording_discarded"
	ReasonRecordingFailed     StateReason = "recording_failed"
	ReasonRestarting          StateReason = "restarting"
	ReasonStreamInactive      StateReason = "stream_inactive"
)

// ErrorCode identifies the class of a reported failure.
type ErrorCode string

const (
	ErrorCodeStartup    ErrorCode = "startup"
	ErrorCodePermission ErrorCode = "permission"
	ErrorCodeStream     ErrorCode = "stream"
	ErrorCodeRecorder   ErrorCode = "recorder"
	ErrorCodeEmpty      ErrorCode = "empty_recording"
	ErrorCodeArtifact   ErrorCode = "artifact"
	ErrorCodeCancelled  ErrorCode = "cancelled"
	ErrorCodeUnknown    ErrorCode = "unknown"
)

// RequestPermissionsOptions selects which sources are requested. Nil means enabled.
type RequestPermissionsOptions struct {
	CameraEnabled *bool `json:"cameraEnabled,omitempty"`
	AudioEnabled  *bool `json:"audioEnabled,omitempty"`
}

// StartOptions configures one recording attempt. Nil means enabled.
type StartOptions struct {
	CameraEnabled *bool `json:"cameraEnabled,omitempty"`
	AudioEnabled  *bool `json:"audioEnabled,omitempty"`
}

// WantsCamera reports whether the camera should be acquired.
func (o StartOptions) WantsCamera() bool {
	return o.CameraEnabled == nil || *o.CameraEnabled
}

// WantsAudio reports whether system and microphone audio should be recorded.
func (o StartOptions) WantsAudio() bool {
	return o.AudioEnabled == nil || *o.AudioEnabled
}

// Permissions converts start options into a permissions request.
func (o StartOptions) Permissions() RequestPermissionsOptions {
	return RequestPermissionsOptions{CameraEnabled: o.CameraEnabled, AudioEnabled: o.AudioEnabled}
}

func (o RequestPermissionsOptions) WantsCamera() bool {
	return o.CameraEnabled == nil || *o.CameraEnabled
}

func (o RequestPermissionsOptions) WantsAudio() bool {
	return o.AudioEnabled == nil || *o.AudioEnabled
}

// Bool returns a pointer to v for option literals.
func Bool(v bool) *bool {
	return &v
}

// RecordingResult is the finalized output of one stopped recording.
// Artifact must not be modified once the result is handed out.
type RecordingResult struct {
	ID       string `json:"id"`
	Artifact []byte `json:"-"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
}

// Theme selects the panel color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeAuto:
		return true
	default:
		return false
	}
}

// PanelConfig holds cosmetic panel settings. It never affects recording.
type PanelConfig struct {
	Theme          Theme  `json:"theme"`
	StopButtonText string `json:"stopButtonText"`
}

// DefaultPanelConfig returns the panel defaults.
func DefaultPanelConfig() PanelConfig {
	return PanelConfig{Theme: ThemeAuto, StopButtonText: "Send"}
}

// Status summarizes the current runtime status.
type Status struct {
	State           RecorderState `json:"state"`
	Recording       bool          `json:"recording"`
	Paused          bool          `json:"paused"`
	Visible         bool          `json:"visible"`
	DurationSeconds int           `json:"durationSeconds"`
	CameraEnabled   bool          `json:"cameraEnabled"`
	AudioEnabled    bool          `json:"audioEnabled"`
	Message         string        `json:"message,omitempty"`
}
