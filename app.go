package main

import (
	"context"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"recordpanel/internal/bootstrap"
	"recordpanel/internal/domain"
	"recordpanel/internal/platform"
	"recordpanel/internal/usecase"
)

const (
	eventState      = "recordpanel:state"
	eventDuration   = "recordpanel:duration"
	eventVisibility = "recordpanel:visibility"
	eventReady      = "recordpanel:ready"
	eventError      = "recordpanel:error"
)

// App is the Wails application root.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	services   bootstrap.Services
	controller *usecase.Controller
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.controller = services.Controller

	serveCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go func() {
		if err := services.Server.Serve(serveCtx); err != nil {
			services.Log.Warn("http server stopped", zap.Error(err))
		}
	}()
	a.StateChanged(domain.StateIdle, domain.ReasonReady)
}

func (a *App) shutdown(context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	_ = a.services.Close()
}

// RequestPermissions acquires display, camera and microphone ahead of recording.
func (a *App) RequestPermissions(opts domain.RequestPermissionsOptions) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	_, err := a.controller.RequestPermissions(a.ctx, opts)
	return err
}

// Start begins a recording.
func (a *App) Start(opts domain.StartOptions) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx, opts); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

func (a *App) Pause() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Pause()
	return nil
}

func (a *App) Resume() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Resume()
	return nil
}

// Stop finalizes the recording. The zero result means nothing was recording.
func (a *App) Stop() (domain.RecordingResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.RecordingResult{}, err
	}
	result, err := a.controller.Stop(a.ctx)
	if err != nil || result == nil {
		return domain.RecordingResult{}, err
	}
	return *result, nil
}

// Restart discards the current take and records again with the same streams.
func (a *App) Restart() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.Restart(a.ctx)
}

// Capture records until the panel stops or cancels and returns the result.
func (a *App) Capture(opts domain.StartOptions) (domain.RecordingResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.RecordingResult{}, err
	}
	return a.controller.Capture(a.ctx, opts)
}

func (a *App) Show() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Show()
	return nil
}

// Hide closes the panel and cancels any recording in progress.
func (a *App) Hide() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Hide()
	return nil
}

func (a *App) ToggleCamera(enabled bool) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.ToggleCamera(enabled)
	return nil
}

func (a *App) ToggleAudio(enabled bool) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.ToggleAudio(enabled)
	return nil
}

// GetStatus returns the current recorder status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		status := domain.Status{State: domain.StateIdle}
		if a.bootErr != nil {
			status.Message = a.bootErr.Error()
		}
		return status
	}
	return a.controller.Status()
}

func (a *App) GetConfig() domain.PanelConfig {
	if a.controller == nil {
		return domain.DefaultPanelConfig()
	}
	return a.controller.Config()
}

func (a *App) SetConfig(cfg domain.PanelConfig) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.SetConfig(cfg)
}

// ListDisplays returns the displays that can be recorded.
func (a *App) ListDisplays() []platform.Display {
	if a.services.Devices == nil {
		return nil
	}
	return a.services.Devices.ListDisplays()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	if a.services.Server == nil {
		return map[string]string{}
	}

	cfg := a.services.Config
	return map[string]string{
		"ffmpeg":      cfg.Capture.FFmpegCommand,
		"display":     fmt.Sprint(cfg.Capture.DisplayIndex),
		"camera":      cfg.Capture.CameraDevice,
		"microphone":  cfg.Capture.MicDevice,
		"systemAudio": cfg.Capture.SystemAudioDevice,
		"server":      a.services.Server.BaseURL(),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// StateChanged emits recorder lifecycle updates to the frontend.
func (a *App) StateChanged(state domain.RecorderState, reason domain.StateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventState, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": stateReasonMessage(reason),
	})
}

func (a *App) DurationChanged(seconds int) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventDuration, map[string]any{
		"seconds": seconds,
		"label":   formatDuration(seconds),
	})
}

// PanelVisibilityChanged shows or hides the panel window.
func (a *App) PanelVisibilityChanged(visible bool) {
	if a.ctx == nil {
		return
	}
	if visible {
		runtime.WindowShow(a.ctx)
	} else {
		runtime.WindowHide(a.ctx)
	}
	runtime.EventsEmit(a.ctx, eventVisibility, map[string]bool{"visible": visible})
}

func (a *App) RecordingReady(result domain.RecordingResult) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventReady, result)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func stateReasonMessage(reason domain.StateReason) string {
	switch reason {
	case domain.ReasonReady:
		return "Ready"
	case domain.ReasonPermissionsRequest:
		return "Waiting for screen and camera access"
	case domain.ReasonPermissionsGranted:
		return "Access granted"
	case domain.ReasonPermissionsDenied:
		return "Access denied"
	case domain.ReasonRecordingStarted:
		return "Recording"
	case domain.ReasonRecordingRestarted:
		return "Recording restarted; previous take discarded"
	case domain.ReasonRecordingPaused:
		return "Paused"
	case domain.ReasonRecordingResumed:
		return "Recording"
	case domain.ReasonRecordingFinalizing:
		return "Finishing recording..."
	case domain.ReasonRecordingReady:
		return "Recording ready"
	case domain.ReasonRecordingDiscarded:
		return "Recording discarded"
	case domain.ReasonRecordingFailed:
		return "Recording failed"
	case domain.ReasonRestarting:
		return "Restarting..."
	case domain.ReasonStreamInactive:
		return "Screen sharing ended"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermission:
		return "Screen or camera access was denied"
	case domain.ErrorCodeStream:
		return "Screen sharing is not available"
	case domain.ErrorCodeRecorder:
		return "Recorder error"
	case domain.ErrorCodeEmpty:
		return "Nothing was recorded"
	case domain.ErrorCodeArtifact:
		return "Recording could not be saved"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

// formatDuration renders seconds as M:SS, or H:MM:SS past an hour.
func formatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
