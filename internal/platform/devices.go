// Package platform implements the capture and recording primitives on top of
// ffmpeg and the host display server.
package platform

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"runtime"
	"time"

	"github.com/kbinani/screenshot"
	"go.uber.org/zap"

	"recordpanel/internal/domain"
	"recordpanel/internal/media"
	"recordpanel/internal/ports"
)

var (
	ErrNoDisplay = errors.New("no active display")
	ErrNoCamera  = errors.New("camera device not found")
)

// Config selects the capture devices and recording tools.
type Config struct {
	FFmpegCommand string
	FrameRate     int
	DisplayIndex  int

	CameraDevice string

	MicFormat string
	MicDevice string
	// SystemAudioDevice enables display audio when set (for example a pulse
	// monitor source).
	SystemAudioFormat string
	SystemAudioDevice string

	PollInterval time.Duration
	StopGrace    time.Duration
}

func (c Config) withDefaults() Config {
	if c.FFmpegCommand == "" {
		c.FFmpegCommand = "ffmpeg"
	}
	if c.FrameRate <= 0 {
		c.FrameRate = 30
	}
	if c.DisplayIndex < 0 {
		c.DisplayIndex = 0
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.StopGrace <= 0 {
		c.StopGrace = 3 * time.Second
	}
	return c
}

// ScreenEnumerator reports the attached displays.
type ScreenEnumerator interface {
	NumActiveDisplays() int
	GetDisplayBounds(index int) image.Rectangle
}

type screenshotEnumerator struct{}

func (screenshotEnumerator) NumActiveDisplays() int { return screenshot.NumActiveDisplays() }

func (screenshotEnumerator) GetDisplayBounds(index int) image.Rectangle {
	return screenshot.GetDisplayBounds(index)
}

// Display describes one attached display.
type Display struct {
	Index  int             `json:"index"`
	Bounds image.Rectangle `json:"bounds"`
}

// Devices is the ports.MediaDevices implementation.
type Devices struct {
	cfg     Config
	goos    string
	screens ScreenEnumerator
	capture ports.AudioCapture
	stat    func(string) (os.FileInfo, error)
	log     *zap.Logger
}

// DevicesOption customizes Devices.
type DevicesOption func(*Devices)

// WithScreenEnumerator replaces the display enumerator.
func WithScreenEnumerator(s ScreenEnumerator) DevicesOption {
	return func(d *Devices) { d.screens = s }
}

// WithGOOS overrides the target OS used to build inputs.
func WithGOOS(goos string) DevicesOption {
	return func(d *Devices) { d.goos = goos }
}

func withStat(stat func(string) (os.FileInfo, error)) DevicesOption {
	return func(d *Devices) { d.stat = stat }
}

func NewDevices(cfg Config, capture ports.AudioCapture, log *zap.Logger, opts ...DevicesOption) *Devices {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Devices{
		cfg:     cfg.withDefaults(),
		goos:    runtime.GOOS,
		screens: screenshotEnumerator{},
		capture: capture,
		stat:    os.Stat,
		log:     log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ListDisplays returns every active display.
func (d *Devices) ListDisplays() []Display {
	n := d.screens.NumActiveDisplays()
	out := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Display{Index: i, Bounds: d.screens.GetDisplayBounds(i)})
	}
	return out
}

// GetDisplayMedia opens the configured display and, when requested and
// configured, system audio.
func (d *Devices) GetDisplayMedia(ctx context.Context, c ports.DisplayConstraints) (ports.MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	index := d.cfg.DisplayIndex
	n := d.screens.NumActiveDisplays()
	if n == 0 {
		return nil, &domain.PermissionError{Source: "display", Err: ErrNoDisplay}
	}
	if index >= n {
		return nil, &domain.PermissionError{Source: "display", Err: fmt.Errorf("display %d not found (%d active)", index, n)}
	}
	bounds := d.screens.GetDisplayBounds(index)
	if bounds.Empty() {
		return nil, &domain.PermissionError{Source: "display", Err: fmt.Errorf("display %d has empty bounds", index)}
	}

	video := newVideoTrack(fmt.Sprintf("screen:%d", index), displayInput(d.goos, index, bounds, d.cfg.FrameRate))
	go d.pollDisplay(video, index, bounds)

	tracks := []ports.Track{video}
	if c.Audio && d.cfg.SystemAudioDevice != "" {
		tracks = append(tracks, newAudioTrack("system audio", d.capture, ports.AudioConfig{
			InputFormat: d.cfg.SystemAudioFormat,
			InputDevice: d.cfg.SystemAudioDevice,
		}))
	}

	d.log.Info("display acquired",
		zap.Int("index", index),
		zap.String("bounds", bounds.String()),
		zap.Bool("systemAudio", len(tracks) > 1))
	return media.NewStream(tracks...), nil
}

// GetUserMedia opens the camera and/or microphone.
func (d *Devices) GetUserMedia(ctx context.Context, c ports.UserMediaConstraints) (ports.MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tracks []ports.Track
	if c.Video {
		input := cameraInput(d.goos, d.cfg.CameraDevice, d.cfg.FrameRate)
		if input.Format == "v4l2" {
			if _, err := d.stat(input.Device); err != nil {
				return nil, &domain.PermissionError{Source: "camera", Err: fmt.Errorf("%w: %s", ErrNoCamera, input.Device)}
			}
		}
		camera := newVideoTrack("camera", input)
		if input.Format == "v4l2" {
			go d.pollDevice(camera, input.Device)
		}
		tracks = append(tracks, camera)
	}
	if c.Audio {
		tracks = append(tracks, newAudioTrack("microphone", d.capture, ports.AudioConfig{
			InputFormat: d.cfg.MicFormat,
			InputDevice: d.cfg.MicDevice,
		}))
	}
	return media.NewStream(tracks...), nil
}

// pollDisplay ends track once the display is detached or reconfigured.
func (d *Devices) pollDisplay(track *VideoTrack, index int, bounds image.Rectangle) {
	d.poll(track, func() bool {
		return d.screens.NumActiveDisplays() > index && d.screens.GetDisplayBounds(index) == bounds
	})
}

// pollDevice ends track once its device node disappears.
func (d *Devices) pollDevice(track *VideoTrack, path string) {
	d.poll(track, func() bool {
		_, err := d.stat(path)
		return err == nil
	})
}

func (d *Devices) poll(track *VideoTrack, present func() bool) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-track.Ended():
			return
		case <-ticker.C:
			if !present() {
				d.log.Warn("capture source went away", zap.String("track", track.Label()))
				track.End()
				return
			}
		}
	}
}
