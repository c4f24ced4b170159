package usecase

import (
	"context"
	"errors"

	"recordpanel/internal/domain"
	"recordpanel/internal/media"
	"recordpanel/internal/ports"
)

type streamAcquirer struct {
	devices ports.MediaDevices
}

func newStreamAcquirer(devices ports.MediaDevices) streamAcquirer {
	return streamAcquirer{devices: devices}
}

// Acquire always requests the display and requests camera/microphone when
// either is enabled. Any failure is reported as a *domain.PermissionError and
// leaves nothing acquired.
func (a streamAcquirer) Acquire(ctx context.Context, opts domain.RequestPermissionsOptions) (StreamPair, error) {
	display, err := a.devices.GetDisplayMedia(ctx, ports.DisplayConstraints{Audio: opts.WantsAudio()})
	if err != nil {
		return StreamPair{}, permissionError("display", err)
	}
	if display == nil || len(display.VideoTracks()) == 0 {
		media.StopAll(display)
		return StreamPair{}, permissionError("display", errors.New("no video track in display stream"))
	}

	var camera ports.MediaStream
	if opts.WantsCamera() || opts.WantsAudio() {
		camera, err = a.devices.GetUserMedia(ctx, ports.UserMediaConstraints{
			Video: opts.WantsCamera(),
			Audio: opts.WantsAudio(),
		})
		if err != nil {
			media.StopAll(display)
			return StreamPair{}, permissionError("camera", err)
		}
	}

	return StreamPair{Display: display, Camera: camera}, nil
}

func permissionError(source string, err error) error {
	var permErr *domain.PermissionError
	if errors.As(err, &permErr) {
		return err
	}
	return &domain.PermissionError{Source: source, Err: err}
}
