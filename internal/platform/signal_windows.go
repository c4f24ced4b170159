//go:build windows

package platform

import (
	"errors"
	"os"
)

var errSuspendUnsupported = errors.New("pausing ffmpeg is not supported on windows")

// ffmpeg on windows cannot receive an interrupt from another process group, so
// the recorder is killed and whatever reached stdout is kept.
func interruptProcess(p *os.Process) error {
	return p.Kill()
}

func suspendProcess(*os.Process) error {
	return errSuspendUnsupported
}

func continueProcess(*os.Process) error {
	return errSuspendUnsupported
}
