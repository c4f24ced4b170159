package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

func setupCheck(w io.Writer, name string, ok bool, detail string) {
	mark := "ok  "
	if !ok {
		mark = "FAIL"
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", mark, name, detail)
}

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			services := deps.Services
			cfg := services.Config
			w := cmd.OutOrStdout()
			ok := true

			if path, err := exec.LookPath(cfg.Capture.FFmpegCommand); err != nil {
				setupCheck(w, "ffmpeg", false, "not found. Install ffmpeg or set RECORDPANEL_FFMPEG_COMMAND")
				ok = false
			} else {
				setupCheck(w, "ffmpeg", true, path)
			}

			supported := ""
			for _, mimeType := range cfg.Recorder.MimeTypes {
				if services.Recorders.IsTypeSupported(mimeType) {
					supported = mimeType
					break
				}
			}
			if supported == "" {
				setupCheck(w, "Encoders", false, "no configured format can be encoded (need libvpx+libopus or libx264+aac)")
				ok = false
			} else {
				setupCheck(w, "Encoders", true, supported)
			}

			if n := len(services.Devices.ListDisplays()); n == 0 {
				setupCheck(w, "Displays", false, "no active display")
				ok = false
			} else {
				setupCheck(w, "Displays", true, fmt.Sprintf("%d active, recording #%d", n, cfg.Capture.DisplayIndex))
			}

			if cfg.Capture.CameraDevice != "" {
				if _, err := os.Stat(cfg.Capture.CameraDevice); err != nil {
					setupCheck(w, "Camera", false, cfg.Capture.CameraDevice+" not found")
				} else {
					setupCheck(w, "Camera", true, cfg.Capture.CameraDevice)
				}
			}

			if cfg.Capture.SystemAudioDevice == "" {
				setupCheck(w, "System audio", true, "disabled (set RECORDPANEL_SYSTEM_AUDIO_DEVICE to a monitor source)")
			} else {
				setupCheck(w, "System audio", true, cfg.Capture.SystemAudioDevice)
			}

			setupCheck(w, "Recording server", true, services.Server.BaseURL())

			if ok {
				fmt.Fprintln(w, "\nAll prerequisites met. Ready to record!")
			} else {
				fmt.Fprintln(w, "\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}
