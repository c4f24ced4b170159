package cli

import (
	"github.com/spf13/cobra"

	"recordpanel/internal/bootstrap"
)

// Version is set at build time.
var Version = "dev"

type Dependencies struct {
	Services bootstrap.Services
	Sink     *TerminalSink
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "recordpanel",
		Short:         "Record the screen with camera and microphone",
		Long:          "recordpanel records the screen, camera and microphone through ffmpeg and serves finished recordings over a local HTTP server.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewDevicesCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))
	rootCmd.AddCommand(NewServeCmd(deps))

	return rootCmd
}
