package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func NewServeCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the recorder for browser-hosted panels",
		Long:  "serve keeps the recorder running and accepts panel commands on /panel/ws until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "panel websocket: %s/panel/ws\n", deps.Services.Server.BaseURL())
			deps.Services.Controller.Show()
			return deps.Services.Server.Serve(ctx)
		},
	}
}
