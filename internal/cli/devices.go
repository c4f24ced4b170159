package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var errNoDisplays = errors.New("no displays found")

func NewDevicesCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List displays and supported recording formats",
		RunE: func(cmd *cobra.Command, args []string) error {
			services := deps.Services
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			displays := services.Devices.ListDisplays()
			fmt.Fprintln(w, "DISPLAY\tBOUNDS\tSELECTED")
			for _, d := range displays {
				selected := ""
				if d.Index == services.Config.Capture.DisplayIndex {
					selected = "*"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", d.Index, d.Bounds, selected)
			}
			fmt.Fprintln(w)

			fmt.Fprintln(w, "MIME TYPE\tSUPPORTED")
			for _, mimeType := range services.Config.Recorder.MimeTypes {
				fmt.Fprintf(w, "%s\t%t\n", mimeType, services.Recorders.IsTypeSupported(mimeType))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(displays) == 0 {
				return errNoDisplays
			}
			return nil
		},
	}
}
