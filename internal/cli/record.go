package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"recordpanel/internal/domain"
)

type captureReply struct {
	result domain.RecordingResult
	err    error
}

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var (
		duration  time.Duration
		out       string
		noCamera  bool
		noAudio   bool
		keepAlive bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record until interrupted or for a fixed duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			services := deps.Services
			if deps.Sink != nil {
				deps.Sink.SetVerbose(verbose)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serveCtx, cancelServe := context.WithCancel(context.Background())
			defer cancelServe()
			go func() { _ = services.Server.Serve(serveCtx) }()

			opts := domain.StartOptions{
				CameraEnabled: domain.Bool(!noCamera),
				AudioEnabled:  domain.Bool(!noAudio),
			}
			captureCtx, cancelCapture := context.WithCancel(context.Background())
			defer cancelCapture()
			replies := make(chan captureReply, 1)
			go func() {
				result, err := services.Controller.Capture(captureCtx, opts)
				replies <- captureReply{result: result, err: err}
			}()

			var timer <-chan time.Time
			if duration > 0 {
				timer = time.After(duration)
			}

			var reply captureReply
			select {
			case reply = <-replies:
			case <-timer:
				reply = stopAndWait(cmd, deps, replies, cancelCapture)
			case <-ctx.Done():
				reply = stopAndWait(cmd, deps, replies, cancelCapture)
			}
			if errors.Is(reply.err, context.Canceled) {
				return errInterrupted
			}
			if reply.err != nil {
				return reply.err
			}

			if out != "" {
				path := out
				if info, err := os.Stat(out); err == nil && info.IsDir() {
					path = filepath.Join(out, defaultFileName(reply.result.MimeType, time.Now()))
				}
				if err := os.WriteFile(path, reply.result.Artifact, 0o644); err != nil {
					return fmt.Errorf("write recording: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d bytes)\n", path, reply.result.Size)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), reply.result.URL)
			}

			if keepAlive && out == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "serving recording; press Ctrl+C to exit")
				stop()
				waitCtx, waitStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer waitStop()
				<-waitCtx.Done()
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop automatically after this long")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the recording to this file or directory")
	cmd.Flags().BoolVar(&noCamera, "no-camera", false, "do not open the camera")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "record without audio")
	cmd.Flags().BoolVar(&keepAlive, "serve", false, "keep serving the recording URL until interrupted")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the elapsed time every second")
	return cmd
}

var errInterrupted = errors.New("interrupted before recording started")

// stopAndWait stops the recording; the pending capture settles with its
// result. When there was nothing to stop the capture has not started yet, so
// its context is cancelled instead.
func stopAndWait(cmd *cobra.Command, deps *Dependencies, replies <-chan captureReply, cancelCapture context.CancelFunc) captureReply {
	fmt.Fprintln(cmd.ErrOrStderr(), "stopping...")
	result, err := deps.Services.Controller.Stop(context.Background())
	if result == nil && err == nil {
		cancelCapture()
	}
	return <-replies
}

func defaultFileName(mimeType string, now time.Time) string {
	container, _ := domain.ParseMimeType(mimeType)
	if container == "" {
		container = "webm"
	}
	return "recording-" + now.Format("20060102-150405") + "." + strings.TrimPrefix(container, "x-")
}
