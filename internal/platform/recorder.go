package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"recordpanel/internal/audio"
	"recordpanel/internal/ports"
)

var (
	errNoVideoSource   = errors.New("stream has no ffmpeg video source")
	errRecorderStarted = errors.New("recorder already started")
	errNotRecording    = errors.New("recorder is not recording")
	errNotPaused       = errors.New("recorder is not paused")
)

// RecorderFactory builds ffmpeg recorder primitives.
type RecorderFactory struct {
	cfg   Config
	log   *zap.Logger
	probe func() (string, error)

	probeOnce sync.Once
	encoders  encoderSet
}

func NewRecorderFactory(cfg Config, log *zap.Logger) *RecorderFactory {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	f := &RecorderFactory{cfg: cfg, log: log}
	f.probe = func() (string, error) {
		out, err := exec.Command(cfg.FFmpegCommand, "-hide_banner", "-encoders").Output()
		return string(out), err
	}
	return f
}

// Encoders returns the encoders ffmpeg reported, probing once.
func (f *RecorderFactory) Encoders() map[string]bool {
	f.probeOnce.Do(func() {
		out, err := f.probe()
		if err != nil {
			f.log.Warn("ffmpeg encoder probe failed", zap.String("command", f.cfg.FFmpegCommand), zap.Error(err))
			f.encoders = encoderSet{}
			return
		}
		f.encoders = parseEncoders(out)
	})
	return f.encoders
}

func (f *RecorderFactory) IsTypeSupported(mimeType string) bool {
	return encoderSet(f.Encoders()).supports(mimeType)
}

func (f *RecorderFactory) NewRecorder(stream ports.MediaStream, mimeType string) (ports.Recorder, error) {
	var video VideoSource
	for _, track := range stream.VideoTracks() {
		if source, ok := track.(VideoSource); ok {
			video = source
			break
		}
	}
	if video == nil {
		return nil, errNoVideoSource
	}

	var pcm ports.PCMSource
	for _, track := range stream.AudioTracks() {
		if source, ok := track.(ports.PCMSource); ok {
			pcm = source
			break
		}
	}

	out, ok := outputFormatFor(mimeType)
	if !ok {
		return nil, fmt.Errorf("unsupported mime type %q", mimeType)
	}

	return &ffmpegRecorder{
		command:   f.cfg.FFmpegCommand,
		args:      recorderArgs(video.Input(), pcm != nil, out),
		audio:     pcm,
		mimeType:  out.MimeType,
		stopGrace: f.cfg.StopGrace,
		log:       f.log,
		state:     ports.RecorderInactive,
		events:    make(chan ports.RecorderEvent, 64),
		exited:    make(chan struct{}),
	}, nil
}

// recorderArgs builds the ffmpeg command line: the video input, the mixed PCM
// on stdin when withAudio is set, and the container on stdout.
func recorderArgs(video InputSpec, withAudio bool, out outputFormat) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if !withAudio {
		args = append(args, "-nostdin")
	}
	args = append(args, video.Args()...)
	if withAudio {
		args = append(args,
			"-f", "s16le",
			"-ar", strconv.Itoa(audio.SampleRate),
			"-ac", strconv.Itoa(audio.Channels),
			"-i", "pipe:0",
		)
	}

	args = append(args, "-map", "0:v:0")
	if withAudio {
		args = append(args, "-map", "1:a:0")
	}
	args = append(args, "-c:v", out.VideoEncoder)
	args = append(args, out.VideoOptions...)
	if withAudio {
		args = append(args, "-c:a", out.AudioEncoder)
		args = append(args, out.AudioOptions...)
	}
	if out.Muxer == "mp4" {
		args = append(args, "-movflags", "frag_keyframe+empty_moov")
	}
	return append(args, "-f", out.Muxer, "pipe:1")
}

// ffmpegRecorder is one ffmpeg process producing the container on stdout.
// Stdout bytes accumulate until RequestData or exit turns them into a data
// event.
type ffmpegRecorder struct {
	command   string
	args      []string
	audio     ports.PCMSource
	mimeType  string
	stopGrace time.Duration
	log       *zap.Logger

	mu       sync.Mutex
	state    ports.RecorderState
	started  bool
	stopping bool
	pending  bytes.Buffer
	cmd      *exec.Cmd
	stderr   bytes.Buffer
	pcm      io.ReadCloser

	// emitMu keeps events ordered and guards the close of events.
	emitMu sync.Mutex
	closed bool
	events chan ports.RecorderEvent
	exited chan struct{}
}

func (r *ffmpegRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errRecorderStarted
	}

	cmd := exec.Command(r.command, r.args...)
	cmd.Stderr = &lockedWriter{mu: &r.mu, buf: &r.stderr}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create ffmpeg stdout pipe: %w", err)
	}

	var stdin io.WriteCloser
	if r.audio != nil {
		if stdin, err = cmd.StdinPipe(); err != nil {
			return fmt.Errorf("create ffmpeg stdin pipe: %w", err)
		}
	}

	var pcm io.ReadCloser
	if r.audio != nil {
		if pcm, err = r.audio.OpenPCM(context.Background()); err != nil {
			return fmt.Errorf("open mixed audio: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		if pcm != nil {
			_ = pcm.Close()
		}
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	r.cmd = cmd
	r.pcm = pcm
	r.started = true
	r.state = ports.RecorderRecording

	if pcm != nil {
		go r.feedAudio(pcm, stdin)
	}
	readDone := make(chan struct{})
	go r.readOutput(stdout, readDone)
	go r.wait(readDone)

	r.log.Debug("ffmpeg recorder started", zap.Int("pid", cmd.Process.Pid), zap.String("mimeType", r.mimeType))
	return nil
}

func (r *ffmpegRecorder) RequestData() error {
	r.mu.Lock()
	if r.state == ports.RecorderInactive {
		r.mu.Unlock()
		return errNotRecording
	}
	data := r.takePendingLocked()
	r.mu.Unlock()

	if len(data) > 0 {
		r.emit(ports.RecorderEvent{Kind: ports.RecorderEventData, Data: data})
	}
	return nil
}

func (r *ffmpegRecorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != ports.RecorderRecording {
		return errNotRecording
	}
	if err := suspendProcess(r.cmd.Process); err != nil {
		return err
	}
	r.state = ports.RecorderPaused
	return nil
}

func (r *ffmpegRecorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != ports.RecorderPaused {
		return errNotPaused
	}
	if err := continueProcess(r.cmd.Process); err != nil {
		return err
	}
	r.state = ports.RecorderRecording
	return nil
}

// Stop asks ffmpeg to finalize the container. The stop event follows once the
// process has exited and its remaining output was delivered.
func (r *ffmpegRecorder) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.started = true
		r.mu.Unlock()
		r.closeEvents()
		return nil
	}
	if r.stopping || r.state == ports.RecorderInactive {
		r.mu.Unlock()
		return nil
	}
	r.stopping = true
	paused := r.state == ports.RecorderPaused
	process := r.cmd.Process
	pcm := r.pcm
	r.mu.Unlock()

	if paused {
		_ = continueProcess(process)
	}
	if pcm != nil {
		_ = pcm.Close()
	}
	if err := interruptProcess(process); err != nil {
		r.log.Debug("ffmpeg interrupt failed", zap.Error(err))
	}

	go func() {
		select {
		case <-r.exited:
		case <-time.After(r.stopGrace):
			r.log.Warn("ffmpeg did not exit after interrupt; killing", zap.Duration("grace", r.stopGrace))
			_ = process.Kill()
		}
	}()
	return nil
}

func (r *ffmpegRecorder) State() ports.RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *ffmpegRecorder) MimeType() string { return r.mimeType }

func (r *ffmpegRecorder) Events() <-chan ports.RecorderEvent { return r.events }

func (r *ffmpegRecorder) feedAudio(pcm io.ReadCloser, stdin io.WriteCloser) {
	defer stdin.Close()
	if _, err := io.Copy(stdin, pcm); err != nil && !isBenignCopyErr(err) {
		r.log.Debug("mixed audio feed ended", zap.Error(err))
	}
}

func (r *ffmpegRecorder) readOutput(stdout io.Reader, done chan<- struct{}) {
	defer close(done)
	buf := make([]byte, 32*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.pending.Write(buf[:n])
			r.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (r *ffmpegRecorder) wait(readDone <-chan struct{}) {
	<-readDone
	err := r.cmd.Wait()
	close(r.exited)

	r.mu.Lock()
	expected := r.stopping
	data := r.takePendingLocked()
	stderr := trimOutput(r.stderr.String())
	pcm := r.pcm
	r.state = ports.RecorderInactive
	r.mu.Unlock()

	if pcm != nil {
		_ = pcm.Close()
	}
	if len(data) > 0 {
		r.emit(ports.RecorderEvent{Kind: ports.RecorderEventData, Data: data})
	}
	if !expected {
		if err == nil {
			err = errors.New("ffmpeg exited unexpectedly")
		}
		if stderr != "" {
			err = fmt.Errorf("%w: %s", err, stderr)
		}
		r.emit(ports.RecorderEvent{Kind: ports.RecorderEventError, Err: err})
	} else if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			r.log.Warn("ffmpeg wait failed", zap.Error(err))
		}
	}
	r.closeEvents()
}

func (r *ffmpegRecorder) takePendingLocked() []byte {
	if r.pending.Len() == 0 {
		return nil
	}
	data := append([]byte(nil), r.pending.Bytes()...)
	r.pending.Reset()
	return data
}

func (r *ffmpegRecorder) emit(event ports.RecorderEvent) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	if r.closed {
		return
	}
	r.events <- event
}

func (r *ffmpegRecorder) closeEvents() {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	if r.closed {
		return
	}
	r.events <- ports.RecorderEvent{Kind: ports.RecorderEventStop}
	close(r.events)
	r.closed = true
}

type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func isBenignCopyErr(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) || errors.Is(err, io.EOF) || errors.Is(err, syscall.EPIPE)
}

func trimOutput(s string) string {
	return string(bytes.TrimSpace([]byte(s)))
}
