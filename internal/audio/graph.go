package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"recordpanel/internal/media"
	"recordpanel/internal/ports"
)

var (
	ErrNotPCMSource     = errors.New("track cannot be read as PCM")
	ErrContextClosed    = errors.New("audio context closed")
	errDestinationInUse = errors.New("mixed audio is already being read")
)

// GraphConfig tunes the mixer.
type GraphConfig struct {
	FrameDuration time.Duration
	// MaxBuffered bounds how much audio one source may queue ahead of the mixer.
	MaxBuffered time.Duration
	ChunkSize   int
	StopTimeout time.Duration
}

// Graph is a ports.AudioGraph that sums PCM sources in process.
type Graph struct {
	cfg GraphConfig
	log *zap.Logger
}

func NewGraph(cfg GraphConfig, log *zap.Logger) *Graph {
	if cfg.FrameDuration <= 0 {
		cfg.FrameDuration = DefaultFrameDuration
	}
	if cfg.MaxBuffered <= 0 {
		cfg.MaxBuffered = time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Graph{cfg: cfg, log: log}
}

// NewContext creates a mixing context. Its lifetime is independent of ctx
// cancellation; it runs until Close.
func (g *Graph) NewContext(ctx context.Context) (ports.AudioContext, error) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m := &mixContext{
		cfg:    g.cfg,
		log:    g.log,
		ctx:    runCtx,
		cancel: cancel,
	}
	m.destination = &destinationTrack{
		Track: media.NewTrack(ports.TrackKindAudio, "mixed audio"),
		mix:   m,
	}
	return m, nil
}

type mixInput struct {
	track  ports.Track
	reader io.ReadCloser
	done   chan struct{}

	mu    sync.Mutex
	queue []int16
	max   int
}

func (in *mixInput) push(samples []int16) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.queue = append(in.queue, samples...)
	if over := len(in.queue) - in.max; over > 0 {
		in.queue = append(in.queue[:0], in.queue[over:]...)
	}
}

// pop fills dst with the next queued samples, padding with silence. A muted
// track contributes silence but is still drained.
func (in *mixInput) pop(dst []int16) {
	in.mu.Lock()
	n := copy(dst, in.queue)
	in.queue = append(in.queue[:0], in.queue[n:]...)
	in.mu.Unlock()

	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	if !in.track.Enabled() {
		for i := range dst {
			dst[i] = 0
		}
	}
}

type mixContext struct {
	cfg    GraphConfig
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	inputs  []*mixInput
	closed  bool
	output  *io.PipeWriter
	mixDone chan struct{}

	destination *destinationTrack
	closeOnce   sync.Once
	closeErr    error
}

func (m *mixContext) Connect(source ports.Track) error {
	pcm, ok := source.(ports.PCMSource)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotPCMSource, source.Label())
	}
	if m.isClosed() {
		return ErrContextClosed
	}

	reader, err := pcm.OpenPCM(m.ctx)
	if err != nil {
		return fmt.Errorf("open %s: %w", source.Label(), err)
	}

	in := &mixInput{
		track:  source,
		reader: reader,
		done:   make(chan struct{}),
		max:    frameSamples(m.cfg.MaxBuffered),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = reader.Close()
		return ErrContextClosed
	}
	m.inputs = append(m.inputs, in)
	m.mu.Unlock()

	go pumpPCM(reader, in, m.cfg.ChunkSize, m.ctx.Done(), m.log.With(zap.String("source", source.Label())), in.done)
	m.log.Debug("audio source connected", zap.String("source", source.Label()))
	return nil
}

func (m *mixContext) Destination() ports.Track {
	return m.destination
}

// Close stops mixing, releases every connected source and ends the
// destination track. It is idempotent.
func (m *mixContext) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		inputs := m.inputs
		output, mixDone := m.output, m.mixDone
		m.mu.Unlock()

		m.cancel()
		if output != nil {
			_ = output.Close()
			<-mixDone
		}

		var errs []error
		for _, in := range inputs {
			if err := in.reader.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", in.track.Label(), err))
			}
			waitPump(in.done, in.reader, m.cfg.StopTimeout)
		}
		m.destination.End()
		m.closeErr = errors.Join(errs...)
	})
	return m.closeErr
}

func (m *mixContext) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mixContext) open(ctx context.Context) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrContextClosed
	}
	if m.output != nil {
		return nil, errDestinationInUse
	}

	reader, writer := io.Pipe()
	m.output = writer
	m.mixDone = make(chan struct{})
	go m.mixLoop(ctx, writer, m.mixDone)
	return reader, nil
}

func (m *mixContext) mixLoop(ctx context.Context, out *io.PipeWriter, done chan struct{}) {
	defer close(done)
	defer out.Close()

	samples := frameSamples(m.cfg.FrameDuration)
	frame := make([]byte, samples*BytesPerSample)
	var scratch [][]int16

	ticker := time.NewTicker(m.cfg.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		inputs := append([]*mixInput(nil), m.inputs...)
		m.mu.Unlock()

		for len(scratch) < len(inputs) {
			scratch = append(scratch, make([]int16, samples))
		}
		for i, in := range inputs {
			in.pop(scratch[i])
		}
		mixFrame(frame, scratch[:len(inputs)])
		if !m.destination.Enabled() {
			clear(frame)
		}

		if _, err := out.Write(frame); err != nil {
			if !isClosedErr(err) {
				m.log.Warn("mixed audio write failed", zap.Error(err))
			}
			return
		}
	}
}

// destinationTrack is the single mixed output of a context.
type destinationTrack struct {
	*media.Track
	mix *mixContext
}

// OpenPCM starts mixing into the returned reader. Only one reader is allowed
// per context.
func (d *destinationTrack) OpenPCM(ctx context.Context) (io.ReadCloser, error) {
	return d.mix.open(ctx)
}
