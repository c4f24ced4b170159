package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recordpanel/internal/domain"
	"recordpanel/internal/ports"
)

type harness struct {
	devices    *fakeDevices
	graph      *fakeGraph
	recorders  *fakeRecorderFactory
	artifacts  *fakeArtifacts
	events     *fakeEventSink
	clock      *fakeClock
	controller *Controller
}

func newHarness(t *testing.T, mutate ...func(*harness, *Config)) *harness {
	t.Helper()

	h := &harness{
		devices:   &fakeDevices{},
		graph:     &fakeGraph{},
		recorders: &fakeRecorderFactory{chunk: []byte("chunk")},
		artifacts: &fakeArtifacts{},
		events:    &fakeEventSink{},
		clock:     newFakeClock(),
	}
	cfg := Config{
		FlushInterval: time.Hour,
		StopTimeout:   time.Second,
		TickInterval:  time.Hour,
		Clock:         h.clock.Now,
	}
	for _, fn := range mutate {
		fn(h, &cfg)
	}

	h.controller = NewController(h.devices, h.graph, h.recorders, h.artifacts, h.events, zap.NewNop(), cfg)
	t.Cleanup(h.controller.Cleanup)
	return h
}

type captureReply struct {
	result domain.RecordingResult
	err    error
}

func (h *harness) captureAsync(ctx context.Context, opts domain.StartOptions) <-chan captureReply {
	out := make(chan captureReply, 1)
	go func() {
		result, err := h.controller.Capture(ctx, opts)
		out <- captureReply{result: result, err: err}
	}()
	return out
}

func waitReply(t *testing.T, ch <-chan captureReply) captureReply {
	t.Helper()
	select {
	case reply := <-ch:
		return reply
	case <-time.After(2 * time.Second):
		t.Fatalf("capture did not settle")
		return captureReply{}
	}
}

func (h *harness) waitRecording(t *testing.T) {
	t.Helper()
	require.Eventually(t, h.controller.IsRecording, 2*time.Second, 5*time.Millisecond)
}

func TestControllerStartStopProducesResult(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
	assert.Equal(t, domain.StateRecording, h.controller.State())
	assert.True(t, h.controller.IsVisible())

	result, err := h.controller.Stop(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, []byte("chunkchunk"), result.Artifact)
	assert.Equal(t, len(result.Artifact), result.Size)
	assert.Equal(t, "video/webm;codecs=vp9,opus", result.MimeType)
	assert.Equal(t, "http://artifacts.test/recordings/"+result.ID, result.URL)

	assert.Equal(t, domain.StateIdle, h.controller.State())
	assert.False(t, h.controller.IsVisible())
	assert.True(t, h.controller.Streams().Empty())

	display := h.devices.lastDisplay()
	for _, track := range display.Tracks() {
		assert.False(t, track.Live(), "display track %s still live", track.Label())
	}
	for _, track := range h.devices.lastCamera().Tracks() {
		assert.False(t, track.Live(), "camera track %s still live", track.Label())
	}
	contexts := h.graph.snapshot()
	require.Len(t, contexts, 1)
	assert.Equal(t, 1, contexts[0].closed())

	assert.Equal(t, []domain.StateReason{
		domain.ReasonPermissionsRequest,
		domain.ReasonPermissionsGranted,
		domain.ReasonRecordingStarted,
		domain.ReasonRecordingFinalizing,
		domain.ReasonRecordingReady,
	}, h.events.reasons())
	require.Len(t, h.events.snapshotResults(), 1)
	assert.Equal(t, result.ID, h.events.snapshotResults()[0].ID)
}

func TestControllerStartIsIdempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))

	display, _ := h.devices.calls()
	assert.Equal(t, 1, display)
	assert.Equal(t, 1, h.recorders.count())
}

func TestControllerStopWithoutSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	result, err := h.controller.Stop(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, domain.StateIdle, h.controller.State())
	assert.Empty(t, h.events.snapshotErrors())
}

func TestControllerStopWhileIdleKeepsAcquiredStreams(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	pair, err := h.controller.RequestPermissions(context.Background(), domain.StartOptions{}.Permissions())
	require.NoError(t, err)
	h.controller.Show()

	result, err := h.controller.Stop(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result)

	assert.False(t, h.controller.Streams().Empty())
	assert.True(t, h.controller.IsVisible())
	assert.True(t, pair.displayVideo().Live())

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
	display, _ := h.devices.calls()
	assert.Equal(t, 1, display)
	assert.Same(t, pair.Display, h.controller.Streams().Display)
}

func TestControllerPauseResumeGuards(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.controller.Pause()
	h.controller.Resume()
	assert.Equal(t, domain.StateIdle, h.controller.State())

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
	h.controller.Resume()
	assert.Equal(t, domain.StateRecording, h.controller.State())

	h.controller.Pause()
	assert.True(t, h.controller.IsPaused())
	assert.Equal(t, ports.RecorderPaused, h.recorders.last().State())
	h.controller.Pause()
	assert.True(t, h.controller.IsPaused())

	h.controller.Resume()
	assert.True(t, h.controller.IsRecording())
	assert.Equal(t, ports.RecorderRecording, h.recorders.last().State())
}

func TestControllerDurationExcludesPauses(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
	h.clock.Advance(3 * time.Second)
	assert.Equal(t, 3, h.controller.RecordingDuration())

	h.controller.Pause()
	h.clock.Advance(2 * time.Second)
	assert.Equal(t, 3, h.controller.RecordingDuration())

	h.controller.Resume()
	h.clock.Advance(2 * time.Second)
	assert.Equal(t, 5, h.controller.RecordingDuration())
	assert.Equal(t, 5, h.controller.Status().DurationSeconds)

	_, err := h.controller.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, h.controller.RecordingDuration())
}

func TestControllerStopFromPausedKeepsData(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
	h.controller.Pause()

	result, err := h.controller.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("chunk"), result.Artifact)
}

func TestControllerStopEmptyRecording(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(h *harness, _ *Config) {
		h.recorders.chunk = nil
	})

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
	result, err := h.controller.Stop(context.Background())
	require.ErrorIs(t, err, domain.ErrEmptyRecording)
	assert.Nil(t, result)

	assert.Equal(t, domain.StateIdle, h.controller.State())
	assert.True(t, h.controller.Streams().Empty())
	errs := h.events.snapshotErrors()
	require.NotEmpty(t, errs)
	assert.Equal(t, domain.ErrorCodeEmpty, errs[len(errs)-1].code)
	assert.Empty(t, h.events.snapshotResults())
}

func TestControllerArtifactPublishFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(h *harness, _ *Config) {
		h.artifacts.err = errors.New("store unavailable")
	})

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
	_, err := h.controller.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
	assert.Equal(t, domain.StateIdle, h.controller.State())

	states := h.events.snapshotStates()
	assert.Equal(t, domain.ReasonRecordingFailed, states[len(states)-1].reason)
}

func TestControllerDisplayPermissionDenied(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(h *harness, _ *Config) {
		h.devices.displayErr = errors.New("NotAllowedError")
	})

	err := h.controller.Start(context.Background(), domain.StartOptions{})
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	var permErr *domain.PermissionError
	require.ErrorAs(t, err, &permErr)
	assert.Equal(t, "display", permErr.Source)

	assert.Equal(t, domain.StateIdle, h.controller.State())
	assert.Equal(t, 0, h.recorders.count())
	assert.Equal(t, []domain.StateReason{
		domain.ReasonPermissionsRequest,
		domain.ReasonPermissionsDenied,
	}, h.events.reasons())
	errs := h.events.snapshotErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, domain.ErrorCodePermission, errs[0].code)
}

func TestControllerCameraDeniedReleasesDisplay(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(h *harness, _ *Config) {
		h.devices.userErr = errors.New("camera busy")
	})

	_, err := h.controller.RequestPermissions(context.Background(), domain.RequestPermissionsOptions{})
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	for _, track := range h.devices.lastDisplay().Tracks() {
		assert.False(t, track.Live())
	}
	assert.True(t, h.controller.Streams().Empty())
}

func TestControllerRequestPermissionsSkipsUserMediaWhenDisabled(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	pair, err := h.controller.RequestPermissions(context.Background(), domain.RequestPermissionsOptions{
		CameraEnabled: domain.Bool(false),
		AudioEnabled:  domain.Bool(false),
	})
	require.NoError(t, err)
	assert.Nil(t, pair.Camera)
	assert.Empty(t, pair.Display.AudioTracks())

	_, user := h.devices.calls()
	assert.Equal(t, 0, user)
	assert.Equal(t, domain.StateIdle, h.controller.State())
}

func TestControllerRequestPermissionsRejectedWhileRecording(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
	_, err := h.controller.RequestPermissions(context.Background(), domain.RequestPermissionsOptions{})
	require.ErrorIs(t, err, domain.ErrSessionActive)
	assert.True(t, h.controller.IsRecording())
}

func TestControllerStartReusesAcquiredStreams(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	pair, err := h.controller.RequestPermissions(context.Background(), domain.RequestPermissionsOptions{})
	require.NoError(t, err)
	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))

	display, _ := h.devices.calls()
	assert.Equal(t, 1, display)
	assert.Equal(t, pair.Display.ID(), h.controller.Streams().Display.ID())
}

func TestControllerStartInactiveDisplay(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(h *harness, _ *Config) {
		h.devices.endedDisplay = true
	})

	err := h.controller.Start(context.Background(), domain.StartOptions{})
	require.ErrorIs(t, err, domain.ErrInactiveStream)
	assert.Equal(t, 0, h.recorders.count())
	assert.Equal(t, domain.StateIdle, h.controller.State())
}

func TestControllerMixesDisplayAndMicrophoneAudio(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))

	contexts := h.graph.snapshot()
	require.Len(t, contexts, 1)
	require.Len(t, contexts[0].connected, 2)
	assert.Equal(t, "system audio", contexts[0].connected[0].Label())
	assert.Equal(t, "microphone", contexts[0].connected[1].Label())

	stream := h.recorders.last().stream
	require.Len(t, stream.VideoTracks(), 1)
	assert.Equal(t, "screen", stream.VideoTracks()[0].Label())
	require.Len(t, stream.AudioTracks(), 1)
	assert.Equal(t, contexts[0].destination.ID(), stream.AudioTracks()[0].ID())
}

func TestControllerAudioDisabledSkipsMixing(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{AudioEnabled: domain.Bool(false)}))

	assert.Empty(t, h.graph.snapshot())
	stream := h.recorders.last().stream
	assert.Len(t, stream.VideoTracks(), 1)
	assert.Empty(t, stream.AudioTracks())
}

func TestControllerMutedAudioStillMixed(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.controller.ToggleAudio(false)
	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{AudioEnabled: domain.Bool(true)}))
	h.controller.ToggleAudio(true)

	contexts := h.graph.snapshot()
	require.Len(t, contexts, 1)
	assert.Len(t, contexts[0].connected, 2)

	stream := h.recorders.last().stream
	require.Len(t, stream.AudioTracks(), 1)
	assert.Equal(t, contexts[0].destination.ID(), stream.AudioTracks()[0].ID())

	pair := h.controller.Streams()
	assert.True(t, pair.Display.AudioTracks()[0].Enabled())
	assert.True(t, pair.Camera.AudioTracks()[0].Enabled())
}

func TestControllerMimeNegotiation(t *testing.T) {
	t.Parallel()

	t.Run("first supported", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, func(h *harness, _ *Config) {
			h.recorders.supported = map[string]bool{"video/webm;codecs=vp8,opus": true, "video/mp4": true}
		})
		require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
		assert.Equal(t, "video/webm;codecs=vp8,opus", h.recorders.last().mimeType)
	})

	t.Run("nothing supported falls back", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, func(h *harness, _ *Config) {
			h.recorders.supported = map[string]bool{}
		})
		require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
		assert.Equal(t, "", h.recorders.last().mimeType)

		result, err := h.controller.Stop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.FallbackMimeType, result.MimeType)
	})
}

func TestControllerRecorderCreateFailureKeepsStreams(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(h *harness, _ *Config) {
		h.recorders.newErr = errors.New("no encoder")
	})

	err := h.controller.Start(context.Background(), domain.StartOptions{})
	require.ErrorIs(t, err, domain.ErrRecorderFault)
	assert.Equal(t, domain.StateIdle, h.controller.State())
	assert.False(t, h.controller.Streams().Empty())

	contexts := h.graph.snapshot()
	require.Len(t, contexts, 1)
	assert.Equal(t, 1, contexts[0].closed())
}

func TestControllerCaptureResolvesOnStop(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	replies := h.captureAsync(context.Background(), domain.StartOptions{})
	h.waitRecording(t)

	result, err := h.controller.Stop(context.Background())
	require.NoError(t, err)

	reply := waitReply(t, replies)
	require.NoError(t, reply.err)
	assert.Equal(t, result.ID, reply.result.ID)
	assert.Equal(t, domain.StateIdle, h.controller.State())
}

func TestControllerSecondCaptureRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	first := h.captureAsync(context.Background(), domain.StartOptions{})
	h.waitRecording(t)

	_, err := h.controller.Capture(context.Background(), domain.StartOptions{})
	require.ErrorIs(t, err, domain.ErrCaptureInProgress)

	_, err = h.controller.Stop(context.Background())
	require.NoError(t, err)
	require.NoError(t, waitReply(t, first).err)
}

func TestControllerSequentialCaptures(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	first := h.captureAsync(context.Background(), domain.StartOptions{})
	h.waitRecording(t)
	_, err := h.controller.Stop(context.Background())
	require.NoError(t, err)
	firstReply := waitReply(t, first)
	require.NoError(t, firstReply.err)
	assert.Equal(t, domain.StateIdle, h.controller.State())

	mark := len(h.events.snapshotStates())

	second := h.captureAsync(context.Background(), domain.StartOptions{})
	h.waitRecording(t)
	_, err = h.controller.Stop(context.Background())
	require.NoError(t, err)
	secondReply := waitReply(t, second)
	require.NoError(t, secondReply.err)

	assert.NotEqual(t, firstReply.result.ID, secondReply.result.ID)
	assert.Equal(t, domain.StateIdle, h.controller.State())

	states := h.events.snapshotStates()[mark:]
	require.NotEmpty(t, states)
	assert.Equal(t, stateEvent{state: domain.StateRequesting, reason: domain.ReasonPermissionsRequest}, states[0])
	assert.Equal(t, domain.StateIdle, states[len(states)-1].state)
	display, _ := h.devices.calls()
	assert.Equal(t, 2, display)
}

func TestControllerHideCancelsCapture(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	replies := h.captureAsync(context.Background(), domain.StartOptions{})
	h.waitRecording(t)

	h.controller.Hide()

	reply := waitReply(t, replies)
	require.ErrorIs(t, reply.err, domain.ErrCancelled)
	assert.False(t, h.controller.IsVisible())
	assert.Equal(t, domain.StateIdle, h.controller.State())
	assert.Empty(t, h.events.snapshotResults())
	assert.Equal(t, ports.RecorderInactive, h.recorders.last().State())

	states := h.events.snapshotStates()
	assert.Equal(t, domain.ReasonRecordingDiscarded, states[len(states)-1].reason)
}

func TestControllerCaptureContextCancelled(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	replies := h.captureAsync(ctx, domain.StartOptions{})
	h.waitRecording(t)
	cancel()

	reply := waitReply(t, replies)
	require.ErrorIs(t, reply.err, context.Canceled)
	assert.Equal(t, domain.StateIdle, h.controller.State())
	assert.True(t, h.controller.Streams().Empty())
}

func TestControllerCaptureStartFailureReturnsError(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(h *harness, _ *Config) {
		h.devices.displayErr = errors.New("denied")
	})

	_, err := h.controller.Capture(context.Background(), domain.StartOptions{})
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	// The failed capture is not left outstanding.
	h.devices.mu.Lock()
	h.devices.displayErr = nil
	h.devices.mu.Unlock()
	replies := h.captureAsync(context.Background(), domain.StartOptions{})
	h.waitRecording(t)
	_, err = h.controller.Stop(context.Background())
	require.NoError(t, err)
	require.NoError(t, waitReply(t, replies).err)
}

func TestControllerDisplayEndedStopsAndResolvesCapture(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	replies := h.captureAsync(context.Background(), domain.StartOptions{})
	h.waitRecording(t)

	h.devices.lastDisplay().VideoTracks()[0].Stop()

	reply := waitReply(t, replies)
	require.NoError(t, reply.err)
	assert.NotEmpty(t, reply.result.ID)
	assert.Equal(t, domain.StateIdle, h.controller.State())
	require.Eventually(t, func() bool {
		return h.controller.Streams().Empty()
	}, time.Second, 5*time.Millisecond)
}

func TestControllerRecorderFaultRejectsCapture(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	replies := h.captureAsync(context.Background(), domain.StartOptions{})
	h.waitRecording(t)

	h.recorders.last().fail(errors.New("encoder crashed"))

	reply := waitReply(t, replies)
	require.ErrorIs(t, reply.err, domain.ErrRecorderFault)
	assert.Contains(t, reply.err.Error(), "encoder crashed")
	assert.Equal(t, domain.StateIdle, h.controller.State())

	errs := h.events.snapshotErrors()
	require.NotEmpty(t, errs)
	assert.Equal(t, domain.ErrorCodeRecorder, errs[len(errs)-1].code)
}

func TestControllerRestartKeepsStreamsAndCapture(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	replies := h.captureAsync(context.Background(), domain.StartOptions{AudioEnabled: domain.Bool(false)})
	h.waitRecording(t)
	first := h.recorders.last()

	require.NoError(t, h.controller.Restart(context.Background()))
	assert.True(t, h.controller.IsRecording())
	assert.Equal(t, 2, h.recorders.count())
	assert.Equal(t, ports.RecorderInactive, first.State())

	display, _ := h.devices.calls()
	assert.Equal(t, 1, display)
	assert.Empty(t, h.graph.snapshot(), "restart must reuse the capture options")

	select {
	case reply := <-replies:
		t.Fatalf("capture settled by restart: %+v", reply)
	default:
	}

	reasons := h.events.reasons()
	assert.Contains(t, reasons, domain.ReasonRestarting)
	assert.Equal(t, domain.ReasonRecordingRestarted, reasons[len(reasons)-1])

	result, err := h.controller.Stop(context.Background())
	require.NoError(t, err)
	reply := waitReply(t, replies)
	require.NoError(t, reply.err)
	assert.Equal(t, result.ID, reply.result.ID)
}

func TestControllerRestartFailureRejectsCapture(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	replies := h.captureAsync(context.Background(), domain.StartOptions{})
	h.waitRecording(t)

	h.recorders.setNewErr(errors.New("encoder gone"))
	err := h.controller.Restart(context.Background())
	require.ErrorIs(t, err, domain.ErrRecorderFault)

	reply := waitReply(t, replies)
	require.ErrorIs(t, reply.err, domain.ErrRecorderFault)
	assert.Equal(t, domain.StateIdle, h.controller.State())
	assert.True(t, h.controller.Streams().Empty())
}

func TestControllerCleanupIsIdempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(_ *harness, cfg *Config) {
		cfg.TickInterval = 5 * time.Millisecond
	})

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
	assert.True(t, h.controller.duration.Ticking())

	h.controller.Cleanup()
	h.controller.Cleanup()

	assert.False(t, h.controller.duration.Ticking())
	assert.Equal(t, domain.StateIdle, h.controller.State())
	assert.True(t, h.controller.Streams().Empty())
	assert.Equal(t, 1, h.graph.snapshot()[0].closed())
}

func TestControllerTicksDurationWhileRecording(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(_ *harness, cfg *Config) {
		cfg.TickInterval = 5 * time.Millisecond
	})

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
	h.clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		durations := h.events.snapshotDurations()
		return len(durations) > 0 && durations[len(durations)-1] == 2
	}, time.Second, 5*time.Millisecond)

	h.controller.Pause()
	assert.False(t, h.controller.duration.Ticking())
}

func TestControllerToggles(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	pair, err := h.controller.RequestPermissions(context.Background(), domain.RequestPermissionsOptions{})
	require.NoError(t, err)

	h.controller.ToggleCamera(false)
	assert.False(t, pair.Camera.VideoTracks()[0].Enabled())
	assert.True(t, pair.Camera.AudioTracks()[0].Enabled())

	h.controller.ToggleAudio(false)
	assert.False(t, pair.Camera.AudioTracks()[0].Enabled())
	assert.False(t, pair.Display.AudioTracks()[0].Enabled())

	status := h.controller.Status()
	assert.False(t, status.CameraEnabled)
	assert.False(t, status.AudioEnabled)

	require.NoError(t, h.controller.Start(context.Background(), domain.StartOptions{}))
	assert.Empty(t, h.graph.snapshot())

	h.controller.ToggleCamera(true)
	assert.True(t, pair.Camera.VideoTracks()[0].Enabled())
}

func TestControllerPanelConfig(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	assert.Equal(t, domain.DefaultPanelConfig(), h.controller.Config())

	require.ErrorIs(t, h.controller.SetConfig(domain.PanelConfig{Theme: "neon"}), domain.ErrInvalidTheme)
	require.NoError(t, h.controller.SetConfig(domain.PanelConfig{StopButtonText: "Done"}))
	require.NoError(t, h.controller.SetConfig(domain.PanelConfig{Theme: domain.ThemeDark}))

	assert.Equal(t, domain.PanelConfig{Theme: domain.ThemeDark, StopButtonText: "Done"}, h.controller.Config())
}

func TestControllerShowHideVisibility(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.controller.Show()
	assert.True(t, h.controller.IsVisible())
	h.controller.Hide()
	assert.False(t, h.controller.IsVisible())

	h.events.mu.Lock()
	visibility := append([]bool(nil), h.events.visibility...)
	h.events.mu.Unlock()
	assert.Equal(t, []bool{true, false}, visibility)
}
