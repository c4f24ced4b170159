package bootstrap

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recordpanel/internal/artifact"
	"recordpanel/internal/audio"
	"recordpanel/internal/config"
	"recordpanel/internal/domain"
	"recordpanel/internal/httpapi"
	"recordpanel/internal/logging"
	"recordpanel/internal/panel"
	"recordpanel/internal/platform"
	"recordpanel/internal/ports"
	"recordpanel/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Config     config.Config
	Log        *zap.Logger
	Controller *usecase.Controller
	Devices    *platform.Devices
	Recorders  *platform.RecorderFactory
	Artifacts  *artifact.Store
	Panel      *panel.Bridge
	Server     *httpapi.Server
}

// Build loads configuration and wires all backend dependencies. The host
// sink receives every controller event alongside the panel bridge.
func Build(sink ports.EventSink, opts ...platform.DevicesOption) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return Services{}, err
	}
	return BuildWith(cfg, log, sink, opts...)
}

// BuildWith wires the runtime graph from an already resolved configuration.
func BuildWith(cfg config.Config, log *zap.Logger, sink ports.EventSink, opts ...platform.DevicesOption) (Services, error) {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	var controller *usecase.Controller
	bridge := panel.NewBridge(log.Named("panel"), cfg.Recorder.StopTimeout*2)
	router := httpapi.NewRouter(nil, bridge, func() domain.Status { return controller.Status() }, log.Named("http"))

	server, err := httpapi.Listen(cfg.Server.Addr, router, log.Named("http"))
	if err != nil {
		log.Warn("configured http address unavailable; using a free port", zap.String("addr", cfg.Server.Addr), zap.Error(err))
		if server, err = httpapi.Listen("127.0.0.1:0", router, log.Named("http")); err != nil {
			return Services{}, fmt.Errorf("listen for recordings: %w", err)
		}
	}

	store := artifact.NewStore(server.BaseURL(), cfg.Server.ArtifactLimit)
	artifact.NewHandler(store).Register(router)

	platformCfg := platform.Config{
		FFmpegCommand:     cfg.Capture.FFmpegCommand,
		FrameRate:         cfg.Capture.FrameRate,
		DisplayIndex:      cfg.Capture.DisplayIndex,
		CameraDevice:      cfg.Capture.CameraDevice,
		MicFormat:         cfg.Capture.MicFormat,
		MicDevice:         cfg.Capture.MicDevice,
		SystemAudioFormat: cfg.Capture.SystemAudioFormat,
		SystemAudioDevice: cfg.Capture.SystemAudioDevice,
		PollInterval:      cfg.Capture.PollInterval,
		StopGrace:         cfg.Recorder.KillGrace,
	}
	capture := audio.NewFFMPEGCapture(cfg.Capture.FFmpegCommand, log.Named("capture"))
	devices := platform.NewDevices(platformCfg, capture, log.Named("devices"), opts...)
	recorders := platform.NewRecorderFactory(platformCfg, log.Named("recorder"))
	graph := audio.NewGraph(audio.GraphConfig{
		FrameDuration: cfg.Mixer.FrameDuration,
		MaxBuffered:   cfg.Mixer.MaxBuffered,
		ChunkSize:     cfg.Mixer.ChunkSize,
	}, log.Named("mixer"))

	controller = usecase.NewController(
		devices,
		graph,
		recorders,
		store,
		panel.Fanout{sink, bridge},
		log.Named("controller"),
		usecase.Config{
			MimeTypes:     cfg.Recorder.MimeTypes,
			FlushInterval: cfg.Recorder.FlushInterval,
			StopGrace:     cfg.Recorder.StopGrace,
			StopTimeout:   cfg.Recorder.StopTimeout,
			RestartDelay:  cfg.Recorder.RestartDelay,
			TickInterval:  cfg.Recorder.TickInterval,
			Panel:         cfg.Panel,
		},
	)
	bridge.Attach(controller)

	return Services{
		Config:     cfg,
		Log:        log,
		Controller: controller,
		Devices:    devices,
		Recorders:  recorders,
		Artifacts:  store,
		Panel:      bridge,
		Server:     server,
	}, nil
}

// Close tears down the controller, disconnects panels and stops the HTTP
// server.
func (s Services) Close() error {
	if s.Controller != nil {
		s.Controller.Cleanup()
	}
	if s.Panel != nil {
		s.Panel.Close()
	}
	var err error
	if s.Server != nil {
		err = s.Server.Close()
	}
	if s.Log != nil {
		_ = s.Log.Sync()
	}
	return err
}
