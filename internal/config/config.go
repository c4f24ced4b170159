package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"recordpanel/internal/domain"
)

// Config stores runtime configuration for the recorder and its hosts.
type Config struct {
	Capture  CaptureConfig
	Recorder RecorderConfig
	Mixer    MixerConfig
	Panel    domain.PanelConfig
	Server   ServerConfig
	Log      LogConfig
}

type CaptureConfig struct {
	FFmpegCommand     string
	FrameRate         int
	DisplayIndex      int
	CameraDevice      string
	MicFormat         string
	MicDevice         string
	SystemAudioFormat string
	SystemAudioDevice string
	PollInterval      time.Duration
}

type RecorderConfig struct {
	MimeTypes     []string
	FlushInterval time.Duration
	StopGrace     time.Duration
	StopTimeout   time.Duration
	RestartDelay  time.Duration
	TickInterval  time.Duration
	// KillGrace bounds how long ffmpeg may take to finalize after an interrupt.
	KillGrace time.Duration
}

type MixerConfig struct {
	FrameDuration time.Duration
	MaxBuffered   time.Duration
	ChunkSize     int
}

type ServerConfig struct {
	Addr          string
	ArtifactLimit int
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type fileConfig struct {
	Capture struct {
		FFmpegCommand     string `toml:"ffmpeg_command"`
		FrameRate         int    `toml:"frame_rate"`
		DisplayIndex      *int   `toml:"display_index"`
		CameraDevice      string `toml:"camera_device"`
		MicFormat         string `toml:"mic_format"`
		MicDevice         string `toml:"mic_device"`
		SystemAudioFormat string `toml:"system_audio_format"`
		SystemAudioDevice string `toml:"system_audio_device"`
		PollIntervalMS    int    `toml:"poll_interval_ms"`
	} `toml:"capture"`
	Recorder struct {
		MimeTypes       []string `toml:"mime_types"`
		FlushIntervalMS int      `toml:"flush_interval_ms"`
		StopGraceMS     *int     `toml:"stop_grace_ms"`
		StopTimeoutMS   int      `toml:"stop_timeout_ms"`
		RestartDelayMS  *int     `toml:"restart_delay_ms"`
		KillGraceMS     int      `toml:"kill_grace_ms"`
	} `toml:"recorder"`
	Panel struct {
		Theme          string `toml:"theme"`
		StopButtonText string `toml:"stop_button_text"`
	} `toml:"panel"`
	Server struct {
		Addr          string `toml:"addr"`
		ArtifactLimit int    `toml:"artifact_limit"`
	} `toml:"server"`
	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Capture: CaptureConfig{
			FFmpegCommand: "ffmpeg",
			FrameRate:     30,
			PollInterval:  time.Second,
		},
		Recorder: RecorderConfig{
			MimeTypes:     append([]string(nil), domain.DefaultMimeTypes...),
			FlushInterval: time.Second,
			StopGrace:     200 * time.Millisecond,
			StopTimeout:   5 * time.Second,
			RestartDelay:  100 * time.Millisecond,
			TickInterval:  time.Second,
			KillGrace:     3 * time.Second,
		},
		Mixer: MixerConfig{
			FrameDuration: 20 * time.Millisecond,
			MaxBuffered:   time.Second,
			ChunkSize:     4096,
		},
		Panel: domain.DefaultPanelConfig(),
		Server: ServerConfig{
			Addr:          "127.0.0.1:7788",
			ArtifactLimit: 8,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load resolves configuration from .env, the optional TOML file and
// RECORDPANEL_* environment variables, in increasing priority.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := configFilePath(); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	normalize(&cfg)
	return cfg, nil
}

// configFilePath returns RECORDPANEL_CONFIG, or the per-user config file when
// it exists.
func configFilePath() string {
	if explicit := strings.TrimSpace(os.Getenv("RECORDPANEL_CONFIG")); explicit != "" {
		return expandTilde(explicit)
	}

	var dir string
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		dir = filepath.Join(xdg, "recordpanel")
	} else if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".config", "recordpanel")
	} else {
		return ""
	}

	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := fc.Capture
	cfg.Capture.FFmpegCommand = firstNonEmpty(c.FFmpegCommand, cfg.Capture.FFmpegCommand)
	if c.FrameRate > 0 {
		cfg.Capture.FrameRate = c.FrameRate
	}
	if c.DisplayIndex != nil {
		cfg.Capture.DisplayIndex = *c.DisplayIndex
	}
	cfg.Capture.CameraDevice = firstNonEmpty(c.CameraDevice, cfg.Capture.CameraDevice)
	cfg.Capture.MicFormat = firstNonEmpty(c.MicFormat, cfg.Capture.MicFormat)
	cfg.Capture.MicDevice = firstNonEmpty(c.MicDevice, cfg.Capture.MicDevice)
	cfg.Capture.SystemAudioFormat = firstNonEmpty(c.SystemAudioFormat, cfg.Capture.SystemAudioFormat)
	cfg.Capture.SystemAudioDevice = firstNonEmpty(c.SystemAudioDevice, cfg.Capture.SystemAudioDevice)
	if c.PollIntervalMS > 0 {
		cfg.Capture.PollInterval = millis(c.PollIntervalMS)
	}

	r := fc.Recorder
	if len(r.MimeTypes) > 0 {
		cfg.Recorder.MimeTypes = r.MimeTypes
	}
	if r.FlushIntervalMS > 0 {
		cfg.Recorder.FlushInterval = millis(r.FlushIntervalMS)
	}
	if r.StopGraceMS != nil {
		cfg.Recorder.StopGrace = millis(*r.StopGraceMS)
	}
	if r.StopTimeoutMS > 0 {
		cfg.Recorder.StopTimeout = millis(r.StopTimeoutMS)
	}
	if r.RestartDelayMS != nil {
		cfg.Recorder.RestartDelay = millis(*r.RestartDelayMS)
	}
	if r.KillGraceMS > 0 {
		cfg.Recorder.KillGrace = millis(r.KillGraceMS)
	}

	if fc.Panel.Theme != "" {
		cfg.Panel.Theme = domain.Theme(fc.Panel.Theme)
	}
	cfg.Panel.StopButtonText = firstNonEmpty(fc.Panel.StopButtonText, cfg.Panel.StopButtonText)

	cfg.Server.Addr = firstNonEmpty(fc.Server.Addr, cfg.Server.Addr)
	if fc.Server.ArtifactLimit != 0 {
		cfg.Server.ArtifactLimit = fc.Server.ArtifactLimit
	}
	cfg.Log.Level = firstNonEmpty(fc.Log.Level, cfg.Log.Level)
	cfg.Log.File = expandTilde(firstNonEmpty(fc.Log.File, cfg.Log.File))
	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Capture.FFmpegCommand = envOrDefault("RECORDPANEL_FFMPEG_COMMAND", cfg.Capture.FFmpegCommand)
	cfg.Capture.FrameRate = envOrDefaultInt("RECORDPANEL_FRAME_RATE", cfg.Capture.FrameRate)
	cfg.Capture.DisplayIndex = envOrDefaultInt("RECORDPANEL_DISPLAY_INDEX", cfg.Capture.DisplayIndex)
	cfg.Capture.CameraDevice = envOrDefault("RECORDPANEL_CAMERA_DEVICE", cfg.Capture.CameraDevice)
	cfg.Capture.MicFormat = envOrDefault("RECORDPANEL_MIC_FORMAT", cfg.Capture.MicFormat)
	cfg.Capture.MicDevice = envOrDefault("RECORDPANEL_MIC_DEVICE", cfg.Capture.MicDevice)
	cfg.Capture.SystemAudioFormat = envOrDefault("RECORDPANEL_SYSTEM_AUDIO_FORMAT", cfg.Capture.SystemAudioFormat)
	cfg.Capture.SystemAudioDevice = envOrDefault("RECORDPANEL_SYSTEM_AUDIO_DEVICE", cfg.Capture.SystemAudioDevice)

	// Mime types contain commas and semicolons, so the list is split on "|".
	if raw := strings.TrimSpace(os.Getenv("RECORDPANEL_MIME_TYPES")); raw != "" {
		var types []string
		for _, value := range strings.Split(raw, "|") {
			if value = strings.TrimSpace(value); value != "" {
				types = append(types, value)
			}
		}
		if len(types) > 0 {
			cfg.Recorder.MimeTypes = types
		}
	}
	cfg.Recorder.FlushInterval = envOrDefaultMillis("RECORDPANEL_FLUSH_INTERVAL_MS", cfg.Recorder.FlushInterval)
	cfg.Recorder.StopGrace = envOrDefaultMillis("RECORDPANEL_STOP_GRACE_MS", cfg.Recorder.StopGrace)
	cfg.Recorder.StopTimeout = envOrDefaultMillis("RECORDPANEL_STOP_TIMEOUT_MS", cfg.Recorder.StopTimeout)
	cfg.Recorder.RestartDelay = envOrDefaultMillis("RECORDPANEL_RESTART_DELAY_MS", cfg.Recorder.RestartDelay)

	cfg.Panel.Theme = domain.Theme(envOrDefault("RECORDPANEL_THEME", string(cfg.Panel.Theme)))
	cfg.Panel.StopButtonText = envOrDefault("RECORDPANEL_STOP_BUTTON_TEXT", cfg.Panel.StopButtonText)

	cfg.Server.Addr = envOrDefault("RECORDPANEL_HTTP_ADDR", cfg.Server.Addr)
	cfg.Server.ArtifactLimit = envOrDefaultInt("RECORDPANEL_ARTIFACT_LIMIT", cfg.Server.ArtifactLimit)

	cfg.Log.Level = envOrDefault("RECORDPANEL_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = expandTilde(envOrDefault("RECORDPANEL_LOG_FILE", cfg.Log.File))
}

// normalize replaces out-of-range values with defaults.
func normalize(cfg *Config) {
	def := Default()
	if cfg.Capture.FrameRate <= 0 {
		cfg.Capture.FrameRate = def.Capture.FrameRate
	}
	if cfg.Capture.DisplayIndex < 0 {
		cfg.Capture.DisplayIndex = 0
	}
	if cfg.Recorder.FlushInterval < 10*time.Millisecond {
		cfg.Recorder.FlushInterval = def.Recorder.FlushInterval
	}
	if cfg.Recorder.StopGrace < 0 {
		cfg.Recorder.StopGrace = def.Recorder.StopGrace
	}
	if cfg.Recorder.StopTimeout <= 0 {
		cfg.Recorder.StopTimeout = def.Recorder.StopTimeout
	}
	if cfg.Recorder.RestartDelay < 0 {
		cfg.Recorder.RestartDelay = def.Recorder.RestartDelay
	}
	if !cfg.Panel.Theme.Valid() {
		cfg.Panel.Theme = def.Panel.Theme
	}
	if cfg.Server.ArtifactLimit < 0 {
		cfg.Server.ArtifactLimit = 0
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultMillis(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return millis(parsed)
}
