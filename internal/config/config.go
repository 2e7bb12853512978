// internal/config/config.go
package config

import (
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the full application configuration, one section per subsystem.
// It is populated once at startup from config.yaml plus SHOWREEL_* env
// overrides; there is no hot reload.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Recorder RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
	Encoder  EncoderConfig  `mapstructure:"encoder" yaml:"encoder"`
	TTS      TTSConfig      `mapstructure:"tts" yaml:"tts"`
	Humanize HumanizeConfig `mapstructure:"humanize" yaml:"humanize"`
}

// LoggerConfig controls the zap logger and optional rotated file output.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the terminal colors used per log level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls how the browser process is launched.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// RecorderConfig controls frame capture and output placement.
type RecorderConfig struct {
	OutputDir  string `mapstructure:"output_dir" yaml:"output_dir"`
	CaptureDir string `mapstructure:"capture_dir" yaml:"capture_dir"`
	FPS        int    `mapstructure:"fps" yaml:"fps"`
}

// EncoderConfig controls the external encoder invocation.
type EncoderConfig struct {
	FFmpegPath string `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
	// SlideshowFallback enables the still-image fallback when ffmpeg is
	// missing or returns a non-zero exit.
	SlideshowFallback bool `mapstructure:"slideshow_fallback" yaml:"slideshow_fallback"`
}

// TTSConfig selects and configures the narration provider.
type TTSConfig struct {
	// Provider is one of "none", "http", "command".
	Provider string `mapstructure:"provider" yaml:"provider"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// APIKey normally arrives via SHOWREEL_TTS_API_KEY.
	APIKey  string        `mapstructure:"api_key" yaml:"api_key"`
	Voice   string        `mapstructure:"voice" yaml:"voice"`
	Rate    float64       `mapstructure:"rate" yaml:"rate"`
	Pitch   float64       `mapstructure:"pitch" yaml:"pitch"`
	Command string        `mapstructure:"command" yaml:"command"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// HumanizeConfig tunes the interaction humanizer.
type HumanizeConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Seed pins the random source; 0 means time-seeded.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// SetDefaults fills every unset field with a workable value.
func (c *Config) SetDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "console"
	}
	if c.Logger.ServiceName == "" {
		c.Logger.ServiceName = "showreel"
	}
	if c.Logger.Colors == (ColorConfig{}) {
		c.Logger.Colors = ColorConfig{
			Debug: "cyan", Info: "green", Warn: "yellow", Error: "red", Fatal: "magenta",
		}
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = 1920
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = 1080
	}
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = 45 * time.Second
	}
	if c.Recorder.OutputDir == "" {
		c.Recorder.OutputDir = "output"
	}
	if c.Recorder.CaptureDir == "" {
		c.Recorder.CaptureDir = "capture"
	}
	if c.Recorder.FPS <= 0 {
		c.Recorder.FPS = 15
	}
	if c.Encoder.FFmpegPath == "" {
		c.Encoder.FFmpegPath = "ffmpeg"
	}
	if c.TTS.Provider == "" {
		c.TTS.Provider = "none"
	}
	if c.TTS.Voice == "" {
		c.TTS.Voice = "en-US-standard"
	}
	if c.TTS.Rate == 0 {
		c.TTS.Rate = 1.0
	}
	if c.TTS.Timeout <= 0 {
		c.TTS.Timeout = 30 * time.Second
	}
}

// Validate rejects configurations a run could not honor.
func (c *Config) Validate() error {
	switch c.TTS.Provider {
	case "none", "http", "command":
	default:
		return fmt.Errorf("tts.provider must be one of none, http, command (got %q)", c.TTS.Provider)
	}
	if c.TTS.Provider == "http" && c.TTS.Endpoint == "" {
		return fmt.Errorf("tts.provider \"http\" requires tts.endpoint")
	}
	if c.Recorder.FPS > 60 {
		return fmt.Errorf("recorder.fps %d exceeds the supported maximum of 60", c.Recorder.FPS)
	}
	return nil
}

// Load unmarshals the active viper state into a Config, expands home-relative
// paths, applies defaults, and validates.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.SetDefaults()

	for _, p := range []*string{&cfg.Recorder.OutputDir, &cfg.Recorder.CaptureDir, &cfg.Logger.LogFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return nil, fmt.Errorf("expanding path %q: %w", *p, err)
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
