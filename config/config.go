package config

import (
	"fmt"
	"time"

	"github.com/kbukum/voicecap/audio/decode"
	"github.com/kbukum/voicecap/capture"
	"github.com/kbukum/voicecap/capture/ffmpeg"
	"github.com/kbukum/voicecap/logger"
	"github.com/kbukum/voicecap/observability"
	"github.com/kbukum/voicecap/redis"
	"github.com/kbukum/voicecap/remote"
	"github.com/kbukum/voicecap/schedule"
	"github.com/kbukum/voicecap/script"
	"github.com/kbukum/voicecap/server"
	"github.com/kbukum/voicecap/validation"
)

// Ledger backends.
const (
	LedgerMemory = "memory"
	LedgerRedis  = "redis"
)

// Config is the complete agent configuration.
type Config struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`

	Logging  logger.Config              `mapstructure:"logging"`
	API      remote.Config              `mapstructure:"api"`
	Capture  CaptureConfig              `mapstructure:"capture"`
	Script   ScriptConfig               `mapstructure:"script"`
	Schedule ScheduleConfig             `mapstructure:"schedule"`
	Redis    redis.Config               `mapstructure:"redis"`
	Server   server.Config              `mapstructure:"server"`
	Metrics  observability.MeterConfig  `mapstructure:"metrics"`
	Tracing  observability.TracerConfig `mapstructure:"tracing"`
}

// CaptureConfig configures the microphone, the controller and the decoder.
type CaptureConfig struct {
	MaxDuration      time.Duration `mapstructure:"max_duration" validate:"gt=0,lte=300s"`
	SampleRate       int           `mapstructure:"sample_rate" validate:"oneof=8000 16000 22050 44100 48000"`
	Channels         int           `mapstructure:"channels" validate:"oneof=1 2"`
	FragmentInterval time.Duration `mapstructure:"fragment_interval" validate:"gt=0,lte=3s"`
	DrainTimeout     time.Duration `mapstructure:"drain_timeout" validate:"gt=0"`
	DecodeTimeout    time.Duration `mapstructure:"decode_timeout" validate:"gt=0"`
	FFmpegBinary     string        `mapstructure:"ffmpeg_binary" validate:"required"`
	InputFormat      string        `mapstructure:"input_format"`
	InputDevice      string        `mapstructure:"input_device"`
}

// ScriptConfig configures the guided enrollment checklist.
type ScriptConfig struct {
	Mode         string        `mapstructure:"mode" validate:"oneof=ack time"`
	LineDuration time.Duration `mapstructure:"line_duration" validate:"gt=0"`
	// File holds one script line per row. Empty uses the built-in script.
	File string `mapstructure:"file"`
}

// ScheduleConfig configures the trigger engine.
type ScheduleConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval" validate:"gte=1s,lte=60s"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval" validate:"gte=0"`
	Hold             time.Duration `mapstructure:"hold" validate:"gt=0"`
	FirstWindowDelay time.Duration `mapstructure:"first_window_delay" validate:"gt=0"`
	SecondWindowGap  time.Duration `mapstructure:"second_window_gap" validate:"gt=0"`
	CallTimeout      time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
	Ledger           string        `mapstructure:"ledger" validate:"oneof=memory redis"`
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "voicecap"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Logging.ApplyDefaults()
	c.API.ApplyDefaults()
	c.Capture.ApplyDefaults()
	c.Script.ApplyDefaults()
	c.Schedule.ApplyDefaults()
	if c.Schedule.Ledger == LedgerRedis {
		c.Redis.Enabled = true
	}
	c.Redis.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = c.Name
	}
	if c.Metrics.Environment == "" {
		c.Metrics.Environment = c.Environment
	}
	c.Metrics.ApplyDefaults()
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = c.Name
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = c.Environment
	}
	c.Tracing.ApplyDefaults()
}

// Validate checks struct tags, then the sections with their own rules.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if c.Redis.Enabled {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// ApplyDefaults fills unset capture fields.
func (c *CaptureConfig) ApplyDefaults() {
	d := capture.DefaultConstraints()
	if c.MaxDuration <= 0 {
		c.MaxDuration = capture.GuidedCeiling
	}
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.Channels <= 0 {
		c.Channels = d.Channels
	}
	if c.FragmentInterval <= 0 {
		c.FragmentInterval = d.FragmentInterval
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = capture.DefaultDrainTimeout
	}
	if c.DecodeTimeout <= 0 {
		c.DecodeTimeout = 30 * time.Second
	}
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
}

// Constraints returns the microphone constraints.
func (c CaptureConfig) Constraints() capture.Constraints {
	k := capture.DefaultConstraints()
	k.SampleRate = c.SampleRate
	k.Channels = c.Channels
	k.FragmentInterval = c.FragmentInterval
	return k
}

// Microphone returns the ffmpeg microphone configuration.
func (c CaptureConfig) Microphone() ffmpeg.Config {
	cfg := ffmpeg.Config{Binary: c.FFmpegBinary, InputFormat: c.InputFormat, InputDevice: c.InputDevice}
	cfg.ApplyDefaults()
	return cfg
}

// Decoder returns the ffmpeg decoder configuration.
func (c CaptureConfig) Decoder() decode.FFmpegConfig {
	return decode.FFmpegConfig{
		Binary:     c.FFmpegBinary,
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		Timeout:    c.DecodeTimeout,
	}
}

// ApplyDefaults fills unset script fields.
func (c *ScriptConfig) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = script.AckDriven.String()
	}
	if c.LineDuration <= 0 {
		c.LineDuration = script.DefaultLineDuration
	}
}

// TrackerOptions returns the tracker options for the configured mode.
func (c ScriptConfig) TrackerOptions() ([]script.Option, error) {
	mode, err := script.ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	if mode == script.TimeDriven {
		return []script.Option{script.WithLineDuration(c.LineDuration)}, nil
	}
	return []script.Option{script.WithMode(mode)}, nil
}

// ApplyDefaults fills unset schedule fields. RefreshInterval stays zero,
// which refreshes on every tick.
func (c *ScheduleConfig) ApplyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = schedule.DefaultPollInterval
	}
	if c.Hold <= 0 {
		c.Hold = schedule.DefaultHold
	}
	if c.FirstWindowDelay <= 0 {
		c.FirstWindowDelay = schedule.DefaultFirstDelay
	}
	if c.SecondWindowGap <= 0 {
		c.SecondWindowGap = schedule.DefaultSecondGap
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = schedule.DefaultCallTimeout
	}
	if c.Ledger == "" {
		c.Ledger = LedgerMemory
	}
}

// EngineOptions returns the engine options for the configured timings. The
// ledger, logger and metrics are wired by the caller.
func (c ScheduleConfig) EngineOptions() []schedule.Option {
	return []schedule.Option{
		schedule.WithPollInterval(c.PollInterval),
		schedule.WithRefreshInterval(c.RefreshInterval),
		schedule.WithHold(c.Hold),
		schedule.WithWindowOffsets(c.FirstWindowDelay, c.SecondWindowGap),
		schedule.WithCallTimeout(c.CallTimeout),
	}
}
