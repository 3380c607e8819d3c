// Package config provides the configuration structure for the narration-service.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Default values.
const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultAPIKeyEnv      = "OPENAI_API_KEY"
	DefaultClassifyModel  = "gpt-4o"
	DefaultExplainModel   = "gpt-4o"
	DefaultSpeechModel    = "tts-1"
	DefaultTimeoutSeconds = 120
	DefaultVoice          = "alloy"
	DefaultMaxInputChars  = 6000
	DefaultAudioOutputDir = "audio_output"
	DefaultListenAddr     = ":8080"
	DefaultMaxSessions    = 10000
	DefaultSessionIdleMin = 60
	DefaultNarrationSubj  = "narration.requested"
	DefaultAudioBucket    = "NARRATION_AUDIO"
)

// Voice modes.
const (
	VoiceModeAuto  = "auto"
	VoiceModeFixed = "fixed"
)

// Static errors.
var (
	ErrAPIKeyMissing       = errors.New("api key environment variable is not set")
	ErrInvalidTimeout      = errors.New("timeout_seconds must be positive")
	ErrInvalidRate         = errors.New("requests_per_second must not be negative")
	ErrInvalidVoiceMode    = errors.New("voice mode must be \"auto\" or \"fixed\"")
	ErrInvalidMaxInput     = errors.New("max_input_chars must be positive")
	ErrSpeechModelEmpty    = errors.New("speech model cannot be empty")
	ErrAudioOutputDirEmpty = errors.New("audio output directory cannot be empty")
	ErrInvalidSessionLimit = errors.New("max_sessions and session_idle_minutes must be positive")
)

// OpenAIConfig holds the settings of the remote model API.
type OpenAIConfig struct {
	BaseURL           string  `toml:"base_url"`
	APIKeyEnv         string  `toml:"api_key_env"`
	ClassifyModel     string  `toml:"classify_model"`
	ExplainModel      string  `toml:"explain_model"`
	SpeechModel       string  `toml:"speech_model"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Timeout returns the per-request timeout.
func (c OpenAIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// VoiceConfig selects how voices are chosen when the caller names none.
type VoiceConfig struct {
	// Mode is "auto" to ask the chat model or "fixed" to use Default.
	Mode    string `toml:"mode"`
	Default string `toml:"default"`
}

// ExplainConfig holds the explanation settings.
type ExplainConfig struct {
	MaxInputChars int `toml:"max_input_chars"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir    string `toml:"base_logs_dir"`
	AudioOutputDir string `toml:"audio_output_dir"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	ListenAddr         string `toml:"listen_addr"`
	MaxSessions        int    `toml:"max_sessions"`
	SessionIdleMinutes int    `toml:"session_idle_minutes"`
}

// SessionIdleTTL returns how long an unused session is kept.
func (c ServerConfig) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// NATSConfig holds the configuration for NATS. An empty URL disables the worker.
type NATSConfig struct {
	URL                    string `toml:"url"`
	NarrationSubject       string `toml:"narration_subject"`
	AudioObjectStoreBucket string `toml:"audio_object_store_bucket"`
}

// Config is the root configuration structure.
type Config struct {
	OpenAI  OpenAIConfig  `toml:"openai"`
	Voice   VoiceConfig   `toml:"voice"`
	Explain ExplainConfig `toml:"explain"`
	Paths   PathsConfig   `toml:"paths"`
	Server  ServerConfig  `toml:"server"`
	NATS    NATSConfig    `toml:"nats"`
}

// Load loads the configuration for the narration-service, fills defaults and
// validates it.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills every unset value with its default.
func (c *Config) ApplyDefaults() {
	setDefault(&c.OpenAI.BaseURL, DefaultBaseURL)
	setDefault(&c.OpenAI.APIKeyEnv, DefaultAPIKeyEnv)
	setDefault(&c.OpenAI.ClassifyModel, DefaultClassifyModel)
	setDefault(&c.OpenAI.ExplainModel, DefaultExplainModel)
	setDefault(&c.OpenAI.SpeechModel, DefaultSpeechModel)
	setDefault(&c.Voice.Mode, VoiceModeAuto)
	setDefault(&c.Voice.Default, DefaultVoice)
	setDefault(&c.Paths.BaseLogsDir, os.TempDir())
	setDefault(&c.Paths.AudioOutputDir, DefaultAudioOutputDir)
	setDefault(&c.Server.ListenAddr, DefaultListenAddr)
	setDefault(&c.NATS.NarrationSubject, DefaultNarrationSubj)
	setDefault(&c.NATS.AudioObjectStoreBucket, DefaultAudioBucket)

	if c.OpenAI.TimeoutSeconds == 0 {
		c.OpenAI.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.Explain.MaxInputChars == 0 {
		c.Explain.MaxInputChars = DefaultMaxInputChars
	}

	if c.Server.MaxSessions == 0 {
		c.Server.MaxSessions = DefaultMaxSessions
	}

	if c.Server.SessionIdleMinutes == 0 {
		c.Server.SessionIdleMinutes = DefaultSessionIdleMin
	}
}

// Validate checks values that defaults cannot repair. The default voice is
// checked by the caller against the allowed voice set.
func (c *Config) Validate() error {
	if c.OpenAI.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTimeout, c.OpenAI.TimeoutSeconds)
	}

	if c.OpenAI.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: got %f", ErrInvalidRate, c.OpenAI.RequestsPerSecond)
	}

	if c.OpenAI.SpeechModel == "" {
		return ErrSpeechModelEmpty
	}

	if c.Voice.Mode != VoiceModeAuto && c.Voice.Mode != VoiceModeFixed {
		return fmt.Errorf("%w: got %q", ErrInvalidVoiceMode, c.Voice.Mode)
	}

	if c.Explain.MaxInputChars <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxInput, c.Explain.MaxInputChars)
	}

	if c.Paths.AudioOutputDir == "" {
		return ErrAudioOutputDirEmpty
	}

	if c.Server.MaxSessions <= 0 || c.Server.SessionIdleMinutes <= 0 {
		return fmt.Errorf("%w: got %d sessions, %d minutes",
			ErrInvalidSessionLimit, c.Server.MaxSessions, c.Server.SessionIdleMinutes)
	}

	return nil
}

// APIKey reads the API key from the configured environment variable.
func (c *Config) APIKey() (string, error) {
	key := os.Getenv(c.OpenAI.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%w: %s", ErrAPIKeyMissing, c.OpenAI.APIKeyEnv)
	}

	return key, nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
