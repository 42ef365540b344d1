// Package config handles emapet configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	orchestration "github.com/koscakluka/ema-pet/core"
	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order: ./emapet.yaml,
// ~/.config/emapet/config.yaml, /etc/emapet/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"emapet.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "emapet", "config.yaml"))
	}

	paths = append(paths, "/etc/emapet/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise the first existing DefaultSearchPaths entry is returned, or ""
// when there is none; running on defaults is allowed.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Config holds all emapet configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
	Companion CompanionConfig `yaml:"companion"`
	Inference InferenceConfig `yaml:"inference"`
	Speech    SpeechConfig    `yaml:"speech"`
	History   HistoryConfig   `yaml:"history"`
	Ambient   AmbientConfig   `yaml:"ambient"`
	Relay     RelayConfig     `yaml:"relay"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// CompanionConfig holds the conversation behaviour. HandsFree and Playback
// are applied live when the file changes.
type CompanionConfig struct {
	HandsFree           bool                        `yaml:"hands_free"`
	Playback            bool                        `yaml:"playback"`
	ContextWindow       int                         `yaml:"context_window"`
	AutoResumeDelay     time.Duration               `yaml:"auto_resume_delay"`
	StartupCaptureDelay time.Duration               `yaml:"startup_capture_delay"`
	Status              orchestration.StatusPhrases `yaml:"status"`
}

// InferenceConfig selects the backend that answers prompts.
type InferenceConfig struct {
	// Provider is one of relay, groq, openai or claude.
	Provider     string        `yaml:"provider"`
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

type SpeechConfig struct {
	// Enabled turns off both speech input and output when false.
	Enabled         bool          `yaml:"enabled"`
	DeepgramAPIKey  string        `yaml:"deepgram_api_key"`
	Voice           string        `yaml:"voice"`
	Language        string        `yaml:"language"`
	NoSpeechTimeout time.Duration `yaml:"no_speech_timeout"`
	// AudioBackend is miniaudio or portaudio.
	AudioBackend string `yaml:"audio_backend"`
}

type HistoryConfig struct {
	// Medium is memory, file or sqlite.
	Medium string `yaml:"medium"`
	Key    string `yaml:"key"`
}

type AmbientConfig struct {
	Enabled            bool          `yaml:"enabled"`
	DecorationCapacity int           `yaml:"decoration_capacity"`
	DecorationMin      time.Duration `yaml:"decoration_min"`
	DecorationMax      time.Duration `yaml:"decoration_max"`
	RemarkMin          time.Duration `yaml:"remark_min"`
	RemarkMax          time.Duration `yaml:"remark_max"`
	Topics             []string      `yaml:"topics"`
}

// RelayConfig configures the relay server that answers /ask and
// /monologue with the claude CLI.
type RelayConfig struct {
	Address      string        `yaml:"address"`
	Port         int           `yaml:"port"`
	Binary       string        `yaml:"binary"`
	Model        string        `yaml:"model"`
	Effort       string        `yaml:"effort"`
	SystemPrompt string        `yaml:"system_prompt"`
	AllowedTools []string      `yaml:"allowed_tools"`
	Timeout      time.Duration `yaml:"timeout"`
}

// MQTTConfig configures the optional Home Assistant publisher. It is
// disabled when Broker is empty.
type MQTTConfig struct {
	Broker          string `yaml:"broker"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	DeviceName      string `yaml:"device_name"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	dataDir := ".emapet"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "emapet")
	}

	return &Config{
		DataDir:  dataDir,
		LogLevel: "info",
		Companion: CompanionConfig{
			Playback:            true,
			ContextWindow:       orchestration.DefaultContextWindow,
			AutoResumeDelay:     orchestration.DefaultAutoResumeDelay,
			StartupCaptureDelay: orchestration.DefaultStartupCaptureDelay,
			Status:              orchestration.DefaultStatusPhrases(),
		},
		Inference: InferenceConfig{
			Provider: "relay",
			URL:      "http://127.0.0.1:8765",
			Timeout:  60 * time.Second,
		},
		Speech: SpeechConfig{
			Enabled:         true,
			Voice:           "aura-2-asteria-en",
			Language:        "en-US",
			NoSpeechTimeout: 8 * time.Second,
			AudioBackend:    "miniaudio",
		},
		History: HistoryConfig{
			Medium: "sqlite",
			Key:    "emapet.history",
		},
		Ambient: AmbientConfig{
			Enabled:            true,
			DecorationCapacity: 3,
			DecorationMin:      30 * time.Second,
			DecorationMax:      90 * time.Second,
			RemarkMin:          120 * time.Second,
			RemarkMax:          240 * time.Second,
		},
		Relay: RelayConfig{
			Address: "127.0.0.1",
			Port:    8765,
			Binary:  "claude",
			Timeout: 120 * time.Second,
		},
		MQTT: MQTTConfig{
			DeviceName:      "emapet",
			DiscoveryPrefix: "homeassistant",
		},
	}
}

// Load reads configuration from a YAML file on top of Default. ${VAR}
// references are expanded from the environment before parsing. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	switch c.Inference.Provider {
	case "relay", "claude":
	case "groq", "openai":
		if c.Inference.APIKey == "" {
			return fmt.Errorf("inference.api_key is required for provider %q", c.Inference.Provider)
		}
	default:
		return fmt.Errorf("unknown inference.provider %q (valid: relay, groq, openai, claude)", c.Inference.Provider)
	}

	switch c.History.Medium {
	case "memory", "file", "sqlite":
	default:
		return fmt.Errorf("unknown history.medium %q (valid: memory, file, sqlite)", c.History.Medium)
	}

	switch c.Speech.AudioBackend {
	case "miniaudio", "portaudio":
	default:
		return fmt.Errorf("unknown speech.audio_backend %q (valid: miniaudio, portaudio)", c.Speech.AudioBackend)
	}

	if c.Ambient.DecorationMin > c.Ambient.DecorationMax {
		return fmt.Errorf("ambient.decoration_min exceeds ambient.decoration_max")
	}
	if c.Ambient.RemarkMin > c.Ambient.RemarkMax {
		return fmt.Errorf("ambient.remark_min exceeds ambient.remark_max")
	}
	if c.Companion.ContextWindow < 0 {
		return fmt.Errorf("companion.context_window must not be negative")
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// RelayAddr is the listen address of the relay server.
func (c *Config) RelayAddr() string {
	return fmt.Sprintf("%s:%d", c.Relay.Address, c.Relay.Port)
}
