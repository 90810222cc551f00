// Package config loads the daemon configuration from YAML files with
// environment overrides.
//
// Configuration is layered: built-in defaults, then config.yaml, then an
// optional secure_config.yaml holding credentials, then JARVIS_* environment
// variables. Later layers win. The secure file is never required so the base
// file can be committed without secrets.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// AssistantConfig describes the assistant persona and wake behavior.
type AssistantConfig struct {
	// Name is the assistant's spoken name and the registered agent name.
	Name string `yaml:"name"`

	// UserName is how the assistant addresses the user.
	UserName string `yaml:"user_name"`

	// Language is the BCP 47 tag used for speech front ends.
	Language string `yaml:"language"`

	// WakeWord gates dispatches when non-empty.
	WakeWord string `yaml:"wake_word"`

	// AwakeTurns is how many follow-up turns stay open after the wake word.
	AwakeTurns int `yaml:"awake_turns"`

	// MusicDir is the directory scanned by the play-music command.
	MusicDir string `yaml:"music_dir"`
}

// ModelConfig selects and parameterizes the language model.
type ModelConfig struct {
	// Provider is one of "openai", "anthropic" or "mock".
	Provider string `yaml:"provider"`

	// Name is the provider-specific model identifier. Empty uses the
	// provider default.
	Name string `yaml:"name"`

	// APIKey belongs in secure_config.yaml or JARVIS_API_KEY, not the
	// base file.
	APIKey string `yaml:"api_key"`

	// MaxCalls bounds model invocations per dispatch. Zero means unlimited.
	MaxCalls int `yaml:"max_calls"`
}

// StoreConfig selects the persistence backends. Empty values fall back to
// in-memory stores.
type StoreConfig struct {
	// SessionDSN is the SQLite path for session history.
	SessionDSN string `yaml:"session_dsn"`

	// MemoryFile is the JSON file backing long-term memory.
	MemoryFile string `yaml:"memory_file"`

	// ArtifactDir is the directory backing artifact storage.
	ArtifactDir string `yaml:"artifact_dir"`
}

// GatewayConfig configures the websocket gateway.
type GatewayConfig struct {
	// Addr is the listen address, e.g. ":8765". Empty disables the gateway.
	Addr string `yaml:"addr"`
}

// IPCConfig configures the local control socket.
type IPCConfig struct {
	// Socket is the unix socket path. Empty disables the control server.
	Socket string `yaml:"socket"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is one of console, text or json.
	Format string `yaml:"format"`
}

// Config is the full daemon configuration.
type Config struct {
	Assistant AssistantConfig `yaml:"assistant"`
	Model     ModelConfig     `yaml:"model"`
	Stores    StoreConfig     `yaml:"stores"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	IPC       IPCConfig       `yaml:"ipc"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns the built-in configuration. It runs fully in memory with
// a mock model so the daemon starts without any files present.
func Default() *Config {
	return &Config{
		Assistant: AssistantConfig{
			Name:       "jarvis",
			UserName:   "sir",
			Language:   "en-US",
			WakeWord:   "jarvis",
			AwakeTurns: 3,
		},
		Model: ModelConfig{
			Provider: "mock",
			MaxCalls: 5,
		},
		Gateway: GatewayConfig{Addr: ":8765"},
		IPC:     IPCConfig{Socket: "/tmp/jarvisd.sock"},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the base file, overlays the secure file when present, applies
// JARVIS_* environment overrides and validates the result. An empty path
// skips that layer; a missing base file is an error while a missing secure
// file is not.
func Load(path, securePath string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := mergeFile(cfg, path, true); err != nil {
			return nil, err
		}
	}
	if securePath != "" {
		if err := mergeFile(cfg, securePath, false); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile unmarshals the file over cfg. YAML only touches keys present in
// the document, so absent keys keep their earlier values.
func mergeFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// envOverrides maps JARVIS_* variables to config fields.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("JARVIS_NAME", &cfg.Assistant.Name)
	setString("JARVIS_USER_NAME", &cfg.Assistant.UserName)
	setString("JARVIS_LANGUAGE", &cfg.Assistant.Language)
	setString("JARVIS_WAKE_WORD", &cfg.Assistant.WakeWord)
	setInt("JARVIS_AWAKE_TURNS", &cfg.Assistant.AwakeTurns)
	setString("JARVIS_MUSIC_DIR", &cfg.Assistant.MusicDir)

	setString("JARVIS_MODEL_PROVIDER", &cfg.Model.Provider)
	setString("JARVIS_MODEL_NAME", &cfg.Model.Name)
	setString("JARVIS_API_KEY", &cfg.Model.APIKey)
	setInt("JARVIS_MAX_MODEL_CALLS", &cfg.Model.MaxCalls)

	setString("JARVIS_SESSION_DSN", &cfg.Stores.SessionDSN)
	setString("JARVIS_MEMORY_FILE", &cfg.Stores.MemoryFile)
	setString("JARVIS_ARTIFACT_DIR", &cfg.Stores.ArtifactDir)

	setString("JARVIS_GATEWAY_ADDR", &cfg.Gateway.Addr)
	setString("JARVIS_IPC_SOCKET", &cfg.IPC.Socket)

	setString("JARVIS_LOG_LEVEL", &cfg.Log.Level)
	setString("JARVIS_LOG_FORMAT", &cfg.Log.Format)
}

var validProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"mock":      true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"console": true,
	"text":    true,
	"json":    true,
}

// Validate checks the configuration for values the daemon cannot start with.
func (c *Config) Validate() error {
	if c.Assistant.Name == "" {
		return fmt.Errorf("assistant.name must not be empty")
	}
	if c.Assistant.AwakeTurns < 0 {
		return fmt.Errorf("assistant.awake_turns must not be negative, got %d", c.Assistant.AwakeTurns)
	}
	if !validProviders[c.Model.Provider] {
		return fmt.Errorf("model.provider must be one of openai, anthropic or mock, got %q", c.Model.Provider)
	}
	if c.Model.Provider != "mock" && c.Model.APIKey == "" {
		return fmt.Errorf("model.api_key is required for provider %q", c.Model.Provider)
	}
	if c.Model.MaxCalls < 0 {
		return fmt.Errorf("model.max_calls must not be negative, got %d", c.Model.MaxCalls)
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of debug, info, warn or error, got %q", c.Log.Level)
	}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("log.format must be one of console, text or json, got %q", c.Log.Format)
	}
	return nil
}
