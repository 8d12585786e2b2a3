// Package config provides configuration management for ecosketch.
//
// Settings live in ~/.ecosketch/settings.json keyed by the same names as the
// environment variables that override them. Environment always wins, so a
// supervisor can steer a deployment without touching the file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultWorkerPort is the HTTP port the worker listens on.
	DefaultWorkerPort = 37640
	// DefaultStore is the session store backend.
	DefaultStore = "memory"
	// DefaultOpenAIModel is the chat model used for describe/refine rewrites.
	DefaultOpenAIModel = "gpt-4o"
	// DefaultRetryCooldownSeconds is the wait before retrying a loading model.
	DefaultRetryCooldownSeconds = 20
	// DefaultMinRefineLength is the shortest acceptable remote rewrite.
	DefaultMinRefineLength = 80
)

// Config holds all runtime settings.
type Config struct {
	WorkerPort           int    `json:"ECOSKETCH_PORT"`
	Store                string `json:"ECOSKETCH_STORE"`
	DBPath               string `json:"ECOSKETCH_DB_PATH"`
	OpenAIAPIKey         string `json:"OPENAI_API_KEY"`
	OpenAIModel          string `json:"OPENAI_MODEL"`
	HuggingFaceAPIKey    string `json:"HUGGINGFACE_API_KEY"`
	RetryCooldownSeconds int    `json:"ECOSKETCH_RETRY_COOLDOWN_SECONDS"`
	MinRefineLength      int    `json:"ECOSKETCH_MIN_REFINE_LENGTH"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		WorkerPort:           DefaultWorkerPort,
		Store:                DefaultStore,
		DBPath:               DBPath(),
		OpenAIModel:          DefaultOpenAIModel,
		RetryCooldownSeconds: DefaultRetryCooldownSeconds,
		MinRefineLength:      DefaultMinRefineLength,
	}
}

// DataDir returns the ecosketch data directory (~/.ecosketch).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".ecosketch")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// DBPath returns the default sqlite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "ecosketch.db")
}

// ProvidersPath returns the image provider chain file path.
func ProvidersPath() string {
	return filepath.Join(DataDir(), "providers.yaml")
}

// Load reads settings.json and applies environment overrides. A missing or
// malformed file yields defaults; Load never fails on bad user input.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err == nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			log.Warn().Err(jsonErr).Str("path", SettingsPath()).Msg("invalid settings file, using defaults")
			cfg = Default()
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v := envInt("ECOSKETCH_PORT"); v > 0 {
		cfg.WorkerPort = v
	}
	if v := os.Getenv("ECOSKETCH_STORE"); v != "" {
		cfg.Store = v
	}
	if v := os.Getenv("ECOSKETCH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv("HUGGINGFACE_API_KEY"); v != "" {
		cfg.HuggingFaceAPIKey = v
	}
	if v := envInt("ECOSKETCH_RETRY_COOLDOWN_SECONDS"); v > 0 {
		cfg.RetryCooldownSeconds = v
	}
	if v := envInt("ECOSKETCH_MIN_REFINE_LENGTH"); v > 0 {
		cfg.MinRefineLength = v
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring non-numeric environment override")
		return 0
	}
	return n
}

var (
	cached   *Config
	cachedMu sync.Mutex
)

// Get returns the cached configuration, loading it on first use.
func Get() *Config {
	cachedMu.Lock()
	defer cachedMu.Unlock()
	if cached == nil {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		cached = cfg
	}
	return cached
}

// Reset clears the cached configuration. Intended for tests.
func Reset() {
	cachedMu.Lock()
	cached = nil
	cachedMu.Unlock()
}

// GetWorkerPort returns the worker port, preferring the environment.
func GetWorkerPort() int {
	if v := envInt("ECOSKETCH_PORT"); v > 0 {
		return v
	}
	return Get().WorkerPort
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll initializes the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}
