package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	LLM     LLMConfig
	Ollama  OllamaConfig
	OpenAI  OpenAIConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir    string
	PromptsDir string
}

type LLMConfig struct {
	Provider     string
	DefaultModel string
	Timeout      string
}

// TimeoutDuration parses Timeout; zero means no client-side limit.
func (c LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

type OllamaConfig struct {
	BaseURL string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 3000,
		},
		Storage: StorageConfig{
			DataDir:    "data",
			PromptsDir: "prompts",
		},
		LLM: LLMConfig{
			Provider:     "ollama",
			DefaultModel: "llama3.1",
			Timeout:      "0s",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the TOML file at
// $XDG_CONFIG_HOME/qalobby/config.toml, a .env file in the working directory,
// environment variables, and the platform secret store. The OpenAI key falls
// back to the Keychain on macOS and to $XDG_DATA_HOME/qalobby/secrets.toml
// elsewhere.
//
// Variables from .env never override variables already set in the process.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		warnf("could not load .env: %v", err)
	}
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

const (
	keychainService       = "qalobby"
	keychainOpenAIAccount = "openai_api_key"
)

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.OpenAI.APIKey == "" {
		if key, err := kc.Get(keychainService, keychainOpenAIAccount); err == nil && key != "" {
			cfg.OpenAI.APIKey = key
		}
	}

	cfg.LLM.Provider = normalizeProvider(cfg.LLM.Provider)
	cfg.OpenAI.BaseURL = strings.TrimRight(cfg.OpenAI.BaseURL, "/")
	return cfg, nil
}

// loadFromPath loads from a TOML file at path instead of the platform backend.
func loadFromPath(path string, kc keychain) (Config, error) {
	return loadWith(newFileBackend(path), kc)
}

func normalizeProvider(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), "openai") {
		return "openai"
	}
	return "ollama"
}

// MissingKeyHint explains where the OpenAI key can be supplied.
func MissingKeyHint() string {
	return "OpenAI API key is not set. Set OPENAI_API_KEY (environment or .env)" + apiKeyHint()
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
