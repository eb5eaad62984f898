// Package config loads the chat server settings from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/paranroman/bisimo/internal/llm/mistral"
)

// Providers understood by the chat server.
const (
	ProviderMistral = "mistral"
	ProviderGemini  = "gemini"
)

// Environment variables that override the file.
const (
	EnvProvider       = "LLM_PROVIDER"
	EnvModel          = "LLM_MODEL"
	EnvMistralKey     = "MISTRAL_API_KEY"
	EnvMistralBaseURL = "MISTRAL_BASE_URL"
	EnvMistralHosts   = "MISTRAL_ALLOWED_HOSTS"
	EnvGeminiKey      = "GEMINI_API_KEY"
	EnvClassifierURL  = "CLASSIFIER_URL"
	EnvAddr           = "BISIMO_ADDR"
	EnvStaticDir      = "BISIMO_STATIC_DIR"
)

// Server is the chat server configuration.
type Server struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`

	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	MistralKey          string   `yaml:"mistral_key"`
	MistralBaseURL      string   `yaml:"mistral_base_url"`
	MistralAllowedHosts []string `yaml:"mistral_allowed_hosts"`
	GeminiKey           string   `yaml:"gemini_key"`

	// ClassifierURL points at the emotion model server. Empty disables it
	// and emotions come from keywords only.
	ClassifierURL     string        `yaml:"classifier_url"`
	ClassifierTimeout time.Duration `yaml:"classifier_timeout"`

	// SessionIdle drops conversations untouched for this long. Zero keeps
	// them until reset.
	SessionIdle time.Duration `yaml:"session_idle"`
}

// Default returns the built-in settings.
func Default() Server {
	return Server{
		Addr:              ":5000",
		Provider:          ProviderMistral,
		ClassifierTimeout: 10 * time.Second,
		SessionIdle:       time.Hour,
	}
}

// Load reads path (when non-empty) over the defaults and then applies
// environment overrides.
func Load(path string) (Server, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Server) applyEnv() {
	c.Provider = strings.ToLower(getenvDefault(EnvProvider, c.Provider))
	c.Model = getenvDefault(EnvModel, c.Model)
	c.MistralKey = getenvDefault(EnvMistralKey, c.MistralKey)
	c.MistralBaseURL = getenvDefault(EnvMistralBaseURL, c.MistralBaseURL)
	c.GeminiKey = getenvDefault(EnvGeminiKey, c.GeminiKey)
	c.ClassifierURL = getenvDefault(EnvClassifierURL, c.ClassifierURL)
	c.Addr = getenvDefault(EnvAddr, c.Addr)
	c.StaticDir = getenvDefault(EnvStaticDir, c.StaticDir)
	if hosts := os.Getenv(EnvMistralHosts); hosts != "" {
		c.MistralAllowedHosts = strings.Split(hosts, ",")
	}
}

// Validate checks that the selected provider is usable.
func (c Server) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	switch c.Provider {
	case ProviderMistral:
		if c.MistralKey == "" {
			return fmt.Errorf("%s is required (set it in .env)", EnvMistralKey)
		}
		if err := mistral.ValidateBaseURL(c.MistralBaseURL, c.MistralAllowedHosts); err != nil {
			return err
		}
	case ProviderGemini:
		if c.GeminiKey == "" {
			return fmt.Errorf("%s is required (set it in .env)", EnvGeminiKey)
		}
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderMistral, ProviderGemini)
	}
	if c.ClassifierTimeout < 0 || c.SessionIdle < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
