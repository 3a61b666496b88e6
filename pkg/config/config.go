package config

import (
	"time"

	"github.com/quillflow/quillflow/engine/infra/store"
	"github.com/quillflow/quillflow/engine/llm"
)

// Config is the full service configuration. Precedence: defaults, then the
// optional YAML file, then QUILLFLOW_-prefixed environment variables.
type Config struct {
	Server   ServerConfig         `json:"server"   yaml:"server"   koanf:"server"`
	Database store.PostgresConfig `json:"database" yaml:"database" koanf:"database"`
	LLM      llm.Config           `json:"llm"      yaml:"llm"      koanf:"llm"`
	Log      LogConfig            `json:"log"      yaml:"log"      koanf:"log"`
	Tools    ToolsConfig          `json:"tools"    yaml:"tools"    koanf:"tools"`
}

type ServerConfig struct {
	Addr        string        `json:"addr"         yaml:"addr"         koanf:"addr"         validate:"required"`
	StepTimeout time.Duration `json:"step_timeout" yaml:"step_timeout" koanf:"step_timeout"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `json:"json"  yaml:"json"  koanf:"json"`
}

type ToolsConfig struct {
	PubMedAPIKey string `json:"pubmed_api_key,omitempty" yaml:"pubmed_api_key,omitempty" koanf:"pubmed_api_key"`
}

// Default returns the baseline configuration every load starts from.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			StepTimeout: 2 * time.Minute,
		},
		LLM: llm.Config{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
