package config

import (
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "QUILLFLOW_"

// envKeyMap pins each supported environment variable to its config path, so
// snake_case field names survive the flat env namespace.
var envKeyMap = map[string]string{
	"SERVER_ADDR":          "server.addr",
	"SERVER_STEP_TIMEOUT":  "server.step_timeout",
	"DATABASE_DSN":         "database.dsn",
	"DATABASE_MAX_CONNS":   "database.max_conns",
	"LLM_PROVIDER":         "llm.provider",
	"LLM_MODEL":            "llm.model",
	"LLM_API_KEY":          "llm.api_key",
	"LLM_API_URL":          "llm.api_url",
	"LLM_RETRY_ATTEMPTS":   "llm.retry_attempts",
	"LOG_LEVEL":            "log.level",
	"LOG_JSON":             "log.json",
	"TOOLS_PUBMED_API_KEY": "tools.pubmed_api_key",
}

// Load assembles the configuration: defaults, merged with the YAML file at
// path (if non-empty), overridden by QUILLFLOW_ environment variables.
func Load(path string) (*Config, error) {
	base := Default()
	if path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(base, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging config file: %w", err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(base, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading config defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, envPrefix)
			if path, ok := envKeyMap[key]; ok {
				return path, value
			}
			return "", nil
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}
