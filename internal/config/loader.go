package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ATLASD_"

// Load loads configuration from an optional YAML file, then overrides with
// ATLASD_* environment variables, then applies defaults and validates.
//
// Environment variables map to config keys with underscores as separators:
//
//	ATLASD_SERVER_PORT       -> server.port
//	ATLASD_STORE_MAX_ROWS    -> store.max_rows
//	ATLASD_LLM_BASE_URL      -> llm.base_url
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", transformEnvKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// compound trailing segments that contain an underscore themselves
var compoundSuffixes = []string{
	"max_rows", "query_timeout", "score_threshold", "vector_size",
	"base_url", "api_key", "service_name",
}

// transformEnvKey maps ATLASD_SECTION_FIELD to section.field, keeping known
// compound field names intact.
func transformEnvKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, suffix := range compoundSuffixes {
		if strings.HasSuffix(s, "_"+suffix) {
			prefix := strings.TrimSuffix(s, "_"+suffix)
			return strings.ReplaceAll(prefix, "_", ".") + "." + suffix
		}
	}
	return strings.ReplaceAll(s, "_", ".")
}
