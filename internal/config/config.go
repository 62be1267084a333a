// Package config provides configuration loading for atlasd.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (ATLASD_SERVER_PORT, ATLASD_STORE_PATH, ...)
//  2. YAML config file
//  3. Hardcoded defaults
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the atlasd process.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Store     StoreConfig     `koanf:"store"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	LLM       LLMConfig       `koanf:"llm"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// LoggingConfig mirrors logging.Config; kept here so the whole file
// unmarshals in one pass.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// StoreConfig holds the read-only occupancy database settings.
type StoreConfig struct {
	// Path is the sqlite database file with the pre-materialized
	// occupancy views. Opened read-only; atlasd never writes to it.
	Path string `koanf:"path"`

	// MaxRows caps every result set. The validator injects this as a
	// LIMIT when a statement has none, and the gateway enforces it again
	// while scanning rows.
	MaxRows int `koanf:"max_rows"`

	// QueryTimeout bounds a single statement's execution.
	QueryTimeout Duration `koanf:"query_timeout"`
}

// RetrievalConfig selects and configures the vector store backend.
type RetrievalConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant" (remote gRPC).
	Provider string `koanf:"provider"`

	// K is the default passage count per retrieval.
	K int `koanf:"k"`

	// ScoreThreshold drops weak matches before reranking.
	ScoreThreshold float32 `koanf:"score_threshold"`

	Chromem ChromemConfig `koanf:"chromem"`
	Qdrant  QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	Path       string `koanf:"path"`
	Collection string `koanf:"collection"`
	Compress   bool   `koanf:"compress"`
}

// QdrantConfig configures the remote Qdrant store.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Collection string `koanf:"collection"`
	VectorSize uint64 `koanf:"vector_size"`
}

// EmbeddingConfig configures the embedding backend used by retrieval.
type EmbeddingConfig struct {
	// Provider is "ollama" (local, default) or "openai" (remote).
	Provider string `koanf:"provider"`
	BaseURL  string `koanf:"base_url"`
	Model    string `koanf:"model"`
	APIKey   Secret `koanf:"api_key"`
}

// LLMConfig configures the text-generation capability provider.
type LLMConfig struct {
	// Provider is "ollama" (local, default) or "openai" (remote).
	Provider string `koanf:"provider"`
	BaseURL  string `koanf:"base_url"`
	Model    string `koanf:"model"`
	APIKey   Secret `koanf:"api_key"`

	// Timeout bounds a single generation call. The orchestrator decides
	// how to degrade when it fires; the client never retries on its own.
	Timeout Duration `koanf:"timeout"`

	// RPS is the client-side rate limit toward the provider. 0 disables.
	RPS float64 `koanf:"rps"`
}

// TelemetryConfig configures trace export. Tracing is disabled when
// Endpoint is empty.
type TelemetryConfig struct {
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
	Insecure    bool   `koanf:"insecure"`
}

// ApplyDefaults sets default values for unset fields across all sections.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8600
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/atlas.db"
	}
	if c.Store.MaxRows == 0 {
		c.Store.MaxRows = 500
	}
	if c.Store.QueryTimeout == 0 {
		c.Store.QueryTimeout = Duration(10 * time.Second)
	}
	if c.Retrieval.Provider == "" {
		c.Retrieval.Provider = "chromem"
	}
	if c.Retrieval.K == 0 {
		c.Retrieval.K = 8
	}
	if c.Retrieval.ScoreThreshold == 0 {
		c.Retrieval.ScoreThreshold = 0.25
	}
	if c.Retrieval.Chromem.Path == "" {
		c.Retrieval.Chromem.Path = "data/index"
	}
	if c.Retrieval.Chromem.Collection == "" {
		c.Retrieval.Chromem.Collection = "atlas_grounding"
	}
	if c.Retrieval.Qdrant.Host == "" {
		c.Retrieval.Qdrant.Host = "localhost"
	}
	if c.Retrieval.Qdrant.Port == 0 {
		c.Retrieval.Qdrant.Port = 6334
	}
	if c.Retrieval.Qdrant.Collection == "" {
		c.Retrieval.Qdrant.Collection = "atlas_grounding"
	}
	if c.Retrieval.Qdrant.VectorSize == 0 {
		c.Retrieval.Qdrant.VectorSize = 1024
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "ollama"
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "http://localhost:11434"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "bge-m3"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "http://localhost:11434"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "mistral:7b-instruct"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = Duration(60 * time.Second)
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "atlasd"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Store.MaxRows <= 0 {
		return fmt.Errorf("store.max_rows must be positive, got %d", c.Store.MaxRows)
	}
	switch c.Retrieval.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unsupported retrieval provider: %s (supported: chromem, qdrant)", c.Retrieval.Provider)
	}
	switch c.Embedding.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unsupported embedding provider: %s (supported: ollama, openai)", c.Embedding.Provider)
	}
	switch c.LLM.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unsupported llm provider: %s (supported: ollama, openai)", c.LLM.Provider)
	}
	if c.Embedding.Provider == "openai" && !c.Embedding.APIKey.IsSet() {
		return fmt.Errorf("embedding.api_key required for openai provider")
	}
	if c.LLM.Provider == "openai" && !c.LLM.APIKey.IsSet() {
		return fmt.Errorf("llm.api_key required for openai provider")
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("retrieval.k must be positive, got %d", c.Retrieval.K)
	}
	return nil
}
