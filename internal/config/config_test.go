package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8600, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Store.MaxRows)
	assert.Equal(t, 10*time.Second, cfg.Store.QueryTimeout.Duration())
	assert.Equal(t, "chromem", cfg.Retrieval.Provider)
	assert.Equal(t, 8, cfg.Retrieval.K)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9100
store:
  path: /var/lib/atlasd/atlas.db
  max_rows: 200
retrieval:
  provider: qdrant
  qdrant:
    host: qdrant.internal
    vector_size: 384
llm:
  timeout: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "/var/lib/atlasd/atlas.db", cfg.Store.Path)
	assert.Equal(t, 200, cfg.Store.MaxRows)
	assert.Equal(t, "qdrant", cfg.Retrieval.Provider)
	assert.Equal(t, "qdrant.internal", cfg.Retrieval.Qdrant.Host)
	assert.Equal(t, uint64(384), cfg.Retrieval.Qdrant.VectorSize)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout.Duration())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600))

	t.Setenv("ATLASD_SERVER_PORT", "9200")
	t.Setenv("ATLASD_STORE_MAX_ROWS", "50")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Store.MaxRows)
}

func TestValidateRejectsBadProvider(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.Retrieval.Provider = "pinecone"
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresOpenAIKey(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.LLM.Provider = "openai"
	require.Error(t, cfg.Validate())

	cfg.LLM.APIKey = "sk-test"
	require.NoError(t, cfg.Validate())
}

func TestTransformEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ATLASD_SERVER_PORT", "server.port"},
		{"ATLASD_STORE_MAX_ROWS", "store.max_rows"},
		{"ATLASD_LLM_BASE_URL", "llm.base_url"},
		{"ATLASD_RETRIEVAL_QDRANT_VECTOR_SIZE", "retrieval.qdrant.vector_size"},
		{"ATLASD_TELEMETRY_SERVICE_NAME", "telemetry.service_name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, transformEnvKey(tt.in), tt.in)
	}
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("sk-live-abc")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "sk-live-abc", s.Value())

	b, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(b), "sk-live-abc")
}
