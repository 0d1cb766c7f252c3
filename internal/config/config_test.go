package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  port: "9090"
  template_path: "template.csv"
  legacy_errors: true

gemini:
  api_key: "file-key"
  model: "gemini-1.5-pro"
  temperature: 0.4
  top_k: 20
  poll_interval: 2s
  max_poll_attempts: 5
  delete_uploads: false

log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))
	t.Setenv("GEMINI_API_KEY", "")

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, "template.csv", config.Server.TemplatePath)
	assert.True(t, config.Server.LegacyErrors)
	assert.Equal(t, "file-key", config.Gemini.APIKey)
	assert.Equal(t, "gemini-1.5-pro", config.Gemini.Model)
	assert.Equal(t, float32(0.4), config.Gemini.Temperature)
	assert.Equal(t, int32(20), config.Gemini.TopK)
	assert.Equal(t, 2*time.Second, config.Gemini.PollInterval)
	assert.Equal(t, 5, config.Gemini.MaxPollAttempts)
	assert.False(t, config.ShouldDeleteUploads())
	assert.Equal(t, "debug", config.Log.Level)

	// unset values fall back to defaults
	assert.Equal(t, float32(0.95), config.Gemini.TopP)
	assert.Equal(t, int32(8192), config.Gemini.MaxOutputTokens)
	assert.Equal(t, "text/plain", config.Gemini.ResponseMIMEType)
	assert.Equal(t, DefaultSystemInstruction, config.Gemini.SystemInstruction)
}

func TestDefaults(t *testing.T) {
	config := newConfig()
	applyDefaults(config)

	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, "Sample_Question_Import_UTF8.csv", config.Server.TemplatePath)
	assert.Equal(t, "gemini-2.0-flash-exp", config.Gemini.Model)
	assert.Equal(t, float32(1), config.Gemini.Temperature)
	assert.Equal(t, 10*time.Second, config.Gemini.PollInterval)
	assert.True(t, config.ShouldDeleteUploads())
	assert.False(t, config.ArchiveEnabled())
}

func TestLoadConfigKeepsExplicitZeroSampling(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configData := `
gemini:
  api_key: "file-key"
  temperature: 0
  top_p: 0
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, float32(0), config.Gemini.Temperature)
	assert.Equal(t, float32(0), config.Gemini.TopP)
	assert.Empty(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		c := newConfig()
		c.Gemini.APIKey = "key"
		applyDefaults(c)
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:   "missing api key",
			mutate: func(c *Config) { c.Gemini.APIKey = "" },
			fields: []string{"gemini.api_key"},
		},
		{
			name: "out of range sampling",
			mutate: func(c *Config) {
				c.Gemini.Temperature = 3
				c.Gemini.TopP = 1.5
				c.Gemini.TopK = -1
			},
			fields: []string{"gemini.temperature", "gemini.top_p", "gemini.top_k"},
		},
		{
			name: "bad polling and logging",
			mutate: func(c *Config) {
				c.Gemini.PollInterval = -time.Second
				c.Gemini.MaxPollAttempts = -2
				c.Log.Level = "loud"
			},
			fields: []string{"gemini.poll_interval", "gemini.max_poll_attempts", "log.level"},
		},
		{
			name:   "bad archive url",
			mutate: func(c *Config) { c.Archive.PublicURL = "not a url" },
			fields: []string{"archive.public_url"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)

			errs := c.Validate()
			require.Len(t, errs, len(tt.fields))
			for i, field := range tt.fields {
				assert.Equal(t, field, errs[i].Field)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("PORT", "7000")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/quizify")
	t.Setenv("R2_BUCKET_NAME", "quizzes")
	t.Setenv("QUIZIFY_LEGACY_ERRORS", "true")

	config := &Config{}
	config.Gemini.APIKey = "file-key"
	mergeWithEnv(config)

	assert.Equal(t, "env-key", config.Gemini.APIKey)
	assert.Equal(t, "7000", config.Server.Port)
	assert.Equal(t, "postgres://env-db:5432/quizify", config.Database.URL)
	assert.Equal(t, "quizzes", config.Archive.Bucket)
	assert.True(t, config.Server.LegacyErrors)
}

func TestCheckTemplate(t *testing.T) {
	dir := t.TempDir()
	config := &Config{}

	config.Server.TemplatePath = filepath.Join(dir, "missing.csv")
	assert.Error(t, config.CheckTemplate())

	config.Server.TemplatePath = dir
	assert.Error(t, config.CheckTemplate())

	path := filepath.Join(dir, "template.csv")
	require.NoError(t, os.WriteFile(path, []byte("NewQuestion,MC\n"), 0644))
	config.Server.TemplatePath = path
	assert.NoError(t, config.CheckTemplate())
}
