package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "local", cfg.Library.Source)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.DatabaseURL)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadS3SourceRequiresBucket(t *testing.T) {
	t.Setenv("LIBRARY_SOURCE", "s3")
	t.Setenv("LIBRARY_S3_BUCKET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadS3SourceWithBucket(t *testing.T) {
	t.Setenv("LIBRARY_SOURCE", "s3")
	t.Setenv("LIBRARY_S3_BUCKET", "avokati-ligje")
	t.Setenv("LIBRARY_S3_PREFIX", "ligje/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "avokati-ligje", cfg.Library.S3Bucket)
	assert.Equal(t, "ligje/", cfg.Library.S3Prefix)
}
