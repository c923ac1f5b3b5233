package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestResolveDir(t *testing.T) {
	dir := t.TempDir()
	got, err := ResolveDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	t.Setenv(EnvLogDir, filepath.Join(dir, "env"))
	got, err = ResolveDir("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "env"), got)

	got, err = ResolveDir("rel")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestInitWritesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := Init(zerolog.InfoLevel, dir)
	require.NoError(t, err)
	t.Cleanup(Close)

	logger.Debug().Msg("hidden")
	logger.Info().Str("component", "test").Msg("hello")

	data, err := os.ReadFile(filepath.Join(dir, fileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "component=test")
	assert.NotContains(t, string(data), "hidden")
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.WarnLevel)
	logger.Info().Msg("quiet")
	logger.Warn().Msg("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
