package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDatabaseURL, EnvTriePath, EnvLogMode, EnvGrammar} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTriePath, cfg.TriePath)
	assert.Equal(t, DefaultLogMode, cfg.LogMode)
	assert.Empty(t, cfg.GrammarPath)
	assert.ErrorIs(t, cfg.RequireDatabase(), ErrMissingDatabaseURL)
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDatabaseURL, " sqlite:///laws.db ")
	t.Setenv(EnvTriePath, "/tmp/x.trie")
	t.Setenv(EnvLogMode, "prod")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///laws.db", cfg.DatabaseURL)
	assert.Equal(t, "/tmp/x.trie", cfg.TriePath)
	assert.Equal(t, "prod", cfg.LogMode)
	assert.NoError(t, cfg.RequireDatabase())
}

func TestLoadOverridesWin(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDatabaseURL, "sqlite:///env.db")

	cfg, err := Load(Overrides{DatabaseURL: "sqlite:///flag.db", TriePath: "flag.trie", Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///flag.db", cfg.DatabaseURL)
	assert.Equal(t, "flag.trie", cfg.TriePath)
	assert.True(t, cfg.Verbose)
}

func TestLoadDotEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvDatabaseURL)
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DB_URL=sqlite://:memory:\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(EnvDatabaseURL) })

	cfg, err := Load(Overrides{}, path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite://:memory:", cfg.DatabaseURL)
}

func TestLoadRejectsUnknownLogMode(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogMode, "verbose")

	_, err := Load(Overrides{})
	assert.ErrorContains(t, err, "unknown log mode")
}
