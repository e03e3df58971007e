package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.DefaultThreadCount)
	assert.Equal(t, 60, cfg.CommandTimeoutSeconds)
	assert.Equal(t, 5, cfg.MaxRecursionDepth)
	assert.Equal(t, 100, cfg.OCRMinText)
	assert.Equal(t, "md5", cfg.DedupeHash)
	assert.Equal(t, 64*1024, cfg.CSVBufferBytes)
	assert.Equal(t, "sqlite", cfg.SessionBackend)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 500, cfg.Index.BatchSize)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"default-thread-count: 12\nmax-recursion-depth: 3\ndedupe-enabled: true\n",
	), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.DefaultThreadCount)
	assert.Equal(t, 3, cfg.MaxRecursionDepth)
	assert.True(t, cfg.DedupeEnabled)
	// Untouched keys keep defaults.
	assert.Equal(t, 60, cfg.CommandTimeoutSeconds)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("command-timeout-seconds: 30\n"), 0o600))

	t.Setenv("CRAWL_COMMAND_TIMEOUT_SECONDS", "90")
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.CommandTimeoutSeconds)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	t.Setenv("CRAWL_DEFAULT_THREAD_COUNT", "2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("default-thread-count", 4, "")
	require.NoError(t, flags.Set("default-thread-count", "16"))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.DefaultThreadCount)
}

func TestLoad_InvalidHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dedupe-hash: crc32\n"), 0o600))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dedupe-hash")
}

func TestLoad_InvalidBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session-backend: postgres\n"), 0o600))

	_, err := Load(path, nil)
	require.Error(t, err)
}

func TestExcludeList(t *testing.T) {
	cfg := Config{ExcludeDirs: "node_modules, .git ,, vendor"}
	assert.Equal(t, []string{"node_modules", ".git", "vendor"}, cfg.ExcludeList())

	empty := Config{}
	assert.Empty(t, empty.ExcludeList())
}

func TestReadCredentialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.conf")
	require.NoError(t, os.WriteFile(path, []byte(
		"# index credentials\nINDEX_USER=admin\nINDEX_PASS=\"s3cret\"\nmalformed line\n",
	), 0o600))

	creds := make(map[string]string)
	require.NoError(t, readCredentialFile(path, creds))
	assert.Equal(t, "admin", creds["INDEX_USER"])
	assert.Equal(t, "s3cret", creds["INDEX_PASS"])
	assert.Len(t, creds, 2)
}
