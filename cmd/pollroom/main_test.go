package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pollroom/internal/config"
)

func TestRun_InvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pollroom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"poll": {"min_time_limit": "10m", "max_time_limit": "1m"}}`), 0o600))
	t.Setenv(config.FileEnvVar, path)

	err := run()

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load configuration")
}

func TestRun_MissingConfigFile(t *testing.T) {
	t.Setenv(config.FileEnvVar, filepath.Join(t.TempDir(), "absent.json"))

	require.Error(t, run())
}
