package yxconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWithNoFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 50000, cfg.ListenPort)
	require.Equal(t, 10000, cfg.MaxRequests)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_port: 51000\nmax_requests: 20000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 51000, cfg.ListenPort)
	require.Equal(t, 20000, cfg.MaxRequests)
}

func TestLoadPropagatesValidationErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("YX_MAX_REQUESTS", "15000")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 15000, cfg.MaxRequests)
}
