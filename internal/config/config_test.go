package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pond.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9000\"\nring_capacity: 100\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddr)
	require.Equal(t, 100, cfg.RingCapacity)
	require.Equal(t, Defaults().LogLevel, cfg.LogLevel)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pond.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9000\"\n"), 0o644))

	t.Setenv("POND_LISTEN_ADDR", ":9999")
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.ListenAddr)
}

func TestFlagsOverrideEverything(t *testing.T) {
	t.Setenv("POND_LISTEN_ADDR", ":9999")
	addr := ":1111"
	cfg, err := Load("", &FlagOverrides{ListenAddr: &addr})
	require.NoError(t, err)
	require.Equal(t, ":1111", cfg.ListenAddr)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	level := "verbose"
	_, err := Load("", &FlagOverrides{LogLevel: &level})
	require.Error(t, err)
}

func TestValidateRejectsNonPositiveCapacity(t *testing.T) {
	zero := 0
	_, err := Load("", &FlagOverrides{RingCapacity: &zero})
	require.Error(t, err)
}

func TestMissingFileIsNotAnError(t *testing.T) {
	_, err := Load("/nonexistent/pond.yaml", nil)
	require.NoError(t, err)
}
