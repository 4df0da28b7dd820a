package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sidifa dev")
}

func TestDemoCommand(t *testing.T) {
	_, err := execute(t, "demo")
	assert.NoError(t, err)
}

func TestBenchCommand(t *testing.T) {
	_, err := execute(t, "bench", "--shards", "2", "--capacity", "50", "--keys", "100", "--goroutines", "4", "--ops", "100")
	assert.NoError(t, err)
}

func TestBenchRejectsEmptyRun(t *testing.T) {
	_, err := execute(t, "bench", "--goroutines", "0")
	assert.Error(t, err)
}

func TestServeFailsOnMissingConfig(t *testing.T) {
	_, err := execute(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestNewAppFromEnvironment(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SIDIFA_CACHE_SHARDS", "3")
	t.Setenv("SIDIFA_SERVER_MODE", "test")

	a, err := newApp("")
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Equal(t, 3, a.cache.Stats().Shards)
	assert.NotNil(t, a.services.Dashboard)
}
