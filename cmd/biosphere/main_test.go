package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/hupe1980/biosphere/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	for _, k := range []string{config.EnvProvider, config.EnvAPIKey, config.EnvMaxTicks, config.EnvLogLevel} {
		t.Setenv(k, "")
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-driver", "slog"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "provider: mock")
	assert.Contains(t, out, "max_ticks: 20")
}

func TestRunCommand_Mock(t *testing.T) {
	out, err := execute(t, "run", "--max-ticks", "2", "--history", "Share", "the", "river")
	require.NoError(t, err)
	assert.Contains(t, out, "scenario: Share the river")
	assert.Contains(t, out, "tick 0:")
	assert.Contains(t, out, "finished:")
	assert.Contains(t, out, "backend calls:")
	assert.Contains(t, out, "[external] Share the river")
}

func TestRunCommand_RequiresScenario(t *testing.T) {
	_, err := execute(t, "run")
	assert.Error(t, err)
}

func TestRunCommand_InvalidProvider(t *testing.T) {
	_, err := execute(t, "run", "--provider", "cohere", "x")
	assert.Error(t, err)
}
