package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseServerArgs_Valid(t *testing.T) {
	cfg, err := ParseServerArgs([]string{"9000", "16", "4"})
	require.NoError(t, err)
	require.Equal(t, ServerConfig{Port: 9000, BufferCapacity: 16, WorkerCount: 4}, cfg)
}

func TestParseServerArgs_WrongArgCount(t *testing.T) {
	_, err := ParseServerArgs([]string{"9000", "16"})
	require.Error(t, err)
}

func TestParseServerArgs_NonNumeric(t *testing.T) {
	_, err := ParseServerArgs([]string{"nine-thousand", "16", "4"})
	require.Error(t, err)
}

func TestParseServerArgs_RejectsNonPositive(t *testing.T) {
	_, err := ParseServerArgs([]string{"9000", "0", "4"})
	require.Error(t, err)
}

func TestLoad_DefaultsWhenEnvUnset(t *testing.T) {
	cfg := Load()
	require.Equal(t, 9090, cfg.Metrics.Port)
	require.False(t, cfg.Audit.Enabled)
}

func TestLoad_RespectsEnvOverride(t *testing.T) {
	t.Setenv("METRICS_PORT", "9999")
	t.Setenv("AUDIT_ENABLED", "true")

	cfg := Load()
	require.Equal(t, 9999, cfg.Metrics.Port)
	require.True(t, cfg.Audit.Enabled)
}
