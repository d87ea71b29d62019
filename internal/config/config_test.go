package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "*", cfg.AllowedOrigin)
	assert.Equal(t, DefaultVisitorTTLSeconds, cfg.VisitorTTLSeconds)
	assert.Equal(t, DefaultCounterName, cfg.CounterName)
	assert.Equal(t, DefaultSnapshotIntervalSeconds, cfg.SnapshotIntervalSeconds)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALLOWED_ORIGIN", "https://example.com")
	t.Setenv("VISITOR_TTL_SECONDS", "60")
	t.Setenv("COUNTER_NAME", "regional")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", cfg.AllowedOrigin)
	assert.Equal(t, 60, cfg.VisitorTTLSeconds)
	assert.Equal(t, "regional", cfg.CounterName)
}

func TestVisitorTTLFloor(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected int
	}{
		{
			name:     "zero is floored to one",
			value:    "0",
			expected: 1,
		},
		{
			name:     "negative is floored to one",
			value:    "-5",
			expected: 1,
		},
		{
			name:     "unparseable falls back to default",
			value:    "abc",
			expected: DefaultVisitorTTLSeconds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VISITOR_TTL_SECONDS", tt.value)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.VisitorTTLSeconds)
		})
	}
}
