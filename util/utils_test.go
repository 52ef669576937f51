package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStrNotSet(t *testing.T) {
	require.True(t, StrNotSet(""))
	require.True(t, StrNotSet("  "))
	require.False(t, StrNotSet("x"))
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("CHURN_COUNTDOWN_TEST_URL", "https://midgard.example/v2")
	require.Equal(t, "https://midgard.example/v2", EnvOrDefault("CHURN_COUNTDOWN_TEST_URL", "fallback"))

	t.Setenv("CHURN_COUNTDOWN_TEST_URL", "")
	require.Equal(t, "fallback", EnvOrDefault("CHURN_COUNTDOWN_TEST_URL", "fallback"))
	require.Equal(t, "fallback", EnvOrDefault("CHURN_COUNTDOWN_UNSET_VAR", "fallback"))
}
