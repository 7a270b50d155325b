package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetStringEnv(t *testing.T) {
	t.Setenv("CP_TEST_STR", "set")
	assert.Equal(t, "set", GetStringEnv("CP_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", GetStringEnv("CP_TEST_STR_MISSING", "fallback"))
}

func TestGetIntEnvDefault(t *testing.T) {
	t.Setenv("CP_TEST_INT", "42")
	assert.Equal(t, 42, GetIntEnvDefault("CP_TEST_INT", 7))
	assert.Equal(t, 7, GetIntEnvDefault("CP_TEST_INT_MISSING", 7))

	t.Setenv("CP_TEST_INT_BAD", "not a number")
	assert.Equal(t, 7, GetIntEnvDefault("CP_TEST_INT_BAD", 7))
}

func TestGetBoolEnv(t *testing.T) {
	t.Setenv("CP_TEST_BOOL", "true")
	assert.True(t, GetBoolEnv("CP_TEST_BOOL", false))
	assert.True(t, GetBoolEnv("CP_TEST_BOOL_MISSING", true))
	assert.False(t, GetBoolEnv("CP_TEST_BOOL_MISSING", false))
}
