package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuplicateMode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"reject", DuplicateModeReject},
		{"correct", DuplicateModeCorrect},
		{"", DuplicateModeCorrect},
		{"REJECT", DuplicateModeCorrect}, // only the exact token switches modes
		{"nonsense", DuplicateModeCorrect},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseDuplicateMode(tc.in), "input %q", tc.in)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CFG_TEST_STR", "value")
	assert.Equal(t, "value", envStr("CFG_TEST_STR", "def"))
	assert.Equal(t, "def", envStr("CFG_TEST_STR_MISSING", "def"))

	t.Setenv("CFG_TEST_INT", "42")
	assert.Equal(t, 42, envInt("CFG_TEST_INT", 7))
	t.Setenv("CFG_TEST_INT_BAD", "x")
	assert.Equal(t, 7, envInt("CFG_TEST_INT_BAD", 7))

	t.Setenv("CFG_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, envDur("CFG_TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, envDur("CFG_TEST_DUR_MISSING", time.Minute))

	t.Setenv("CFG_TEST_BOOL", "on")
	assert.True(t, envBool("CFG_TEST_BOOL", false))
	t.Setenv("CFG_TEST_BOOL", "0")
	assert.False(t, envBool("CFG_TEST_BOOL", true))
}

func TestRateLimitConfigBounds(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	assert.GreaterOrEqual(t, cfg.Capacity, 1)
	assert.GreaterOrEqual(t, cfg.RefillTokens, 1)
	// TTL is floored to five refill intervals so buckets outlive a burst.
	assert.GreaterOrEqual(t, cfg.TTL, 5*cfg.RefillInterval)
}
