package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedValues(t *testing.T) {
	Env = map[string]string{"APP_PORT": "4100"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("APP_PORT", "4200")

	assert.Equal(t, "4100", GetEnv("APP_PORT", "4000"))
	assert.Equal(t, "fallback", GetEnv("PRODUCT_API_MISSING_KEY", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	Env = map[string]string{"API_RATE_LIMIT_MAX": "120", "BROKEN": "abc"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, 120, GetEnvInt("API_RATE_LIMIT_MAX", 60))
	assert.Equal(t, 60, GetEnvInt("BROKEN", 60))
	assert.Equal(t, 7, GetEnvInt("UNSET_INT", 7))
}

func TestGetEnvDuration(t *testing.T) {
	Env = map[string]string{"A": "1500ms", "B": "30", "C": "soon"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, 1500*time.Millisecond, GetEnvDuration("A", time.Second))
	assert.Equal(t, 30*time.Second, GetEnvDuration("B", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("C", time.Second))
}
