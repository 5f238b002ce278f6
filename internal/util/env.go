package util

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DurationFromEnv reads a fractional-seconds value from the named environment
// variable. Returns fallback when the variable is unset or empty; a set but
// malformed value is a configuration error.
func DurationFromEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: expected positive seconds", name, raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
