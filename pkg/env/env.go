package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of the environment variable or the fallback when unset.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Bool reports whether the variable is set to a truthy value (1, true, yes, on).
func Bool(key string) bool {
	switch strings.ToLower(Get(key, "")) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
