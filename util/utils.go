package util

import (
	"os"
	"strings"
)

// StrNotSet will return true if the string value provided is empty
func StrNotSet(value string) bool {
	return len(strings.TrimSpace(value)) == 0
}

// EnvOrDefault returns the environment variable key if it is set to a non-empty value.
func EnvOrDefault(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && !StrNotSet(v) {
		return v
	}
	return defaultValue
}
