// Package env reads process environment variables with a fallback, for the
// few knobs resolved before config loading.
package env

import "os"

// Get returns the named variable's value, or fallback when unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
