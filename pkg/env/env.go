// Package env reads raw process environment values. Almost all settings go
// through the envconfig structs in pkg/config; this is for the few knobs,
// like LOG_FORMAT, that are read before configuration is loaded.
package env

import "os"

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
