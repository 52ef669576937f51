package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// Environment variables read when the matching endpoints.* setting is empty.
const (
	EnvMidgardURL   = "MIDGARD_API_URL"
	EnvThornodeURL  = "THORCHAIN_API_URL"
	EnvWebsocketURL = "THORCHAIN_WS_URL"
	EnvClientID     = "CLIENT_ID"
)

// LoadDotEnv loads the given files (default .env) into the environment without overriding
// variables that are already set. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
