package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable ApplyEnv reads.
const EnvPrefix = "GOLDSIM_"

// ApplyEnv loads dotenv files (".env" when none are named, and a missing
// file is not an error), then overlays GOLDSIM_* variables onto c.
// Variables that are unset leave the current values alone.
func (c *Config) ApplyEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return c.Validate()
}
