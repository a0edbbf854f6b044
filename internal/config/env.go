package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. MANGAPDF_BUCKET.
const EnvPrefix = "MANGAPDF"

// ApplyEnv overrides cfg with the MANGAPDF_* variables that are set. Unset
// variables leave the loaded value in place.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	normalizeDefaults(cfg)
	return nil
}

// LoadDotEnv loads variables from a .env file. If path is empty ".env" in
// the working directory is used. A missing file is not an error. Variables
// already present in the environment win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	return godotenv.Load(path)
}

// LoadServer layers the active profile, the .env file, the environment and
// finally the flags in opts.
func LoadServer(opts Options, envPath string) (*Config, string, error) {
	cfg, used, err := LoadMerged(opts)
	if err != nil {
		return nil, "", err
	}

	if err := LoadDotEnv(envPath); err != nil {
		return nil, "", fmt.Errorf("loading %s: %w", envPath, err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, "", err
	}
	mergeConfig(cfg, opts)

	return cfg, used, nil
}
