package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "APARTE_"

// Overrides are settings taken from the environment. Empty fields leave the
// file value untouched.
type Overrides struct {
	// Path replaces the configuration file location.
	Path       string `env:"CONFIG"`
	LogLevel   string `env:"LOG_LEVEL"`
	LogFile    string `env:"LOG_FILE"`
	ScriptsDir string `env:"SCRIPTS_DIR"`
}

// LoadOverrides reads APARTE_* variables from environ, or from the process
// environment when environ is nil.
func LoadOverrides(environ map[string]string) (Overrides, error) {
	ov, err := env.ParseAsWithOptions[Overrides](env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	})
	if err != nil {
		return Overrides{}, fmt.Errorf("parse env: %w", err)
	}
	return ov, nil
}

// Apply copies the non-empty overrides into cfg.
func (o Overrides) Apply(cfg *Config) {
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFile != "" {
		cfg.Log.File = o.LogFile
	}
	if o.ScriptsDir != "" {
		cfg.ScriptsDir = o.ScriptsDir
	}
}

// Load reads the file at path over the defaults, applies the overrides and
// validates the result. A missing file is not an error.
func Load(path string, ov Overrides) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := Decode(path, data, cfg); err != nil {
			return nil, err
		}
	}

	ov.Apply(cfg)
	if cfg.Accounts == nil {
		cfg.Accounts = make(map[string]Account)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses data into cfg using the format implied by the extension of
// path. Keys absent from data keep their current value.
func Decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return decodeTOML(path, data, cfg)
	case ".yaml", ".yml":
		return decodeYAML(path, data, cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func decodeTOML(path string, data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		perr := &ParseError{Path: path, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}
	return nil
}

func decodeYAML(path string, data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return nil
}
