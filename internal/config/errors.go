package config

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither TOML nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrInvalidAccount is returned by Validate for an unusable account entry.
	ErrInvalidAccount = errors.New("invalid account")
)

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
