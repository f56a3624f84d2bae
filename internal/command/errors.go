package command

import (
	"errors"
	"fmt"
)

// Sentinel errors. ParseError values match the sentinel of their kind with
// errors.Is.
var (
	ErrEmptyInput        = errors.New("empty command")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrMissingArgument   = errors.New("missing argument")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnknownKeyword    = errors.New("unknown keyword argument")
	ErrTooManyArguments  = errors.New("too many arguments")
	ErrUnterminatedQuote = errors.New("unterminated quote")

	// ErrInvalidSpec is returned by Define for malformed command specs.
	ErrInvalidSpec = errors.New("invalid command spec")

	// ErrDuplicateCommand is returned by Define when the name is taken.
	ErrDuplicateCommand = errors.New("command already defined")

	// ErrNoHandler is returned by Dispatch for a command without handler.
	ErrNoHandler = errors.New("command has no handler")
)

// ErrorKind classifies a ParseError.
type ErrorKind uint8

const (
	EmptyInput ErrorKind = iota
	UnknownCommand
	MissingArgument
	InvalidArgument
	UnknownKeyword
	TooManyArguments
	UnterminatedQuote
)

var kindSentinels = map[ErrorKind]error{
	EmptyInput:        ErrEmptyInput,
	UnknownCommand:    ErrUnknownCommand,
	MissingArgument:   ErrMissingArgument,
	InvalidArgument:   ErrInvalidArgument,
	UnknownKeyword:    ErrUnknownKeyword,
	TooManyArguments:  ErrTooManyArguments,
	UnterminatedQuote: ErrUnterminatedQuote,
}

// String returns the kind name.
func (k ErrorKind) String() string {
	if err, ok := kindSentinels[k]; ok {
		return err.Error()
	}
	return "unknown error"
}

// ParseError reports why a line could not be turned into a command. It
// carries enough to render a usage message.
type ParseError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Command is the resolved command path so far (e.g. "bookmark add").
	Command string

	// Token is the offending token, empty when a token is missing.
	Token string

	// Position is the index of the offending token, or the index where the
	// missing token was expected.
	Position int

	// Expected describes what was expected at Position.
	Expected string

	// Usage is the usage line of the deepest resolved command.
	Usage string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := e.Kind.String()
	if e.Command != "" {
		msg = e.Command + ": " + msg
	}
	if e.Token != "" {
		msg += fmt.Sprintf(" %q", e.Token)
	}
	if e.Expected != "" {
		msg += ", expected " + e.Expected
	}
	return msg
}

// Is matches the sentinel error of the kind.
func (e *ParseError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}
