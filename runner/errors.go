package runner

import "errors"

var (
	// ErrEmptyCommand is returned when a command string contains no tokens.
	ErrEmptyCommand = errors.New("empty command")

	// ErrParseCommand is returned when a command string cannot be tokenized.
	ErrParseCommand = errors.New("cannot parse command")

	// ErrNoCommands is returned by Run when no commands were registered.
	ErrNoCommands = errors.New("no commands to run")

	// ErrDuplicateName is returned by Run when two commands share a name.
	ErrDuplicateName = errors.New("duplicate command name")

	// ErrUnknownPolicy is returned when parsing an unknown restart policy.
	ErrUnknownPolicy = errors.New("unknown restart policy")
)
