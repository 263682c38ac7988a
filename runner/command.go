package runner

import (
	"fmt"

	"github.com/google/shlex"
)

// Command describes one process to run: a unique name, the program, its
// arguments and an optional working directory and environment. Descriptors
// are cloned into workers at spawn time, so mutating one after the run
// started has no effect on that run.
type Command struct {
	name    string
	program string
	args    []string
	dir     string
	env     map[string]string
}

// NewCommand builds a command descriptor from a program and its arguments.
func NewCommand(name, program string, args ...string) *Command {
	return &Command{
		name:    name,
		program: program,
		args:    args,
	}
}

// ParseCommand builds a command descriptor from a shell-style command
// string. The string is tokenized, not evaluated: no globbing, no variable
// substitution, no pipes.
func ParseCommand(name, command string) (*Command, error) {
	words, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseCommand, err)
	}

	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}

	return NewCommand(name, words[0], words[1:]...), nil
}

// Name returns the worker name output messages are attributed to.
func (c *Command) Name() string {
	return c.name
}

// Dir sets the working directory the process starts in.
func (c *Command) Dir(dir string) *Command {
	c.dir = dir
	return c
}

// Env adds environment variables for the process, on top of the parent
// environment.
func (c *Command) Env(env map[string]string) *Command {
	if c.env == nil {
		c.env = make(map[string]string, len(env))
	}
	for k, v := range env {
		c.env[k] = v
	}
	return c
}

func (c *Command) clone() *Command {
	clone := &Command{
		name:    c.name,
		program: c.program,
		args:    append([]string(nil), c.args...),
		dir:     c.dir,
	}

	if c.env != nil {
		clone.env = make(map[string]string, len(c.env))
		for k, v := range c.env {
			clone.env[k] = v
		}
	}

	return clone
}
