package shell

import (
	"context"
	"strings"
)

// Runner executes an external command and returns its captured stdout.
// A failed run returns a *CommandError.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// Command is a configured tool invocation. Extra arguments are appended
// after Args when the command runs.
type Command struct {
	Path string
	Args []string
	Sudo bool
}

func (c Command) Run(ctx context.Context, r Runner, extra ...string) (string, error) {
	name, args := c.argv(extra)
	return r.Run(ctx, name, args...)
}

func (c Command) String() string {
	name, args := c.argv(nil)
	return strings.Join(append([]string{name}, args...), " ")
}

func (c Command) argv(extra []string) (string, []string) {
	args := make([]string, 0, len(c.Args)+len(extra)+1)
	name := c.Path
	if c.Sudo {
		args = append(args, c.Path)
		name = "sudo"
	}
	args = append(args, c.Args...)
	args = append(args, extra...)
	return name, args
}

type CommandError struct {
	Command    string
	Message    string
	Diagnostic string
}

func (e *CommandError) Error() string {
	return e.Message
}
