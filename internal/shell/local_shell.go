package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

type LocalShell struct {
	// Timeout kills a single run after the given duration. Zero means the
	// command runs to completion.
	Timeout time.Duration
}

func (s LocalShell) Run(ctx context.Context, name string, args ...string) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmdline := strings.Join(append([]string{name}, args...), " ")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	diag := strings.TrimSpace(stderr.String())

	if err != nil {
		msg := fmt.Sprintf("command failed: %s: %v", cmdline, err)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && diag != "" {
			msg = fmt.Sprintf("command failed: %s: %s", cmdline, diag)
		}
		return stdout.String(), &CommandError{Command: cmdline, Message: msg, Diagnostic: diag}
	}

	if diag != "" {
		return stdout.String(), &CommandError{Command: cmdline, Message: diag, Diagnostic: diag}
	}

	return stdout.String(), nil
}
