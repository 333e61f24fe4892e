package shell_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/speedwagon-io/hostmon/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	name string
	args []string
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	r.name = name
	r.args = args
	return "ok", nil
}

func TestCommandRunWithSudo(t *testing.T) {
	r := &recordingRunner{}
	cmd := shell.Command{Path: "hdparm", Args: []string{"-C"}, Sudo: true}

	out, err := cmd.Run(context.Background(), r, "/dev/sda")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "sudo", r.name)
	assert.Equal(t, []string{"hdparm", "-C", "/dev/sda"}, r.args)
	assert.Equal(t, "sudo hdparm -C", cmd.String())
}

func TestCommandRunPlain(t *testing.T) {
	r := &recordingRunner{}
	cmd := shell.Command{Path: "zpool", Args: []string{"status"}}

	_, err := cmd.Run(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "zpool", r.name)
	assert.Equal(t, []string{"status"}, r.args)
}

func TestLocalShellCapturesStdout(t *testing.T) {
	out, err := shell.LocalShell{}.Run(context.Background(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestLocalShellExitFailure(t *testing.T) {
	_, err := shell.LocalShell{}.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)

	var cmdErr *shell.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "broken", cmdErr.Diagnostic)
	assert.Equal(t, "command failed: sh -c echo broken >&2; exit 3: broken", cmdErr.Error())
}

func TestLocalShellStderrIsFailure(t *testing.T) {
	out, err := shell.LocalShell{}.Run(context.Background(), "sh", "-c", "echo partial; echo warning >&2")
	require.Error(t, err)
	assert.Equal(t, "partial\n", out)
	assert.Equal(t, "warning", err.Error())
}

func TestLocalShellTimeout(t *testing.T) {
	start := time.Now()
	_, err := shell.LocalShell{Timeout: 50 * time.Millisecond}.Run(context.Background(), "sleep", "5")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}
