package backup

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_LookPath(t *testing.T) {
	runner := NewProcessRunner()

	path, err := runner.LookPath("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	_, err = runner.LookPath("definitely-not-a-real-binary-name")
	assert.Error(t, err)
}

func TestExecRunner_Run_StreamsStdout(t *testing.T) {
	runner := NewProcessRunner()

	var stdout bytes.Buffer
	err := runner.Run(context.Background(), Command{
		Name:   "sh",
		Args:   []string{"-c", "printf hello"},
		Stdout: &stdout,
	})

	require.NoError(t, err)
	assert.Equal(t, "hello", stdout.String())
}

func TestExecRunner_Run_AppendsEnv(t *testing.T) {
	runner := NewProcessRunner()

	var stdout bytes.Buffer
	err := runner.Run(context.Background(), Command{
		Name:   "sh",
		Args:   []string{"-c", `printf "%s" "$BACKUP_TEST_MARKER"`},
		Env:    []string{"BACKUP_TEST_MARKER=present"},
		Stdout: &stdout,
	})

	require.NoError(t, err)
	assert.Equal(t, "present", stdout.String())
}

func TestExecRunner_Run_NonZeroExit(t *testing.T) {
	runner := NewProcessRunner()

	var stderr bytes.Buffer
	err := runner.Run(context.Background(), Command{
		Name:   "sh",
		Args:   []string{"-c", "echo boom >&2; exit 3"},
		Stderr: &stderr,
	})

	require.Error(t, err)
	assert.Contains(t, stderr.String(), "boom")
}

func TestExecRunner_Run_CancelledContext(t *testing.T) {
	runner := NewProcessRunner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Run(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 10"}})
	assert.Error(t, err)
}
