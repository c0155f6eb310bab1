package executor

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellRunner_CapturesStdout(t *testing.T) {
	runner := NewShellRunner()

	result, err := runner.Run(context.Background(), "echo hello world")
	require.NoError(t, err)

	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello world\n", result.Stdout)
}

func TestShellRunner_CapturesStderrAndExitCode(t *testing.T) {
	runner := NewShellRunner()

	result, err := runner.Run(context.Background(), "echo oops >&2; exit 3")
	require.Error(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "oops\n", result.Stderr)
}

func TestShellRunner_EnvInjection(t *testing.T) {
	runner := NewShellRunner()

	result, err := runner.Run(context.Background(), "echo $GREETING",
		WithEnv(map[string]string{"GREETING": "bonjour"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "bonjour\n", result.Stdout)
}

func TestShellRunner_WorkingDir(t *testing.T) {
	dir := t.TempDir()
	runner := NewShellRunner()

	result, err := runner.Run(context.Background(), "pwd", WithWorkingDir(dir))
	require.NoError(t, err)
	assert.Equal(t, dir, strings.TrimSpace(result.Stdout))
}

func TestShellRunner_LiveWriters(t *testing.T) {
	var stdout, stderr bytes.Buffer
	runner := NewShellRunner()

	result, err := runner.Run(context.Background(), "echo out; echo err >&2",
		WithStdoutWriter(&stdout),
		WithStderrWriter(&stderr),
	)
	require.NoError(t, err)

	// Output is both captured and streamed.
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestShellRunner_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewShellRunner()
	_, err := runner.Run(ctx, "sleep 10")
	require.Error(t, err)
}

func TestWithEnv_Accumulates(t *testing.T) {
	opts := &Options{}
	WithEnv(map[string]string{"A": "1"})(opts)
	WithEnv(map[string]string{"B": "2"})(opts)

	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, opts.Env)
}
