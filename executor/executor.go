// Package executor runs shell commands for pipeline jobs with output
// capture, environment injection and context support for cancellation and
// externally supplied timeouts.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Result holds the output and exit status of a single command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Runner executes a single command line. The engine and the provisioner
// depend on this interface, not on a concrete shell, so the core stays
// testable without spawning processes.
type Runner interface {
	// Run executes one command with the given options.
	Run(ctx context.Context, command string, opts ...Option) (*Result, error)
}

// Options configures command execution behavior.
type Options struct {
	// WorkingDir is the directory the command runs in.
	WorkingDir string

	// Env is appended to the current process environment. Later keys from
	// the same map win over inherited process values.
	Env map[string]string

	// StdoutWriter and StderrWriter receive a live copy of the command
	// output in addition to the captured Result.
	StdoutWriter io.Writer
	StderrWriter io.Writer
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithWorkingDir sets the working directory.
func WithWorkingDir(dir string) Option {
	return func(o *Options) {
		o.WorkingDir = dir
	}
}

// WithEnv adds environment variables.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithStdoutWriter sets a live stdout writer.
func WithStdoutWriter(w io.Writer) Option {
	return func(o *Options) {
		o.StdoutWriter = w
	}
}

// WithStderrWriter sets a live stderr writer.
func WithStderrWriter(w io.Writer) Option {
	return func(o *Options) {
		o.StderrWriter = w
	}
}

// ShellRunner is the production Runner: it hands the command line to the
// system shell ("sh -c"), matching how pipeline scripts are written.
type ShellRunner struct {
	shell string
}

// NewShellRunner creates a ShellRunner using "sh".
func NewShellRunner() *ShellRunner {
	return &ShellRunner{shell: "sh"}
}

// Run implements Runner.
func (r *ShellRunner) Run(ctx context.Context, command string, opts ...Option) (*Result, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	if options.WorkingDir != "" {
		cmd.Dir = options.WorkingDir
	}
	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	if options.StdoutWriter != nil {
		cmd.Stdout = io.MultiWriter(&stdoutBuf, options.StdoutWriter)
	}
	if options.StderrWriter != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, options.StderrWriter)
	}

	err := cmd.Run()
	result := &Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
		Err:    err,
	}

	var exitErr *exec.ExitError
	switch {
	case err != nil && errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case err == nil:
		result.ExitCode = 0
	default:
		result.ExitCode = -1
	}

	if err != nil {
		return result, fmt.Errorf("command execution failed: %w", err)
	}
	return result, nil
}
