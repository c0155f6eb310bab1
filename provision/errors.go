package provision

import (
	"errors"
	"fmt"
)

// ErrProvisioning is returned for unrecoverable environment setup issues:
// filesystem failures, package installation failures, unreachable source
// dependencies. It aborts the job before any of its commands run.
var ErrProvisioning = errors.New("provisioning failed")

// SetupError reports a failed setup (before_script) command. It aborts the
// job before its main script runs.
type SetupError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup command %q failed with exit code %d", e.Command, e.ExitCode)
}

// ScriptError reports a failed main script command. Commands after the
// failing one are never executed.
type ScriptError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script command %q failed with exit code %d", e.Command, e.ExitCode)
}

// WrapError wraps an error with additional context while preserving the
// ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while
// preserving the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
