package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Load. All of them can be checked with
// errors.Is() after unwrapping whatever context was layered on top.

// ErrParse is returned when the definition document is malformed: invalid
// YAML, a schema violation, or a field with the wrong shape.
var ErrParse = errors.New("malformed pipeline definition")

// ErrUndefinedStage is returned when a job references a stage that is not
// present in the `stages` sequence.
var ErrUndefinedStage = errors.New("job references undefined stage")

// ErrUndefinedTemplate is returned when an `extends` entry does not resolve
// to a declared template.
var ErrUndefinedTemplate = errors.New("job references undefined template")

// ErrVersionMismatch is returned when the engine version does not satisfy
// the definition's `requires` constraint.
var ErrVersionMismatch = errors.New("engine version not supported by definition")

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
