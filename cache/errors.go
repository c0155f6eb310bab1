package cache

import (
	"errors"
	"fmt"
)

// ErrMissingInput is returned by Resolve when a listed key input file does
// not exist. This is a hard failure: hashing a partial file set would
// silently scope the cache wrong, which is worse than failing the job.
var ErrMissingInput = errors.New("cache key input file missing")

// ErrStore is returned when the cache store itself fails (unreadable entry,
// filesystem error during save).
var ErrStore = errors.New("cache store failure")

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
