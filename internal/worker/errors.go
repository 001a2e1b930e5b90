package worker

import (
	"errors"
	"fmt"
)

// ErrPermanent marks a handler failure that retrying cannot fix: malformed
// payloads, unknown entity ids, unusable analysis confidence. The pool
// dead-letters these immediately instead of burning retry attempts.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so the pool classifies it as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}
