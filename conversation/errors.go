package conversation

import "errors"

var (
	// ErrInvalidConfig is returned for non-positive store limits.
	ErrInvalidConfig = errors.New("invalid conversation store config")

	// ErrStoreClosed is returned for operations on a closed store.
	ErrStoreClosed = errors.New("conversation store closed")
)
