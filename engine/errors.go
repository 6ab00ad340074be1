package engine

import "errors"

// Sentinel errors surfaced to callers. Dependency failures (mail,
// document rendering) are logged and swallowed instead; they never
// abort the operation that triggered them.
var (
	ErrNotFound         = errors.New("not found")
	ErrCapacityExceeded = errors.New("training capacity exceeded")
	ErrNotEnrolled      = errors.New("learner not enrolled in training")
	ErrCancelled        = errors.New("enrollment is cancelled")
)
