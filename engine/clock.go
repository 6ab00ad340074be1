package engine

import "time"

// Clock abstracts the time source so reminder windows are testable
// without wall-clock waits.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
