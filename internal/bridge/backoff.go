package bridge

import "time"

const (
	backoffFloor     = 1 * time.Second
	backoffCap       = 60 * time.Second
	backoffThreshold = 10
)

// Backoff governs retry delay growth under consecutive poll failures. The
// delay stays at the floor for the first backoffThreshold failures, then
// doubles per failure up to the cap. Any success resets both.
type Backoff struct {
	failures int
	delay    time.Duration
}

// NewBackoff returns a controller at its floor delay.
func NewBackoff() *Backoff {
	return &Backoff{delay: backoffFloor}
}

// Failure records a poll failure and returns the delay to sleep.
func (b *Backoff) Failure() time.Duration {
	b.failures++
	if b.failures > backoffThreshold {
		b.delay *= 2
		if b.delay > backoffCap {
			b.delay = backoffCap
		}
	}
	return b.delay
}

// Success resets the counter and the delay.
func (b *Backoff) Success() {
	b.failures = 0
	b.delay = backoffFloor
}

// Failures returns the consecutive failure count.
func (b *Backoff) Failures() int { return b.failures }
