package usecase

import (
	"sync"

	"recordpanel/internal/domain"
)

type captureOutcome struct {
	result domain.RecordingResult
	err    error
}

// captureSession is the single outstanding Capture waiter. Whoever claims it
// from the controller settles it; settle is exactly-once regardless.
type captureSession struct {
	options domain.StartOptions
	done    chan captureOutcome
	once    sync.Once
}

func newCaptureSession(options domain.StartOptions) *captureSession {
	return &captureSession{options: options, done: make(chan captureOutcome, 1)}
}

func (c *captureSession) resolve(result domain.RecordingResult) bool {
	return c.settle(captureOutcome{result: result})
}

func (c *captureSession) reject(err error) bool {
	return c.settle(captureOutcome{err: err})
}

func (c *captureSession) settle(outcome captureOutcome) bool {
	settled := false
	c.once.Do(func() {
		c.done <- outcome
		settled = true
	})
	return settled
}
