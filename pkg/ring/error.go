//go:build linux

package ring

import "github.com/brickingsoft/errors"

var (
	// ErrUncompleted means the awaiter abandoned the operation before its
	// completion arrived, an async cancel was submitted for it.
	ErrUncompleted = errors.Define("ring: uncompleted")
	ErrTimeout     = errors.Define("ring: timeout")
	ErrClosed      = errors.Define("ring: closed")
	ErrQueueFull   = errors.Define("ring: operation queue is full")
)

func IsUncompleted(err error) bool {
	return errors.Is(err, ErrUncompleted)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
