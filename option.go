package tio

import (
	"time"
)

const (
	// DefaultBacklog is the number of fully established connections the OS
	// may queue for a listening socket before Accept drains them.
	DefaultBacklog = 1024
)

type Options struct {
	// Backlog of the listening socket, DefaultBacklog when not set.
	Backlog int
	// RingSize is the submission queue size of the completion driver.
	RingSize int
	// RingWaitTimeout bounds one completion wait of the driver loop.
	RingWaitTimeout time.Duration
	// ReusePort sets SO_REUSEPORT on the listening socket.
	ReusePort bool
	// FastOpen sets TCP_FASTOPEN with the given queue length.
	FastOpen int
	// DeferAccept sets TCP_DEFER_ACCEPT, accepts complete once the peer
	// sent data.
	DeferAccept bool
	// MultipathTCP makes the listening socket use MPTCP when the kernel
	// supports it.
	MultipathTCP bool
}

type Option func(options *Options) (err error)

// WithBacklog
// set the listen backlog, values below 1 keep the default.
func WithBacklog(n int) Option {
	return func(options *Options) (err error) {
		if n < 1 {
			return
		}
		options.Backlog = n
		return
	}
}

// WithRingSize
// set the submission queue size of the completion driver.
func WithRingSize(n int) Option {
	return func(options *Options) (err error) {
		if n < 1 {
			return
		}
		options.RingSize = n
		return
	}
}

// WithRingWaitTimeout
// set the completion wait timeout of the driver loop.
func WithRingWaitTimeout(d time.Duration) Option {
	return func(options *Options) (err error) {
		if d < 1 {
			return
		}
		options.RingWaitTimeout = d
		return
	}
}

// WithReusePort
// set SO_REUSEPORT.
func WithReusePort() Option {
	return func(options *Options) (err error) {
		options.ReusePort = true
		return
	}
}

// WithFastOpen
// set TCP_FASTOPEN.
func WithFastOpen(n int) Option {
	return func(options *Options) (err error) {
		if n < 1 {
			return
		}
		if n > 999 {
			n = 256
		}
		options.FastOpen = n
		return
	}
}

// WithDeferAccept
// set TCP_DEFER_ACCEPT.
func WithDeferAccept() Option {
	return func(options *Options) (err error) {
		options.DeferAccept = true
		return
	}
}

// WithMultipathTCP
// use MPTCP when available.
func WithMultipathTCP() Option {
	return func(options *Options) (err error) {
		options.MultipathTCP = true
		return
	}
}
