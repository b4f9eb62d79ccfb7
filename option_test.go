package tio_test

import (
	"testing"
	"time"

	"github.com/brickingsoft/tio"
)

func TestOptions(t *testing.T) {
	opts := make([]tio.Option, 0, 1)
	opts = append(opts, tio.WithBacklog(256))
	opts = append(opts, tio.WithRingSize(64))
	opts = append(opts, tio.WithRingWaitTimeout(10*time.Millisecond))
	opts = append(opts, tio.WithReusePort())
	opts = append(opts, tio.WithFastOpen(16))
	opts = append(opts, tio.WithDeferAccept())
	opts = append(opts, tio.WithMultipathTCP())

	options := tio.Options{}
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			t.Fatal(err)
		}
	}
	if options.Backlog != 256 || options.RingSize != 64 || options.RingWaitTimeout != 10*time.Millisecond {
		t.Errorf("options: %+v", options)
	}
	if !options.ReusePort || options.FastOpen != 16 || !options.DeferAccept || !options.MultipathTCP {
		t.Errorf("options: %+v", options)
	}
}

func TestOptions_Clamped(t *testing.T) {
	options := tio.Options{Backlog: tio.DefaultBacklog}
	if err := tio.WithBacklog(0)(&options); err != nil {
		t.Fatal(err)
	}
	if options.Backlog != tio.DefaultBacklog {
		t.Errorf("backlog: %d", options.Backlog)
	}
	if err := tio.WithFastOpen(1000)(&options); err != nil {
		t.Fatal(err)
	}
	if options.FastOpen != 256 {
		t.Errorf("fastopen: %d", options.FastOpen)
	}
}
