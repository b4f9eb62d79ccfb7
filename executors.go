package tio

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/brickingsoft/rxp"
)

var (
	executors     rxp.Executors = nil
	executorsOnce sync.Once
)

// Startup replaces the default executors used by OnAccept handlers.
//
// It must be called before the first listener dispatches a handler,
// later calls have no effect.
func Startup(options ...rxp.Option) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case error:
				err = e
				break
			case string:
				err = errors.New(e)
				break
			default:
				err = errors.New(fmt.Sprintf("%+v", r))
				break
			}
		}
	}()
	executors = rxp.New(options...)
	return
}

// Shutdown closes the executors without waiting for running handlers.
func Shutdown() error {
	if executors != nil {
		runtime.SetFinalizer(executors, nil)
	}
	return Executors().Close()
}

// ShutdownGracefully closes the executors after running handlers finish.
func ShutdownGracefully() error {
	if executors != nil {
		runtime.SetFinalizer(executors, nil)
	}
	return Executors().CloseGracefully()
}

// Executors returns the executors used to dispatch OnAccept handlers.
func Executors() rxp.Executors {
	executorsOnce.Do(func() {
		if executors == nil {
			executors = rxp.New()
			runtime.SetFinalizer(executors, rxp.Executors.CloseGracefully)
		}
	})
	return executors
}
