//go:build linux

package ring

import (
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"
)

type Result struct {
	N     int
	Flags uint32
	Err   error
}

var timers = sync.Pool{
	New: func() interface{} {
		return time.NewTimer(0)
	},
}

func acquireTimer(d time.Duration) *time.Timer {
	timer := timers.Get().(*time.Timer)
	timer.Reset(d)
	return timer
}

func releaseTimer(t *time.Timer) {
	t.Stop()
	timers.Put(t)
}

type OperationKind int

const (
	nop OperationKind = iota
	acceptOp
	receiveOp
	sendOp
	cancelOp
)

// Operation is one in-flight asynchronous request. Its pointer is the
// user data of the submitted SQE, the completion loop maps the CQE back to
// it and delivers the result over ch exactly once. done arbitrates between
// the awaiter and the completion loop, hijacked marks an operation whose
// awaiter has given up so the completion loop owns its release.
type Operation struct {
	kind     OperationKind
	fd       int
	b        []byte
	rsa      *syscall.RawSockaddrAny
	rsaLen   uint32
	target   unsafe.Pointer
	timeout  time.Duration
	done     atomic.Bool
	hijacked atomic.Bool
	ch       chan Result
}

func (op *Operation) PrepareNop() {
	op.kind = nop
}

func (op *Operation) PrepareAccept(fd int) {
	op.kind = acceptOp
	op.fd = fd
	op.rsa = new(syscall.RawSockaddrAny)
	op.rsaLen = uint32(syscall.SizeofSockaddrAny)
}

func (op *Operation) PrepareReceive(fd int, b []byte) {
	op.kind = receiveOp
	op.fd = fd
	op.b = b
}

func (op *Operation) PrepareSend(fd int, b []byte) {
	op.kind = sendOp
	op.fd = fd
	op.b = b
}

func (op *Operation) prepareCancel(target *Operation) {
	op.kind = cancelOp
	op.target = unsafe.Pointer(target)
}

func (op *Operation) SetFd(fd int) {
	op.fd = fd
}

func (op *Operation) Fd() int {
	return op.fd
}

func (op *Operation) SetTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	op.timeout = d
}

// Sockaddr hands over the sockaddr buffer an accept completion filled in.
// The buffer is not reused after release, the caller owns it.
func (op *Operation) Sockaddr() *syscall.RawSockaddrAny {
	return op.rsa
}

func (op *Operation) reset() bool {
	if op.hijacked.Load() {
		return false
	}
	op.kind = nop
	op.fd = 0
	op.b = nil
	op.rsa = nil
	op.rsaLen = 0
	op.target = nil
	op.timeout = 0
	op.done.Store(false)
	return true
}
