//go:build linux

package ring

import (
	"context"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/pawelgaczynski/giouring"
)

const (
	defaultWaitTimeout = 50 * time.Millisecond
)

type Options struct {
	WaitTimeout time.Duration
}

type Option func(options *Options)

// WithWaitTimeout
// bound one completion wait of the driver loop.
func WithWaitTimeout(d time.Duration) Option {
	return func(options *Options) {
		if d < 1 {
			return
		}
		options.WaitTimeout = d
	}
}

func New(size int, options ...Option) (*Ring, error) {
	if size < 1 {
		size = 1024
	}
	size = roundupPow2(size)
	opts := Options{
		WaitTimeout: defaultWaitTimeout,
	}
	for _, option := range options {
		option(&opts)
	}
	r, rErr := giouring.CreateRing(uint32(size))
	if rErr != nil {
		return nil, rErr
	}
	return &Ring{
		ring:        r,
		queue:       NewOperationQueue(size),
		waitTimeout: opts.WaitTimeout,
		operations: sync.Pool{
			New: func() interface{} {
				return &Operation{
					ch: make(chan Result, 1),
				}
			},
		},
		stopCh: nil,
		wg:     sync.WaitGroup{},
	}, nil
}

// Ring is the completion driver. Push submits one operation, the submission
// loop turns queued operations into SQEs, the completion loop maps CQEs back
// to operations and delivers each result over the operation's single use
// channel.
type Ring struct {
	ring        *giouring.Ring
	queue       *OperationQueue
	waitTimeout time.Duration
	operations  sync.Pool
	hijacked    sync.Map
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

func (r *Ring) AcquireOperation() *Operation {
	return r.operations.Get().(*Operation)
}

func (r *Ring) ReleaseOperation(op *Operation) {
	if op.reset() {
		r.operations.Put(op)
	}
}

func (r *Ring) Push(op *Operation) error {
	if r.queue.Enqueue(op) {
		return nil
	}
	return ErrQueueFull
}

// CancelOperation asks the kernel to cancel the in-flight request of target.
// The cancel's own completion is discarded by the completion loop.
func (r *Ring) CancelOperation(target *Operation) {
	op := r.AcquireOperation()
	op.prepareCancel(target)
	op.done.Store(true)
	op.hijacked.Store(true)
	r.hijacked.Store(op, struct{}{})
	if pushErr := r.Push(op); pushErr != nil {
		r.hijacked.Delete(op)
		op.hijacked.Store(false)
		op.done.Store(false)
		r.ReleaseOperation(op)
	}
}

// Await blocks until the operation's single completion arrives, or the
// context or the operation timeout ends the wait first. When the wait ends
// first the operation is hijacked, an async cancel is submitted, and the
// completion loop releases it when its completion eventually arrives, so
// the caller must not touch the operation. The caller releases the
// operation only when hijacked is false.
func (r *Ring) Await(ctx context.Context, op *Operation) (n int, hijacked bool, err error) {
	ch := op.ch
	if timeout := op.timeout; timeout > 0 {
		timer := acquireTimer(timeout)
		select {
		case res := <-ch:
			n, err = res.N, res.Err
			break
		case <-timer.C:
			n, hijacked, err = r.abandon(op, ErrTimeout)
			break
		case <-ctx.Done():
			n, hijacked, err = r.abandon(op, ctx.Err())
			break
		}
		releaseTimer(timer)
	} else {
		select {
		case res := <-ch:
			n, err = res.N, res.Err
			break
		case <-ctx.Done():
			n, hijacked, err = r.abandon(op, ctx.Err())
			break
		}
	}
	return
}

func (r *Ring) abandon(op *Operation, cause error) (n int, hijacked bool, err error) {
	op.hijacked.Store(true)
	if op.done.CompareAndSwap(false, true) {
		r.hijacked.Store(op, struct{}{})
		r.CancelOperation(op)
		hijacked = true
		err = errors.From(ErrUncompleted, errors.WithWrap(cause))
		return
	}
	// completion raced in, take its result instead
	op.hijacked.Store(false)
	res := <-op.ch
	n, err = res.N, res.Err
	return
}

// Accept submits one accept request and suspends until its completion.
// On success the accepted descriptor and the kernel filled sockaddr buffer
// are returned, the buffer's ownership moves to the caller.
func (r *Ring) Accept(ctx context.Context, fd int, timeout time.Duration) (accepted int, rsa *syscall.RawSockaddrAny, err error) {
	op := r.AcquireOperation()
	op.PrepareAccept(fd)
	op.SetTimeout(timeout)
	if pushErr := r.Push(op); pushErr != nil {
		r.ReleaseOperation(op)
		err = pushErr
		return
	}
	n, hijacked, awaitErr := r.Await(ctx, op)
	if hijacked {
		err = awaitErr
		return
	}
	if awaitErr != nil {
		r.ReleaseOperation(op)
		err = awaitErr
		return
	}
	accepted = n
	rsa = op.Sockaddr()
	r.ReleaseOperation(op)
	return
}

// Receive submits one recv request and suspends until its completion.
func (r *Ring) Receive(ctx context.Context, fd int, b []byte, timeout time.Duration) (n int, err error) {
	op := r.AcquireOperation()
	op.PrepareReceive(fd, b)
	op.SetTimeout(timeout)
	if pushErr := r.Push(op); pushErr != nil {
		r.ReleaseOperation(op)
		err = pushErr
		return
	}
	hijacked := false
	n, hijacked, err = r.Await(ctx, op)
	if !hijacked {
		r.ReleaseOperation(op)
	}
	return
}

// Send submits one send request and suspends until its completion.
func (r *Ring) Send(ctx context.Context, fd int, b []byte, timeout time.Duration) (n int, err error) {
	op := r.AcquireOperation()
	op.PrepareSend(fd, b)
	op.SetTimeout(timeout)
	if pushErr := r.Push(op); pushErr != nil {
		r.ReleaseOperation(op)
		err = pushErr
		return
	}
	hijacked := false
	n, hijacked, err = r.Await(ctx, op)
	if !hijacked {
		r.ReleaseOperation(op)
	}
	return
}

func (r *Ring) Start(ctx context.Context) {
	r.stopCh = make(chan struct{}, 1)
	r.listenSQ(ctx)
	r.listenCQ(ctx)
}

func (r *Ring) Stop() {
	if r.stopCh != nil {
		close(r.stopCh)
		r.wg.Wait()
	}
	r.ring.QueueExit()
}

func (r *Ring) listenSQ(ctx context.Context) {
	r.wg.Add(1)
	go func(ctx context.Context, r *Ring) {
		stopCh := r.stopCh
		queue := r.queue
		ready := make([]*Operation, queue.capacity)
		peekNothingTimes := 0
		stopped := false
		for {
			select {
			case <-ctx.Done():
				stopped = true
				break
			case <-stopCh:
				stopped = true
				break
			default:
				peeked := queue.PeekBatch(ready)
				if peeked == 0 {
					peekNothingTimes++
					if peekNothingTimes > 10 {
						peekNothingTimes = 0
						runtime.Gosched()
					} else {
						time.Sleep(500 * time.Nanosecond)
					}
					break
				}
				prepared := int64(0)
				for i := int64(0); i < peeked; i++ {
					op := ready[i]
					if op == nil {
						break
					}
					ready[i] = nil
					sqe := r.prepare(op)
					runtime.KeepAlive(op)
					if sqe == nil {
						// no SQE room, submit what is prepared
						break
					}
					prepared++
				}
				if prepared == 0 {
					break
				}
				for {
					_, submitErr := r.ring.Submit()
					if submitErr != nil {
						if errors.Is(submitErr, syscall.EAGAIN) || errors.Is(submitErr, syscall.EINTR) || errors.Is(submitErr, syscall.ETIME) {
							continue
						}
						break
					}
					r.queue.Advance(prepared)
					break
				}
				break
			}
			if stopped {
				break
			}
		}
		// evict what never reached the kernel
		if remains := r.queue.Len(); remains > 0 {
			peeked := r.queue.PeekBatch(ready)
			for i := int64(0); i < peeked; i++ {
				op := ready[i]
				ready[i] = nil
				if op.done.CompareAndSwap(false, true) {
					op.ch <- Result{
						N:   0,
						Err: ErrClosed,
					}
				} else if op.hijacked.CompareAndSwap(true, false) {
					r.hijacked.Delete(op)
					r.ReleaseOperation(op)
				}
			}
			r.queue.Advance(peeked)
		}
		r.wg.Done()
	}(ctx, r)
}

func (r *Ring) listenCQ(ctx context.Context) {
	r.wg.Add(1)
	go func(ctx context.Context, r *Ring) {
		stopCh := r.stopCh
		waitTimeout := syscall.NsecToTimespec(r.waitTimeout.Nanoseconds())
		cq := make([]*giouring.CompletionQueueEvent, r.queue.capacity)
		stopped := false
		for {
			select {
			case <-ctx.Done():
				stopped = true
				break
			case <-stopCh:
				stopped = true
				break
			default:
				if _, waitErr := r.ring.WaitCQEs(1, &waitTimeout, nil); waitErr != nil {
					break
				}
				completed := r.ring.PeekBatchCQE(cq)
				if completed == 0 {
					break
				}
				for i := uint32(0); i < completed; i++ {
					cqe := cq[i]
					cq[i] = nil
					if cqe.UserData == 0 {
						continue
					}
					cop := (*Operation)(unsafe.Pointer(uintptr(cqe.UserData)))
					if cop.done.CompareAndSwap(false, true) {
						var res int
						var err error
						if cqe.Res < 0 {
							err = syscall.Errno(-cqe.Res)
						} else {
							res = int(cqe.Res)
						}
						cop.ch <- Result{
							N:     res,
							Flags: cqe.Flags,
							Err:   err,
						}
					} else if cop.hijacked.CompareAndSwap(true, false) {
						// the awaiter gave up on this one, discard the
						// result safely and reclaim the operation
						if cop.kind == acceptOp && cqe.Res >= 0 {
							_ = syscall.Close(int(cqe.Res))
						}
						r.hijacked.Delete(cop)
						r.ReleaseOperation(cop)
					}
				}
				r.ring.CQAdvance(completed)
				break
			}
			if stopped {
				break
			}
		}
		r.wg.Done()
	}(ctx, r)
}

func (r *Ring) prepare(op *Operation) (sqe *giouring.SubmissionQueueEntry) {
	sqe = r.ring.GetSQE()
	if sqe == nil {
		return
	}
	switch op.kind {
	case acceptOp:
		addrPtr := uintptr(unsafe.Pointer(op.rsa))
		addrLenPtr := uint64(uintptr(unsafe.Pointer(&op.rsaLen)))
		sqe.PrepareAccept(op.fd, addrPtr, addrLenPtr, 0)
		break
	case receiveOp:
		var b uintptr
		if len(op.b) > 0 {
			b = uintptr(unsafe.Pointer(&op.b[0]))
		}
		sqe.PrepareRecv(op.fd, b, uint32(len(op.b)), 0)
		break
	case sendOp:
		var b uintptr
		if len(op.b) > 0 {
			b = uintptr(unsafe.Pointer(&op.b[0]))
		}
		sqe.PrepareSend(op.fd, b, uint32(len(op.b)), 0)
		break
	case cancelOp:
		sqe.PrepareCancel64(uint64(uintptr(op.target)), 0)
		break
	default:
		sqe.PrepareNop()
		break
	}
	sqe.SetData(unsafe.Pointer(op))
	runtime.KeepAlive(sqe)
	return
}
