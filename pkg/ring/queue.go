//go:build linux

package ring

import (
	"sync/atomic"
	"unsafe"
)

func roundupPow2(n int) int {
	v := 1
	for v < n {
		v <<= 1
	}
	return v
}

func NewOperationQueue(n int) (queue *OperationQueue) {
	if n < 1 {
		n = 16384
	}
	n = roundupPow2(n)
	queue = &OperationQueue{
		head:     nil,
		tail:     nil,
		entries:  0,
		capacity: int64(n),
	}
	hn := &operationQueueNode{
		value: nil,
		next:  nil,
	}
	queue.head = unsafe.Pointer(hn)
	queue.tail = unsafe.Pointer(hn)

	for i := 1; i < n; i++ {
		next := &operationQueueNode{}
		tail := (*operationQueueNode)(atomic.LoadPointer(&queue.tail))
		tail.next = unsafe.Pointer(next)
		atomic.CompareAndSwapPointer(&queue.tail, queue.tail, unsafe.Pointer(next))
	}

	tail := (*operationQueueNode)(atomic.LoadPointer(&queue.tail))
	tail.next = queue.head

	queue.tail = queue.head
	return
}

type operationQueueNode struct {
	value unsafe.Pointer
	next  unsafe.Pointer
}

// OperationQueue is a bounded lock free ring of pending submissions. The
// submission loop peeks a batch, turns each entry into an SQE and advances.
type OperationQueue struct {
	head     unsafe.Pointer
	tail     unsafe.Pointer
	entries  int64
	capacity int64
}

func (queue *OperationQueue) Enqueue(op *Operation) (ok bool) {
	ptr := unsafe.Pointer(op)
	for {
		if atomic.LoadInt64(&queue.entries) >= queue.capacity {
			break
		}
		tail := (*operationQueueNode)(atomic.LoadPointer(&queue.tail))
		if tail.value != nil {
			continue
		}
		if atomic.CompareAndSwapPointer(&tail.value, tail.value, ptr) {
			for {
				if atomic.CompareAndSwapPointer(&queue.tail, queue.tail, tail.next) {
					atomic.AddInt64(&queue.entries, 1)
					ok = true
					return
				}
			}
		}
	}
	return
}

func (queue *OperationQueue) PeekBatch(operations []*Operation) (n int64) {
	size := int64(len(operations))
	if size == 0 {
		return
	}
	if num := atomic.LoadInt64(&queue.entries); num < size {
		size = num
	}
	node := (*operationQueueNode)(atomic.LoadPointer(&queue.head))
	for i := int64(0); i < size; i++ {
		if node.value == nil {
			break
		}
		target := atomic.LoadPointer(&node.value)
		node = (*operationQueueNode)(atomic.LoadPointer(&node.next))
		operations[i] = (*Operation)(target)
		n++
	}
	return
}

func (queue *OperationQueue) Advance(n int64) {
	for i := int64(0); i < n; i++ {
		head := (*operationQueueNode)(atomic.LoadPointer(&queue.head))
		atomic.StorePointer(&head.value, nil)
		if atomic.CompareAndSwapPointer(&queue.head, queue.head, head.next) {
			atomic.AddInt64(&queue.entries, -1)
		}
	}
	return
}

func (queue *OperationQueue) Len() int64 {
	return atomic.LoadInt64(&queue.entries)
}

func (queue *OperationQueue) Cap() int64 {
	return queue.capacity
}
