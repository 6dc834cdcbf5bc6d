// Package buffers provides reusable copy buffers for streaming downloads.
package buffers

import (
	"sync"
	"sync/atomic"
)

// Pool hands out fixed-size byte buffers. Each download worker borrows one
// for the duration of a body copy instead of allocating per attachment.
type Pool struct {
	size   int
	pool   sync.Pool
	allocs atomic.Int64
	gets   atomic.Int64
}

// NewPool creates a pool of size-byte buffers. size < 1 is treated as 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{size: size}
	p.pool.New = func() interface{} {
		p.allocs.Add(1)
		buf := make([]byte, p.size)
		return &buf
	}
	return p
}

// Size returns the buffer length handed out by Get.
func (p *Pool) Size() int {
	return p.size
}

// Get retrieves a buffer. Return it with Put when done.
//
//	buf := pool.Get()
//	defer pool.Put(buf)
//	n, err := io.CopyBuffer(dst, src, *buf)
func (p *Pool) Get() *[]byte {
	p.gets.Add(1)
	return p.pool.Get().(*[]byte)
}

// Put returns buf to the pool. Buffers of the wrong size are dropped.
// The contents are cleared so attachment bytes do not linger.
func (p *Pool) Put(buf *[]byte) {
	if buf == nil || len(*buf) != p.size {
		return
	}
	clear(*buf)
	p.pool.Put(buf)
}

// Stats describes pool usage.
type Stats struct {
	BufferSize  int
	Allocations int64 // buffers created
	Gets        int64 // buffers handed out
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	return Stats{
		BufferSize:  p.size,
		Allocations: p.allocs.Load(),
		Gets:        p.gets.Load(),
	}
}
