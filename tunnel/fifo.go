package tunnel

import (
	"context"
	"sync"

	"github.com/xtls/xray-core/common/errors"
)

// FifoCapacity matches the queue depth of the device firmware.
const FifoCapacity = 2000

// Fifo is a bounded byte queue. Enqueueing past capacity drops the data with
// a logged warning instead of blocking or growing; callers relying on it
// must accept that backpressure is data loss.
//
// The queue is safe for use by a stream pump goroutine feeding it while the
// bridge drains it.
type Fifo struct {
	ctx context.Context

	mu  sync.Mutex
	buf [FifoCapacity]byte
	n   int
}

// NewFifo creates an empty queue. ctx is used for log attribution only.
func NewFifo(ctx context.Context) *Fifo {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Fifo{ctx: ctx}
}

// Len returns the number of queued bytes.
func (f *Fifo) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// Put appends p to the queue. When p does not fit in the remaining space the
// whole chunk is dropped.
func (f *Fifo) Put(p []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n+len(p) > len(f.buf) {
		errors.LogWarning(f.ctx, "macserial: fifo overflow, dropping ", len(p), " bytes")
		return
	}
	copy(f.buf[f.n:], p)
	f.n += len(p)
}

// Get moves up to len(p) queued bytes into p and returns how many were
// moved.
func (f *Fifo) Get(p []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.n
	if n > len(p) {
		n = len(p)
	}
	copy(p, f.buf[:n])
	copy(f.buf[:], f.buf[n:f.n])
	f.n -= n
	return n
}

// Write implements io.Writer with the same drop-on-overflow contract as Put.
// It never reports an error so an upstream copy loop keeps running across
// overflows.
func (f *Fifo) Write(p []byte) (int, error) {
	f.Put(p)
	return len(p), nil
}
