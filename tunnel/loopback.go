package tunnel

import (
	"context"

	"github.com/xtls/xray-core/common/errors"

	"github.com/fujinet/macserial"
)

// Loopback is a test payload handler that echoes every write back to
// subsequent reads through the bounded queue.
type Loopback struct {
	ctx  context.Context
	fifo *Fifo
}

var _ macserial.PayloadHandler = (*Loopback)(nil)

// NewLoopback creates an empty loopback handler.
func NewLoopback(ctx context.Context) *Loopback {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Loopback{ctx: ctx, fifo: NewFifo(ctx)}
}

// HandlePayload implements macserial.PayloadHandler.
func (l *Loopback) HandlePayload(p []byte, mode macserial.Mode) int {
	switch mode {
	case macserial.ModeRead:
		avail := l.fifo.Len()
		n := l.fifo.Get(p)
		errors.LogDebug(l.ctx, "macserial: loopback read request, ", avail, " bytes available")
		logHexDump(l.ctx, p[:n])
		return avail

	case macserial.ModeWrite:
		errors.LogDebug(l.ctx, "macserial: loopback write request, len ", len(p))
		logHexDump(l.ctx, p)
		l.fifo.Put(p)
		return len(p)
	}
	return 0
}
