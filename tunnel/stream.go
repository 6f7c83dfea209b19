package tunnel

import (
	"context"
	"io"

	"github.com/xtls/xray-core/common/errors"
	"github.com/xtls/xray-core/common/signal/done"
	"github.com/xtls/xray-core/common/task"

	"github.com/fujinet/macserial"
)

// Stream bridges the magic-sector channel to an io.ReadWriter: a command
// processor connection, a serial console, or anything else byte-oriented.
//
// Inbound stream bytes are pumped into a bounded queue in the background so
// the synchronous HandlePayload calls never block on the stream. Write-mode
// payload goes straight to the stream.
type Stream struct {
	ctx  context.Context
	rw   io.ReadWriter
	fifo *Fifo
	done *done.Instance
}

var _ macserial.PayloadHandler = (*Stream)(nil)

// NewStream starts the inbound pump and returns the handler.
func NewStream(ctx context.Context, rw io.ReadWriter) *Stream {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Stream{
		ctx:  ctx,
		rw:   rw,
		fifo: NewFifo(ctx),
		done: done.New(),
	}
	go s.pump()
	return s
}

func (s *Stream) pump() {
	err := task.Run(s.ctx, func() error {
		chunk := make([]byte, 512)
		for {
			if s.done.Done() {
				return nil
			}
			n, err := s.rw.Read(chunk)
			if n > 0 {
				s.fifo.Put(chunk[:n])
			}
			if err != nil {
				return err
			}
		}
	})
	if err != nil && err != io.EOF {
		errors.LogInfoInner(s.ctx, err, "macserial: stream pump ended")
	}
}

// HandlePayload implements macserial.PayloadHandler.
func (s *Stream) HandlePayload(p []byte, mode macserial.Mode) int {
	switch mode {
	case macserial.ModeRead:
		avail := s.fifo.Len()
		n := s.fifo.Get(p)
		logHexDump(s.ctx, p[:n])
		return avail

	case macserial.ModeWrite:
		logHexDump(s.ctx, p)
		n, err := s.rw.Write(p)
		if err != nil {
			errors.LogWarningInner(s.ctx, err, "macserial: stream write failed after ", n, " bytes")
		}
		return n
	}
	return 0
}

// Close stops the pump and closes the stream when it is closable.
func (s *Stream) Close() error {
	if c, ok := s.rw.(io.Closer); ok {
		_ = c.Close()
	}
	return s.done.Close()
}
