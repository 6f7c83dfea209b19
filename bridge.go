package macserial

import (
	"context"
	"encoding/binary"

	"github.com/xtls/xray-core/common/errors"

	"github.com/fujinet/macserial/codec"
)

// State is the handshake phase of the bridge.
type State uint8

const (
	// WaitKnock is the idle state, listening for the knock sequence.
	WaitKnock State = iota
	// WaitMagicWrite waits for the host to write a full-block magic pattern.
	WaitMagicWrite
	// WaitMagicRead waits for the host to read the negotiated sector back.
	WaitMagicRead
	// WaitMagicSector is the negotiated steady state: all I/O on the agreed
	// drive and sector is channel traffic.
	WaitMagicSector
)

func (s State) String() string {
	switch s {
	case WaitKnock:
		return "wait-knock"
	case WaitMagicWrite:
		return "wait-magic-write"
	case WaitMagicRead:
		return "wait-magic-read"
	case WaitMagicSector:
		return "wait-magic-sector"
	}
	return "invalid"
}

// Bridge is the virtual device behind the sector interface. It owns the
// process-wide handshake session: only one handshake may be in progress, and
// TryHandle must be invoked strictly serially by the surrounding disk
// emulation layer.
type Bridge struct {
	ctx     context.Context
	handler PayloadHandler

	knock  codec.KnockDetector
	state  State
	drive  uint8
	sector uint32
}

// NewBridge creates an idle bridge that forwards channel payload to handler.
func NewBridge(ctx context.Context, handler PayloadHandler) *Bridge {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Bridge{ctx: ctx, handler: handler}
}

// State returns the current handshake phase.
func (b *Bridge) State() State {
	return b.state
}

// Selected returns the negotiated drive and sector. The drive is valid from
// WaitMagicWrite on, the sector from WaitMagicRead on.
func (b *Bridge) Selected() (drive uint8, sector uint32) {
	return b.drive, b.sector
}

// TryHandle gives the virtual device first dibs on a sector transfer. It
// must be called before any real disk access. When it returns true, tags and
// block have been filled with the response and the disk must not be touched.
// When it returns false the caller proceeds with ordinary disk I/O, but tags
// may still have been modified during handshaking and must be returned to
// the host as modified regardless.
//
// tags must hold at least 12 bytes, block exactly one 512-byte sector.
func (b *Bridge) TryHandle(drive uint8, sector uint32, tags, block []byte, mode Mode) bool {
	if len(tags) < codec.HeaderLen || len(block) < codec.BlockLen {
		errors.LogWarning(b.ctx, "macserial: undersized buffers on ", mode, " request, tags=", len(tags), " block=", len(block))
		return false
	}

	if sector == codec.NegativeLBA {
		// Hosts that cannot perform the four-step handshake use the
		// sentinel address as channel I/O directly.
		errors.LogInfo(b.ctx, "macserial: negative LBA request on drive ", drive)
		b.magicSectorIO(tags, block, mode)
		if b.state != WaitMagicSector {
			b.state = WaitKnock
		}
		return true
	}

	// The knock sequence may be sent at any time, superseding an
	// in-progress handshake.
	if b.knock.Feed(sector) {
		b.state = WaitMagicWrite
		b.drive = drive
		b.sector = 0
		errors.LogInfo(b.ctx, "macserial: knock sequence complete, using drive ", drive)

		// Answer with device tags so the host knows a device is present.
		codec.PutHeader(tags, 0)
	}

	switch b.state {
	case WaitKnock:
		// Idle. Everything is ordinary disk traffic.

	case WaitMagicWrite:
		if mode == ModeWrite && drive == b.drive {
			// The pattern check is advisory; any full-block write on the
			// selected drive completes this step.
			if i, ok := codec.CheckMagicBlock(block[:codec.BlockLen]); !ok {
				errors.LogDebug(b.ctx, "macserial: magic block mismatch at byte ", i)
			}
			b.sector = sector
			b.state = WaitMagicRead
			errors.LogInfo(b.ctx, "macserial: using sector ", sector, " for channel I/O")
			return true
		}

	case WaitMagicRead:
		if mode == ModeRead && drive == b.drive && sector == b.sector {
			codec.PutHeader(tags, 8)
			copy(block[0:4], codec.ReplyTag[:])
			binary.BigEndian.PutUint32(block[4:8], b.sector)
			b.state = WaitMagicSector
			errors.LogInfo(b.ctx, "macserial: handshake complete on drive ", b.drive, ", sector ", b.sector)
			return true
		}
		errors.LogDebug(b.ctx, "macserial: got ", mode, " to sector ", sector, ", drive ", drive, " while waiting for magic read")

	case WaitMagicSector:
		if drive == b.drive && sector == b.sector {
			return b.magicSectorIO(tags, block, mode)
		}
		if sector == b.sector {
			errors.LogDebug(b.ctx, "macserial: magic sector request on drive ", drive, ", channel is on drive ", b.drive)
		}
	}
	return false
}
