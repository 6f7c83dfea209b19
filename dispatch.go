package macserial

import (
	"github.com/xtls/xray-core/common/errors"

	"github.com/fujinet/macserial/codec"
)

// magicSectorIO frames and unframes channel payload on a transfer to the
// negotiated sector and forwards the raw bytes to the payload handler.
func (b *Bridge) magicSectorIO(tags, block []byte, mode Mode) bool {
	switch mode {
	case ModeRead:
		avail := b.handler.HandlePayload(block[codec.HeaderLen:codec.BlockLen], ModeRead)
		if avail < 0 {
			avail = 0
		}
		if avail > 0xFFFF {
			avail = 0xFFFF
		}
		codec.PutHeader(block, uint16(avail))
		return true

	case ModeWrite:
		// The header travels either in the sector tags (payload at offset
		// zero) or at the start of the block itself.
		length, inTags := codec.ParseHeader(tags)
		if !inTags {
			var ok bool
			length, ok = codec.ParseHeader(block)
			if !ok {
				errors.LogWarning(b.ctx, "macserial: magic sector write without a valid header")
				return false
			}
		}
		offset := 0
		if !inTags {
			offset = codec.HeaderLen
		}
		if int(length) > codec.BlockLen-offset {
			errors.LogWarning(b.ctx, "macserial: declared write length ", length, " exceeds capacity, clamping")
			length = uint16(codec.BlockLen - offset)
		}
		b.handler.HandlePayload(block[offset:offset+int(length)], ModeWrite)
		return true
	}
	return false
}
