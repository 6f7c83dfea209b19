package codec

import (
	"bytes"
	"encoding/binary"
)

// Frame header wire format (12 bytes):
//
//	[Tag:4B ASCII][Reserved:2B zero][Length:2B big-endian][Reserved:4B zero]
//
// The tag carries the transfer direction: RequestTag for host-to-device,
// ReplyTag for device-to-host. Along with a maximum payload of 500 bytes the
// header fills a 512-byte block. During handshaking the same layout is
// emitted into the sector tags.

const (
	// HeaderLen is the size of the frame header.
	HeaderLen = 12

	// BlockLen is the size of one logical disk block.
	BlockLen = 512

	// MaxPayload is the payload capacity of one block after the header.
	MaxPayload = BlockLen - HeaderLen

	// NegativeLBA is the out-of-range sentinel address. A request to this
	// address is always channel I/O, never storage.
	NegativeLBA = 0x007FFFFF
)

var (
	// RequestTag marks host-to-device transfers.
	RequestTag = [4]byte{'N', 'D', 'E', 'V'}

	// ReplyTag marks device-to-host transfers.
	ReplyTag = [4]byte{'F', 'U', 'J', 'I'}
)

// PutHeader writes a device-to-host frame header into b, which must hold at
// least HeaderLen bytes. The caller guarantees length fits the block it
// describes.
func PutHeader(b []byte, length uint16) {
	copy(b[0:4], ReplyTag[:])
	b[4] = 0
	b[5] = 0
	binary.BigEndian.PutUint16(b[6:8], length)
	b[8] = 0
	b[9] = 0
	b[10] = 0
	b[11] = 0
}

// ParseHeader decodes a host-to-device frame header from b. The second return
// value is false when b does not start with RequestTag; that is a normal
// outcome, not an error. The returned length is not validated against any
// capacity; callers must clamp it.
func ParseHeader(b []byte) (uint16, bool) {
	if len(b) < HeaderLen || !bytes.Equal(b[0:4], RequestTag[:]) {
		return 0, false
	}
	return binary.BigEndian.Uint16(b[6:8]), true
}
