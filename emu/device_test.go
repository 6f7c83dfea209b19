package emu

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/fujinet/macserial"
	"github.com/fujinet/macserial/codec"
	"github.com/fujinet/macserial/tunnel"
)

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	ctx := context.Background()
	bridge := macserial.NewBridge(ctx, tunnel.NewLoopback(ctx))
	return NewDevice(ctx, bridge, 1, 200)
}

func newBuffers() (tags, block []byte) {
	return make([]byte, TagLen), make([]byte, codec.BlockLen)
}

func TestOrdinarySectorRoundTrip(t *testing.T) {
	d := newTestDevice(t)

	tags, block := newBuffers()
	copy(block, "ordinary data")
	copy(tags, "tagtagtagtag")
	if err := d.WriteSector(120, tags, block); err != nil {
		t.Fatalf("write: %v", err)
	}

	tags, block = newBuffers()
	if err := d.ReadSector(120, tags, block); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(block, []byte("ordinary data")) {
		t.Fatalf("block: %q", block[:16])
	}
	if !bytes.Equal(tags, []byte("tagtagtagtag")) {
		t.Fatalf("tags: %q", tags)
	}
}

func TestOutOfRangeSector(t *testing.T) {
	d := newTestDevice(t)
	tags, block := newBuffers()
	if err := d.ReadSector(200, tags, block); err == nil {
		t.Fatal("read beyond device succeeded")
	}
	if err := d.WriteSector(200, tags, block); err == nil {
		t.Fatal("write beyond device succeeded")
	}
}

// negotiateDevice completes the handshake through the device interface, the
// way a host driver would.
func negotiateDevice(t *testing.T, d *Device, sector uint32) {
	t.Helper()
	for _, s := range codec.KnockSequence {
		tags, block := newBuffers()
		if err := d.ReadSector(s, tags, block); err != nil {
			t.Fatalf("knock read %d: %v", s, err)
		}
	}

	tags, block := newBuffers()
	codec.FillMagicBlock(block)
	if err := d.WriteSector(sector, tags, block); err != nil {
		t.Fatalf("magic write: %v", err)
	}

	tags, block = newBuffers()
	if err := d.ReadSector(sector, tags, block); err != nil {
		t.Fatalf("magic read: %v", err)
	}
	if got := binary.BigEndian.Uint32(block[4:8]); got != sector {
		t.Fatalf("negotiated sector: got %d want %d", got, sector)
	}
}

func TestKnockReplyTagsSurviveMediaRead(t *testing.T) {
	d := newTestDevice(t)

	var lastTags []byte
	for _, s := range codec.KnockSequence {
		tags, block := newBuffers()
		if err := d.ReadSector(s, tags, block); err != nil {
			t.Fatalf("knock read %d: %v", s, err)
		}
		lastTags = tags
	}
	// The presence reply emitted into the tags must not be overwritten by
	// the stored (zero) tags of the knock sector.
	if !bytes.Equal(lastTags[0:4], codec.ReplyTag[:]) {
		t.Fatalf("presence reply lost: tags %q", lastTags[0:4])
	}
}

func TestMagicSectorDoesNotTouchImage(t *testing.T) {
	d := newTestDevice(t)

	// Seed the future magic sector with known media content.
	tags, block := newBuffers()
	copy(block, "media content")
	if err := d.WriteSector(42, tags, block); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	negotiateDevice(t, d, 42)

	// Channel write: header in block, payload behind it.
	tags, block = newBuffers()
	codec.PutHeader(block, 5)
	copy(block[0:4], codec.RequestTag[:])
	copy(block[codec.HeaderLen:], "hello")
	if err := d.WriteSector(42, tags, block); err != nil {
		t.Fatalf("channel write: %v", err)
	}

	// The media still holds the pre-handshake content.
	if !bytes.HasPrefix(d.Image()[42*codec.BlockLen:], []byte("media content")) {
		t.Fatal("channel write leaked into the image")
	}

	// Channel read returns the loopback echo, not media.
	tags, block = newBuffers()
	if err := d.ReadSector(42, tags, block); err != nil {
		t.Fatalf("channel read: %v", err)
	}
	if got := binary.BigEndian.Uint16(block[6:8]); got != 5 {
		t.Fatalf("channel availability: got %d want 5", got)
	}
	if !bytes.Equal(block[codec.HeaderLen:codec.HeaderLen+5], []byte("hello")) {
		t.Fatalf("channel payload: %q", block[codec.HeaderLen:codec.HeaderLen+5])
	}
}

func TestImageSizeValidation(t *testing.T) {
	ctx := context.Background()
	bridge := macserial.NewBridge(ctx, tunnel.NewLoopback(ctx))
	if _, err := NewDeviceFromImage(ctx, bridge, 1, make([]byte, 1000)); err == nil {
		t.Fatal("odd-sized image accepted")
	}
	d, err := NewDeviceFromImage(ctx, bridge, 1, make([]byte, 10*codec.BlockLen))
	if err != nil {
		t.Fatalf("image rejected: %v", err)
	}
	if d.Sectors() != 10 {
		t.Fatalf("sectors: got %d want 10", d.Sectors())
	}
}
