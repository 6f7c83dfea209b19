package emu

import (
	"context"
	"os"

	"github.com/xtls/xray-core/common/errors"

	"github.com/fujinet/macserial"
	"github.com/fujinet/macserial/codec"
)

// TagLen is the per-sector tag storage carried alongside each block.
const TagLen = codec.HeaderLen

// Device is an image-backed floppy with 512-byte blocks and 12-byte sector
// tags. Every transfer consults the serial bridge first; the image is only
// touched when the bridge declines the request.
//
// Calls are not internally locked: the surrounding server serializes all
// sector I/O, matching the single-handshake session of the bridge.
type Device struct {
	ctx    context.Context
	bridge *macserial.Bridge
	drive  uint8

	blocks []byte
	tags   []byte
}

// NewDevice creates a blank device with the given number of sectors.
func NewDevice(ctx context.Context, bridge *macserial.Bridge, drive uint8, sectors int) *Device {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Device{
		ctx:    ctx,
		bridge: bridge,
		drive:  drive,
		blocks: make([]byte, sectors*codec.BlockLen),
		tags:   make([]byte, sectors*TagLen),
	}
}

// NewDeviceFromImage creates a device backed by a copy of a raw sector image.
func NewDeviceFromImage(ctx context.Context, bridge *macserial.Bridge, drive uint8, image []byte) (*Device, error) {
	if len(image) == 0 || len(image)%codec.BlockLen != 0 {
		return nil, errors.New("emu: image size ", len(image), " is not a multiple of ", codec.BlockLen)
	}
	d := NewDevice(ctx, bridge, drive, len(image)/codec.BlockLen)
	copy(d.blocks, image)
	return d, nil
}

// LoadImage creates a device backed by the image file at path.
func LoadImage(ctx context.Context, bridge *macserial.Bridge, drive uint8, path string) (*Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("emu: failed to read image ", path).Base(err)
	}
	return NewDeviceFromImage(ctx, bridge, drive, data)
}

// Drive returns the drive identifier.
func (d *Device) Drive() uint8 {
	return d.drive
}

// Sectors returns the number of sectors on the device.
func (d *Device) Sectors() int {
	return len(d.blocks) / codec.BlockLen
}

// Image returns the backing sector data.
func (d *Device) Image() []byte {
	return d.blocks
}

// ReadSector fills tags and block for one sector. Stored tags are staged
// before the bridge runs so handshake responses emitted into the tag buffer
// survive to the host instead of being overwritten from the media.
func (d *Device) ReadSector(sector uint32, tags, block []byte) error {
	if err := d.checkBuffers(tags, block); err != nil {
		return err
	}
	inRange := int(sector) < d.Sectors()
	if inRange {
		copy(tags[:TagLen], d.tags[int(sector)*TagLen:])
	}
	if d.bridge.TryHandle(d.drive, sector, tags, block, macserial.ModeRead) {
		return nil
	}
	if !inRange {
		return errors.New("emu: read of sector ", sector, " beyond ", d.Sectors())
	}
	copy(block[:codec.BlockLen], d.blocks[int(sector)*codec.BlockLen:])
	return nil
}

// WriteSector stores tags and block for one sector unless the bridge claims
// the transfer. Tag mutations made by the bridge are left in the caller's
// buffer either way.
func (d *Device) WriteSector(sector uint32, tags, block []byte) error {
	if err := d.checkBuffers(tags, block); err != nil {
		return err
	}
	if d.bridge.TryHandle(d.drive, sector, tags, block, macserial.ModeWrite) {
		return nil
	}
	if int(sector) >= d.Sectors() {
		return errors.New("emu: write of sector ", sector, " beyond ", d.Sectors())
	}
	copy(d.blocks[int(sector)*codec.BlockLen:], block[:codec.BlockLen])
	copy(d.tags[int(sector)*TagLen:], tags[:TagLen])
	return nil
}

func (d *Device) checkBuffers(tags, block []byte) error {
	if len(tags) < TagLen {
		return errors.New("emu: tag buffer too small: ", len(tags))
	}
	if len(block) < codec.BlockLen {
		return errors.New("emu: block buffer too small: ", len(block))
	}
	return nil
}
