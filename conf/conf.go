package conf

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/xtls/xray-core/common/errors"

	"github.com/fujinet/macserial"
	"github.com/fujinet/macserial/emu"
	"github.com/fujinet/macserial/tunnel"
)

// DefaultSectors is the size of a blank drive: an 800K Macintosh floppy.
const DefaultSectors = 1600

// DriveConfig describes one emulated drive.
type DriveConfig struct {
	Drive   uint8  `json:"drive"`
	Image   string `json:"image"`
	Sectors int    `json:"sectors"`
}

// Config is the JSON configuration of the block server.
type Config struct {
	Listen  string        `json:"listen"`
	Handler string        `json:"handler"` // loopback, console or remote
	Remote  string        `json:"remote"`
	Drives  []DriveConfig `json:"drives"`
}

// Load reads and decodes a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("conf: failed to read ", path).Base(err)
	}
	c := &Config{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.New("conf: failed to parse ", path).Base(err)
	}
	return c, nil
}

// Build validates the configuration and constructs the runtime objects. The
// returned cleanup function releases the payload handler and must be called
// on shutdown.
func (c *Config) Build(ctx context.Context) (*emu.Server, func(), error) {
	if len(c.Drives) == 0 {
		return nil, nil, errors.New(`conf: "drives" must not be empty`)
	}

	handler, cleanup, err := c.buildHandler(ctx)
	if err != nil {
		return nil, nil, err
	}

	bridge := macserial.NewBridge(ctx, handler)

	devices := make([]*emu.Device, 0, len(c.Drives))
	seen := make(map[uint8]bool, len(c.Drives))
	for _, dc := range c.Drives {
		if seen[dc.Drive] {
			cleanup()
			return nil, nil, errors.New("conf: duplicate drive ", dc.Drive)
		}
		seen[dc.Drive] = true

		var dev *emu.Device
		if dc.Image != "" {
			dev, err = emu.LoadImage(ctx, bridge, dc.Drive, dc.Image)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
		} else {
			sectors := dc.Sectors
			if sectors <= 0 {
				sectors = DefaultSectors
			}
			dev = emu.NewDevice(ctx, bridge, dc.Drive, sectors)
		}
		devices = append(devices, dev)
	}

	return emu.NewServer(ctx, devices...), cleanup, nil
}

func (c *Config) buildHandler(ctx context.Context) (macserial.PayloadHandler, func(), error) {
	switch strings.ToLower(c.Handler) {
	case "", "loopback":
		return tunnel.NewLoopback(ctx), func() {}, nil

	case "console":
		s, restore, err := tunnel.NewConsole(ctx)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { restore(); _ = s.Close() }, nil

	case "remote":
		if c.Remote == "" {
			return nil, nil, errors.New(`conf: handler "remote" requires "remote" address`)
		}
		s, err := tunnel.NewRemote(ctx, c.Remote)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	return nil, nil, errors.New("conf: unknown handler ", c.Handler)
}
