package macserial

// Mode is the direction of a sector transfer.
type Mode uint8

const (
	// ModeRead transfers device-to-host.
	ModeRead Mode = iota
	// ModeWrite transfers host-to-device.
	ModeWrite
)

func (m Mode) String() string {
	if m == ModeWrite {
		return "write"
	}
	return "read"
}
