package tunnel

import (
	"context"
	"net"

	"github.com/xtls/xray-core/common/errors"
)

// NewRemote dials a command processor at addr and bridges the channel to the
// connection.
func NewRemote(ctx context.Context, addr string) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.New("macserial: failed to dial command processor at ", addr).Base(err)
	}
	errors.LogInfo(ctx, "macserial: channel bridged to ", addr)
	return NewStream(ctx, conn), nil
}
