package tunnel

import (
	"context"
	"fmt"
	"strings"

	"github.com/xtls/xray-core/common/errors"
)

// logHexDump emits the first bytes of p as printable characters plus hex,
// mirroring the firmware debug dumps.
func logHexDump(ctx context.Context, p []byte) {
	n := len(p)
	if n > 15 {
		n = 15
	}
	var text, raw strings.Builder
	for _, c := range p[:n] {
		if c >= 0x20 && c < 0x7F {
			text.WriteByte(c)
		} else {
			text.WriteByte('.')
		}
		fmt.Fprintf(&raw, "%02x ", c)
	}
	errors.LogDebug(ctx, "macserial: '", text.String(), "' ", raw.String())
}
