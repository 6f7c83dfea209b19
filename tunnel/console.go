package tunnel

import (
	"context"
	"os"

	"github.com/xtls/xray-core/common/errors"
	"golang.org/x/term"
)

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// NewConsole returns a Stream handler over stdin/stdout, the interactive
// equivalent of the firmware's USB-serial test backend. When stdin is a
// terminal it is switched to raw mode so channel bytes pass through
// unmodified; the returned restore function undoes that and must be called
// on shutdown.
func NewConsole(ctx context.Context) (*Stream, func(), error) {
	restore := func() {}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, nil, errors.New("macserial: failed to enter raw mode").Base(err)
		}
		restore = func() { _ = term.Restore(fd, state) }
	}
	return NewStream(ctx, stdio{}), restore, nil
}
