package tunnel

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/fujinet/macserial"
)

func TestStreamWriteReachesPeer(t *testing.T) {
	local, remote := net.Pipe()
	s := NewStream(context.Background(), local)
	defer s.Close()

	want := []byte("payload out")
	got := make([]byte, len(want))
	done := make(chan error, 1)
	go func() {
		_, err := remote.Read(got)
		done <- err
	}()

	if n := s.HandlePayload(want, macserial.ModeWrite); n != len(want) {
		t.Fatalf("write: got %d want %d", n, len(want))
	}
	if err := <-done; err != nil {
		t.Fatalf("peer read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("peer received %q", got)
	}
}

func TestStreamReadDrainsPump(t *testing.T) {
	local, remote := net.Pipe()
	s := NewStream(context.Background(), local)
	defer s.Close()
	defer remote.Close()

	want := []byte("payload in")
	if _, err := remote.Write(want); err != nil {
		t.Fatalf("peer write: %v", err)
	}

	// The pump delivers asynchronously; poll until the bytes arrive.
	p := make([]byte, 64)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if avail := s.HandlePayload(p, macserial.ModeRead); avail > 0 {
			if avail != len(want) || !bytes.Equal(p[:avail], want) {
				t.Fatalf("got %d bytes %q", avail, p[:avail])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("pump never delivered the payload")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamCloseStopsPump(t *testing.T) {
	local, remote := net.Pipe()
	s := NewStream(context.Background(), local)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// The peer sees the closed pipe rather than a hung pump.
	if _, err := remote.Write([]byte("x")); err == nil {
		t.Fatal("write to closed stream succeeded")
	}
}
