package macserial

// PayloadHandler consumes and produces the raw bytes carried over the
// magic-sector channel. Implementations are injected at construction time so
// production, loopback-test and console-test backends are interchangeable.
//
// For ModeRead the handler fills up to len(p) bytes of p and returns the
// total number of bytes it had available, which may exceed len(p); the
// excess signals the host that more data is pending for a future read.
//
// For ModeWrite the handler consumes up to len(p) bytes from p and returns
// the number of bytes it processed. Zero is acceptable.
//
// Calls are strictly serial; implementations are not required to be
// reentrant.
type PayloadHandler interface {
	HandlePayload(p []byte, mode Mode) int
}
