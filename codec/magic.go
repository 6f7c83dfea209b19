package codec

// The handshake's magic write is a block consisting of repetitions of the
// host request tag. The check is advisory: hosts are accepted even when the
// pattern does not match, so a mismatch is only worth a log line.

// CheckMagicBlock reports whether b consists entirely of repetitions of
// RequestTag. When it does not, the index of the first mismatching byte is
// returned.
func CheckMagicBlock(b []byte) (int, bool) {
	for i := range b {
		if b[i] != RequestTag[i&3] {
			return i, false
		}
	}
	return 0, true
}

// FillMagicBlock fills b with the repeating RequestTag pattern.
func FillMagicBlock(b []byte) {
	for i := range b {
		b[i] = RequestTag[i&3]
	}
}
