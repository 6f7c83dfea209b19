package codec

// KnockSequence is the fixed list of sector addresses a host reads, in
// order, to announce that its driver is present. The addresses are a signal,
// not storage locations.
var KnockSequence = [5]uint32{0, 70, 85, 74, 73}

// KnockDetector matches KnockSequence across successive sector addresses.
// The sequence is matched purely by value at successive matching calls, so a
// non-matching address simply restarts detection; it does not need the five
// addresses to arrive back to back.
//
// The zero value is ready to use.
type KnockDetector struct {
	progress int
}

// Feed compares sector against the next expected sequence element. It
// returns true exactly when sector completes the sequence, after which the
// detector is reset for a fresh run. Any mismatch resets progress to zero.
func (d *KnockDetector) Feed(sector uint32) bool {
	if sector != KnockSequence[d.progress] {
		d.progress = 0
		return false
	}
	d.progress++
	if d.progress == len(KnockSequence) {
		d.progress = 0
		return true
	}
	return false
}

// Progress returns how many sequence elements have been matched so far.
func (d *KnockDetector) Progress() int {
	return d.progress
}
