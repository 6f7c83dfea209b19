package codec

import "testing"

func TestMagicBlockRoundTrip(t *testing.T) {
	b := make([]byte, BlockLen)
	FillMagicBlock(b)
	if i, ok := CheckMagicBlock(b); !ok {
		t.Fatalf("filled block rejected at byte %d", i)
	}
}

func TestMagicBlockMismatchIndex(t *testing.T) {
	b := make([]byte, BlockLen)
	FillMagicBlock(b)
	b[37] ^= 0xFF
	i, ok := CheckMagicBlock(b)
	if ok {
		t.Fatal("corrupted block accepted")
	}
	if i != 37 {
		t.Fatalf("mismatch index: got %d want 37", i)
	}
}
