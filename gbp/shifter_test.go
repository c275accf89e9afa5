package gbp

import "testing"

func TestShifterByteRoundTrip(t *testing.T) {
	const txByte = 0xA5
	const rxByte = 0x3C

	var s Shifter
	s.Begin(ModeByte, uint16(txByte))

	var gotTx uint8
	for bit := 7; bit >= 0; bit-- {
		o, done := s.StepDual(false, false) // falling: prepare next out bit
		if done {
			t.Fatalf("StepDual reported done on a falling edge")
		}
		if o {
			gotTx |= 1 << uint(bit)
		}
		in := rxByte&(1<<uint(bit)) != 0
		_, done = s.StepDual(true, in) // rising: sample
		if done != (bit == 0) {
			t.Fatalf("StepDual done=%v at bit %d, want done only at bit 0", done, bit)
		}
	}

	if gotTx != txByte {
		t.Fatalf("shifted-out byte = %#x, want %#x", gotTx, uint8(txByte))
	}
	if got := s.Byte(); got != rxByte {
		t.Fatalf("Byte() = %#x, want %#x", got, uint8(rxByte))
	}
}

func TestShifterWordLESwapsByteOrder(t *testing.T) {
	var s Shifter
	s.Begin(ModeWordLE, 0x1234)

	// Begin byte-swaps tx to 0x3412 so the wire's first byte is 0x34:
	// the very first output bit must be 0x34's MSB.
	o, _ := s.StepDual(false, false)
	if o != (0x34&0x80 != 0) {
		t.Fatalf("first output bit did not reflect byte-swapped tx")
	}
}

func TestShifterWordLEDecodesWireOrder(t *testing.T) {
	var s Shifter
	s.Begin(ModeWordLE, 0)

	// Clock in the wire bytes 0x34 (low byte) then 0x12 (high byte),
	// MSB first, matching a little-endian 0x1234 on the wire.
	feed := []uint8{0x34, 0x12}
	for _, b := range feed {
		for bit := 7; bit >= 0; bit-- {
			s.StepDual(false, false)
			s.StepDual(true, b&(1<<uint(bit)) != 0)
		}
	}

	if got := s.Word(); got != 0x1234 {
		t.Fatalf("Word() = %#x, want 0x1234", got)
	}
}

func TestSynchroniserMatchesPreamble(t *testing.T) {
	var s synchroniser
	word := uint16(preambleWord)
	matchedAt := -1
	for i := 0; i < 16; i++ {
		bit := word&(1<<uint(15-i)) != 0
		if s.observe(bit) {
			matchedAt = i
		}
	}
	if matchedAt != 15 {
		t.Fatalf("synchroniser matched at bit %d, want 15 (last bit of preamble)", matchedAt)
	}
	if !s.synchronised() {
		t.Fatalf("expected synchronised() true after a preamble match")
	}
}
