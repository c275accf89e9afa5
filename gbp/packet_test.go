package gbp

import "testing"

// feedBytes drives an Engine through the dual-edge discipline with a
// CPOL=1/CPHA=1 bit pattern: a falling edge presents the next output
// bit, a rising edge samples the input bit. Each byte is shifted out
// most-significant-bit first, matching the wire order of a
// real Game Boy Printer transfer.
func feedBytes(e *Engine, data []byte) {
	for _, b := range data {
		for bit := 7; bit >= 0; bit-- {
			in := b&(1<<uint(bit)) != 0
			e.OnEdge(false, false) // falling: engine prepares its next output bit
			e.OnEdge(true, in)     // rising: master's bit is sampled
		}
	}
}

func checksumOf(command, compression byte, length uint16, payload []byte) uint16 {
	sum := uint16(command) + uint16(compression) + uint16(uint8(length)) + uint16(uint8(length>>8))
	for _, b := range payload {
		sum += uint16(b)
	}
	return sum
}

func buildPacket(command, compression byte, payload []byte) []byte {
	length := uint16(len(payload))
	sum := checksumOf(command, compression, length, payload)
	buf := []byte{0x88, 0x33, command, compression, byte(length), byte(length >> 8)}
	buf = append(buf, payload...)
	buf = append(buf, byte(sum), byte(sum>>8))
	buf = append(buf, 0x00, 0x00) // dummy word, value irrelevant on the wire in
	return buf
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(make([]byte, 256), nil, Options{})
}

func TestInitPacketArmsCountdowns(t *testing.T) {
	e := newTestEngine(t)
	feedBytes(e, buildPacket(CmdInit, 0, nil))

	if e.Status().ChecksumError() {
		t.Fatalf("unexpected checksum error on INIT")
	}
	if !e.ConsumeInitReceived() {
		t.Fatalf("expected InitReceived notification")
	}
	if got := e.DataPacketsRemaining(); got != dataPacketsPerImage {
		t.Fatalf("DataPacketsRemaining = %d, want %d", got, dataPacketsPerImage)
	}
	if e.Status().ImageDataFull() {
		t.Fatalf("ImageDataFull should be cleared by INIT")
	}
}

func TestPrintPacketLatchesInstructionAndBusy(t *testing.T) {
	e := newTestEngine(t)
	payload := []byte{2, 0x13, 1, 0xE4}
	feedBytes(e, buildPacket(CmdPrint, 0, payload))

	if !e.ConsumePrintReceived() {
		t.Fatalf("expected PrintReceived notification")
	}
	pi := e.PrintInstruction()
	if n, ok := pi.NumSheets(); !ok || n != 2 {
		t.Fatalf("NumSheets = %d,%v want 2,true", n, ok)
	}
	if before, _ := pi.LinefeedsBefore(); before != 1 {
		t.Fatalf("LinefeedsBefore = %d, want 1", before)
	}
	if after, _ := pi.LinefeedsAfter(); after != 3 {
		t.Fatalf("LinefeedsAfter = %d, want 3", after)
	}
	if e.BusyRemaining() == 0 {
		t.Fatalf("expected BusyRemaining armed after PRINT")
	}
}

func TestDataPacketCommitsPayload(t *testing.T) {
	e := newTestEngine(t)
	feedBytes(e, buildPacket(CmdInit, 0, nil))
	e.ConsumeInitReceived()

	payload := []byte{1, 2, 3, 4, 5}
	feedBytes(e, buildPacket(CmdData, 0, payload))

	if !e.ConsumeDataReceived() {
		t.Fatalf("expected DataReceived notification")
	}
	if got := e.Ring().Count(); got != len(payload) {
		t.Fatalf("ring count = %d, want %d", got, len(payload))
	}
	for i, want := range payload {
		got, ok := e.Ring().Peek(i)
		if !ok || got != want {
			t.Fatalf("ring byte %d = %d,%v want %d", i, got, ok, want)
		}
	}
}

func TestDataEndSentinelOnZeroLength(t *testing.T) {
	e := newTestEngine(t)
	feedBytes(e, buildPacket(CmdInit, 0, nil))
	e.ConsumeInitReceived()
	feedBytes(e, buildPacket(CmdData, 0, nil))

	if !e.ConsumeDataEndReceived() {
		t.Fatalf("expected DataEndReceived on zero-length DATA")
	}
	if e.ConsumeDataReceived() {
		t.Fatalf("zero-length DATA must not also raise DataReceived")
	}
}

func TestSixDataPacketsFillsBuffer(t *testing.T) {
	e := newTestEngine(t)
	feedBytes(e, buildPacket(CmdInit, 0, nil))
	e.ConsumeInitReceived()

	for i := 0; i < dataPacketsPerImage; i++ {
		feedBytes(e, buildPacket(CmdData, 0, []byte{byte(i)}))
		e.ConsumeDataReceived()
	}

	if !e.Status().ImageDataFull() {
		t.Fatalf("expected ImageDataFull after six DATA packets")
	}
	if got := e.DataPacketsRemaining(); got != 0 {
		t.Fatalf("DataPacketsRemaining = %d, want 0", got)
	}
}

func TestPrintThenInquirySequenceDecaysBusy(t *testing.T) {
	e := newTestEngine(t)
	feedBytes(e, buildPacket(CmdPrint, 0, []byte{1, 0, 0, 0}))
	e.ConsumePrintReceived()

	busyBefore := e.BusyRemaining()
	if busyBefore == 0 {
		t.Fatalf("expected nonzero BusyRemaining after PRINT")
	}

	sawBusyClear := false
	for i := 0; i < int(busyBefore)+2; i++ {
		feedBytes(e, buildPacket(CmdInquiry, 0, nil))
		e.ConsumeInquiryCount()
		if !e.Status().PrinterBusy() {
			sawBusyClear = true
			break
		}
	}
	if !sawBusyClear {
		t.Fatalf("PrinterBusy never cleared after enough INQUIRY packets")
	}
}

func TestBreakMidStreamResets(t *testing.T) {
	e := newTestEngine(t)
	feedBytes(e, buildPacket(CmdInit, 0, nil))
	e.ConsumeInitReceived()
	feedBytes(e, buildPacket(CmdData, 0, []byte{9, 9, 9}))
	e.ConsumeDataReceived()

	feedBytes(e, buildPacket(CmdBreak, 0, nil))
	if !e.ConsumeBreakReceived() {
		t.Fatalf("expected BreakReceived notification")
	}
	if !e.Tick(0) {
		t.Fatalf("expected Tick to perform the BREAK-triggered reset")
	}
	if e.Ring().Count() != 0 {
		t.Fatalf("ring should be empty after BREAK reset")
	}
	if e.Status().Byte() != 0 {
		t.Fatalf("status bits should be cleared after BREAK reset")
	}
}

func TestChecksumMismatchRollsBackAndFlagsError(t *testing.T) {
	e := newTestEngine(t)
	feedBytes(e, buildPacket(CmdInit, 0, nil))
	e.ConsumeInitReceived()

	pkt := buildPacket(CmdData, 0, []byte{7, 7, 7})
	// Corrupt the checksum's low byte without touching the payload.
	pkt[len(pkt)-4] ^= 0xFF
	feedBytes(e, pkt)

	if !e.Status().ChecksumError() {
		t.Fatalf("expected ChecksumError after corrupting the checksum")
	}
	if e.Ring().Count() != 0 {
		t.Fatalf("corrupted DATA payload must not be committed, got count %d", e.Ring().Count())
	}
}

func TestTimeoutMidPacketResets(t *testing.T) {
	e := newTestEngine(t)
	pkt := buildPacket(CmdData, 0, []byte{1, 2, 3})
	// Feed only the preamble and header, stopping mid-packet.
	feedBytes(e, pkt[:6])
	if !e.Synchronised() {
		t.Fatalf("expected engine to be mid-packet after header")
	}
	if !e.Tick(defaultPacketTimeoutMS) {
		t.Fatalf("expected Tick to report a timeout reset")
	}
	if e.Synchronised() {
		t.Fatalf("expected engine to resume preamble scanning after timeout reset")
	}
}
