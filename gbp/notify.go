package gbp

// notifyFlags are latched once per occurrence and cleared by the
// matching Consume* accessor, so a foreground poll loop never misses
// an event that happened between polls.
type notifyFlags struct {
	initReceived  bool
	printReceived bool
	dataReceived  bool
	dataEnd       bool
	breakReceived bool
	inquiryCount  uint32

	packetCompleted bool
	doneCommand     uint8
	doneCompression uint8
	doneLength      uint16
	doneChecksumOK  bool
}

// ConsumeInitReceived reports and clears whether an INIT packet
// completed since the last call.
func (e *Engine) ConsumeInitReceived() bool {
	v := e.notify.initReceived
	e.notify.initReceived = false
	return v
}

// ConsumePrintReceived reports and clears whether a PRINT packet
// completed since the last call.
func (e *Engine) ConsumePrintReceived() bool {
	v := e.notify.printReceived
	e.notify.printReceived = false
	return v
}

// ConsumeDataReceived reports and clears whether a non-empty DATA
// packet completed since the last call.
func (e *Engine) ConsumeDataReceived() bool {
	v := e.notify.dataReceived
	e.notify.dataReceived = false
	return v
}

// ConsumeDataEndReceived reports and clears whether a zero-length DATA
// packet (the image's end-of-data sentinel) completed since the last
// call.
func (e *Engine) ConsumeDataEndReceived() bool {
	v := e.notify.dataEnd
	e.notify.dataEnd = false
	return v
}

// ConsumeBreakReceived reports and clears whether a BREAK packet
// completed since the last call. The engine resets itself on BREAK
// independently of whether this is ever consumed.
func (e *Engine) ConsumeBreakReceived() bool {
	v := e.notify.breakReceived
	e.notify.breakReceived = false
	return v
}

// ConsumeInquiryCount reports and clears the number of INQUIRY packets
// completed since the last call.
func (e *Engine) ConsumeInquiryCount() uint32 {
	v := e.notify.inquiryCount
	e.notify.inquiryCount = 0
	return v
}

// ConsumePacketCompleted reports and clears whether a packet finished
// its Dummy phase since the last call, along with a snapshot of that
// packet's header fields and checksum outcome taken at the instant it
// completed.
func (e *Engine) ConsumePacketCompleted() (command, compression uint8, length uint16, checksumOK bool, ok bool) {
	ok = e.notify.packetCompleted
	e.notify.packetCompleted = false
	return e.notify.doneCommand, e.notify.doneCompression, e.notify.doneLength, e.notify.doneChecksumOK, ok
}

// PrintInstruction is the four-byte payload of a PRINT packet.
type PrintInstruction struct {
	bytes    [4]byte
	received bool
}

// NumSheets returns the requested sheet count.
func (p *PrintInstruction) NumSheets() (uint8, bool) {
	return p.bytes[0], p.received
}

// Margins returns the raw margin byte: linefeeds-before in the high
// nibble, linefeeds-after in the low nibble.
func (p *PrintInstruction) Margins() (uint8, bool) {
	return p.bytes[1], p.received
}

// LinefeedsBefore and LinefeedsAfter decode the margin nibbles.
func (p *PrintInstruction) LinefeedsBefore() (uint8, bool) {
	return p.bytes[1] >> 4, p.received
}

func (p *PrintInstruction) LinefeedsAfter() (uint8, bool) {
	return p.bytes[1] & 0x0F, p.received
}

// Palette returns the requested print palette byte.
func (p *PrintInstruction) Palette() (uint8, bool) {
	return p.bytes[2], p.received
}

// Density returns the requested exposure/density byte.
func (p *PrintInstruction) Density() (uint8, bool) {
	return p.bytes[3], p.received
}

// PrintInstruction exposes the most recently received PRINT packet's
// payload. ok is true exactly when a PRINT packet has completed at
// least once since the engine was last Init'd; Reset leaves it as is.
func (e *Engine) PrintInstruction() *PrintInstruction {
	return &e.printInstr
}
