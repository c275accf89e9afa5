package gbp

// Command codes carried in a packet's header.
const (
	CmdInit    uint8 = 0x01
	CmdPrint   uint8 = 0x02
	CmdData    uint8 = 0x04
	CmdBreak   uint8 = 0x08
	CmdInquiry uint8 = 0x0F
)

// parseState names the five states a synchronised packet moves through.
type parseState uint8

const (
	stateHeader1 parseState = iota
	stateHeader2
	statePayload
	stateChecksum
	stateDummy
)

const maxPrintPayload = 4

// Engine is the packet-level state machine sitting on top of a
// Shifter and a synchroniser. One Engine represents one simulated
// printer. OnEdge/OnRising run in the edge context; Tick guards itself
// with CriticalSection. The other exported methods take no lock, so a
// foreground caller racing an edge handler wraps them in
// CriticalSection/EndCriticalSection itself.
type Engine struct {
	opts Options

	shifter Shifter
	sync    synchroniser
	state   parseState

	command     uint8
	compression uint8
	dataLength  uint16
	dataIndex   uint16
	computedSum uint16

	status StatusWord
	ring   *RingBuffer

	dataPacketsRemaining  uint16
	untransmittedRemaining uint16
	busyRemaining         uint16

	printInstr PrintInstruction
	notify     notifyFlags
	events     eventRing

	rawDump *RingBuffer

	timeoutMS   uint32
	pendingReset bool

	clock uint32 // last Tick() timestamp, for event logging only
}

// New constructs an Engine. buf backs the committed DATA payload ring;
// rawBuf, if non-nil and opts.RawDump is set, backs a side capture of
// every completed shift-register value.
func New(buf []byte, rawBuf []byte, opts Options) *Engine {
	e := &Engine{
		opts: opts,
		ring: NewRingBuffer(buf),
	}
	e.events.enabled = true
	if opts.RawDump && rawBuf != nil {
		e.rawDump = NewRingBuffer(rawBuf)
	}
	e.Init()
	return e
}

// Init fully zeros the engine: status, shifter, ring, countdowns,
// notification flags, and the packet timeout. Call it once at startup;
// thereafter the engine manages its own Reset on BREAK/timeout.
func (e *Engine) Init() {
	e.shifter = Shifter{}
	e.sync = synchroniser{}
	e.state = stateHeader1
	e.command = 0
	e.compression = 0
	e.dataLength = 0
	e.dataIndex = 0
	e.computedSum = 0
	e.status.clearAll()
	if e.ring != nil {
		e.ring.Reset()
	}
	if e.rawDump != nil {
		e.rawDump.Reset()
	}
	e.dataPacketsRemaining = 0
	e.untransmittedRemaining = 0
	e.busyRemaining = 0
	e.printInstr = PrintInstruction{}
	e.notify = notifyFlags{}
	e.pendingReset = false
	e.timeoutMS = 0
	e.shifter.Begin(ModeIdle, 0)
}

// Reset restores the engine to its idle, awaiting-preamble state: it
// clears all status bits, rearms the shifter idle, resets the ring
// buffer (discarding any staged-but-uncommitted payload), and resumes
// preamble scanning. It deliberately leaves the three countdown
// counters and the notification latches untouched, matching the
// original firmware's reset-vs-init distinction: a mid-stream reset
// (BREAK, or a packet timeout) does not erase the printer's idea of
// how busy it still is.
func (e *Engine) Reset() {
	e.sync.reset()
	e.state = stateHeader1
	e.command = 0
	e.compression = 0
	e.dataLength = 0
	e.dataIndex = 0
	e.computedSum = 0
	e.status.clearAll()
	if e.ring != nil {
		e.ring.Reset()
	}
	e.shifter.Begin(ModeIdle, 0)
	e.timeoutMS = 0
	e.events.record(EvtReset, e.clock, 0, 0)
}

func (e *Engine) rawCapture(v uint16) {
	if e.rawDump == nil {
		return
	}
	e.rawDump.Enqueue(uint8(v >> 8))
	e.rawDump.Enqueue(uint8(v))
}

// OnEdge feeds one clock transition under the dual-edge (CPOL=1,
// CPHA=1) discipline. clock is the line's new level; dataIn is the
// master's data line sampled at this instant. It returns the level
// this engine now wants to drive onto its own data-out line.
func (e *Engine) OnEdge(clock, dataIn bool) bool {
	if !e.sync.synchronised() {
		return e.scanPreamble(clock, dataIn)
	}
	out, done := e.shifter.StepDual(clock, dataIn)
	if done {
		e.completeTransfer()
	}
	return out
}

// OnRising feeds one rising edge under a rising-only ISR discipline,
// where the platform cannot observe falling edges separately.
func (e *Engine) OnRising(dataIn bool) bool {
	if !e.sync.synchronised() {
		if e.sync.observe(dataIn) {
			e.onSyncFound()
		}
		return false
	}
	out, done := e.shifter.StepRising(dataIn)
	if done {
		e.completeTransfer()
	}
	return out
}

func (s *synchroniser) synchronised() bool {
	return s.matched
}

// scanPreamble only acts on rising edges; dual-edge callers pass every
// falling edge straight through with no effect on synchronisation.
func (e *Engine) scanPreamble(clock, dataIn bool) bool {
	if !clock {
		return false
	}
	if e.sync.observe(dataIn) {
		e.onSyncFound()
	}
	return false
}

func (e *Engine) onSyncFound() {
	e.events.record(EvtSyncFound, e.clock, 0, 0)
	if e.opts.RawDump {
		e.rawCapture(preambleWord)
	}
	e.state = stateHeader1
	e.shifter.Begin(ModeWordBE, 0)
	e.timeoutMS = e.opts.packetTimeoutMS()
}

// completeTransfer is called the instant a shift register empties.
// It runs the five-state packet parser and always ends by arming the
// shifter for whatever comes next (another payload byte, the checksum
// word, the dummy word, or — once Dummy completes — idle while
// preamble scanning resumes for the next packet).
func (e *Engine) completeTransfer() {
	e.timeoutMS = e.opts.packetTimeoutMS()
	if e.opts.RawDump {
		if e.shifter.Mode() == ModeByte {
			e.rawCapture(uint16(e.shifter.Byte()))
		} else {
			e.rawCapture(e.shifter.Word())
		}
	}

	switch e.state {
	case stateHeader1:
		e.onHeader1()
	case stateHeader2:
		e.onHeader2()
	case statePayload:
		e.onPayload()
	case stateChecksum:
		e.onChecksum()
	case stateDummy:
		e.onDummy()
	}
}

func (e *Engine) onHeader1() {
	word := e.shifter.Word()
	e.command = uint8(word >> 8)
	e.compression = uint8(word)
	e.computedSum = 0
	e.state = stateHeader2
	e.shifter.Begin(ModeWordLE, 0)
}

func (e *Engine) onHeader2() {
	e.dataLength = e.shifter.Word()
	e.dataIndex = 0
	e.events.record(EvtHeaderParsed, e.clock, uint32(e.command), uint32(e.dataLength))

	if e.command == CmdPrint && e.dataLength > maxPrintPayload {
		e.dataLength = maxPrintPayload
	}

	if e.dataLength == 0 {
		e.state = stateChecksum
		e.shifter.Begin(ModeWordLE, 0)
		return
	}
	e.state = statePayload
	e.shifter.Begin(ModeByte, 0)
}

func (e *Engine) onPayload() {
	b := e.shifter.Byte()
	switch e.command {
	case CmdData:
		if e.opts.ImmediateCommit {
			e.ring.Enqueue(b)
		} else {
			e.ring.StageByte(b)
		}
	case CmdPrint:
		if e.dataIndex < maxPrintPayload {
			e.printInstr.bytes[e.dataIndex] = b
		}
	}
	e.computedSum = (e.computedSum + uint16(b)) & 0xFFFF
	e.events.record(EvtPayloadByte, e.clock, uint32(e.dataIndex), uint32(b))
	e.dataIndex++

	if e.dataIndex >= e.dataLength {
		e.state = stateChecksum
		e.shifter.Begin(ModeWordLE, 0)
		return
	}
	e.state = statePayload
	e.shifter.Begin(ModeByte, 0)
}

func (e *Engine) onChecksum() {
	received := e.shifter.Word()
	sum := e.computedSum
	sum = (sum + uint16(e.command) + uint16(e.compression)) & 0xFFFF
	sum = (sum + uint16(uint8(e.dataLength)) + uint16(uint8(e.dataLength>>8))) & 0xFFFF

	ok := e.opts.SkipChecksum || received == sum
	e.status.set(StatusBitChecksumError, !ok)
	if ok {
		e.events.record(EvtChecksumOK, e.clock, uint32(received), uint32(sum))
	} else {
		e.events.record(EvtChecksumFail, e.clock, uint32(received), uint32(sum))
	}

	e.applyPreDummy(ok)

	e.state = stateDummy
	e.shifter.Begin(ModeWordBE, e.status.Word())
}

// applyPreDummy updates the countdown counters and status bits that
// react to a just-checksummed packet, before the status word itself is
// clocked out during Dummy.
func (e *Engine) applyPreDummy(checksumOK bool) {
	switch e.command {
	case CmdInit:
		e.dataPacketsRemaining = dataPacketsPerImage
		e.untransmittedRemaining = 0
		e.busyRemaining = 0
		e.status.set(StatusBitImageDataFull, false)
	case CmdPrint:
		e.busyRemaining = e.opts.busyPacketCount()
	case CmdData:
		if checksumOK {
			e.untransmittedRemaining = untransmittedPerData
			e.status.set(StatusBitUnprocessedData, true)
		}
	case CmdBreak:
		e.status.clearAll()
		e.decayCountdowns()
	case CmdInquiry:
		e.decayCountdowns()
	}
}

// decayCountdowns advances whichever of the two polling-driven
// countdowns is still active. The printer reports unprocessed data
// until the host has polled enough times to have plausibly drained it;
// the instant that countdown reaches zero, busy and buffer-full latch
// on if a PRINT is still pending, and only then does busyRemaining
// start ticking down on subsequent calls. The two never count down in
// the same INQUIRY/BREAK cycle since a real printer processes a job as
// data-then-print, not concurrently.
func (e *Engine) decayCountdowns() {
	if e.untransmittedRemaining > 0 {
		e.untransmittedRemaining--
		if e.untransmittedRemaining == 0 {
			e.status.set(StatusBitUnprocessedData, false)
			if e.busyRemaining > 0 {
				e.status.set(StatusBitPrinterBusy, true)
				e.status.set(StatusBitImageDataFull, true)
			}
		}
	} else if e.busyRemaining > 0 {
		e.busyRemaining--
		if e.busyRemaining == 0 {
			e.status.set(StatusBitPrinterBusy, false)
		}
	}
}

func (e *Engine) onDummy() {
	switch e.command {
	case CmdData:
		if e.dataPacketsRemaining > 0 {
			e.dataPacketsRemaining--
		}
		if e.dataPacketsRemaining == 0 {
			e.status.set(StatusBitImageDataFull, true)
			e.status.set(StatusBitUnprocessedData, true)
			if e.dataLength == 0 {
				e.status.set(StatusBitUnprocessedData, false)
			}
		}
	case CmdInquiry:
		if e.untransmittedRemaining == 0 && e.busyRemaining == 0 {
			e.status.set(StatusBitImageDataFull, false)
		}
	}

	if !e.status.ChecksumError() {
		if e.ring != nil {
			e.ring.Commit()
		}
	} else if e.ring != nil {
		e.ring.Rollback()
	}

	e.raiseNotifications()
	e.events.record(EvtPacketDone, e.clock, uint32(e.command), uint32(e.dataLength))

	e.sync.reset()
	e.state = stateHeader1
	e.shifter.Begin(ModeIdle, 0)
}

func (e *Engine) raiseNotifications() {
	e.notify.packetCompleted = true
	e.notify.doneCommand = e.command
	e.notify.doneCompression = e.compression
	e.notify.doneLength = e.dataLength
	e.notify.doneChecksumOK = !e.status.ChecksumError()

	switch e.command {
	case CmdInit:
		e.notify.initReceived = true
	case CmdPrint:
		e.printInstr.received = true
		e.notify.printReceived = true
	case CmdData:
		if e.dataLength == 0 {
			e.notify.dataEnd = true
		} else {
			e.notify.dataReceived = true
		}
	case CmdBreak:
		e.notify.breakReceived = true
		e.pendingReset = true
		e.events.record(EvtBreakReceived, e.clock, 0, 0)
	case CmdInquiry:
		e.notify.inquiryCount++
	}
}

// Tick advances the packet timeout by elapsedMS and performs a BREAK-
// triggered or timeout-triggered reset as needed. It reports whether a
// reset happened. Call it periodically from the foreground; it guards
// its own mutation with a critical section since OnEdge/OnRising run
// from an edge interrupt.
func (e *Engine) Tick(elapsedMS uint32) bool {
	state := CriticalSection()
	defer EndCriticalSection(state)

	e.clock += elapsedMS

	if e.pendingReset {
		e.pendingReset = false
		e.Reset()
		return true
	}
	if e.timeoutMS == 0 {
		return false
	}
	if elapsedMS >= e.timeoutMS {
		e.timeoutMS = 0
		e.events.record(EvtTimeout, e.clock, 0, 0)
		e.Reset()
		return true
	}
	e.timeoutMS -= elapsedMS
	return false
}

// Status returns the engine's live status word. Callers that need a
// stable snapshot across multiple bit reads should wrap the read in
// CriticalSection/EndCriticalSection themselves.
func (e *Engine) Status() *StatusWord {
	return &e.status
}

// Ring exposes the committed DATA payload buffer for draining.
func (e *Engine) Ring() *RingBuffer {
	return e.ring
}

// RawDump exposes the raw shift-register capture buffer, or nil if
// Options.RawDump was not set.
func (e *Engine) RawDump() *RingBuffer {
	return e.rawDump
}

// Synchronised reports whether the engine is currently mid-packet
// (true) or scanning for the next preamble (false).
func (e *Engine) Synchronised() bool {
	return e.sync.synchronised()
}

// LastCommand and LastCompression report the header fields of the
// packet currently or most recently being parsed.
func (e *Engine) LastCommand() uint8     { return e.command }
func (e *Engine) LastCompression() uint8 { return e.compression }

// DataPacketsRemaining, UntransmittedRemaining, and BusyRemaining
// expose the three countdown counters for diagnostics and the status
// TUI; none of them are meant to be written by a caller.
func (e *Engine) DataPacketsRemaining() uint16  { return e.dataPacketsRemaining }
func (e *Engine) UntransmittedRemaining() uint16 { return e.untransmittedRemaining }
func (e *Engine) BusyRemaining() uint16          { return e.busyRemaining }
