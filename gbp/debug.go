package gbp

// DebugWriter receives formatted diagnostic lines. Platform code wires
// this to UART, USB-CDC, or a log file; the engine never calls it
// directly from an edge handler.
type DebugWriter func(string)

// TimingEvent captures one packet-engine transition for post-mortem
// analysis. Clock is whatever the caller's Tick millisecond counter
// read at the time; it has no meaning beyond ordering events.
type TimingEvent struct {
	EventType uint8
	Clock     uint32
	Value1    uint32
	Value2    uint32
}

// Event type codes recorded into an Engine's diagnostic ring.
const (
	EvtSyncFound     = 1
	EvtHeaderParsed  = 2
	EvtPayloadByte   = 3
	EvtChecksumOK    = 4
	EvtChecksumFail  = 5
	EvtPacketDone    = 6
	EvtReset         = 7
	EvtTimeout       = 8
	EvtBreakReceived = 9
)

const eventRingSize = 32

// eventRing is a fixed-size, non-blocking ring of the last N engine
// events. Writing to it is an array store plus an index increment —
// always fast enough to call from OnEdge/OnRising.
type eventRing struct {
	events  [eventRingSize]TimingEvent
	head    uint8
	enabled bool
}

func (r *eventRing) record(eventType uint8, clock, v1, v2 uint32) {
	if !r.enabled {
		return
	}
	r.events[r.head] = TimingEvent{EventType: eventType, Clock: clock, Value1: v1, Value2: v2}
	r.head = (r.head + 1) % eventRingSize
}

func (r *eventRing) clear() {
	for i := range r.events {
		r.events[i] = TimingEvent{}
	}
	r.head = 0
}

func eventName(t uint8) string {
	switch t {
	case EvtSyncFound:
		return "SYNC"
	case EvtHeaderParsed:
		return "HEADER"
	case EvtPayloadByte:
		return "PAYLOAD"
	case EvtChecksumOK:
		return "CHECKSUM_OK"
	case EvtChecksumFail:
		return "CHECKSUM_FAIL"
	case EvtPacketDone:
		return "PACKET_DONE"
	case EvtReset:
		return "RESET"
	case EvtTimeout:
		return "TIMEOUT"
	case EvtBreakReceived:
		return "BREAK"
	default:
		return "UNKNOWN"
	}
}

// DumpEvents writes the ring's contents oldest-first through w. Intended
// for foreground/debug use only, never from an edge handler.
func (e *Engine) DumpEvents(w DebugWriter) {
	if w == nil {
		return
	}
	start := e.events.head
	for i := uint8(0); i < eventRingSize; i++ {
		idx := (start + i) % eventRingSize
		evt := &e.events.events[idx]
		if evt.EventType == 0 {
			continue
		}
		w(eventName(evt.EventType) +
			" clock=" + itoa(int(evt.Clock)) +
			" v1=" + itoa(int(evt.Value1)) +
			" v2=" + itoa(int(evt.Value2)))
	}
}

// ClearEvents empties the diagnostic ring.
func (e *Engine) ClearEvents() {
	e.events.clear()
}

// SetEventsEnabled turns ring capture on or off. Capture is on by default;
// platforms with a hard real-time budget tighter than the engine's own
// worst case can disable it entirely.
func (e *Engine) SetEventsEnabled(enabled bool) {
	e.events.enabled = enabled
}
