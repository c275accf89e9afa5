package main

import (
	"fmt"

	"gbprinter/bridge"
)

// eventKind identifies which bridge.Msg* body an event carries.
type eventKind uint8

const (
	eventPacketCompleted eventKind = iota
	eventStatusWord
	eventPayloadChunk
	eventPrintInstruction
	eventReset
)

// engineEvent is the host-side, decoded form of one bridge message,
// shared by the status TUI, the websocket hub, and the metrics
// recorder regardless of whether it arrived over the RP2040 serial
// bridge or was produced by running the engine locally against direct
// GPIO.
type engineEvent struct {
	kind eventKind

	command, compression uint8
	length               uint16
	checksumOK           bool

	status                                                      uint8
	dataPacketsRemaining, untransmittedRemaining, busyRemaining uint16

	payload []byte

	numSheets, margins, palette, density uint8

	resetCause uint8
}

// String renders an event the way the raw packet log prints a line,
// one event per completed notification.
func (e engineEvent) String() string {
	switch e.kind {
	case eventPacketCompleted:
		ok := "checksum OK"
		if !e.checksumOK {
			ok = "CHECKSUM BAD"
		}
		return fmt.Sprintf("packet command=0x%02x compression=%d length=%d %s", e.command, e.compression, e.length, ok)
	case eventStatusWord:
		return fmt.Sprintf("status=0x%02x data=%d untransmitted=%d busy=%d", e.status, e.dataPacketsRemaining, e.untransmittedRemaining, e.busyRemaining)
	case eventPayloadChunk:
		return fmt.Sprintf("payload chunk %d bytes", len(e.payload))
	case eventPrintInstruction:
		return fmt.Sprintf("print sheets=%d margins=0x%02x palette=0x%02x density=0x%02x", e.numSheets, e.margins, e.palette, e.density)
	case eventReset:
		return fmt.Sprintf("reset cause=%s", resetCauseName(e.resetCause))
	default:
		return "unknown event"
	}
}

func resetCauseName(cause uint8) string {
	switch cause {
	case bridge.ResetCauseInit:
		return "init"
	case bridge.ResetCauseBreak:
		return "break"
	case bridge.ResetCauseTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// decodeBridgeMessage turns one cmdID/body pair received over the
// serial transport into an engineEvent, recording it to the metrics
// registry along the way.
func decodeBridgeMessage(cmdID uint16, data *[]byte) (engineEvent, error) {
	switch cmdID {
	case bridge.MsgPacketCompleted:
		command, compression, length, checksumOK, err := bridge.DecodePacketCompleted(data)
		if err != nil {
			return engineEvent{}, err
		}
		bridge.ObservePacketCompleted(command, checksumOK, 0)
		return engineEvent{kind: eventPacketCompleted, command: command, compression: compression, length: length, checksumOK: checksumOK}, nil

	case bridge.MsgStatusWord:
		status, dataRemaining, untransmitted, busy, err := bridge.DecodeStatusWord(data)
		if err != nil {
			return engineEvent{}, err
		}
		return engineEvent{
			kind:                   eventStatusWord,
			status:                 status,
			dataPacketsRemaining:   dataRemaining,
			untransmittedRemaining: untransmitted,
			busyRemaining:          busy,
		}, nil

	case bridge.MsgPayloadChunk:
		chunk, err := bridge.DecodePayloadChunk(data)
		if err != nil {
			return engineEvent{}, err
		}
		return engineEvent{kind: eventPayloadChunk, payload: chunk}, nil

	case bridge.MsgPrintInstruction:
		numSheets, margins, palette, density, err := bridge.DecodePrintInstruction(data)
		if err != nil {
			return engineEvent{}, err
		}
		return engineEvent{kind: eventPrintInstruction, numSheets: numSheets, margins: margins, palette: palette, density: density}, nil

	case bridge.MsgReset:
		cause, err := bridge.DecodeReset(data)
		if err != nil {
			return engineEvent{}, err
		}
		bridge.ObserveReset(cause)
		return engineEvent{kind: eventReset, resetCause: cause}, nil

	default:
		return engineEvent{}, fmt.Errorf("unknown bridge message id %d", cmdID)
	}
}
