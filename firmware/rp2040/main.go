//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"gbprinter/bridge"
	"gbprinter/gbp"
	"gbprinter/protocol"
	"gbprinter/sched"

	"tinygo.org/x/drivers/ssd1306"
)

// Pin assignments for the Game Boy Link Cable connector.
const (
	pinSCK  = machine.GPIO2
	pinSIN  = machine.GPIO3
	pinSOUT = machine.GPIO4
)

const (
	printPayloadBytes = 4 * 1024 // room for six 640-byte DATA packets
	rawDumpBytes      = 2 * 1024
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	engine  *gbp.Engine
	sampler *linkSampler
	display ssd1306.Device
	haveOLED bool

	payloadBuf [printPayloadBytes]byte
	rawBuf     [rawDumpBytes]byte
	chunkBuf   [256]byte

	messagesReceived uint32
	messagesSent     uint32
	msgerrors        uint32

	lastWriteSuccess         uint32
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	InitClock()

	engine = gbp.New(payloadBuf[:], rawBuf[:], gbp.Options{
		RawDump: true,
	})

	sampler = newLinkSampler(0, 0, pinSCK, pinSIN, pinSOUT)
	if err := sampler.Init(); err != nil {
		// Fall back to running with no Link Cable input; the bridge
		// link still comes up so the host can see the failure.
		msgerrors++
	}

	haveOLED = initStatusPanel()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, handleCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
		engine.Init()
	})
	transport.SetFlushCallback(func() {
		writeUSB()
	})

	sched.ScheduleTimer(&sched.Timer{
		WakeTime: sched.GetTime() + sched.TimerFromMS(250),
		Handler:  refreshStatusPanel,
	})

	go usbReaderLoop()

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			elapsedMS := UpdateSystemTime()

			sampler.Poll(engine.OnEdge)

			// Drain status/payload/print notifications before Tick can
			// reset the engine (and with it the ring buffer) out from
			// under a just-completed BREAK packet.
			breakHappened := engine.ConsumeBreakReceived()
			drainEngineEvents()
			resetHappened := engine.Tick(elapsedMS)
			switch {
			case breakHappened:
				sendReset(bridge.ResetCauseBreak)
			case resetHappened:
				sendReset(bridge.ResetCauseTimeout)
			}

			if inputBuffer.Available() > 0 {
				data := inputBuffer.Data()
				originalLen := len(data)
				inputBuf := protocol.NewSliceInputBuffer(data)

				transport.Receive(inputBuf)
				messagesReceived++

				consumed := originalLen - inputBuf.Available()
				if consumed > 0 {
					inputBuffer.Pop(consumed)
				}
			}

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
				messagesSent++
			}

			sched.ProcessTimers()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// drainEngineEvents turns completed-packet notifications into bridge
// messages for the host: status word after every INIT, PRINT and DATA
// packet, a packet-completed message for every packet, payload chunks
// as the ring buffer fills, and the PRINT instruction when one arrives.
func drainEngineEvents() {
	initReceived := engine.ConsumeInitReceived()
	printReceived := engine.ConsumePrintReceived()
	dataReceived := engine.ConsumeDataReceived()
	dataEndReceived := engine.ConsumeDataEndReceived()

	if initReceived || printReceived || dataReceived || dataEndReceived {
		sendStatusWord()
	}

	if command, compression, length, checksumOK, ok := engine.ConsumePacketCompleted(); ok {
		transport.SendCommand(bridge.MsgPacketCompleted, func(out protocol.OutputBuffer) {
			bridge.EncodePacketCompleted(out, command, compression, length, checksumOK)
		})
	}

	if printReceived {
		instr := engine.PrintInstruction()
		numSheets, _ := instr.NumSheets()
		margins, _ := instr.Margins()
		palette, _ := instr.Palette()
		density, _ := instr.Density()
		transport.SendCommand(bridge.MsgPrintInstruction, func(out protocol.OutputBuffer) {
			bridge.EncodePrintInstruction(out, numSheets, margins, palette, density)
		})
	}

	ring := engine.Ring()
	for ring.Count() > 0 {
		n := 0
		for n < len(chunkBuf) {
			b, ok := ring.Dequeue()
			if !ok {
				break
			}
			chunkBuf[n] = b
			n++
		}
		if n == 0 {
			break
		}
		transport.SendCommand(bridge.MsgPayloadChunk, func(out protocol.OutputBuffer) {
			bridge.EncodePayloadChunk(out, chunkBuf[:n])
		})
	}
}

func sendStatusWord() {
	status := engine.Status()
	transport.SendCommand(bridge.MsgStatusWord, func(out protocol.OutputBuffer) {
		bridge.EncodeStatusWord(out, status.Byte(),
			engine.DataPacketsRemaining(), engine.UntransmittedRemaining(), engine.BusyRemaining())
	})
}

func sendReset(cause uint8) {
	transport.SendCommand(bridge.MsgReset, func(out protocol.OutputBuffer) {
		bridge.EncodeReset(out, cause)
	})
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		available := USBAvailable()
		if available > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				engine.Init()
				messagesReceived = 0
				messagesSent = 0
				consecutiveWriteFailures = 0
			}

			written := inputBuffer.Write([]byte{data})
			if written == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// handleCommand is currently a one-way bridge (firmware decodes and
// reports, host never commands the printer's own state back), but
// stays wired so a future host-initiated fault-injection command
// (paper jam, low battery — see gbp.StatusWord's override surface)
// has somewhere to land.
func handleCommand(cmdID uint16, data *[]byte) error {
	return nil
}

// writeUSB writes available data from output buffer to USB
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	lastWriteSuccess = GetHardwareTime()
	outputBuffer.Reset()
}
