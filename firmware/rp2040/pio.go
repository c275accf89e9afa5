//go:build rp2040 || rp2350

package main

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIO-based Link Cable edge sampler, following the same AssemblerV0
// pattern as the stepper pulse generator this board support package
// used to carry: push the timing-critical work into the state machine
// so software only ever handles whole samples, never races a raw GPIO
// level change against interrupt latency.
//
// The program watches SCK and pushes a 2-bit {clock, data} snapshot to
// the RX FIFO on every transition, high and low alike. Driving SOUT
// stays in software — at the Link Cable's bit rate there is tens of
// microseconds of slack between an edge being sampled and the next one
// arriving, far more than an RX-FIFO drain and a GPIO pin write need.
func buildLinkSampleProgram(sckPin uint8) []uint16 {
	asm := rp2pio.AssemblerV0{}
	return []uint16{
		// .wrap_target
		asm.Wait(true, rp2pio.WaitSrcGPIO, sckPin, false).Encode(),  // 0: wait for SCK high
		asm.In(rp2pio.InSrcPins, 2).Encode(),                        // 1: push {sck,sin}
		asm.Wait(false, rp2pio.WaitSrcGPIO, sckPin, false).Encode(), // 2: wait for SCK low
		asm.In(rp2pio.InSrcPins, 2).Encode(),                        // 3: push {sck,sin}
		// .wrap
	}
}

const linkSamplePIOOrigin = 0

// linkSampler drains SCK/SIN edge snapshots from a PIO state machine
// and feeds them into a packet engine via its EdgeDriver interface.
type linkSampler struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	sckPin machine.Pin
	sinPin machine.Pin
	soutPin machine.Pin
	offset uint8
}

// newLinkSampler claims a state machine on pioNum and loads the edge
// sampling program.
func newLinkSampler(pioNum, smNum uint8, sck, sin, sout machine.Pin) *linkSampler {
	var hw *rp2pio.PIO
	if pioNum == 0 {
		hw = rp2pio.PIO0
	} else {
		hw = rp2pio.PIO1
	}
	return &linkSampler{
		pio:     hw,
		sm:      hw.StateMachine(smNum),
		sckPin:  sck,
		sinPin:  sin,
		soutPin: sout,
	}
}

// Init claims the state machine, loads the edge sampler program, and
// configures SCK/SIN as PIO inputs while SOUT stays a plain GPIO output
// driven directly from the Go side.
func (l *linkSampler) Init() error {
	l.sm.TryClaim()

	program := buildLinkSampleProgram(uint8(l.sckPin))
	offset, err := l.pio.AddProgram(program, linkSamplePIOOrigin)
	if err != nil {
		return err
	}
	l.offset = offset

	l.sckPin.Configure(machine.PinConfig{Mode: l.pio.PinMode()})
	l.sinPin.Configure(machine.PinConfig{Mode: l.pio.PinMode()})
	l.soutPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	l.soutPin.Low()

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetInPins(l.sckPin)
	cfg.SetInShift(false, true, 2)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(1, 0)

	l.sm.Init(offset, cfg)
	l.sm.SetEnabled(true)
	return nil
}

// Poll drains every queued edge snapshot, calling onEdge(clockHigh,
// dataIn) for each and writing its returned level straight to SOUT.
// Call this from the main loop; it never blocks.
func (l *linkSampler) Poll(onEdge func(clock, dataIn bool) bool) {
	for !l.sm.IsRxFIFOEmpty() {
		sample := l.sm.RxGet()
		clock := sample&0x2 != 0
		dataIn := sample&0x1 != 0
		out := onEdge(clock, dataIn)
		l.soutPin.Set(out)
	}
}

// Stop disables the state machine and clears its FIFOs, leaving SOUT
// low.
func (l *linkSampler) Stop() {
	l.sm.SetEnabled(false)
	l.sm.ClearFIFOs()
	l.soutPin.Low()
}
