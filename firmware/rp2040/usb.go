//go:build rp2040 || rp2350

package main

import (
	"machine"
)

// InitUSB configures the board's USB CDC endpoint (exposed as
// machine.Serial on RP2040/RP2350) for the bridge link to the host.
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// USBAvailable returns the number of bytes buffered for reading.
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte from the USB CDC endpoint.
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// USBWriteBytes writes a run of bytes to the USB CDC endpoint.
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
