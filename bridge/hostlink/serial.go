// Package hostlink is the host side of the bridge link: the serial
// connection to an RP2040 front end that owns the physical Game Boy
// Link Cable.
package hostlink

import (
	"io"
)

// Port represents a serial port interface. This abstraction allows for
// different implementations:
// - Native serial (using github.com/tarm/serial)
// - WebSerial (for TinyGo WASM builds)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate. The bridge runs at 250000 baud regardless of the USB
	// CDC framing underneath, matching the RP2040 firmware's fixed rate.
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the bridge link's default configuration for device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100,
	}
}
