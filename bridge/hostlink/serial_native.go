//go:build !wasm

package hostlink

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// RP2040Port is the host-side half of the USB-serial link to the
// RP2040 bridge firmware, backed by tarm/serial.
type RP2040Port struct {
	port *serial.Port
	cfg  *Config
}

// Open opens the USB-serial device described by cfg and returns it as
// a Port ready for Transport to read and write frames over.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("hostlink: config cannot be nil")
	}

	serialConfig := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("hostlink: open %s: %w", cfg.Device, err)
	}

	return &RP2040Port{
		port: port,
		cfg:  cfg,
	}, nil
}

func (p *RP2040Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *RP2040Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *RP2040Port) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush is a no-op: tarm/serial has no flush call of its own, and
// Write already blocks until the bytes are handed to the OS driver.
func (p *RP2040Port) Flush() error {
	return nil
}
