//go:build linux

// Package hostgpio drives the Game Boy Link Cable straight from a
// Linux SBC's GPIO character device, giving an alternative to the
// RP2040 bridge for a host that owns the cable itself (e.g. a
// Raspberry Pi with the connector wired directly to its header). It
// feeds the same gbp.Engine an RP2040 firmware would, just from a
// polling goroutine instead of a PIO-fed ISR.
package hostgpio

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request numbers from linux/gpio.h for the GPIO character
// device's line-handle API (v1). The line-handle request packs a
// fixed-size struct; Linux hands back a file descriptor used for
// subsequent GPIOHANDLE_GET/SET_LINE_VALUES_IOCTL calls.
const (
	gpioGetLineHandleIOCTL   = 0xc16cb403
	gpioHandleGetLineValues  = 0xc040b408
	gpioHandleSetLineValues  = 0xc040b409
	gpioHandleRequestInput   = 1 << 0
	gpioHandleRequestOutput  = 1 << 1
	gpioMaxLines             = 64
	gpioHandlesMax           = 64
)

type gpioHandleRequest struct {
	lineOffsets   [gpioHandlesMax]uint32
	flags         uint32
	defaultValues [gpioHandlesMax]uint8
	consumerLabel [32]byte
	lines         uint32
	fd            int32
}

type gpioHandleData struct {
	values [gpioHandlesMax]uint8
}

// Lines bundles the three Link Cable signals as GPIO character-device
// line handles on one gpiochip.
type Lines struct {
	chip   *os.File
	sckFD  int
	sinFD  int
	soutFD int
}

// Open requests SCK and SIN as inputs and SOUT as an output on
// chipPath (e.g. "/dev/gpiochip0"), at the given BCM/offset line
// numbers.
func Open(chipPath string, sckLine, sinLine, soutLine uint32) (*Lines, error) {
	chip, err := os.OpenFile(chipPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", chipPath, err)
	}

	sckFD, err := requestLine(chip, sckLine, gpioHandleRequestInput, 0)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request SCK line: %w", err)
	}
	sinFD, err := requestLine(chip, sinLine, gpioHandleRequestInput, 0)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request SIN line: %w", err)
	}
	soutFD, err := requestLine(chip, soutLine, gpioHandleRequestOutput, 0)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request SOUT line: %w", err)
	}

	return &Lines{chip: chip, sckFD: sckFD, sinFD: sinFD, soutFD: soutFD}, nil
}

func requestLine(chip *os.File, offset, flags uint32, defaultVal uint8) (int, error) {
	req := gpioHandleRequest{flags: flags, lines: 1}
	req.lineOffsets[0] = offset
	req.defaultValues[0] = defaultVal
	copy(req.consumerLabel[:], "gbprinter")

	if err := ioctl(chip.Fd(), gpioGetLineHandleIOCTL, unsafe.Pointer(&req)); err != nil {
		return 0, err
	}
	return int(req.fd), nil
}

func ioctl(fd uintptr, request uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, request, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// ReadSCK and ReadSIN sample their respective lines' current level.
func (l *Lines) ReadSCK() (bool, error) { return readLine(l.sckFD) }
func (l *Lines) ReadSIN() (bool, error) { return readLine(l.sinFD) }

func readLine(fd int) (bool, error) {
	var data gpioHandleData
	if err := ioctl(uintptr(fd), gpioHandleGetLineValues, unsafe.Pointer(&data)); err != nil {
		return false, err
	}
	return data.values[0] != 0, nil
}

// WriteSOUT drives the SOUT line to the given level.
func (l *Lines) WriteSOUT(high bool) error {
	var data gpioHandleData
	if high {
		data.values[0] = 1
	}
	return ioctl(uintptr(l.soutFD), gpioHandleSetLineValues, unsafe.Pointer(&data))
}

// Close releases the line handles and the chip fd.
func (l *Lines) Close() error {
	unix.Close(l.sckFD)
	unix.Close(l.sinFD)
	unix.Close(l.soutFD)
	return l.chip.Close()
}
