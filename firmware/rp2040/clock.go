//go:build rp2040 || rp2350

package main

import (
	"runtime/volatile"
	"unsafe"

	"gbprinter/sched"
)

// RP2040/RP2350 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x08 // Raw timer high word
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// InitClock starts the hardware microsecond timer feeding sched's
// millisecond clock. RP2040/RP2350's timer peripheral free-runs at
// 1MHz from reset, so nothing else needs configuring here.
func InitClock() {
	sched.SetTime(GetHardwareTime() / 1000)
}

// GetHardwareTime reads the low 32 bits of the microsecond counter.
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// GetHardwareUptime reads the full 64-bit hardware timer, retrying if
// a rollover is caught mid-read.
func GetHardwareUptime() uint64 {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// lastClockMS is the hardware time, in milliseconds, as of the previous
// UpdateSystemTime call — used to compute the elapsed-ms tick fed to
// both sched's timers and the packet engine's own timeout.
var lastClockMS uint32

// UpdateSystemTime reads the hardware timer and returns the number of
// milliseconds elapsed since the previous call, advancing sched's
// millisecond clock as a side effect.
func UpdateSystemTime() uint32 {
	nowMS := GetHardwareTime() / 1000
	elapsed := nowMS - lastClockMS
	lastClockMS = nowMS
	sched.SetTime(nowMS)
	return elapsed
}
