//go:build rp2040 || rp2350

package main

import (
	"image/color"
	"machine"

	"gbprinter/sched"

	"tinygo.org/x/drivers/ssd1306"
)

const panelRefreshMS = 250

var pixelOn = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// initStatusPanel brings up the onboard SSD1306 OLED used as a
// physical readout of the status bits and countdowns a host tool would
// otherwise only see over the bridge link.
func initStatusPanel() bool {
	err := machine.I2C0.Configure(machine.I2CConfig{Frequency: machine.TWI_FREQ_400KHZ})
	if err != nil {
		return false
	}
	display = ssd1306.NewI2C(machine.I2C0)
	display.Configure(ssd1306.Config{
		Address: 0x3C,
		Width:   128,
		Height:  32,
	})
	display.ClearDisplay()
	return true
}

// refreshStatusPanel is a sched.Timer handler: it draws each set status
// bit as a short two-pixel-wide vertical bar along the top row and each
// countdown as a horizontal bar below, then reschedules itself.
func refreshStatusPanel(t *sched.Timer) uint8 {
	if haveOLED {
		drawStatusBars()
	}
	t.WakeTime = sched.GetTime() + sched.TimerFromMS(panelRefreshMS)
	return sched.SFReschedule
}

func drawStatusBars() {
	display.ClearBuffer()
	status := engine.Status()

	bits := []bool{
		status.ChecksumError(),
		status.PrinterBusy(),
		status.ImageDataFull(),
		status.UnprocessedData(),
		status.PacketError(),
		status.PaperJam(),
		status.OtherError(),
		status.LowBattery(),
	}
	for i, on := range bits {
		if !on {
			continue
		}
		x := int16(i * 4)
		for y := int16(0); y < 8; y++ {
			display.SetPixel(x, y, pixelOn)
			display.SetPixel(x+1, y, pixelOn)
		}
	}

	drawCountdown(engine.DataPacketsRemaining(), 0)
	drawCountdown(engine.UntransmittedRemaining(), 1)
	drawCountdown(engine.BusyRemaining(), 2)

	display.Display()
}

// drawCountdown renders a counter as a horizontal bar on row.
func drawCountdown(value uint16, row int16) {
	if value > 32 {
		value = 32
	}
	y := 12 + row*6
	for x := int16(0); x < int16(value); x++ {
		display.SetPixel(x, y, pixelOn)
	}
}
