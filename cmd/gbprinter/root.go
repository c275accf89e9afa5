package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Connection flags shared across subcommands.
	serialDevice string
	baudRate     int
	gpioChip     string
	gpioSCK      uint32
	gpioSIN      uint32
	gpioSOUT     uint32
)

var rootCmd = &cobra.Command{
	Use:   "gbprinter",
	Short: "Game Boy Printer link-cable bridge and packet engine",
	Long: `gbprinter decodes the Game Boy Printer's serial link protocol and
bridges it to a host over a compact framed transport.

Connection modes:
  RP2040 bridge:  --device /dev/ttyACM0 [--baud 250000]
  Direct GPIO:    --gpio-chip /dev/gpiochip0 --sck 2 --sin 3 --sout 4

The direct GPIO mode talks straight to the Link Cable from a Linux
SBC's own header; the RP2040 mode talks to a separate microcontroller
that owns the cable and forwards decoded packets over USB serial.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serialDevice, "device", "/dev/ttyACM0", "RP2040 bridge serial device")
	rootCmd.PersistentFlags().IntVar(&baudRate, "baud", 250000, "Serial baud rate")
	rootCmd.PersistentFlags().StringVar(&gpioChip, "gpio-chip", "", "GPIO character device for direct link mode (e.g. /dev/gpiochip0)")
	rootCmd.PersistentFlags().Uint32Var(&gpioSCK, "sck", 2, "SCK line offset (direct GPIO mode)")
	rootCmd.PersistentFlags().Uint32Var(&gpioSIN, "sin", 3, "SIN line offset (direct GPIO mode)")
	rootCmd.PersistentFlags().Uint32Var(&gpioSOUT, "sout", 4, "SOUT line offset (direct GPIO mode)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
