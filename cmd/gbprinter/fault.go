package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"gbprinter/gbp"

	"github.com/google/shlex"
)

// runFaultConsole reads operator commands from stdin and applies them
// to engine's status override surface, for poking at PaperJam,
// OtherError, and LowBattery by hand during a direct-GPIO session
// (these bits the wire protocol itself never sets). Only meaningful
// when the engine is running locally; the RP2040 bridge mode has no
// local *gbp.Engine to poke.
func runFaultConsole(engine *gbp.Engine, stop <-chan struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Fault console ready. Commands: jam on|off, battery on|off, other on|off, quit")

	for {
		select {
		case <-stop:
			return
		default:
		}

		if !scanner.Scan() {
			return
		}

		fields, err := shlex.Split(scanner.Text())
		if err != nil || len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "jam":
			applyBoolFault(fields, engine.Status().SetPaperJam)
		case "battery":
			applyBoolFault(fields, engine.Status().SetLowBattery)
		case "other":
			applyBoolFault(fields, engine.Status().SetOtherError)
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command: %s\n", fields[0])
		}
	}
}

func applyBoolFault(fields []string, set func(bool)) {
	if len(fields) < 2 {
		fmt.Println("expected on/off argument")
		return
	}
	switch strings.ToLower(fields[1]) {
	case "on":
		set(true)
	case "off":
		set(false)
	default:
		fmt.Printf("expected on/off, got %q\n", fields[1])
	}
}
