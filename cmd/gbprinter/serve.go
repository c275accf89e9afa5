package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"gbprinter/bridge"
	"gbprinter/bridge/hostgpio"
	"gbprinter/bridge/hostlink"
	"gbprinter/bridge/webui"
	"gbprinter/gbp"
	"gbprinter/protocol"

	"github.com/spf13/cobra"
)

const (
	servePayloadBytes = 64 * 1024
	serveRawBytes     = 4 * 1024
)

var (
	metricsAddr string
	wsAddr      string
	mdnsEnable  bool
	mdnsName    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge: decode link-cable traffic and fan it out",
	Long: `serve connects to the Game Boy Printer link, decodes the packet
stream, and makes the result available two ways: a Prometheus
/metrics endpoint and a websocket event stream for live viewers.

With --gpio-chip set, the engine runs locally against a Linux GPIO
character device. Otherwise it connects to an RP2040 bridge over
--device and decodes the messages it forwards.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9108", "Prometheus metrics listen address")
	serveCmd.Flags().StringVar(&wsAddr, "ws-addr", ":9109", "Websocket event stream listen address")
	serveCmd.Flags().BoolVar(&mdnsEnable, "mdns", false, "Advertise this bridge via mDNS")
	serveCmd.Flags().StringVar(&mdnsName, "mdns-name", "", "mDNS instance name (default: gbprinter-<hostname>)")
}

func runServe(cmd *cobra.Command, args []string) error {
	events := make(chan engineEvent, 256)
	var stop func()
	var err error

	if gpioChip != "" {
		stop, err = serveDirectGPIO(events)
	} else {
		stop, err = serveRP2040Bridge(events)
	}
	if err != nil {
		return err
	}
	defer stop()

	hub := webui.NewHub()
	hub.Policy = webui.PolicyDrop
	wsServer := hub.ListenAndServe(wsAddr)
	defer wsServer.Close()

	metricsServer := bridge.ServeMetrics(metricsAddr)
	defer metricsServer.Close()

	var mdnsCleanup func()
	if mdnsEnable {
		mdnsCleanup, err = startMDNS(mdnsName)
		if err != nil {
			log.Printf("mdns: %v", err)
		} else {
			defer mdnsCleanup()
		}
	}

	fmt.Printf("gbprinter bridge running\n")
	fmt.Printf("  metrics:  http://localhost%s/metrics\n", metricsAddr)
	fmt.Printf("  ws:       ws://localhost%s/stream\n", wsAddr)
	fmt.Printf("Press Ctrl+C to exit\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	for {
		select {
		case ev := <-events:
			fmt.Println(ev)
			hub.Broadcast(encodeEventFrame(ev))
		case <-sigCh:
			return nil
		}
	}
}

// encodeEventFrame re-serializes a decoded event back into its wire
// body, prefixed with the message ID, for websocket viewers that speak
// the same bridge message format firmware does.
func encodeEventFrame(ev engineEvent) []byte {
	out := protocol.NewScratchOutput()
	switch ev.kind {
	case eventPacketCompleted:
		protocol.EncodeVLQUint(out, uint32(bridge.MsgPacketCompleted))
		bridge.EncodePacketCompleted(out, ev.command, ev.compression, ev.length, ev.checksumOK)
	case eventStatusWord:
		protocol.EncodeVLQUint(out, uint32(bridge.MsgStatusWord))
		bridge.EncodeStatusWord(out, ev.status, ev.dataPacketsRemaining, ev.untransmittedRemaining, ev.busyRemaining)
	case eventPayloadChunk:
		protocol.EncodeVLQUint(out, uint32(bridge.MsgPayloadChunk))
		bridge.EncodePayloadChunk(out, ev.payload)
	case eventPrintInstruction:
		protocol.EncodeVLQUint(out, uint32(bridge.MsgPrintInstruction))
		bridge.EncodePrintInstruction(out, ev.numSheets, ev.margins, ev.palette, ev.density)
	case eventReset:
		protocol.EncodeVLQUint(out, uint32(bridge.MsgReset))
		bridge.EncodeReset(out, ev.resetCause)
	}
	return out.Result()
}

// serveRP2040Bridge opens the serial connection to an RP2040 front end
// and decodes its forwarded bridge messages as they arrive.
func serveRP2040Bridge(events chan<- engineEvent) (func(), error) {
	cfg := hostlink.DefaultConfig(serialDevice)
	cfg.Baud = baudRate

	port, err := hostlink.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", serialDevice, err)
	}

	handler := func(cmdID uint16, data *[]byte) error {
		ev, err := decodeBridgeMessage(cmdID, data)
		if err != nil {
			return err
		}
		select {
		case events <- ev:
		default:
		}
		return nil
	}

	ackOutput := protocol.NewScratchOutput()
	transport := protocol.NewTransport(ackOutput, handler)
	transport.SetFlushCallback(func() {
		if data := ackOutput.Result(); len(data) > 0 {
			port.Write(data)
			ackOutput.Reset()
		}
	})

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 256)
		for {
			select {
			case <-done:
				return
			default:
			}
			n, err := port.Read(buf)
			if err != nil {
				log.Printf("serial read error: %v", err)
				return
			}
			if n > 0 {
				transport.Receive(protocol.NewSliceInputBuffer(buf[:n]))
			}
		}
	}()

	return func() {
		close(done)
		port.Close()
	}, nil
}

// serveDirectGPIO runs a gbp.Engine against a Linux GPIO character
// device directly, polling the Link Cable lines itself rather than
// decoding messages forwarded by firmware.
func serveDirectGPIO(events chan<- engineEvent) (func(), error) {
	lines, err := hostgpio.Open(gpioChip, gpioSCK, gpioSIN, gpioSOUT)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", gpioChip, err)
	}

	payloadBuf := make([]byte, servePayloadBytes)
	rawBuf := make([]byte, serveRawBytes)
	engine := gbp.New(payloadBuf, rawBuf, gbp.Options{})
	driver := hostgpio.NewDriver(lines, engine)

	stop := make(chan struct{})
	go pollEngineEvents(engine, events, stop)
	go runFaultConsole(engine, stop)
	go func() {
		if err := driver.Run(stop); err != nil {
			log.Printf("gpio driver: %v", err)
		}
	}()

	return func() {
		close(stop)
		lines.Close()
	}, nil
}

// pollEngineEvents drains a locally run Engine's notifications and
// ring buffer on a fixed tick, translating them into the same
// engineEvent shape the RP2040 bridge's forwarded messages produce.
func pollEngineEvents(engine *gbp.Engine, events chan<- engineEvent, stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	last := time.Now()

	emit := func(ev engineEvent) {
		select {
		case events <- ev:
		default:
		}
	}

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			elapsedMS := uint32(now.Sub(last).Milliseconds())
			last = now

			breakHappened := engine.ConsumeBreakReceived()
			initReceived := engine.ConsumeInitReceived()
			printReceived := engine.ConsumePrintReceived()
			dataReceived := engine.ConsumeDataReceived()
			dataEndReceived := engine.ConsumeDataEndReceived()

			if initReceived || printReceived || dataReceived || dataEndReceived {
				status := engine.Status()
				emit(engineEvent{
					kind:                   eventStatusWord,
					status:                 status.Byte(),
					dataPacketsRemaining:   engine.DataPacketsRemaining(),
					untransmittedRemaining: engine.UntransmittedRemaining(),
					busyRemaining:          engine.BusyRemaining(),
				})
			}

			if command, compression, length, checksumOK, ok := engine.ConsumePacketCompleted(); ok {
				bridge.ObservePacketCompleted(command, checksumOK, engine.Ring().Count())
				emit(engineEvent{
					kind:        eventPacketCompleted,
					command:     command,
					compression: compression,
					length:      length,
					checksumOK:  checksumOK,
				})
			}

			if printReceived {
				instr := engine.PrintInstruction()
				if sheets, ok := instr.NumSheets(); ok {
					margins, _ := instr.Margins()
					palette, _ := instr.Palette()
					density, _ := instr.Density()
					emit(engineEvent{kind: eventPrintInstruction, numSheets: sheets, margins: margins, palette: palette, density: density})
				}
			}

			ring := engine.Ring()
			var chunk []byte
			for b, ok := ring.Dequeue(); ok; b, ok = ring.Dequeue() {
				chunk = append(chunk, b)
			}
			if len(chunk) > 0 {
				emit(engineEvent{kind: eventPayloadChunk, payload: chunk})
			}

			resetHappened := engine.Tick(elapsedMS)
			switch {
			case breakHappened:
				bridge.ObserveReset(bridge.ResetCauseBreak)
				emit(engineEvent{kind: eventReset, resetCause: bridge.ResetCauseBreak})
			case resetHappened:
				bridge.ObserveReset(bridge.ResetCauseTimeout)
				emit(engineEvent{kind: eventReset, resetCause: bridge.ResetCauseTimeout})
			}
		}
	}
}
