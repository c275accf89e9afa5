package main

import (
	"fmt"
	"io"
	"os"

	"gbprinter/protocol"

	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Decode a previously captured bridge stream and print its events",
	Long: `replay reads a raw byte capture of the RP2040 bridge's serial
output (the bytes exactly as they arrived on the serial device) and
decodes it the same way a live session would, printing one line per
completed event.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	count := 0
	handler := func(cmdID uint16, data *[]byte) error {
		ev, err := decodeBridgeMessage(cmdID, data)
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			return nil
		}
		count++
		fmt.Printf("%5d  %s\n", count, ev)
		return nil
	}

	transport := protocol.NewTransport(protocol.NewScratchOutput(), handler)

	buf := make([]byte, 4096)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			transport.Receive(protocol.NewSliceInputBuffer(buf[:n]))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read capture: %w", err)
		}
	}

	fmt.Printf("\n%d events decoded\n", count)
	return nil
}
