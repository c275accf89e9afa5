package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Live TUI dashboard of status bits, countdowns, and recent events",
	Long: `status connects the same way "serve" does but instead of exposing
metrics and a websocket, renders a live terminal dashboard: the eight
status bits, the three countdown counters, and a scrolling log of
recent notifications.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	p := tea.NewProgram(initialStatusModel(), tea.WithAltScreen())
	go pumpEventsIntoProgram(p, events)

	_, err = p.Run()
	return err
}

func pumpEventsIntoProgram(p *tea.Program, events <-chan engineEvent) {
	for ev := range events {
		p.Send(ev)
	}
}

// logEntry is one line in the event log, shaped as a list.Item so the
// log can scroll and filter through bubbles/list instead of a fixed
// ten-line window.
type logEntry struct {
	timestamp time.Time
	message   string
}

func (e logEntry) Title() string       { return e.message }
func (e logEntry) Description() string { return e.timestamp.Format("15:04:05.000") }
func (e logEntry) FilterValue() string { return e.message }

const maxLogEntries = 200

type statusModel struct {
	lastStatus     uint8
	dataRemaining  uint16
	untransmitted  uint16
	busyRemaining  uint16
	packetsDecoded int
	checksumErrors int
	resetCount     int
	eventLog       list.Model
	width, height  int
	quitting       bool
}

func initialStatusModel() statusModel {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 80, 12)
	l.Title = "Recent events"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)

	return statusModel{
		eventLog: l,
		width:    80,
		height:   24,
	}
}

func (m statusModel) Init() tea.Cmd {
	return tea.EnterAltScreen
}

func (m *statusModel) appendLog(message string) {
	m.eventLog.InsertItem(0, logEntry{timestamp: time.Now(), message: message})
	if len(m.eventLog.Items()) > maxLogEntries {
		m.eventLog.RemoveItem(len(m.eventLog.Items()) - 1)
	}
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.eventLog.SetSize(msg.Width-4, msg.Height/2)

	case engineEvent:
		switch msg.kind {
		case eventStatusWord:
			m.lastStatus = msg.status
			m.dataRemaining = msg.dataPacketsRemaining
			m.untransmitted = msg.untransmittedRemaining
			m.busyRemaining = msg.busyRemaining
		case eventPacketCompleted:
			m.packetsDecoded++
			if !msg.checksumOK {
				m.checksumErrors++
			}
		case eventReset:
			m.resetCount++
		}
		m.appendLog(msg.String())
	}

	m.eventLog, cmd = m.eventLog.Update(msg)
	return m, cmd
}

var statusBitNames = []string{
	"ChecksumError", "PrinterBusy", "ImageDataFull", "UnprocessedData",
	"PacketError", "PaperJam", "OtherError", "LowBattery",
}

func (m statusModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	setStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	clearStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("GBPRINTER - LIVE STATUS"))
	s.WriteString("\n\n")

	var bits strings.Builder
	for i, name := range statusBitNames {
		set := m.lastStatus&(1<<uint(i)) != 0
		style := clearStyle
		mark := "-"
		if set {
			style = setStyle
			mark = "X"
		}
		if name == "ChecksumError" || name == "PacketError" || name == "PaperJam" || name == "OtherError" {
			if set {
				style = errorStyle
			}
		}
		bits.WriteString(style.Render(fmt.Sprintf("[%s] %-18s", mark, name)))
		bits.WriteString("\n")
	}
	s.WriteString(boxStyle.Render(bits.String()))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("Countdowns"))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("  data packets remaining:   %d\n", m.dataRemaining))
	s.WriteString(fmt.Sprintf("  untransmitted remaining:  %d\n", m.untransmitted))
	s.WriteString(fmt.Sprintf("  busy remaining:           %d\n\n", m.busyRemaining))

	s.WriteString(labelStyle.Render("Totals"))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("  packets decoded: %d   checksum errors: %d   resets: %d\n\n", m.packetsDecoded, m.checksumErrors, m.resetCount))

	s.WriteString(m.eventLog.View())

	s.WriteString("\nPress 'q' to quit\n")
	return s.String()
}
