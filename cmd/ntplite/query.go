package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/beevik/ntp"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ntplite/ntplite/internal/sugar"
	"github.com/ntplite/ntplite/internal/ui"
	"github.com/ntplite/ntplite/pkg/ntplite"
)

func handleQueryCommand(address string, check bool) {
	m := queryCommandModel{address: address, check: check, ticks: make(chan struct{}, queryMessages)}
	m.resetProgress()

	if _, err := sugar.RunProgramWithErrors(m); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

const (
	padding  = 10
	maxWidth = 80
)

const queryMessages = 5

var percentage float64 = 0
var result string

type queryCommandModel struct {
	progress progress.Model
	address  string
	check    bool
	ticks    chan struct{}
	err      error
}

type ntpQueryMessage string
type ntpQueryError error
type progressUpdateMessage struct{}

func ntpQueryCommand(m queryCommandModel) tea.Cmd {
	return func() tea.Msg {
		measured, err := ntplite.Query(m.address, 0, queryMessages, 0, m.ticks)
		if err != nil {
			return ntpQueryError(err)
		}

		offsetMs := float64(measured.Offset.Microseconds()) / 1000
		delayMs := float64(measured.RoundTrip.Microseconds()) / 2000
		offsetString := strconv.FormatFloat(offsetMs, 'G', 5, 64)
		if measured.Offset > 0 {
			offsetString = "+" + offsetString
		}
		delayString := strconv.FormatFloat(delayMs, 'G', 5, 64)
		addr, _ := net.ResolveIPAddr("ip", m.address)
		line := fmt.Sprint(offsetString, " +/- ", delayString, " ms ", m.address, " ", addr.String(), " (", measured.Stratum, ")")
		if m.check {
			line += "\n" + referenceCheck(m.address)
		}
		return ntpQueryMessage(line)
	}
}

// referenceCheck measures the same server with an independent NTP
// implementation so the two readings can be eyeballed side by side.
func referenceCheck(address string) string {
	response, err := ntp.Query(address)
	if err != nil {
		return "reference query failed: " + err.Error()
	}
	if err := response.Validate(); err != nil {
		return "reference response rejected: " + err.Error()
	}
	offsetMs := float64(response.ClockOffset.Microseconds()) / 1000
	rttMs := float64(response.RTT.Microseconds()) / 1000
	return fmt.Sprint("reference: ", strconv.FormatFloat(offsetMs, 'G', 5, 64), " ms offset, ",
		strconv.FormatFloat(rttMs, 'G', 5, 64), " ms rtt, stratum ", response.Stratum)
}

func progressListenCommand(m queryCommandModel) tea.Cmd {
	return func() tea.Msg {
		<-m.ticks
		return progressUpdateMessage{}
	}
}

func (m *queryCommandModel) resetProgress() {
	m.progress = progress.New(progress.WithScaledGradient("#5f87af", "#87d7ff"))
}

func (m queryCommandModel) Init() tea.Cmd {
	return tea.Batch(ntpQueryCommand(m), progressListenCommand(m))
}

func (m queryCommandModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - padding*2 - 4
		if m.progress.Width > maxWidth {
			m.progress.Width = maxWidth
		}
		return m, nil
	case progressUpdateMessage:
		percentage += 1 / float64(queryMessages)
		return m, progressListenCommand(m)
	case ntpQueryMessage:
		result = string(msg)
		return m, tea.Quit
	case ntpQueryError:
		m.err = msg
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m queryCommandModel) View() (s string) {
	if m.err != nil {
		return
	}

	if result == "" {
		s += ui.Title("ntplite - query") + "\n\n"
		s += m.progress.ViewAs(percentage) + "\n\n"
		s += ui.Help("q: exit") + "\n"
	} else {
		s += result + "\n"
	}
	return
}

func (m queryCommandModel) GetError() error {
	return m.err
}
