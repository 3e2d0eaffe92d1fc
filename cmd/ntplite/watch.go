package main

import (
	"fmt"
	"log"
	"net/rpc"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ntplite/ntplite/internal/ui"
	"github.com/ntplite/ntplite/pkg/ntplite"
)

func handleWatchCommand(socket string) {
	m := watchModel{socket: socket, table: setupTable()}

	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

const fetchInfoPeriod = time.Second * 2

type watchModel struct {
	socket string

	table            table.Model
	daemonKillStatus string
	RPCInfo
}

var client *rpc.Client

type RPCInfo struct {
	servers []ntplite.ServerRecord
	stats   ntplite.Statistics
}

type dialSocketMessage *rpc.Client
type fetchInfoMessage RPCInfo
type tickMsg time.Time

func dialSocketCommand(m watchModel) tea.Cmd {
	return func() tea.Msg {
		client, err := rpc.Dial("unix", m.socket)
		if err != nil {
			log.Fatalf("Error connecting to ntplite daemon: %v", err)
		}

		return dialSocketMessage(client)
	}
}

func fetchInfoCommand(m watchModel) tea.Cmd {
	return func() tea.Msg {
		var servers []ntplite.ServerRecord
		serversCall := client.Go("Server.FetchServers", 0, &servers, nil)
		var stats ntplite.Statistics
		statsCall := client.Go("Server.FetchStats", 0, &stats, nil)

		err := (<-serversCall.Done).Error
		if err != nil {
			log.Fatalf("Error getting info from daemon: %v", err)
		}

		err = (<-statsCall.Done).Error
		if err != nil {
			log.Fatalf("Error getting info from daemon: %v", err)
		}

		return fetchInfoMessage(RPCInfo{servers: servers, stats: stats})
	}
}

func stopDaemonCommand() tea.Cmd {
	return func() tea.Msg {
		killDaemon()
		return nil
	}
}

func tickCommand(duration time.Duration) tea.Cmd {
	return tea.Tick(duration, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m watchModel) Init() tea.Cmd {
	return dialSocketCommand(m)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.table.Focused() {
				m.table.Blur()
			} else {
				m.table.Focus()
			}
		case "stop", "s":
			m.daemonKillStatus = "Stopping ntplited"
			return m, tea.Sequence(stopDaemonCommand(), tea.Quit)
		case "ctrl+c", "q":
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	case dialSocketMessage:
		client = msg
		return m, tickCommand(0)
	case fetchInfoMessage:
		m.RPCInfo = RPCInfo(msg)
		rows := []table.Row{}
		for _, server := range m.servers {
			lastSuccess := "never"
			if !server.LastSuccess.IsZero() {
				lastSuccess = fmt.Sprintf("%s ago", time.Since(server.LastSuccess).Truncate(time.Second))
			}
			reach := "yes"
			if !server.Reachable {
				reach = "no"
			}
			row := table.Row{
				fmt.Sprintf("%s:%d", server.Hostname, server.Port),
				server.Stratum.String(),
				reach,
				strconv.Itoa(server.ConsecutiveFailures),
				strconv.FormatFloat(server.AverageOffsetMs, 'G', 5, 64),
				strconv.FormatFloat(server.AverageRTTMs, 'G', 5, 64),
				lastSuccess,
			}
			rows = append(rows, row)
		}
		m.table.SetRows(rows)
		return m, nil
	case tickMsg:
		return m, tea.Batch(tickCommand(fetchInfoPeriod), fetchInfoCommand(m))
	default:
		return m, nil
	}
}

func (m watchModel) View() (s string) {
	s += ui.Title("ntplite") + "\n"
	s += ui.TableBase(m.table.View()) + "\n"
	s += fmt.Sprintf("%d synced / %d failed, last offset %s\n\n",
		m.stats.SyncCount, m.stats.FailureCount, m.stats.LastOffset)
	if m.daemonKillStatus != "" {
		s += m.daemonKillStatus + "\n"
	} else {
		s += ui.Help("q: exit, s: stop daemon") + "\n"
	}
	return
}

func setupTable() table.Model {
	columns := []table.Column{
		{Title: "Address", Width: 22},
		{Title: "Stratum", Width: 12},
		{Title: "Reach", Width: 6},
		{Title: "Fails", Width: 6},
		{Title: "Offset (ms)", Width: 12},
		{Title: "RTT (ms)", Width: 10},
		{Title: "Last Success", Width: 14},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(7),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ui.TableGray).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("218")).
		Background(lipgloss.Color("70")).
		Bold(false)
	t.SetStyles(s)

	return t
}
