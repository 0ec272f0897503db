// Package tui implements a read-only live dashboard over mstackd's
// control socket: ManagedList order, zombie status, and in-flight
// animation counts, refreshed on a tick.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/mstack/internal/ipc"
)

const pollInterval = 500 * time.Millisecond

// Run starts the dashboard, blocking until the user quits.
func Run(client *ipc.Client) error {
	p := tea.NewProgram(newModel(client))
	_, err := p.Run()
	return err
}

type statusMsg struct {
	status *ipc.StatusData
	err    error
}

type model struct {
	client    *ipc.Client
	status    *ipc.StatusData
	lastError string
	table     table.Model
	width     int
	height    int
}

func newModel(client *ipc.Client) model {
	columns := []table.Column{
		{Title: "App", Width: 20},
		{Title: "Frame", Width: 28},
		{Title: "State", Width: 10},
	}
	t := table.New(table.WithColumns(columns), table.WithFocused(false), table.WithHeight(10))
	return model{client: client, table: t}
}

func (m model) Init() tea.Cmd {
	return m.poll()
}

func (m model) poll() tea.Cmd {
	client := m.client
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		status, err := client.GetStatus()
		return statusMsg{status: status, err: err}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case statusMsg:
		if msg.err != nil {
			m.lastError = msg.err.Error()
			m.status = nil
		} else {
			m.lastError = ""
			m.status = msg.status
			m.table.SetRows(windowRows(msg.status.Windows))
		}
		return m, m.poll()
	}
	return m, nil
}

func windowRows(windows []ipc.WindowSummary) []table.Row {
	rows := make([]table.Row, 0, len(windows))
	for _, w := range windows {
		state := "active"
		if w.Zombie {
			state = "zombie"
		}
		frame := fmt.Sprintf("%.0f,%.0f %.0fx%.0f", w.X, w.Y, w.Width, w.Height)
		rows = append(rows, table.Row{w.AppName, frame, state})
	}
	return rows
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(1, 1, 0, 1)
)

func (m model) View() string {
	b := []string{titleStyle.Render("mstackd dashboard")}

	if m.lastError != "" {
		b = append(b, errorStyle.Render("not connected: "+m.lastError))
		b = append(b, helpStyle.Render("q: quit"))
		return lipgloss.JoinVertical(lipgloss.Left, b...)
	}

	if m.status == nil {
		b = append(b, labelStyle.Render("connecting..."))
		return lipgloss.JoinVertical(lipgloss.Left, b...)
	}

	trusted := valueStyle.Render("yes")
	if !m.status.Trusted {
		trusted = errorStyle.Render("no")
	}

	b = append(b,
		row("accessibility trusted", trusted),
		row("managed windows", fmt.Sprintf("%d", m.status.ManagedWindowCount)),
		row("zombies pending purge", fmt.Sprintf("%d", m.status.ZombieCount)),
		row("active animations", fmt.Sprintf("%d", m.status.ActiveAnimations)),
		row("uptime", fmt.Sprintf("%.0fs", m.status.UptimeSeconds)),
		"",
		m.table.View(),
		helpStyle.Render("q/esc/ctrl-c: quit"),
	)

	return lipgloss.JoinVertical(lipgloss.Left, b...)
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-24s", label)) + value
}
