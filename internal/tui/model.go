// Package tui provides the BubbleTea-based terminal user interface.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/themesync/internal/controller"
	"github.com/jmylchreest/themesync/internal/theme"
)

// maxHistory is the number of changes kept for display.
const maxHistory = 8

// palette holds the colors used to render one theme.
type palette struct {
	fg     lipgloss.Color
	bg     lipgloss.Color
	accent lipgloss.Color
	muted  lipgloss.Color
}

var palettes = map[theme.Theme]palette{
	theme.Dark:  {fg: "#eceff4", bg: "#2e3440", accent: "#88c0d0", muted: "#616e88"},
	theme.Light: {fg: "#2e3440", bg: "#eceff4", accent: "#5e81ac", muted: "#4c566a"},
	theme.Unset: {fg: "7", bg: "", accent: "12", muted: "8"},
}

// Model is the main TUI model.
type Model struct {
	ctrl *controller.Controller
	keys KeyMap
	help help.Model

	// State
	changes  []controller.Change
	showHelp bool
	width    int
	height   int
	ready    bool

	// Status message
	statusMsg string
	statusErr bool

	// Controller change subscription
	changeCh <-chan controller.Change
}

// New creates a new TUI model over ctrl.
func New(ctrl *controller.Controller) Model {
	m := Model{
		ctrl: ctrl,
		keys: DefaultKeyMap(),
		help: help.New(),
	}
	if ctrl != nil {
		m.changeCh = ctrl.Subscribe()
	}
	return m
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return m.watchForChanges
}

type changeMsg struct {
	change controller.Change
}

// watchForChanges waits for the next controller change.
func (m Model) watchForChanges() tea.Msg {
	if m.changeCh == nil {
		return nil
	}
	change, ok := <-m.changeCh
	if !ok {
		return nil
	}
	return changeMsg{change: change}
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case changeMsg:
		m.changes = append([]controller.Change{msg.change}, m.changes...)
		if len(m.changes) > maxHistory {
			m.changes = m.changes[:maxHistory]
		}
		return m, m.watchForChanges

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	return m, nil
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.ctrl != nil {
			m.ctrl.Unsubscribe(m.changeCh)
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil
	}

	if m.ctrl == nil {
		return m, nil
	}

	var err error
	switch {
	case key.Matches(msg, m.keys.Toggle):
		err = m.ctrl.Update(theme.Toggle)
	case key.Matches(msg, m.keys.Dark):
		err = m.ctrl.Set(theme.Dark)
	case key.Matches(msg, m.keys.Light):
		err = m.ctrl.Set(theme.Light)
	case key.Matches(msg, m.keys.Clear):
		err = m.ctrl.Set(theme.Unset)
	case key.Matches(msg, m.keys.Follow):
		follow := !m.ctrl.FollowDevice()
		m.ctrl.SetFollowDevice(follow)
		text := "No longer following device preference"
		if follow {
			text = "Following device preference"
		}
		return m, statusCmd(text, false)
	default:
		return m, nil
	}

	if err != nil {
		return m, statusCmd("Theme change failed: "+err.Error(), true)
	}
	return m, nil
}

func statusCmd(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.ctrl == nil {
		return "No theme controller"
	}

	current := m.ctrl.Theme()
	p := palettes[current]

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(p.accent).
		MarginBottom(1)

	badgeStyle := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 2).
		Foreground(p.fg)
	if p.bg != "" {
		badgeStyle = badgeStyle.Background(p.bg)
	}

	labelStyle := lipgloss.NewStyle().Foreground(p.muted)

	var b strings.Builder
	b.WriteString(titleStyle.Render("themesync"))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Theme   ") + badgeStyle.Render(current.String()) + "\n")

	markers := m.ctrl.Markers()
	markerText := "none"
	if len(markers) > 0 {
		markerText = strings.Join(markers, " ")
	}
	b.WriteString(labelStyle.Render("Markers ") + markerText + "\n")
	b.WriteString(labelStyle.Render("Device  ") + followLabel(m.ctrl.FollowDevice()) + "\n\n")

	b.WriteString(labelStyle.Render("Recent changes") + "\n")
	if len(m.changes) == 0 {
		b.WriteString(labelStyle.Render("  (none yet)") + "\n")
	}
	for _, c := range m.changes {
		b.WriteString(fmt.Sprintf("  %s → %s  %s  %s\n",
			c.From.String(), c.To.String(),
			labelStyle.Render(string(c.Cause)),
			labelStyle.Render(humanize.Time(c.At))))
	}

	b.WriteString("\n")
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		b.WriteString(statusStyle.Render(m.statusMsg))
	} else {
		b.WriteString(m.help.View(m.keys))
	}

	return b.String()
}

func followLabel(follow bool) string {
	if follow {
		return "following"
	}
	return "ignored"
}

// Run starts the TUI over ctrl. The caller owns ctrl and closes it.
func Run(ctrl *controller.Controller) error {
	p := tea.NewProgram(New(ctrl), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
