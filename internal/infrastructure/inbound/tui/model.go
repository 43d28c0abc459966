// Package tui is a terminal viewer for a running scope.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sophialabs/scopecore/internal/domain/settings"
	"github.com/sophialabs/scopecore/internal/infrastructure/usecases"
)

// Source is the scope API as seen by the viewer.
type Source interface {
	Window(ctx context.Context, width float64, segments int) (usecases.WindowView, error)
	Readout(ctx context.Context) (string, error)
	Settings(ctx context.Context) (settings.Settings, error)
	PutSettings(ctx context.Context, s settings.Settings) error
}

// Rows reserved for the header and the footer.
const chromeRows = 4

type tickMsg time.Time

type frameMsg struct {
	view    usecases.WindowView
	readout string
}

type settingsMsg settings.Settings

type errMsg struct{ err error }

// Model is the root Bubbletea model.
type Model struct {
	source   Source
	interval time.Duration
	timeout  time.Duration

	width, height int
	ready         bool
	paused        bool
	selected      int

	view     usecases.WindowView
	readout  string
	settings *settings.Settings
	err      error
}

// NewModel creates a viewer polling source every interval.
func NewModel(source Source, interval time.Duration) *Model {
	return &Model{
		source:   source,
		interval: interval,
		timeout:  2 * time.Second,
	}
}

// Init fetches the settings and starts polling.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchSettings(), m.tick())
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tickMsg:
		if m.paused || !m.ready {
			return m, m.tick()
		}
		return m, tea.Batch(m.fetchFrame(), m.tick())

	case frameMsg:
		m.view = msg.view
		m.readout = msg.readout
		m.err = nil
		return m, nil

	case settingsMsg:
		s := settings.Settings(msg)
		m.settings = &s
		m.selected = min(m.selected, max(len(s.Channels)-1, 0))
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

// handleKeyPress processes keyboard input.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ", "p":
		m.paused = !m.paused
		return m, nil
	case "1", "2", "3", "4":
		i := int(msg.String()[0] - '1')
		if m.settings != nil && i < len(m.settings.Channels) {
			m.selected = i
		}
		return m, nil
	}

	if m.settings == nil {
		return m, nil
	}
	s := *m.settings
	s.Channels = append([]settings.Channel(nil), s.Channels...)
	ch := &s.Channels[m.selected]

	switch msg.String() {
	case "a":
		ch.Active = !ch.Active
	case "t":
		ch.TriggerActive = !ch.TriggerActive
	case "e":
		ch.TriggerEdge = ch.TriggerEdge.Next()
	case "up", "k":
		ch.OffsetY -= 25
	case "down", "j":
		ch.OffsetY += 25
	case "r":
		s.Display.Reverse = !s.Display.Reverse
	case "m":
		s.Display.Movement = !s.Display.Movement
	case "b":
		s.Display.DynamicBuffer = !s.Display.DynamicBuffer
	case "+", "=":
		s.Display.PointsToDisplay = min(s.Display.PointsToDisplay*2, 8000)
	case "-":
		s.Display.PointsToDisplay = max(s.Display.PointsToDisplay/2, 10)
	case "left", "h":
		s.Display.TriggerOffsetX = max(s.Display.TriggerOffsetX-10, 0)
	case "right", "l":
		s.Display.TriggerOffsetX += 10
	case "s":
		s.Acquisition.TestSignal = !s.Acquisition.TestSignal
	default:
		return m, nil
	}
	return m, m.putSettings(s)
}

// View renders the header, the trace canvas and the readout.
func (m *Model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).
		Render(fmt.Sprintf("scope  %d/%d pts  gen %d", m.view.ValidPoints, m.view.HistorySize, m.view.Generation))
	if m.paused {
		title += lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render("  PAUSED")
	}

	c := newCanvas(m.width, m.height-chromeRows)
	c.plot(m.view)
	anchorCol := -1
	if m.settings != nil {
		x := m.settings.Display.TriggerOffsetX
		if m.settings.Display.Reverse {
			x = float64(m.width) - x
		}
		anchorCol = int(math.Round(x))
	}

	lines := []string{title, m.channelBar(), c.render(anchorCol), m.footer()}
	return strings.Join(lines, "\n")
}

func (m *Model) channelBar() string {
	if m.settings == nil {
		return ""
	}
	found := make(map[int]bool, len(m.view.Channels))
	for _, cv := range m.view.Channels {
		found[cv.Channel] = cv.Trigger.Found
	}

	var parts []string
	for i, ch := range m.settings.Channels {
		style := lipgloss.NewStyle().Foreground(channelColors[i%len(channelColors)]).Padding(0, 1)
		if !ch.Active {
			style = style.Faint(true)
		}
		if i == m.selected {
			style = style.Bold(true).Underline(true)
		}
		label := ch.Name
		if ch.TriggerActive {
			label += " " + ch.TriggerEdge.String()
			if found[i] {
				label += " T"
			}
		}
		parts = append(parts, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) footer() string {
	if m.err != nil {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("error: " + m.err.Error())
	}
	readout := strings.Join(strings.Fields(strings.ReplaceAll(m.readout, "\n", "  ")), " ")
	help := lipgloss.NewStyle().Faint(true).Render("  [1-4] ch [a]ctive [t]rig [e]dge [r]ev [m]ove [+/-] pts [q]uit")
	return readout + help
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchFrame asks for one segment per column, with x in columns.
func (m *Model) fetchFrame() tea.Cmd {
	width := m.width
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		v, err := m.source.Window(ctx, float64(width), width)
		if err != nil {
			return errMsg{err}
		}
		readout, err := m.source.Readout(ctx)
		if err != nil {
			return errMsg{err}
		}
		return frameMsg{view: v, readout: readout}
	}
}

func (m *Model) fetchSettings() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		s, err := m.source.Settings(ctx)
		if err != nil {
			return errMsg{err}
		}
		return settingsMsg(s)
	}
}

func (m *Model) putSettings(s settings.Settings) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if err := m.source.PutSettings(ctx, s); err != nil {
			return errMsg{err}
		}
		return settingsMsg(s)
	}
}
