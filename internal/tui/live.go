// Package tui is the live terminal view of a running simulation: per-block
// solver status and a trace of the first state variable, refreshed as the
// engine steps.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/mlundvall/daesim/internal/sim"
)

const historyCapacity = 240

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model steps the engine on every tick and renders solver status.
type Model struct {
	engine  *sim.Engine
	x       []float64
	t, dt   float64
	steps   int
	failed  int
	running bool
	err     error
	history []float64
	fps     int
}

// NewModel wraps an initialized engine. The engine's registry must already
// be initialized.
func NewModel(engine *sim.Engine, dt float64, fps int) Model {
	if fps <= 0 {
		fps = 30
	}
	return Model{
		engine:  engine,
		x:       append([]float64(nil), engine.Model().InitialState()...),
		dt:      dt,
		running: true,
		history: make([]float64, 0, historyCapacity),
		fps:     fps,
	}
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.x = append(m.x[:0], m.engine.Model().InitialState()...)
			m.t = 0
			m.steps = 0
			m.failed = 0
			m.history = m.history[:0]
			m.err = nil
		}
		return m, nil

	case TickMsg:
		if m.running && m.err == nil {
			failed, err := m.engine.Step(m.t, m.x)
			if err != nil {
				m.err = err
				m.running = false
			} else {
				if failed {
					m.failed++
				}
				m.t += m.dt
				m.steps++
				m.history = append(m.history, m.x[0])
				if len(m.history) > historyCapacity {
					m.history = m.history[1:]
				}
			}
		}
		return m, m.tick()
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("daesim live · %s · %s", m.engine.Model().Name(), m.engine.Registry().Method())))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	row("time", fmt.Sprintf("%.3f", m.t))
	row("steps", fmt.Sprintf("%d", m.steps))
	row("failed steps", fmt.Sprintf("%d", m.failed))

	b.WriteString("\n")
	reg := m.engine.Registry()
	for i := 0; i < reg.Len(); i++ {
		sys := reg.System(i)
		status := okStyle.Render("solved")
		if m.steps > 0 && !sys.Solved {
			status = failStyle.Render("FAILED")
		}
		b.WriteString(fmt.Sprintf("  block %d  eqn %s  n=%-4d %s\n",
			i, m.engine.Model().EquationName(sys.EquationIndex), sys.Size, status))
	}

	if len(m.history) > 1 {
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(8),
			asciigraph.Width(70),
			asciigraph.Caption("x0"),
		)
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(failStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("space pause · r reset · q quit"))
	return b.String()
}
