package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/flowsim/internal/diagram"
)

const (
	chartWidth   = 70
	chartHeight  = 8
	trailWindow  = 400
	stepsPerTick = 5
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	chartStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model drives a simulation incrementally and renders its scope signals as
// scrolling charts.
type Model struct {
	title    string
	rebuild  func() (*diagram.Built, error)
	built    *diagram.Built
	duration float64
	running  bool
	finished bool
	err      error
}

// NewModel builds the initial live-view state. rebuild assembles a fresh
// diagram; it runs once up front and again on reset.
func NewModel(title string, duration float64, rebuild func() (*diagram.Built, error)) (Model, error) {
	built, err := rebuild()
	if err != nil {
		return Model{}, err
	}
	return Model{
		title:    title,
		rebuild:  rebuild,
		built:    built,
		duration: duration,
		running:  true,
	}, nil
}

func tick() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running && !m.finished
		case "r":
			built, err := m.rebuild()
			if err != nil {
				m.err = err
				return m, nil
			}
			m.built = built
			m.err = nil
			m.finished = false
			m.running = true
		}
		return m, nil

	case TickMsg:
		if m.running && m.err == nil {
			for i := 0; i < stepsPerTick; i++ {
				if m.built.Sim.Time() >= m.duration {
					m.finished = true
					m.running = false
					break
				}
				if err := m.built.Sim.Step(); err != nil {
					m.err = err
					m.running = false
					break
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("flowsim live: "+m.title) + "\n")

	sb.WriteString(labelStyle.Render("time") +
		valueStyle.Render(fmt.Sprintf("%8.3f / %.3f s", m.built.Sim.Time(), m.duration)) + "\n")
	sb.WriteString(labelStyle.Render("dt") +
		valueStyle.Render(fmt.Sprintf("%8.4f s", m.built.Sim.Dt())) + "\n")
	sb.WriteString(labelStyle.Render("points") +
		valueStyle.Render(fmt.Sprintf("%8d", m.built.Scope.Len())) + "\n")

	switch {
	case m.err != nil:
		sb.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	case m.finished:
		sb.WriteString(pausedStyle.Render("finished") + "\n")
	case !m.running:
		sb.WriteString(pausedStyle.Render("paused") + "\n")
	}

	_, signals := m.built.Scope.Read()
	for _, label := range m.built.Scope.Labels() {
		chart := Sparkline(signals[label], trailWindow, chartWidth, chartHeight, label)
		if chart != "" {
			sb.WriteString(chartStyle.Render(chart) + "\n")
		}
	}

	sb.WriteString(helpStyle.Render("space pause · r reset · q quit"))
	return sb.String()
}

// RunLive runs the live view until the user quits.
func RunLive(title string, duration float64, rebuild func() (*diagram.Built, error)) error {
	m, err := NewModel(title, duration, rebuild)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m).Run()
	return err
}
