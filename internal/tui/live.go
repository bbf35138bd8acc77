// Package tui is a terminal dashboard for a run in progress: live
// thermodynamic readouts with a scrolling temperature chart.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/softmatterlab/mdrun/internal/engine"
)

const historyCapacity = 300

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(1, 2)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

type tickMsg time.Time

type sampleMsg engine.Sample

type doneMsg struct{ err error }

// Model displays samples from a run driven elsewhere. Feed it through
// the bubbletea program with Send(SampleMsg(...)) and Send(DoneMsg(...)).
type Model struct {
	title       string
	totalSteps  uint64
	last        *engine.Sample
	tempHistory []float64
	peHistory   []float64
	done        bool
	err         error
}

func NewModel(title string, totalSteps uint64) Model {
	return Model{
		title:       title,
		totalSteps:  totalSteps,
		tempHistory: make([]float64, 0, historyCapacity),
		peHistory:   make([]float64, 0, historyCapacity),
	}
}

// SampleMsg wraps a sample for Program.Send.
func SampleMsg(s engine.Sample) tea.Msg { return sampleMsg(s) }

// DoneMsg wraps the run result for Program.Send.
func DoneMsg(err error) tea.Msg { return doneMsg{err: err} }

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case sampleMsg:
		s := engine.Sample(msg)
		m.last = &s
		m.tempHistory = push(m.tempHistory, s.KineticTemperature)
		m.peHistory = push(m.peHistory, s.PotentialEnergy)
	case doneMsg:
		m.done = true
		m.err = msg.err
	case tickMsg:
		return m, tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return tickMsg(t) })
	}
	return m, nil
}

func push(hist []float64, v float64) []float64 {
	hist = append(hist, v)
	if len(hist) > historyCapacity {
		hist = hist[1:]
	}
	return hist
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")

	if m.last == nil {
		b.WriteString(valueStyle.Render("waiting for samples...") + "\n")
		return panelStyle.Render(b.String())
	}
	s := m.last

	if m.totalSteps > 0 {
		pct := float64(s.Step) / float64(m.totalSteps) * 100
		b.WriteString(labelStyle.Render("Progress") + valueStyle.Render(fmt.Sprintf("%d/%d (%.1f%%)", s.Step, m.totalSteps, pct)) + "\n")
	} else {
		b.WriteString(labelStyle.Render("Step") + valueStyle.Render(fmt.Sprintf("%d", s.Step)) + "\n")
	}
	b.WriteString(labelStyle.Render("Temperature") + valueStyle.Render(fmt.Sprintf("%.4f", s.KineticTemperature)) + "\n")
	b.WriteString(labelStyle.Render("Potential") + valueStyle.Render(fmt.Sprintf("%.4f", s.PotentialEnergy)) + "\n")
	b.WriteString(labelStyle.Render("Kinetic") + valueStyle.Render(fmt.Sprintf("%.4f", s.KineticEnergy)) + "\n")
	b.WriteString(labelStyle.Render("Pressure") + valueStyle.Render(fmt.Sprintf("%.4f", s.Pressure)) + "\n")
	b.WriteString(labelStyle.Render("Density") + valueStyle.Render(fmt.Sprintf("%.4f", s.Density)) + "\n")
	b.WriteString(labelStyle.Render("Volume") + valueStyle.Render(fmt.Sprintf("%.2f", s.Volume)) + "\n")
	b.WriteString(labelStyle.Render("TPS") + valueStyle.Render(fmt.Sprintf("%.0f", s.TPS)) + "\n")

	if len(m.tempHistory) > 1 {
		chart := asciigraph.Plot(m.tempHistory, asciigraph.Height(6), asciigraph.Width(50), asciigraph.Caption("kT"))
		b.WriteString(graphStyle.Render(chart) + "\n")
	}
	if len(m.peHistory) > 1 {
		chart := asciigraph.Plot(m.peHistory, asciigraph.Height(6), asciigraph.Width(50), asciigraph.Caption("potential energy"))
		b.WriteString(graphStyle.Render(chart) + "\n")
	}

	if m.done {
		if m.err != nil {
			b.WriteString(doneStyle.Render(fmt.Sprintf("run failed: %v", m.err)) + "\n")
		} else {
			b.WriteString(doneStyle.Render("run complete") + "\n")
		}
	}
	b.WriteString(helpStyle.Render("q: quit"))
	return panelStyle.Render(b.String())
}

// Observer adapts a bubbletea program to the simulation observer
// interface so samples stream into the dashboard as they are logged.
type Observer struct {
	prog *tea.Program
}

func NewObserver(prog *tea.Program) *Observer { return &Observer{prog: prog} }

func (o *Observer) OnSample(s engine.Sample) { o.prog.Send(SampleMsg(s)) }
