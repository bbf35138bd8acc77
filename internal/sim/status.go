package sim

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/softmatterlab/mdrun/internal/engine"
)

var (
	statusLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	statusDoneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
)

// statusReporter is the transient console updater attached for the
// duration of a single run: step progress, steps per second and the
// estimated time remaining.
type statusReporter struct {
	sim       *Simulation
	total     uint64
	startStep uint64
	started   time.Time
}

func newStatusReporter(s *Simulation, total uint64) *statusReporter {
	return &statusReporter{
		sim:       s,
		total:     total,
		startStep: s.state.Step,
		started:   time.Now(),
	}
}

func (r *statusReporter) Update(st *engine.State) {
	done := st.Step - r.startStep
	if done == 0 {
		return
	}
	elapsed := time.Since(r.started).Seconds()
	tps := float64(done) / elapsed
	remaining := time.Duration(float64(r.total-done) / tps * float64(time.Second))
	pct := 100 * float64(done) / float64(r.total)

	line := fmt.Sprintf("%s %s  %s %s  %s %s",
		statusLabelStyle.Render("step"),
		statusValueStyle.Render(fmt.Sprintf("%d/%d (%.0f%%)", done, r.total, pct)),
		statusLabelStyle.Render("tps"),
		statusValueStyle.Render(fmt.Sprintf("%.0f", tps)),
		statusLabelStyle.Render("eta"),
		statusValueStyle.Render(remaining.Round(time.Second).String()),
	)
	if done >= r.total {
		line = statusDoneStyle.Render("done ") + line
	}
	fmt.Fprintln(os.Stderr, line)
}
