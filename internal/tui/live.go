// Package tui shows a running simulation in the terminal: snapshot
// progress, the current redshift and the growth of the stellar mass.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/galevo/internal/evolve"
	"github.com/san-kum/galevo/internal/report"
)

const (
	barWidth   = 40
	plotWidth  = 50
	plotHeight = 8
	tickRate   = time.Second / 10
)

var ErrInterrupted = errors.New("tui: interrupted")

type TickMsg time.Time

// SnapshotMsg carries one finished snapshot into the model.
type SnapshotMsg evolve.SnapshotReport

// DoneMsg ends the view once the run returns.
type DoneMsg struct {
	Result *evolve.Result
	Err    error
}

// Model is the bubbletea model of a running simulation.
type Model struct {
	title  string
	total  int
	cancel context.CancelFunc

	reports []evolve.SnapshotReport
	stars   []float64
	lost    float64
	frame   int

	done   bool
	result *evolve.Result
	err    error
}

// NewModel tracks a run of total snapshots. cancel is called when the
// user quits before the run finishes.
func NewModel(title string, total int, cancel context.CancelFunc) Model {
	return Model{title: title, total: total, cancel: cancel}
}

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done {
				if m.cancel != nil {
					m.cancel()
				}
				m.err = ErrInterrupted
			}
			return m, tea.Quit
		}
	case SnapshotMsg:
		r := evolve.SnapshotReport(msg)
		m.reports = append(m.reports, r)
		m.stars = append(m.stars, r.Entry.MStars.Mass)
		m.lost += r.Transfer.LostBaryons
	case DoneMsg:
		m.done = true
		m.result = msg.Result
		if msg.Err != nil {
			m.err = msg.Err
		}
		return m, tea.Quit
	case TickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tick()
	}
	return m, nil
}

// Progress is the fraction of snapshots evolved so far.
func (m Model) Progress() float64 {
	if m.total <= 0 {
		return 0
	}
	return math.Min(float64(len(m.reports))/float64(m.total), 1)
}

func (m Model) Result() (*evolve.Result, error) { return m.result, m.err }

func (m Model) View() string {
	var s strings.Builder

	status := report.StatusRunning.Render(report.Spinner(m.frame) + " EVOLVING")
	switch {
	case m.err != nil:
		status = report.StatusFailed.Render("✗ " + m.err.Error())
	case m.done:
		status = report.StatusRunning.Render("✓ DONE")
	}
	s.WriteString(report.Header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(status + "\n\n")

	s.WriteString(report.ProgressBar(m.Progress(), barWidth))
	s.WriteString(fmt.Sprintf(" %d/%d\n\n", len(m.reports), m.total))

	if n := len(m.reports); n > 0 {
		last := m.reports[n-1]
		row := func(label, value string) {
			s.WriteString(report.MetricLabel.Render(label) + report.MetricValue.Render(value) + "\n")
		}
		row("Snapshot", fmt.Sprintf("%d", last.Interval.Snapshot))
		row("Redshift", fmt.Sprintf("%.3f → %.3f", last.Interval.Z, last.Interval.ZNext))
		row("Galaxies", fmt.Sprintf("%d", last.Galaxies))
		row("Stellar mass", fmt.Sprintf("%.3e", last.Entry.MStars.Mass))
		row("SFR", fmt.Sprintf("%.3e", last.Entry.SFRDisk+last.Entry.SFRBulge))
		row("Bursts", fmt.Sprintf("%d", last.Bursts))
		row("Lost baryons", fmt.Sprintf("%.3e", m.lost))
	}

	if len(m.stars) > 1 {
		chart := asciigraph.Plot(logSeries(m.stars),
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption("log10 stellar mass"))
		s.WriteString("\n" + chart + "\n")
	}

	s.WriteString("\n" + report.KeyHint.Render("q: quit"))
	return lipgloss.NewStyle().Padding(1, 2).Render(s.String())
}

func logSeries(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v > 0 {
			out[i] = math.Log10(v)
		}
	}
	return out
}

// Observer forwards snapshot reports to a running program.
func Observer(p *tea.Program) evolve.Observer {
	return evolve.ObserverFunc(func(r evolve.SnapshotReport) error {
		p.Send(SnapshotMsg(r))
		return nil
	})
}

// RunFunc runs a simulation, reporting each snapshot to obs.
type RunFunc func(ctx context.Context, obs evolve.Observer) (*evolve.Result, error)

// Run shows the live view while run executes and returns its outcome.
// Quitting the view cancels the run.
func Run(ctx context.Context, title string, total int, run RunFunc, opts ...tea.ProgramOption) (*evolve.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(title, total, cancel), opts...)
	go func() {
		res, err := run(ctx, Observer(p))
		p.Send(DoneMsg{Result: res, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	return final.(Model).Result()
}
