package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scandemo/internal/model"
	"scandemo/internal/scan"
	"scandemo/internal/simulation"
)

// ScanActions are the controls the view can trigger on its scan.
type ScanActions struct {
	Stop   func() error
	Pause  func() error
	Resume func() error
}

// ScanModel follows one scan: phases with a spinner on the running one, a
// progress bar, and the findings so far.
type ScanModel struct {
	scanID  string
	target  string
	phases  []simulation.Phase
	events  <-chan scan.Event
	actions ScanActions

	spinner  spinner.Model
	progress progress.Model
	table    table.Model
	help     help.Model

	step     int
	percent  float64
	status   model.ScanStatus
	paused   bool
	findings []model.Vulnerability
	message  string
	err      error
	quitting bool
}

type scanEventMsg scan.Event
type eventsClosedMsg struct{}
type scanActionMsg struct {
	msg string
	err error
}

// NewScanModel builds the view for sc, fed by events.
func NewScanModel(sc model.Scan, phases []simulation.Phase, events <-chan scan.Event, actions ScanActions) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = phaseRunningStyle

	columns := []table.Column{
		{Title: "SEVERITY", Width: 10},
		{Title: "TITLE", Width: 28},
		{Title: "CVSS", Width: 5},
		{Title: "LOCATION", Width: 36},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(6),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	t.SetStyles(st)

	m := ScanModel{
		scanID:   sc.ID,
		target:   sc.TargetURL,
		phases:   phases,
		events:   events,
		actions:  actions,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		table:    t,
		help:     help.New(),
		step:     sc.CurrentStep,
		percent:  sc.Progress,
		status:   sc.Status,
		paused:   sc.Paused,
	}
	m.findings = append(m.findings, sc.Vulnerabilities...)
	m.updateTableRows()
	return m
}

func waitForEvent(events <-chan scan.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return scanEventMsg(e)
	}
}

func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w := msg.Width - 20
		if w > 80 {
			w = 80
		}
		if w > 10 {
			m.progress.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, scanKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, scanKeys.Stop):
			if m.status.Terminal() || m.actions.Stop == nil {
				return m, nil
			}
			return m, runAction(m.actions.Stop, "Scan stopped")
		case key.Matches(msg, scanKeys.Pause):
			if m.status != model.StatusRunning {
				return m, nil
			}
			if m.paused {
				return m, runAction(m.actions.Resume, "Scan resumed")
			}
			return m, runAction(m.actions.Pause, "Scan paused")
		}
		return m, nil

	case scanActionMsg:
		m.err = msg.err
		if msg.err == nil {
			m.message = msg.msg
		}
		return m, nil

	case scanEventMsg:
		e := scan.Event(msg)
		if e.ScanID != m.scanID {
			return m, waitForEvent(m.events)
		}
		m.apply(e)
		if e.Terminal() {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func runAction(fn func() error, done string) tea.Cmd {
	if fn == nil {
		return nil
	}
	return func() tea.Msg {
		if err := fn(); err != nil {
			return scanActionMsg{err: err}
		}
		return scanActionMsg{msg: done}
	}
}

func (m *ScanModel) apply(e scan.Event) {
	m.status = e.Status
	m.percent = e.Progress
	switch e.Type {
	case scan.EventPhase:
		m.step = e.Step
	case scan.EventProgress:
		m.step = e.Step + 1
	case scan.EventVulnerability:
		if e.Vulnerability != nil {
			m.findings = append(m.findings, *e.Vulnerability)
			m.updateTableRows()
		}
	case scan.EventPaused:
		m.paused = true
	case scan.EventResumed:
		m.paused = false
	case scan.EventCompleted:
		m.step = len(m.phases)
		m.paused = false
	case scan.EventCancelled:
		m.paused = false
	}
}

func (m *ScanModel) updateTableRows() {
	rows := make([]table.Row, 0, len(m.findings))
	for _, v := range m.findings {
		rows = append(rows, table.Row{
			v.Severity.Title(),
			v.Title,
			fmt.Sprintf("%.1f", v.CVSS),
			v.Location,
		})
	}
	m.table.SetRows(rows)
}

// Status is the last status the view saw.
func (m ScanModel) Status() model.ScanStatus {
	return m.status
}

// Findings are the vulnerabilities reported so far.
func (m ScanModel) Findings() []model.Vulnerability {
	return m.findings
}

// Quit reports whether the user left before the scan finished.
func (m ScanModel) Quit() bool {
	return m.quitting
}

func (m ScanModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Security Scan"))
	b.WriteString(" ")
	b.WriteString(targetStyle.Render(m.target))
	b.WriteString("\n\n")

	for i, p := range m.phases {
		switch {
		case i < m.step:
			b.WriteString(phaseDoneStyle.Render("✓ " + p.Name))
		case i == m.step && m.status == model.StatusRunning:
			b.WriteString(m.spinner.View() + " " + phaseRunningStyle.Render(p.Name))
			b.WriteString(phasePendingStyle.Render("  " + p.Description))
		default:
			b.WriteString(phasePendingStyle.Render("· " + p.Name))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.progress.ViewAs(m.percent / 100))
	status := string(m.status)
	if m.paused {
		status += " (paused)"
	}
	b.WriteString("  " + statusStyle(m.status).Render(status))
	b.WriteString("\n\n")

	if len(m.findings) == 0 {
		b.WriteString(phasePendingStyle.Render("No vulnerabilities found yet"))
	} else {
		b.WriteString(fmt.Sprintf("%d vulnerabilities found\n", len(m.findings)))
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.message != "" {
		b.WriteString(messageStyle.Render(m.message))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.help.View(scanKeys)))
	b.WriteString("\n")
	return b.String()
}
