package ui

import (
	"github.com/charmbracelet/lipgloss"

	"scandemo/internal/model"
)

// This file centralizes the lipgloss styles used by the scan view.

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF")).
			Background(lipgloss.Color("#00A86B")). // Brand green
			Bold(true).
			Padding(0, 1)

	targetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)

	phaseDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	phaseRunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
	phasePendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)

	statusStyles = map[model.ScanStatus]lipgloss.Style{
		model.StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		model.StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
		model.StatusCancelled: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		model.StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// SeverityStyle colours a severity label the way the dashboard does.
func SeverityStyle(s model.Severity) lipgloss.Style {
	switch s {
	case model.SeverityCritical:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	case model.SeverityHigh:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	case model.SeverityMedium:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	case model.SeverityLow:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	}
}

func statusStyle(s model.ScanStatus) lipgloss.Style {
	if st, ok := statusStyles[s]; ok {
		return st
	}
	return lipgloss.NewStyle()
}
