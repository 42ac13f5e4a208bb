package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const asciiLogo = `
  ___  ___   _   _  _ ___  ___ __  __  ___
 / __|/ __| /_\ | \| |   \| __|  \/  |/ _ \
 \__ \ (__ / _ \| .' | |) | _|| |\/| | (_) |
 |___/\___/_/ \_\_|\_|___/|___|_|  |_|\___/
`

var logoColors = []string{"#00FF9C", "#00E08A", "#00C278", "#00A86B"}

// GenerateLogo returns the logo with a green gradient, one colour per line.
func GenerateLogo() string {
	lines := strings.Split(strings.Trim(asciiLogo, "\n"), "\n")
	colored := make([]string, 0, len(lines))
	for i, line := range lines {
		color := "#FFF"
		if i < len(logoColors) {
			color = logoColors[i]
		}
		colored = append(colored, lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(line))
	}
	return strings.Join(colored, "\n")
}
