package ui

import "github.com/charmbracelet/bubbles/key"

type scanKeyMap struct {
	Stop  key.Binding
	Pause key.Binding
	Quit  key.Binding
}

func (k scanKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Stop, k.Pause, k.Quit}
}

func (k scanKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var scanKeys = scanKeyMap{
	Stop: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "stop"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause/resume"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
}
