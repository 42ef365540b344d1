package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Send      key.Binding
	Listen    key.Binding
	Stop      key.Binding
	HandsFree key.Binding
	Playback  key.Binding
	Replay    key.Binding
	Clean     key.Binding
	Reset     key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Listen:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "listen")),
		Stop:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop")),
		HandsFree: key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "hands-free")),
		Playback:  key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "voice")),
		Replay:    key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "replay")),
		Clean:     key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "clean")),
		Reset:     key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "reset")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Listen, k.Stop, k.Clean, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Listen, k.Stop},
		{k.HandsFree, k.Playback, k.Replay},
		{k.Clean, k.Reset, k.Quit},
	}
}
