package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Pause      key.Binding
	SeekBack   key.Binding
	SeekFwd    key.Binding
	VolUp      key.Binding
	VolDown    key.Binding
	NextDevice key.Binding
	PrevDevice key.Binding
	Bypass     key.Binding
	ThreshUp   key.Binding
	ThreshDown key.Binding
	Loop       key.Binding
	View       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Pause:      key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "pause")),
		SeekBack:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-5s")),
		SeekFwd:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+5s")),
		VolUp:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "vol+")),
		VolDown:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "vol-")),
		NextDevice: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "next device")),
		PrevDevice: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "prev device")),
		Bypass:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bypass")),
		ThreshUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "threshold+")),
		ThreshDown: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "threshold-")),
		Loop:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "loop")),
		View:       key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:       key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.NextDevice, k.Bypass, k.ThreshUp, k.ThreshDown, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.SeekBack, k.SeekFwd, k.VolUp, k.VolDown},
		{k.NextDevice, k.PrevDevice, k.Bypass},
		{k.ThreshUp, k.ThreshDown, k.Loop, k.View},
		{k.Help, k.Quit},
	}
}
