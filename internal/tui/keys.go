package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Keep          key.Binding
	Drop          key.Binding
	Undo          key.Binding
	ScriptKeep    key.Binding
	ScriptDrop    key.Binding
	Open          key.Binding
	Back          key.Binding
	Results       key.Binding
	ExportLists   key.Binding
	ExportHistory key.Binding
	Reset         key.Binding
	Scroll        key.Binding
	Confirm       key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Keep:          key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "keep")),
		Drop:          key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "drop")),
		Undo:          key.NewBinding(key.WithKeys("down", "u"), key.WithHelp("↓/u", "undo")),
		ScriptKeep:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "swipe keep")),
		ScriptDrop:    key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "swipe drop")),
		Open:          key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:          key.NewBinding(key.WithKeys("esc", "home"), key.WithHelp("esc", "collections")),
		Results:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "results")),
		ExportLists:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export csv")),
		ExportHistory: key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "export result")),
		Reset:         key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reset progress")),
		Scroll:        key.NewBinding(key.WithKeys("j", "k", "pgup", "pgdown"), key.WithHelp("j/k", "scroll abstract")),
		Confirm:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// helpKeys adapts a set of bindings to help.KeyMap.
type helpKeys struct {
	short []key.Binding
	full  [][]key.Binding
}

func (h helpKeys) ShortHelp() []key.Binding  { return h.short }
func (h helpKeys) FullHelp() [][]key.Binding { return h.full }

func (k keyMap) pickerHelp() helpKeys {
	return helpKeys{
		short: []key.Binding{k.Open, k.ExportLists, k.ExportHistory, k.Help, k.Quit},
		full: [][]key.Binding{
			{k.Open, k.Results, k.Reset},
			{k.ExportLists, k.ExportHistory},
			{k.Help, k.Quit},
		},
	}
}

func (k keyMap) cardHelp() helpKeys {
	return helpKeys{
		short: []key.Binding{k.Drop, k.Keep, k.Undo, k.Back, k.Help},
		full: [][]key.Binding{
			{k.Drop, k.Keep, k.Undo},
			{k.ScriptDrop, k.ScriptKeep, k.Scroll},
			{k.Results, k.ExportLists, k.ExportHistory},
			{k.Back, k.Help, k.Quit},
		},
	}
}
