package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	Back     key.Binding
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Chapters key.Binding
	Memorize key.Binding
	Quiz     key.Binding
	Target   key.Binding
	TargetUp key.Binding

	Toggle    key.Binding
	Next      key.Binding
	Prev      key.Binding
	Stop      key.Binding
	Mark      key.Binding
	Tafsir    key.Binding
	Narrator  key.Binding
	StartDown key.Binding
	StartUp   key.Binding
	EndDown   key.Binding
	EndUp     key.Binding
	Repeats   key.Binding
	RepeatsUp key.Binding
	Delay     key.Binding
	DelayUp   key.Binding

	Level key.Binding
	Scope key.Binding
	Kind  key.Binding
	Undo  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Chapters: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "chapters")),
		Memorize: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "memorize")),
		Quiz:     key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "quiz")),
		Target:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-/+", "daily target")),
		TargetUp: key.NewBinding(key.WithKeys("+", "=")),

		Toggle:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/pause")),
		Next:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		Prev:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev")),
		Stop:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Mark:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "memorized")),
		Tafsir:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tafsir")),
		Narrator:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "narrator")),
		StartDown: key.NewBinding(key.WithKeys("s"), key.WithHelp("s/S", "start")),
		StartUp:   key.NewBinding(key.WithKeys("S")),
		EndDown:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e/E", "end")),
		EndUp:     key.NewBinding(key.WithKeys("E")),
		Repeats:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r/R", "repeats")),
		RepeatsUp: key.NewBinding(key.WithKeys("R")),
		Delay:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d/D", "delay")),
		DelayUp:   key.NewBinding(key.WithKeys("D")),

		Level: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "level")),
		Scope: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "scope")),
		Kind:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "kind")),
		Undo:  key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "undo")),
	}
}

// screenHelp adapts one screen's bindings to help.KeyMap.
type screenHelp []key.Binding

func (h screenHelp) ShortHelp() []key.Binding { return h }

func (h screenHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h} }

func (k keyMap) forScreen(s screen) screenHelp {
	switch s {
	case screenChapters:
		return screenHelp{k.Up, k.Down, k.Enter, k.Back, k.Quit}
	case screenMemorize:
		return screenHelp{k.Toggle, k.Next, k.Prev, k.Enter, k.Mark, k.Tafsir, k.Narrator, k.StartDown, k.EndDown, k.Repeats, k.Delay, k.Back}
	case screenQuiz:
		return screenHelp{k.Level, k.Scope, k.Kind, k.Enter, k.Undo, k.Back}
	default:
		return screenHelp{k.Memorize, k.Chapters, k.Quiz, k.Target, k.Quit}
	}
}
