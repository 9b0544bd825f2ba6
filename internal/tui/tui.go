// Package tui holds the terminal pickers used by the interactive flow.
package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Action is how the author left a picker.
type Action int

const (
	ActionSelect Action = iota
	ActionBack
	ActionSkip
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionSelect:
		return "select"
	case ActionBack:
		return "back"
	case ActionSkip:
		return "skip"
	default:
		return "quit"
	}
}

// ErrNoChoices is returned when a picker is opened with nothing to pick.
var ErrNoChoices = errors.New("no choices to pick from")

// Choice is one entry in a picker.
type Choice struct {
	Title  string
	Detail string
	Swatch []string // hex colours shown next to the title
}

// Options controls which extra keys a picker accepts.
type Options struct {
	AllowBack bool
	AllowSkip bool
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(4)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

type model struct {
	title   string
	choices []Choice
	opts    Options
	cursor  int
	width   int
	action  Action
	done    bool
}

func newModel(title string, choices []Choice, opts Options) model {
	return model{title: title, choices: choices, opts: opts, action: ActionQuit}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m.finish(ActionQuit)
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case "enter":
			return m.finish(ActionSelect)
		case "b", "esc":
			if m.opts.AllowBack {
				return m.finish(ActionBack)
			}
		case "s":
			if m.opts.AllowSkip {
				return m.finish(ActionSkip)
			}
		default:
			if n := digit(msg.String()); n >= 1 && n <= len(m.choices) {
				m.cursor = n - 1
				return m.finish(ActionSelect)
			}
		}
	}
	return m, nil
}

func (m model) finish(action Action) (tea.Model, tea.Cmd) {
	m.action = action
	m.done = true
	return m, tea.Quit
}

func digit(key string) int {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0
	}
	return int(key[0] - '0')
}

func (m model) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	for i, c := range m.choices {
		line := fmt.Sprintf("%d. %s", i+1, c.Title)
		if swatch := renderSwatch(c.Swatch); swatch != "" {
			line += " " + swatch
		}
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> ") + selectedStyle.Render(line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
		if c.Detail != "" {
			style := detailStyle
			if m.width > 8 {
				style = style.Width(m.width - 4)
			}
			b.WriteString(style.Render(c.Detail))
			b.WriteString("\n")
		}
	}

	help := []string{"[↑/k] Up", "[↓/j] Down", "[enter] Select"}
	if m.opts.AllowBack {
		help = append(help, "[b] Back")
	}
	if m.opts.AllowSkip {
		help = append(help, "[s] Skip")
	}
	help = append(help, "[q] Quit")
	b.WriteString(helpStyle.Render(strings.Join(help, " | ")))
	b.WriteString("\n")
	return b.String()
}

func renderSwatch(colors []string) string {
	var parts []string
	for _, c := range colors {
		parts = append(parts, lipgloss.NewStyle().Background(lipgloss.Color(c)).Render("  "))
	}
	return strings.Join(parts, "")
}

// Pick shows choices and blocks until the author leaves the picker. The
// index is only meaningful for ActionSelect.
func Pick(title string, choices []Choice, opts Options) (int, Action, error) {
	if len(choices) == 0 {
		return 0, ActionQuit, ErrNoChoices
	}
	final, err := tea.NewProgram(newModel(title, choices, opts)).Run()
	if err != nil {
		return 0, ActionQuit, fmt.Errorf("picker failed: %w", err)
	}
	m := final.(model)
	return m.cursor, m.action, nil
}
