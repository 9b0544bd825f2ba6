package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func sampleChoices() []Choice {
	return []Choice{
		{Title: "案1", Detail: "導入1"},
		{Title: "案2", Detail: "導入2"},
		{Title: "案3", Swatch: []string{"#111111", "#222222", "#333333"}},
	}
}

func press(m model, keys ...string) (model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(model)
	}
	return m, cmd
}

func TestCursorMovement(t *testing.T) {
	m := newModel("構成案", sampleChoices(), Options{})

	m, _ = press(m, "down", "j", "down")
	if m.cursor != 2 {
		t.Errorf("Expected cursor clamped at 2, got %d", m.cursor)
	}
	m, _ = press(m, "up", "k", "k", "up")
	if m.cursor != 0 {
		t.Errorf("Expected cursor clamped at 0, got %d", m.cursor)
	}
}

func TestSelect(t *testing.T) {
	m := newModel("構成案", sampleChoices(), Options{})
	m, cmd := press(m, "down", "enter")

	if !m.done || m.action != ActionSelect || m.cursor != 1 {
		t.Errorf("Expected selection of index 1, got done=%v action=%s cursor=%d", m.done, m.action, m.cursor)
	}
	if cmd == nil {
		t.Error("Expected quit command after selection")
	}
}

func TestDigitSelects(t *testing.T) {
	m := newModel("構成案", sampleChoices(), Options{})
	m, _ = press(m, "3")
	if m.action != ActionSelect || m.cursor != 2 {
		t.Errorf("Expected digit 3 to select index 2, got %s %d", m.action, m.cursor)
	}

	m = newModel("構成案", sampleChoices(), Options{})
	m, _ = press(m, "9")
	if m.done {
		t.Error("Expected out-of-range digit to be ignored")
	}
}

func TestBackAndSkipRespectOptions(t *testing.T) {
	m := newModel("方向性", sampleChoices(), Options{})
	m, _ = press(m, "b", "s", "esc")
	if m.done {
		t.Error("Expected back and skip to be ignored when not allowed")
	}

	m = newModel("方向性", sampleChoices(), Options{AllowBack: true, AllowSkip: true})
	back, _ := press(m, "b")
	if back.action != ActionBack {
		t.Errorf("Expected back, got %s", back.action)
	}
	skip, _ := press(m, "s")
	if skip.action != ActionSkip {
		t.Errorf("Expected skip, got %s", skip.action)
	}
}

func TestQuit(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c"} {
		m, _ := press(newModel("x", sampleChoices(), Options{}), key)
		if !m.done || m.action != ActionQuit {
			t.Errorf("Expected %s to quit, got %s", key, m.action)
		}
	}
}

func TestView(t *testing.T) {
	m := newModel("構成案を選んでください", sampleChoices(), Options{AllowBack: true})
	view := m.View()

	for _, want := range []string{"構成案を選んでください", "1. 案1", "導入2", "3. 案3", "[b] Back"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
	if strings.Contains(view, "[s] Skip") {
		t.Error("Expected no skip hint when skipping is not allowed")
	}

	m, _ = press(m, "enter")
	if m.View() != "" {
		t.Error("Expected empty view after the picker is done")
	}
}

func TestPickRequiresChoices(t *testing.T) {
	if _, _, err := Pick("空", nil, Options{}); !errors.Is(err, ErrNoChoices) {
		t.Errorf("Expected ErrNoChoices, got %v", err)
	}
}
