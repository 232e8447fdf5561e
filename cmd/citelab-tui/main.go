package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	citationlab "github.com/FHSS-Web-Team/citation-lab"
	"github.com/FHSS-Web-Team/citation-lab/cmd/citelab/commands"
	"github.com/FHSS-Web-Team/citation-lab/internal/u16"
)

// editorKeyMap defines keybindings for the authoring surface.
type editorKeyMap struct {
	Insert   key.Binding
	Command  key.Binding
	Left     key.Binding
	Right    key.Binding
	Anchor   key.Binding
	Mark     key.Binding
	Clear    key.Binding
	FoldSel  key.Binding
	Unfold   key.Binding
	Preview  key.Binding
	Undo     key.Binding
	Quit     key.Binding
}

var editorKeys = editorKeyMap{
	Insert:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "edit text")),
	Command: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "command mode")),
	Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h", "cursor left")),
	Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l", "cursor right")),
	Anchor:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "set anchor")),
	Mark:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mark expression")),
	Clear:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear marks")),
	FoldSel: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fold selection")),
	Unfold:  key.NewBinding(key.WithKeys("U"), key.WithHelp("U", "unfold all")),
	Preview: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "toggle preview")),
	Undo:    key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "undo commit")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Width(10).
			Foreground(lipgloss.Color("241"))

	markedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Underline(true)

	cursorStyle = lipgloss.NewStyle().
			Reverse(true)

	anchorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("63"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

type mode int

const (
	modeInsert mode = iota
	modeCommand
)

type model struct {
	sess *citationlab.EditSession

	mode        mode
	input       textinput.Model
	pos         int // command-mode cursor, UTF-16 code units
	anchor      int // selection anchor, -1 when unset
	showPreview bool
	status      string
}

func newModel(text string) model {
	input := textinput.New()
	input.Placeholder = "[Author], [Year]"
	input.SetValue(text)
	input.Focus()

	return model{
		sess:   citationlab.NewEditSession(text),
		mode:   modeInsert,
		input:  input,
		anchor: -1,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.mode == modeInsert {
		return m.updateInsert(keyMsg)
	}
	return m.updateCommand(keyMsg)
}

func (m model) updateInsert(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, editorKeys.Command):
		// Leaving insert mode commits the typed text to the session.
		m.sess.SetText(m.input.Value())
		m.mode = modeCommand
		m.input.Blur()
		m.pos = clamp(m.pos, 0, u16.Len(m.sess.Text()))
		m.anchor = -1
		m.status = ""
		return m, nil

	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	bufLen := u16.Len(m.sess.Text())
	m.status = ""

	switch {
	case key.Matches(msg, editorKeys.Quit):
		return m, tea.Quit

	case key.Matches(msg, editorKeys.Insert):
		m.mode = modeInsert
		m.input.SetValue(m.sess.Text())
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, editorKeys.Left):
		m.pos = clamp(m.pos-1, 0, bufLen)

	case key.Matches(msg, editorKeys.Right):
		m.pos = clamp(m.pos+1, 0, bufLen)

	case key.Matches(msg, editorKeys.Anchor):
		m.anchor = m.pos

	case key.Matches(msg, editorKeys.Mark):
		start, end := m.selection()
		if err := m.sess.MarkExpression(start, end); err != nil {
			m.status = err.Error()
		}
		m.anchor = -1

	case key.Matches(msg, editorKeys.Clear):
		m.sess.ClearMarks()

	case key.Matches(msg, editorKeys.FoldSel):
		start, end := m.selection()
		if err := m.sess.Fold(start, end); err != nil {
			m.status = err.Error()
		}
		m.anchor = -1
		m.pos = clamp(m.pos, 0, u16.Len(m.sess.Text()))

	case key.Matches(msg, editorKeys.Unfold):
		m.sess.UnfoldAll()
		m.pos = clamp(m.pos, 0, u16.Len(m.sess.Text()))

	case key.Matches(msg, editorKeys.Undo):
		if !m.sess.Undo() {
			m.status = "nothing to undo"
		}

	case key.Matches(msg, editorKeys.Preview):
		m.showPreview = !m.showPreview
	}

	return m, nil
}

// selection returns the anchored span, or the single code unit under the
// cursor when no anchor is set.
func (m model) selection() (int, int) {
	if m.anchor < 0 {
		return m.pos, m.pos + 1
	}
	if m.anchor <= m.pos {
		return m.anchor, m.pos
	}
	return m.pos, m.anchor
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("citelab"))
	b.WriteString("\n")

	if m.mode == modeInsert {
		b.WriteString(labelStyle.Render("text") + m.input.View() + "\n")
	} else {
		b.WriteString(labelStyle.Render("text") + m.renderBuffer() + "\n")
	}

	b.WriteString(labelStyle.Render("compiled") + m.sess.Compile() + "\n")

	if args := m.sess.Arguments(); len(args) > 0 {
		b.WriteString(labelStyle.Render("arguments") + strings.Join(args, ", ") + "\n")
	}

	if m.showPreview {
		b.WriteString("\n")
		for _, row := range m.sess.Preview(commands.PlainRenderer{}, nil, nil) {
			b.WriteString("  " + row.Output + "\n")
		}
	}

	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status) + "\n")
	}

	b.WriteString(helpStyle.Render(m.helpLine()))
	return b.String()
}

// renderBuffer paints the folded buffer with marks underlined, the anchor
// highlighted and the cursor reversed.
func (m model) renderBuffer() string {
	text := m.sess.Text()
	bufLen := u16.Len(text)

	marked := func(off int) bool {
		for _, r := range m.sess.Marks() {
			if off >= r[0] && off < r[1] {
				return true
			}
		}
		return false
	}

	var out strings.Builder
	for off := 0; off < bufLen; off++ {
		ch := u16.Slice(text, off, off+1)
		style := lipgloss.NewStyle()
		if marked(off) {
			style = markedStyle
		}
		if m.anchor >= 0 && off == m.anchor {
			style = style.Inherit(anchorStyle)
		}
		if off == m.pos {
			style = style.Inherit(cursorStyle)
		}
		out.WriteString(style.Render(ch))
	}
	if m.pos >= bufLen {
		out.WriteString(cursorStyle.Render(" "))
	}
	return out.String()
}

func (m model) helpLine() string {
	if m.mode == modeInsert {
		return "esc: command mode  ctrl+c: quit"
	}

	bindings := []key.Binding{
		editorKeys.Insert, editorKeys.Anchor, editorKeys.Mark,
		editorKeys.FoldSel, editorKeys.Unfold, editorKeys.Clear,
		editorKeys.Undo, editorKeys.Preview, editorKeys.Quit,
	}
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = b.Help().Key + ": " + b.Help().Desc
	}
	return strings.Join(parts, "  ")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func main() {
	text := ""
	if len(os.Args) > 1 {
		text = os.Args[1]
	}

	p := tea.NewProgram(newModel(text))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
