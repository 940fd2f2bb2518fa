package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/bincodec/schema"
	"github.com/wippyai/bincodec/synth"
)

var (
	accent = lipgloss.Color("#7D56F4")

	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(accent).Padding(0, 1)
	memberStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98"))
	strategyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Background(accent)
	dumpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Italic(true)
)

func newBrowseCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <schema>",
		Short: "Browse type plans and encode values interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(newBrowseModel(args[0], a.load), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
}

type loadFunc func(path string) (*schema.Schema, *synth.Synthesizer, error)

type browseModel struct {
	err      error
	load     loadFunc
	schema   *schema.Schema
	syn      *synth.Synthesizer
	names    *strings.Replacer
	filename string
	plan     string
	result   string
	input    textinput.Model
	selected int
	state    browseState
}

type browseState int

const (
	stateSelectType browseState = iota
	stateEditValue
	stateShowResult
)

func newBrowseModel(filename string, load loadFunc) *browseModel {
	return &browseModel{
		filename: filename,
		load:     load,
		state:    stateSelectType,
	}
}

type loadedMsg struct {
	err    error
	schema *schema.Schema
	syn    *synth.Synthesizer
}

type encodedMsg struct {
	err  error
	dump string
}

func (m *browseModel) Init() tea.Cmd {
	return m.loadSchema
}

func (m *browseModel) loadSchema() tea.Msg {
	sc, syn, err := m.load(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{schema: sc, syn: syn}
}

func (m *browseModel) current() *schema.Type {
	return m.schema.Types()[m.selected]
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.state {
		case stateSelectType:
			return m.updateSelect(msg)
		case stateEditValue:
			return m.updateEdit(msg)
		case stateShowResult:
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "enter", "esc":
				m.state = stateEditValue
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.schema = msg.schema
		m.syn = msg.syn
		m.names = typeNamer(msg.schema)

	case encodedMsg:
		m.result = msg.dump
		m.err = msg.err
		m.state = stateShowResult
	}
	return m, nil
}

func (m *browseModel) updateSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.schema != nil && m.selected < len(m.schema.Types())-1 {
			m.selected++
		}
	case "enter":
		if m.schema == nil || len(m.schema.Types()) == 0 {
			return m, nil
		}
		t := m.current()
		pv, err := m.syn.Describe(t.Go)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.plan = renderPlan(t, pv, m.names, true)
		m.prepareInput(t)
		m.state = stateEditValue
	}
	return m, nil
}

func (m *browseModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m, m.encode
	case "esc":
		m.state = stateSelectType
		m.plan = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *browseModel) prepareInput(t *schema.Type) {
	ti := textinput.New()
	ti.Prompt = "value: "
	ti.Placeholder = placeholder(t)
	ti.Width = 60
	ti.Focus()
	m.input = ti
}

// placeholder suggests a flow mapping with every member of t.
func placeholder(t *schema.Type) string {
	parts := make([]string, len(t.Members))
	for i, mem := range t.Members {
		parts[i] = mem.Name + ": " + mem.Expr.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (m *browseModel) encode() tea.Msg {
	t := m.current()
	v, err := t.ReadYAML([]byte(m.input.Value()))
	if err != nil {
		return encodedMsg{err: err}
	}
	data, err := m.syn.Marshal(v)
	if err != nil {
		return encodedMsg{err: err}
	}
	return encodedMsg{dump: fmt.Sprintf("%d bytes\n%s", len(data), hex.Dump(data))}
}

func (m *browseModel) View() string {
	if m.schema == nil {
		if m.err != nil {
			return failStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
		}
		return "Loading schema..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", headerStyle.Render("Codec Browser"), m.filename)

	var keys string
	switch m.state {
	case stateSelectType:
		b.WriteString("Select a type:\n\n")
		for i, t := range m.schema.Types() {
			line := fmt.Sprintf("%s (%d members)", t.Name, len(t.Members))
			if i == m.selected {
				line = cursorStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			fmt.Fprintln(&b, line)
		}
		if m.err != nil {
			fmt.Fprintf(&b, "\n%s\n", failStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		}
		keys = "↑/↓ select • enter plan • q quit"

	case stateEditValue:
		fmt.Fprintf(&b, "%s\n%s\n", m.plan, m.input.View())
		keys = "enter encode • esc back • ctrl+c quit"

	case stateShowResult:
		fmt.Fprintf(&b, "%s\n", m.plan)
		if m.err != nil {
			b.WriteString(failStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(dumpStyle.Render(m.result))
		}
		b.WriteString("\n")
		keys = "enter edit • q quit"
	}

	fmt.Fprintf(&b, "\n%s", hintStyle.Render(keys))
	return b.String()
}
