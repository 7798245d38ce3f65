package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/gmdecomp/errors"
	"github.com/wippyai/gmdecomp/gamedata"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	entryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectEntry modelState = iota
	stateShowSource
)

// listChrome is the number of lines around the entry list
const listChrome = 7

type browserModel struct {
	session  *session
	entries  []gamedata.CodeRef
	visible  []gamedata.CodeRef
	filter   textinput.Model
	source   viewport.Model
	current  string
	err      error
	selected int
	height   int
	state    modelState
}

type decompiledMsg struct {
	name   string
	source string
	err    error
}

func newBrowserModel(s *session) *browserModel {
	filter := textinput.New()
	filter.Placeholder = "filter"
	filter.Prompt = "/ "
	filter.Width = 40
	filter.Focus()

	m := &browserModel{
		session: s,
		entries: s.roots(),
		filter:  filter,
		source:  viewport.New(80, 20),
		height:  24,
		state:   stateSelectEntry,
	}
	m.applyFilter()
	return m
}

func (m *browserModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *browserModel) applyFilter() {
	query := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for _, ref := range m.entries {
		if strings.Contains(strings.ToLower(m.session.data.Codes[ref].Name), query) {
			m.visible = append(m.visible, ref)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *browserModel) decompile(ref gamedata.CodeRef) tea.Cmd {
	return func() tea.Msg {
		src, err := m.session.ctx.Decompile(ref, m.session.data)
		return decompiledMsg{name: m.session.data.Codes[ref].Name, source: src, err: err}
	}
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.source.Width = msg.Width
		m.source.Height = max(msg.Height-4, 1)
		return m, nil

	case decompiledMsg:
		m.current = msg.name
		m.err = msg.err
		if msg.err != nil {
			m.source.SetContent(errorStyle.Render(errors.Pretty(msg.err)))
		} else {
			m.source.SetContent(msg.source)
		}
		m.source.GotoTop()
		m.state = stateShowSource
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		}

		if m.state == stateShowSource {
			switch msg.String() {
			case "esc", "q", "enter":
				m.state = stateSelectEntry
				m.err = nil
				return m, nil
			}
			var cmd tea.Cmd
			m.source, cmd = m.source.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "esc":
			return m, tea.Quit
		case "up":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down":
			if m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil
		case "enter":
			if len(m.visible) == 0 {
				return m, nil
			}
			return m, m.decompile(m.visible[m.selected])
		}
	}

	if m.state != stateSelectEntry {
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *browserModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("gmdecomp"))
	b.WriteString(" ")
	b.WriteString(m.session.data.General.Name)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectEntry:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")

		rows := max(m.height-listChrome, 1)
		first := 0
		if m.selected >= rows {
			first = m.selected - rows + 1
		}
		for i := first; i < len(m.visible) && i < first+rows; i++ {
			name := m.session.data.Codes[m.visible[i]].Name
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + name))
			} else {
				b.WriteString("  " + entryStyle.Render(name))
			}
			b.WriteString("\n")
		}
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("no matching code entries"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(fmt.Sprintf("%d/%d entries • ↑/↓ select • enter decompile • esc quit", len(m.visible), len(m.entries))))

	case stateShowSource:
		b.WriteString(entryStyle.Render(m.current))
		b.WriteString("\n")
		b.WriteString(m.source.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(fmt.Sprintf("%3.f%% • ↑/↓ scroll • esc back", m.source.ScrollPercent()*100)))
	}

	return b.String()
}

func runInteractive(s *session) error {
	p := tea.NewProgram(newBrowserModel(s), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
