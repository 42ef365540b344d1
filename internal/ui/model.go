// Package ui is the terminal face of the companion.
package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/ema-pet/core"
)

// Controller is the part of the orchestrator the UI drives.
type Controller interface {
	SendPrompt(text string)
	StartCapture()
	StopCapture()
	StopPlayback()
	Reset()
	SetHandsFree(enabled bool)
	SetPlayback(enabled bool)
	Replay()
	CleanDecoration(id string)
}

type Model struct {
	controller Controller
	state      orchestration.State

	keys     keyMap
	help     help.Model
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width    int
	height   int
	quitting bool
}

// New creates the UI model starting from the given state.
func New(controller Controller, initial orchestration.State) *Model {
	input := textinput.New()
	input.Placeholder = "say something..."
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.MiniDot

	m := &Model{
		controller: controller,
		state:      initial,
		keys:       defaultKeyMap(),
		help:       help.New(),
		input:      input,
		viewport:   viewport.New(80, 10),
		spinner:    s,
		width:      80,
	}
	m.refreshHistory()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case StateMsg:
		m.state = orchestration.State(msg)
		m.refreshHistory()

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return tea.Quit, true

	case key.Matches(msg, m.keys.Send):
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if text != "" {
			m.controller.SendPrompt(text)
		}
		return nil, true

	case key.Matches(msg, m.keys.Listen):
		if m.state.Mode == orchestration.ModeListening {
			m.controller.StopCapture()
		} else {
			m.controller.StartCapture()
		}
		return nil, true

	case key.Matches(msg, m.keys.Stop):
		switch m.state.Mode {
		case orchestration.ModeListening:
			m.controller.StopCapture()
		case orchestration.ModeSpeaking:
			m.controller.StopPlayback()
		}
		return nil, true

	case key.Matches(msg, m.keys.HandsFree):
		m.controller.SetHandsFree(!m.state.HandsFree)
		return nil, true

	case key.Matches(msg, m.keys.Playback):
		m.controller.SetPlayback(!m.state.Playback)
		return nil, true

	case key.Matches(msg, m.keys.Replay):
		m.controller.Replay()
		return nil, true

	case key.Matches(msg, m.keys.Clean):
		if len(m.state.Decorations) > 0 {
			m.controller.CleanDecoration(m.state.Decorations[0].ID)
		}
		return nil, true

	case key.Matches(msg, m.keys.Reset):
		m.controller.Reset()
		return nil, true
	}
	return nil, false
}

func (m *Model) resize() {
	inner := max(20, m.width-4)
	m.input.Width = inner - 2
	m.help.Width = inner

	// companion (3) + decorations (1) + input (1) + help (1) + frames
	height := max(3, m.height-12)
	m.viewport.Width = inner
	m.viewport.Height = height
	m.refreshHistory()
}

func (m *Model) refreshHistory() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(renderTurns(m.state.Turns, m.viewport.Width))
	if atBottom || m.viewport.PastBottom() {
		m.viewport.GotoBottom()
	}
}

func (m *Model) View() string {
	if m.quitting {
		return "bye!\n"
	}

	inner := max(20, m.width-4)
	companion := renderCompanion(m.state)
	if m.state.Mode == orchestration.ModeThinking {
		companion = m.spinner.View() + " " + companion
	}

	top := lipgloss.JoinVertical(lipgloss.Center,
		companion,
		renderDecorations(m.state.Decorations, inner),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		frameStyle.Width(inner).Render(lipgloss.PlaceHorizontal(inner, lipgloss.Center, top)),
		frameStyle.Width(inner).Render(m.viewport.View()),
		m.input.View(),
		renderFlags(m.state)+"  "+m.help.View(m.keys),
	)
}
