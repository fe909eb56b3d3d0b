// Command interviewtui runs a scripted interview session in the terminal,
// with the moderator controls a browser client would normally provide.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	interview "github.com/parloq/interview-core/core"
	"github.com/parloq/interview-core/core/agent"
	"github.com/parloq/interview-core/core/agent/scripted"
	"github.com/parloq/interview-core/core/protocol"
	"github.com/parloq/interview-core/core/turns"
)

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	phaseStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	interviewerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	candidateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	moderatorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("120")).Bold(true)
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type serverMsg protocol.ServerMessage

type model struct {
	orchestrator *interview.Orchestrator
	inbox        chan protocol.ServerMessage
	cancel       context.CancelFunc

	viewport  viewport.Model
	input     textinput.Model
	lines     []string
	phase     string
	mode      string
	waiting   bool
	ended     bool
	endReason string
	width     int
	ready     bool
}

func newModel() *model {
	inbox := make(chan protocol.ServerMessage, 256)
	sender := interview.ClientSenderFunc(func(message protocol.ServerMessage) {
		select {
		case inbox <- message:
		default:
		}
	})

	orchestrator := interview.New(sender, demoFactory())
	ctx, cancel := context.WithCancel(context.Background())
	go orchestrator.Run(ctx)

	input := textinput.New()
	input.Placeholder = "type a moderator note, or press enter for the next turn"
	input.Focus()

	return &model{
		orchestrator: orchestrator,
		inbox:        inbox,
		cancel:       cancel,
		input:        input,
		phase:        string(turns.PhaseWaiting),
		mode:         string(turns.ModeStep),
	}
}

func demoFactory() interview.ConnectionFactory {
	lines := map[turns.Role][]string{
		turns.RoleInterviewer: {
			"Welcome. Tell me about a system you designed end to end.",
			"What failure mode worried you the most in production?",
			"Great, that is everything from my side. [END_OF_INTERVIEW]",
		},
		turns.RoleCandidate: {
			"I designed our ingest layer: a websocket fan-in feeding a partitioned queue.",
			"Backpressure. A slow consumer could stall the whole partition, so we added shedding.",
		},
	}
	return func(_ context.Context, role turns.Role, _ interview.SessionConfig, opts ...agent.Option) (agent.Connection, error) {
		return scripted.New(scripted.Config{
			Lines:    lines[role],
			Interval: 25 * time.Millisecond,
		}, opts...), nil
	}
}

func (m *model) Init() tea.Cmd {
	m.orchestrator.Handle(protocol.StartSession{Mode: string(turns.ModeStep), Pattern: protocol.PatternBoth})
	return tea.Batch(textinput.Blink, m.awaitServer())
}

func (m *model) awaitServer() tea.Cmd {
	return func() tea.Msg {
		return serverMsg(<-m.inbox)
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		if !m.ready {
			m.viewport = viewport.New(typed.Width, typed.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = typed.Width
			m.viewport.Height = typed.Height - 6
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			m.orchestrator.Handle(protocol.EndSession{})
			m.cancel()
			return m, tea.Quit
		case "tab":
			next := string(turns.ModeAuto)
			if m.mode == string(turns.ModeAuto) {
				next = string(turns.ModeStep)
			}
			m.orchestrator.Handle(protocol.SetMode{Mode: next})
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if m.ended {
				return m, nil
			}
			if text == "" {
				m.orchestrator.Handle(protocol.NextTurn{})
				return m, nil
			}
			m.orchestrator.Handle(protocol.HumanText{Text: text, Target: protocol.TargetBoth})
			return m, nil
		}

	case serverMsg:
		m.absorb(protocol.ServerMessage(typed))
		m.refresh()
		return m, m.awaitServer()
	}

	var inputCmd, viewportCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.viewport, viewportCmd = m.viewport.Update(msg)
	return m, tea.Batch(inputCmd, viewportCmd)
}

func (m *model) absorb(message protocol.ServerMessage) {
	switch message.Type {
	case "session_ready":
		m.lines = append(m.lines, noticeStyle.Render(
			fmt.Sprintf("session %s ready (%s)", message.SessionID, message.Pattern)))
	case "turn_state":
		if message.TurnState != nil {
			m.phase = message.TurnState.Phase
			m.mode = message.TurnState.Mode
			m.waiting = message.TurnState.WaitingForNext
		}
	case "transcript_committed":
		m.lines = append(m.lines, fmt.Sprintf("%s %s",
			speakerStyle(message.Speaker).Render(message.DisplayName+":"), message.Text))
	case "evaluation":
		if message.Evaluation != nil {
			m.lines = append(m.lines, "", headerStyle.Render("Evaluation"), message.Evaluation.Report)
		}
	case "error":
		m.lines = append(m.lines, errorStyle.Render("error: "+message.Message))
	case "session_ended":
		m.ended = true
		m.endReason = message.Reason
		m.lines = append(m.lines, noticeStyle.Render("session ended: "+message.Reason))
	}
}

func speakerStyle(speaker string) lipgloss.Style {
	switch turns.Role(speaker) {
	case turns.RoleInterviewer:
		return interviewerStyle
	case turns.RoleCandidate:
		return candidateStyle
	}
	return moderatorStyle
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	m.viewport.SetContent(wordwrap.String(strings.Join(m.lines, "\n"), width))
	m.viewport.GotoBottom()
}

func (m *model) View() string {
	if !m.ready {
		return "starting session..."
	}

	status := fmt.Sprintf("phase: %s  mode: %s", m.phase, m.mode)
	if m.waiting {
		status += "  (press enter for the next turn)"
	}
	if m.ended {
		status = fmt.Sprintf("ended: %s", m.endReason)
	}

	return strings.Join([]string{
		headerStyle.Render("interview session"),
		phaseStyle.Render(status),
		m.viewport.View(),
		m.input.View(),
		helpStyle.Render("enter: send/advance  tab: toggle mode  esc: quit"),
	}, "\n")
}

func main() {
	program := tea.NewProgram(newModel(), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
