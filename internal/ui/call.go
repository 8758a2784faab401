package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/session"
	"github.com/Andiveli/HospitalFront-sub000/internal/utils"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// chatLines is how much chat history the call screen shows.
const chatLines = 8

// Controls is what the call screen drives. *session.Orchestrator satisfies it.
type Controls interface {
	ToggleAudio() (bool, error)
	ToggleVideo() (bool, error)
	StartScreenShare(ctx context.Context) error
	StopScreenShare() error
	SendChat(text string) (consult.ChatMessage, error)
	LeaveRoom(ctx context.Context) error
	Participants() []consult.Participant
	Messages() []consult.ChatMessage
	LocalParticipant() (consult.Participant, bool)
}

type eventMsg struct {
	ev session.Event
	ok bool
}

// actionMsg reports the outcome of a control the user triggered.
type actionMsg struct {
	notice string
	err    error
}

type leftMsg struct{}

// callModel is the live consultation screen.
type callModel struct {
	ctx     context.Context
	ctrl    Controls
	events  <-chan session.Event
	title   string
	spinner spinner.Model
	input   textinput.Model

	state     session.State
	roster    []consult.Participant
	messages  []consult.ChatMessage
	elapsed   string
	remaining string
	warned    bool
	notice    string
	errMsg    string
	reason    string
	leaving   bool
	quitting  bool
}

func newCallModel(ctx context.Context, title string, ctrl Controls, events <-chan session.Event) *callModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	in := textinput.New()
	in.Placeholder = "Type a message"
	in.CharLimit = 500
	in.Width = 60
	in.Prompt = IconChat + " "

	return &callModel{
		ctx:      ctx,
		ctrl:     ctrl,
		events:   events,
		title:    title,
		spinner:  s,
		input:    in,
		state:    session.StateConnected,
		roster:   ctrl.Participants(),
		messages: ctrl.Messages(),
		elapsed:  utils.FormatClock(0),
	}
}

func (m *callModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *callModel) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		return eventMsg{ev: ev, ok: ok}
	}
}

func (m *callModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.input.Focused() {
			return m.updateChat(msg)
		}
		return m, m.handleKey(msg.String())

	case eventMsg:
		if !msg.ok {
			m.quitting = true
			return m, tea.Quit
		}
		if m.apply(msg.ev) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, m.listen()

	case actionMsg:
		m.notice, m.errMsg = msg.notice, ""
		if msg.err != nil {
			m.notice, m.errMsg = "", msg.err.Error()
		}
		m.roster = m.ctrl.Participants()
		m.messages = m.ctrl.Messages()
		return m, nil

	case leftMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *callModel) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		text := m.input.Value()
		m.input.SetValue("")
		m.input.Blur()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		return m, m.act(func() (string, error) {
			_, err := m.ctrl.SendChat(text)
			return "", err
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *callModel) handleKey(key string) tea.Cmd {
	switch key {
	case "m":
		return m.act(func() (string, error) {
			on, err := m.ctrl.ToggleAudio()
			return onOff("Microphone", on), err
		})
	case "v":
		return m.act(func() (string, error) {
			on, err := m.ctrl.ToggleVideo()
			return onOff("Camera", on), err
		})
	case "s":
		return m.act(func() (string, error) {
			local, _ := m.ctrl.LocalParticipant()
			if local.Media.ScreenShare {
				return "Screen sharing stopped", m.ctrl.StopScreenShare()
			}
			return "Sharing your screen", m.ctrl.StartScreenShare(m.ctx)
		})
	case "c", "enter":
		return m.input.Focus()
	case "q", "ctrl+c":
		if m.leaving {
			return nil
		}
		m.leaving = true
		return func() tea.Msg {
			m.ctrl.LeaveRoom(context.Background())
			return leftMsg{}
		}
	}
	return nil
}

func (m *callModel) act(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		notice, err := fn()
		return actionMsg{notice: notice, err: err}
	}
}

func onOff(what string, on bool) string {
	if on {
		return what + " on"
	}
	return what + " off"
}

// apply folds ev into the screen. It reports whether the call is over.
func (m *callModel) apply(ev session.Event) bool {
	switch ev.Kind {
	case session.EventParticipantJoined, session.EventParticipantLeft, session.EventParticipantUpdated:
		m.roster = m.ctrl.Participants()
	case session.EventChatMessage:
		if ev.Chat != nil {
			m.messages = append(m.messages, *ev.Chat)
		}
	case session.EventConnectionStateChanged:
		if ev.ParticipantID == "" {
			m.state = ev.State
		}
	case session.EventTimeTick:
		m.elapsed = utils.FormatClock(ev.Elapsed)
		m.remaining = utils.FormatClock(ev.Remaining)
	case session.EventTimeWarning:
		m.warned = true
		m.remaining = utils.FormatClock(ev.Remaining)
	case session.EventError:
		if ev.Err != nil {
			m.errMsg = ev.Err.Error()
		}
	case session.EventSessionEnded:
		m.reason = ev.Reason
		return true
	}
	return false
}

func (m *callModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	status := StatusStyle
	if m.warned {
		status = StatusWarnStyle
	}
	clock := m.elapsed
	if m.remaining != "" {
		clock += " / " + m.remaining + " left"
	}
	b.WriteString(HeaderStyle.Render(IconDoctor + " " + m.title))
	b.WriteString("\n")

	state := string(m.state)
	if m.state == session.StateReconnecting {
		state = m.spinner.View() + " " + state
	}
	b.WriteString(fmt.Sprintf("%s %s\n\n", status.Render(IconTime+" "+clock), MutedStyle.Render(state)))

	b.WriteString(RosterView(m.roster))
	b.WriteString("\n\n")

	msgs := m.messages
	if len(msgs) > chatLines {
		msgs = msgs[len(msgs)-chatLines:]
	}
	local, _ := m.ctrl.LocalParticipant()
	for _, c := range msgs {
		b.WriteString(formatChat(c, local.ID))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.input.Focused() {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString(ErrorStyle.Render(IconError + " " + m.errMsg))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(MutedStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(FooterStyle.Render("m mic • v camera • s screen • c chat • q leave"))
	return b.String()
}

func formatChat(c consult.ChatMessage, localID string) string {
	ts := c.Timestamp.Local().Format("15:04")
	if c.Type == consult.ChatSystem {
		return ChatSystemStyle.Render(fmt.Sprintf("%s  %s", ts, c.Text))
	}
	sender := ChatSenderStyle
	name := c.FromName
	if c.FromParticipantID == localID {
		sender = ChatSelfStyle
		name = "You"
	}
	return fmt.Sprintf("%s  %s %s", MutedStyle.Render(ts), sender.Render(name+":"), c.Text)
}

// RunCall shows the call screen until the session ends or the user leaves.
// It returns the reason the session ended, empty when the user left.
func RunCall(ctx context.Context, title string, ctrl Controls, events <-chan session.Event) (string, error) {
	model := newCallModel(ctx, title, ctrl, events)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		ctrl.LeaveRoom(context.Background())
		return "", fmt.Errorf("call screen: %w", err)
	}
	if model.reason == "" {
		ctrl.LeaveRoom(context.Background())
	}
	return model.reason, nil
}
