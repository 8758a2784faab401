package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

type fakeControls struct {
	audio, video, screen bool
	sent                 []string
	left                 int
	chatErr              error
}

func (f *fakeControls) ToggleAudio() (bool, error) {
	f.audio = !f.audio
	return f.audio, nil
}

func (f *fakeControls) ToggleVideo() (bool, error) {
	f.video = !f.video
	return f.video, nil
}

func (f *fakeControls) StartScreenShare(context.Context) error {
	f.screen = true
	return nil
}

func (f *fakeControls) StopScreenShare() error {
	f.screen = false
	return nil
}

func (f *fakeControls) SendChat(text string) (consult.ChatMessage, error) {
	if f.chatErr != nil {
		return consult.ChatMessage{}, f.chatErr
	}
	f.sent = append(f.sent, text)
	return consult.ChatMessage{Text: text}, nil
}

func (f *fakeControls) LeaveRoom(context.Context) error {
	f.left++
	return nil
}

func (f *fakeControls) Participants() []consult.Participant {
	p, _ := f.LocalParticipant()
	return []consult.Participant{p}
}

func (f *fakeControls) Messages() []consult.ChatMessage { return nil }

func (f *fakeControls) LocalParticipant() (consult.Participant, bool) {
	return consult.Participant{
		ID:          "local",
		DisplayName: "Dr. Vera",
		Role:        consult.RoleDoctor,
		Status:      consult.StatusConnected,
		Local:       true,
		Media:       consult.MediaState{Audio: f.audio, Video: f.video, ScreenShare: f.screen},
	}, true
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m *callModel, k string) tea.Msg {
	t.Helper()
	_, cmd := m.Update(key(k))
	require.NotNil(t, cmd)
	msg := cmd()
	m.Update(msg)
	return msg
}

func TestCallKeysDriveControls(t *testing.T) {
	ctrl := &fakeControls{audio: true, video: true}
	m := newCallModel(context.Background(), "Room", ctrl, make(chan session.Event))

	msg := press(t, m, "m")
	require.Equal(t, actionMsg{notice: "Microphone off"}, msg)
	require.False(t, ctrl.audio)

	press(t, m, "v")
	require.False(t, ctrl.video)

	press(t, m, "s")
	require.True(t, ctrl.screen)
	press(t, m, "s")
	require.False(t, ctrl.screen)

	require.Contains(t, m.View(), "Dr. Vera (you)")
}

func TestCallChatInput(t *testing.T) {
	ctrl := &fakeControls{}
	m := newCallModel(context.Background(), "Room", ctrl, make(chan session.Event))

	m.Update(key("c"))
	require.True(t, m.input.Focused())

	m.Update(key("hi"))
	_, cmd := m.Update(key("enter"))
	require.False(t, m.input.Focused())
	require.NotNil(t, cmd)
	m.Update(cmd())
	require.Equal(t, []string{"hi"}, ctrl.sent)

	ctrl.chatErr = errors.New("not connected")
	m.Update(key("c"))
	m.Update(key("again"))
	_, cmd = m.Update(key("enter"))
	m.Update(cmd())
	require.Contains(t, m.View(), "not connected")
}

func TestCallEventsUpdateScreen(t *testing.T) {
	ctrl := &fakeControls{}
	m := newCallModel(context.Background(), "Room", ctrl, make(chan session.Event))

	m.Update(eventMsg{ok: true, ev: session.Event{Kind: session.EventTimeTick, Elapsed: 65 * time.Second, Remaining: 29 * time.Minute}})
	require.Equal(t, "01:05", m.elapsed)
	require.Contains(t, m.View(), "29:00 left")

	chat := consult.ChatMessage{FromParticipantID: "p2", FromName: "Ana", Text: "hola", Type: consult.ChatText}
	m.Update(eventMsg{ok: true, ev: session.Event{Kind: session.EventChatMessage, Chat: &chat}})
	require.Contains(t, m.View(), "hola")

	m.Update(eventMsg{ok: true, ev: session.Event{Kind: session.EventConnectionStateChanged, State: session.StateReconnecting}})
	require.Equal(t, session.StateReconnecting, m.state)

	m.Update(eventMsg{ok: true, ev: session.Event{Kind: session.EventTimeWarning, Remaining: 5 * time.Minute}})
	require.True(t, m.warned)

	_, cmd := m.Update(eventMsg{ok: true, ev: session.Event{Kind: session.EventSessionEnded, Reason: "time-expired"}})
	require.NotNil(t, cmd)
	require.Equal(t, "time-expired", m.reason)
	require.Empty(t, m.View())
}

func TestCallQuitLeavesOnce(t *testing.T) {
	ctrl := &fakeControls{}
	m := newCallModel(context.Background(), "Room", ctrl, make(chan session.Event))

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	_, again := m.Update(key("q"))
	require.Nil(t, again)

	require.Equal(t, leftMsg{}, cmd())
	require.Equal(t, 1, ctrl.left)
}

func TestSessionSummaryView(t *testing.T) {
	out := SessionSummaryView(SessionSummary{
		RoomID:       "amber-fox-river-stone",
		Role:         consult.RolePatient,
		Duration:     12*time.Minute + 3*time.Second,
		Participants: 3,
		Messages:     7,
		Reason:       "ended-by-host",
	})
	require.Contains(t, out, "amber-fox-river-stone")
	require.Contains(t, out, "12:03")
	require.Contains(t, out, "Patient")
	require.Contains(t, out, "ended-by-host")
}

func TestMediaBadges(t *testing.T) {
	require.Equal(t, "muted", MediaBadges(consult.MediaState{}))
	require.Equal(t, "mic cam screen", MediaBadges(consult.MediaState{Audio: true, Video: true, ScreenShare: true}))
}
