package signaling_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling/signalingtest"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*signaling.Client, *signalingtest.Transport, *clock.Mock) {
	t.Helper()
	tr := signalingtest.NewTransport()
	mock := clock.NewMock()
	c := signaling.NewClient(tr, signaling.ClientConfig{LocalID: "me", RoomID: "room-1", Clock: mock})
	return c, tr, mock
}

func runClient(t *testing.T, c *signaling.Client) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	return done
}

func TestSendStampsSenderAndTime(t *testing.T) {
	c, tr, mock := newClient(t)
	mock.Add(time.Hour)

	require.NoError(t, c.Send(consult.Envelope{To: "p1", Type: consult.SignalOffer, SDP: "v=0"}))

	sent := tr.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "me", sent[0].From)
	require.Equal(t, "p1", sent[0].To)
	require.Equal(t, "room-1", sent[0].RoomID)
	require.Equal(t, signaling.FrameOffer, sent[0].Type)
	require.Equal(t, mock.Now(), sent[0].Timestamp)
}

func TestRunDispatchesInArrivalOrder(t *testing.T) {
	c, tr, _ := newClient(t)

	var got []string
	c.OnSignal(func(env consult.Envelope) { got = append(got, "signal:"+string(env.Type)+":"+env.From) })
	c.OnPresence(func(p signaling.Presence) { got = append(got, "presence:"+string(p.Kind)+":"+p.Participant.ID) })
	c.OnChat(func(m consult.ChatMessage) { got = append(got, "chat:"+m.Text) })
	c.OnRoomEnded(func(reason string) { got = append(got, "ended:"+reason) })
	c.OnError(func(msg string) { got = append(got, "error:"+msg) })
	c.OnRoster(func(ps []consult.Participant) { got = append(got, fmt.Sprintf("roster:%d", len(ps))) })

	tr.Deliver(&signaling.Frame{Type: signaling.FrameRoster, To: "me", Participants: []consult.Participant{{ID: "p0"}, {ID: "p2"}}})
	tr.Deliver(&signaling.Frame{Type: signaling.FrameParticipantJoined, Participant: &consult.Participant{ID: "p1"}})
	tr.Deliver(&signaling.Frame{Type: signaling.FrameOffer, From: "p1", To: "me", SDP: "x"})
	tr.Deliver(&signaling.Frame{Type: signaling.FrameCandidate, From: "p1", To: "me", Candidate: &consult.Candidate{Candidate: "c"}})
	tr.Deliver(&signaling.Frame{Type: "mystery"})
	tr.Deliver(&signaling.Frame{Type: signaling.FrameChat, From: "p1", Chat: &consult.ChatMessage{Text: "hola"}})
	tr.Deliver(&signaling.Frame{Type: signaling.FrameMediaState, From: "p1", Media: &consult.MediaState{Audio: true}})
	tr.Deliver(&signaling.Frame{Type: signaling.FrameParticipantLeft, From: "p1"})
	tr.Deliver(&signaling.Frame{Type: signaling.FrameError, Error: "slow down"})
	tr.Deliver(&signaling.Frame{Type: signaling.FrameRoomEnded, Reason: "host-left"})

	done := runClient(t, c)
	tr.Drop()

	select {
	case err := <-done:
		require.ErrorIs(t, err, consult.ErrTransport)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the transport dropped")
	}

	require.Equal(t, []string{
		"roster:2",
		"presence:joined:p1",
		"signal:offer:p1",
		"signal:candidate:p1",
		"chat:hola",
		"presence:media:p1",
		"presence:left:p1",
		"error:slow down",
		"ended:host-left",
	}, got)
}

func TestFramesForOthersAreDropped(t *testing.T) {
	c, tr, _ := newClient(t)
	calls := 0
	c.OnSignal(func(consult.Envelope) { calls++ })

	tr.Deliver(&signaling.Frame{Type: signaling.FrameOffer, From: "p1", To: "someone-else"})
	done := runClient(t, c)
	tr.Drop()
	<-done

	require.Zero(t, calls)
}

func TestUnregisteredHandlerNotCalled(t *testing.T) {
	c, tr, _ := newClient(t)
	calls := 0
	cancel := c.OnChat(func(consult.ChatMessage) { calls++ })
	cancel()
	cancel()

	tr.Deliver(&signaling.Frame{Type: signaling.FrameChat, Chat: &consult.ChatMessage{Text: "x"}})
	done := runClient(t, c)
	tr.Drop()
	<-done

	require.Zero(t, calls)
}

func TestCloseEndsRunCleanly(t *testing.T) {
	c, tr, _ := newClient(t)
	done := runClient(t, c)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.NoError(t, <-done)
	require.True(t, tr.Closed())

	err := c.SendChat(consult.ChatMessage{Text: "late"})
	require.ErrorIs(t, err, consult.ErrNotConnected)
}

func TestRunStopsOnContext(t *testing.T) {
	c, _, _ := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.Run(ctx), context.Canceled)
}

func TestSendMediaState(t *testing.T) {
	c, tr, _ := newClient(t)
	require.NoError(t, c.SendMediaState(consult.MediaState{Video: true}))

	f := tr.SentOfType(signaling.FrameMediaState)
	require.Len(t, f, 1)
	require.True(t, f[0].Media.Video)
	require.Equal(t, "me", f[0].From)
}
