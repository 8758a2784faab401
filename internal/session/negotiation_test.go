package session_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/peer"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling/signalingtest"
	"github.com/stretchr/testify/require"
)

// joinAs joins a room as id, with present as the members listed in the
// credentials.
func joinAs(t *testing.T, id string, role consult.Role, present ...consult.Participant) *harness {
	t.Helper()
	h := newHarness(t, role)
	h.dir.setCreds(func(c *consult.RoomCredentials) {
		c.ParticipantID = id
		c.DisplayName = strings.ToUpper(id)
		c.Participants = present
	})
	_, err := h.o.JoinRoom(context.Background(), "appt-1", "")
	require.NoError(t, err)
	return h
}

func sentTo(tr *signalingtest.Transport, typ, to string) []*signaling.Frame {
	var out []*signaling.Frame
	for _, f := range tr.SentOfType(typ) {
		if f.To == to {
			out = append(out, f)
		}
	}
	return out
}

func TestConcurrentJoinersConnect(t *testing.T) {
	doc := consult.Participant{ID: "doc", DisplayName: "Dr. Vera", Role: consult.RoleDoctor}

	// both fetched credentials before either reached the relay
	pat := joinAs(t, "pat", consult.RolePatient, doc)
	gst := joinAs(t, "gst", consult.RoleGuest, doc)
	patTr, gstTr := pat.transport(t), gst.transport(t)

	// the relay registered pat first: pat hears gst arrive, gst gets the roster
	patTr.Deliver(&signaling.Frame{
		Type:        signaling.FrameParticipantJoined,
		From:        "gst",
		Participant: &consult.Participant{ID: "gst", DisplayName: "GST", Role: consult.RoleGuest},
	})
	gstTr.Deliver(&signaling.Frame{
		Type: signaling.FrameRoster,
		To:   "gst",
		Participants: []consult.Participant{
			doc,
			{ID: "pat", DisplayName: "PAT", Role: consult.RolePatient},
		},
	})

	require.Eventually(t, func() bool {
		return len(sentTo(gstTr, signaling.FrameOffer, "pat")) == 1
	}, time.Second, 5*time.Millisecond)
	require.Len(t, sentTo(gstTr, signaling.FrameOffer, "doc"), 1)
	require.Eventually(t, func() bool {
		return len(gst.o.Participants()) == 3 && len(pat.o.Participants()) == 3
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, sentTo(patTr, signaling.FrameOffer, "gst"))

	offer := sentTo(gstTr, signaling.FrameOffer, "pat")[0]
	patTr.Deliver(&signaling.Frame{Type: signaling.FrameOffer, From: "gst", To: "pat", SDP: offer.SDP})
	require.Eventually(t, func() bool {
		return len(sentTo(patTr, signaling.FrameAnswer, "gst")) == 1
	}, time.Second, 5*time.Millisecond)

	answer := sentTo(patTr, signaling.FrameAnswer, "gst")[0]
	gstTr.Deliver(&signaling.Frame{Type: signaling.FrameAnswer, From: "pat", To: "gst", SDP: answer.SDP})
	require.Eventually(t, func() bool {
		for _, c := range gst.peers.Conns() {
			if c.RemoteType() == consult.SignalAnswer {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestRosterSkipsMembersAlreadyConnected(t *testing.T) {
	h := newHarness(t, consult.RoleDoctor)
	_, err := h.o.CreateRoom(context.Background(), "appt-1", consult.RoomConfig{})
	require.NoError(t, err)
	tr := h.transport(t)

	tr.Deliver(&signaling.Frame{Type: signaling.FrameOffer, From: "pat", To: "local", SDP: "offer-x"})
	require.Eventually(t, func() bool {
		return len(tr.SentOfType(signaling.FrameAnswer)) == 1
	}, time.Second, 5*time.Millisecond)

	tr.Deliver(&signaling.Frame{
		Type:         signaling.FrameRoster,
		To:           "local",
		Participants: []consult.Participant{{ID: "pat", Role: consult.RolePatient}},
	})
	require.Eventually(t, func() bool {
		return len(h.o.Participants()) == 2
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, tr.SentOfType(signaling.FrameOffer))
	require.Equal(t, 1, h.peers.Created())
}

func TestOffererRestartsFailedConnection(t *testing.T) {
	doc := consult.Participant{ID: "doc", Role: consult.RoleDoctor}
	h := joinAs(t, "pat", consult.RolePatient, doc)
	tr := h.transport(t)
	require.Len(t, sentTo(tr, signaling.FrameOffer, "doc"), 1)

	for i := 1; i <= 3; i++ {
		conns := h.peers.Conns()
		conns[len(conns)-1].EmitState(peer.StateFailed)
		require.Eventually(t, func() bool {
			return len(sentTo(tr, signaling.FrameOffer, "doc")) == i+1
		}, time.Second, 5*time.Millisecond)
		require.True(t, conns[len(conns)-1].Closed())
	}
	require.Equal(t, 4, h.peers.Created())

	// out of restarts: the next failure is left alone
	conns := h.peers.Conns()
	conns[len(conns)-1].EmitState(peer.StateFailed)
	time.Sleep(20 * time.Millisecond)
	require.Len(t, sentTo(tr, signaling.FrameOffer, "doc"), 4)
}

func TestOffererRestartsAfterRejectedAnswer(t *testing.T) {
	doc := consult.Participant{ID: "doc", Role: consult.RoleDoctor}
	h := joinAs(t, "pat", consult.RolePatient, doc)
	tr := h.transport(t)

	h.peers.Conns()[0].FailRemote = true
	tr.Deliver(&signaling.Frame{Type: signaling.FrameAnswer, From: "doc", To: "pat", SDP: "broken"})

	require.Eventually(t, func() bool {
		return len(sentTo(tr, signaling.FrameOffer, "doc")) == 2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 2, h.peers.Created())
	require.True(t, h.peers.Conns()[0].Closed())
}

func TestAnswererWaitsAfterFailure(t *testing.T) {
	h := newHarness(t, consult.RoleDoctor)
	_, err := h.o.CreateRoom(context.Background(), "appt-1", consult.RoomConfig{})
	require.NoError(t, err)
	tr := h.transport(t)

	tr.Deliver(&signaling.Frame{
		Type:        signaling.FrameParticipantJoined,
		From:        "pat",
		Participant: &consult.Participant{ID: "pat", Role: consult.RolePatient},
	})
	tr.Deliver(&signaling.Frame{Type: signaling.FrameOffer, From: "pat", To: "local", SDP: "offer-x"})
	require.Eventually(t, func() bool {
		return len(tr.SentOfType(signaling.FrameAnswer)) == 1
	}, time.Second, 5*time.Millisecond)

	h.peers.Conns()[0].EmitState(peer.StateFailed)
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, tr.SentOfType(signaling.FrameOffer))
	require.Equal(t, 1, h.peers.Created())
}

func TestHostTimerClampedToCredentialExpiry(t *testing.T) {
	h := newHarness(t, consult.RoleDoctor)
	h.dir.setCreds(func(c *consult.RoomCredentials) { c.ExpiresAt = start.Add(20 * time.Minute) })

	_, err := h.o.CreateRoom(context.Background(), "appt-1", consult.RoomConfig{MaxDurationMinutes: 60})
	require.NoError(t, err)
	require.Equal(t, 20*time.Minute, h.o.Remaining())
}

func TestHostTimerKeepsShorterRoomLimit(t *testing.T) {
	h := newHarness(t, consult.RoleDoctor)

	_, err := h.o.CreateRoom(context.Background(), "appt-1", consult.RoomConfig{MaxDurationMinutes: 10})
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, h.o.Remaining())
}

func TestCreateRoomWithExpiredCredentialsEndsRoom(t *testing.T) {
	h := newHarness(t, consult.RoleDoctor)
	h.dir.setCreds(func(c *consult.RoomCredentials) { c.ExpiresAt = start.Add(-time.Minute) })

	_, err := h.o.CreateRoom(context.Background(), "appt-1", consult.RoomConfig{})
	require.ErrorIs(t, err, consult.ErrSessionExpired)
	require.Equal(t, []string{"room-1"}, h.dir.endedRooms())
	require.Zero(t, h.dialer.Dials())
	require.Zero(t, h.devices.Acquired())
}

func TestPresenceJoinTimeFromClock(t *testing.T) {
	h := newHarness(t, consult.RoleDoctor)
	_, err := h.o.CreateRoom(context.Background(), "appt-1", consult.RoomConfig{})
	require.NoError(t, err)

	h.transport(t).Deliver(&signaling.Frame{
		Type:         signaling.FrameRoster,
		To:           "local",
		Participants: []consult.Participant{{ID: "pat", Role: consult.RolePatient}},
	})
	require.Eventually(t, func() bool {
		return len(h.o.Participants()) == 2
	}, time.Second, 5*time.Millisecond)
	for _, p := range h.o.Participants() {
		require.Equal(t, start, p.JoinedAt)
	}
}
