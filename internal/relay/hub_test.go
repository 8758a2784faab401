package relay

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling"
	"github.com/Andiveli/HospitalFront-sub000/internal/token"
	"github.com/stretchr/testify/require"
)

type testRelay struct {
	hub    *Hub
	issuer *token.Issuer
	url    string
}

func startRelay(t *testing.T) *testRelay {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	issuer := token.NewIssuer("relay-secret", nil)
	srv := httptest.NewServer(ServeWs(hub, issuer))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return &testRelay{
		hub:    hub,
		issuer: issuer,
		url:    "ws" + strings.TrimPrefix(srv.URL, "http") + Path,
	}
}

func (r *testRelay) join(t *testing.T, room, id string, role consult.Role, codec signaling.Codec) signaling.Transport {
	t.Helper()
	raw, _, err := r.issuer.Issue(token.Claims{RoomID: room, ParticipantID: id, Name: strings.ToUpper(id), Role: role}, time.Hour)
	require.NoError(t, err)

	d := &signaling.WSDialer{URL: r.url, Codec: codec}
	tr, err := d.Dial(context.Background(), room, raw)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })

	// the hub registers asynchronously; wait until it lists the participant
	require.Eventually(t, func() bool {
		roster, err := r.hub.Roster(context.Background(), room)
		if err != nil {
			return false
		}
		for _, p := range roster {
			if p.ID == id {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	return tr
}

func next(t *testing.T, tr signaling.Transport) *signaling.Frame {
	t.Helper()
	select {
	case f, ok := <-tr.Incoming():
		require.True(t, ok, "transport closed")
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func TestDialRejectsBadToken(t *testing.T) {
	r := startRelay(t)
	d := &signaling.WSDialer{URL: r.url}

	_, err := d.Dial(context.Background(), "room-1", "not-a-token")
	require.ErrorIs(t, err, consult.ErrUnauthorized)

	raw, _, err := r.issuer.Issue(token.Claims{UserID: "u1", Role: consult.RoleDoctor}, time.Hour)
	require.NoError(t, err)
	_, err = d.Dial(context.Background(), "room-1", raw)
	require.ErrorIs(t, err, consult.ErrUnauthorized)
}

func TestPresenceBroadcast(t *testing.T) {
	r := startRelay(t)
	doc := r.join(t, "room-1", "doc", consult.RoleDoctor, nil)
	pat := r.join(t, "room-1", "pat", consult.RolePatient, nil)

	f := next(t, doc)
	require.Equal(t, signaling.FrameParticipantJoined, f.Type)
	require.Equal(t, "pat", f.Participant.ID)
	require.Equal(t, "PAT", f.Participant.DisplayName)
	require.Equal(t, consult.RolePatient, f.Participant.Role)

	pat.Close()
	f = next(t, doc)
	require.Equal(t, signaling.FrameParticipantLeft, f.Type)
	require.Equal(t, "pat", f.From)
}

func TestNewcomerReceivesRoster(t *testing.T) {
	r := startRelay(t)
	doc := r.join(t, "room-1", "doc", consult.RoleDoctor, nil)
	pat := r.join(t, "room-1", "pat", consult.RolePatient, nil)
	gst := r.join(t, "room-1", "gst", consult.RoleGuest, signaling.MsgpackCodec{})

	f := next(t, gst)
	require.Equal(t, signaling.FrameRoster, f.Type)
	require.Equal(t, "gst", f.To)
	require.Len(t, f.Participants, 2)
	ids := []string{f.Participants[0].ID, f.Participants[1].ID}
	require.ElementsMatch(t, []string{"doc", "pat"}, ids)

	f = next(t, pat)
	require.Equal(t, signaling.FrameRoster, f.Type)
	require.Len(t, f.Participants, 1)
	require.Equal(t, "doc", f.Participants[0].ID)

	// the first member of a room gets no roster, only later arrivals
	require.Equal(t, signaling.FrameParticipantJoined, next(t, doc).Type)
	require.Equal(t, signaling.FrameParticipantJoined, next(t, doc).Type)
}

func TestSignalRoutedToRecipientOnly(t *testing.T) {
	r := startRelay(t)
	doc := r.join(t, "room-1", "doc", consult.RoleDoctor, nil)
	pat := r.join(t, "room-1", "pat", consult.RolePatient, signaling.MsgpackCodec{})
	gst := r.join(t, "room-1", "gst", consult.RoleGuest, nil)

	require.Equal(t, signaling.FrameParticipantJoined, next(t, doc).Type) // pat
	require.Equal(t, signaling.FrameParticipantJoined, next(t, doc).Type) // gst
	require.Equal(t, signaling.FrameRoster, next(t, pat).Type)            // doc
	require.Equal(t, signaling.FrameParticipantJoined, next(t, pat).Type) // gst

	// From is stamped by the relay, whatever the sender claims
	require.NoError(t, gst.Send(&signaling.Frame{Type: signaling.FrameOffer, From: "doc", To: "pat", SDP: "v=0"}))
	f := next(t, pat)
	require.Equal(t, signaling.FrameOffer, f.Type)
	require.Equal(t, "gst", f.From)
	require.Equal(t, "v=0", f.SDP)

	msg := consult.ChatMessage{ID: "m1", Text: "hello"}
	require.NoError(t, gst.Send(&signaling.Frame{Type: signaling.FrameChat, Chat: &msg}))

	// doc never saw the offer: its next frame is the chat
	f = next(t, doc)
	require.Equal(t, signaling.FrameChat, f.Type)
	require.Equal(t, "gst", f.Chat.FromParticipantID)
	require.Equal(t, consult.RoleGuest, f.Chat.FromRole)
	require.Equal(t, "hello", next(t, pat).Chat.Text)
}

func TestSignalToAbsentParticipant(t *testing.T) {
	r := startRelay(t)
	doc := r.join(t, "room-1", "doc", consult.RoleDoctor, nil)

	require.NoError(t, doc.Send(&signaling.Frame{Type: signaling.FrameAnswer, To: "p9", SDP: "v=0"}))
	f := next(t, doc)
	require.Equal(t, signaling.FrameError, f.Type)
	require.Contains(t, f.Error, "p9")
}

func TestMediaStateUpdatesRoster(t *testing.T) {
	r := startRelay(t)
	doc := r.join(t, "room-1", "doc", consult.RoleDoctor, nil)
	pat := r.join(t, "room-1", "pat", consult.RolePatient, nil)
	next(t, doc)

	require.NoError(t, pat.Send(&signaling.Frame{Type: signaling.FrameMediaState, Media: &consult.MediaState{Audio: true}}))
	f := next(t, doc)
	require.Equal(t, signaling.FrameMediaState, f.Type)
	require.Equal(t, "pat", f.Participant.ID)
	require.True(t, f.Media.Audio)

	roster, err := r.hub.Roster(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	for _, p := range roster {
		if p.ID == "pat" {
			require.Equal(t, consult.MediaState{Audio: true}, p.Media)
		}
	}
}

func TestEndRoom(t *testing.T) {
	r := startRelay(t)
	doc := r.join(t, "room-1", "doc", consult.RoleDoctor, nil)

	ended, err := r.hub.EndRoom(context.Background(), "room-1", "doctor-ended")
	require.NoError(t, err)
	require.True(t, ended)

	f := next(t, doc)
	require.Equal(t, signaling.FrameRoomEnded, f.Type)
	require.Equal(t, "doctor-ended", f.Reason)

	select {
	case _, ok := <-doc.Incoming():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed")
	}

	ended, err = r.hub.EndRoom(context.Background(), "room-1", "")
	require.NoError(t, err)
	require.False(t, ended)

	roster, err := r.hub.Roster(context.Background(), "room-1")
	require.NoError(t, err)
	require.Empty(t, roster)
}

func TestReconnectReplacesConnection(t *testing.T) {
	r := startRelay(t)
	doc := r.join(t, "room-1", "doc", consult.RoleDoctor, nil)
	first := r.join(t, "room-1", "pat", consult.RolePatient, nil)
	next(t, doc)

	second := r.join(t, "room-1", "pat", consult.RolePatient, nil)
	select {
	case _, ok := <-first.Incoming():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("old connection not closed")
	}

	require.NoError(t, doc.Send(&signaling.Frame{Type: signaling.FrameOffer, To: "pat", SDP: "v=1"}))
	require.Equal(t, "v=1", next(t, second).SDP)

	roster, err := r.hub.Roster(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
}
