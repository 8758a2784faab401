package participants

import (
	"testing"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestUpsertKeepsFirstJoinTime(t *testing.T) {
	r := NewRegistry(nil)
	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	require.True(t, r.Upsert(consult.Participant{ID: "p1", JoinedAt: first, Status: consult.StatusWaiting}))
	require.False(t, r.Upsert(consult.Participant{ID: "p1", JoinedAt: first.Add(time.Minute), Status: consult.StatusConnected}))

	p, ok := r.Get("p1")
	require.True(t, ok)
	require.Equal(t, first, p.JoinedAt)
	require.Equal(t, consult.StatusConnected, p.Status)
}

func TestUpsertStampsJoinTimeFromClock(t *testing.T) {
	mock := clock.NewMock()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.Set(at)
	r := NewRegistry(mock)

	r.Upsert(consult.Participant{ID: "p1"})
	mock.Add(time.Minute)
	r.Upsert(consult.Participant{ID: "p1", Status: consult.StatusConnected})

	p, ok := r.Get("p1")
	require.True(t, ok)
	require.Equal(t, at, p.JoinedAt)
}

func TestLocalAndRemote(t *testing.T) {
	r := NewRegistry(nil)
	now := time.Now()
	r.Upsert(consult.Participant{ID: "me", Local: true, JoinedAt: now})
	r.Upsert(consult.Participant{ID: "p2", JoinedAt: now})
	r.Upsert(consult.Participant{ID: "p1", JoinedAt: now})

	local, ok := r.Local()
	require.True(t, ok)
	require.Equal(t, "me", local.ID)
	require.Equal(t, []string{"p1", "p2"}, r.Remote())

	list := r.List()
	require.Len(t, list, 3)
	require.Equal(t, "me", list[0].ID)

	_, ok = r.Remove("me")
	require.True(t, ok)
	_, ok = r.Local()
	require.False(t, ok)
}

func TestSetStatusAndMedia(t *testing.T) {
	r := NewRegistry(nil)
	r.Upsert(consult.Participant{ID: "p1", Status: consult.StatusWaiting})

	require.True(t, r.SetStatus("p1", consult.StatusConnected))
	require.False(t, r.SetStatus("p1", consult.StatusConnected))
	require.False(t, r.SetStatus("ghost", consult.StatusConnected))

	p, ok := r.SetMedia("p1", consult.MediaState{Audio: true})
	require.True(t, ok)
	require.True(t, p.Media.Audio)
	require.False(t, p.Media.Video)

	_, ok = r.SetMedia("ghost", consult.MediaState{})
	require.False(t, ok)
}

func TestRemoveUnknownAndClear(t *testing.T) {
	r := NewRegistry(nil)
	_, ok := r.Remove("nobody")
	require.False(t, ok)

	r.Upsert(consult.Participant{ID: "a"})
	r.Upsert(consult.Participant{ID: "b"})
	require.Equal(t, 2, r.Len())
	r.Clear()
	require.Equal(t, 0, r.Len())
}
