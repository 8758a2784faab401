package timer

import (
	"testing"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

// collect drains events until none arrive for a short while.
func collect(t *testing.T, tm *Timer) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case ev := <-tm.Events():
			out = append(out, ev)
		case <-time.After(100 * time.Millisecond):
			return out
		}
	}
}

func count(events []Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestWarningAndExpiryFireExactlyOnce(t *testing.T) {
	mock := clock.NewMock()
	tm := New(mock, Config{MaxDuration: time.Minute, WarningLead: 10 * time.Second})
	tm.Start()

	mock.Add(49 * time.Second)
	events := collect(t, tm)
	require.Zero(t, count(events, EventWarning))
	require.Positive(t, count(events, EventTick))

	mock.Add(time.Second)
	events = collect(t, tm)
	require.Equal(t, 1, count(events, EventWarning))
	require.True(t, tm.State().Warned)

	mock.Add(10 * time.Second)
	events = collect(t, tm)
	require.Zero(t, count(events, EventWarning))
	require.Equal(t, 1, count(events, EventExpired))
	for _, ev := range events {
		if ev.Kind == EventExpired {
			require.Equal(t, ReasonTimeExpired, ev.Reason)
			require.Zero(t, ev.Remaining)
		}
	}

	st := tm.State()
	require.True(t, st.Expired)
	require.False(t, st.Running)

	mock.Add(5 * time.Minute)
	events = collect(t, tm)
	require.Empty(t, events)
	require.Equal(t, time.Minute, tm.Elapsed())
}

func TestStopDisarmsEverything(t *testing.T) {
	mock := clock.NewMock()
	tm := New(mock, Config{MaxDuration: time.Minute, WarningLead: 10 * time.Second})
	tm.Start()
	mock.Add(10 * time.Second)

	tm.Stop()
	tm.Stop()
	collect(t, tm)

	mock.Add(2 * time.Minute)
	require.Empty(t, collect(t, tm))
	require.Equal(t, 10*time.Second, tm.Elapsed())
	require.Equal(t, 10, tm.Seconds())
	require.False(t, tm.State().Warned)
}

func TestStartResets(t *testing.T) {
	mock := clock.NewMock()
	tm := New(mock, Config{})
	tm.Start()
	mock.Add(65 * time.Second)
	require.Equal(t, "01:05", tm.Formatted())

	tm.Start()
	require.Equal(t, "00:00", tm.Formatted())
	mock.Add(time.Hour + 2*time.Second)
	require.Equal(t, "01:00:02", tm.Formatted())
	tm.Stop()
}

func TestNoLimitNeverExpires(t *testing.T) {
	mock := clock.NewMock()
	tm := New(mock, Config{})
	tm.Start()
	defer tm.Stop()

	mock.Add(3 * time.Second)
	events := collect(t, tm)
	require.Zero(t, count(events, EventExpired))
	require.Zero(t, tm.Remaining())
}

func TestPolicyByRole(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, 10*time.Minute, p.WarningLead(consult.RoleDoctor))
	require.Equal(t, 10*time.Minute, p.WarningLead(consult.RoleSpecialist))
	require.Equal(t, 5*time.Minute, p.WarningLead(consult.RolePatient))
	require.Equal(t, 5*time.Minute, p.WarningLead(consult.RoleGuest))

	cfg := p.ConfigFor(consult.RolePatient, 0)
	require.Equal(t, 30*time.Minute, cfg.MaxDuration)
	cfg = p.ConfigFor(consult.RoleDoctor, 45*time.Minute)
	require.Equal(t, 45*time.Minute, cfg.MaxDuration)
	require.Equal(t, 10*time.Minute, cfg.WarningLead)
}
