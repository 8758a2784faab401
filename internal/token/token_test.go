package token

import (
	"testing"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC))
	iss := NewIssuer("secret", mock)

	raw, exp, err := iss.Issue(Claims{UserID: "u1", Role: consult.RoleDoctor, RoomID: "r1", ParticipantID: "p1"}, time.Hour)
	require.NoError(t, err)
	require.Equal(t, mock.Now().Add(time.Hour), exp)

	claims, err := iss.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.Subject)
	require.Equal(t, consult.RoleDoctor, claims.Role)
	require.Equal(t, "r1", claims.RoomID)
	require.Equal(t, "p1", claims.ParticipantID)
}

func TestParseRejects(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC))
	iss := NewIssuer("secret", mock)

	raw, _, err := iss.Issue(Claims{UserID: "u1", Role: consult.RolePatient}, time.Minute)
	require.NoError(t, err)

	_, err = NewIssuer("other", mock).Parse(raw)
	require.ErrorIs(t, err, ErrInvalid)

	mock.Add(2 * time.Minute)
	_, err = iss.Parse(raw)
	require.ErrorIs(t, err, ErrInvalid)

	_, err = iss.Parse("")
	require.ErrorIs(t, err, ErrMissing)
}

func TestFromHeader(t *testing.T) {
	tok, err := FromHeader("Bearer abc")
	require.NoError(t, err)
	require.Equal(t, "abc", tok)

	_, err = FromHeader("")
	require.ErrorIs(t, err, ErrMissing)
	_, err = FromHeader("Token abc")
	require.ErrorIs(t, err, ErrInvalid)
}
