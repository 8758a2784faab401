package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomSendsTokenAndConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/video-calls/rooms", r.URL.Path)
		require.Equal(t, "Bearer access", r.Header.Get("Authorization"))

		var req createRoomRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "appt-7", req.AppointmentID)
		require.Equal(t, 20, req.Config.MaxDurationMinutes)

		json.NewEncoder(w).Encode(consult.RoomCredentials{
			RoomID:        "room-1",
			SessionToken:  "session",
			ParticipantID: "doc-1",
			Role:          consult.RoleDoctor,
			ExpiresAt:     time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "access", time.Second, nil)
	creds, err := c.CreateRoom(context.Background(), "appt-7", consult.RoomConfig{MaxDurationMinutes: 20})
	require.NoError(t, err)
	require.Equal(t, "room-1", creds.RoomID)
	require.Equal(t, consult.RoleDoctor, creds.Role)
}

func TestExpiryFallsBackToTokenClaim(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/video-calls/rooms/join", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"roomId": "room-1", "sessionToken": token, "participantId": "pat-1", "role": "patient"})
	}))
	defer srv.Close()

	creds, err := New(srv.URL, "", time.Second, nil).JoinRoom(context.Background(), "appt-7", "")
	require.NoError(t, err)
	require.True(t, exp.Equal(creds.ExpiresAt))
}

func TestStatusErrors(t *testing.T) {
	status := http.StatusForbidden
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{"error":"appointment belongs to another doctor"}`))
	}))
	defer srv.Close()
	c := New(srv.URL, "tok", time.Second, nil)

	_, err := c.CreateRoom(context.Background(), "appt-7", consult.RoomConfig{})
	require.ErrorIs(t, err, consult.ErrUnauthorized)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "appointment belongs to another doctor", se.Message)

	status = http.StatusNotFound
	_, err = c.ValidateGuestCode(context.Background(), "nope")
	require.False(t, errors.Is(err, consult.ErrUnauthorized))
	require.True(t, IsStatus(err, http.StatusNotFound))
	require.True(t, se.ClientError())
}

func TestNetworkFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url, "", time.Second, nil).EndRoom(context.Background(), "room-1")
	require.ErrorIs(t, err, consult.ErrTransport)
}

func TestEndRoomAndGuestLink(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/api/video-calls/guests/links" {
			var req guestLinkRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			json.NewEncoder(w).Encode(consult.GuestInvitation{
				Code:          "amber-otter-42",
				AppointmentID: req.AppointmentID,
				InvitedRole:   req.Guest.Role,
			})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c := New(srv.URL, "tok", time.Second, nil)

	require.NoError(t, c.EndRoom(context.Background(), "room 1"))
	inv, err := c.GenerateGuestLink(context.Background(), "appt-7", consult.GuestData{Name: "Ana", Role: consult.RoleTranslator})
	require.NoError(t, err)
	require.Equal(t, "amber-otter-42", inv.Code)
	require.Equal(t, consult.RoleTranslator, inv.InvitedRole)
	require.Equal(t, []string{"/api/video-calls/rooms/room 1/end", "/api/video-calls/guests/links"}, paths)
}
