// Package directory talks to the appointment backend that owns rooms and
// guest invitations.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/golang-jwt/jwt/v5"
)

// BasePath is where the video-call endpoints live on the backend.
const BasePath = "/api/video-calls"

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("directory returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("directory returned %d: %s", e.Code, e.Message)
}

// Is lets errors.Is(err, consult.ErrUnauthorized) see auth failures.
func (e *StatusError) Is(target error) bool {
	return target == consult.ErrUnauthorized &&
		(e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}

// ClientError reports whether the backend rejected the request itself.
func (e *StatusError) ClientError() bool {
	return e.Code >= 400 && e.Code < 500
}

// Client is a REST client for the directory endpoints.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// New builds a client for baseURL, e.g. https://portal.example.org.
// timeout bounds every request.
func New(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default().With("component", "directory")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type createRoomRequest struct {
	AppointmentID string             `json:"appointmentId"`
	Config        consult.RoomConfig `json:"config"`
}

type joinRoomRequest struct {
	AppointmentID string `json:"appointmentId"`
	GuestCode     string `json:"guestCode,omitempty"`
}

type validateRequest struct {
	Code string `json:"code"`
}

type guestLinkRequest struct {
	AppointmentID string            `json:"appointmentId"`
	Guest         consult.GuestData `json:"guest"`
}

// CreateRoom asks the backend to open a room for appointmentID.
func (c *Client) CreateRoom(ctx context.Context, appointmentID string, cfg consult.RoomConfig) (*consult.RoomCredentials, error) {
	var creds consult.RoomCredentials
	if err := c.do(ctx, http.MethodPost, "/rooms", createRoomRequest{AppointmentID: appointmentID, Config: cfg}, &creds); err != nil {
		return nil, err
	}
	fillExpiry(&creds)
	return &creds, nil
}

// JoinRoom joins the room of appointmentID, as a guest when guestCode is set.
func (c *Client) JoinRoom(ctx context.Context, appointmentID, guestCode string) (*consult.RoomCredentials, error) {
	var creds consult.RoomCredentials
	if err := c.do(ctx, http.MethodPost, "/rooms/join", joinRoomRequest{AppointmentID: appointmentID, GuestCode: guestCode}, &creds); err != nil {
		return nil, err
	}
	fillExpiry(&creds)
	return &creds, nil
}

func (c *Client) EndRoom(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomID)+"/end", nil, nil)
}

func (c *Client) ValidateGuestCode(ctx context.Context, code string) (*consult.GuestValidation, error) {
	var v consult.GuestValidation
	if err := c.do(ctx, http.MethodPost, "/guests/validate", validateRequest{Code: code}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) GenerateGuestLink(ctx context.Context, appointmentID string, guest consult.GuestData) (*consult.GuestInvitation, error) {
	var inv consult.GuestInvitation
	if err := c.do(ctx, http.MethodPost, "/guests/links", guestLinkRequest{AppointmentID: appointmentID, Guest: guest}, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+BasePath+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return consult.NewError(consult.ErrTransport, method+" "+path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return consult.NewError(consult.ErrTransport, method+" "+path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
		c.logger.Debug("directory request failed", "path", path, "status", resp.StatusCode, "err", se.Message)
		return se
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// errorMessage pulls a human message out of an error body.
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(data))
}

// fillExpiry falls back to the session token's exp claim when the backend
// did not send an explicit expiry. The token is not verified here; the
// relay does that.
func fillExpiry(creds *consult.RoomCredentials) {
	if !creds.ExpiresAt.IsZero() || creds.SessionToken == "" {
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(creds.SessionToken, claims); err != nil {
		return
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		creds.ExpiresAt = exp.Time
	}
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
