// Package token issues and verifies the HS256 tokens used between the portal,
// the relay and the CLI.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissing = errors.New("token required")
	ErrInvalid = errors.New("invalid token")
)

// Claims identify a user, and for session tokens also the room and the
// participant slot inside it.
type Claims struct {
	UserID        string       `json:"user_id,omitempty"`
	Name          string       `json:"name,omitempty"`
	Role          consult.Role `json:"role"`
	RoomID        string       `json:"room_id,omitempty"`
	ParticipantID string       `json:"participant_id,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and parses tokens with one shared secret.
type Issuer struct {
	secret []byte
	clock  clock.Clock
}

func NewIssuer(secret string, c clock.Clock) *Issuer {
	if c == nil {
		c = clock.New()
	}
	return &Issuer{secret: []byte(secret), clock: c}
}

// Issue signs claims valid for ttl from now and returns the token with its
// expiry.
func (i *Issuer) Issue(claims Claims, ttl time.Duration) (string, time.Time, error) {
	now := i.clock.Now()
	exp := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies raw and returns its claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMissing
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.clock.Now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !tok.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}

// FromHeader extracts the token from an "Authorization: Bearer <token>"
// header value.
func FromHeader(header string) (string, error) {
	if header == "" {
		return "", ErrMissing
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("%w: invalid authorization header format", ErrInvalid)
	}
	return parts[1], nil
}
