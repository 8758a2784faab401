// Package guest validates invitation codes and issues new invitations.
package guest

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/directory"
)

// ErrInvalidGuest is returned by Invite for unusable guest data.
var ErrInvalidGuest = errors.New("invalid guest data")

// Directory is the part of the backend the validator needs.
type Directory interface {
	ValidateGuestCode(ctx context.Context, code string) (*consult.GuestValidation, error)
	GenerateGuestLink(ctx context.Context, appointmentID string, guest consult.GuestData) (*consult.GuestInvitation, error)
}

type Validator struct {
	dir    Directory
	logger *slog.Logger
}

func NewValidator(dir Directory, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default().With("component", "guest")
	}
	return &Validator{dir: dir, logger: logger}
}

// Validate checks code with the backend in a single round trip. Unknown,
// expired and already used codes all fail with consult.ErrInvalidGuestCode
// and are told apart only by the message. Backend outages fail with
// consult.ErrTransport.
func (v *Validator) Validate(ctx context.Context, code string) (*consult.GuestValidation, error) {
	const op = "validate guest code"

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, consult.WrapError(consult.ErrInvalidGuestCode, op, nil, "empty code")
	}

	res, err := v.dir.ValidateGuestCode(ctx, code)
	if err != nil {
		var se *directory.StatusError
		if errors.As(err, &se) && se.ClientError() && !errors.Is(se, consult.ErrUnauthorized) {
			v.logger.Info("guest code rejected", "status", se.Code, "err", se.Message)
			return nil, consult.WrapError(consult.ErrInvalidGuestCode, op, nil, se.Message)
		}
		return nil, consult.NewError(consult.ErrTransport, op, err)
	}
	if res == nil || !res.IsValid {
		msg := "code not valid"
		if res != nil && res.Message != "" {
			msg = res.Message
		}
		v.logger.Info("guest code rejected", "err", msg)
		return nil, consult.WrapError(consult.ErrInvalidGuestCode, op, nil, msg)
	}
	return res, nil
}

// Invite asks the backend for a new invitation to appointmentID.
func (v *Validator) Invite(ctx context.Context, appointmentID string, g consult.GuestData) (*consult.GuestInvitation, error) {
	const op = "invite guest"

	g.Name = strings.TrimSpace(g.Name)
	switch {
	case appointmentID == "":
		return nil, consult.WrapError(ErrInvalidGuest, op, nil, "missing appointment")
	case g.Name == "":
		return nil, consult.WrapError(ErrInvalidGuest, op, nil, "missing guest name")
	case !g.Role.IsInvited():
		return nil, consult.WrapError(ErrInvalidGuest, op, nil, "role "+string(g.Role)+" cannot be invited")
	}

	inv, err := v.dir.GenerateGuestLink(ctx, appointmentID, g)
	if err != nil {
		if errors.Is(err, consult.ErrUnauthorized) || errors.Is(err, consult.ErrTransport) {
			return nil, err
		}
		return nil, consult.NewError(consult.ErrTransport, op, err)
	}
	return inv, nil
}
