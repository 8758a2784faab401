package consult

import (
	"errors"
	"fmt"
)

var (
	ErrRoomCreation     = errors.New("room creation failed")
	ErrNegotiation      = errors.New("negotiation failed")
	ErrInvalidGuestCode = errors.New("invalid guest code")
	ErrTransport        = errors.New("signaling transport failure")
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionAborted   = errors.New("session aborted")
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyActive    = errors.New("session already active")
	ErrUnauthorized     = errors.New("unauthorized")
)

// Error is the concrete error returned by the session core. Kind is one of
// the sentinels above; Err is the underlying cause. errors.Is matches both.
type Error struct {
	Kind        error
	Op          string
	Participant string
	Err         error
	Details     string
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Participant != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Participant)
	}
	cause := e.Kind
	if e.Err != nil {
		cause = e.Err
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", msg, cause, e.Details)
	}
	return fmt.Sprintf("%s: %v", msg, cause)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func NewError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func WrapError(kind error, op string, err error, details string) *Error {
	return &Error{Kind: kind, Op: op, Err: err, Details: details}
}

func PeerError(op, participantID string, err error) *Error {
	return &Error{Kind: ErrNegotiation, Op: op, Participant: participantID, Err: err}
}

// IsFatal reports whether err must tear the whole session down.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNegotiation):
		return false
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrTransport),
		errors.Is(err, ErrRoomCreation),
		errors.Is(err, ErrSessionExpired):
		return true
	default:
		return false
	}
}
