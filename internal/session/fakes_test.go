package session_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
)

type fakeDirectory struct {
	mu        sync.Mutex
	creds     consult.RoomCredentials
	createErr error
	joinErr   error
	codes     map[string]consult.GuestValidation
	ended     []string
	created   []consult.RoomConfig
	invites   []consult.GuestData
}

func newFakeDirectory(role consult.Role, expires time.Time) *fakeDirectory {
	return &fakeDirectory{
		creds: consult.RoomCredentials{
			RoomID:        "room-1",
			SessionToken:  "token-1",
			ParticipantID: "local",
			Role:          role,
			DisplayName:   "Dr. Vera",
			ExpiresAt:     expires,
		},
		codes: map[string]consult.GuestValidation{},
	}
}

func (d *fakeDirectory) CreateRoom(ctx context.Context, appointmentID string, cfg consult.RoomConfig) (*consult.RoomCredentials, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, cfg)
	if d.createErr != nil {
		return nil, d.createErr
	}
	c := d.creds
	c.AppointmentID = appointmentID
	return &c, nil
}

func (d *fakeDirectory) JoinRoom(ctx context.Context, appointmentID, guestCode string) (*consult.RoomCredentials, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.joinErr != nil {
		return nil, d.joinErr
	}
	c := d.creds
	return &c, nil
}

func (d *fakeDirectory) EndRoom(ctx context.Context, roomID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ended = append(d.ended, roomID)
	return nil
}

func (d *fakeDirectory) ValidateGuestCode(ctx context.Context, code string) (*consult.GuestValidation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.codes[code]
	if !ok {
		return &consult.GuestValidation{IsValid: false, Message: "unknown code"}, nil
	}
	return &v, nil
}

func (d *fakeDirectory) GenerateGuestLink(ctx context.Context, appointmentID string, g consult.GuestData) (*consult.GuestInvitation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invites = append(d.invites, g)
	return &consult.GuestInvitation{
		Code:          fmt.Sprintf("code-%d", len(d.invites)),
		AppointmentID: appointmentID,
		InvitedRole:   g.Role,
		GuestName:     g.Name,
	}, nil
}

func (d *fakeDirectory) setCode(code string, v consult.GuestValidation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes[code] = v
}

func (d *fakeDirectory) setCreds(fn func(*consult.RoomCredentials)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.creds)
}

func (d *fakeDirectory) endedRooms() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ended...)
}

// blockingDirectory holds CreateRoom until release is closed.
type blockingDirectory struct {
	*fakeDirectory
	entered chan struct{}
	release chan struct{}
}

func (d *blockingDirectory) CreateRoom(ctx context.Context, appointmentID string, cfg consult.RoomConfig) (*consult.RoomCredentials, error) {
	close(d.entered)
	<-d.release
	return d.fakeDirectory.CreateRoom(ctx, appointmentID, cfg)
}
