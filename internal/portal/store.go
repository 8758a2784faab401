package portal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/benbjohnson/clock"
)

var (
	ErrNotFound         = errors.New("not found")
	errIDSpaceExhausted = errors.New("could not find a free id")
)

// RoomRecord is what the portal remembers about an opened room.
type RoomRecord struct {
	ID                string             `json:"id"`
	AppointmentID     string             `json:"appointmentId"`
	HostID            string             `json:"hostId"`
	HostParticipantID string             `json:"hostParticipantId"`
	Config            consult.RoomConfig `json:"config"`
	CreatedAt         time.Time          `json:"createdAt"`
	ExpiresAt         time.Time          `json:"expiresAt"`
	Ended             bool               `json:"ended"`
}

// Store persists rooms and guest invitations until their ExpiresAt.
type Store interface {
	PutRoom(ctx context.Context, r RoomRecord) error
	Room(ctx context.Context, id string) (RoomRecord, error)
	RoomByAppointment(ctx context.Context, appointmentID string) (RoomRecord, error)
	PutInvitation(ctx context.Context, inv consult.GuestInvitation) error
	Invitation(ctx context.Context, code string) (consult.GuestInvitation, error)
}

// MemoryStore keeps everything in process. Expired entries are dropped on
// read.
type MemoryStore struct {
	clock clock.Clock

	mu     sync.Mutex
	rooms  map[string]RoomRecord
	appts  map[string]string
	guests map[string]consult.GuestInvitation
}

func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.New()
	}
	return &MemoryStore{
		clock:  c,
		rooms:  map[string]RoomRecord{},
		appts:  map[string]string{},
		guests: map[string]consult.GuestInvitation{},
	}
}

func (s *MemoryStore) PutRoom(ctx context.Context, r RoomRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
	s.appts[r.AppointmentID] = r.ID
	return nil
}

func (s *MemoryStore) Room(ctx context.Context, id string) (RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomLocked(id)
}

func (s *MemoryStore) roomLocked(id string) (RoomRecord, error) {
	r, ok := s.rooms[id]
	if !ok {
		return RoomRecord{}, ErrNotFound
	}
	if !r.ExpiresAt.After(s.clock.Now()) {
		delete(s.rooms, id)
		if s.appts[r.AppointmentID] == id {
			delete(s.appts, r.AppointmentID)
		}
		return RoomRecord{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) RoomByAppointment(ctx context.Context, appointmentID string) (RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.appts[appointmentID]
	if !ok {
		return RoomRecord{}, ErrNotFound
	}
	return s.roomLocked(id)
}

func (s *MemoryStore) PutInvitation(ctx context.Context, inv consult.GuestInvitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guests[inv.Code] = inv
	return nil
}

func (s *MemoryStore) Invitation(ctx context.Context, code string) (consult.GuestInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.guests[code]
	if !ok {
		return consult.GuestInvitation{}, ErrNotFound
	}
	// expired invitations stay readable so validation can say so
	return inv, nil
}
