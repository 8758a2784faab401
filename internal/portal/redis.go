package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
)

// expiredGrace keeps expired invitations around long enough to report them
// as expired rather than unknown.
const expiredGrace = 24 * time.Hour

// Connect opens a Redis client and checks the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps rooms and invitations in Redis under room:{id},
// appt:{appointmentId} and guest:{code}, each with a TTL matching its
// expiry.
type RedisStore struct {
	client *redis.Client
	clock  clock.Clock
}

func NewRedisStore(client *redis.Client, c clock.Clock) *RedisStore {
	if c == nil {
		c = clock.New()
	}
	return &RedisStore{client: client, clock: c}
}

func roomKey(id string) string { return "room:" + id }
func apptKey(id string) string { return "appt:" + id }
func guestKey(code string) string { return "guest:" + code }

func (s *RedisStore) ttl(expires time.Time) time.Duration {
	ttl := expires.Sub(s.clock.Now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (s *RedisStore) PutRoom(ctx context.Context, r RoomRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	ttl := s.ttl(r.ExpiresAt)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, roomKey(r.ID), data, ttl)
		p.Set(ctx, apptKey(r.AppointmentID), r.ID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store room %s: %w", r.ID, err)
	}
	return nil
}

func (s *RedisStore) Room(ctx context.Context, id string) (RoomRecord, error) {
	var r RoomRecord
	if err := s.getJSON(ctx, roomKey(id), &r); err != nil {
		return RoomRecord{}, err
	}
	return r, nil
}

func (s *RedisStore) RoomByAppointment(ctx context.Context, appointmentID string) (RoomRecord, error) {
	id, err := s.client.Get(ctx, apptKey(appointmentID)).Result()
	if errors.Is(err, redis.Nil) {
		return RoomRecord{}, ErrNotFound
	}
	if err != nil {
		return RoomRecord{}, fmt.Errorf("lookup appointment %s: %w", appointmentID, err)
	}
	return s.Room(ctx, id)
}

func (s *RedisStore) PutInvitation(ctx context.Context, inv consult.GuestInvitation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, guestKey(inv.Code), data, s.ttl(inv.ExpiresAt.Add(expiredGrace))).Err(); err != nil {
		return fmt.Errorf("store invitation: %w", err)
	}
	return nil
}

func (s *RedisStore) Invitation(ctx context.Context, code string) (consult.GuestInvitation, error) {
	var inv consult.GuestInvitation
	if err := s.getJSON(ctx, guestKey(code), &inv); err != nil {
		return consult.GuestInvitation{}, err
	}
	return inv, nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
