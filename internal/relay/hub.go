// Package relay is a development signaling relay: it forwards negotiation
// frames between the participants of a room and tells them who comes and
// goes. It carries no media.
package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling"
	"github.com/benbjohnson/clock"
)

// Hub owns every room and client. All room state is touched only by the
// goroutine running Run.
type Hub struct {
	logger *slog.Logger
	clock  clock.Clock

	rooms map[string]*Room

	register   chan *Client
	unregister chan *Client
	inbound    chan *inbound
	ends       chan endRequest
	rosters    chan rosterRequest
	done       chan struct{}
}

func NewHub(logger *slog.Logger, c clock.Clock) *Hub {
	if logger == nil {
		logger = slog.Default().With("component", "relay")
	}
	if c == nil {
		c = clock.New()
	}
	return &Hub{
		logger:     logger,
		clock:      c,
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *inbound),
		ends:       make(chan endRequest),
		rosters:    make(chan rosterRequest),
		done:       make(chan struct{}),
	}
}

// Run is the hub's processing loop. It returns when ctx is done, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for _, room := range h.rooms {
			for _, c := range room.Members {
				close(c.send)
			}
		}
		h.rooms = map[string]*Room{}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.join(c)

		case c := <-h.unregister:
			if room, ok := h.rooms[c.RoomID]; ok && room.Members[c.Participant.ID] == c {
				h.remove(room, c, true)
			}

		case in := <-h.inbound:
			h.handle(in)

		case req := <-h.ends:
			req.done <- h.end(req.roomID, req.reason)

		case req := <-h.rosters:
			var roster []consult.Participant
			if room, ok := h.rooms[req.roomID]; ok {
				roster = room.roster()
			}
			req.reply <- roster
		}
	}
}

func (h *Hub) join(c *Client) {
	room, ok := h.rooms[c.RoomID]
	if !ok {
		room = newRoom(c.RoomID)
		h.rooms[room.ID] = room
		h.logger.Info("room opened", "room", room.ID)
	}

	if c.Participant.JoinedAt.IsZero() {
		c.Participant.JoinedAt = h.clock.Now()
	}
	c.Participant.Status = consult.StatusConnected

	old, reconnect := room.Members[c.Participant.ID]
	if reconnect {
		// same participant on a new connection; the others keep their peers
		c.Participant.JoinedAt = old.Participant.JoinedAt
		c.Participant.Media = old.Participant.Media
		delete(room.Members, old.Participant.ID)
		close(old.send)
	}
	room.Members[c.Participant.ID] = c
	h.logger.Info("participant joined", "room", room.ID, "participant", c.Participant.ID, "role", c.Participant.Role, "reconnect", reconnect)

	if reconnect {
		return
	}
	p := c.Participant
	h.broadcast(room, c, &signaling.Frame{
		Type:        signaling.FrameParticipantJoined,
		RoomID:      room.ID,
		From:        p.ID,
		Participant: &p,
		Media:       &p.Media,
		Timestamp:   h.clock.Now(),
	})

	// the newcomer offers to everyone already here; they only answer
	if others := room.others(p.ID); len(others) > 0 {
		h.deliver(room, c, &signaling.Frame{
			Type:         signaling.FrameRoster,
			RoomID:       room.ID,
			To:           p.ID,
			Participants: others,
			Timestamp:    h.clock.Now(),
		})
	}
}

// remove drops c from room and closes its send channel. With announce the
// others are told it left.
func (h *Hub) remove(room *Room, c *Client, announce bool) {
	if room.Members[c.Participant.ID] != c {
		return
	}
	delete(room.Members, c.Participant.ID)
	close(c.send)
	h.logger.Info("participant left", "room", room.ID, "participant", c.Participant.ID)

	if len(room.Members) == 0 {
		delete(h.rooms, room.ID)
		h.logger.Info("room closed", "room", room.ID)
		return
	}
	if announce {
		p := c.Participant
		p.Status = consult.StatusDisconnected
		h.broadcast(room, nil, &signaling.Frame{
			Type:        signaling.FrameParticipantLeft,
			RoomID:      room.ID,
			From:        p.ID,
			Participant: &p,
			Timestamp:   h.clock.Now(),
		})
	}
}

func (h *Hub) handle(in *inbound) {
	c, f := in.client, in.frame
	room, ok := h.rooms[c.RoomID]
	if !ok || room.Members[c.Participant.ID] != c {
		return
	}

	// the relay is the authority on who sent what
	f.From = c.Participant.ID
	f.RoomID = room.ID
	if f.Timestamp.IsZero() {
		f.Timestamp = h.clock.Now()
	}

	switch f.Type {
	case signaling.FrameOffer, signaling.FrameAnswer, signaling.FrameCandidate:
		if f.To == "" {
			h.reject(room, c, "signal without recipient")
			return
		}
		target, ok := room.Members[f.To]
		if !ok {
			h.logger.Debug("signal for absent participant", "room", room.ID, "from", f.From, "to", f.To, "type", f.Type)
			h.reject(room, c, fmt.Sprintf("participant %s is not in the room", f.To))
			return
		}
		h.deliver(room, target, f)

	case signaling.FrameChat:
		if f.Chat == nil {
			h.reject(room, c, "chat without message")
			return
		}
		f.Chat.FromParticipantID = c.Participant.ID
		f.Chat.FromName = c.Participant.DisplayName
		f.Chat.FromRole = c.Participant.Role
		f.Chat.Type = consult.ChatText
		if f.Chat.Timestamp.IsZero() {
			f.Chat.Timestamp = f.Timestamp
		}
		h.broadcast(room, c, f)

	case signaling.FrameMediaState:
		if f.Media == nil {
			h.reject(room, c, "media state without flags")
			return
		}
		c.Participant.Media = *f.Media
		p := c.Participant
		f.Participant = &p
		h.broadcast(room, c, f)

	default:
		h.reject(room, c, fmt.Sprintf("unknown frame type %q", f.Type))
	}
}

func (h *Hub) reject(room *Room, c *Client, msg string) {
	h.deliver(room, c, &signaling.Frame{
		Type:      signaling.FrameError,
		RoomID:    room.ID,
		To:        c.Participant.ID,
		Error:     msg,
		Timestamp: h.clock.Now(),
	})
}

// broadcast sends f to every member except skip.
func (h *Hub) broadcast(room *Room, skip *Client, f *signaling.Frame) {
	for _, c := range room.Members {
		if c != skip {
			h.deliver(room, c, f)
		}
	}
}

func (h *Hub) deliver(room *Room, c *Client, f *signaling.Frame) {
	if !c.deliver(f) {
		h.remove(room, c, true)
	}
}

func (h *Hub) end(roomID, reason string) bool {
	room, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	f := &signaling.Frame{
		Type:      signaling.FrameRoomEnded,
		RoomID:    roomID,
		Reason:    reason,
		Timestamp: h.clock.Now(),
	}
	for _, c := range room.Members {
		c.deliver(f)
		close(c.send)
	}
	delete(h.rooms, roomID)
	h.logger.Info("room ended", "room", roomID, "reason", reason)
	return true
}

func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) dispatch(in *inbound) bool {
	select {
	case h.inbound <- in:
		return true
	case <-h.done:
		return false
	}
}

// EndRoom tells every member of roomID that the room is over and
// disconnects them. It reports whether the room was open.
func (h *Hub) EndRoom(ctx context.Context, roomID, reason string) (bool, error) {
	req := endRequest{roomID: roomID, reason: reason, done: make(chan bool, 1)}
	select {
	case h.ends <- req:
	case <-h.done:
		return false, errHubStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
	return <-req.done, nil
}

// Roster returns the participants connected to roomID.
func (h *Hub) Roster(ctx context.Context, roomID string) ([]consult.Participant, error) {
	req := rosterRequest{roomID: roomID, reply: make(chan []consult.Participant, 1)}
	select {
	case h.rosters <- req:
	case <-h.done:
		return nil, errHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return <-req.reply, nil
}
