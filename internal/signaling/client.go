package signaling

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/benbjohnson/clock"
)

var errRemoteClosed = errors.New("signaling connection closed by remote")

// handlers is an ordered set of callbacks that can be removed individually.
type handlers[T any] struct {
	mu   sync.Mutex
	next int
	fns  []handlerEntry[T]
}

type handlerEntry[T any] struct {
	id int
	fn func(T)
}

func (h *handlers[T]) add(fn func(T)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	h.fns = append(h.fns, handlerEntry[T]{id: id, fn: fn})
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, e := range h.fns {
			if e.id == id {
				h.fns = append(h.fns[:i:i], h.fns[i+1:]...)
				return
			}
		}
	}
}

func (h *handlers[T]) emit(v T) {
	h.mu.Lock()
	fns := append([]handlerEntry[T](nil), h.fns...)
	h.mu.Unlock()
	for _, e := range fns {
		e.fn(v)
	}
}

// ClientConfig identifies the local side of a signaling session.
type ClientConfig struct {
	LocalID string
	RoomID  string
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Client stamps outbound messages and dispatches inbound frames to
// registered handlers in arrival order.
type Client struct {
	transport Transport
	localID   string
	roomID    string
	clock     clock.Clock
	logger    *slog.Logger

	signals   handlers[consult.Envelope]
	presence  handlers[Presence]
	roster    handlers[[]consult.Participant]
	chat      handlers[consult.ChatMessage]
	roomEnded handlers[string]
	errs      handlers[string]

	mu     sync.Mutex
	closed bool
}

func NewClient(t Transport, cfg ClientConfig) *Client {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "signaling")
	}
	return &Client{
		transport: t,
		localID:   cfg.LocalID,
		roomID:    cfg.RoomID,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
}

// Send pushes one signal envelope, stamping sender and time.
func (c *Client) Send(env consult.Envelope) error {
	env.From = c.localID
	env.Timestamp = c.clock.Now()
	return c.send(EnvelopeFrame(env))
}

func (c *Client) SendChat(msg consult.ChatMessage) error {
	return c.send(&Frame{Type: FrameChat, From: c.localID, Chat: &msg, Timestamp: c.clock.Now()})
}

// SendMediaState announces the local participant's media flags to the room.
func (c *Client) SendMediaState(m consult.MediaState) error {
	return c.send(&Frame{Type: FrameMediaState, From: c.localID, Media: &m, Timestamp: c.clock.Now()})
}

func (c *Client) send(f *Frame) error {
	if c.isClosed() {
		return consult.NewError(consult.ErrNotConnected, "send "+f.Type, nil)
	}
	f.RoomID = c.roomID
	return c.transport.Send(f)
}

func (c *Client) OnSignal(fn func(consult.Envelope)) func() { return c.signals.add(fn) }
func (c *Client) OnPresence(fn func(Presence)) func() { return c.presence.add(fn) }

// OnRoster registers fn for the list of members the relay sends on join.
func (c *Client) OnRoster(fn func([]consult.Participant)) func() { return c.roster.add(fn) }

func (c *Client) OnChat(fn func(consult.ChatMessage)) func() { return c.chat.add(fn) }
func (c *Client) OnRoomEnded(fn func(reason string)) func() { return c.roomEnded.add(fn) }
func (c *Client) OnError(fn func(message string)) func() { return c.errs.add(fn) }

// Run dispatches frames until ctx is done, Close is called, or the transport
// goes away. The last case returns an error wrapping consult.ErrTransport.
func (c *Client) Run(ctx context.Context) error {
	incoming := c.transport.Incoming()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-incoming:
			if !ok {
				if c.isClosed() {
					return nil
				}
				return consult.NewError(consult.ErrTransport, "signaling run", errRemoteClosed)
			}
			c.dispatch(f)
		}
	}
}

func (c *Client) dispatch(f *Frame) {
	if f.To != "" && f.To != c.localID {
		c.logger.Debug("frame for another participant dropped", "type", f.Type, "to", f.To)
		return
	}

	switch f.Type {
	case FrameOffer, FrameAnswer, FrameCandidate:
		c.signals.emit(f.Envelope())

	case FrameParticipantJoined, FrameParticipantLeft, FrameMediaState:
		c.presence.emit(presenceOf(f))

	case FrameRoster:
		c.roster.emit(f.Participants)

	case FrameChat:
		if f.Chat == nil {
			c.logger.Warn("chat frame without message", "from", f.From)
			return
		}
		c.chat.emit(*f.Chat)

	case FrameRoomEnded:
		c.roomEnded.emit(f.Reason)

	case FrameError:
		c.errs.emit(f.Error)

	default:
		c.logger.Warn("unknown frame type ignored", "type", f.Type, "from", f.From)
	}
}

func presenceOf(f *Frame) Presence {
	p := Presence{Timestamp: f.Timestamp}
	if f.Participant != nil {
		p.Participant = *f.Participant
	}
	if p.Participant.ID == "" {
		p.Participant.ID = f.From
	}
	switch f.Type {
	case FrameParticipantJoined:
		p.Kind = PresenceJoined
	case FrameParticipantLeft:
		p.Kind = PresenceLeft
	default:
		p.Kind = PresenceMedia
	}
	if f.Media != nil {
		p.Media = *f.Media
	} else {
		p.Media = p.Participant.Media
	}
	return p
}

// Close closes the transport. Run then returns nil.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.transport.Close()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
