package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/peer"
)

// State is the orchestrator's lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

type EventKind string

const (
	EventParticipantJoined      EventKind = "participant-joined"
	EventParticipantLeft        EventKind = "participant-left"
	EventParticipantUpdated     EventKind = "participant-updated"
	EventChatMessage            EventKind = "chat-message"
	EventConnectionStateChanged EventKind = "connection-state-changed"
	EventTimeTick               EventKind = "time-tick"
	EventTimeWarning            EventKind = "time-warning"
	EventSessionEnded           EventKind = "session-ended"
	EventError                  EventKind = "error"
)

// Event is published to subscribers. Which fields are set depends on Kind:
// connection-state-changed carries State, plus ParticipantID and PeerState
// when it concerns a single peer connection.
type Event struct {
	Kind          EventKind
	Time          time.Time
	Participant   *consult.Participant
	ParticipantID string
	Chat          *consult.ChatMessage
	State         State
	PeerState     peer.ConnState
	Elapsed       time.Duration
	Remaining     time.Duration
	Reason        string
	Err           error
}

// bus fans events out to subscribers without ever blocking the publisher.
type bus struct {
	logger *slog.Logger

	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func newBus(logger *slog.Logger) *bus {
	return &bus{logger: logger, subs: map[int]chan Event{}}
}

func (b *bus) subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *bus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			if ev.Kind != EventTimeTick {
				b.logger.Warn("subscriber too slow, event dropped", "kind", ev.Kind)
			}
		}
	}
}
