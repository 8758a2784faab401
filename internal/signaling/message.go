package signaling

import (
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
)

// Frame is every message exchanged with the signaling relay. Only the fields
// relevant to Type are set.
type Frame struct {
	Type         string                `json:"type" msgpack:"type"`
	RoomID       string                `json:"roomId,omitempty" msgpack:"roomId,omitempty"`
	From         string                `json:"from,omitempty" msgpack:"from,omitempty"`
	To           string                `json:"to,omitempty" msgpack:"to,omitempty"`
	SDP          string                `json:"sdp,omitempty" msgpack:"sdp,omitempty"`
	Candidate    *consult.Candidate    `json:"candidate,omitempty" msgpack:"candidate,omitempty"`
	Chat         *consult.ChatMessage  `json:"chat,omitempty" msgpack:"chat,omitempty"`
	Participant  *consult.Participant  `json:"participant,omitempty" msgpack:"participant,omitempty"`
	Participants []consult.Participant `json:"participants,omitempty" msgpack:"participants,omitempty"`
	Media        *consult.MediaState   `json:"media,omitempty" msgpack:"media,omitempty"`
	Reason       string                `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Error        string                `json:"error,omitempty" msgpack:"error,omitempty"`
	Timestamp    time.Time             `json:"timestamp" msgpack:"timestamp"`
}

// Frame type constants.
const (
	FrameOffer     = string(consult.SignalOffer)
	FrameAnswer    = string(consult.SignalAnswer)
	FrameCandidate = string(consult.SignalCandidate)

	FrameChat              = "chat"
	FrameParticipantJoined = "participant-joined"
	FrameParticipantLeft   = "participant-left"
	FrameMediaState        = "media-state"
	FrameRoster            = "roster"
	FrameRoomEnded         = "room-ended"
	FrameError             = "error"
)

// IsSignal reports whether f carries an offer, answer or candidate.
func (f *Frame) IsSignal() bool {
	switch f.Type {
	case FrameOffer, FrameAnswer, FrameCandidate:
		return true
	}
	return false
}

// Envelope converts a signal frame back to an envelope.
func (f *Frame) Envelope() consult.Envelope {
	return consult.Envelope{
		To:        f.To,
		From:      f.From,
		Type:      consult.SignalType(f.Type),
		SDP:       f.SDP,
		Candidate: f.Candidate,
		Timestamp: f.Timestamp,
	}
}

// EnvelopeFrame wraps a signal envelope for the wire.
func EnvelopeFrame(env consult.Envelope) *Frame {
	return &Frame{
		Type:      string(env.Type),
		From:      env.From,
		To:        env.To,
		SDP:       env.SDP,
		Candidate: env.Candidate,
		Timestamp: env.Timestamp,
	}
}

// PresenceKind distinguishes the presence frames.
type PresenceKind string

const (
	PresenceJoined PresenceKind = "joined"
	PresenceLeft   PresenceKind = "left"
	PresenceMedia  PresenceKind = "media"
)

// Presence is a decoded participant-joined, participant-left or media-state
// frame.
type Presence struct {
	Kind        PresenceKind
	Participant consult.Participant
	Media       consult.MediaState
	Timestamp   time.Time
}
