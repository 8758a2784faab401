// Package consult holds the data model shared by every part of the video
// consultation core: sessions, participants, signal envelopes, chat and
// guest invitations, plus the error taxonomy in errors.go.
package consult

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConnectionStatus is a participant's presence in the room.
type ConnectionStatus string

const (
	StatusWaiting      ConnectionStatus = "waiting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// MediaState describes which local media a participant is publishing.
type MediaState struct {
	Audio       bool `json:"audio" msgpack:"audio"`
	Video       bool `json:"video" msgpack:"video"`
	ScreenShare bool `json:"screenShare" msgpack:"screenShare"`
}

type Participant struct {
	ID           string           `json:"id" msgpack:"id"`
	DisplayName  string           `json:"displayName" msgpack:"displayName"`
	Role         Role             `json:"role" msgpack:"role"`
	Media        MediaState       `json:"media" msgpack:"media"`
	Status       ConnectionStatus `json:"status" msgpack:"status"`
	ConnectionID string           `json:"connectionId,omitempty" msgpack:"connectionId,omitempty"`
	JoinedAt     time.Time        `json:"joinedAt" msgpack:"joinedAt"`
	Local        bool             `json:"-" msgpack:"-"`
}

// RelayServer is one STUN/TURN server descriptor.
type RelayServer struct {
	URLs       []string `json:"urls" msgpack:"urls"`
	Username   string   `json:"username,omitempty" msgpack:"username,omitempty"`
	Credential string   `json:"credential,omitempty" msgpack:"credential,omitempty"`
}

// IsTURN reports whether any URL of the descriptor is a relay (turn/turns) URL.
func (r RelayServer) IsTURN() bool {
	for _, u := range r.URLs {
		if strings.HasPrefix(u, "turn:") || strings.HasPrefix(u, "turns:") {
			return true
		}
	}
	return false
}

// Session identifies one active room from the local participant's side.
type Session struct {
	RoomID             string
	AppointmentID      string
	SessionToken       string
	LocalParticipantID string
	LocalRole          Role
	LocalName          string
	RelayServers       []RelayServer
	CreatedAt          time.Time
	ExpiresAt          time.Time
	GuestCode          string
}

// SignalType is the kind of a negotiation envelope.
type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "candidate"
)

// Candidate mirrors an ICE candidate init as exchanged on the wire.
type Candidate struct {
	Candidate        string  `json:"candidate" msgpack:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty" msgpack:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty" msgpack:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty" msgpack:"usernameFragment,omitempty"`
}

// Envelope is one negotiation message between two participants.
type Envelope struct {
	To        string     `json:"to"`
	From      string     `json:"from"`
	Type      SignalType `json:"type"`
	SDP       string     `json:"sdp,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

type ChatType string

const (
	ChatText   ChatType = "text"
	ChatSystem ChatType = "system"
)

type ChatMessage struct {
	ID                string    `json:"id" msgpack:"id"`
	FromParticipantID string    `json:"fromParticipantId" msgpack:"fromParticipantId"`
	FromName          string    `json:"fromName" msgpack:"fromName"`
	FromRole          Role      `json:"fromRole" msgpack:"fromRole"`
	Text              string    `json:"text" msgpack:"text"`
	Type              ChatType  `json:"type" msgpack:"type"`
	Timestamp         time.Time `json:"timestamp" msgpack:"timestamp"`
}

// NewChatMessage stamps a fresh id and timestamp on a text message from p.
func NewChatMessage(p Participant, text string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:                uuid.NewString(),
		FromParticipantID: p.ID,
		FromName:          p.DisplayName,
		FromRole:          p.Role,
		Text:              text,
		Type:              ChatText,
		Timestamp:         now,
	}
}

// SystemMessage builds a locally generated notice (joins, leaves, warnings).
func SystemMessage(text string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Type:      ChatSystem,
		Timestamp: now,
	}
}

// RoomConfig is sent when a clinician opens a room for an appointment.
type RoomConfig struct {
	MaxDurationMinutes int  `json:"maxDurationMinutes,omitempty"`
	MaxParticipants    int  `json:"maxParticipants,omitempty"`
	AllowGuests        bool `json:"allowGuests"`
}

// MaxDuration is zero when the room has no explicit limit.
func (c RoomConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationMinutes) * time.Minute
}

// RoomCredentials is what the directory hands back for create and join.
type RoomCredentials struct {
	RoomID        string        `json:"roomId"`
	AppointmentID string        `json:"appointmentId,omitempty"`
	SessionToken  string        `json:"sessionToken"`
	ParticipantID string        `json:"participantId"`
	Role          Role          `json:"role"`
	DisplayName   string        `json:"displayName,omitempty"`
	RelayServers  []RelayServer `json:"relayServers,omitempty"`
	ExpiresAt     time.Time     `json:"expiresAt"`
	Participants  []Participant `json:"participants,omitempty"`
}

type GuestInvitation struct {
	Code          string    `json:"code"`
	Link          string    `json:"link,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt"`
	RoomID        string    `json:"roomId,omitempty"`
	AppointmentID string    `json:"appointmentId"`
	InvitedRole   Role      `json:"invitedRole"`
	GuestName     string    `json:"guestName,omitempty"`
	Used          bool      `json:"used,omitempty"`
}

// GuestData describes the person a clinician is inviting.
type GuestData struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

type RoomInfo struct {
	RoomID        string `json:"roomId"`
	AppointmentID string `json:"appointmentId"`
}

type GuestInfo struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// GuestValidation is the directory's answer to validateGuestCode.
type GuestValidation struct {
	IsValid   bool       `json:"isValid"`
	Message   string     `json:"message,omitempty"`
	RoomInfo  *RoomInfo  `json:"roomInfo,omitempty"`
	GuestInfo *GuestInfo `json:"guestInfo,omitempty"`
}
