package peer

import (
	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/pion/webrtc/v4"
)

// ConnState is the aggregate state of one peer connection.
type ConnState string

const (
	StateNew          ConnState = "new"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateDisconnected ConnState = "disconnected"
	StateFailed       ConnState = "failed"
	StateClosed       ConnState = "closed"
)

// RemoteTrack describes an inbound media track. Track is nil for fakes.
type RemoteTrack struct {
	ID       string
	StreamID string
	Kind     webrtc.RTPCodecType
	MimeType string
	Track    *webrtc.TrackRemote
}

// ConnConfig is what every new connection of a session is built with.
type ConnConfig struct {
	RelayServers []consult.RelayServer
	ForceRelay   bool
}

// Conn is the subset of a peer connection the manager drives.
type Conn interface {
	SetRemoteDescription(t consult.SignalType, sdp string) error
	HasRemoteDescription() bool
	// CreateOffer creates a local offer and applies it as the local description.
	CreateOffer() (string, error)
	// CreateAnswer creates a local answer and applies it as the local description.
	CreateAnswer() (string, error)
	AddICECandidate(c consult.Candidate) error
	// AddTrack attaches an outbound sender of kind. A nil track reserves the
	// sender so a track can be swapped in later without renegotiation.
	AddTrack(kind webrtc.RTPCodecType, track webrtc.TrackLocal) error
	ReplaceTrack(kind webrtc.RTPCodecType, track webrtc.TrackLocal) error
	OnICECandidate(fn func(consult.Candidate))
	OnStateChange(fn func(ConnState))
	OnTrack(fn func(RemoteTrack))
	Close() error
}

type Factory interface {
	NewConnection(cfg ConnConfig) (Conn, error)
}

// Signaler delivers envelopes to remote participants.
type Signaler interface {
	Send(env consult.Envelope) error
}
