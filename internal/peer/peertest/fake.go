// Package peertest provides in-memory stand-ins for peer connections and
// signalers.
package peertest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/peer"
	"github.com/pion/webrtc/v4"
)

var ErrInjected = errors.New("injected failure")

// Factory hands out FakeConns and remembers every one it created.
type Factory struct {
	mu    sync.Mutex
	conns []*Conn
	Err   error

	// FailRemote makes every new connection reject SetRemoteDescription.
	FailRemote bool
}

func (f *Factory) NewConnection(cfg peer.ConnConfig) (peer.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	c := &Conn{Config: cfg, FailRemote: f.FailRemote, Tracks: map[webrtc.RTPCodecType]webrtc.TrackLocal{}}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *Factory) Conns() []*Conn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Conn(nil), f.conns...)
}

func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// Conn records what the manager did to it.
type Conn struct {
	Config     peer.ConnConfig
	FailRemote bool
	FailAdd    bool

	mu         sync.Mutex
	remote     *string
	remoteType consult.SignalType
	offers     int
	answers    int
	applied    []consult.Candidate
	Tracks     map[webrtc.RTPCodecType]webrtc.TrackLocal
	closed     bool

	onCandidate func(consult.Candidate)
	onState     func(peer.ConnState)
	onTrack     func(peer.RemoteTrack)
}

func (c *Conn) SetRemoteDescription(t consult.SignalType, sdp string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailRemote {
		return ErrInjected
	}
	c.remote = &sdp
	c.remoteType = t
	return nil
}

func (c *Conn) HasRemoteDescription() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote != nil
}

func (c *Conn) CreateOffer() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offers++
	return fmt.Sprintf("offer-%d", c.offers), nil
}

func (c *Conn) CreateAnswer() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remote == nil {
		return "", errors.New("no remote offer")
	}
	c.answers++
	return fmt.Sprintf("answer-%d", c.answers), nil
}

func (c *Conn) AddICECandidate(cand consult.Candidate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailAdd {
		return ErrInjected
	}
	c.applied = append(c.applied, cand)
	return nil
}

func (c *Conn) AddTrack(kind webrtc.RTPCodecType, track webrtc.TrackLocal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Tracks[kind] = track
	return nil
}

func (c *Conn) ReplaceTrack(kind webrtc.RTPCodecType, track webrtc.TrackLocal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Tracks[kind]; !ok {
		return errors.New("no sender")
	}
	c.Tracks[kind] = track
	return nil
}

func (c *Conn) Track(kind webrtc.RTPCodecType) webrtc.TrackLocal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Tracks[kind]
}

func (c *Conn) OnICECandidate(fn func(consult.Candidate)) {
	c.mu.Lock()
	c.onCandidate = fn
	c.mu.Unlock()
}

func (c *Conn) OnStateChange(fn func(peer.ConnState)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

func (c *Conn) OnTrack(fn func(peer.RemoteTrack)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Applied() []consult.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]consult.Candidate(nil), c.applied...)
}

func (c *Conn) RemoteType() consult.SignalType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteType
}

// EmitCandidate simulates local ICE gathering.
func (c *Conn) EmitCandidate(cand consult.Candidate) {
	c.mu.Lock()
	fn := c.onCandidate
	c.mu.Unlock()
	if fn != nil {
		fn(cand)
	}
}

func (c *Conn) EmitState(s peer.ConnState) {
	c.mu.Lock()
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (c *Conn) EmitTrack(t peer.RemoteTrack) {
	c.mu.Lock()
	fn := c.onTrack
	c.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

// Signaler records sent envelopes.
type Signaler struct {
	mu   sync.Mutex
	sent []consult.Envelope
	Err  error
}

func (s *Signaler) Send(env consult.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, env)
	return nil
}

func (s *Signaler) Sent() []consult.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]consult.Envelope(nil), s.sent...)
}

// SentTo filters the recorded envelopes by recipient.
func (s *Signaler) SentTo(id string) []consult.Envelope {
	var out []consult.Envelope
	for _, env := range s.Sent() {
		if env.To == id {
			out = append(out, env)
		}
	}
	return out
}

// Candidate builds a throwaway candidate whose line is the given label.
func Candidate(label string) consult.Candidate {
	return consult.Candidate{Candidate: label}
}
