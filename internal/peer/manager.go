// Package peer owns one WebRTC connection per remote participant of a
// session, applies negotiation signals to them and buffers early candidates.
package peer

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/pion/webrtc/v4"
)

type stateHandler struct {
	id int
	fn func(participantID string, state ConnState)
}

type trackHandler struct {
	id int
	fn func(participantID string, track RemoteTrack)
}

// Manager keeps the connection map for one session. Negotiation calls are
// serialized so buffered candidates for a participant are always applied
// before newer ones.
type Manager struct {
	factory  Factory
	signaler Signaler
	logger   *slog.Logger
	pending  *CandidateBuffer

	negotiate sync.Mutex

	mu       sync.Mutex
	conns    map[string]Conn
	cfg      ConnConfig
	outbound map[webrtc.RTPCodecType]webrtc.TrackLocal
	kinds    []webrtc.RTPCodecType
	nextID   int
	onState  []stateHandler
	onTrack  []trackHandler
}

func NewManager(factory Factory, signaler Signaler, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default().With("component", "peer")
	}
	return &Manager{
		factory:  factory,
		signaler: signaler,
		logger:   logger,
		pending:  NewCandidateBuffer(),
		conns:    map[string]Conn{},
		outbound: map[webrtc.RTPCodecType]webrtc.TrackLocal{},
	}
}

// Configure sets the relay servers and policy used for connections created
// from now on.
func (m *Manager) Configure(cfg ConnConfig) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// SetSignaler swaps the outbound signaling path, used after a reconnect.
func (m *Manager) SetSignaler(s Signaler) {
	m.mu.Lock()
	m.signaler = s
	m.mu.Unlock()
}

// SetLocalTracks records the tracks every new connection starts sending.
// A nil track still reserves a sender of its kind.
func (m *Manager) SetLocalTracks(tracks map[webrtc.RTPCodecType]webrtc.TrackLocal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbound = map[webrtc.RTPCodecType]webrtc.TrackLocal{}
	m.kinds = m.kinds[:0]
	for kind, t := range tracks {
		m.outbound[kind] = t
		m.kinds = append(m.kinds, kind)
	}
	sort.Slice(m.kinds, func(i, j int) bool { return m.kinds[i] < m.kinds[j] })
}

// Ensure returns the connection for participantID, creating it on first use.
func (m *Manager) Ensure(participantID string) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureLocked(participantID)
}

func (m *Manager) ensureLocked(participantID string) (Conn, error) {
	if conn, ok := m.conns[participantID]; ok {
		return conn, nil
	}

	conn, err := m.factory.NewConnection(m.cfg)
	if err != nil {
		return nil, consult.PeerError("create connection", participantID, err)
	}
	for _, kind := range m.kinds {
		if err := conn.AddTrack(kind, m.outbound[kind]); err != nil {
			conn.Close()
			return nil, consult.PeerError("add "+kind.String()+" track", participantID, err)
		}
	}

	conn.OnICECandidate(func(c consult.Candidate) {
		cand := c
		m.send(consult.Envelope{To: participantID, Type: consult.SignalCandidate, Candidate: &cand})
	})
	conn.OnStateChange(func(state ConnState) {
		m.logger.Debug("peer state", "participant", participantID, "state", state)
		for _, h := range m.stateHandlers() {
			h.fn(participantID, state)
		}
	})
	conn.OnTrack(func(track RemoteTrack) {
		m.logger.Debug("remote track", "participant", participantID, "kind", track.Kind.String())
		for _, h := range m.trackHandlers() {
			h.fn(participantID, track)
		}
	})

	m.conns[participantID] = conn
	m.logger.Debug("peer connection created", "participant", participantID)
	return conn, nil
}

// Offer creates a local offer for participantID and sends it to them.
func (m *Manager) Offer(ctx context.Context, participantID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.negotiate.Lock()
	defer m.negotiate.Unlock()

	conn, err := m.Ensure(participantID)
	if err != nil {
		return err
	}
	sdp, err := conn.CreateOffer()
	if err != nil {
		m.teardown(participantID, conn)
		return consult.PeerError("create offer", participantID, err)
	}
	return m.send(consult.Envelope{To: participantID, Type: consult.SignalOffer, SDP: sdp})
}

// ApplyOffer answers an offer from participantID. The answer goes to that
// participant only, after which any candidates buffered for it are applied.
func (m *Manager) ApplyOffer(ctx context.Context, participantID, sdp string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.negotiate.Lock()
	defer m.negotiate.Unlock()

	conn, err := m.Ensure(participantID)
	if err != nil {
		return err
	}
	if err := conn.SetRemoteDescription(consult.SignalOffer, sdp); err != nil {
		m.teardown(participantID, conn)
		return consult.PeerError("set remote offer", participantID, err)
	}
	answer, err := conn.CreateAnswer()
	if err != nil {
		m.teardown(participantID, conn)
		return consult.PeerError("create answer", participantID, err)
	}
	sendErr := m.send(consult.Envelope{To: participantID, Type: consult.SignalAnswer, SDP: answer})
	if err := m.drain(participantID, conn); err != nil {
		return err
	}
	return sendErr
}

// ApplyAnswer completes an offer previously sent to participantID. An answer
// with no matching connection is ignored.
func (m *Manager) ApplyAnswer(participantID, sdp string) error {
	m.negotiate.Lock()
	defer m.negotiate.Unlock()

	conn, ok := m.get(participantID)
	if !ok {
		m.logger.Warn("answer without offer ignored", "participant", participantID)
		return nil
	}
	if conn.HasRemoteDescription() {
		m.logger.Warn("duplicate answer ignored", "participant", participantID)
		return nil
	}
	if err := conn.SetRemoteDescription(consult.SignalAnswer, sdp); err != nil {
		m.teardown(participantID, conn)
		return consult.PeerError("set remote answer", participantID, err)
	}
	return m.drain(participantID, conn)
}

// ApplyCandidate adds c to the connection for participantID, or queues it
// until that connection has a remote description.
func (m *Manager) ApplyCandidate(participantID string, c consult.Candidate) error {
	m.negotiate.Lock()
	defer m.negotiate.Unlock()

	conn, ok := m.get(participantID)
	if !ok {
		m.logger.Debug("candidate queued for unknown participant", "participant", participantID)
		m.pending.Push(participantID, c)
		return nil
	}
	if !conn.HasRemoteDescription() {
		m.pending.Push(participantID, c)
		return nil
	}
	if err := conn.AddICECandidate(c); err != nil {
		m.teardown(participantID, conn)
		return consult.PeerError("add candidate", participantID, err)
	}
	return nil
}

// Apply routes one envelope by type.
func (m *Manager) Apply(ctx context.Context, env consult.Envelope) error {
	switch env.Type {
	case consult.SignalOffer:
		return m.ApplyOffer(ctx, env.From, env.SDP)
	case consult.SignalAnswer:
		return m.ApplyAnswer(env.From, env.SDP)
	case consult.SignalCandidate:
		if env.Candidate == nil {
			return nil
		}
		return m.ApplyCandidate(env.From, *env.Candidate)
	default:
		m.logger.Warn("unknown signal type", "participant", env.From, "type", env.Type)
		return nil
	}
}

func (m *Manager) drain(participantID string, conn Conn) error {
	for _, c := range m.pending.Drain(participantID) {
		if err := conn.AddICECandidate(c); err != nil {
			m.teardown(participantID, conn)
			return consult.PeerError("add buffered candidate", participantID, err)
		}
	}
	return nil
}

// ReplaceOutboundTrack swaps the sender track of kind on every connection.
// A nil track stops sending without renegotiating.
func (m *Manager) ReplaceOutboundTrack(kind webrtc.RTPCodecType, track webrtc.TrackLocal) error {
	m.mu.Lock()
	if _, ok := m.outbound[kind]; !ok {
		m.kinds = append(m.kinds, kind)
	}
	m.outbound[kind] = track
	conns := make(map[string]Conn, len(m.conns))
	for id, c := range m.conns {
		conns[id] = c
	}
	m.mu.Unlock()

	var errs []error
	for id, conn := range conns {
		if err := conn.ReplaceTrack(kind, track); err != nil {
			m.logger.Warn("replace track failed", "participant", id, "kind", kind.String(), "err", err)
			errs = append(errs, consult.PeerError("replace "+kind.String()+" track", id, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) ReplaceOutboundVideoTrack(track webrtc.TrackLocal) error {
	return m.ReplaceOutboundTrack(webrtc.RTPCodecTypeVideo, track)
}

// Close tears down the connection to participantID and drops its buffered
// candidates.
func (m *Manager) Close(participantID string) {
	m.mu.Lock()
	conn, ok := m.conns[participantID]
	delete(m.conns, participantID)
	m.mu.Unlock()

	m.pending.Discard(participantID)
	if ok {
		if err := conn.Close(); err != nil {
			m.logger.Debug("close peer connection", "participant", participantID, "err", err)
		}
	}
}

// CloseAll closes every connection. Safe to call more than once.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	conns := m.conns
	m.conns = map[string]Conn{}
	m.mu.Unlock()

	m.pending.Reset()
	for id, conn := range conns {
		if err := conn.Close(); err != nil {
			m.logger.Debug("close peer connection", "participant", id, "err", err)
		}
	}
}

// teardown drops a connection whose negotiation broke and reports it to the
// state handlers as failed. Called with negotiate held.
func (m *Manager) teardown(participantID string, conn Conn) {
	m.mu.Lock()
	if cur, ok := m.conns[participantID]; ok && cur == conn {
		delete(m.conns, participantID)
	}
	m.mu.Unlock()
	m.pending.Discard(participantID)
	conn.Close()
	m.logger.Warn("peer connection torn down", "participant", participantID)
	for _, h := range m.stateHandlers() {
		h.fn(participantID, StateFailed)
	}
}

func (m *Manager) Has(participantID string) bool {
	_, ok := m.get(participantID)
	return ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Pending reports how many candidates are queued for participantID.
func (m *Manager) Pending(participantID string) int {
	return m.pending.Len(participantID)
}

// OnStateChange registers fn for connection state changes and returns a
// func that unregisters it.
func (m *Manager) OnStateChange(fn func(participantID string, state ConnState)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.onState = append(m.onState, stateHandler{id: id, fn: fn})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, h := range m.onState {
			if h.id == id {
				m.onState = append(m.onState[:i:i], m.onState[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) OnRemoteTrack(fn func(participantID string, track RemoteTrack)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.onTrack = append(m.onTrack, trackHandler{id: id, fn: fn})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, h := range m.onTrack {
			if h.id == id {
				m.onTrack = append(m.onTrack[:i:i], m.onTrack[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) get(participantID string) (Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[participantID]
	return conn, ok
}

func (m *Manager) stateHandlers() []stateHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateHandler(nil), m.onState...)
}

func (m *Manager) trackHandlers() []trackHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]trackHandler(nil), m.onTrack...)
}

// send is never called with mu held.
func (m *Manager) send(env consult.Envelope) error {
	m.mu.Lock()
	s := m.signaler
	m.mu.Unlock()
	if s == nil {
		return consult.NewError(consult.ErrNotConnected, "send "+string(env.Type), nil)
	}
	if err := s.Send(env); err != nil {
		m.logger.Warn("signal send failed", "participant", env.To, "type", env.Type, "err", err)
		return err
	}
	return nil
}
