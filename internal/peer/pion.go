package peer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/utils"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

var errNoSender = errors.New("no sender for track kind")

// NewAPI builds the pion API shared by every connection of the process.
// registerCodecs may be nil, in which case the default codec set is used.
func NewAPI(registerCodecs func(*webrtc.MediaEngine) error) (*webrtc.API, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if registerCodecs != nil {
		if err := registerCodecs(mediaEngine); err != nil {
			return nil, fmt.Errorf("register codecs: %w", err)
		}
	} else if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register default codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	// Relay paths can drop for a few seconds during failover; keep the
	// connection alive long enough for ICE to recover.
	se := webrtc.SettingEngine{}
	se.SetICETimeouts(30*time.Second, 120*time.Second, 2*time.Second)

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(registry),
		webrtc.WithSettingEngine(se),
	), nil
}

// PionFactory creates real peer connections.
type PionFactory struct {
	api *webrtc.API
}

func NewPionFactory(api *webrtc.API) *PionFactory {
	return &PionFactory{api: api}
}

func (f *PionFactory) NewConnection(cfg ConnConfig) (Conn, error) {
	var iceServers []webrtc.ICEServer
	hasTURN := false
	for _, s := range cfg.RelayServers {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
		hasTURN = hasTURN || s.IsTURN()
	}

	policy := webrtc.ICETransportPolicyAll
	if hasTURN && (cfg.ForceRelay || utils.ShouldForceRelay()) {
		policy = webrtc.ICETransportPolicyRelay
	}

	pc, err := f.api.NewPeerConnection(webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, err
	}
	return &pionConn{pc: pc, senders: map[webrtc.RTPCodecType]*webrtc.RTPSender{}}, nil
}

type pionConn struct {
	pc *webrtc.PeerConnection

	mu      sync.Mutex
	senders map[webrtc.RTPCodecType]*webrtc.RTPSender
}

func (c *pionConn) SetRemoteDescription(t consult.SignalType, sdp string) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(string(t)),
		SDP:  sdp,
	})
}

func (c *pionConn) HasRemoteDescription() bool {
	return c.pc.RemoteDescription() != nil
}

func (c *pionConn) CreateOffer() (string, error) {
	// An offer with no m-lines would leave nothing to negotiate.
	if len(c.pc.GetTransceivers()) == 0 {
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
			if _, err := c.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				return "", err
			}
		}
	}
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return "", err
	}
	return c.pc.LocalDescription().SDP, nil
}

func (c *pionConn) CreateAnswer() (string, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return "", err
	}
	return c.pc.LocalDescription().SDP, nil
}

func (c *pionConn) AddICECandidate(cand consult.Candidate) error {
	return c.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:        cand.Candidate,
		SDPMid:           cand.SDPMid,
		SDPMLineIndex:    cand.SDPMLineIndex,
		UsernameFragment: cand.UsernameFragment,
	})
}

func (c *pionConn) AddTrack(kind webrtc.RTPCodecType, track webrtc.TrackLocal) error {
	var sender *webrtc.RTPSender
	if track != nil {
		s, err := c.pc.AddTrack(track)
		if err != nil {
			return err
		}
		sender = s
	} else {
		tr, err := c.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionSendrecv,
		})
		if err != nil {
			return err
		}
		sender = tr.Sender()
	}

	c.mu.Lock()
	c.senders[kind] = sender
	c.mu.Unlock()

	// RTCP has to be read for interceptors such as NACK to work.
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

func (c *pionConn) ReplaceTrack(kind webrtc.RTPCodecType, track webrtc.TrackLocal) error {
	c.mu.Lock()
	sender := c.senders[kind]
	c.mu.Unlock()
	if sender == nil {
		if track == nil {
			return nil
		}
		return errNoSender
	}
	return sender.ReplaceTrack(track)
}

func (c *pionConn) OnICECandidate(fn func(consult.Candidate)) {
	c.pc.OnICECandidate(func(ice *webrtc.ICECandidate) {
		if ice == nil {
			return
		}
		init := ice.ToJSON()
		fn(consult.Candidate{
			Candidate:        init.Candidate,
			SDPMid:           init.SDPMid,
			SDPMLineIndex:    init.SDPMLineIndex,
			UsernameFragment: init.UsernameFragment,
		})
	})
}

func (c *pionConn) OnStateChange(fn func(ConnState)) {
	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		fn(connState(s))
	})
}

func (c *pionConn) OnTrack(fn func(RemoteTrack)) {
	c.pc.OnTrack(func(t *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		fn(RemoteTrack{
			ID:       t.ID(),
			StreamID: t.StreamID(),
			Kind:     t.Kind(),
			MimeType: t.Codec().MimeType,
			Track:    t,
		})
	})
}

func (c *pionConn) Close() error {
	return c.pc.Close()
}

func connState(s webrtc.PeerConnectionState) ConnState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return StateConnecting
	case webrtc.PeerConnectionStateConnected:
		return StateConnected
	case webrtc.PeerConnectionStateDisconnected:
		return StateDisconnected
	case webrtc.PeerConnectionStateFailed:
		return StateFailed
	case webrtc.PeerConnectionStateClosed:
		return StateClosed
	default:
		return StateNew
	}
}
