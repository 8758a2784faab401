package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/config"
	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/directory"
	"github.com/Andiveli/HospitalFront-sub000/internal/logging"
	"github.com/Andiveli/HospitalFront-sub000/internal/media"
	"github.com/Andiveli/HospitalFront-sub000/internal/peer"
	"github.com/Andiveli/HospitalFront-sub000/internal/session"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling"
	"github.com/Andiveli/HospitalFront-sub000/internal/timer"
	"github.com/Andiveli/HospitalFront-sub000/internal/ui"
	"github.com/pion/webrtc/v4"
)

// clientOptions collects the persistent client flags.
func clientOptions() config.Options {
	return config.Options{
		Domain:       flagDomain,
		APIBaseURL:   flagAPIURL,
		SignalingURL: flagSignalingURL,
		AccessToken:  flagToken,
		STUNServer:   flagSTUN,
		TURNServer:   flagTURN,
		TURNUser:     flagTURNUser,
		TURNPass:     flagTURNPass,
		ForceRelay:   flagRelay,
		Codec:        flagCodec,
		Synthetic:    flagSynthetic,
	}
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

func newDirectory(cfg *config.Config) *directory.Client {
	return directory.New(cfg.APIBaseURL, cfg.AccessToken, cfg.RequestTimeout, logging.For("directory"))
}

// newDevices picks generated or captured media. Captured media encodes with
// its own codecs, which must then be registered on the pion API.
func newDevices(cfg *config.Config) (media.Devices, func(*webrtc.MediaEngine) error, error) {
	if cfg.SyntheticMedia {
		return media.NewSynthetic(), nil, nil
	}
	capture, err := media.NewCapture(logging.For("media"))
	if err != nil {
		if errors.Is(err, media.ErrUnsupported) {
			return nil, nil, fmt.Errorf("%w (run with --synthetic)", err)
		}
		return nil, nil, fmt.Errorf("open capture devices: %w", err)
	}
	return capture, capture.RegisterCodecs, nil
}

// NewOrchestrator wires a session orchestrator from cfg.
func NewOrchestrator(cfg *config.Config) (*session.Orchestrator, error) {
	devices, registerCodecs, err := newDevices(cfg)
	if err != nil {
		return nil, err
	}
	api, err := peer.NewAPI(registerCodecs)
	if err != nil {
		return nil, fmt.Errorf("webrtc setup: %w", err)
	}

	dialer := &signaling.WSDialer{
		URL:    cfg.SignalingURL,
		Codec:  signaling.SelectCodec(cfg.Codec),
		Logger: logging.For("signaling"),
	}
	deps := session.Deps{
		Directory: newDirectory(cfg),
		Devices:   devices,
		Dialer:    dialer,
		Peers:     peer.NewPionFactory(api),
		Logger:    logging.For("session"),
	}

	policy := timer.Policy{
		MaxDuration:        cfg.MaxDuration,
		DoctorWarningLead:  cfg.DoctorWarningLead,
		PatientWarningLead: cfg.PatientWarningLead,
	}
	opts := session.Options{
		Name:              flagName,
		Policy:            policy,
		Constraints:       media.DefaultConstraints(),
		GraceDelay:        cfg.GraceDelay,
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectBackoff:  cfg.ReconnectBackoff,
		ForceRelay:        cfg.ForceRelay,
		RelayServers:      cfg.RelayServers(),
	}
	return session.New(deps, opts), nil
}

// connect runs start behind a spinner.
func connect(ctx context.Context, start func(context.Context) (consult.Session, error)) (consult.Session, error) {
	var sess consult.Session
	err := ui.Step("Connecting to consultation...", "Connected", func() error {
		var err error
		sess, err = start(ctx)
		return err
	})
	return sess, err
}

// attendance records every participant seen and every chat message sent
// during a call. The session forgets both once it is left.
type attendance struct {
	mu    sync.Mutex
	ids   map[string]bool
	chats int
}

func (a *attendance) chat(m *consult.ChatMessage) {
	if m == nil || m.Type == consult.ChatSystem {
		return
	}
	a.mu.Lock()
	a.chats++
	a.mu.Unlock()
}

func (a *attendance) add(id string) {
	if id == "" {
		return
	}
	a.mu.Lock()
	a.ids[id] = true
	a.mu.Unlock()
}

func (a *attendance) totals() (participants, chats int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.ids), a.chats
}

// runCall shows the call screen and the summary once the call is over.
func runCall(ctx context.Context, orch *session.Orchestrator, sess consult.Session) error {
	events, unsubscribe := orch.Subscribe(256)
	defer unsubscribe()

	seen := &attendance{ids: map[string]bool{}}
	for _, p := range orch.Participants() {
		seen.add(p.ID)
	}
	done := make(chan struct{})
	defer close(done)

	title := fmt.Sprintf("Consultation %s · %s", sess.AppointmentID, sess.LocalRole.Label())
	started := time.Now()
	reason, err := ui.RunCall(ctx, title, orch, tap(events, done, seen))
	if err != nil {
		return err
	}

	participants, chats := seen.totals()
	fmt.Println()
	ui.RenderSessionSummary(ui.SessionSummary{
		RoomID:       sess.RoomID,
		Role:         sess.LocalRole,
		Duration:     time.Since(started),
		Participants: participants,
		Messages:     chats,
		Reason:       reason,
	})
	if lastErr := orch.LastError(); consult.IsFatal(lastErr) && !errors.Is(lastErr, consult.ErrSessionExpired) {
		return lastErr
	}
	return nil
}

// tap forwards events to the call screen, recording joins on the way.
func tap(in <-chan session.Event, done <-chan struct{}, seen *attendance) <-chan session.Event {
	out := make(chan session.Event, cap(in))
	go func() {
		defer close(out)
		for ev := range in {
			switch ev.Kind {
			case session.EventParticipantJoined:
				seen.add(ev.ParticipantID)
			case session.EventChatMessage:
				seen.chat(ev.Chat)
			}
			select {
			case out <- ev:
			case <-done:
				return
			}
		}
	}()
	return out
}
