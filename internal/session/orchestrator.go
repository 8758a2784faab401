// Package session turns an appointment into a live consultation: it owns the
// session state machine and drives the directory, media, signaling, peer
// connections and the session timer.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/guest"
	"github.com/Andiveli/HospitalFront-sub000/internal/media"
	"github.com/Andiveli/HospitalFront-sub000/internal/participants"
	"github.com/Andiveli/HospitalFront-sub000/internal/peer"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling"
	"github.com/Andiveli/HospitalFront-sub000/internal/timer"
	"github.com/benbjohnson/clock"
)

// Directory is the appointment backend.
type Directory interface {
	guest.Directory
	CreateRoom(ctx context.Context, appointmentID string, cfg consult.RoomConfig) (*consult.RoomCredentials, error)
	JoinRoom(ctx context.Context, appointmentID, guestCode string) (*consult.RoomCredentials, error)
	EndRoom(ctx context.Context, roomID string) error
}

// Dialer opens the signaling transport of a room.
type Dialer interface {
	Dial(ctx context.Context, roomID, token string) (signaling.Transport, error)
}

type Deps struct {
	Directory Directory
	Devices   media.Devices
	Dialer    Dialer
	Peers     peer.Factory
	Clock     clock.Clock
	Logger    *slog.Logger
}

type Options struct {
	// Name is used when the backend does not return a display name.
	Name              string
	Policy            timer.Policy
	Constraints       media.Constraints
	GraceDelay        time.Duration
	ReconnectAttempts int
	ReconnectBackoff  time.Duration
	EndRoomTimeout    time.Duration
	ForceRelay        bool
	// RelayServers are used when the credentials carry none.
	RelayServers []consult.RelayServer
}

func DefaultOptions() Options {
	return Options{
		Policy:            timer.DefaultPolicy(),
		Constraints:       media.DefaultConstraints(),
		GraceDelay:        3 * time.Second,
		ReconnectAttempts: 3,
		ReconnectBackoff:  2 * time.Second,
		EndRoomTimeout:    5 * time.Second,
	}
}

// Orchestrator runs one consultation at a time. All methods are safe for
// concurrent use.
type Orchestrator struct {
	deps   Deps
	opts   Options
	clock  clock.Clock
	logger *slog.Logger
	guests *guest.Validator
	peers  *peer.Manager
	bus    *bus

	mu       sync.Mutex
	gen      uint64
	state    State
	ended    bool
	session  *consult.Session
	registry *participants.Registry
	messages []consult.ChatMessage
	lastErr  error
	stream   *media.Stream
	display  *media.Stream
	client   *signaling.Client
	unwire   []func()
	timer    *timer.Timer
	runCtx   context.Context
	cancel   context.CancelFunc
	grace    *clock.Timer
	// offered holds the participants this side negotiates with as offerer,
	// mapped to how many times the connection was restarted.
	offered map[string]int
}

func New(deps Deps, opts Options) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default().With("component", "session")
	}
	def := DefaultOptions()
	if opts.Policy == (timer.Policy{}) {
		opts.Policy = def.Policy
	}
	if opts.Constraints == (media.Constraints{}) {
		opts.Constraints = def.Constraints
	}
	if opts.GraceDelay <= 0 {
		opts.GraceDelay = def.GraceDelay
	}
	if opts.ReconnectBackoff <= 0 {
		opts.ReconnectBackoff = def.ReconnectBackoff
	}
	if opts.EndRoomTimeout <= 0 {
		opts.EndRoomTimeout = def.EndRoomTimeout
	}

	o := &Orchestrator{
		deps:     deps,
		opts:     opts,
		clock:    deps.Clock,
		logger:   deps.Logger,
		guests:   guest.NewValidator(deps.Directory, deps.Logger.With("component", "guest")),
		peers:    peer.NewManager(deps.Peers, nil, deps.Logger.With("component", "peer")),
		bus:      newBus(deps.Logger),
		state:    StateDisconnected,
		registry: participants.NewRegistry(deps.Clock),
	}
	o.peers.OnStateChange(o.onPeerState)
	return o
}

// CreateRoom opens a room for appointmentID as its host.
func (o *Orchestrator) CreateRoom(ctx context.Context, appointmentID string, cfg consult.RoomConfig) (consult.Session, error) {
	gen, err := o.begin("create room")
	if err != nil {
		return consult.Session{}, err
	}

	creds, err := o.deps.Directory.CreateRoom(ctx, appointmentID, cfg)
	if err != nil {
		return consult.Session{}, o.abort(gen, consult.NewError(consult.ErrRoomCreation, "create room", err))
	}
	if creds.AppointmentID == "" {
		creds.AppointmentID = appointmentID
	}
	return o.establish(ctx, gen, creds, "", cfg.MaxDuration(), true)
}

// JoinRoom joins the room of appointmentID. With a guest code the code is
// validated first, before the session leaves the disconnected state.
func (o *Orchestrator) JoinRoom(ctx context.Context, appointmentID, guestCode string) (consult.Session, error) {
	if guestCode != "" {
		if st := o.State(); st != StateDisconnected {
			return consult.Session{}, consult.NewError(consult.ErrAlreadyActive, "join room", nil)
		}
		v, err := o.guests.Validate(ctx, guestCode)
		if err != nil {
			o.recordError(err)
			return consult.Session{}, err
		}
		if appointmentID == "" && v.RoomInfo != nil {
			appointmentID = v.RoomInfo.AppointmentID
		}
	}

	gen, err := o.begin("join room")
	if err != nil {
		return consult.Session{}, err
	}

	creds, err := o.deps.Directory.JoinRoom(ctx, appointmentID, guestCode)
	if err != nil {
		return consult.Session{}, o.abort(gen, consult.NewError(consult.ErrRoomCreation, "join room", err))
	}
	if creds.AppointmentID == "" {
		creds.AppointmentID = appointmentID
	}
	return o.establish(ctx, gen, creds, guestCode, 0, false)
}

// begin moves a disconnected orchestrator to connecting and returns the
// generation of the new attempt.
func (o *Orchestrator) begin(op string) (uint64, error) {
	o.mu.Lock()
	if o.state != StateDisconnected {
		o.mu.Unlock()
		return 0, consult.NewError(consult.ErrAlreadyActive, op, nil)
	}
	o.gen++
	gen := o.gen
	o.state = StateConnecting
	o.ended = false
	o.lastErr = nil
	o.mu.Unlock()

	o.publishState(StateConnecting)
	return gen, nil
}

// abort fails an in-flight create or join. If a leave raced the attempt the
// caller gets ErrSessionAborted instead.
func (o *Orchestrator) abort(gen uint64, err error) error {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return consult.NewError(consult.ErrSessionAborted, "start session", err)
	}
	o.state = StateDisconnected
	o.lastErr = err
	o.mu.Unlock()

	o.logger.Error("session start failed", "err", err)
	o.publishState(StateDisconnected)
	o.publish(Event{Kind: EventError, Err: err})
	return err
}

func (o *Orchestrator) establish(ctx context.Context, gen uint64, creds *consult.RoomCredentials, guestCode string, limit time.Duration, host bool) (consult.Session, error) {
	if !o.current(gen) {
		if host {
			o.endRoom(ctx, creds.RoomID)
		}
		return consult.Session{}, consult.NewError(consult.ErrSessionAborted, "start session", nil)
	}
	now := o.clock.Now()
	if !creds.ExpiresAt.IsZero() && !creds.ExpiresAt.After(now) {
		if host {
			o.endRoom(ctx, creds.RoomID)
		}
		return consult.Session{}, o.abort(gen, consult.WrapError(consult.ErrSessionExpired, "start session", nil, "credentials already expired"))
	}

	stream, err := o.deps.Devices.AcquireStream(ctx, o.opts.Constraints)
	if err != nil {
		if host {
			o.endRoom(ctx, creds.RoomID)
		}
		return consult.Session{}, o.abort(gen, consult.NewError(consult.ErrRoomCreation, "acquire media", err))
	}

	relays := creds.RelayServers
	if len(relays) == 0 {
		relays = o.opts.RelayServers
	}
	name := creds.DisplayName
	if name == "" {
		name = o.opts.Name
	}
	if name == "" {
		name = creds.Role.Label()
	}
	sess := &consult.Session{
		RoomID:             creds.RoomID,
		AppointmentID:      creds.AppointmentID,
		SessionToken:       creds.SessionToken,
		LocalParticipantID: creds.ParticipantID,
		LocalRole:          creds.Role,
		LocalName:          name,
		RelayServers:       relays,
		CreatedAt:          now,
		ExpiresAt:          creds.ExpiresAt,
		GuestCode:          guestCode,
	}

	transport, err := o.deps.Dialer.Dial(ctx, sess.RoomID, sess.SessionToken)
	if err != nil {
		stream.Stop()
		if host {
			o.endRoom(ctx, creds.RoomID)
		}
		return consult.Session{}, o.abort(gen, consult.NewError(consult.ErrRoomCreation, "dial signaling", err))
	}
	client := o.newClient(transport, sess)

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		client.Close()
		stream.Stop()
		if host {
			o.endRoom(ctx, creds.RoomID)
		}
		return consult.Session{}, consult.NewError(consult.ErrSessionAborted, "start session", nil)
	}

	local := consult.Participant{
		ID:          sess.LocalParticipantID,
		DisplayName: sess.LocalName,
		Role:        sess.LocalRole,
		Media:       consult.MediaState{Audio: stream.Audio() != nil, Video: stream.Video() != nil},
		Status:      consult.StatusConnected,
		JoinedAt:    now,
		Local:       true,
	}
	o.registry.Clear()
	o.registry.Upsert(local)
	for _, p := range creds.Participants {
		if p.ID == "" || p.ID == local.ID {
			continue
		}
		p.Local = false
		if p.Status == "" {
			p.Status = consult.StatusConnected
		}
		o.registry.Upsert(p)
	}
	remote := o.registry.Remote()

	o.peers.Configure(peer.ConnConfig{RelayServers: relays, ForceRelay: o.opts.ForceRelay})
	o.peers.SetLocalTracks(stream.Tracks())
	o.peers.SetSignaler(client)

	runCtx, cancel := context.WithCancel(context.Background())
	tm := timer.New(o.clock, o.timerConfig(sess, limit, now))

	o.session = sess
	o.messages = nil
	o.stream = stream
	o.client = client
	o.unwire = o.wire(runCtx, gen, client)
	o.timer = tm
	o.runCtx = runCtx
	o.cancel = cancel
	o.offered = map[string]int{}
	o.state = StateConnected
	snapshot := *sess
	o.mu.Unlock()

	go o.runSignaling(runCtx, gen, client)
	go o.pumpTimer(runCtx, gen, tm)
	tm.Start()

	o.logger.Info("session connected", "room", sess.RoomID, "participant", sess.LocalParticipantID, "role", sess.LocalRole)
	o.publishState(StateConnected)

	if err := client.SendMediaState(local.Media); err != nil {
		o.logger.Warn("announce media state", "err", err)
	}
	// The newcomer offers to everyone already present; existing members wait
	// for its offer, so two sides never offer to each other at once. Members
	// missing from the credentials arrive with the relay's roster frame.
	o.offerTo(ctx, gen, remote)
	return snapshot, nil
}

func (o *Orchestrator) timerConfig(sess *consult.Session, limit time.Duration, now time.Time) timer.Config {
	if limit <= 0 {
		limit = o.opts.Policy.MaxDuration
	}
	if !sess.ExpiresAt.IsZero() {
		if until := sess.ExpiresAt.Sub(now); limit <= 0 || until < limit {
			limit = until
		}
	}
	return o.opts.Policy.ConfigFor(sess.LocalRole, limit)
}

func (o *Orchestrator) newClient(t signaling.Transport, sess *consult.Session) *signaling.Client {
	return signaling.NewClient(t, signaling.ClientConfig{
		LocalID: sess.LocalParticipantID,
		RoomID:  sess.RoomID,
		Clock:   o.clock,
		Logger:  o.logger.With("component", "signaling"),
	})
}

// LeaveRoom tears the session down. It is safe to call from any state,
// including while a create or join is in flight, and more than once.
func (o *Orchestrator) LeaveRoom(ctx context.Context) error {
	o.mu.Lock()
	wasActive := o.state != StateDisconnected
	o.gen++
	sess := o.session
	client := o.client
	stream := o.stream
	display := o.display
	tm := o.timer
	cancel := o.cancel
	grace := o.grace
	unwire := o.unwire

	o.session = nil
	o.client = nil
	o.stream = nil
	o.display = nil
	o.timer = nil
	o.runCtx = nil
	o.cancel = nil
	o.offered = nil
	o.grace = nil
	o.unwire = nil
	o.messages = nil
	o.registry.Clear()
	o.state = StateDisconnected
	o.mu.Unlock()

	if grace != nil {
		grace.Stop()
	}
	if cancel != nil {
		cancel()
	}
	for _, fn := range unwire {
		fn()
	}
	if tm != nil {
		tm.Stop()
	}
	o.peers.CloseAll()
	o.peers.SetSignaler(nil)
	if display != nil {
		display.Stop()
	}
	if stream != nil {
		stream.Stop()
	}
	if client != nil {
		if err := client.Close(); err != nil {
			o.logger.Debug("close signaling", "err", err)
		}
	}
	if sess != nil {
		o.endRoom(ctx, sess.RoomID)
		o.logger.Info("left session", "room", sess.RoomID)
	}
	if wasActive {
		o.publishState(StateDisconnected)
	}
	return nil
}

// endRoom notifies the backend. Failures are logged and never returned.
func (o *Orchestrator) endRoom(ctx context.Context, roomID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.EndRoomTimeout)
	defer cancel()
	if err := o.deps.Directory.EndRoom(ctx, roomID); err != nil {
		o.logger.Warn("end room failed", "room", roomID, "err", err)
	}
}

func (o *Orchestrator) publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = o.clock.Now()
	}
	o.bus.publish(ev)
}

func (o *Orchestrator) publishState(st State) {
	o.publish(Event{Kind: EventConnectionStateChanged, State: st})
}

// Subscribe returns a channel of events and a func that closes it.
func (o *Orchestrator) Subscribe(buffer int) (<-chan Event, func()) {
	return o.bus.subscribe(buffer)
}

// OnRemoteTrack registers fn for inbound media tracks.
func (o *Orchestrator) OnRemoteTrack(fn func(participantID string, track peer.RemoteTrack)) func() {
	return o.peers.OnRemoteTrack(fn)
}
