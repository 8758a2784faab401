package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/peer"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling"
	"github.com/Andiveli/HospitalFront-sub000/internal/timer"
	"github.com/Andiveli/HospitalFront-sub000/internal/utils"
)

// ReasonRoomEnded is used when the relay ends the room without a reason.
const ReasonRoomEnded = "room-ended"

// maxRenegotiations bounds how often a failed connection is restarted before
// it is left to the other side's next signal.
const maxRenegotiations = 3

func (o *Orchestrator) current(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen == gen && o.state != StateDisconnected
}

// wire registers the session's handlers on client and returns their
// unregister funcs. Called with o.mu held.
func (o *Orchestrator) wire(ctx context.Context, gen uint64, client *signaling.Client) []func() {
	return []func(){
		client.OnSignal(func(env consult.Envelope) {
			if !o.current(gen) {
				return
			}
			if err := o.peers.Apply(ctx, env); err != nil {
				o.peerFailure(err)
			}
		}),
		client.OnPresence(func(p signaling.Presence) { o.onPresence(gen, p) }),
		client.OnRoster(func(ps []consult.Participant) { o.onRoster(ctx, gen, ps) }),
		client.OnChat(func(m consult.ChatMessage) { o.onChat(gen, m) }),
		client.OnRoomEnded(func(reason string) {
			if reason == "" {
				reason = ReasonRoomEnded
			}
			o.endSession(gen, reason)
		}),
		client.OnError(func(msg string) {
			if !o.current(gen) {
				return
			}
			o.logger.Warn("relay error", "err", msg)
			o.publish(Event{Kind: EventError, Err: errors.New(msg)})
		}),
	}
}

func (o *Orchestrator) onPresence(gen uint64, p signaling.Presence) {
	o.mu.Lock()
	if o.gen != gen || o.state == StateDisconnected || o.session == nil {
		o.mu.Unlock()
		return
	}
	if p.Participant.ID == "" || p.Participant.ID == o.session.LocalParticipantID {
		o.mu.Unlock()
		return
	}

	var (
		ev     Event
		notice string
		closed string
	)
	switch p.Kind {
	case signaling.PresenceJoined:
		part := p.Participant
		part.Local = false
		part.Status = consult.StatusConnected
		part.Media = p.Media
		if part.JoinedAt.IsZero() {
			part.JoinedAt = o.clock.Now()
		}
		kind := EventParticipantUpdated
		if o.registry.Upsert(part) {
			kind = EventParticipantJoined
			notice = fmt.Sprintf("%s (%s) joined", displayName(part), part.Role.Label())
		}
		stored, _ := o.registry.Get(part.ID)
		ev = Event{Kind: kind, Participant: &stored, ParticipantID: part.ID}

	case signaling.PresenceLeft:
		part, ok := o.registry.Remove(p.Participant.ID)
		if !ok {
			part = p.Participant
		}
		part.Status = consult.StatusDisconnected
		closed = part.ID
		delete(o.offered, part.ID)
		notice = fmt.Sprintf("%s left", displayName(part))
		ev = Event{Kind: EventParticipantLeft, Participant: &part, ParticipantID: part.ID}

	case signaling.PresenceMedia:
		part, ok := o.registry.SetMedia(p.Participant.ID, p.Media)
		if !ok {
			o.mu.Unlock()
			o.logger.Debug("media state for unknown participant", "participant", p.Participant.ID)
			return
		}
		ev = Event{Kind: EventParticipantUpdated, Participant: &part, ParticipantID: part.ID}
	}

	var sys *consult.ChatMessage
	if notice != "" {
		m := consult.SystemMessage(notice, o.clock.Now())
		o.messages = append(o.messages, m)
		sys = &m
	}
	o.mu.Unlock()

	if closed != "" {
		o.peers.Close(closed)
	}
	o.publish(ev)
	if sys != nil {
		o.publish(Event{Kind: EventChatMessage, Chat: sys})
	}
}

// onRoster records the members that were in the room before this side
// joined and offers to each of them.
func (o *Orchestrator) onRoster(ctx context.Context, gen uint64, members []consult.Participant) {
	o.mu.Lock()
	if o.gen != gen || o.state == StateDisconnected || o.session == nil {
		o.mu.Unlock()
		return
	}
	localID := o.session.LocalParticipantID
	var (
		ids    []string
		joined []Event
	)
	for _, p := range members {
		if p.ID == "" || p.ID == localID {
			continue
		}
		p.Local = false
		if p.Status == "" {
			p.Status = consult.StatusConnected
		}
		if o.registry.Upsert(p) {
			stored, _ := o.registry.Get(p.ID)
			joined = append(joined, Event{Kind: EventParticipantJoined, Participant: &stored, ParticipantID: p.ID})
		}
		ids = append(ids, p.ID)
	}
	o.mu.Unlock()

	for _, ev := range joined {
		o.publish(ev)
	}
	o.offerTo(ctx, gen, ids)
}

// offerTo sends an offer to every id that has no connection yet and records
// this side as its offerer.
func (o *Orchestrator) offerTo(ctx context.Context, gen uint64, ids []string) {
	for _, id := range ids {
		o.mu.Lock()
		if o.gen != gen || o.state == StateDisconnected {
			o.mu.Unlock()
			return
		}
		if _, ok := o.offered[id]; ok || o.peers.Has(id) {
			o.mu.Unlock()
			continue
		}
		o.offered[id] = 0
		o.mu.Unlock()

		if err := o.peers.Offer(ctx, id); err != nil {
			o.peerFailure(err)
		}
	}
}

// renegotiate restarts a failed connection this side offered. The answering
// side never offers, so a broken pair only recovers from here.
func (o *Orchestrator) renegotiate(participantID string) {
	o.mu.Lock()
	n, ours := o.offered[participantID]
	_, present := o.registry.Get(participantID)
	gen, ctx := o.gen, o.runCtx
	if !ours || !present || ctx == nil || o.state == StateDisconnected {
		o.mu.Unlock()
		return
	}
	if n >= maxRenegotiations {
		o.mu.Unlock()
		o.logger.Warn("peer connection not restarted", "participant", participantID, "attempts", n)
		return
	}
	o.offered[participantID] = n + 1
	o.mu.Unlock()

	// state handlers may run with the negotiation lock held
	go func() {
		if !o.current(gen) {
			return
		}
		o.logger.Info("restarting peer connection", "participant", participantID, "attempt", n+1)
		o.peers.Close(participantID)
		if err := o.peers.Offer(ctx, participantID); err != nil {
			o.peerFailure(err)
		}
	}()
}

func displayName(p consult.Participant) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Role != "" {
		return p.Role.Label()
	}
	return p.ID
}

func (o *Orchestrator) onChat(gen uint64, m consult.ChatMessage) {
	o.mu.Lock()
	if o.gen != gen || o.state == StateDisconnected {
		o.mu.Unlock()
		return
	}
	if m.Type == "" {
		m.Type = consult.ChatText
	}
	o.messages = append(o.messages, m)
	o.mu.Unlock()

	o.publish(Event{Kind: EventChatMessage, Chat: &m, ParticipantID: m.FromParticipantID})
}

func (o *Orchestrator) onPeerState(participantID string, st peer.ConnState) {
	switch st {
	case peer.StateFailed:
		o.logger.Warn("peer connection failed", "participant", participantID)
		o.renegotiate(participantID)
	case peer.StateConnected:
		o.mu.Lock()
		if _, ok := o.offered[participantID]; ok {
			o.offered[participantID] = 0
		}
		o.mu.Unlock()
	}
	o.publish(Event{
		Kind:          EventConnectionStateChanged,
		State:         o.State(),
		ParticipantID: participantID,
		PeerState:     st,
	})
}

// peerFailure reports a negotiation problem with one participant. The
// session carries on.
func (o *Orchestrator) peerFailure(err error) {
	o.logger.Warn("negotiation failed", "err", err)
	o.publish(Event{Kind: EventError, Err: err})
}

// recordError keeps err as the last error and publishes it without
// touching the session.
func (o *Orchestrator) recordError(err error) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	o.logger.Error("session error", "err", err)
	o.publish(Event{Kind: EventError, Err: err})
}

// fail is the single path for session-fatal errors: the error is recorded
// and published, and the session is left after the grace delay unless the
// user leaves first.
func (o *Orchestrator) fail(gen uint64, err error) {
	o.mu.Lock()
	if o.gen != gen || o.state == StateDisconnected {
		o.mu.Unlock()
		return
	}
	o.lastErr = err
	if o.grace == nil {
		o.grace = o.clock.AfterFunc(o.opts.GraceDelay, func() {
			if o.current(gen) {
				o.LeaveRoom(context.Background())
			}
		})
	}
	o.mu.Unlock()

	o.logger.Error("session failed", "err", err, "grace", o.opts.GraceDelay)
	o.publish(Event{Kind: EventError, Err: err})
}

// endSession publishes session-ended once and leaves.
func (o *Orchestrator) endSession(gen uint64, reason string) {
	o.mu.Lock()
	if o.gen != gen || o.state == StateDisconnected || o.ended {
		o.mu.Unlock()
		return
	}
	o.ended = true
	if reason == timer.ReasonTimeExpired {
		o.lastErr = consult.WrapError(consult.ErrSessionExpired, "session", nil, reason)
	}
	o.mu.Unlock()

	o.logger.Info("session ended", "reason", reason)
	o.publish(Event{Kind: EventSessionEnded, Reason: reason})
	o.LeaveRoom(context.Background())
}

func (o *Orchestrator) pumpTimer(ctx context.Context, gen uint64, tm *timer.Timer) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-tm.Events():
			switch ev.Kind {
			case timer.EventTick:
				o.publish(Event{Kind: EventTimeTick, Elapsed: ev.Elapsed, Remaining: ev.Remaining})
			case timer.EventWarning:
				o.timeWarning(gen, ev)
			case timer.EventExpired:
				o.endSession(gen, ev.Reason)
				return
			}
		}
	}
}

func (o *Orchestrator) timeWarning(gen uint64, ev timer.Event) {
	o.mu.Lock()
	if o.gen != gen || o.state == StateDisconnected {
		o.mu.Unlock()
		return
	}
	m := consult.SystemMessage("Session ends in "+utils.FormatTimeDuration(ev.Remaining), o.clock.Now())
	o.messages = append(o.messages, m)
	o.mu.Unlock()

	o.publish(Event{Kind: EventTimeWarning, Elapsed: ev.Elapsed, Remaining: ev.Remaining})
	o.publish(Event{Kind: EventChatMessage, Chat: &m})
}

// runSignaling dispatches frames for the session and reconnects when the
// transport drops underneath it.
func (o *Orchestrator) runSignaling(ctx context.Context, gen uint64, client *signaling.Client) {
	err := client.Run(ctx)
	if err == nil || ctx.Err() != nil || !o.current(gen) {
		return
	}
	if !errors.Is(err, consult.ErrTransport) {
		o.fail(gen, err)
		return
	}
	o.logger.Warn("signaling lost", "err", err)
	o.reconnect(ctx, gen, err)
}

func (o *Orchestrator) reconnect(ctx context.Context, gen uint64, cause error) {
	o.mu.Lock()
	if o.gen != gen || o.session == nil {
		o.mu.Unlock()
		return
	}
	o.state = StateReconnecting
	sess := *o.session
	o.mu.Unlock()
	o.publishState(StateReconnecting)

	lastErr := cause
	for attempt := 1; attempt <= o.opts.ReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-o.clock.After(o.opts.ReconnectBackoff):
		}
		if !o.current(gen) {
			return
		}

		if sess.GuestCode != "" {
			if _, err := o.guests.Validate(ctx, sess.GuestCode); err != nil {
				if errors.Is(err, consult.ErrInvalidGuestCode) {
					o.fail(gen, err)
					return
				}
				lastErr = err
				o.logger.Warn("reconnect: guest validation failed", "attempt", attempt, "err", err)
				continue
			}
		}

		transport, err := o.deps.Dialer.Dial(ctx, sess.RoomID, sess.SessionToken)
		if err != nil {
			if errors.Is(err, consult.ErrUnauthorized) {
				o.fail(gen, err)
				return
			}
			lastErr = err
			o.logger.Warn("reconnect failed", "attempt", attempt, "err", err)
			continue
		}
		client := o.newClient(transport, &sess)

		o.mu.Lock()
		if o.gen != gen {
			o.mu.Unlock()
			client.Close()
			return
		}
		for _, fn := range o.unwire {
			fn()
		}
		old := o.client
		o.client = client
		o.unwire = o.wire(ctx, gen, client)
		o.state = StateConnected
		local, _ := o.registry.Local()
		o.mu.Unlock()

		if old != nil {
			old.Close()
		}
		// existing peer connections survive; only the signaling path changes
		o.peers.SetSignaler(client)
		o.logger.Info("signaling restored", "room", sess.RoomID, "attempt", attempt)
		o.publishState(StateConnected)
		if err := client.SendMediaState(local.Media); err != nil {
			o.logger.Warn("announce media state", "err", err)
		}
		go o.runSignaling(ctx, gen, client)
		return
	}

	o.fail(gen, consult.WrapError(consult.ErrTransport, "reconnect", lastErr,
		fmt.Sprintf("gave up after %d attempts", o.opts.ReconnectAttempts)))
}
