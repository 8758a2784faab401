package session

import (
	"context"
	"strings"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/pion/webrtc/v4"
)

// ToggleAudio mutes or unmutes the microphone and returns the new state.
// Muting stops sending without renegotiating.
func (o *Orchestrator) ToggleAudio() (bool, error) {
	return o.toggle(webrtc.RTPCodecTypeAudio)
}

// ToggleVideo turns the outgoing video on or off and returns the new state.
func (o *Orchestrator) ToggleVideo() (bool, error) {
	return o.toggle(webrtc.RTPCodecTypeVideo)
}

func (o *Orchestrator) toggle(kind webrtc.RTPCodecType) (bool, error) {
	op := "toggle " + kind.String()

	o.mu.Lock()
	if o.state != StateConnected || o.stream == nil || o.session == nil {
		o.mu.Unlock()
		return false, consult.NewError(consult.ErrNotConnected, op, nil)
	}
	local, _ := o.registry.Local()
	m := local.Media
	var track webrtc.TrackLocal
	if kind == webrtc.RTPCodecTypeAudio {
		if o.stream.Audio() == nil {
			o.mu.Unlock()
			return false, consult.WrapError(consult.ErrNotConnected, op, nil, "no microphone")
		}
		m.Audio = !m.Audio
		if m.Audio {
			track = o.stream.Audio()
		}
	} else {
		if o.stream.Video() == nil && o.display == nil {
			o.mu.Unlock()
			return false, consult.WrapError(consult.ErrNotConnected, op, nil, "no camera")
		}
		m.Video = !m.Video
		if m.Video {
			track = o.outboundVideoLocked()
		}
	}
	on := m.Audio
	if kind == webrtc.RTPCodecTypeVideo {
		on = m.Video
	}
	o.mu.Unlock()

	if err := o.peers.ReplaceOutboundTrack(kind, track); err != nil {
		o.logger.Warn("replace track", "kind", kind.String(), "err", err)
	}
	o.applyLocalMedia(m)
	return on, nil
}

// outboundVideoLocked is the display track while sharing, else the camera.
func (o *Orchestrator) outboundVideoLocked() webrtc.TrackLocal {
	if o.display != nil && o.display.Video() != nil {
		return o.display.Video()
	}
	if o.stream != nil {
		return o.stream.Video()
	}
	return nil
}

// applyLocalMedia stores the local media flags, tells the room and
// publishes the update.
func (o *Orchestrator) applyLocalMedia(m consult.MediaState) {
	o.mu.Lock()
	local, ok := o.registry.Local()
	if !ok {
		o.mu.Unlock()
		return
	}
	updated, _ := o.registry.SetMedia(local.ID, m)
	client := o.client
	o.mu.Unlock()

	if client != nil {
		if err := client.SendMediaState(m); err != nil {
			o.logger.Warn("send media state", "err", err)
		}
	}
	o.publish(Event{Kind: EventParticipantUpdated, Participant: &updated, ParticipantID: updated.ID})
}

// StartScreenShare replaces the outgoing video with a display capture.
func (o *Orchestrator) StartScreenShare(ctx context.Context) error {
	const op = "start screen share"

	o.mu.Lock()
	if o.state != StateConnected {
		o.mu.Unlock()
		return consult.NewError(consult.ErrNotConnected, op, nil)
	}
	if o.display != nil {
		o.mu.Unlock()
		return nil
	}
	gen := o.gen
	o.mu.Unlock()

	display, err := o.deps.Devices.AcquireDisplayStream(ctx)
	if err != nil {
		return consult.NewError(consult.ErrNotConnected, op, err)
	}

	o.mu.Lock()
	if o.gen != gen || o.state == StateDisconnected || o.display != nil {
		o.mu.Unlock()
		display.Stop()
		return consult.NewError(consult.ErrSessionAborted, op, nil)
	}
	o.display = display
	local, _ := o.registry.Local()
	o.mu.Unlock()

	if err := o.peers.ReplaceOutboundVideoTrack(display.Video()); err != nil {
		o.logger.Warn("replace video track", "err", err)
	}
	m := local.Media
	m.ScreenShare = true
	o.applyLocalMedia(m)
	return nil
}

// StopScreenShare restores the camera, or nothing if video is off.
func (o *Orchestrator) StopScreenShare() error {
	o.mu.Lock()
	display := o.display
	if display == nil {
		o.mu.Unlock()
		return nil
	}
	o.display = nil
	local, _ := o.registry.Local()
	var camera webrtc.TrackLocal
	if local.Media.Video && o.stream != nil {
		camera = o.stream.Video()
	}
	o.mu.Unlock()

	if err := o.peers.ReplaceOutboundVideoTrack(camera); err != nil {
		o.logger.Warn("replace video track", "err", err)
	}
	display.Stop()
	m := local.Media
	m.ScreenShare = false
	o.applyLocalMedia(m)
	return nil
}

// SendChat sends text to the room and records it locally.
func (o *Orchestrator) SendChat(text string) (consult.ChatMessage, error) {
	const op = "send chat"
	text = strings.TrimSpace(text)

	o.mu.Lock()
	if o.state != StateConnected || o.client == nil {
		o.mu.Unlock()
		return consult.ChatMessage{}, consult.NewError(consult.ErrNotConnected, op, nil)
	}
	if text == "" {
		o.mu.Unlock()
		return consult.ChatMessage{}, consult.WrapError(consult.ErrNotConnected, op, nil, "empty message")
	}
	local, _ := o.registry.Local()
	msg := consult.NewChatMessage(local, text, o.clock.Now())
	client := o.client
	o.mu.Unlock()

	if err := client.SendChat(msg); err != nil {
		return consult.ChatMessage{}, err
	}

	o.mu.Lock()
	o.messages = append(o.messages, msg)
	o.mu.Unlock()
	o.publish(Event{Kind: EventChatMessage, Chat: &msg, ParticipantID: msg.FromParticipantID})
	return msg, nil
}

// InviteGuest asks the backend for an invitation to the current
// appointment. Only clinicians may invite.
func (o *Orchestrator) InviteGuest(ctx context.Context, g consult.GuestData) (*consult.GuestInvitation, error) {
	const op = "invite guest"

	o.mu.Lock()
	sess := o.session
	o.mu.Unlock()
	if sess == nil {
		return nil, consult.NewError(consult.ErrNotConnected, op, nil)
	}
	if !sess.LocalRole.IsClinician() {
		return nil, consult.WrapError(consult.ErrUnauthorized, op, nil, "only clinicians can invite guests")
	}
	return o.guests.Invite(ctx, sess.AppointmentID, g)
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastError is the most recent session-level failure, kept after the
// session is gone.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) Session() (consult.Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return consult.Session{}, false
	}
	return *o.session, true
}

// Participants lists everyone in the room, local participant first.
func (o *Orchestrator) Participants() []consult.Participant {
	return o.registry.List()
}

func (o *Orchestrator) LocalParticipant() (consult.Participant, bool) {
	return o.registry.Local()
}

// Messages returns the chat history of the current session.
func (o *Orchestrator) Messages() []consult.ChatMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]consult.ChatMessage(nil), o.messages...)
}

func (o *Orchestrator) Elapsed() time.Duration {
	o.mu.Lock()
	tm := o.timer
	o.mu.Unlock()
	if tm == nil {
		return 0
	}
	return tm.Elapsed()
}

// Remaining is the time left before the session is ended, zero without a
// limit or session.
func (o *Orchestrator) Remaining() time.Duration {
	o.mu.Lock()
	tm := o.timer
	o.mu.Unlock()
	if tm == nil {
		return 0
	}
	return tm.Remaining()
}
