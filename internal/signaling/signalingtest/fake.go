// Package signalingtest provides an in-memory signaling transport and dialer.
package signalingtest

import (
	"context"
	"sync"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling"
)

// Transport is a signaling.Transport whose inbound side is driven by Deliver
// and whose outbound frames are recorded.
type Transport struct {
	in chan *signaling.Frame

	mu      sync.Mutex
	sent    []*signaling.Frame
	closed  bool
	SendErr error
}

func NewTransport() *Transport {
	return &Transport{in: make(chan *signaling.Frame, 64)}
}

func (t *Transport) Send(f *signaling.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return consult.NewError(consult.ErrTransport, "send "+f.Type, nil)
	}
	if t.SendErr != nil {
		return t.SendErr
	}
	cp := *f
	t.sent = append(t.sent, &cp)
	return nil
}

func (t *Transport) Incoming() <-chan *signaling.Frame {
	return t.in
}

// Deliver pushes a frame as if it came from the relay.
func (t *Transport) Deliver(f *signaling.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.in <- f
}

// Drop simulates the relay connection going away.
func (t *Transport) Drop() {
	t.Close()
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.in)
	}
	return nil
}

func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) Sent() []*signaling.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*signaling.Frame(nil), t.sent...)
}

// SentOfType filters recorded frames by type.
func (t *Transport) SentOfType(typ string) []*signaling.Frame {
	var out []*signaling.Frame
	for _, f := range t.Sent() {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

// Dialer hands out fresh Transports and records each dial.
type Dialer struct {
	mu         sync.Mutex
	transports []*Transport
	tokens     []string

	// Err fails every dial while set. FailNext fails only that many dials.
	Err      error
	FailNext int
}

func (d *Dialer) Dial(ctx context.Context, roomID, token string) (signaling.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.tokens = append(d.tokens, token)
	if d.Err != nil {
		return nil, d.Err
	}
	if d.FailNext > 0 {
		d.FailNext--
		return nil, consult.NewError(consult.ErrTransport, "dial signaling", nil)
	}
	t := NewTransport()
	d.transports = append(d.transports, t)
	return t, nil
}

// SetErr changes Err while dials may be in flight.
func (d *Dialer) SetErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Err = err
}

func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tokens)
}

// Last returns the most recently dialed transport, or nil.
func (d *Dialer) Last() *Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		return nil
	}
	return d.transports[len(d.transports)-1]
}

func (d *Dialer) Transports() []*Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Transport(nil), d.transports...)
}
