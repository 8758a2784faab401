package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/dns"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var errTransportClosed = errors.New("transport closed")

// Transport moves frames to and from the relay. Incoming is closed when the
// connection goes away.
type Transport interface {
	Send(f *Frame) error
	Incoming() <-chan *Frame
	Close() error
}

// WSTransport is a Transport over one websocket connection.
type WSTransport struct {
	conn     *websocket.Conn
	codec    Codec
	logger   *slog.Logger
	incoming chan *Frame
	outgoing chan *Frame
	done     chan struct{}
	once     sync.Once
}

// WSDialer opens websocket transports to a relay.
type WSDialer struct {
	// URL is the relay endpoint, e.g. wss://example.org/ws/signal.
	URL    string
	Codec  Codec
	Logger *slog.Logger
}

// Dial connects to room roomID authenticated by token.
func (d *WSDialer) Dial(ctx context.Context, roomID, token string) (Transport, error) {
	codec := d.Codec
	if codec == nil {
		codec = JSONCodec{}
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default().With("component", "signaling")
	}

	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, consult.NewError(consult.ErrTransport, "dial signaling", fmt.Errorf("invalid server URL: %w", err))
	}
	q := u.Query()
	q.Set("room", roomID)
	q.Set("codec", codec.Name())
	u.RawQuery = q.Encode()

	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		resolvedIP, err := dns.Lookup(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}

		var nd net.Dialer
		return nd.DialContext(ctx, network, net.JoinHostPort(resolvedIP, port))
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, consult.NewError(consult.ErrUnauthorized, "dial signaling", err)
		}
		return nil, consult.NewError(consult.ErrTransport, "dial signaling", err)
	}

	t := newWSTransport(conn, codec, logger)
	go t.readPump()
	go t.writePump()
	return t, nil
}

func newWSTransport(conn *websocket.Conn, codec Codec, logger *slog.Logger) *WSTransport {
	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	return &WSTransport{
		conn:     conn,
		codec:    codec,
		logger:   logger,
		incoming: make(chan *Frame, 32),
		outgoing: make(chan *Frame, 32),
		done:     make(chan struct{}),
	}
}

// readPump reads frames from the websocket connection.
func (t *WSTransport) readPump() {
	defer func() {
		t.Close()
		t.conn.Close()
		close(t.incoming)
	}()

	t.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.logger.Warn("signaling read failed", "err", err)
			}
			return
		}

		codec, err := CodecFor(mt)
		if err != nil {
			t.logger.Warn("dropping frame", "err", err)
			continue
		}
		var f Frame
		if err := codec.Decode(data, &f); err != nil {
			t.logger.Warn("dropping undecodable frame", "codec", codec.Name(), "err", err)
			continue
		}

		select {
		case t.incoming <- &f:
		case <-t.done:
			return
		}
	}
}

// writePump writes frames to the websocket connection and sends periodic pings.
func (t *WSTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case f := <-t.outgoing:
			data, err := t.codec.Encode(f)
			if err != nil {
				t.logger.Error("encode frame", "type", f.Type, "err", err)
				continue
			}
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(t.codec.MessageType(), data); err != nil {
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-t.done:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			t.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues f for writing.
func (t *WSTransport) Send(f *Frame) error {
	select {
	case <-t.done:
		return consult.NewError(consult.ErrTransport, "send "+f.Type, errTransportClosed)
	default:
	}
	select {
	case t.outgoing <- f:
		return nil
	case <-t.done:
		return consult.NewError(consult.ErrTransport, "send "+f.Type, errTransportClosed)
	}
}

// Incoming returns the channel of received frames.
func (t *WSTransport) Incoming() <-chan *Frame {
	return t.incoming
}

// Close shuts the connection down. Safe to call more than once.
func (t *WSTransport) Close() error {
	t.once.Do(func() {
		close(t.done)
	})
	return nil
}
