package relay

import (
	"log/slog"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP with many candidates fits.
	maxMessageSize = 64 * 1024

	sendBuffer = 256
)

// Client is one participant's websocket connection to the relay.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	codec  signaling.Codec
	logger *slog.Logger

	RoomID      string
	Participant consult.Participant

	// send is written by the hub only and closed by it on unregister.
	send chan *signaling.Frame
}

func newClient(hub *Hub, conn *websocket.Conn, codec signaling.Codec, roomID string, p consult.Participant) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		codec:       codec,
		logger:      hub.logger.With("room", roomID, "participant", p.ID),
		RoomID:      roomID,
		Participant: p,
		send:        make(chan *signaling.Frame, sendBuffer),
	}
}

// readPump pumps frames from the websocket connection to the hub. It is the
// only reader of the connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("read failed", "err", err)
			}
			return
		}

		codec, err := signaling.CodecFor(mt)
		if err != nil {
			c.logger.Warn("dropping frame", "err", err)
			continue
		}
		var f signaling.Frame
		if err := codec.Decode(data, &f); err != nil {
			c.logger.Warn("dropping undecodable frame", "codec", codec.Name(), "err", err)
			continue
		}

		if !c.hub.dispatch(&inbound{frame: &f, client: c}) {
			return
		}
	}
}

// writePump pumps frames from the hub to the websocket connection. It is
// the only writer of the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			data, err := c.codec.Encode(f)
			if err != nil {
				c.logger.Error("encode frame", "type", f.Type, "err", err)
				continue
			}
			if err := c.conn.WriteMessage(c.codec.MessageType(), data); err != nil {
				c.logger.Debug("write failed", "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliver queues f without blocking the hub. A client that cannot keep up
// is dropped.
func (c *Client) deliver(f *signaling.Frame) bool {
	select {
	case c.send <- f:
		return true
	default:
		c.logger.Warn("send buffer full, dropping client")
		return false
	}
}
