package relay

import (
	"errors"
	"net/http"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling"
	"github.com/Andiveli/HospitalFront-sub000/internal/token"
	"github.com/gorilla/websocket"
)

// Path is where the relay accepts websocket connections.
const Path = "/ws/signal"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  maxMessageSize,
	WriteBufferSize: maxMessageSize,

	// Development relay: browsers and the CLI connect from anywhere.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs authenticates a session token and attaches the connection to the
// room named in it. The token comes from the Authorization header, or the
// token query parameter for browsers.
func ServeWs(hub *Hub, issuer *token.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := token.FromHeader(r.Header.Get("Authorization"))
		if errors.Is(err, token.ErrMissing) {
			raw, err = r.URL.Query().Get("token"), nil
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		claims, err := issuer.Parse(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		if claims.RoomID == "" || claims.ParticipantID == "" {
			http.Error(w, "not a session token", http.StatusForbidden)
			return
		}
		if room := r.URL.Query().Get("room"); room != "" && room != claims.RoomID {
			http.Error(w, "token is for another room", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Warn("upgrade failed", "err", err)
			return
		}

		codec := signaling.SelectCodec(r.URL.Query().Get("codec"))
		client := newClient(hub, conn, codec, claims.RoomID, consult.Participant{
			ID:          claims.ParticipantID,
			DisplayName: claims.Name,
			Role:        claims.Role,
		})
		if !hub.registerClient(client) {
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}
