package signaling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// echoServer answers every frame it reads with the same bytes and message type.
func echoServer(t *testing.T, wantToken string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+wantToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("room") == "" {
			http.Error(w, "missing room", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/signal"
}

func TestWSTransportRoundTrip(t *testing.T) {
	srv := echoServer(t, "tok")
	defer srv.Close()

	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			d := &WSDialer{URL: wsURL(srv), Codec: codec}
			tr, err := d.Dial(context.Background(), "room-1", "tok")
			require.NoError(t, err)
			defer tr.Close()

			require.NoError(t, tr.Send(&Frame{Type: FrameOffer, From: "a", To: "b", SDP: "v=0"}))

			select {
			case f := <-tr.Incoming():
				require.Equal(t, FrameOffer, f.Type)
				require.Equal(t, "v=0", f.SDP)
			case <-time.After(2 * time.Second):
				t.Fatal("no echo")
			}
		})
	}
}

func TestWSDialUnauthorized(t *testing.T) {
	srv := echoServer(t, "tok")
	defer srv.Close()

	d := &WSDialer{URL: wsURL(srv)}
	_, err := d.Dial(context.Background(), "room-1", "wrong")
	require.ErrorIs(t, err, consult.ErrUnauthorized)
}

func TestWSTransportCloseClosesIncoming(t *testing.T) {
	srv := echoServer(t, "tok")
	defer srv.Close()

	tr, err := (&WSDialer{URL: wsURL(srv)}).Dial(context.Background(), "room-1", "tok")
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	select {
	case _, ok := <-tr.Incoming():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("incoming not closed")
	}
	require.ErrorIs(t, tr.Send(&Frame{Type: FrameChat}), consult.ErrTransport)
}
