package signaling

import (
	"testing"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestSelectCodec(t *testing.T) {
	require.Equal(t, CodecMsgpack, SelectCodec("msgpack").Name())
	require.Equal(t, CodecJSON, SelectCodec("json").Name())
	require.Equal(t, CodecJSON, SelectCodec("").Name())

	c, err := CodecFor(websocket.BinaryMessage)
	require.NoError(t, err)
	require.Equal(t, CodecMsgpack, c.Name())
	_, err = CodecFor(websocket.PingMessage)
	require.Error(t, err)
}

func TestCodecsCarryCandidate(t *testing.T) {
	mid := "0"
	idx := uint16(0)
	in := &Frame{
		Type:      FrameCandidate,
		From:      "p1",
		To:        "p2",
		Candidate: &consult.Candidate{Candidate: "candidate:1 1 udp 1 10.0.0.1 5000 typ host", SDPMid: &mid, SDPMLineIndex: &idx},
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			data, err := codec.Encode(in)
			require.NoError(t, err)

			var out Frame
			require.NoError(t, codec.Decode(data, &out))
			require.Equal(t, in.Candidate.Candidate, out.Candidate.Candidate)
			require.Equal(t, "0", *out.Candidate.SDPMid)
			require.True(t, in.Timestamp.Equal(out.Timestamp))

			env := out.Envelope()
			require.Equal(t, consult.SignalCandidate, env.Type)
			require.Equal(t, "p1", env.From)
		})
	}
}

func TestJSONFieldNames(t *testing.T) {
	data, err := JSONCodec{}.Encode(&Frame{Type: FrameRoomEnded, RoomID: "r1", Reason: "time-expired"})
	require.NoError(t, err)
	require.Contains(t, string(data), `"type":"room-ended"`)
	require.Contains(t, string(data), `"roomId":"r1"`)
	require.Contains(t, string(data), `"reason":"time-expired"`)
	require.NotContains(t, string(data), `"sdp"`)
}
