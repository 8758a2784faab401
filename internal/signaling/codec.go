package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns frames into websocket payloads and back.
type Codec interface {
	Name() string
	// MessageType is the websocket frame type the codec writes.
	MessageType() int
	Encode(f *Frame) ([]byte, error)
	Decode(data []byte, f *Frame) error
}

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// JSONCodec writes text frames; browsers speak it natively.
type JSONCodec struct{}

func (JSONCodec) Name() string     { return CodecJSON }
func (JSONCodec) MessageType() int { return websocket.TextMessage }

func (JSONCodec) Encode(f *Frame) ([]byte, error) {
	return json.Marshal(f)
}

func (JSONCodec) Decode(data []byte, f *Frame) error {
	return json.Unmarshal(data, f)
}

// MsgpackCodec writes binary frames for CLI to CLI sessions.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string     { return CodecMsgpack }
func (MsgpackCodec) MessageType() int { return websocket.BinaryMessage }

func (MsgpackCodec) Encode(f *Frame) ([]byte, error) {
	return msgpack.Marshal(f)
}

func (MsgpackCodec) Decode(data []byte, f *Frame) error {
	return msgpack.Unmarshal(data, f)
}

// SelectCodec picks the codec by name, defaulting to JSON for web
// compatibility.
func SelectCodec(name string) Codec {
	if name == CodecMsgpack {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}

// CodecFor picks the codec able to read a websocket message of type mt.
func CodecFor(mt int) (Codec, error) {
	switch mt {
	case websocket.TextMessage:
		return JSONCodec{}, nil
	case websocket.BinaryMessage:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported websocket message type %d", mt)
	}
}
