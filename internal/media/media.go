// Package media acquires local camera, microphone and screen tracks.
package media

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
)

var (
	ErrPermissionDenied = errors.New("media permission denied")
	ErrNoDevice         = errors.New("no capture device available")
	ErrUnsupported      = errors.New("capture not supported in this build")
)

// Constraints select which local media to open. Zero sizes mean the device
// default.
type Constraints struct {
	Audio     bool
	Video     bool
	MaxWidth  int
	MaxHeight int
}

func DefaultConstraints() Constraints {
	return Constraints{Audio: true, Video: true, MaxWidth: 640, MaxHeight: 480}
}

// Devices hands out local media streams.
type Devices interface {
	AcquireStream(ctx context.Context, c Constraints) (*Stream, error)
	AcquireDisplayStream(ctx context.Context) (*Stream, error)
}

// CodecRegistrar is implemented by devices that encode with their own
// codecs and need them registered on the media engine.
type CodecRegistrar interface {
	RegisterCodecs(me *webrtc.MediaEngine) error
}

// Stream is a set of local tracks released together.
type Stream struct {
	audio webrtc.TrackLocal
	video webrtc.TrackLocal
	stop  func()
	once  sync.Once
}

func NewStream(audio, video webrtc.TrackLocal, stop func()) *Stream {
	return &Stream{audio: audio, video: video, stop: stop}
}

func (s *Stream) Audio() webrtc.TrackLocal { return s.audio }
func (s *Stream) Video() webrtc.TrackLocal { return s.video }

// Tracks maps kind to track for every track the stream carries.
func (s *Stream) Tracks() map[webrtc.RTPCodecType]webrtc.TrackLocal {
	out := map[webrtc.RTPCodecType]webrtc.TrackLocal{}
	if s.audio != nil {
		out[webrtc.RTPCodecTypeAudio] = s.audio
	}
	if s.video != nil {
		out[webrtc.RTPCodecTypeVideo] = s.video
	}
	return out
}

// Stop releases the devices. Safe to call more than once.
func (s *Stream) Stop() {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}
