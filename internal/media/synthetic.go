package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Synthetic produces static sample tracks without touching hardware. It
// backs headless runs and tests.
type Synthetic struct {
	mu sync.Mutex
	// Err, when set, is returned by every acquisition.
	Err      error
	acquired int
	active   int
}

func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

func (s *Synthetic) AcquireStream(ctx context.Context, c Constraints) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.fail(); err != nil {
		return nil, err
	}
	if !c.Audio && !c.Video {
		return nil, fmt.Errorf("%w: neither audio nor video requested", ErrNoDevice)
	}

	var audio, video webrtc.TrackLocal
	if c.Audio {
		t, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "local")
		if err != nil {
			return nil, err
		}
		audio = t
	}
	if c.Video {
		t, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "local")
		if err != nil {
			return nil, err
		}
		video = t
	}
	return s.track(audio, video), nil
}

func (s *Synthetic) AcquireDisplayStream(ctx context.Context) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.fail(); err != nil {
		return nil, err
	}
	t, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "screen", "display")
	if err != nil {
		return nil, err
	}
	return s.track(nil, t), nil
}

func (s *Synthetic) fail() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Err
}

func (s *Synthetic) track(audio, video webrtc.TrackLocal) *Stream {
	s.mu.Lock()
	s.acquired++
	s.active++
	s.mu.Unlock()
	return NewStream(audio, video, func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	})
}

// Active is the number of streams acquired and not yet stopped.
func (s *Synthetic) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Synthetic) Acquired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}
