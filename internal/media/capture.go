//go:build capture

package media

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	_ "github.com/pion/mediadevices/pkg/driver/screen"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
)

// Capture opens real devices through pion/mediadevices.
type Capture struct {
	selector *mediadevices.CodecSelector
	logger   *slog.Logger
}

func NewCapture(logger *slog.Logger) (*Capture, error) {
	if logger == nil {
		logger = slog.Default().With("component", "media")
	}

	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("vp8 params: %w", err)
	}
	vpxParams.BitRate = 1_000_000

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("opus params: %w", err)
	}

	return &Capture{
		selector: mediadevices.NewCodecSelector(
			mediadevices.WithVideoEncoders(&vpxParams),
			mediadevices.WithAudioEncoders(&opusParams),
		),
		logger: logger,
	}, nil
}

func (c *Capture) RegisterCodecs(me *webrtc.MediaEngine) error {
	c.selector.Populate(me)
	return nil
}

// AcquireStream opens camera and microphone. When both are requested and
// one of them is missing, the other is still returned.
func (c *Capture) AcquireStream(ctx context.Context, cons Constraints) (*Stream, error) {
	type attempt struct {
		video, audio bool
		label        string
	}
	attempts := []attempt{{cons.Video, cons.Audio, "requested"}}
	if cons.Video && cons.Audio {
		attempts = append(attempts, attempt{true, false, "video-only"}, attempt{false, true, "audio-only"})
	}

	if len(mediadevices.EnumerateDevices()) == 0 {
		return nil, ErrNoDevice
	}

	var lastErr error
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msc := mediadevices.MediaStreamConstraints{Codec: c.selector}
		if a.video {
			msc.Video = func(mc *mediadevices.MediaTrackConstraints) {
				mc.FrameFormat = prop.FrameFormatOneOf{frame.FormatYUYV, frame.FormatI420, frame.FormatI444, frame.FormatRGBA}
				if cons.MaxWidth > 0 {
					mc.Width = prop.IntRanged{Max: cons.MaxWidth}
				}
				if cons.MaxHeight > 0 {
					mc.Height = prop.IntRanged{Max: cons.MaxHeight}
				}
			}
		}
		if a.audio {
			msc.Audio = func(*mediadevices.MediaTrackConstraints) {}
		}

		ms, err := mediadevices.GetUserMedia(msc)
		if err != nil {
			c.logger.Warn("capture attempt failed", "attempt", a.label, "err", err)
			lastErr = err
			continue
		}
		return streamOf(ms), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, lastErr)
}

func (c *Capture) AcquireDisplayStream(ctx context.Context) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ms, err := mediadevices.GetDisplayMedia(mediadevices.MediaStreamConstraints{
		Video: func(mc *mediadevices.MediaTrackConstraints) {
			mc.FrameFormat = prop.FrameFormat(frame.FormatI420)
		},
		Codec: c.selector,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return streamOf(ms), nil
}

func streamOf(ms mediadevices.MediaStream) *Stream {
	var audio, video webrtc.TrackLocal
	tracks := ms.GetTracks()
	for _, t := range tracks {
		switch t.Kind() {
		case webrtc.RTPCodecTypeAudio:
			audio = t
		case webrtc.RTPCodecTypeVideo:
			video = t
		}
	}
	return NewStream(audio, video, func() {
		for _, t := range tracks {
			t.Close()
		}
	})
}
