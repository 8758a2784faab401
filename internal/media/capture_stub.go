//go:build !capture

package media

import (
	"context"
	"log/slog"

	"github.com/pion/webrtc/v4"
)

// Capture is unavailable without the capture build tag; it always fails so
// callers fall back to synthetic media.
type Capture struct{}

func NewCapture(*slog.Logger) (*Capture, error) {
	return nil, ErrUnsupported
}

func (*Capture) RegisterCodecs(*webrtc.MediaEngine) error { return ErrUnsupported }

func (*Capture) AcquireStream(context.Context, Constraints) (*Stream, error) {
	return nil, ErrUnsupported
}

func (*Capture) AcquireDisplayStream(context.Context) (*Stream, error) {
	return nil, ErrUnsupported
}
