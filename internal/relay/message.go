package relay

import (
	"errors"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/signaling"
)

// inbound is a frame read from a client, queued for the hub.
type inbound struct {
	frame  *signaling.Frame
	client *Client
}

type endRequest struct {
	roomID string
	reason string
	done   chan bool
}

type rosterRequest struct {
	roomID string
	reply  chan []consult.Participant
}

var errHubStopped = errors.New("relay hub stopped")
