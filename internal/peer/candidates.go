package peer

import (
	"sync"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
)

// CandidateBuffer holds remote candidates that arrived before the matching
// connection had a remote description. Order of arrival is preserved per
// participant.
type CandidateBuffer struct {
	mu      sync.Mutex
	pending map[string][]consult.Candidate
}

func NewCandidateBuffer() *CandidateBuffer {
	return &CandidateBuffer{pending: map[string][]consult.Candidate{}}
}

func (b *CandidateBuffer) Push(participantID string, c consult.Candidate) {
	b.mu.Lock()
	b.pending[participantID] = append(b.pending[participantID], c)
	b.mu.Unlock()
}

// Drain returns the queued candidates for participantID and forgets them.
// A second call returns nothing until new candidates are pushed.
func (b *CandidateBuffer) Drain(participantID string) []consult.Candidate {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending[participantID]
	delete(b.pending, participantID)
	return out
}

func (b *CandidateBuffer) Len(participantID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending[participantID])
}

// Discard drops everything queued for participantID.
func (b *CandidateBuffer) Discard(participantID string) {
	b.mu.Lock()
	delete(b.pending, participantID)
	b.mu.Unlock()
}

func (b *CandidateBuffer) Reset() {
	b.mu.Lock()
	b.pending = map[string][]consult.Candidate{}
	b.mu.Unlock()
}
