// Package participants tracks who is in the current consultation room.
package participants

import (
	"sort"
	"sync"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/benbjohnson/clock"
)

// Registry is the in-memory roster of one session. The local participant is
// stored alongside remote ones and flagged with Local.
type Registry struct {
	clock clock.Clock

	mu      sync.Mutex
	byID    map[string]consult.Participant
	localID string
}

// NewRegistry stamps entries without a join time using c, or the wall clock
// when c is nil.
func NewRegistry(c clock.Clock) *Registry {
	if c == nil {
		c = clock.New()
	}
	return &Registry{clock: c, byID: map[string]consult.Participant{}}
}

// Upsert adds p or replaces the stored entry. It reports whether p was new.
// JoinedAt is kept from the first sighting.
func (r *Registry) Upsert(p consult.Participant) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[p.ID]
	if ok && !existing.JoinedAt.IsZero() {
		p.JoinedAt = existing.JoinedAt
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = r.clock.Now()
	}
	if p.Local {
		r.localID = p.ID
	}
	r.byID[p.ID] = p
	return !ok
}

// Remove deletes id and returns the entry that was stored.
func (r *Registry) Remove(id string) (consult.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return consult.Participant{}, false
	}
	delete(r.byID, id)
	if id == r.localID {
		r.localID = ""
	}
	return p, true
}

func (r *Registry) Get(id string) (consult.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	return p, ok
}

func (r *Registry) Local() (consult.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.localID == "" {
		return consult.Participant{}, false
	}
	p, ok := r.byID[r.localID]
	return p, ok
}

// SetStatus updates the connection status of id. It reports whether anything changed.
func (r *Registry) SetStatus(id string, status consult.ConnectionStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.Status == status {
		return false
	}
	p.Status = status
	r.byID[id] = p
	return true
}

// SetMedia updates the published media flags of id.
func (r *Registry) SetMedia(id string, media consult.MediaState) (consult.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return consult.Participant{}, false
	}
	p.Media = media
	r.byID[id] = p
	return p, true
}

// List returns every participant ordered by join time, local first on ties.
func (r *Registry) List() []consult.Participant {
	r.mu.Lock()
	out := make([]consult.Participant, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			if out[i].Local != out[j].Local {
				return out[i].Local
			}
			return out[i].ID < out[j].ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Remote returns the ids of every non-local participant.
func (r *Registry) Remote() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		if id != r.localID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = map[string]consult.Participant{}
	r.localID = ""
}
