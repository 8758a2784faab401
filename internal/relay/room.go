package relay

import (
	"sort"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
)

// Room is one consultation room on the relay. Members are keyed by
// participant ID; a reconnecting participant replaces its old connection.
type Room struct {
	ID      string
	Members map[string]*Client
}

func newRoom(id string) *Room {
	return &Room{ID: id, Members: make(map[string]*Client)}
}

// roster lists the members ordered by join time.
func (r *Room) roster() []consult.Participant {
	out := make([]consult.Participant, 0, len(r.Members))
	for _, c := range r.Members {
		out = append(out, c.Participant)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// others lists every member except id, in roster order.
func (r *Room) others(id string) []consult.Participant {
	all := r.roster()
	out := all[:0]
	for _, p := range all {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
