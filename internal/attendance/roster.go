package attendance

import (
	"github.com/rollcall-app/rollcall/internal/domain"
)

// Roster is the ordered, pre-registered participant list for one event with a
// per-entry attended flag. Entry order is preserved verbatim from load: the
// position of an entry is its identity on the sync channel, so two clients
// that loaded the same event always agree on it. Entries are never removed,
// only flagged.
type Roster struct {
	ids      []string
	attended []bool
	position map[string]int
}

// LoadRoster builds a roster from an ordered participant list with every
// entry unattended. Duplicate identifiers keep their first position.
func LoadRoster(ids []string) *Roster {
	r := &Roster{
		ids:      make([]string, len(ids)),
		attended: make([]bool, len(ids)),
		position: make(map[string]int, len(ids)),
	}

	copy(r.ids, ids)
	for i, id := range ids {
		if _, ok := r.position[id]; !ok {
			r.position[id] = i
		}
	}

	return r
}

func (r *Roster) Len() int {
	return len(r.ids)
}

func (r *Roster) Contains(id string) bool {
	_, ok := r.position[id]

	return ok
}

// MarkAttended flags the entry and reports whether anything changed. It
// returns false both for an unknown id and for an entry already flagged;
// callers distinguish the two via Contains.
func (r *Roster) MarkAttended(id string) bool {
	i, ok := r.position[id]
	if !ok || r.attended[i] {
		return false
	}

	r.attended[i] = true

	return true
}

// IsAttended reports whether the entry exists and is flagged attended.
func (r *Roster) IsAttended(id string) bool {
	i, ok := r.position[id]

	return ok && r.attended[i]
}

// SnapshotIndices returns the ascending positions of every attended entry.
// This is the complete snapshot published on the sync channel, never a diff.
func (r *Roster) SnapshotIndices() []int {
	var indices []int
	for i, attended := range r.attended {
		if attended {
			indices = append(indices, i)
		}
	}

	return indices
}

// ApplyIndices overwrites every flag so that attended == (position present in
// indices). The overwrite makes inbound snapshots idempotent and
// order-independent. Out-of-range positions are ignored.
func (r *Roster) ApplyIndices(indices []int) {
	for i := range r.attended {
		r.attended[i] = false
	}
	for _, i := range indices {
		if i >= 0 && i < len(r.attended) {
			r.attended[i] = true
		}
	}
}

// AttendedCount returns the number of attended entries.
func (r *Roster) AttendedCount() int {
	count := 0
	for _, attended := range r.attended {
		if attended {
			count++
		}
	}

	return count
}

// Entries returns a copy of the roster in load order.
func (r *Roster) Entries() []domain.Attendee {
	entries := make([]domain.Attendee, len(r.ids))
	for i, id := range r.ids {
		entries[i] = domain.Attendee{ID: id, Attended: r.attended[i]}
	}

	return entries
}

// IDs returns a copy of the participant identifiers in load order.
func (r *Roster) IDs() []string {
	ids := make([]string, len(r.ids))
	copy(ids, r.ids)

	return ids
}
