package domain

import (
	"encoding/json"
	"time"
)

// Settings are the per-event check-in flags. The JSON names are the wire
// names shared with the export/import file format and the sync channel, so
// files written by older builds keep loading.
type Settings struct {
	AllowSameDay        bool `json:"arrowtoday"`
	AutoRegisterSameDay bool `json:"autotodayregister"`
	AssemblyMode        bool `json:"soukai"`
	NoRosterDisplay     bool `json:"nolist"`
}

// Normalize clears the auto-register flag whenever same-day check-in is not
// allowed. Auto-registration without same-day admission is meaningless.
func (s *Settings) Normalize() {
	if !s.AllowSameDay {
		s.AutoRegisterSameDay = false
	}
}

// Attendee is one roster entry: a participant identifier and whether they
// have been checked in.
type Attendee struct {
	ID       string `json:"id"`
	Attended bool   `json:"attended"`
}

// ParticipantList accepts both the bare-string and the object form of a
// participant entry, so exported files round-trip through import unchanged.
type ParticipantList []Attendee

func (l *ParticipantList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	entries := make([]Attendee, 0, len(raw))
	for _, item := range raw {
		var id string
		if err := json.Unmarshal(item, &id); err == nil {
			entries = append(entries, Attendee{ID: id})
			continue
		}

		var entry Attendee
		if err := json.Unmarshal(item, &entry); err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	*l = entries

	return nil
}

// IDs returns the participant identifiers in roster order.
func (l ParticipantList) IDs() []string {
	ids := make([]string, len(l))
	for i, entry := range l {
		ids[i] = entry.ID
	}

	return ids
}

// AttendedIndices returns the ascending roster positions flagged attended.
func (l ParticipantList) AttendedIndices() []int {
	var indices []int
	for i, entry := range l {
		if entry.Attended {
			indices = append(indices, i)
		}
	}

	return indices
}

// Event is the descriptor held by the event store. Participant order is
// significant: it is the coordinate system for attendance index snapshots,
// and every client that loads the same event must see the same order.
type Event struct {
	Code            string    `json:"roomid,omitempty"`
	Name            string    `json:"eventname"`
	Info            string    `json:"eventinfo"`
	Participants    []string  `json:"participants"`
	TodayList       []string  `json:"todaylist,omitempty"`
	AttendedIndices []int     `json:"attendeeindex,omitempty"`
	Settings        Settings  `json:"settings"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}
