package sync

import (
	"errors"
	"fmt"

	"github.com/rollcall-app/rollcall/internal/domain"
)

// Message kinds carried on the sync channel. Attendance and same-day
// messages are always the sender's complete current snapshot, never an
// incremental diff: the union-merge on receipt makes duplicated, reordered
// and stale deliveries harmless.
const (
	TypeJoin       = "join"
	TypeJoinAck    = "join_ack"
	TypeSyncAll    = "sync_all"
	TypeAttendance = "attendance"
	TypeSameDay    = "same_day"
	TypeSettings   = "settings"
	TypeError      = "error"
)

var (
	ErrUnknownType    = errors.New("unknown message type")
	ErrMissingRoom    = errors.New("missing room code")
	ErrMissingPayload = errors.New("missing payload for message type")
	ErrNegativeIndex  = errors.New("attendance index must not be negative")
)

// EventPayload is the full event descriptor sent in a join acknowledgement.
// The embedded settings flatten to the wire flag names.
type EventPayload struct {
	Name         string   `json:"eventname"`
	Info         string   `json:"eventinfo"`
	Participants []string `json:"participants"`
	TodayList    []string `json:"todaylist,omitempty"`
	Indices      []int    `json:"indices,omitempty"`
	domain.Settings
}

// Message is the single envelope for every frame on the channel, tagged by
// Type. Exactly one payload field is meaningful per kind; Validate enforces
// the schema at the boundary so handlers never see a malformed payload.
type Message struct {
	Type     string           `json:"type"`
	Room     string           `json:"room,omitempty"`
	Indices  []int            `json:"indices,omitempty"`
	IDs      []string         `json:"ids,omitempty"`
	Settings *domain.Settings `json:"settings,omitempty"`
	Event    *EventPayload    `json:"event,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (m *Message) Validate() error {
	switch m.Type {
	case TypeJoin, TypeSyncAll:
		if m.Room == "" {
			return fmt.Errorf("%v: %w", m.Type, ErrMissingRoom)
		}
	case TypeAttendance:
		if m.Room == "" {
			return fmt.Errorf("%v: %w", m.Type, ErrMissingRoom)
		}
		for _, i := range m.Indices {
			if i < 0 {
				return fmt.Errorf("index %d: %w", i, ErrNegativeIndex)
			}
		}
	case TypeSameDay:
		if m.Room == "" {
			return fmt.Errorf("%v: %w", m.Type, ErrMissingRoom)
		}
	case TypeSettings:
		if m.Room == "" {
			return fmt.Errorf("%v: %w", m.Type, ErrMissingRoom)
		}
		if m.Settings == nil {
			return fmt.Errorf("%v: %w", m.Type, ErrMissingPayload)
		}
	case TypeJoinAck:
		if m.Event == nil {
			return fmt.Errorf("%v: %w", m.Type, ErrMissingPayload)
		}
	case TypeError:
	default:
		return fmt.Errorf("%q: %w", m.Type, ErrUnknownType)
	}

	return nil
}
