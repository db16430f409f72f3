package sync

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-app/rollcall/internal/domain"
)

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr error
	}{
		{
			name: "valid join",
			msg:  Message{Type: TypeJoin, Room: "abc123"},
		},
		{
			name:    "join without room",
			msg:     Message{Type: TypeJoin},
			wantErr: ErrMissingRoom,
		},
		{
			name: "valid attendance",
			msg:  Message{Type: TypeAttendance, Room: "abc123", Indices: []int{0, 2}},
		},
		{
			name: "attendance with empty snapshot",
			msg:  Message{Type: TypeAttendance, Room: "abc123"},
		},
		{
			name:    "attendance with negative index",
			msg:     Message{Type: TypeAttendance, Room: "abc123", Indices: []int{0, -1}},
			wantErr: ErrNegativeIndex,
		},
		{
			name: "valid same day",
			msg:  Message{Type: TypeSameDay, Room: "abc123", IDs: []string{"NEW1"}},
		},
		{
			name:    "settings without payload",
			msg:     Message{Type: TypeSettings, Room: "abc123"},
			wantErr: ErrMissingPayload,
		},
		{
			name: "valid settings",
			msg:  Message{Type: TypeSettings, Room: "abc123", Settings: &domain.Settings{}},
		},
		{
			name:    "join ack without event",
			msg:     Message{Type: TypeJoinAck, Room: "abc123"},
			wantErr: ErrMissingPayload,
		},
		{
			name: "valid sync all",
			msg:  Message{Type: TypeSyncAll, Room: "abc123"},
		},
		{
			name: "error frame",
			msg:  Message{Type: TypeError, Error: "event not found"},
		},
		{
			name:    "unknown type",
			msg:     Message{Type: "shout", Room: "abc123"},
			wantErr: ErrUnknownType,
		},
		{
			name:    "empty type",
			msg:     Message{},
			wantErr: ErrUnknownType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEventPayload_SettingsFlattenOnTheWire(t *testing.T) {
	msg := Message{
		Type: TypeJoinAck,
		Room: "abc123",
		Event: &EventPayload{
			Name:         "Autumn Assembly",
			Participants: []string{"S1"},
			Settings:     domain.Settings{AllowSameDay: true},
		},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(raw["event"], &event))

	assert.Equal(t, true, event["arrowtoday"])
	assert.Equal(t, "Autumn Assembly", event["eventname"])
}
