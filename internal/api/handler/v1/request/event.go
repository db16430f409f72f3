package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/rollcall-app/rollcall/internal/domain"
)

// CreateEventRequest is the registration payload. It is deliberately the
// same shape as the JSON export document, so a downloaded file posts back
// unchanged. Participants accept both bare ids and {id, attended} objects.
type CreateEventRequest struct {
	EventName    string                 `json:"eventname"`
	EventInfo    string                 `json:"eventinfo"`
	Participants domain.ParticipantList `json:"participants"`
	TodayList    []string               `json:"todaylist"`
	domain.Settings
}

func (req *CreateEventRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.EventName, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.Participants, validation.Required),
	)
}

// ToEvent builds the descriptor to store. Attended flags inside the
// participant objects become the initial index snapshot.
func (req *CreateEventRequest) ToEvent() domain.Event {
	return domain.Event{
		Name:            req.EventName,
		Info:            req.EventInfo,
		Participants:    req.Participants.IDs(),
		TodayList:       req.TodayList,
		AttendedIndices: req.Participants.AttendedIndices(),
		Settings:        req.Settings,
	}
}

// ImportAttendanceRequest carries a full attendance index snapshot, the
// same flat integer array the sync channel uses.
type ImportAttendanceRequest struct {
	Indices []int `json:"attendeeindex"`
}

func (req *ImportAttendanceRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Indices, validation.NotNil, validation.Each(validation.Min(0))),
	)
}

// ImportSameDayRequest carries a full same-day participant list.
type ImportSameDayRequest struct {
	Today []string `json:"today"`
}

func (req *ImportSameDayRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Today, validation.NotNil),
	)
}
