package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrEventCodeExists = errors.New("event code already exists")
)

type Event struct {
	ID uint `gorm:"primaryKey"`

	Code string `gorm:"unique;not null"`
	Name string `gorm:"not null"`
	Info string

	// Participant order defines the attendance index coordinate system and
	// must survive storage verbatim.
	Participants    []string `gorm:"type:jsonb;serializer:json"`
	TodayList       []string `gorm:"type:jsonb;serializer:json"`
	AttendedIndices []int    `gorm:"type:jsonb;serializer:json"`

	AllowSameDay        bool `gorm:"not null;default:false"`
	AutoRegisterSameDay bool `gorm:"not null;default:false"`
	AssemblyMode        bool `gorm:"not null;default:false"`
	NoRosterDisplay     bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

func (d *EventDAO) Insert(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).Create(&event)
	if result.Error != nil {
		var err *pgconn.PgError
		if errors.As(result.Error, &err) &&
			err.Code == pgerrcode.UniqueViolation &&
			strings.Contains(err.Message, `unique constraint "uni_events_code"`) {
			return Event{}, ErrEventCodeExists
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindByCode(ctx context.Context, code string) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).Where("code = ?", code).First(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindAll(ctx context.Context) ([]Event, error) {
	var events []Event

	result := d.db.WithContext(ctx).Order("created_at").Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}

	return events, nil
}

func (d *EventDAO) UpdateAttendedIndices(ctx context.Context, code string, indices []int) error {
	result := d.db.WithContext(ctx).
		Model(&Event{}).
		Where("code = ?", code).
		Update("attended_indices", indices)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}

	return nil
}

func (d *EventDAO) UpdateTodayList(ctx context.Context, code string, ids []string) error {
	result := d.db.WithContext(ctx).
		Model(&Event{}).
		Where("code = ?", code).
		Update("today_list", ids)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}

	return nil
}
