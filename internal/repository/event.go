package repository

import (
	"context"
	"fmt"

	"github.com/rollcall-app/rollcall/internal/domain"
	"github.com/rollcall-app/rollcall/internal/repository/dao"
)

var (
	ErrEventNotFound   = dao.ErrEventNotFound
	ErrEventCodeExists = dao.ErrEventCodeExists
)

type EventDAO interface {
	Insert(ctx context.Context, event dao.Event) (dao.Event, error)
	FindByCode(ctx context.Context, code string) (dao.Event, error)
	FindAll(ctx context.Context) ([]dao.Event, error)
	UpdateAttendedIndices(ctx context.Context, code string, indices []int) error
	UpdateTodayList(ctx context.Context, code string, ids []string) error
}

type EventRepository struct {
	dao EventDAO
}

func NewEventRepository(dao EventDAO) *EventRepository {
	return &EventRepository{
		dao: dao,
	}
}

func (r *EventRepository) domainToDAO(event domain.Event) dao.Event {
	return dao.Event{
		Code:                event.Code,
		Name:                event.Name,
		Info:                event.Info,
		Participants:        event.Participants,
		TodayList:           event.TodayList,
		AttendedIndices:     event.AttendedIndices,
		AllowSameDay:        event.Settings.AllowSameDay,
		AutoRegisterSameDay: event.Settings.AutoRegisterSameDay,
		AssemblyMode:        event.Settings.AssemblyMode,
		NoRosterDisplay:     event.Settings.NoRosterDisplay,
	}
}

func (r *EventRepository) daoToDomain(event dao.Event) domain.Event {
	return domain.Event{
		Code:            event.Code,
		Name:            event.Name,
		Info:            event.Info,
		Participants:    event.Participants,
		TodayList:       event.TodayList,
		AttendedIndices: event.AttendedIndices,
		Settings: domain.Settings{
			AllowSameDay:        event.AllowSameDay,
			AutoRegisterSameDay: event.AutoRegisterSameDay,
			AssemblyMode:        event.AssemblyMode,
			NoRosterDisplay:     event.NoRosterDisplay,
		},
		CreatedAt: event.CreatedAt,
		UpdatedAt: event.UpdatedAt,
	}
}

func (r *EventRepository) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	created, err := r.dao.Insert(ctx, r.domainToDAO(event))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *EventRepository) FindByCode(ctx context.Context, code string) (domain.Event, error) {
	found, err := r.dao.FindByCode(ctx, code)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByCode -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *EventRepository) FindAll(ctx context.Context) ([]domain.Event, error) {
	found, err := r.dao.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAll -> %w", err)
	}

	events := make([]domain.Event, len(found))
	for i, event := range found {
		events[i] = r.daoToDomain(event)
	}

	return events, nil
}

func (r *EventRepository) UpdateAttendedIndices(ctx context.Context, code string, indices []int) error {
	if err := r.dao.UpdateAttendedIndices(ctx, code, indices); err != nil {
		return fmt.Errorf("r.dao.UpdateAttendedIndices -> %w", err)
	}

	return nil
}

func (r *EventRepository) UpdateTodayList(ctx context.Context, code string, ids []string) error {
	if err := r.dao.UpdateTodayList(ctx, code, ids); err != nil {
		return fmt.Errorf("r.dao.UpdateTodayList -> %w", err)
	}

	return nil
}
