package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rollcall-app/rollcall/internal/domain"
	"github.com/rollcall-app/rollcall/internal/pkg/shortcode"
	"github.com/rollcall-app/rollcall/internal/repository"
)

var (
	ErrEventNotFound   = repository.ErrEventNotFound
	ErrIndexOutOfRange = errors.New("attendance index outside the roster")
)

// Collisions on the 8-character room code are rare but real; retry a couple
// of times with a fresh code before giving up.
const maxCodeAttempts = 3

type EventRepository interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	FindByCode(ctx context.Context, code string) (domain.Event, error)
	FindAll(ctx context.Context) ([]domain.Event, error)
	UpdateAttendedIndices(ctx context.Context, code string, indices []int) error
	UpdateTodayList(ctx context.Context, code string, ids []string) error
}

type EventService struct {
	repo EventRepository
}

func NewEventService(repo EventRepository) *EventService {
	return &EventService{
		repo: repo,
	}
}

// RegisterEvent stores a new event and returns it with its room code
// assigned. Settings are normalized so the auto-register/allow invariant
// holds from the moment the event exists.
func (s *EventService) RegisterEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	event.Settings.Normalize()

	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		event.Code = shortcode.New()

		created, err := s.repo.Create(ctx, event)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, repository.ErrEventCodeExists) {
			return domain.Event{}, fmt.Errorf("s.repo.Create -> %w", err)
		}
		lastErr = err
	}

	return domain.Event{}, fmt.Errorf("s.repo.Create -> %w", lastErr)
}

func (s *EventService) GetEvent(ctx context.Context, code string) (domain.Event, error) {
	event, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByCode -> %w", err)
	}

	return event, nil
}

func (s *EventService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	events, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindAll -> %w", err)
	}

	return events, nil
}

// BulkImportAttendance overwrites the stored attendance snapshot, the shape
// shared with the sync channel's index messages. Indices must address the
// event's roster.
func (s *EventService) BulkImportAttendance(ctx context.Context, code string, indices []int) error {
	event, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("s.repo.FindByCode -> %w", err)
	}

	for _, i := range indices {
		if i < 0 || i >= len(event.Participants) {
			return fmt.Errorf("index %d with %d participants: %w", i, len(event.Participants), ErrIndexOutOfRange)
		}
	}

	if err := s.repo.UpdateAttendedIndices(ctx, code, indices); err != nil {
		return fmt.Errorf("s.repo.UpdateAttendedIndices -> %w", err)
	}

	return nil
}

// BulkImportSameDay overwrites the stored same-day list.
func (s *EventService) BulkImportSameDay(ctx context.Context, code string, ids []string) error {
	if err := s.repo.UpdateTodayList(ctx, code, ids); err != nil {
		return fmt.Errorf("s.repo.UpdateTodayList -> %w", err)
	}

	return nil
}
