package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-app/rollcall/internal/domain"
	"github.com/rollcall-app/rollcall/internal/repository"
)

type fakeRepo struct {
	events map[string]domain.Event

	createCalls int
	failCreates int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{events: make(map[string]domain.Event)}
}

func (r *fakeRepo) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	r.createCalls++
	if r.createCalls <= r.failCreates {
		return domain.Event{}, repository.ErrEventCodeExists
	}
	if _, ok := r.events[event.Code]; ok {
		return domain.Event{}, repository.ErrEventCodeExists
	}

	r.events[event.Code] = event

	return event, nil
}

func (r *fakeRepo) FindByCode(ctx context.Context, code string) (domain.Event, error) {
	event, ok := r.events[code]
	if !ok {
		return domain.Event{}, repository.ErrEventNotFound
	}

	return event, nil
}

func (r *fakeRepo) FindAll(ctx context.Context) ([]domain.Event, error) {
	events := make([]domain.Event, 0, len(r.events))
	for _, event := range r.events {
		events = append(events, event)
	}

	return events, nil
}

func (r *fakeRepo) UpdateAttendedIndices(ctx context.Context, code string, indices []int) error {
	event, ok := r.events[code]
	if !ok {
		return repository.ErrEventNotFound
	}

	event.AttendedIndices = indices
	r.events[code] = event

	return nil
}

func (r *fakeRepo) UpdateTodayList(ctx context.Context, code string, ids []string) error {
	event, ok := r.events[code]
	if !ok {
		return repository.ErrEventNotFound
	}

	event.TodayList = ids
	r.events[code] = event

	return nil
}

func TestEventService_RegisterEvent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewEventService(repo)

	created, err := svc.RegisterEvent(context.Background(), domain.Event{
		Name:         "Autumn Assembly",
		Participants: []string{"S1", "S2"},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, created.Code)
	assert.NotContains(t, created.Code, "-")

	found, err := svc.GetEvent(context.Background(), created.Code)
	require.NoError(t, err)
	assert.Equal(t, "Autumn Assembly", found.Name)
}

func TestEventService_RegisterEvent_NormalizesSettings(t *testing.T) {
	svc := NewEventService(newFakeRepo())

	created, err := svc.RegisterEvent(context.Background(), domain.Event{
		Name:         "Autumn Assembly",
		Participants: []string{"S1"},
		Settings:     domain.Settings{AllowSameDay: false, AutoRegisterSameDay: true},
	})

	require.NoError(t, err)
	assert.False(t, created.Settings.AutoRegisterSameDay)
}

func TestEventService_RegisterEvent_RetriesCodeCollision(t *testing.T) {
	repo := newFakeRepo()
	repo.failCreates = 2
	svc := NewEventService(repo)

	created, err := svc.RegisterEvent(context.Background(), domain.Event{Name: "Autumn Assembly"})

	require.NoError(t, err)
	assert.NotEmpty(t, created.Code)
	assert.Equal(t, 3, repo.createCalls)
}

func TestEventService_RegisterEvent_GivesUpAfterRetries(t *testing.T) {
	repo := newFakeRepo()
	repo.failCreates = 10
	svc := NewEventService(repo)

	_, err := svc.RegisterEvent(context.Background(), domain.Event{Name: "Autumn Assembly"})

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrEventCodeExists)
	assert.Equal(t, 3, repo.createCalls)
}

func TestEventService_GetEvent_NotFound(t *testing.T) {
	svc := NewEventService(newFakeRepo())

	_, err := svc.GetEvent(context.Background(), "nosuchcode")

	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventService_BulkImportAttendance(t *testing.T) {
	repo := newFakeRepo()
	svc := NewEventService(repo)

	created, err := svc.RegisterEvent(context.Background(), domain.Event{
		Name:         "Autumn Assembly",
		Participants: []string{"S1", "S2", "S3"},
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		indices []int
		wantErr error
	}{
		{
			name:    "valid snapshot",
			indices: []int{0, 2},
		},
		{
			name:    "empty snapshot clears attendance",
			indices: []int{},
		},
		{
			name:    "index past the roster",
			indices: []int{3},
			wantErr: ErrIndexOutOfRange,
		},
		{
			name:    "negative index",
			indices: []int{-1},
			wantErr: ErrIndexOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.BulkImportAttendance(context.Background(), created.Code, tt.indices)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			found, err := svc.GetEvent(context.Background(), created.Code)
			require.NoError(t, err)
			assert.Equal(t, tt.indices, found.AttendedIndices)
		})
	}
}

func TestEventService_BulkImportAttendance_NotFound(t *testing.T) {
	svc := NewEventService(newFakeRepo())

	err := svc.BulkImportAttendance(context.Background(), "nosuchcode", []int{0})

	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventService_BulkImportSameDay(t *testing.T) {
	repo := newFakeRepo()
	svc := NewEventService(repo)

	created, err := svc.RegisterEvent(context.Background(), domain.Event{
		Name:         "Autumn Assembly",
		Participants: []string{"S1"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.BulkImportSameDay(context.Background(), created.Code, []string{"NEW1", "NEW2"}))

	found, err := svc.GetEvent(context.Background(), created.Code)
	require.NoError(t, err)
	assert.Equal(t, []string{"NEW1", "NEW2"}, found.TodayList)
}
