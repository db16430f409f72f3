package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/rollcall-app/rollcall/internal/api/handler/v1"
	"github.com/rollcall-app/rollcall/internal/domain"
	"github.com/rollcall-app/rollcall/internal/export"
	"github.com/rollcall-app/rollcall/internal/service"
)

type fakeEventService struct {
	events map[string]domain.Event
}

func newFakeEventService() *fakeEventService {
	return &fakeEventService{events: make(map[string]domain.Event)}
}

func (s *fakeEventService) RegisterEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	event.Code = "abc123"
	s.events[event.Code] = event

	return event, nil
}

func (s *fakeEventService) GetEvent(ctx context.Context, code string) (domain.Event, error) {
	event, ok := s.events[code]
	if !ok {
		return domain.Event{}, service.ErrEventNotFound
	}

	return event, nil
}

func (s *fakeEventService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return nil, nil
}

func (s *fakeEventService) BulkImportAttendance(ctx context.Context, code string, indices []int) error {
	return nil
}

func (s *fakeEventService) BulkImportSameDay(ctx context.Context, code string, ids []string) error {
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeEventService) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()

	svc := newFakeEventService()
	handler := v1.NewEventHandler(svc)
	router.POST("/api/v1/events", handler.HandleRegisterEvent)
	router.GET("/api/v1/events/:code", handler.HandleGetEvent)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, svc
}

func TestClient_GetEvent(t *testing.T) {
	srv, svc := newTestServer(t)
	svc.events["abc123"] = domain.Event{
		Code:            "abc123",
		Name:            "Autumn Assembly",
		Participants:    []string{"S1", "S2", "S3"},
		TodayList:       []string{"NEW1"},
		AttendedIndices: []int{0, 2},
		Settings:        domain.Settings{AllowSameDay: true},
	}

	event, err := New(srv.URL).GetEvent(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "Autumn Assembly", event.Name)
	assert.Equal(t, []string{"S1", "S2", "S3"}, event.Participants)
	assert.Equal(t, []string{"NEW1"}, event.TodayList)
	// The stored attendance snapshot survives the HTTP round trip, so a host
	// bootstrapping from the store starts from it instead of from zero.
	assert.Equal(t, []int{0, 2}, event.AttendedIndices)
	assert.True(t, event.Settings.AllowSameDay)
}

func TestClient_GetEvent_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := New(srv.URL).GetEvent(context.Background(), "nosuchcode")

	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestClient_RegisterEvent(t *testing.T) {
	srv, svc := newTestServer(t)

	doc := export.Document{
		EventName: "Autumn Assembly",
		Participants: domain.ParticipantList{
			{ID: "S1"},
			{ID: "S2", Attended: true},
		},
		TodayList: []string{"NEW1"},
		Settings:  domain.Settings{AllowSameDay: true},
	}

	created, err := New(srv.URL).RegisterEvent(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, "abc123", created.Code)

	stored := svc.events["abc123"]
	assert.Equal(t, []string{"S1", "S2"}, stored.Participants)
	assert.Equal(t, []int{1}, stored.AttendedIndices)
	assert.Equal(t, []string{"NEW1"}, stored.TodayList)
}

func TestClient_RegisterEvent_Rejected(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := New(srv.URL).RegisterEvent(context.Background(), export.Document{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}
