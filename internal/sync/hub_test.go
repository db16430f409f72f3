package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-app/rollcall/internal/domain"
)

const waitTimeout = 2 * time.Second

type fakeEvents struct {
	events map[string]domain.Event
}

func (f *fakeEvents) GetEvent(ctx context.Context, code string) (domain.Event, error) {
	event, ok := f.events[code]
	if !ok {
		return domain.Event{}, errors.New("not found")
	}

	return event, nil
}

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub(&fakeEvents{events: map[string]domain.Event{
		"abc123": {
			Code:         "abc123",
			Name:         "Autumn Assembly",
			Participants: []string{"S1", "S2", "S3"},
			Settings:     domain.Settings{AllowSameDay: true},
		},
	}})
	go hub.Run()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.ServeConn(conn)
	}))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialAndJoin(t *testing.T, url string) (*Client, domain.Event) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	event, err := c.Join(ctx, "abc123")
	require.NoError(t, err)

	return c, event
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a frame")
		panic("unreachable")
	}
}

func TestHub_JoinAckCarriesDescriptor(t *testing.T) {
	_, url := newTestHub(t)

	_, event := dialAndJoin(t, url)

	assert.Equal(t, "Autumn Assembly", event.Name)
	assert.Equal(t, []string{"S1", "S2", "S3"}, event.Participants)
	assert.True(t, event.Settings.AllowSameDay)
}

func TestHub_JoinUnknownRoom(t *testing.T) {
	_, url := newTestHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Join(ctx, "nosuchroom")

	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestHub_BroadcastEchoesToEveryMemberIncludingSender(t *testing.T) {
	_, url := newTestHub(t)

	sender, _ := dialAndJoin(t, url)
	receiver, _ := dialAndJoin(t, url)

	senderGot := make(chan []int, 1)
	receiverGot := make(chan []int, 1)
	sender.OnAttendanceDelta(func(indices []int) { senderGot <- indices })
	receiver.OnAttendanceDelta(func(indices []int) { receiverGot <- indices })

	require.NoError(t, sender.PublishAttendance("abc123", []int{1}))

	assert.Equal(t, []int{1}, waitFor(t, senderGot))
	assert.Equal(t, []int{1}, waitFor(t, receiverGot))
}

func TestHub_MergesSnapshotsFromTwoStations(t *testing.T) {
	_, url := newTestHub(t)

	a, _ := dialAndJoin(t, url)
	b, _ := dialAndJoin(t, url)

	got := make(chan []int, 4)
	b.OnAttendanceDelta(func(indices []int) { got <- indices })

	require.NoError(t, a.PublishAttendance("abc123", []int{0}))
	assert.Equal(t, []int{0}, waitFor(t, got))

	// The second snapshot does not know about the first; the room state does.
	require.NoError(t, b.PublishAttendance("abc123", []int{2}))
	assert.Equal(t, []int{0, 2}, waitFor(t, got))
}

func TestHub_SyncAllRepaysAccumulatedState(t *testing.T) {
	_, url := newTestHub(t)

	early, _ := dialAndJoin(t, url)
	require.NoError(t, early.PublishAttendance("abc123", []int{1}))
	require.NoError(t, early.PublishSameDay("abc123", []string{"NEW1"}))

	// Give the hub time to fold the snapshots in.
	echo := make(chan []string, 1)
	early.OnSameDayDelta(func(ids []string) { echo <- ids })
	require.NoError(t, early.PublishSameDay("abc123", []string{"NEW1"}))
	waitFor(t, echo)

	late, event := dialAndJoin(t, url)
	assert.Equal(t, []int{1}, event.AttendedIndices)
	assert.Equal(t, []string{"NEW1"}, event.TodayList)

	gotIndices := make(chan []int, 1)
	gotIDs := make(chan []string, 1)
	gotSettings := make(chan domain.Settings, 1)
	late.OnAttendanceDelta(func(indices []int) { gotIndices <- indices })
	late.OnSameDayDelta(func(ids []string) { gotIDs <- ids })
	late.OnSettingsDelta(func(settings domain.Settings) { gotSettings <- settings })

	require.NoError(t, late.RequestFullResync("abc123"))

	assert.Equal(t, []int{1}, waitFor(t, gotIndices))
	assert.Equal(t, []string{"NEW1"}, waitFor(t, gotIDs))
	assert.True(t, waitFor(t, gotSettings).AllowSameDay)
}

func TestHub_SettingsBroadcastNormalizes(t *testing.T) {
	_, url := newTestHub(t)

	a, _ := dialAndJoin(t, url)
	b, _ := dialAndJoin(t, url)

	got := make(chan domain.Settings, 1)
	b.OnSettingsDelta(func(settings domain.Settings) { got <- settings })

	require.NoError(t, a.PublishSettings("abc123",
		domain.Settings{AllowSameDay: false, AutoRegisterSameDay: true}))

	settings := waitFor(t, got)
	assert.False(t, settings.AllowSameDay)
	assert.False(t, settings.AutoRegisterSameDay)
}

func TestHub_MalformedFrameGetsErrorReply(t *testing.T) {
	_, url := newTestHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"shout"}`)))

	conn.SetReadDeadline(time.Now().Add(waitTimeout))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"error"`)
}

func TestHub_RoomClients(t *testing.T) {
	hub, url := newTestHub(t)

	a, _ := dialAndJoin(t, url)
	dialAndJoin(t, url)

	require.Eventually(t, func() bool {
		return hub.RoomClients("abc123") == 2
	}, waitTimeout, 10*time.Millisecond)

	a.Close()

	require.Eventually(t, func() bool {
		return hub.RoomClients("abc123") == 1
	}, waitTimeout, 10*time.Millisecond)
}
