package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rollcall-app/rollcall/internal/attendance"
	"github.com/rollcall-app/rollcall/internal/domain"
)

const joinLookupTimeout = 5 * time.Second

// EventGetter is the slice of the event store the hub needs to answer joins.
type EventGetter interface {
	GetEvent(ctx context.Context, code string) (domain.Event, error)
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	room string
}

type outbound struct {
	room string
	data []byte
}

// roomState is the merged attendance state a room has accumulated. It feeds
// join acknowledgements and full-resync answers so late joiners catch up
// without asking every peer, and it only grows: indices and same-day entries
// are union-merged, settings are last-write-wins.
type roomState struct {
	indices  []int
	sameDay  *attendance.SameDayLedger
	settings domain.Settings
}

// Hub is the publish/subscribe bus scoped per event room. Every broadcast is
// echoed to all room members including the sender; clients apply their own
// echo as a no-op because snapshots overwrite idempotently.
type Hub struct {
	events EventGetter

	clientsMutex sync.RWMutex
	rooms        map[string]map[*client]bool
	state        map[string]*roomState

	broadcast  chan outbound
	register   chan *client
	unregister chan *client
}

func NewHub(events EventGetter) *Hub {
	return &Hub{
		events:     events,
		rooms:      make(map[string]map[*client]bool),
		state:      make(map[string]*roomState),
		broadcast:  make(chan outbound),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clientsMutex.Lock()
			if h.rooms[c.room] == nil {
				h.rooms[c.room] = make(map[*client]bool)
			}
			h.rooms[c.room][c] = true
			h.clientsMutex.Unlock()
		case c := <-h.unregister:
			h.clientsMutex.Lock()
			if _, ok := h.rooms[c.room][c]; ok {
				delete(h.rooms[c.room], c)
				close(c.send)
			}
			h.clientsMutex.Unlock()
		case message := <-h.broadcast:
			h.clientsMutex.Lock()
			for c := range h.rooms[message.room] {
				select {
				case c.send <- message.data:
				default:
					close(c.send)
					delete(h.rooms[message.room], c)
				}
			}
			h.clientsMutex.Unlock()
		}
	}
}

// ServeConn runs the read/write pumps for one upgraded connection. The
// connection belongs to no room until its first join message.
func (h *Hub) ServeConn(conn *websocket.Conn) {
	c := &client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	go c.writePump()
	go c.readPump(h)
}

func (c *client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

func (c *client) readPump(h *Hub) {
	defer func() {
		if c.room != "" {
			h.unregister <- c
		}
		c.conn.Close()
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				zap.L().Warn("sync connection read failed", zap.Error(err))
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(Message{Type: TypeError, Error: "malformed message"})
			continue
		}
		if err := msg.Validate(); err != nil {
			c.reply(Message{Type: TypeError, Error: err.Error()})
			continue
		}

		switch msg.Type {
		case TypeJoin:
			h.handleJoin(c, msg.Room)
		case TypeSyncAll:
			h.handleSyncAll(c, msg.Room)
		case TypeAttendance:
			h.handleAttendance(msg.Room, msg.Indices)
		case TypeSameDay:
			h.handleSameDay(msg.Room, msg.IDs)
		case TypeSettings:
			h.handleSettings(msg.Room, *msg.Settings)
		}
	}
}

func (c *client) reply(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) handleJoin(c *client, room string) {
	ctx, cancel := context.WithTimeout(context.Background(), joinLookupTimeout)
	defer cancel()

	event, err := h.events.GetEvent(ctx, room)
	if err != nil {
		zap.L().Info("join for unknown room", zap.String("room", room), zap.Error(err))
		c.reply(Message{Type: TypeError, Room: room, Error: "event not found"})
		return
	}

	h.clientsMutex.Lock()
	state := h.ensureStateLocked(room, event)
	payload := &EventPayload{
		Name:         event.Name,
		Info:         event.Info,
		Participants: event.Participants,
		TodayList:    state.sameDay.IDs(),
		Indices:      state.indices,
		Settings:     state.settings,
	}
	h.clientsMutex.Unlock()

	if c.room == "" {
		c.room = room
		h.register <- c
	}

	c.reply(Message{Type: TypeJoinAck, Room: room, Event: payload})
}

// handleSyncAll answers a recovery request with the room's merged state. The
// server cache stands in for asking every peer to re-broadcast.
func (h *Hub) handleSyncAll(c *client, room string) {
	h.clientsMutex.RLock()
	state, ok := h.state[room]
	if !ok {
		h.clientsMutex.RUnlock()
		c.reply(Message{Type: TypeError, Room: room, Error: "event not found"})
		return
	}
	indices := state.indices
	ids := state.sameDay.IDs()
	settings := state.settings
	h.clientsMutex.RUnlock()

	c.reply(Message{Type: TypeAttendance, Room: room, Indices: indices})
	c.reply(Message{Type: TypeSameDay, Room: room, IDs: ids})
	c.reply(Message{Type: TypeSettings, Room: room, Settings: &settings})
}

func (h *Hub) handleAttendance(room string, indices []int) {
	h.clientsMutex.Lock()
	state, ok := h.state[room]
	if !ok {
		h.clientsMutex.Unlock()
		return
	}
	state.indices = attendance.Merge(state.indices, indices)
	merged := state.indices
	h.clientsMutex.Unlock()

	h.publish(Message{Type: TypeAttendance, Room: room, Indices: merged})
}

func (h *Hub) handleSameDay(room string, ids []string) {
	h.clientsMutex.Lock()
	state, ok := h.state[room]
	if !ok {
		h.clientsMutex.Unlock()
		return
	}
	merged := state.sameDay.MergeAll(ids)
	h.clientsMutex.Unlock()

	h.publish(Message{Type: TypeSameDay, Room: room, IDs: merged})
}

func (h *Hub) handleSettings(room string, settings domain.Settings) {
	settings.Normalize()

	h.clientsMutex.Lock()
	state, ok := h.state[room]
	if !ok {
		h.clientsMutex.Unlock()
		return
	}
	state.settings = settings
	h.clientsMutex.Unlock()

	h.publish(Message{Type: TypeSettings, Room: room, Settings: &settings})
}

// ensureStateLocked seeds a room's merged state from the stored descriptor on
// first join. Bulk-imported attendance and today lists surface here.
func (h *Hub) ensureStateLocked(room string, event domain.Event) *roomState {
	state, ok := h.state[room]
	if !ok {
		settings := event.Settings
		settings.Normalize()
		state = &roomState{
			indices:  attendance.Merge(event.AttendedIndices, nil),
			sameDay:  attendance.NewSameDayLedger(),
			settings: settings,
		}
		state.sameDay.MergeAll(event.TodayList)
		h.state[room] = state
	}

	return state
}

func (h *Hub) publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		zap.L().Error("marshal broadcast", zap.Error(err))
		return
	}
	h.broadcast <- outbound{room: msg.Room, data: data}
}

// RoomClients reports how many connections a room currently has.
func (h *Hub) RoomClients(room string) int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	return len(h.rooms[room])
}
