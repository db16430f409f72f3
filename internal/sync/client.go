package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rollcall-app/rollcall/internal/domain"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrClosed        = errors.New("sync connection closed")
)

// Client is the client side of the sync channel: one websocket connection
// scoped to one event room. Handlers run on the read loop goroutine, one
// message at a time, so a controller behind them sees serialized deltas.
type Client struct {
	conn *websocket.Conn

	writeMutex sync.Mutex

	handlerMutex sync.RWMutex
	onAttendance func(indices []int)
	onSameDay    func(ids []string)
	onSettings   func(settings domain.Settings)

	joinAck chan Message
	done    chan struct{}
	once    sync.Once
}

// Dial connects to a sync endpoint, e.g. ws://host:8080/api/v1/sync.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket.DefaultDialer.DialContext -> %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c := &Client{
		conn:    conn,
		joinAck: make(chan Message, 1),
		done:    make(chan struct{}),
	}

	go c.readLoop()

	return c, nil
}

func (c *Client) Close() error {
	c.once.Do(func() {
		close(c.done)
	})

	return c.conn.Close()
}

// Join subscribes to the event's room and returns the descriptor the server
// acknowledges with. Non-host clients use this as their sole source of
// initial data.
func (c *Client) Join(ctx context.Context, code string) (domain.Event, error) {
	if err := c.write(Message{Type: TypeJoin, Room: code}); err != nil {
		return domain.Event{}, err
	}

	select {
	case msg, ok := <-c.joinAck:
		if !ok {
			return domain.Event{}, ErrClosed
		}
		if msg.Type == TypeError {
			return domain.Event{}, fmt.Errorf("%v: %w", msg.Error, ErrEventNotFound)
		}

		return domain.Event{
			Code:            code,
			Name:            msg.Event.Name,
			Info:            msg.Event.Info,
			Participants:    msg.Event.Participants,
			TodayList:       msg.Event.TodayList,
			AttendedIndices: msg.Event.Indices,
			Settings:        msg.Event.Settings,
		}, nil
	case <-ctx.Done():
		return domain.Event{}, ctx.Err()
	case <-c.done:
		return domain.Event{}, ErrClosed
	}
}

// RequestFullResync asks the room to re-send its current attendance,
// same-day and settings state.
func (c *Client) RequestFullResync(code string) error {
	return c.write(Message{Type: TypeSyncAll, Room: code})
}

func (c *Client) PublishAttendance(code string, indices []int) error {
	return c.write(Message{Type: TypeAttendance, Room: code, Indices: indices})
}

func (c *Client) PublishSameDay(code string, ids []string) error {
	return c.write(Message{Type: TypeSameDay, Room: code, IDs: ids})
}

func (c *Client) PublishSettings(code string, settings domain.Settings) error {
	return c.write(Message{Type: TypeSettings, Room: code, Settings: &settings})
}

func (c *Client) OnAttendanceDelta(handler func(indices []int)) {
	c.handlerMutex.Lock()
	c.onAttendance = handler
	c.handlerMutex.Unlock()
}

func (c *Client) OnSameDayDelta(handler func(ids []string)) {
	c.handlerMutex.Lock()
	c.onSameDay = handler
	c.handlerMutex.Unlock()
}

func (c *Client) OnSettingsDelta(handler func(settings domain.Settings)) {
	c.handlerMutex.Lock()
	c.onSettings = handler
	c.handlerMutex.Unlock()
}

func (c *Client) write(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("json.Marshal -> %w", err)
	}

	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("c.conn.WriteMessage -> %w", err)
	}

	return nil
}

func (c *Client) readLoop() {
	defer func() {
		c.once.Do(func() {
			close(c.done)
		})
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				zap.L().Warn("sync read failed", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			zap.L().Warn("malformed sync message", zap.Error(err))
			continue
		}
		if err := msg.Validate(); err != nil {
			zap.L().Warn("invalid sync message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case TypeJoinAck, TypeError:
			select {
			case c.joinAck <- msg:
			default:
			}
		case TypeAttendance:
			c.handlerMutex.RLock()
			handler := c.onAttendance
			c.handlerMutex.RUnlock()
			if handler != nil {
				handler(msg.Indices)
			}
		case TypeSameDay:
			c.handlerMutex.RLock()
			handler := c.onSameDay
			c.handlerMutex.RUnlock()
			if handler != nil {
				handler(msg.IDs)
			}
		case TypeSettings:
			c.handlerMutex.RLock()
			handler := c.onSettings
			c.handlerMutex.RUnlock()
			if handler != nil {
				handler(*msg.Settings)
			}
		}
	}
}
