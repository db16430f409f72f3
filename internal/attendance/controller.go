package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rollcall-app/rollcall/internal/domain"
)

const defaultLoadTimeout = 5 * time.Second

var (
	ErrNotReady    = errors.New("controller is not ready")
	ErrUnavailable = errors.New("event is unavailable, discard the session")
	ErrNotHost     = errors.New("only the host can change settings")
	ErrEmptyID     = errors.New("participant id is empty")
)

// Role decides where a controller obtains its initial event data.
type Role int

const (
	// RoleHost owns the authoritative fetch from the event store.
	RoleHost Role = iota
	// RoleViewer bootstraps solely from the sync channel join.
	RoleViewer
)

// State is the controller lifecycle. Unavailable is terminal: once entered,
// every operation fails and the caller must build a new session.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of a check-in attempt. Validation outcomes are
// values, not errors: they are resolved inside the controller and surfaced to
// the operator as notices.
type Outcome int

const (
	// OutcomeAttended means a roster entry was flagged and broadcast.
	OutcomeAttended Outcome = iota
	// OutcomeSameDayAdded means the id entered the same-day ledger.
	OutcomeSameDayAdded
	// OutcomeAlreadyRecorded means the id was attended or ledgered before.
	OutcomeAlreadyRecorded
	// OutcomeNeedsConfirmation means same-day check-in is allowed but not
	// automatic; call ConfirmSameDay after the operator approves.
	OutcomeNeedsConfirmation
	// OutcomePolicyRejected means same-day check-in is disabled.
	OutcomePolicyRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAttended:
		return "attended"
	case OutcomeSameDayAdded:
		return "same-day added"
	case OutcomeAlreadyRecorded:
		return "already recorded"
	case OutcomeNeedsConfirmation:
		return "needs confirmation"
	case OutcomePolicyRejected:
		return "same-day check-in not allowed"
	default:
		return "unknown"
	}
}

// EventStore is the slice of the event store a host controller needs.
type EventStore interface {
	GetEvent(ctx context.Context, code string) (domain.Event, error)
}

// Channel is the sync channel a controller publishes to and receives from.
// Publishes are fire-and-forget: delivery is at-least-once and recovery goes
// through a full resync, not per-message retry.
type Channel interface {
	Join(ctx context.Context, code string) (domain.Event, error)
	RequestFullResync(code string) error
	PublishAttendance(code string, indices []int) error
	PublishSameDay(code string, ids []string) error
	PublishSettings(code string, settings domain.Settings) error
	OnAttendanceDelta(handler func(indices []int))
	OnSameDayDelta(handler func(ids []string))
	OnSettingsDelta(handler func(settings domain.Settings))
}

// Controller owns the attendance state of one viewing session: the roster,
// the same-day ledger and the settings, kept converged with every other
// client in the room through full-snapshot messages on the sync channel.
//
// All operations and inbound deltas are serialized through one mutex, the
// equivalent of the single event loop each client runs. Concurrency exists
// only across clients, mediated by the channel.
type Controller struct {
	mu sync.Mutex

	code    string
	role    Role
	store   EventStore
	channel Channel

	state    State
	name     string
	info     string
	roster   *Roster
	ledger   *SameDayLedger
	settings domain.Settings

	loadTimeout time.Duration
}

type Option func(*Controller)

// WithLoadTimeout bounds the Loading state. A join or store fetch that does
// not answer within the window moves the controller to Unavailable.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.loadTimeout = d
	}
}

func NewController(code string, role Role, store EventStore, channel Channel, opts ...Option) *Controller {
	c := &Controller{
		code:        code,
		role:        role,
		store:       store,
		channel:     channel,
		state:       StateUninitialized,
		ledger:      NewSameDayLedger(),
		loadTimeout: defaultLoadTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Load populates the roster and settings and moves the controller to Ready.
// Hosts fetch from the event store; viewers join the room and take the
// descriptor from the acknowledgement. Any failure is terminal.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUninitialized {
		state := c.state
		c.mu.Unlock()

		return fmt.Errorf("load from state %v: %w", state, ErrNotReady)
	}
	c.state = StateLoading
	c.mu.Unlock()

	c.channel.OnAttendanceDelta(c.applyAttendanceDelta)
	c.channel.OnSameDayDelta(c.applySameDayDelta)
	c.channel.OnSettingsDelta(c.applySettingsDelta)

	ctx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()

	var (
		event domain.Event
		err   error
	)
	if c.role == RoleHost {
		event, err = c.store.GetEvent(ctx, c.code)
		if err != nil {
			c.fail()

			return fmt.Errorf("c.store.GetEvent -> %w", err)
		}

		// The host still enters the room, so its broadcasts reach the other
		// members and their deltas come back. The store stays authoritative
		// for the initial data; the join acknowledgement is discarded.
		if _, err = c.channel.Join(ctx, c.code); err != nil {
			c.fail()

			return fmt.Errorf("c.channel.Join -> %w", err)
		}
	} else {
		event, err = c.channel.Join(ctx, c.code)
		if err != nil {
			c.fail()

			return fmt.Errorf("c.channel.Join -> %w", err)
		}
	}

	c.mu.Lock()
	c.name = event.Name
	c.info = event.Info
	c.roster = LoadRoster(event.Participants)
	c.roster.ApplyIndices(event.AttendedIndices)
	c.ledger = NewSameDayLedger()
	c.ledger.MergeAll(event.TodayList)
	c.settings = event.Settings
	c.settings.Normalize()
	c.state = StateReady
	c.mu.Unlock()

	// The join acknowledgement only carries the descriptor, and a host's
	// store snapshot can trail what the room accumulated while it was away.
	// Either way, pull the live attendance and same-day state now.
	if err := c.channel.RequestFullResync(c.code); err != nil {
		zap.L().Warn("full resync request failed", zap.String("event", c.code), zap.Error(err))
	}

	return nil
}

func (c *Controller) fail() {
	c.mu.Lock()
	c.state = StateUnavailable
	c.mu.Unlock()
}

// RecordAttendance checks a participant in. Roster members are flagged and
// the full index snapshot is broadcast; unknown ids go through the same-day
// policy. The outcome is only meaningful when the error is nil.
func (c *Controller) RecordAttendance(id string) (Outcome, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, ErrEmptyID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return 0, err
	}

	if c.roster.Contains(id) {
		if !c.roster.MarkAttended(id) {
			return OutcomeAlreadyRecorded, nil
		}
		c.publishAttendanceLocked()

		return OutcomeAttended, nil
	}

	if c.ledger.Contains(id) {
		return OutcomeAlreadyRecorded, nil
	}

	if !c.settings.AllowSameDay {
		return OutcomePolicyRejected, nil
	}

	if !c.settings.AutoRegisterSameDay {
		return OutcomeNeedsConfirmation, nil
	}

	c.addSameDayLocked(id)

	return OutcomeSameDayAdded, nil
}

// ConfirmSameDay completes a check-in that returned OutcomeNeedsConfirmation
// after the operator approved it.
func (c *Controller) ConfirmSameDay(id string) (Outcome, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, ErrEmptyID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return 0, err
	}

	if !c.settings.AllowSameDay {
		return OutcomePolicyRejected, nil
	}
	if c.roster.IsAttended(id) || c.ledger.Contains(id) {
		return OutcomeAlreadyRecorded, nil
	}

	c.addSameDayLocked(id)

	return OutcomeSameDayAdded, nil
}

// ChangeSettings applies a host-side settings edit and broadcasts it.
func (c *Controller) ChangeSettings(settings domain.Settings) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return err
	}
	if c.role != RoleHost {
		return ErrNotHost
	}

	settings.Normalize()
	c.settings = settings

	if err := c.channel.PublishSettings(c.code, settings); err != nil {
		zap.L().Warn("settings publish failed", zap.String("event", c.code), zap.Error(err))
	}

	return nil
}

// Resync asks the room for a fresh broadcast of all state. The presentation
// layer calls this after a reconnect or whenever the operator suspects the
// client missed messages.
func (c *Controller) Resync() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return err
	}

	if err := c.channel.RequestFullResync(c.code); err != nil {
		return fmt.Errorf("c.channel.RequestFullResync -> %w", err)
	}

	return nil
}

func (c *Controller) ready() error {
	switch c.state {
	case StateReady:
		return nil
	case StateUnavailable:
		return ErrUnavailable
	default:
		return ErrNotReady
	}
}

func (c *Controller) publishAttendanceLocked() {
	if err := c.channel.PublishAttendance(c.code, Encode(c.roster)); err != nil {
		zap.L().Warn("attendance publish failed", zap.String("event", c.code), zap.Error(err))
	}
}

func (c *Controller) addSameDayLocked(id string) {
	c.ledger.Add(id)
	if err := c.channel.PublishSameDay(c.code, c.ledger.IDs()); err != nil {
		zap.L().Warn("same-day publish failed", zap.String("event", c.code), zap.Error(err))
	}
}

// applyAttendanceDelta folds an inbound index snapshot into the roster. The
// remote snapshot is merged with the local one before the overwrite, so a
// local change whose echo has not come back yet cannot be erased by an older
// remote snapshot. Self-originated echoes reduce to a no-op.
func (c *Controller) applyAttendanceDelta(indices []int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return
	}

	c.roster.ApplyIndices(Merge(indices, c.roster.SnapshotIndices()))
}

func (c *Controller) applySameDayDelta(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return
	}

	c.ledger.MergeAll(ids)
}

// applySettingsDelta replaces local settings. Settings edits are
// host-authoritative and rare, so last write wins.
func (c *Controller) applySettingsDelta(settings domain.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return
	}

	settings.Normalize()
	c.settings = settings
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Controller) EventName() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.name
}

func (c *Controller) EventInfo() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.info
}

func (c *Controller) Settings() domain.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.settings
}

// Attendees returns the roster contents in load order.
func (c *Controller) Attendees() []domain.Attendee {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.roster == nil {
		return nil
	}

	return c.roster.Entries()
}

// SameDay returns the ledger contents in insertion order.
func (c *Controller) SameDay() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ledger.IDs()
}

// SnapshotIndices returns the current attended index snapshot.
func (c *Controller) SnapshotIndices() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.roster == nil {
		return nil
	}

	return c.roster.SnapshotIndices()
}

// Snapshot assembles the full session state as an event descriptor, the shape
// the export formats and the import endpoint share.
func (c *Controller) Snapshot() domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	event := domain.Event{
		Code:     c.code,
		Name:     c.name,
		Info:     c.info,
		Settings: c.settings,
	}
	if c.roster != nil {
		event.Participants = c.roster.IDs()
		event.AttendedIndices = c.roster.SnapshotIndices()
	}
	event.TodayList = c.ledger.IDs()

	return event
}
