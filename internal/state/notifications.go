package state

import (
	"sync"
	"time"

	"critiqal/internal/logging"

	"github.com/google/uuid"
)

// NotificationType tags a notification.
type NotificationType string

const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
	NotifyInfo    NotificationType = "info"
	NotifyWarning NotificationType = "warning"
)

const (
	// DefaultNotificationDuration applies when Add is given a zero duration.
	DefaultNotificationDuration = 4000 * time.Millisecond
	// NoExpiry keeps a notification until it is removed.
	NoExpiry time.Duration = -1
)

// Notification is one transient message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	Duration  time.Duration // NoExpiry = never expires
	CreatedAt time.Time
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock schedules expiries. Tests substitute a fake.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// NotificationStore holds the active notifications in creation order.
// A notification goes absent → active → expired or dismissed, and never
// becomes active again.
type NotificationStore struct {
	store           *Writable[[]Notification]
	clock           Clock
	defaultDuration time.Duration

	mu     sync.Mutex
	timers map[string]Timer
	closed bool
}

// NewNotificationStore returns an empty store. A nil clock uses the wall
// clock; a non-positive defaultDuration uses DefaultNotificationDuration.
func NewNotificationStore(clock Clock, defaultDuration time.Duration) *NotificationStore {
	if clock == nil {
		clock = RealClock
	}
	if defaultDuration <= 0 {
		defaultDuration = DefaultNotificationDuration
	}
	return &NotificationStore{
		store:           NewWritable([]Notification{}),
		clock:           clock,
		defaultDuration: defaultDuration,
		timers:          make(map[string]Timer),
	}
}

// Get returns the active notifications.
func (n *NotificationStore) Get() []Notification { return n.store.Get() }

// Subscribe observes the active notifications.
func (n *NotificationStore) Subscribe(fn func([]Notification)) func() {
	return n.store.Subscribe(fn)
}

// Add activates a notification and returns its id. A zero duration uses
// the default; NoExpiry (any negative duration) never expires.
func (n *NotificationStore) Add(typ NotificationType, message string, duration time.Duration) string {
	if duration == 0 {
		duration = n.defaultDuration
	}
	if duration < 0 {
		duration = NoExpiry
	}
	note := Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Message:   message,
		Duration:  duration,
		CreatedAt: n.clock.Now(),
	}

	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		logging.StateWarn("Notification dropped after close: %s", message)
		return note.ID
	}

	n.store.Update(func(list []Notification) []Notification {
		out := make([]Notification, 0, len(list)+1)
		out = append(out, list...)
		return append(out, note)
	})
	logging.StateDebug("Notification %s added (%s, %v)", note.ID, typ, duration)

	if duration != NoExpiry {
		id := note.ID
		n.mu.Lock()
		if !n.closed {
			n.timers[id] = n.clock.AfterFunc(duration, func() { n.expire(id) })
		}
		n.mu.Unlock()
	}
	return note.ID
}

// Remove dismisses a notification and cancels its expiry.
func (n *NotificationStore) Remove(id string) {
	n.mu.Lock()
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	n.mu.Unlock()
	n.drop(id)
}

func (n *NotificationStore) expire(id string) {
	n.mu.Lock()
	if _, ok := n.timers[id]; !ok {
		n.mu.Unlock()
		return
	}
	delete(n.timers, id)
	n.mu.Unlock()
	n.drop(id)
}

func (n *NotificationStore) drop(id string) {
	n.store.Update(func(list []Notification) []Notification {
		out := make([]Notification, 0, len(list))
		for _, note := range list {
			if note.ID != id {
				out = append(out, note)
			}
		}
		return out
	})
}

// Clear dismisses every notification.
func (n *NotificationStore) Clear() {
	n.stopTimers()
	n.store.Set([]Notification{})
}

// Close stops every pending expiry. Later Adds are dropped.
func (n *NotificationStore) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.stopTimers()
}

func (n *NotificationStore) stopTimers() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
}

// Success adds a success notification.
func (n *NotificationStore) Success(message string, duration time.Duration) string {
	return n.Add(NotifySuccess, message, duration)
}

// Error adds an error notification.
func (n *NotificationStore) Error(message string, duration time.Duration) string {
	return n.Add(NotifyError, message, duration)
}

// Info adds an info notification.
func (n *NotificationStore) Info(message string, duration time.Duration) string {
	return n.Add(NotifyInfo, message, duration)
}

// Warning adds a warning notification.
func (n *NotificationStore) Warning(message string, duration time.Duration) string {
	return n.Add(NotifyWarning, message, duration)
}
