// Package typing tracks who is currently typing in each channel.
package typing

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/samber/mo"

	"drocsid/core/clock"
)

const (
	DefaultTimeout = 8 * time.Second
	// SendInterval throttles the local user's own typing notifications
	SendInterval = 5 * time.Second

	changeBuffer = 64
)

type entry struct {
	handle    clock.Handle
	expiresAt time.Time
}

// Tracker holds ephemeral typing entries that expire unless refreshed. Each
// channel's user set is replaced wholesale on every change.
type Tracker struct {
	sched   *clock.Scheduler
	timeout time.Duration
	changes chan string

	mu       sync.Mutex
	channels map[string]map[string]entry
	lastSent map[string]time.Time
}

func NewTracker(clk clock.Clock, timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{
		sched:    clock.NewScheduler(clk),
		timeout:  timeout,
		changes:  make(chan string, changeBuffer),
		channels: make(map[string]map[string]entry),
		lastSent: make(map[string]time.Time),
	}
}

// Changes receives the id of every channel whose typing set changed. Sends
// never block; a slow reader misses intermediate notifications only.
func (t *Tracker) Changes() <-chan string {
	return t.changes
}

// Start records that userID is typing in channelID, restarting its expiry
func (t *Tracker) Start(channelID, userID string) {
	t.mu.Lock()
	users := maps.Clone(t.channels[channelID])
	if users == nil {
		users = make(map[string]entry)
	}
	if existing, ok := users[userID]; ok {
		t.sched.Cancel(existing.handle)
	}
	handle := t.sched.Schedule(t.timeout, func() { t.expire(channelID, userID) })
	users[userID] = entry{handle: handle, expiresAt: t.sched.Now().Add(t.timeout)}
	t.channels[channelID] = users
	t.mu.Unlock()

	t.notify(channelID)
}

// Stop removes userID's entry, e.g. when their message arrives
func (t *Tracker) Stop(channelID, userID string) bool {
	t.mu.Lock()
	existing, ok := t.channels[channelID][userID]
	if !ok {
		t.mu.Unlock()
		return false
	}
	t.sched.Cancel(existing.handle)
	t.removeLocked(channelID, userID)
	t.mu.Unlock()

	t.notify(channelID)
	return true
}

func (t *Tracker) expire(channelID, userID string) {
	t.mu.Lock()
	if _, ok := t.channels[channelID][userID]; !ok {
		t.mu.Unlock()
		return
	}
	t.removeLocked(channelID, userID)
	t.mu.Unlock()

	t.notify(channelID)
}

func (t *Tracker) removeLocked(channelID, userID string) {
	users := maps.Clone(t.channels[channelID])
	delete(users, userID)
	if len(users) == 0 {
		delete(t.channels, channelID)
		return
	}
	t.channels[channelID] = users
}

// Typing lists the users typing in channelID, sorted by id
func (t *Tracker) Typing(channelID string) []string {
	t.mu.Lock()
	users := t.channels[channelID]
	t.mu.Unlock()

	return slices.Sorted(maps.Keys(users))
}

func (t *Tracker) ExpiresAt(channelID, userID string) mo.Option[time.Time] {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.channels[channelID][userID]
	if !ok {
		return mo.None[time.Time]()
	}
	return mo.Some(e.expiresAt)
}

// ClearChannel drops every entry of channelID
func (t *Tracker) ClearChannel(channelID string) {
	t.mu.Lock()
	users, ok := t.channels[channelID]
	for _, e := range users {
		t.sched.Cancel(e.handle)
	}
	delete(t.channels, channelID)
	delete(t.lastSent, channelID)
	t.mu.Unlock()

	if ok {
		t.notify(channelID)
	}
}

// Reset drops all entries and cancels their timers
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.sched.CancelAll()
	cleared := slices.Collect(maps.Keys(t.channels))
	t.channels = make(map[string]map[string]entry)
	t.lastSent = make(map[string]time.Time)
	t.mu.Unlock()

	for _, channelID := range cleared {
		t.notify(channelID)
	}
}

// ShouldSend reports whether a local typing notification for channelID is due,
// and records it as sent when it is.
func (t *Tracker) ShouldSend(channelID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.sched.Now()
	if last, ok := t.lastSent[channelID]; ok && now.Sub(last) < SendInterval {
		return false
	}
	t.lastSent[channelID] = now
	return true
}

func (t *Tracker) notify(channelID string) {
	select {
	case t.changes <- channelID:
	default:
	}
}
