// Package readstate keeps per-channel read pointers and acknowledges them to
// the server.
package readstate

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/samber/mo"

	"drocsid/core"
	"drocsid/core/clock"
	"drocsid/core/log"
	"drocsid/core/metrics"
	"drocsid/models"
)

const (
	DefaultDebounce = 500 * time.Millisecond
	ackTimeout      = 10 * time.Second
)

// Acker sends read acknowledgements to the server
type Acker interface {
	AckMessage(ctx context.Context, channelID, messageID string) error
}

// LatestSource resolves the newest known message id of a channel
type LatestSource interface {
	LatestMessageID(channelID string) string
}

// Submitter runs fire-and-forget work, e.g. a *workerpool.WorkerPool
type Submitter interface {
	Submit(task func())
}

type pendingAck struct {
	handle    clock.Handle
	messageID string
}

// Tracker owns read pointers. Pointers only ever move forward; acks to the
// server are debounced per channel so a burst of messages yields one request.
type Tracker struct {
	acker    Acker
	source   LatestSource
	pool     Submitter
	sched    *clock.Scheduler
	debounce time.Duration

	mu      sync.Mutex
	states  map[string]models.ReadState
	pending map[string]pendingAck
}

func NewTracker(acker Acker, source LatestSource, pool Submitter, clk clock.Clock, debounce time.Duration) *Tracker {
	return &Tracker{
		acker:    acker,
		source:   source,
		pool:     pool,
		sched:    clock.NewScheduler(clk),
		debounce: debounce,
		states:   make(map[string]models.ReadState),
		pending:  make(map[string]pendingAck),
	}
}

// Seed merges read states from a session snapshot without moving any pointer backward
func (t *Tracker) Seed(states []models.ReadState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := maps.Clone(t.states)
	for _, s := range states {
		current, ok := next[s.ChannelID]
		if ok && core.IsNewer(current.LastReadMessageID, s.LastReadMessageID) {
			continue
		}
		next[s.ChannelID] = s
	}
	t.states = next
}

func (t *Tracker) Get(channelID string) mo.Option[models.ReadState] {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[channelID]
	if !ok {
		return mo.None[models.ReadState]()
	}
	return mo.Some(s)
}

// States returns every known read state ordered by channel id
func (t *Tracker) States() []models.ReadState {
	t.mu.Lock()
	states := t.states
	t.mu.Unlock()

	out := make([]models.ReadState, 0, len(states))
	for _, id := range slices.Sorted(maps.Keys(states)) {
		out = append(out, states[id])
	}
	return out
}

// Acknowledge marks channelID as read up to its newest known message. It
// returns false when the pointer is already there.
func (t *Tracker) Acknowledge(channelID string) bool {
	latest := t.source.LatestMessageID(channelID)
	if latest == "" {
		return false
	}

	t.mu.Lock()
	current := t.states[channelID]
	if !core.IsNewer(latest, current.LastReadMessageID) {
		t.mu.Unlock()
		return false
	}
	next := maps.Clone(t.states)
	next[channelID] = models.ReadState{ChannelID: channelID, LastReadMessageID: latest}
	t.states = next
	t.scheduleAckLocked(channelID, latest)
	t.mu.Unlock()

	log.Debug("Read pointer advanced", "channel_id", channelID, "message_id", latest)
	return true
}

// ApplyServerAck reconciles an acknowledgement made elsewhere (another device
// or an echo of our own). Stale acks are ignored.
func (t *Tracker) ApplyServerAck(ack models.MessageAckPayload) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.states[ack.ChannelID]
	if core.IsNewer(current.LastReadMessageID, ack.MessageID) {
		return false
	}
	next := maps.Clone(t.states)
	next[ack.ChannelID] = models.ReadState{
		ChannelID:         ack.ChannelID,
		LastReadMessageID: ack.MessageID,
		MentionCount:      ack.MentionCount,
	}
	t.states = next
	return true
}

// AddMention bumps the unread mention counter of channelID
func (t *Tracker) AddMention(channelID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := maps.Clone(t.states)
	s := next[channelID]
	s.ChannelID = channelID
	s.MentionCount++
	next[channelID] = s
	t.states = next
	return s.MentionCount
}

// IsUnread reports whether lastMessageID is past the read pointer
func (t *Tracker) IsUnread(channelID, lastMessageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return core.IsNewer(lastMessageID, t.states[channelID].LastReadMessageID)
}

// Forget drops the state of a deleted channel
func (t *Tracker) Forget(channelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.pending[channelID]; ok {
		t.sched.Cancel(p.handle)
		delete(t.pending, channelID)
	}
	if _, ok := t.states[channelID]; ok {
		next := maps.Clone(t.states)
		delete(next, channelID)
		t.states = next
	}
}

// Flush sends every debounced ack right away
func (t *Tracker) Flush() int {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[string]pendingAck)
	for _, p := range pending {
		t.sched.Cancel(p.handle)
	}
	t.mu.Unlock()

	for channelID, p := range pending {
		t.send(channelID, p.messageID)
	}
	return len(pending)
}

// Reset drops all state and pending acks, e.g. on logout
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sched.CancelAll()
	t.pending = make(map[string]pendingAck)
	t.states = make(map[string]models.ReadState)
}

func (t *Tracker) scheduleAckLocked(channelID, messageID string) {
	if p, ok := t.pending[channelID]; ok {
		t.sched.Cancel(p.handle)
	}
	if t.debounce <= 0 {
		delete(t.pending, channelID)
		t.send(channelID, messageID)
		return
	}
	handle := t.sched.Schedule(t.debounce, func() {
		t.mu.Lock()
		p, ok := t.pending[channelID]
		if !ok || p.messageID != messageID {
			t.mu.Unlock()
			return
		}
		delete(t.pending, channelID)
		t.mu.Unlock()

		t.send(channelID, messageID)
	})
	t.pending[channelID] = pendingAck{handle: handle, messageID: messageID}
}

func (t *Tracker) send(channelID, messageID string) {
	t.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
		defer cancel()

		if err := t.acker.AckMessage(ctx, channelID, messageID); err != nil {
			metrics.AcksSent.WithLabelValues("failed").Inc()
			log.Warn("⚠️ Failed to acknowledge message", "channel_id", channelID, "message_id", messageID, "error", err)
			return
		}
		metrics.AcksSent.WithLabelValues("ok").Inc()
	})
}
