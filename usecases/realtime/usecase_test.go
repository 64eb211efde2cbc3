package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"drocsid/clients/api"
	"drocsid/clients/gateway"
	"drocsid/clients/localstore"
	"drocsid/core"
	"drocsid/core/clock"
	"drocsid/models"
	"drocsid/services/cache"
	"drocsid/services/notifications"
	"drocsid/services/readstate"
	"drocsid/services/store"
	"drocsid/services/typing"
)

var (
	alice = models.User{ID: "u1", Username: "alice"}
	bob   = models.User{ID: "u2", Username: "bob"}
)

type fakeGateway struct {
	events chan gateway.Event

	mu        sync.Mutex
	presences []models.PresenceStatus
}

func (g *fakeGateway) Events() <-chan gateway.Event {
	return g.events
}

func (g *fakeGateway) Status() gateway.Status {
	return gateway.Status{State: gateway.StateConnected, ConnectionID: "conn-1", Attempt: 0}
}

func (g *fakeGateway) UpdatePresence(status models.PresenceStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.presences = append(g.presences, status)
}

type fakeTypingSender struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (s *fakeTypingSender) SendTyping(_ context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, channelID)
	return s.err
}

type inlinePool struct{}

func (inlinePool) Submit(task func()) {
	task()
}

type recordingGuard struct {
	errs []error
}

func (g *recordingGuard) GuardEvent(_ string, handle func() error) {
	if err := handle(); err != nil {
		g.errs = append(g.errs, err)
	}
}

type fixture struct {
	uc       *RealtimeUseCase
	store    *store.Store
	remote   *store.MockRemote
	typing   *typing.Tracker
	reads    *readstate.Tracker
	acker    *readstate.MockAcker
	policy   *notifications.Evaluator
	notifier *notifications.MockNotifier
	gateway  *fakeGateway
	sender   *fakeTypingSender
	kv       *localstore.MemoryStore
	guard    *recordingGuard
	clock    *clock.FakeClock
}

func createTestFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		remote:   &store.MockRemote{},
		acker:    &readstate.MockAcker{},
		notifier: &notifications.MockNotifier{},
		gateway:  &fakeGateway{events: make(chan gateway.Event, 16)},
		sender:   &fakeTypingSender{},
		kv:       localstore.NewMemoryStore(),
		guard:    &recordingGuard{},
		clock:    clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	f.store = store.NewStore(f.remote, cache.NewGovernor(cache.DefaultCapacity))
	f.typing = typing.NewTracker(f.clock, typing.DefaultTimeout)
	f.reads = readstate.NewTracker(f.acker, f.store, inlinePool{}, f.clock, readstate.DefaultDebounce)

	policy, err := notifications.NewEvaluator(f.kv)
	require.NoError(t, err)
	f.policy = policy

	f.uc = NewRealtimeUseCase(f.gateway, f.store, f.typing, f.reads, f.policy, f.notifier, f.sender, f.kv, inlinePool{}, f.guard)
	return f
}

func event(t *testing.T, name string, payload any) gateway.Event {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return gateway.Event{Name: name, Data: data}
}

func ptr[T any](v T) *T {
	return &v
}

func message(channelID, id string, author models.User, content string) models.Message {
	return models.Message{ID: id, ChannelID: channelID, Author: author, Content: content}
}

func readyPayload() models.ReadyPayload {
	return models.ReadyPayload{
		SessionID: "sess-1",
		User:      alice,
		Servers:   []models.Server{{ID: "s1", Name: "Home"}},
		Channels: []models.Channel{
			{ID: "c1", Type: models.ChannelTypeText, ServerID: ptr("s1"), Name: "general", LastMessageID: ptr("80")},
			{ID: "c2", Type: models.ChannelTypeText, ServerID: ptr("s1"), Name: "random", LastMessageID: ptr("50")},
			{ID: "d1", Type: models.ChannelTypeDM, Recipients: []models.User{bob}},
		},
		ReadStates: []models.ReadState{
			{ChannelID: "c1", LastReadMessageID: "80"},
			{ChannelID: "c2", LastReadMessageID: "50"},
		},
	}
}

func (f *fixture) ready(t *testing.T) {
	t.Helper()
	require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventReady, readyPayload())))
}

func (f *fixture) activate(t *testing.T, channelID string, window ...models.Message) {
	t.Helper()
	f.remote.On("ListMessages", mock.Anything, channelID, "", api.DefaultPageSize).Return(window, nil).Once()
	require.NoError(t, f.uc.ActivateChannel(context.Background(), channelID))
}

func TestHandleEvent_ActiveChannelAck(t *testing.T) {
	f := createTestFixture(t)
	f.ready(t)
	f.activate(t, "c1", message("c1", "80", bob, "earlier"))
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	f.acker.On("AckMessage", mock.Anything, "c1", "90").Return(nil).Once()

	require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventMessageCreate, message("c1", "90", bob, "new"))))
	assert.Equal(t, "90", f.reads.Get("c1").MustGet().LastReadMessageID)

	f.clock.Advance(readstate.DefaultDebounce)
	f.acker.AssertExpectations(t)

	require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventMessageAck,
		models.MessageAckPayload{ChannelID: "c1", MessageID: "85"})))
	assert.Equal(t, "90", f.reads.Get("c1").MustGet().LastReadMessageID)
	assert.False(t, f.uc.IsUnread("c1"))
}

func TestHandleEvent_OwnMessageInActiveChannel(t *testing.T) {
	f := createTestFixture(t)
	f.ready(t)
	f.activate(t, "c1", message("c1", "80", bob, "earlier"))
	f.acker.On("AckMessage", mock.Anything, "c1", "90").Return(nil).Once()

	require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventMessageCreate, message("c1", "90", alice, "mine"))))

	assert.Equal(t, "90", f.reads.Get("c1").MustGet().LastReadMessageID)
	assert.False(t, f.uc.IsUnread("c1"))
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)

	f.clock.Advance(readstate.DefaultDebounce)
	f.acker.AssertExpectations(t)
}

func TestHandleEvent_Notifications(t *testing.T) {
	t.Run("mention in background channel alerts and counts", func(t *testing.T) {
		f := createTestFixture(t)
		f.ready(t)
		f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(a models.Alert) bool {
			return a.Kind == models.AlertMention && a.ChannelName == "#random" && a.ServerID == "s1"
		})).Return(nil).Once()

		require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventMessageCreate,
			message("c2", "60", bob, "hey @alice"))))

		f.notifier.AssertExpectations(t)
		assert.Equal(t, 1, f.reads.Get("c2").MustGet().MentionCount)
		assert.True(t, f.uc.IsUnread("c2"))
	})

	t.Run("do not disturb suppresses mention alerts", func(t *testing.T) {
		f := createTestFixture(t)
		f.ready(t)
		require.NoError(t, f.uc.SetStatus(models.PresenceDND))

		require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventMessageCreate,
			message("c2", "60", bob, "@alice urgent"))))

		f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
		assert.Equal(t, 1, f.reads.Get("c2").MustGet().MentionCount)
	})

	t.Run("replayed message does not alert twice", func(t *testing.T) {
		f := createTestFixture(t)
		f.ready(t)
		f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()
		evt := event(t, models.EventMessageCreate, message("c2", "60", bob, "hi"))

		require.NoError(t, f.uc.HandleEvent(context.Background(), evt))
		require.NoError(t, f.uc.HandleEvent(context.Background(), evt))

		f.notifier.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("out of order messages each alert", func(t *testing.T) {
		f := createTestFixture(t)
		f.ready(t)
		f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventMessageCreate,
			message("c2", "62", bob, "@alice second"))))
		require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventMessageCreate,
			message("c2", "61", bob, "@alice first"))))

		f.notifier.AssertNumberOfCalls(t, "Notify", 2)
		assert.Equal(t, 2, f.reads.Get("c2").MustGet().MentionCount)
		assert.Equal(t, "62", f.store.LatestMessageID("c2"))
	})

	t.Run("own messages never alert", func(t *testing.T) {
		f := createTestFixture(t)
		f.ready(t)

		require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventMessageCreate,
			message("c2", "60", alice, "@everyone"))))
		f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})

	t.Run("alert navigates to its channel", func(t *testing.T) {
		f := createTestFixture(t)
		f.ready(t)
		var alert models.Alert
		f.notifier.On("Notify", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			alert = args.Get(1).(models.Alert)
		}).Return(errors.New("no display"))
		f.remote.On("ListMessages", mock.Anything, "d1", "", api.DefaultPageSize).
			Return([]models.Message{message("d1", "70", bob, "psst")}, nil).Once()
		f.acker.On("AckMessage", mock.Anything, "d1", "70").Return(nil)

		require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventMessageCreate,
			message("d1", "70", bob, "psst"))))
		require.NotNil(t, alert.Navigate)
		assert.Equal(t, "bob", alert.ChannelName)

		alert.Navigate()
		assert.Equal(t, "d1", f.uc.ActiveChannel().MustGet())
		assert.True(t, f.store.IsCached("d1"))
	})
}

func TestHandleEvent_Typing(t *testing.T) {
	f := createTestFixture(t)
	f.ready(t)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventTypingStart,
		models.TypingStartPayload{ChannelID: "c2", UserID: "u2"})))
	require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventTypingStart,
		models.TypingStartPayload{ChannelID: "c2", UserID: "u1"})))
	assert.Equal(t, []string{"u2"}, f.typing.Typing("c2"))

	require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventMessageCreate,
		message("c2", "60", bob, "done typing"))))
	assert.Empty(t, f.typing.Typing("c2"))
}

func TestHandleEvent_Reconnect(t *testing.T) {
	f := createTestFixture(t)
	f.ready(t)
	f.activate(t, "c1", message("c1", "80", bob, "hello"))
	f.typing.Start("c1", "u2")

	f.remote.On("ListMessages", mock.Anything, "c1", "", api.DefaultPageSize).
		Return([]models.Message{message("c1", "80", bob, "hello"), message("c1", "81", bob, "missed")}, nil).Once()
	f.acker.On("AckMessage", mock.Anything, "c1", "81").Return(nil)

	f.ready(t)

	assert.Equal(t, 2, f.uc.Sessions())
	msgs, ok := f.store.Messages("c1")
	require.True(t, ok)
	assert.Len(t, msgs, 2)
	assert.Equal(t, "81", f.reads.Get("c1").MustGet().LastReadMessageID)
	assert.Empty(t, f.typing.Typing("c1"))
	f.remote.AssertExpectations(t)
}

func TestHandleEvent_RestoresLocation(t *testing.T) {
	f := createTestFixture(t)
	require.NoError(t, f.kv.Set(localstore.KeyLastLocation, models.Location{View: models.LocationServer, ServerID: "s1", ChannelID: "c2"}))
	f.remote.On("ListMessages", mock.Anything, "c2", "", api.DefaultPageSize).
		Return([]models.Message{message("c2", "50", bob, "old")}, nil).Once()

	f.ready(t)

	assert.Equal(t, "c2", f.uc.ActiveChannel().MustGet())
	f.remote.AssertExpectations(t)
}

func TestHandleEvent_ChannelDelete(t *testing.T) {
	f := createTestFixture(t)
	f.ready(t)
	f.activate(t, "c1", message("c1", "80", bob, "hello"))
	f.typing.Start("c1", "u2")

	require.NoError(t, f.uc.HandleEvent(context.Background(), event(t, models.EventChannelDelete, models.DeletePayload{ID: "c1"})))

	assert.False(t, f.uc.ActiveChannel().IsPresent())
	assert.Empty(t, f.typing.Typing("c1"))
	assert.False(t, f.reads.Get("c1").IsPresent())
	assert.False(t, f.store.IsCached("c1"))
}

func TestHandleEvent_MalformedPayload(t *testing.T) {
	f := createTestFixture(t)
	err := f.uc.HandleEvent(context.Background(), gateway.Event{Name: models.EventMessageCreate, Data: json.RawMessage(`[`)})
	assert.Error(t, err)
}

func TestActivateChannel(t *testing.T) {
	t.Run("unknown channel", func(t *testing.T) {
		f := createTestFixture(t)
		f.ready(t)
		err := f.uc.ActivateChannel(context.Background(), "nope")
		assert.True(t, core.IsNotFoundError(err))
	})

	t.Run("load failure is returned", func(t *testing.T) {
		f := createTestFixture(t)
		f.ready(t)
		f.remote.On("ListMessages", mock.Anything, "c2", "", api.DefaultPageSize).Return(nil, errors.New("offline"))
		assert.Error(t, f.uc.ActivateChannel(context.Background(), "c2"))
	})

	t.Run("cached channel is not refetched and location is saved", func(t *testing.T) {
		f := createTestFixture(t)
		f.ready(t)
		f.activate(t, "c1", message("c1", "80", bob, "hello"))
		f.activate(t, "c2", message("c2", "50", bob, "hey"))

		require.NoError(t, f.uc.ActivateChannel(context.Background(), "c1"))
		f.remote.AssertNumberOfCalls(t, "ListMessages", 2)
		assert.Equal(t, []string{"c1", "c2"}, f.store.CachedChannels())

		stored, err := localstore.Lookup[models.Location](f.kv, localstore.KeyLastLocation)
		require.NoError(t, err)
		assert.Equal(t, models.Location{View: models.LocationServer, ServerID: "s1", ChannelID: "c1"}, stored.MustGet())
	})
}

func TestSendTyping(t *testing.T) {
	f := createTestFixture(t)
	f.sender.err = errors.New("rate limited")

	f.uc.SendTyping(context.Background(), "c1")
	f.uc.SendTyping(context.Background(), "c1")
	f.clock.Advance(typing.SendInterval)
	f.uc.SendTyping(context.Background(), "c1")

	assert.Equal(t, []string{"c1", "c1"}, f.sender.calls)
}

func TestSetStatus(t *testing.T) {
	f := createTestFixture(t)
	f.ready(t)

	require.NoError(t, f.uc.SetStatus(models.PresenceInvisible))
	assert.Error(t, f.uc.SetStatus("busy"))

	assert.Equal(t, []models.PresenceStatus{models.PresenceInvisible}, f.gateway.presences)
	assert.Equal(t, models.PresenceInvisible, f.store.LocalStatus())
}

func TestRun(t *testing.T) {
	t.Run("stops when the stream closes", func(t *testing.T) {
		f := createTestFixture(t)
		f.gateway.events <- event(t, models.EventReady, readyPayload())
		f.gateway.events <- gateway.Event{Name: models.EventMessageCreate, Data: json.RawMessage(`{`)}
		close(f.gateway.events)

		require.NoError(t, f.uc.Run(context.Background()))
		assert.Equal(t, 1, f.uc.Sessions())
		assert.Len(t, f.guard.errs, 1)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		f := createTestFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, f.uc.Run(ctx), context.Canceled)
	})
}

func TestStatus(t *testing.T) {
	f := createTestFixture(t)
	f.ready(t)
	f.activate(t, "c1", message("c1", "80", bob, "hello"))

	report := f.uc.Status()

	assert.Equal(t, "connected", report.Gateway.State)
	assert.Equal(t, "c1", report.ActiveChannel)
	assert.Equal(t, 1, report.Sessions)
	assert.Equal(t, []string{"c1"}, report.Store.CachedChannels)
	assert.Equal(t, 3, report.Store.Channels)
	assert.Equal(t, models.PresenceOnline, report.Status)
}
