package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drocsid/core"
	"drocsid/core/clock"
	"drocsid/models"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type staticTokens struct {
	token string
}

func (s *staticTokens) AccessToken() string {
	return s.token
}

type sentFrame struct {
	frame models.Frame
	at    time.Time
}

type fakeConn struct {
	clock   *clock.FakeClock
	inbound chan models.Frame

	mu     sync.Mutex
	sent   []sentFrame
	closed chan struct{}
	once   sync.Once
}

func newFakeConn(clk *clock.FakeClock) *fakeConn {
	return &fakeConn{
		clock:   clk,
		inbound: make(chan models.Frame, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadJSON(v any) error {
	select {
	case frame := <-c.inbound:
		data, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, v)
	case <-c.closed:
		return errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var frame models.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentFrame{frame: frame, at: c.clock.Now()})
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) sentWithOp(op models.Opcode) []sentFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []sentFrame
	for _, s := range c.sent {
		if s.frame.Op == op {
			out = append(out, s)
		}
	}
	return out
}

func (c *fakeConn) push(t *testing.T, op models.Opcode, payload any, seq *int64, event string) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	frame := models.Frame{Op: op, Data: data, Sequence: seq}
	if event != "" {
		frame.Event = &event
	}
	c.inbound <- frame
}

type fakeDialer struct {
	clock *clock.FakeClock

	mu       sync.Mutex
	failures int
	dials    []time.Time
	conns    []*fakeConn
}

func (d *fakeDialer) Dial(_ context.Context, _ string, _ http.Header) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, d.clock.Now())
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("connection refused")
	}
	conn := newFakeConn(d.clock)
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func createTestManager(t *testing.T, cfg Config) (*Manager, *fakeDialer, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFake(epoch)
	dialer := &fakeDialer{clock: clk}
	if cfg.Jitter == nil {
		cfg.Jitter = func(n time.Duration) time.Duration { return n / 2 }
	}
	m := NewManager(cfg, dialer, &staticTokens{token: "access-token"}, clk)
	t.Cleanup(m.Disconnect)
	return m, dialer, clk
}

func seq(n int64) *int64 {
	return &n
}

func TestBackoff(t *testing.T) {
	expected := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for attempt, want := range expected {
		assert.Equal(t, want, Backoff(attempt), "attempt %d", attempt)
	}
	assert.Equal(t, 30*time.Second, Backoff(64))
}

func TestManager_Connect(t *testing.T) {
	t.Run("no-op without credential", func(t *testing.T) {
		clk := clock.NewFake(epoch)
		dialer := &fakeDialer{clock: clk}
		m := NewManager(Config{URL: "ws://test"}, dialer, &staticTokens{}, clk)

		require.NoError(t, m.Connect(context.Background()))

		assert.Equal(t, 0, dialer.dialCount())
		assert.Equal(t, StateIdle, m.State())
	})

	t.Run("hello starts heartbeat and sends identify", func(t *testing.T) {
		m, dialer, clk := createTestManager(t, Config{URL: "ws://test"})

		require.NoError(t, m.Connect(context.Background()))
		require.Equal(t, StateAwaitingHello, m.State())

		conn := dialer.lastConn()
		conn.push(t, models.OpHello, models.HelloPayload{HeartbeatIntervalMs: 30000}, nil, "")
		clk.WaitForTimers(1)

		require.Eventually(t, func() bool { return len(conn.sentWithOp(models.OpIdentify)) == 1 }, time.Second, time.Millisecond)
		var identify models.IdentifyPayload
		require.NoError(t, json.Unmarshal(conn.sentWithOp(models.OpIdentify)[0].frame.Data, &identify))
		assert.Equal(t, "access-token", identify.Token)
		assert.Equal(t, StateIdentifying, m.State())
	})

	t.Run("second connect while connected is a no-op", func(t *testing.T) {
		m, dialer, _ := createTestManager(t, Config{URL: "ws://test"})

		require.NoError(t, m.Connect(context.Background()))
		require.NoError(t, m.Connect(context.Background()))

		assert.Equal(t, 1, dialer.dialCount())
	})
}

func TestManager_HeartbeatTiming(t *testing.T) {
	jitter := 12345 * time.Millisecond
	m, dialer, clk := createTestManager(t, Config{
		URL:    "ws://test",
		Jitter: func(n time.Duration) time.Duration { return jitter },
	})
	start := clk.Now()

	require.NoError(t, m.Connect(context.Background()))
	conn := dialer.lastConn()
	conn.push(t, models.OpHello, models.HelloPayload{HeartbeatIntervalMs: 30000}, nil, "")
	clk.WaitForTimers(1)

	clk.Advance(jitter - time.Millisecond)
	assert.Empty(t, conn.sentWithOp(models.OpHeartbeat))

	clk.Advance(time.Millisecond + 3*30*time.Second)

	beats := conn.sentWithOp(models.OpHeartbeat)
	require.Len(t, beats, 4)
	assert.Equal(t, jitter, beats[0].at.Sub(start))
	for i := 1; i < len(beats); i++ {
		assert.Equal(t, 30*time.Second, beats[i].at.Sub(beats[i-1].at))
	}
	assert.JSONEq(t, "null", string(beats[0].frame.Data))
}

func TestManager_Dispatch(t *testing.T) {
	m, dialer, clk := createTestManager(t, Config{
		URL:    "ws://test",
		Jitter: func(time.Duration) time.Duration { return 0 },
	})

	require.NoError(t, m.Connect(context.Background()))
	conn := dialer.lastConn()
	conn.push(t, models.OpHello, models.HelloPayload{HeartbeatIntervalMs: 30000}, nil, "")
	conn.push(t, models.OpDispatch, models.ReadyPayload{SessionID: "sess"}, seq(1), models.EventReady)
	conn.push(t, models.OpDispatch, models.MessageDeletePayload{ID: "9", ChannelID: "c1"}, seq(3), models.EventMessageDelete)
	conn.push(t, models.OpDispatch, models.MessageDeletePayload{ID: "8", ChannelID: "c1"}, seq(2), models.EventMessageDelete)

	var names []string
	for i := 0; i < 3; i++ {
		select {
		case ev := <-m.Events():
			names = append(names, ev.Name)
			assert.NotEmpty(t, ev.ConnectionID)
		case <-time.After(time.Second):
			t.Fatal("expected dispatch event")
		}
	}

	assert.Equal(t, []string{models.EventReady, models.EventMessageDelete, models.EventMessageDelete}, names)
	assert.Equal(t, StateConnected, m.State())
	status := m.Status()
	require.NotNil(t, status.Sequence)
	assert.Equal(t, int64(3), *status.Sequence)

	clk.WaitForTimers(1)
	clk.Advance(0)
	beats := conn.sentWithOp(models.OpHeartbeat)
	require.Len(t, beats, 1)
	assert.JSONEq(t, "3", string(beats[0].frame.Data))
}

func TestManager_ReconnectBackoff(t *testing.T) {
	m, dialer, clk := createTestManager(t, Config{URL: "ws://test"})
	dialer.failures = 7

	require.NoError(t, m.Connect(context.Background()))
	require.Equal(t, 1, dialer.dialCount())
	require.Equal(t, StateReconnecting, m.State())

	expected := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for i, delay := range expected {
		before := dialer.dialCount()
		clk.Advance(delay - time.Millisecond)
		assert.Equal(t, before, dialer.dialCount(), "dial %d fired early", i+2)
		clk.Advance(time.Millisecond)
		assert.Equal(t, before+1, dialer.dialCount(), "dial %d did not fire after %v", i+2, delay)
	}

	require.Equal(t, StateAwaitingHello, m.State())
	assert.Equal(t, 0, m.Status().Attempt)
	_, isConnErr := core.IsConnectionError(m.Status().LastError)
	assert.True(t, isConnErr)

	t.Run("attempt resets after a successful open", func(t *testing.T) {
		dialer.lastConn().Close()
		require.Eventually(t, func() bool { return m.State() == StateReconnecting }, time.Second, time.Millisecond)

		before := dialer.dialCount()
		clk.Advance(999 * time.Millisecond)
		assert.Equal(t, before, dialer.dialCount())
		clk.Advance(time.Millisecond)
		assert.Equal(t, before+1, dialer.dialCount())
	})
}

func TestManager_ReconnectOpcode(t *testing.T) {
	m, dialer, clk := createTestManager(t, Config{URL: "ws://test"})

	require.NoError(t, m.Connect(context.Background()))
	first := dialer.lastConn()
	first.push(t, models.OpDispatch, models.ReadyPayload{}, seq(5), models.EventReady)
	<-m.Events()

	first.push(t, models.OpReconnect, nil, nil, "")
	require.Eventually(t, func() bool { return m.State() == StateReconnecting }, time.Second, time.Millisecond)
	assert.True(t, first.isClosed())

	clk.Advance(time.Second)
	assert.Equal(t, 2, dialer.dialCount())
	assert.NotSame(t, first, dialer.lastConn())
	require.NotNil(t, m.Status().Sequence)
	assert.Equal(t, int64(5), *m.Status().Sequence)
}

func TestManager_InvalidSession(t *testing.T) {
	t.Run("not resumable clears sequence and reconnects after jittered delay", func(t *testing.T) {
		m, dialer, clk := createTestManager(t, Config{
			URL:    "ws://test",
			Jitter: func(n time.Duration) time.Duration { return n / 4 },
		})

		require.NoError(t, m.Connect(context.Background()))
		conn := dialer.lastConn()
		conn.push(t, models.OpDispatch, models.ReadyPayload{}, seq(7), models.EventReady)
		<-m.Events()

		conn.push(t, models.OpInvalidSession, models.InvalidSessionPayload{Resumable: false}, nil, "")
		require.Eventually(t, func() bool { return m.State() == StateReconnecting }, time.Second, time.Millisecond)
		assert.Nil(t, m.Status().Sequence)

		// 1s minimum plus a quarter of the 4s jitter window
		clk.Advance(2*time.Second - time.Millisecond)
		assert.Equal(t, 1, dialer.dialCount())
		clk.Advance(time.Millisecond)
		assert.Equal(t, 2, dialer.dialCount())
	})

	t.Run("resumable keeps sequence", func(t *testing.T) {
		m, dialer, _ := createTestManager(t, Config{URL: "ws://test"})

		require.NoError(t, m.Connect(context.Background()))
		conn := dialer.lastConn()
		conn.push(t, models.OpDispatch, models.ReadyPayload{}, seq(7), models.EventReady)
		<-m.Events()

		conn.push(t, models.OpInvalidSession, models.InvalidSessionPayload{Resumable: true}, nil, "")
		require.Eventually(t, func() bool { return m.State() == StateReconnecting }, time.Second, time.Millisecond)
		require.NotNil(t, m.Status().Sequence)
		assert.Equal(t, int64(7), *m.Status().Sequence)
	})
}

func TestManager_Disconnect(t *testing.T) {
	m, dialer, clk := createTestManager(t, Config{URL: "ws://test"})

	require.NoError(t, m.Connect(context.Background()))
	conn := dialer.lastConn()
	conn.push(t, models.OpHello, models.HelloPayload{HeartbeatIntervalMs: 30000}, nil, "")
	conn.push(t, models.OpDispatch, models.ReadyPayload{}, seq(2), models.EventReady)
	<-m.Events()
	clk.WaitForTimers(1)

	m.Disconnect()

	assert.Equal(t, StateClosed, m.State())
	assert.Nil(t, m.Status().Sequence)
	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, clk.PendingCount())

	clk.Advance(time.Hour)
	assert.Equal(t, 1, dialer.dialCount())
	assert.Empty(t, conn.sentWithOp(models.OpHeartbeat))
}

func TestManager_ContextCancelDisconnects(t *testing.T) {
	m, dialer, _ := createTestManager(t, Config{URL: "ws://test"})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, m.Connect(ctx))
	cancel()

	require.Eventually(t, func() bool { return m.State() == StateClosed }, time.Second, time.Millisecond)
	assert.True(t, dialer.lastConn().isClosed())
}

func TestManager_ZombieDetection(t *testing.T) {
	t.Run("unacknowledged heartbeat drops the connection", func(t *testing.T) {
		m, dialer, clk := createTestManager(t, Config{
			URL:                  "ws://test",
			DetectZombieSessions: true,
			Jitter:               func(time.Duration) time.Duration { return 0 },
		})

		require.NoError(t, m.Connect(context.Background()))
		conn := dialer.lastConn()
		conn.push(t, models.OpHello, models.HelloPayload{HeartbeatIntervalMs: 1000}, nil, "")
		clk.WaitForTimers(1)

		clk.Advance(0)
		require.Len(t, conn.sentWithOp(models.OpHeartbeat), 1)

		clk.Advance(time.Second)
		assert.True(t, conn.isClosed())
		assert.Equal(t, StateReconnecting, m.State())
		assert.Len(t, conn.sentWithOp(models.OpHeartbeat), 1)
	})

	t.Run("acknowledged heartbeats keep the connection", func(t *testing.T) {
		m, dialer, clk := createTestManager(t, Config{
			URL:                  "ws://test",
			DetectZombieSessions: true,
			Jitter:               func(time.Duration) time.Duration { return 0 },
		})

		require.NoError(t, m.Connect(context.Background()))
		conn := dialer.lastConn()
		conn.push(t, models.OpHello, models.HelloPayload{HeartbeatIntervalMs: 1000}, nil, "")
		clk.WaitForTimers(1)

		for i := 0; i < 3; i++ {
			clk.Advance(0)
			conn.push(t, models.OpHeartbeatAck, nil, nil, "")
			require.Eventually(t, func() bool {
				m.mu.Lock()
				defer m.mu.Unlock()
				return !m.awaitingAck
			}, time.Second, time.Millisecond)
			clk.Advance(time.Second)
		}

		assert.False(t, conn.isClosed())
		assert.Len(t, conn.sentWithOp(models.OpHeartbeat), 4)
	})
}

func TestManager_ServerRequestedHeartbeat(t *testing.T) {
	m, dialer, _ := createTestManager(t, Config{URL: "ws://test"})

	require.NoError(t, m.Connect(context.Background()))
	conn := dialer.lastConn()
	conn.push(t, models.OpHeartbeat, nil, nil, "")

	require.Eventually(t, func() bool { return len(conn.sentWithOp(models.OpHeartbeat)) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, StateAwaitingHello, m.State())
}

func TestManager_UpdatePresence(t *testing.T) {
	m, dialer, _ := createTestManager(t, Config{URL: "ws://test"})

	m.UpdatePresence(models.PresenceDND)

	require.NoError(t, m.Connect(context.Background()))
	conn := dialer.lastConn()
	conn.push(t, models.OpDispatch, models.ReadyPayload{}, seq(1), models.EventReady)
	<-m.Events()

	m.UpdatePresence(models.PresenceDND)

	frames := conn.sentWithOp(models.OpPresenceUpdate)
	require.Len(t, frames, 1)
	var payload models.PresenceUpdatePayload
	require.NoError(t, json.Unmarshal(frames[0].frame.Data, &payload))
	assert.Equal(t, models.PresenceDND, payload.Status)
}
