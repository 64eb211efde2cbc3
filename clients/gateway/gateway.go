package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"drocsid/core"
	"drocsid/core/clock"
	"drocsid/core/log"
	"drocsid/core/metrics"
	"drocsid/models"
)

type State string

const (
	StateIdle          State = "idle"
	StateConnecting    State = "connecting"
	StateAwaitingHello State = "awaiting_hello"
	StateIdentifying   State = "identifying"
	StateConnected     State = "connected"
	StateReconnecting  State = "reconnecting"
	StateClosed        State = "closed"
)

const (
	backoffBase = time.Second
	backoffMax  = 30 * time.Second

	invalidSessionMinDelay = time.Second
	invalidSessionJitter   = 4 * time.Second

	defaultEventBuffer = 256
	dialTimeout        = 20 * time.Second
)

var errZombieConnection = errors.New("heartbeat not acknowledged")

// TokenSource supplies the current access credential. An empty token means
// there is no session.
type TokenSource interface {
	AccessToken() string
}

// Event is a dispatch frame forwarded to the consumer
type Event struct {
	Name         string
	Sequence     int64
	Data         json.RawMessage
	ConnectionID string
}

type Config struct {
	URL string
	// DetectZombieSessions closes the socket when a heartbeat is due while the
	// previous one is still unacknowledged.
	DetectZombieSessions bool
	EventBuffer          int
	// Jitter returns a random duration in [0, n)
	Jitter func(n time.Duration) time.Duration
}

// Status is a point-in-time view of the transport
type Status struct {
	State        State
	ConnectionID string
	Sequence     *int64
	Attempt      int
	LastError    error
}

// Manager owns the gateway socket: identify, heartbeat and reconnect. It never
// touches client state; dispatch events leave through Events().
type Manager struct {
	cfg    Config
	dialer Dialer
	tokens TokenSource
	sched  *clock.Scheduler
	events chan Event

	writeMu sync.Mutex

	mu                sync.Mutex
	state             State
	conn              Conn
	connID            string
	generation        uint64
	sequence          *int64
	attempt           int
	intentional       bool
	invalidated       bool
	awaitingAck       bool
	heartbeatInterval time.Duration
	heartbeatHandle   clock.Handle
	lastErr           error
	ctx               context.Context
	done              chan struct{}
}

func NewManager(cfg Config, dialer Dialer, tokens TokenSource, clk clock.Clock) *Manager {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	if cfg.Jitter == nil {
		cfg.Jitter = randomJitter
	}
	return &Manager{
		cfg:    cfg,
		dialer: dialer,
		tokens: tokens,
		sched:  clock.NewScheduler(clk),
		events: make(chan Event, cfg.EventBuffer),
		state:  StateIdle,
		ctx:    context.Background(),
	}
}

// Events is the single consumer channel of dispatch events, in arrival order
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Connect opens the gateway. It is a no-op without a credential or while a
// connection is already being maintained. Cancelling ctx disconnects.
func (m *Manager) Connect(ctx context.Context) error {
	if m.tokens.AccessToken() == "" {
		log.Info("🔒 No credential stored, skipping gateway connect")
		return nil
	}

	m.mu.Lock()
	if m.state != StateIdle && m.state != StateClosed {
		m.mu.Unlock()
		return nil
	}
	m.intentional = false
	m.attempt = 0
	m.lastErr = nil
	m.ctx = ctx
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			m.Disconnect()
		case <-done:
		}
	}()

	m.open()
	return nil
}

// Disconnect closes the socket intentionally: every timer is cancelled and the
// sequence is forgotten, so no reconnect follows.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == StateIdle || m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	m.intentional = true
	m.generation++
	cancelled := m.sched.CancelAll()
	conn := m.conn
	m.conn = nil
	m.connID = ""
	m.sequence = nil
	m.attempt = 0
	m.awaitingAck = false
	m.invalidated = false
	m.state = StateClosed
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	m.mu.Unlock()

	log.Info("🔌 Gateway disconnected", "cancelled_timers", cancelled)
	if conn != nil {
		if err := conn.Close(); err != nil {
			log.Debug("Gateway close returned error", "error", err)
		}
	}
}

// UpdatePresence broadcasts the local status. It is fire-and-forget and does
// nothing while disconnected.
func (m *Manager) UpdatePresence(status models.PresenceStatus) {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()

	if conn == nil || !connected {
		log.Debug("Skipping presence update while disconnected", "status", status)
		return
	}
	m.send(conn, models.OpPresenceUpdate, models.PresenceUpdatePayload{Status: status})
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	var seq *int64
	if m.sequence != nil {
		s := *m.sequence
		seq = &s
	}
	return Status{
		State:        m.state,
		ConnectionID: m.connID,
		Sequence:     seq,
		Attempt:      m.attempt,
		LastError:    m.lastErr,
	}
}

// Backoff is the reconnect delay after the given number of consecutive failures
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return backoffMax
	}
	return min(backoffBase<<attempt, backoffMax)
}

func (m *Manager) open() {
	m.mu.Lock()
	if m.intentional {
		m.mu.Unlock()
		return
	}
	m.generation++
	gen := m.generation
	m.state = StateConnecting
	connID := uuid.NewString()
	ctx := m.ctx
	m.mu.Unlock()

	if m.tokens.AccessToken() == "" {
		log.Warn("🔒 Credential cleared, abandoning gateway connect")
		m.mu.Lock()
		if gen == m.generation {
			m.state = StateIdle
		}
		m.mu.Unlock()
		return
	}

	log.Info("📋 Starting to connect to gateway", "connection_id", connID, "url", m.cfg.URL)
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, err := m.dialer.Dial(dialCtx, m.cfg.URL, http.Header{})
	cancel()
	if err != nil {
		m.handleClose(gen, connID, err)
		return
	}

	m.mu.Lock()
	if m.intentional || gen != m.generation {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.connID = connID
	m.attempt = 0
	m.awaitingAck = false
	m.state = StateAwaitingHello
	done := m.done
	m.mu.Unlock()

	metrics.GatewayConnects.Inc()
	log.Info("✅ Gateway socket open, awaiting hello", "connection_id", connID)
	go m.readLoop(gen, conn, connID, done)
}

func (m *Manager) readLoop(gen uint64, conn Conn, connID string, done chan struct{}) {
	for {
		var frame models.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			m.handleClose(gen, connID, err)
			return
		}
		m.handleFrame(gen, conn, connID, frame, done)
	}
}

func (m *Manager) handleFrame(gen uint64, conn Conn, connID string, frame models.Frame, done chan struct{}) {
	switch frame.Op {
	case models.OpHello:
		var hello models.HelloPayload
		if err := json.Unmarshal(frame.Data, &hello); err != nil || hello.HeartbeatIntervalMs <= 0 {
			log.Warn("⚠️ Ignoring malformed hello", "connection_id", connID, "error", err)
			return
		}
		m.startHeartbeat(gen, time.Duration(hello.HeartbeatIntervalMs)*time.Millisecond)
		m.send(conn, models.OpIdentify, models.IdentifyPayload{Token: m.tokens.AccessToken()})

	case models.OpDispatch:
		m.handleDispatch(gen, connID, frame, done)

	case models.OpHeartbeatAck:
		m.mu.Lock()
		if gen == m.generation {
			m.awaitingAck = false
		}
		m.mu.Unlock()

	case models.OpHeartbeat:
		m.mu.Lock()
		seq := m.sequence
		m.mu.Unlock()
		m.send(conn, models.OpHeartbeat, seq)

	case models.OpReconnect:
		log.Info("🔄 Gateway requested reconnect", "connection_id", connID)
		_ = conn.Close()

	case models.OpInvalidSession:
		var payload models.InvalidSessionPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			log.Warn("⚠️ Malformed invalid-session payload, treating as not resumable", "error", err)
		}
		m.mu.Lock()
		if gen == m.generation {
			if !payload.Resumable {
				m.sequence = nil
			}
			m.invalidated = true
		}
		m.mu.Unlock()
		log.Warn("⚠️ Gateway session invalidated", "connection_id", connID, "resumable", payload.Resumable)
		_ = conn.Close()

	default:
		log.Debug("Ignoring unknown gateway opcode", "op", frame.Op, "connection_id", connID)
	}
}

func (m *Manager) handleDispatch(gen uint64, connID string, frame models.Frame, done chan struct{}) {
	if frame.Event == nil {
		log.Warn("⚠️ Dispatch frame without event name", "connection_id", connID)
		return
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	var seq int64
	if frame.Sequence != nil {
		seq = *frame.Sequence
		if m.sequence == nil || seq > *m.sequence {
			m.sequence = &seq
		}
	}
	if *frame.Event == models.EventReady {
		m.state = StateConnected
		log.Info("✅ Gateway session ready", "connection_id", connID)
	}
	m.mu.Unlock()

	event := Event{
		Name:         *frame.Event,
		Sequence:     seq,
		Data:         frame.Data,
		ConnectionID: connID,
	}
	select {
	case m.events <- event:
	case <-done:
	}
}

func (m *Manager) startHeartbeat(gen uint64, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}
	m.state = StateIdentifying
	m.heartbeatInterval = interval
	m.sched.Cancel(m.heartbeatHandle)
	first := m.cfg.Jitter(interval)
	m.heartbeatHandle = m.sched.Schedule(first, func() { m.heartbeat(gen) })
	log.Debug("Heartbeat scheduled", "interval", interval, "first", first)
}

func (m *Manager) heartbeat(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || m.conn == nil {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	if m.cfg.DetectZombieSessions && m.awaitingAck {
		connID := m.connID
		m.mu.Unlock()
		log.Warn("💀 Heartbeat not acknowledged, dropping zombie connection", "connection_id", connID)
		m.dropConn(gen, conn, connID, errZombieConnection)
		return
	}
	m.awaitingAck = true
	seq := m.sequence
	m.heartbeatHandle = m.sched.Schedule(m.heartbeatInterval, func() { m.heartbeat(gen) })
	m.mu.Unlock()

	metrics.GatewayHeartbeats.Inc()
	m.send(conn, models.OpHeartbeat, seq)
}

// dropConn closes conn and runs the close path right away rather than waiting
// for the read loop to notice.
func (m *Manager) dropConn(gen uint64, conn Conn, connID string, reason error) {
	_ = conn.Close()
	m.handleClose(gen, connID, reason)
}

func (m *Manager) handleClose(gen uint64, connID string, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}
	// Invalidate the read loop of the dropped socket
	m.generation++
	m.sched.Cancel(m.heartbeatHandle)
	m.heartbeatHandle = 0
	m.conn = nil
	m.connID = ""
	m.awaitingAck = false

	if m.intentional {
		m.state = StateClosed
		return
	}

	connErr := &core.ConnectionError{ConnectionID: connID, Err: cause, Reconnecting: true}
	m.lastErr = connErr

	var delay time.Duration
	reason := "closed"
	switch {
	case m.invalidated:
		m.invalidated = false
		delay = invalidSessionMinDelay + m.cfg.Jitter(invalidSessionJitter)
		reason = "invalid_session"
	default:
		delay = Backoff(m.attempt)
		m.attempt++
		if errors.Is(cause, errZombieConnection) {
			reason = "zombie"
		}
	}

	m.state = StateReconnecting
	m.sched.Schedule(delay, m.open)
	metrics.GatewayReconnects.WithLabelValues(reason).Inc()
	log.Warn("🔄 Gateway connection lost, reconnect scheduled",
		"connection_id", connID, "error", connErr, "delay", delay, "attempt", m.attempt)
}

func (m *Manager) send(conn Conn, op models.Opcode, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error("❌ Failed to encode gateway frame", "op", op, "error", err)
		return
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.WriteJSON(models.Frame{Op: op, Data: data}); err != nil {
		log.Warn("⚠️ Failed to send gateway frame", "op", op, "error", fmt.Errorf("failed to write frame: %w", err))
	}
}

func randomJitter(n time.Duration) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(n)))
}
