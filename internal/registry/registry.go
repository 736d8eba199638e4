package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/Jzephh/whop-chat-app/internal/domain"
	"github.com/Jzephh/whop-chat-app/internal/metrics"
)

const (
	commandTimeout   = 5 * time.Second
	stopTimeout      = 10 * time.Second
	streamBufferSize = 64
)

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type subscribeCmd struct {
	baseHubCmd
	replyChannel chan Subscription
}

type unsubscribeCmd struct {
	baseHubCmd
	id uint64
}

type broadcastCmd struct {
	baseHubCmd
	eventType domain.EventType
	data      []byte
}

type countsCmd struct {
	baseHubCmd
	replyChannel chan Counts
}

type stopCmd struct {
	baseHubCmd
}

// Subscription is a live stream-only delivery target. Events returns the
// serialized frames; the first frame is always the ready acknowledgment.
type Subscription struct {
	ID     uint64
	Events <-chan []byte
}

// Counts reports live delivery targets per transport.
type Counts struct {
	WebSocket int
	Streams   int
}

// Hub tracks the live delivery targets of one process and fans events out to
// all of them. Constructed once at startup and passed to every handler that
// registers connections or broadcasts; membership resets with the process.
type Hub struct {
	cmdCh        chan hubCmd
	clock        clockwork.Clock
	keepalive    time.Duration
	connections  map[*websocket.Conn]*clientWriter
	streams      map[uint64]chan []byte
	nextStreamID uint64
	done         chan struct{}
	stopTimeout  time.Duration
}

// NewHub creates the hub and starts its actor goroutine.
// keepalive is the interval between ping frames on bidirectional connections.
func NewHub(clock clockwork.Clock, keepalive time.Duration) *Hub {
	h := &Hub{
		cmdCh:       make(chan hubCmd, 256),
		clock:       clock,
		keepalive:   keepalive,
		connections: make(map[*websocket.Conn]*clientWriter),
		streams:     make(map[uint64]chan []byte),
		done:        make(chan struct{}),
		stopTimeout: stopTimeout,
	}
	go h.run()
	return h
}

// Register adds a bidirectional connection to the live set and starts its
// keepalive writer. The connection is a broadcast target as soon as this
// returns.
func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{connection: conn, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection from the live set and stops its keepalive.
// Safe to call multiple times for the same connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{connection: conn}
}

// Subscribe adds a stream-only target. The ready event is already queued on
// the returned channel, so the caller observes it before any broadcast.
func (h *Hub) Subscribe() Subscription {
	replyCh := make(chan Subscription, 1)
	h.cmdCh <- subscribeCmd{replyChannel: replyCh}
	return <-replyCh
}

// Unsubscribe removes a stream-only target and closes its channel. Idempotent.
func (h *Hub) Unsubscribe(id uint64) {
	h.cmdCh <- unsubscribeCmd{id: id}
}

// Broadcast delivers one event to every registered target, best-effort per
// recipient. The event is serialized once; a failed delivery never aborts the
// pass and never surfaces to the caller. Per-recipient ordering matches the
// order Broadcast was invoked.
func (h *Hub) Broadcast(event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal broadcast event", "type", event.Type, "error", err)
		return
	}
	h.cmdCh <- broadcastCmd{eventType: event.Type, data: data}
}

// GetCounts returns the current number of live targets per transport.
func (h *Hub) GetCounts() Counts {
	replyCh := make(chan Counts, 1)
	h.cmdCh <- countsCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case counts := <-replyCh:
		return counts
	case <-timer.Chan():
		slog.Warn("GetCounts timed out", "timeout", commandTimeout)
		return Counts{WebSocket: -1, Streams: -1}
	}
}

// Stop shuts down the hub, closing all connections and subscriber channels.
// Blocks until the hub goroutine has exited or the timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timeout := h.clock.NewTimer(h.stopTimeout)
	defer timeout.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timeout.Chan():
		// The hub goroutine still owns the connection map here, so the log
		// carries only caller-side state.
		slog.Warn("Hub stop timeout exceeded, forcing exit", "timeout", h.stopTimeout)
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.connection)
		case subscribeCmd:
			h.handleSubscribe(c)
		case unsubscribeCmd:
			h.handleUnsubscribe(c.id)
		case broadcastCmd:
			h.handleBroadcast(c)
		case countsCmd:
			c.replyChannel <- Counts{WebSocket: len(h.connections), Streams: len(h.streams)}
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if _, exists := h.connections[c.connection]; exists {
		c.errorChannel <- nil
		return
	}

	cw := newClientWriter(c.connection, h.clock, h.keepalive)
	h.connections[c.connection] = cw

	metrics.ConnectedClients.WithLabelValues("websocket").Set(float64(len(h.connections)))
	slog.Debug("Client registered", "total_clients", len(h.connections))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, exists := h.connections[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(h.connections, conn)

	metrics.ConnectedClients.WithLabelValues("websocket").Set(float64(len(h.connections)))
	slog.Debug("Client unregistered", "remaining_clients", len(h.connections))
}

func (h *Hub) handleSubscribe(c subscribeCmd) {
	h.nextStreamID++
	id := h.nextStreamID

	ch := make(chan []byte, streamBufferSize)
	ready, err := json.Marshal(domain.Event{Type: domain.EventStreamReady})
	if err == nil {
		ch <- ready
	}
	h.streams[id] = ch

	metrics.ConnectedClients.WithLabelValues("sse").Set(float64(len(h.streams)))
	slog.Debug("Stream subscriber added", "stream_id", id, "total_streams", len(h.streams))
	c.replyChannel <- Subscription{ID: id, Events: ch}
}

func (h *Hub) handleUnsubscribe(id uint64) {
	ch, exists := h.streams[id]
	if !exists {
		return
	}

	delete(h.streams, id)
	close(ch)

	metrics.ConnectedClients.WithLabelValues("sse").Set(float64(len(h.streams)))
	slog.Debug("Stream subscriber removed", "stream_id", id, "remaining_streams", len(h.streams))
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	start := h.clock.Now()

	for _, cw := range h.connections {
		select {
		case cw.sendChannel <- c.data:
		default:
			// Recipient's buffer is full or its writer is gone. Drop the
			// frame for this recipient only; the stale entry is cleaned up
			// by its close signal, and the client reconciles via catch-up.
			metrics.BroadcastDroppedTotal.WithLabelValues("websocket").Inc()
		}
	}

	for _, ch := range h.streams {
		select {
		case ch <- c.data:
		default:
			metrics.BroadcastDroppedTotal.WithLabelValues("sse").Inc()
		}
	}

	metrics.BroadcastEventsTotal.WithLabelValues(string(c.eventType)).Inc()
	metrics.BroadcastDuration.Observe(h.clock.Since(start).Seconds())
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down",
		"connections", len(h.connections),
		"streams", len(h.streams),
	)

	for conn, cw := range h.connections {
		cw.stopGraceful("Server shutting down")
		delete(h.connections, conn)
	}
	for id, ch := range h.streams {
		close(ch)
		delete(h.streams, id)
	}

	metrics.ConnectedClients.WithLabelValues("websocket").Set(0)
	metrics.ConnectedClients.WithLabelValues("sse").Set(0)
}
