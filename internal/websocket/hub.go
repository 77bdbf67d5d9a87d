package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshinlather/image-to-excel-converter/internal/infrastructure"
	api "github.com/oshinlather/image-to-excel-converter/pkg/contracts/api/v1"
	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/events"
)

// Config tunes client keepalive and queue sizes
type Config struct {
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBuffer     int
	BroadcastQueue int
}

// DefaultConfig returns the keepalive settings used when none are given
func DefaultConfig() Config {
	return Config{
		PingPeriod:     54 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 512,
		SendBuffer:     256,
		BroadcastQueue: 256,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = (c.PongWait * 9) / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.BroadcastQueue <= 0 {
		c.BroadcastQueue = d.BroadcastQueue
	}
	return c
}

// envelope is a message addressed to the subscribers of one session
type envelope struct {
	sessionID string
	data      []byte
	msgType   events.MessageType
	// closing unsubscribes every client of the session after delivery
	closing bool
}

// Hub maintains the set of active clients and fans session events out to
// the clients subscribed to that session. Only Run touches the client maps.
type Hub struct {
	// Registered clients, grouped by session
	sessions map[string]map[*Client]struct{}

	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client

	// count mirrors the number of registered clients for ClientCount
	mu    sync.RWMutex
	count int

	cfg     Config
	metrics *Metrics
	logger  *slog.Logger

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHub creates a new Hub. Nil metrics record nothing.
func NewHub(cfg Config, metrics *Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if metrics == nil {
		metrics, _ = NewMetrics(nil)
	}
	cfg = cfg.withDefaults()

	return &Hub{
		sessions:   make(map[string]map[*Client]struct{}),
		broadcast:  make(chan envelope, cfg.BroadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start starts the hub loop. It is a no-op when already running.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Stop stops the hub and disconnects every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

// Run is the hub loop
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.shutdown()
			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client, "client")

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) add(client *Client) {
	subs, ok := h.sessions[client.sessionID]
	if !ok {
		subs = make(map[*Client]struct{})
		h.sessions[client.sessionID] = subs
	}
	subs[client] = struct{}{}
	count := h.adjustCount(1)

	ctx := client.context()
	h.metrics.recordConnection(ctx)
	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", client.id),
		slog.String("session_id", client.sessionID),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("total_clients", count))

	msg, err := encode(events.MessageTypeConnect, client.sessionID, client.traceID, map[string]string{
		"status":    "connected",
		"client_id": client.id,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode connect message", slog.String("error", err.Error()))
		return
	}
	select {
	case client.send <- msg:
	default:
		h.metrics.recordDropped(ctx, "client")
	}
}

// remove drops client and closes its send channel; it is a no-op for
// clients that are already gone
func (h *Hub) remove(client *Client, reason string) {
	subs, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := subs[client]; !ok {
		return
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.sessions, client.sessionID)
	}
	close(client.send)
	count := h.adjustCount(-1)

	ctx := client.context()
	d := time.Since(client.connectedAt)
	h.metrics.recordDisconnection(ctx, d, reason)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", client.id),
		slog.String("session_id", client.sessionID),
		slog.String("reason", reason),
		slog.Duration("connection_duration", d),
		slog.Int("total_clients", count))
}

func (h *Hub) deliver(env envelope) {
	subs := h.sessions[env.sessionID]
	ctx := context.Background()

	sent, dropped := 0, 0
	for client := range subs {
		select {
		case client.send <- env.data:
			sent++
			h.metrics.recordMessage(ctx, "outbound", string(env.msgType), len(env.data))
		default:
			// A client that cannot keep up is disconnected rather than
			// allowed to stall the hub.
			dropped++
			h.metrics.recordDropped(ctx, "client")
			h.remove(client, "slow_consumer")
		}
	}
	if env.closing {
		for client := range h.sessions[env.sessionID] {
			h.remove(client, "session_closed")
		}
	}

	h.logger.Debug("session event delivered",
		slog.String("session_id", env.sessionID),
		slog.String("type", string(env.msgType)),
		slog.Int("sent", sent),
		slog.Int("dropped", dropped),
		slog.Int("payload_size", len(env.data)))
}

func (h *Hub) shutdown() {
	for _, subs := range h.sessions {
		for client := range subs {
			h.remove(client, "shutdown")
		}
	}
	h.logger.Info("hub stopped")
}

func (h *Hub) adjustCount(delta int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count += delta
	return h.count
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// PublishSnapshot sends the session state to its subscribers. It never
// blocks; when the queue is full the snapshot is dropped and the next one
// supersedes it.
func (h *Hub) PublishSnapshot(ctx context.Context, operation string, session api.Session) {
	h.publish(ctx, session.ID, events.MessageTypeSessionSnapshot, events.SessionSnapshot{
		Operation: operation,
		Session:   session,
	}, false)
}

// PublishClosed tells subscribers the session is gone and disconnects them
func (h *Hub) PublishClosed(ctx context.Context, sessionID string) {
	h.publish(ctx, sessionID, events.MessageTypeSessionClosed, nil, true)
}

func (h *Hub) publish(ctx context.Context, sessionID string, msgType events.MessageType, data interface{}, closing bool) {
	traceID := infrastructure.GetTraceID(ctx)
	msg, err := encode(msgType, sessionID, traceID, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode session event",
			slog.String("session_id", sessionID),
			slog.String("type", string(msgType)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- envelope{sessionID: sessionID, data: msg, msgType: msgType, closing: closing}:
	case <-h.quit:
	default:
		h.metrics.recordDropped(ctx, "broadcast")
		h.logger.WarnContext(ctx, "broadcast queue full, event dropped",
			slog.String("session_id", sessionID),
			slog.String("type", string(msgType)))
	}
}

func encode(msgType events.MessageType, sessionID, traceID string, data interface{}) ([]byte, error) {
	return json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.New().String(),
			Type:      msgType,
			SessionID: sessionID,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	})
}
