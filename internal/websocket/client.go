package websocket

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/oshinlather/image-to-excel-converter/internal/infrastructure"
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Client is a middleman between one websocket connection and the hub. A
// client follows exactly one session.
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages; closed by the hub
	send chan []byte

	id          string
	sessionID   string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger
}

// NewClient creates a client subscribed to sessionID
func NewClient(hub *Hub, conn Connection, sessionID, traceID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = hub.logger
	}

	id := uuid.New().String()
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	logger = logger.With(
		slog.String("component", "websocket.client"),
		slog.String("client_id", id),
		slog.String("session_id", sessionID),
	)

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, hub.cfg.SendBuffer),
		id:          id,
		sessionID:   sessionID,
		traceID:     traceID,
		remoteAddr:  remote,
		connectedAt: time.Now(),
		logger:      logger,
	}
}

// ID returns the client id
func (c *Client) ID() string { return c.id }

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// ReadPump drains the connection so control frames are processed. Clients
// never send commands; anything other than a heartbeat is ignored.
func (c *Client) ReadPump() {
	ctx := c.context()
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	cfg := c.hub.cfg
	c.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(ctx, "unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}
		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		c.hub.metrics.recordMessage(ctx, "inbound", "client", len(message))

		if string(message) == `{"type":"heartbeat"}` {
			_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
			continue
		}
		c.logger.DebugContext(ctx, "ignoring client message", slog.Int("size", len(message)))
	}
}

// WritePump writes hub messages and pings to the connection. It returns when
// the hub closes the send channel or a write fails.
func (c *Client) WritePump() {
	ctx := c.context()
	cfg := c.hub.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.WarnContext(ctx, "websocket write failed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(ctx, "ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// ServeWS registers a client for conn and starts its pumps
func ServeWS(hub *Hub, conn Connection, sessionID, traceID string) *Client {
	client := NewClient(hub, conn, sessionID, traceID, nil)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
	return client
}

// NewUpgrader builds an upgrader. An empty origin list accepts same-origin
// requests only; "*" accepts any origin.
func NewUpgrader(readBuffer, writeBuffer int, allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  readBuffer,
		WriteBufferSize: writeBuffer,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
			}
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}
