package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshinlather/image-to-excel-converter/internal/infrastructure"
	"github.com/oshinlather/image-to-excel-converter/internal/shared/testutil"
	api "github.com/oshinlather/image-to-excel-converter/pkg/contracts/api/v1"
	"github.com/oshinlather/image-to-excel-converter/pkg/contracts/events"
)

// fakeConn is an in-memory Connection. Reads block until the connection is
// closed or a message is queued.
type fakeConn struct {
	mu      sync.Mutex
	written []fakeMessage
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once
}

type fakeMessage struct {
	Type int
	Data []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 8), closed: make(chan struct{})}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, fakeMessage{Type: messageType, Data: data})
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.inbound:
		return websocket.TextMessage, msg, nil
	case <-c.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *fakeConn) SetReadLimit(int64)               {}
func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50000}
}

// textMessages decodes every text frame written so far
func (c *fakeConn) textMessages(t *testing.T) []events.WebSocketMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []events.WebSocketMessage
	for _, m := range c.written {
		if m.Type != websocket.TextMessage {
			continue
		}
		var msg events.WebSocketMessage
		require.NoError(t, json.Unmarshal(m.Data, &msg))
		out = append(out, msg)
	}
	return out
}

func (c *fakeConn) wroteClose() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.written {
		if m.Type == websocket.CloseMessage {
			return true
		}
	}
	return false
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(Config{}, nil, logger)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

// testClient registers a client without pumps so tests read send directly
func testClient(t *testing.T, hub *Hub, sessionID string) *Client {
	t.Helper()
	c := NewClient(hub, newFakeConn(), sessionID, "trace-"+sessionID, nil)
	hub.Register(c)

	select {
	case msg := <-c.send:
		var connect events.WebSocketMessage
		require.NoError(t, json.Unmarshal(msg, &connect))
		assert.Equal(t, events.MessageTypeConnect, connect.Type)
		assert.Equal(t, sessionID, connect.SessionID)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for connect message")
	}
	return c
}

func receive(t *testing.T, c *Client) (events.WebSocketMessage, bool) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			return events.WebSocketMessage{}, false
		}
		var msg events.WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg, true
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return events.WebSocketMessage{}, false
	}
}

func TestHubStartStop(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(Config{}, nil, logger)

	hub.Start()
	hub.Start()
	assert.True(t, hub.running)

	hub.Stop()
	hub.Stop()
	assert.False(t, hub.running)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{PongWait: 10 * time.Second, PingPeriod: 20 * time.Second}.withDefaults()
	assert.Equal(t, 9*time.Second, cfg.PingPeriod)
	assert.Equal(t, DefaultConfig().WriteWait, cfg.WriteWait)
	assert.Equal(t, DefaultConfig().SendBuffer, cfg.SendBuffer)
}

func TestHub_SnapshotsReachOnlySubscribers(t *testing.T) {
	hub := newTestHub(t)
	a1 := testClient(t, hub, "session-a")
	a2 := testClient(t, hub, "session-a")
	b := testClient(t, hub, "session-b")
	assert.Equal(t, 3, hub.ClientCount())

	ctx := infrastructure.WithTraceID(context.Background(), "trace-123")
	hub.PublishSnapshot(ctx, "insert_row", api.Session{ID: "session-a", Revision: 4})

	for _, c := range []*Client{a1, a2} {
		msg, ok := receive(t, c)
		require.True(t, ok)
		assert.Equal(t, events.MessageTypeSessionSnapshot, msg.Type)
		assert.Equal(t, "session-a", msg.SessionID)
		assert.Equal(t, "trace-123", msg.TraceID)

		data := msg.Data.(map[string]interface{})
		assert.Equal(t, "insert_row", data["operation"])
		session := data["session"].(map[string]interface{})
		assert.Equal(t, float64(4), session["revision"])
	}

	select {
	case <-b.send:
		t.Fatal("session-b client received a session-a event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_PublishClosedDisconnects(t *testing.T) {
	hub := newTestHub(t)
	a := testClient(t, hub, "session-a")
	b := testClient(t, hub, "session-b")

	hub.PublishClosed(context.Background(), "session-a")

	msg, ok := receive(t, a)
	require.True(t, ok)
	assert.Equal(t, events.MessageTypeSessionClosed, msg.Type)

	_, ok = receive(t, a)
	assert.False(t, ok, "send channel should be closed after session:closed")

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Unregister(b)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_SlowConsumerIsDropped(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(Config{SendBuffer: 1}, nil, logger)
	hub.Start()
	t.Cleanup(hub.Stop)

	c := NewClient(hub, newFakeConn(), "s", "", nil)
	hub.Register(c)
	// the connect message fills the buffer
	hub.PublishSnapshot(context.Background(), "clear", api.Session{ID: "s"})

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	// not started, so nothing drains the queue
	hub := NewHub(Config{BroadcastQueue: 1}, nil, logger)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.PublishSnapshot(context.Background(), "update_cell", api.Session{ID: "s"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full queue")
	}
	assert.True(t, handler.ContainsMessage("broadcast queue full"))
}

func TestServeWS_Pumps(t *testing.T) {
	hub := newTestHub(t)
	conn := newFakeConn()

	client := ServeWS(hub, conn, "session-a", "trace-1")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.inbound <- []byte(`{"type":"heartbeat"}`)
	hub.PublishSnapshot(context.Background(), "extract", api.Session{ID: "session-a"})

	require.Eventually(t, func() bool { return len(conn.textMessages(t)) == 2 }, time.Second, 10*time.Millisecond)
	msgs := conn.textMessages(t)
	assert.Equal(t, events.MessageTypeConnect, msgs[0].Type)
	assert.Equal(t, events.MessageTypeSessionSnapshot, msgs[1].Type)
	assert.NotEmpty(t, client.ID())

	hub.PublishClosed(context.Background(), "session-a")
	require.Eventually(t, conn.wroteClose, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestServeWS_ClientDisconnect(t *testing.T) {
	hub := newTestHub(t)
	conn := newFakeConn()

	ServeWS(hub, conn, "session-a", "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	_ = conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
