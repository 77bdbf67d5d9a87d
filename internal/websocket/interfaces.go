package websocket

import (
	"net"
	"time"
)

// Connection is the subset of *websocket.Conn used by a client. It allows
// the pumps to run against a fake connection in tests.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error

	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)

	RemoteAddr() net.Addr
}
