// Package events contains the WebSocket message contracts of the converter.
// Every session subscriber receives a snapshot after each table mutation.
package events

import (
	"time"

	api "github.com/oshinlather/image-to-excel-converter/pkg/contracts/api/v1"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeSessionSnapshot carries the full table and summary
	MessageTypeSessionSnapshot MessageType = "session:snapshot"
	// MessageTypeSessionClosed is sent once when a session is deleted
	MessageTypeSessionClosed MessageType = "session:closed"

	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// SessionSnapshot is the payload of a snapshot message. Operation names the
// mutation that produced it, e.g. "insert_row" or "extract".
type SessionSnapshot struct {
	Operation string      `json:"operation"`
	Session   api.Session `json:"session"`
}

// ErrorData is the payload of an error message
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
