package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// Conn is the subset of the websocket connection the session needs. Tests
// substitute a fake; production code passes *websocket.Conn.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Session is the live, addressable handle for one connected device
type Session struct {
	DeviceUID string
	DeviceID  uint

	conn    Conn
	writeMu sync.Mutex
}

// NewSession wraps an accepted connection for a device
func NewSession(deviceUID string, deviceID uint, conn Conn) *Session {
	return &Session{
		DeviceUID: deviceUID,
		DeviceID:  deviceID,
		conn:      conn,
	}
}

// Send serializes v as JSON and writes it to the device verbatim. Writes
// are serialized because the dispatcher and the connection goroutine may
// both hold the session.
func (s *Session) Send(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal outbound message: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.conn.Write(ctx, websocket.MessageText, data)
}

// Read waits for the next inbound message from the device
func (s *Session) Read(ctx context.Context) ([]byte, error) {
	_, data, err := s.conn.Read(ctx)
	return data, err
}

// Close closes the underlying connection
func (s *Session) Close(code websocket.StatusCode, reason string) error {
	return s.conn.Close(code, reason)
}
