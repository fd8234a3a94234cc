package adapter

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
)

// websocketReadLimit bounds a single message; transaction notifications with many events can be large
const websocketReadLimit = 4 << 20

// WebSocketConn defines an interface for a websocket connection to enable mocking
//
//go:generate mockgen -source=websocket.go -destination=../mocks/websocket.go -package=mocks -mock_names=WebSocketConn=MockWebSocketConn,WebSocketDialer=MockWebSocketDialer
type WebSocketConn interface {
	// Read blocks until the next message arrives or ctx is done
	Read(ctx context.Context) ([]byte, error)
	// Write sends a text message
	Write(ctx context.Context, data []byte) error
	Close() error
}

// WebSocketDialer defines an interface for opening websocket connections to enable mocking
type WebSocketDialer interface {
	Dial(ctx context.Context, url string) (WebSocketConn, error)
}

// RealWebSocketDialer implements WebSocketDialer using coder/websocket
type RealWebSocketDialer struct{}

// NewWebSocketDialer creates a new real websocket dialer
func NewWebSocketDialer() WebSocketDialer {
	return &RealWebSocketDialer{}
}

func (d *RealWebSocketDialer) Dial(ctx context.Context, url string) (WebSocketConn, error) {
	conn, resp, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}
	conn.SetReadLimit(websocketReadLimit)
	return &realWebSocketConn{conn: conn}, nil
}

type realWebSocketConn struct {
	conn *websocket.Conn
}

func (c *realWebSocketConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c *realWebSocketConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *realWebSocketConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
