package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a JSON frame transport. *websocket.Conn satisfies it through wsConn.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Dialer opens gateway connections
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

const (
	handshakeTimeout = 15 * time.Second
	closeWriteWait   = time.Second
)

type WebsocketDialer struct {
	dialer *websocket.Dialer
}

func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial gateway (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial gateway: %w", err)
	}
	return &wsConn{Conn: conn}, nil
}

type wsConn struct {
	*websocket.Conn
}

// Close sends a normal-closure frame before tearing down the socket
func (c *wsConn) Close() error {
	deadline := time.Now().Add(closeWriteWait)
	_ = c.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)
	return c.Conn.Close()
}
