package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrAuthFailed indicates Home Assistant rejected the long-lived access token.
var ErrAuthFailed = errors.New("home assistant authentication failed")

const defaultHandshakeTimeout = 10 * time.Second

// Client fetches area, device, and state snapshots over the Home Assistant
// WebSocket API. Commands run strictly sequentially on one connection, so no
// response demultiplexing is needed beyond matching the message ID.
type Client struct {
	baseURL string
	token   string
	dialer  *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID int
}

// NewClient creates a client for the given Home Assistant base URL
// (http(s)://host[:port]) and long-lived access token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		dialer: &websocket.Dialer{
			HandshakeTimeout: defaultHandshakeTimeout,
		},
	}
}

type wsMessage struct {
	ID          int             `json:"id,omitempty"`
	Type        string          `json:"type"`
	AccessToken string          `json:"access_token,omitempty"`
	Success     bool            `json:"success,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *wsError        `json:"error,omitempty"`
	Message     string          `json:"message,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// websocketURL derives the WebSocket endpoint from the HTTP base URL.
func (c *Client) websocketURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/websocket"
}

// Connect dials the WebSocket API and completes the auth handshake
// (auth_required -> auth -> auth_ok).
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, _, err := c.dialer.DialContext(ctx, c.websocketURL(), nil)
	if err != nil {
		return fmt.Errorf("dial home assistant websocket: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	var hello wsMessage
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return fmt.Errorf("read auth_required: %w", err)
	}
	if hello.Type != "auth_required" {
		conn.Close()
		return fmt.Errorf("unexpected handshake message %q", hello.Type)
	}

	if err := conn.WriteJSON(wsMessage{Type: "auth", AccessToken: c.token}); err != nil {
		conn.Close()
		return fmt.Errorf("send auth: %w", err)
	}

	var authResp wsMessage
	if err := conn.ReadJSON(&authResp); err != nil {
		conn.Close()
		return fmt.Errorf("read auth response: %w", err)
	}
	if authResp.Type != "auth_ok" {
		conn.Close()
		if authResp.Type == "auth_invalid" {
			return fmt.Errorf("%w: %s", ErrAuthFailed, authResp.Message)
		}
		return fmt.Errorf("unexpected auth response %q", authResp.Type)
	}

	// Clear handshake deadlines; per-command deadlines are set in call().
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	c.conn = conn
	return nil
}

// Close tears the connection down. The client can be reconnected afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	return err
}

// call sends one command and decodes the matching result into out.
func (c *Client) call(ctx context.Context, msgType string, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return errors.New("not connected to home assistant")
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
		_ = c.conn.SetWriteDeadline(deadline)
	}

	c.nextID++
	id := c.nextID

	if err := c.conn.WriteJSON(wsMessage{ID: id, Type: msgType}); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}

	for {
		var resp wsMessage
		if err := c.conn.ReadJSON(&resp); err != nil {
			return fmt.Errorf("read %s response: %w", msgType, err)
		}
		// Skip unsolicited messages (events, pongs) until our result arrives.
		if resp.Type != "result" || resp.ID != id {
			continue
		}
		if !resp.Success {
			if resp.Error != nil {
				return fmt.Errorf("%s failed: %s (%s)", msgType, resp.Error.Message, resp.Error.Code)
			}
			return fmt.Errorf("%s failed", msgType)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", msgType, err)
		}
		return nil
	}
}

// ListAreas returns all areas from the area registry.
func (c *Client) ListAreas(ctx context.Context) ([]Area, error) {
	var areas []Area
	if err := c.call(ctx, "config/area_registry/list", &areas); err != nil {
		return nil, err
	}
	return areas, nil
}

// ListDevices returns all devices from the device registry.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := c.call(ctx, "config/device_registry/list", &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// ListStates returns the current state snapshot of every entity.
func (c *Client) ListStates(ctx context.Context) ([]EntityState, error) {
	var states []EntityState
	if err := c.call(ctx, "get_states", &states); err != nil {
		return nil, err
	}
	return states, nil
}
