package obsws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned for requests made while the connection is down
var ErrNotConnected = errors.New("not connected to obs-websocket")

// ErrAuthenticationFailed is returned when the server rejects the password
var ErrAuthenticationFailed = errors.New("obs-websocket authentication failed")

// pendingCall is a request waiting for its response on conn
type pendingCall struct {
	conn *websocket.Conn
	ch   chan *RequestResponse
}

// Client is an obs-websocket v5 client. A dropped connection is re-dialed
// on the next request.
type Client struct {
	url      string
	password string
	timeout  time.Duration
	dialer   *websocket.Dialer

	// connMu guards conn and serializes writes
	connMu sync.Mutex
	conn   *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]*pendingCall

	closed bool
}

// NewClient creates a client. No connection is made until Connect or the first request.
func NewClient(url, password string, timeout time.Duration) *Client {
	return &Client{
		url:      url,
		password: password,
		timeout:  timeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
			Subprotocols:     []string{Subprotocol},
		},
		pending: make(map[string]*pendingCall),
	}
}

// Connect dials and identifies if not already connected
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connectLocked(ctx)
}

// Connected reports whether the websocket is currently up
func (c *Client) Connected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.closed {
		return ErrNotConnected
	}
	if c.conn != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to obs-websocket: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	negotiated, err := c.identify(conn)
	if err != nil {
		conn.Close()
		return err
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	c.conn = conn
	go c.readLoop(conn)

	slog.Info("Connected to OBS", "url", c.url, "rpcVersion", negotiated)
	return nil
}

// identify runs the Hello/Identify/Identified handshake
func (c *Client) identify(conn *websocket.Conn) (int, error) {
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		return 0, fmt.Errorf("failed to read hello: %w", err)
	}
	if msg.Op != OpHello {
		return 0, fmt.Errorf("expected hello, got op %d", msg.Op)
	}

	var hello Hello
	if err := json.Unmarshal(msg.D, &hello); err != nil {
		return 0, fmt.Errorf("failed to decode hello: %w", err)
	}

	identify := Identify{RPCVersion: RPCVersion}
	if hello.Authentication != nil {
		identify.Authentication = AuthResponse(c.password, hello.Authentication)
	}

	out, err := encode(OpIdentify, identify)
	if err != nil {
		return 0, err
	}
	if err := conn.WriteJSON(out); err != nil {
		return 0, fmt.Errorf("failed to send identify: %w", err)
	}

	if err := conn.ReadJSON(&msg); err != nil {
		if websocket.IsCloseError(err, CloseAuthenticationFailed) {
			return 0, ErrAuthenticationFailed
		}
		return 0, fmt.Errorf("failed to read identified: %w", err)
	}
	if msg.Op != OpIdentified {
		return 0, fmt.Errorf("expected identified, got op %d", msg.Op)
	}

	var identified Identified
	if err := json.Unmarshal(msg.D, &identified); err != nil {
		return 0, fmt.Errorf("failed to decode identified: %w", err)
	}
	return identified.NegotiatedRPCVersion, nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			c.dropConnection(conn, err)
			return
		}

		switch msg.Op {
		case OpRequestResponse:
			var resp RequestResponse
			if err := json.Unmarshal(msg.D, &resp); err != nil {
				slog.Warn("Failed to decode request response", "error", err)
				continue
			}
			c.pendingMu.Lock()
			call, ok := c.pending[resp.RequestID]
			delete(c.pending, resp.RequestID)
			c.pendingMu.Unlock()
			if ok {
				call.ch <- &resp
			}
		case OpEvent:
			// Not subscribed to any events
		default:
			slog.Debug("Ignoring obs-websocket message", "op", msg.Op)
		}
	}
}

// dropConnection forgets conn and fails requests still waiting on it
func (c *Client) dropConnection(conn *websocket.Conn, err error) {
	c.connMu.Lock()
	if c.conn == conn {
		c.conn = nil
		if !c.closed {
			slog.Warn("Lost connection to OBS", "error", err)
		}
	}
	c.connMu.Unlock()
	conn.Close()

	c.failPending(conn)
}

// failPending fails the requests sent on conn. Requests on a newer connection are kept.
func (c *Client) failPending(conn *websocket.Conn) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, call := range c.pending {
		if call.conn != conn {
			continue
		}
		close(call.ch)
		delete(c.pending, id)
	}
}

// Call sends a request and decodes responseData into out (which may be nil)
func (c *Client) Call(ctx context.Context, requestType string, data any, out any) error {
	id := uuid.NewString()
	ch := make(chan *RequestResponse, 1)

	msg, err := encode(OpRequest, Request{RequestType: requestType, RequestID: id, RequestData: data})
	if err != nil {
		return err
	}

	c.connMu.Lock()
	if err := c.connectLocked(ctx); err != nil {
		c.connMu.Unlock()
		return err
	}
	c.pendingMu.Lock()
	c.pending[id] = &pendingCall{conn: c.conn, ch: ch}
	c.pendingMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	err = c.conn.WriteJSON(msg)
	c.connMu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("failed to send %s: %w", requestType, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return ErrNotConnected
		}
		if !resp.RequestStatus.Result {
			return &RequestError{
				RequestType: requestType,
				Code:        resp.RequestStatus.Code,
				Comment:     resp.RequestStatus.Comment,
			}
		}
		if out != nil && len(resp.ResponseData) > 0 {
			if err := json.Unmarshal(resp.ResponseData, out); err != nil {
				return fmt.Errorf("failed to decode %s response: %w", requestType, err)
			}
		}
		return nil
	case <-timer.C:
		c.forget(id)
		return fmt.Errorf("%s timed out after %v", requestType, c.timeout)
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	}
}

func (c *Client) forget(id string) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// Close closes the connection. Later requests fail with ErrNotConnected.
func (c *Client) Close() error {
	c.connMu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn == nil {
		return nil
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}
