package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kozaktomas/face-auth/internal/auth"
	"github.com/kozaktomas/face-auth/internal/config"
	"github.com/kozaktomas/face-auth/internal/constants"
)

const writeWait = constants.WSWriteWait * time.Second

// SocketHandler upgrades requests to websocket connections and runs one
// authentication session per connection.
type SocketHandler struct {
	auth     auth.Authenticator
	cfg      *config.AuthConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu       sync.Mutex // guards closed and sessions.Add
	closed   bool
	closing  chan struct{}
	sessions sync.WaitGroup
	active   atomic.Int64
}

// NewSocketHandler creates a socket handler. checkOrigin decides which
// browser origins may connect; nil allows only same-origin requests.
func NewSocketHandler(a auth.Authenticator, cfg *config.AuthConfig, checkOrigin func(*http.Request) bool, logger *slog.Logger) *SocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketHandler{
		auth: a,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  constants.WSReadBufferSize,
			WriteBufferSize: constants.WSWriteBufferSize,
			CheckOrigin:     checkOrigin,
		},
		logger:  logger,
		closing: make(chan struct{}),
	}
}

// Active returns the number of open connections.
func (h *SocketHandler) Active() int64 {
	return h.active.Load()
}

// Handle upgrades the request and serves the session until the client leaves.
func (h *SocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		respondError(w, http.StatusServiceUnavailable, "server shutting down")
		return
	}
	h.sessions.Add(1)
	h.mu.Unlock()
	defer h.sessions.Done()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	h.active.Add(1)
	defer h.active.Add(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := newWSConn(ws, h.cfg)
	defer conn.Close()
	go conn.readLoop(cancel)
	go conn.keepalive(ctx)
	go func() {
		select {
		case <-h.closing:
			conn.closeWith(websocket.CloseGoingAway, "server shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	session := auth.NewSession(conn, h.auth, h.cfg, h.logger)
	h.logger.Debug("client connected", "session", session.ID(), "remote", r.RemoteAddr)
	if err := session.Serve(ctx); err != nil {
		h.logger.Warn("session ended with error", "session", session.ID(), "error", err)
	}
	h.logger.Debug("client disconnected", "session", session.ID(), "handled", session.Handled())
}

// Shutdown closes every open connection and waits for their sessions to end.
func (h *SocketHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.closing)
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wsConn adapts a websocket connection to auth.Conn. A reader goroutine
// decodes frames so that a disconnect is noticed while a match is running.
type wsConn struct {
	ws           *websocket.Conn
	frames       chan auth.Envelope
	readErr      error // set before frames is closed
	maxMessage   int64
	pingInterval time.Duration
	pongWait     time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn, cfg *config.AuthConfig) *wsConn {
	return &wsConn{
		ws:           ws,
		frames:       make(chan auth.Envelope),
		maxMessage:   cfg.MaxMessageBytes,
		pingInterval: cfg.PingInterval,
		pongWait:     cfg.PingInterval * constants.WSPongWaitFactor,
		done:         make(chan struct{}),
	}
}

func (c *wsConn) extendReadDeadline() error {
	if c.pongWait <= 0 {
		return nil
	}
	return c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
}

// readLoop forwards decoded frames until the connection fails, then cancels the session.
func (c *wsConn) readLoop(cancel context.CancelFunc) {
	defer close(c.frames)
	defer cancel()

	if c.maxMessage > 0 {
		c.ws.SetReadLimit(c.maxMessage)
	}
	c.extendReadDeadline()
	c.ws.SetPongHandler(func(string) error { return c.extendReadDeadline() })

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr = err
			return
		}

		var env auth.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// Not an event frame; there is no request to answer.
			continue
		}

		select {
		case c.frames <- env:
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) keepalive(ctx context.Context) {
	if c.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) ReadEnvelope() (auth.Envelope, error) {
	env, ok := <-c.frames
	if !ok {
		if isClosedConn(c.readErr) {
			return auth.Envelope{}, io.EOF
		}
		return auth.Envelope{}, c.readErr
	}
	return env, nil
}

func (c *wsConn) WriteEnvelope(env auth.Envelope) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(env)
}

func (c *wsConn) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.Close()
}

// Close releases the connection. Safe to call more than once.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

func isClosedConn(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) || errors.Is(err, net.ErrClosed)
}
