package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds how long a single outbound frame may take before the
// write pump gives up on a stalled peer.
const writeWait = 10 * time.Second

// nextConnectionID is the process-wide monotonic counter backing every
// WebSocketConnection's ID.
var nextConnectionID uint64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebSocketTransport accepts WebSocket upgrades over an HTTP listener. It
// bridges net/http's handler-callback model to the pull-based Transport
// interface via a buffered channel of freshly upgraded connections, so the
// accept loop can treat a WebSocket upgrade the same as any other listener.
type WebSocketTransport struct {
	listener net.Listener
	server   *http.Server
	accepted chan Connection
	errs     chan error
}

// Bind starts an HTTP listener on addr and begins accepting WebSocket
// upgrades on "/ws". Returns once the listener is bound; serving happens
// on a background goroutine.
func Bind(addr string) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &Error{Kind: ErrKindAcceptFailed, Cause: err}
	}

	t := &WebSocketTransport{
		listener: ln,
		accepted: make(chan Connection, 16),
		errs:     make(chan error, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", t.handleUpgrade)
	t.server = &http.Server{Handler: mux}

	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case t.errs <- err:
			default:
			}
		}
	}()

	return t, nil
}

func (t *WebSocketTransport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	id := ConnectionID(atomic.AddUint64(&nextConnectionID, 1))
	t.accepted <- &WebSocketConnection{id: id, ws: conn}
}

// Accept returns the next upgraded connection, or an error if the listener
// failed or ctx was cancelled first.
func (t *WebSocketTransport) Accept(ctx context.Context) (Connection, error) {
	select {
	case c := <-t.accepted:
		return c, nil
	case err := <-t.errs:
		return nil, &Error{Kind: ErrKindAcceptFailed, Cause: err}
	case <-ctx.Done():
		return nil, &Error{Kind: ErrKindAcceptFailed, Cause: ctx.Err()}
	}
}

// Shutdown stops accepting new connections. In-flight connections are
// left to close on their own.
func (t *WebSocketTransport) Shutdown(ctx context.Context) error {
	return t.server.Shutdown(ctx)
}

// Addr returns the bound listener address, mainly useful in tests.
func (t *WebSocketTransport) Addr() net.Addr { return t.listener.Addr() }

// WebSocketConnection adapts a gorilla/websocket connection to the
// Connection interface. Writes are serialized by mu because gorilla
// forbids concurrent writers on one *websocket.Conn.
type WebSocketConnection struct {
	id ConnectionID
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *WebSocketConnection) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(timeNow().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return &Error{Kind: ErrKindSendFailed, Cause: err}
	}
	return nil
}

func (c *WebSocketConnection) SendUnreliable(ctx context.Context, data []byte) error {
	return c.Send(ctx, data)
}

// Recv blocks for the next data frame, honoring ctx's deadline and
// cancellation: ReadMessage has no ctx parameter of its own, so a deadline
// on ctx is applied to the socket via SetReadDeadline, and a watcher
// goroutine forces an immediate read timeout if ctx is cancelled before
// that deadline arrives (e.g. the parent ctx being cancelled outright,
// rather than the per-call timeout elapsing). Without this, a peer that
// never sends (or goes idle) would pin ReadMessage forever regardless of
// the handshake/idle timeouts the caller set up ctx to enforce. Text
// frames are accepted and treated as binary UTF-8. A clean close, a
// ctx-driven timeout, or the underlying read erroring because the peer
// went away all surface as (nil, nil) so callers can tell "closed" apart
// from "failed".
func (c *WebSocketConnection) Recv(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetReadDeadline(deadline)
	} else {
		_ = c.ws.SetReadDeadline(time.Time{})
	}

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.ws.SetReadDeadline(timeNow())
		case <-watchDone:
		}
	}()

	msgType, data, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived,
		) {
			return nil, nil
		}
		if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, nil
		}
		return nil, &Error{Kind: ErrKindReceiveFailed, Cause: err}
	}
	switch msgType {
	case websocket.BinaryMessage, websocket.TextMessage:
		return data, nil
	default:
		return nil, nil
	}
}

func (c *WebSocketConnection) Close() error {
	return c.ws.Close()
}

func (c *WebSocketConnection) ID() ConnectionID { return c.id }

// timeNow is a var so tests can override it if ever needed; kept simple
// rather than threading a clock through the transport layer.
var timeNow = func() time.Time { return time.Now() }
