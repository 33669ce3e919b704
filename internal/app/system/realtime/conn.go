// internal/app/system/realtime/conn.go
package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/lingohub/internal/app/system/notify"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by Send when the client is not keeping up.
	// The event is dropped.
	ErrQueueFull = errors.New("realtime: send queue full")
	// ErrClosed is returned by Send after the connection has gone away.
	ErrClosed = errors.New("realtime: connection closed")
)

// Conn is one client WebSocket. It satisfies presence.Conn.
type Conn struct {
	id     string
	userID string
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	log    *zap.Logger
}

func newConn(ws *websocket.Conn, userID string, queue int, logger *zap.Logger) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:     id,
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, queue),
		done:   make(chan struct{}),
		log:    logger.With(zap.String("conn_id", id), zap.String("user_id", userID)),
	}
}

func (c *Conn) ID() string { return c.id }

// Send queues an event envelope for the writer. It never blocks.
func (c *Conn) Send(event string, payload any) error {
	msg, err := json.Marshal(notify.Envelope{Event: event, Data: payload})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

// close tells the writer to say goodbye and release the socket. Safe to
// call more than once.
func (c *Conn) close() {
	c.once.Do(func() { close(c.done) })
}

// writePump is the only goroutine that writes to the socket, and the one
// that closes it once the close frame is out.
func (c *Conn) writePump(cfg Config) {
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(cfg.WriteWait))
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("websocket ping failed", zap.Error(err))
				return
			}
		}
	}
}

// readPump drains client frames so control messages are processed, and
// returns when the client goes away. Client payloads are ignored.
func (c *Conn) readPump(cfg Config) {
	defer c.close()

	c.ws.SetReadLimit(cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}
