// internal/app/system/realtime/hub.go
// Package realtime is the push transport: one WebSocket per signed-in user,
// registered in the presence registry for as long as it is open.
package realtime

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/lingohub/internal/app/system/apperr"
	"github.com/dalemusser/lingohub/internal/app/system/auth"
	"github.com/dalemusser/lingohub/internal/app/system/metrics"
	"github.com/dalemusser/lingohub/internal/app/system/presence"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config tunes the socket. Zero fields take the defaults below.
type Config struct {
	// AllowedOrigins lists browser origins allowed to connect. Empty
	// allows any origin.
	AllowedOrigins []string
	SendQueue      int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

const (
	defaultSendQueue      = 32
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 4096
)

func (c Config) withDefaults() Config {
	if c.SendQueue <= 0 {
		c.SendQueue = defaultSendQueue
	}
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = defaultPongWait
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	return c
}

// Hub upgrades requests and keeps the presence registry current.
type Hub struct {
	reg      presence.Registry
	cfg      Config
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHub(reg presence.Registry, cfg Config, logger *zap.Logger) *Hub {
	h := &Hub{reg: reg, cfg: cfg.withDefaults(), log: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP handles GET /ws for the signed-in user.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(apperr.ResponseOf(apperr.Unauthorized("Unauthorized - no session")))
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Debug("websocket upgrade failed", zap.String("user_id", u.ID), zap.Error(err))
		return
	}

	c := newConn(ws, u.ID, h.cfg.SendQueue, h.log)
	h.reg.Register(u.ID, c)
	metrics.SetConnectedUsers(h.reg.Online())
	c.log.Info("websocket connected")

	go c.writePump(h.cfg)
	c.readPump(h.cfg)

	h.reg.Unregister(c)
	metrics.SetConnectedUsers(h.reg.Online())
	c.log.Info("websocket disconnected")
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	o, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), o.Scheme+"://"+o.Host) {
			return true
		}
	}
	h.log.Warn("websocket origin rejected", zap.String("origin", origin))
	return false
}
