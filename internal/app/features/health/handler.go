package health

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/lingohub/internal/app/features/errors"
	"github.com/dalemusser/lingohub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// OnlineCounter reports how many users hold a live socket.
type OnlineCounter interface {
	Online() int
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client   *mongo.Client
	Presence OnlineCounter
	Log      *zap.Logger
}

func NewHandler(client *mongo.Client, presence OnlineCounter, logger *zap.Logger) *Handler {
	return &Handler{Client: client, Presence: presence, Log: logger}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Online   *int   `json:"online,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "online":3 }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		uierrors.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:   "error",
			Database: "disconnected",
			Message:  "Database unavailable",
			Error:    err.Error(),
		})
		return
	}

	resp := healthResponse{Status: "ok", Database: "connected"}
	if h.Presence != nil {
		n := h.Presence.Online()
		resp.Online = &n
	}
	uierrors.WriteJSON(w, http.StatusOK, resp)
}
