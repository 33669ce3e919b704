// internal/app/features/friends/handler.go
package friends

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/lingohub/internal/app/features/errors"
	"github.com/dalemusser/lingohub/internal/app/services/socialgraph"
	"github.com/dalemusser/lingohub/internal/app/system/inputval"
	"github.com/dalemusser/lingohub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the /api/users endpoints.
type Handler struct {
	Svc *socialgraph.Service
	Log *zap.Logger
}

func NewHandler(svc *socialgraph.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

// ServeRecommended handles GET /api/users.
func (h *Handler) ServeRecommended(w http.ResponseWriter, r *http.Request) {
	h.read(w, r, func(ctx context.Context, me primitive.ObjectID) (any, error) {
		return h.Svc.RecommendedUsers(ctx, me)
	})
}

// ServeFriends handles GET /api/users/friends.
func (h *Handler) ServeFriends(w http.ResponseWriter, r *http.Request) {
	h.read(w, r, func(ctx context.Context, me primitive.ObjectID) (any, error) {
		return h.Svc.ListFriends(ctx, me)
	})
}

// ServeFriendRequests handles GET /api/users/friend-requests.
func (h *Handler) ServeFriendRequests(w http.ResponseWriter, r *http.Request) {
	h.read(w, r, func(ctx context.Context, me primitive.ObjectID) (any, error) {
		return h.Svc.FriendRequests(ctx, me)
	})
}

// ServeOutgoing handles GET /api/users/outgoing-friend-requests.
func (h *Handler) ServeOutgoing(w http.ResponseWriter, r *http.Request) {
	h.read(w, r, func(ctx context.Context, me primitive.ObjectID) (any, error) {
		return h.Svc.OutgoingRequests(ctx, me)
	})
}

// ServeActivity handles GET /api/users/activity?page=.
func (h *Handler) ServeActivity(w http.ResponseWriter, r *http.Request) {
	h.read(w, r, func(ctx context.Context, me primitive.ObjectID) (any, error) {
		return h.Svc.MyActivity(ctx, me, inputval.Page(r))
	})
}

// HandleSend handles POST /api/users/friend-request/{id}.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	me, id, ok := h.principalAnd(w, r, "user")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "friends.send")
	defer cancel()

	fr, err := h.Svc.SendFriendRequest(ctx, me, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, fr)
}

// HandleAccept handles PUT /api/users/friend-request/{id}/accept.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	me, id, ok := h.principalAnd(w, r, "request")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "friends.accept")
	defer cancel()

	if _, err := h.Svc.AcceptFriendRequest(ctx, me, id); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, message{"Friend request accepted"})
}

// HandleReject handles DELETE /api/users/friend-request/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	me, id, ok := h.principalAnd(w, r, "request")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "friends.reject")
	defer cancel()

	if err := h.Svc.RejectFriendRequest(ctx, me, id); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, message{"Friend request rejected"})
}

// HandleCancel handles DELETE /api/users/friend-request/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	me, id, ok := h.principalAnd(w, r, "request")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "friends.cancel")
	defer cancel()

	if err := h.Svc.CancelFriendRequest(ctx, me, id); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, message{"Friend request canceled"})
}

// HandleRemove handles DELETE /api/users/friends/{id}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	me, id, ok := h.principalAnd(w, r, "user")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "friends.remove")
	defer cancel()

	if err := h.Svc.RemoveFriend(ctx, me, id); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, message{"Friend removed"})
}

type message struct {
	Message string `json:"message"`
}

func (h *Handler) read(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, me primitive.ObjectID) (any, error)) {
	me, err := inputval.Principal(r)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "friends.read")
	defer cancel()

	out, err := fn(ctx, me)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) principalAnd(w http.ResponseWriter, r *http.Request, what string) (primitive.ObjectID, primitive.ObjectID, bool) {
	me, err := inputval.Principal(r)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	id, err := inputval.PathID(r, "id", what)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return me, id, true
}
