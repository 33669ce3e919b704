// internal/app/features/chattoken/handler.go
package chattoken

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/lingohub/internal/app/features/errors"
	userstore "github.com/dalemusser/lingohub/internal/app/store/users"
	"github.com/dalemusser/lingohub/internal/app/system/apperr"
	"github.com/dalemusser/lingohub/internal/app/system/chanmirror"
	"github.com/dalemusser/lingohub/internal/app/system/inputval"
	"github.com/dalemusser/lingohub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler issues chat provider tokens for the signed-in user.
type Handler struct {
	Users  *userstore.Store
	Mirror chanmirror.Mirror
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, mirror chanmirror.Mirror, logger *zap.Logger) *Handler {
	return &Handler{Users: userstore.New(db), Mirror: mirror, Log: logger}
}

type tokenResponse struct {
	Token string `json:"token"`
}

// ServeToken handles GET /api/chat/token. The user's profile is pushed to
// the provider first so channel member lists show current names.
func (h *Handler) ServeToken(w http.ResponseWriter, r *http.Request) {
	me, err := inputval.Principal(r)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "chattoken.serve")
	defer cancel()

	card, err := h.Users.GetSummary(ctx, me)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.Write(w, r, h.Log, apperr.NotFound("User not found"))
			return
		}
		uierrors.Write(w, r, h.Log, apperr.Internal(err))
		return
	}
	h.Mirror.UpsertUser(ctx, card).Swallow(h.Log)

	token, err := h.Mirror.UserToken(me)
	if err != nil {
		uierrors.Write(w, r, h.Log, apperr.Wrap(err, apperr.KindExternalService, apperr.CodeMirrorFailed,
			"Chat service unavailable"))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, tokenResponse{Token: token})
}
