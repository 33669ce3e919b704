// internal/app/features/chattoken/routes.go
package chattoken

import (
	"github.com/dalemusser/lingohub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /api/chat.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireSignedIn).Get("/token", h.ServeToken)
	return r
}
