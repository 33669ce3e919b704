// internal/app/features/friends/routes.go
package friends

import (
	"github.com/dalemusser/lingohub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /api/users.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeRecommended)
		pr.Get("/friends", h.ServeFriends)
		pr.Delete("/friends/{id}", h.HandleRemove)

		pr.Get("/friend-requests", h.ServeFriendRequests)
		pr.Get("/outgoing-friend-requests", h.ServeOutgoing)
		pr.Get("/activity", h.ServeActivity)

		pr.Post("/friend-request/{id}", h.HandleSend)
		pr.Put("/friend-request/{id}/accept", h.HandleAccept)
		pr.Delete("/friend-request/{id}/reject", h.HandleReject)
		pr.Delete("/friend-request/{id}/cancel", h.HandleCancel)
	})
	return r
}
