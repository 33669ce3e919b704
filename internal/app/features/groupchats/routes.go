// internal/app/features/groupchats/routes.go
package groupchats

import (
	"github.com/dalemusser/lingohub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /api/groups.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/create", h.HandleCreate)
		pr.Get("/my-groups", h.ServeMyGroups)

		pr.Get("/{groupId}", h.ServeGroup)
		pr.Post("/{groupId}/add-members", h.HandleAddMembers)
		pr.Post("/{groupId}/leave", h.HandleLeave)
		pr.Post("/{groupId}/kick/{memberId}", h.HandleKick)
		pr.Put("/{groupId}/update", h.HandleUpdate)
		pr.Delete("/{groupId}/delete", h.HandleDelete)
		pr.Get("/{groupId}/members/search", h.ServeSearchMembers)
		pr.Get("/{groupId}/activity", h.ServeActivity)
	})
	return r
}
