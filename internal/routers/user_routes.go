package routers

import (
	handlers "prepmate/api/internal/handlers"

	"github.com/go-chi/chi/v5"
)

func UserRoutes(r *chi.Mux, authHandler *handlers.AuthHandler) {
	r.Route("/api/user", func(r chi.Router) {
		r.Get("/", authHandler.MeHandler)         // Own profile
		r.Patch("/", authHandler.UpdateMeHandler) // Update own profile
	})
}
