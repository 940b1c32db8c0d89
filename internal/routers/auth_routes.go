package routers

import (
	"prepmate/api/internal/handlers"

	"github.com/go-chi/chi/v5"
)

func AuthRoutes(r *chi.Mux, authHandler *handlers.AuthHandler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.RegisterHandler)     // Account creation
		r.Post("/login", authHandler.LoginHandler)           // Email + password login
		r.Post("/token/refresh", authHandler.RefreshHandler) // Rotate token pair
	})
}
