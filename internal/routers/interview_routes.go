package routers

import (
	handlers "prepmate/api/internal/handlers"

	"github.com/go-chi/chi/v5"
)

func InterviewRoutes(r *chi.Mux, interviewHandler *handlers.InterviewHandler) {
	r.Route("/api/interviews", func(r chi.Router) {
		r.Get("/", interviewHandler.ListHandler)    // Own session history
		r.Post("/", interviewHandler.CreateHandler) // Create + seed questions
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", interviewHandler.DetailHandler)
			r.Delete("/", interviewHandler.CancelHandler)
			r.Post("/generate", interviewHandler.GenerateHandler)
			r.Post("/evaluate", interviewHandler.EvaluateHandler)
			r.Patch("/questions/{order}", interviewHandler.UpdateAnswerHandler)
			r.Delete("/questions/{order}", interviewHandler.DeleteQuestionHandler)
		})
	})
}
