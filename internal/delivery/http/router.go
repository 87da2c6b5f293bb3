package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"voicecal/internal/delivery/http/controllers"
	"voicecal/internal/delivery/http/middleware"
	"voicecal/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	authController *controllers.AuthController,
	calendarController *controllers.CalendarController,
	assistantController *controllers.AssistantController,
	verifier domain.TokenVerifier,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier)

	// Auth
	mux.HandleFunc("POST /auth/register", authController.Register)
	mux.HandleFunc("POST /auth/login", authController.Login)

	// Calendar
	mux.HandleFunc("POST /events", auth(calendarController.CreateEvent))
	mux.HandleFunc("GET /events", auth(calendarController.ListEvents))
	mux.HandleFunc("PUT /events/{eventID}", auth(calendarController.EditEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(calendarController.DeleteEvent))
	mux.HandleFunc("POST /events/import", auth(assistantController.ImportICS))

	// Assistant
	mux.HandleFunc("POST /assistant/apply", auth(assistantController.ApplyRecommendations))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
