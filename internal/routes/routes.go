package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/gbertoni/varco/internal/auth"
	"github.com/gbertoni/varco/internal/handlers"
	"github.com/gbertoni/varco/internal/middleware"
	"github.com/gbertoni/varco/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
) {
	// Rate limiting config for the credential endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/register", authHandler.Register)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/verify-otp", authHandler.VerifyOTP)

	// Admin routes - bearer token plus admin flag checked against the store
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))
		r.Use(auth.RequireAdmin(userRepo))

		r.Get("/admin/users", adminHandler.ListUsers)
		r.Get("/admin/users/pending", adminHandler.ListPendingUsers)
		r.Get("/admin/users/blocked", adminHandler.ListBlockedUsers)
		r.Post("/admin/users/{id}/approval", adminHandler.SetApproval)
		r.Post("/admin/users/{id}/block", adminHandler.Block)
		r.Post("/admin/users/{id}/unblock", adminHandler.Unblock)
		r.Post("/admin/users/{id}/reset-password", adminHandler.ResetPassword)
		r.Get("/admin/login-attempts", adminHandler.ListLoginAttempts)
	})
}
