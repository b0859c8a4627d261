package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/homecook/storefront/internal/config"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/guard"
	"github.com/homecook/storefront/internal/handler"
	mw "github.com/homecook/storefront/internal/middleware"
	"github.com/homecook/storefront/internal/payment"
	"github.com/homecook/storefront/internal/service"
	"github.com/homecook/storefront/internal/ws"
)

// Services are the collaborators the handlers are built on.
type Services struct {
	Sessions handler.SessionManager
	Orders   *service.OrderService
	Meals    *service.MealService
	Accounts *service.AccountService
	Guard    *guard.Guard
	Gate     *payment.Gate
}

// New creates a Chi router with all application routes wired up.
// Catalog and session routes accept anonymous visitors; everything else
// requires a session, and /admin additionally requires the admin role.
func New(cfg *config.Config, svc Services, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.EchoRequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler := handler.NewAuthHandler(svc.Sessions)
	mealHandler := handler.NewMealHandler(svc.Meals)
	reviewHandler := handler.NewReviewHandler(svc.Guard, svc.Meals)
	orderHandler := handler.NewOrderHandler(svc.Orders)
	paymentHandler := handler.NewPaymentHandler(svc.Gate, svc.Orders)
	favoriteHandler := handler.NewFavoriteHandler(svc.Guard)
	userHandler := handler.NewUserHandler(svc.Accounts)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Public routes; a valid token still identifies the viewer
	r.Group(func(r chi.Router) {
		r.Use(mw.Optional(cfg.JWTSecret))
		authHandler.RegisterRoutes(r)
		mealHandler.RegisterPublicRoutes(r)
		reviewHandler.RegisterPublicRoutes(r)
		orderHandler.RegisterPublicRoutes(r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterProtectedRoutes(r)
		mealHandler.RegisterRoutes(r)
		reviewHandler.RegisterRoutes(r)
		paymentHandler.RegisterRoutes(r)
		userHandler.RegisterRoutes(r)
		r.Route("/orders", orderHandler.RegisterRoutes)
		r.Route("/favorites", favoriteHandler.RegisterRoutes)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin))
			r.Route("/admin", userHandler.RegisterAdminRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
