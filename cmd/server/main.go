package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/homecook/storefront/internal/auth"
	"github.com/homecook/storefront/internal/backend"
	"github.com/homecook/storefront/internal/config"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/guard"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/payment"
	"github.com/homecook/storefront/internal/reconcile"
	"github.com/homecook/storefront/internal/router"
	"github.com/homecook/storefront/internal/service"
	"github.com/homecook/storefront/internal/session"
	"github.com/homecook/storefront/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reconciliation store
	if err := reconcile.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to migrate reconciliation store: %v", err)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Identity
	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up identity verifier: %v", err)
	}

	caps := lifecycle.DefaultCapabilities()
	if cfg.CustomerCancel {
		caps = caps.With(enum.RoleUser, enum.ActionCancel)
		log.Println("Customers may cancel their own pending orders")
	}
	engine := lifecycle.NewEngine(caps)

	api := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	hub := ws.NewHub(ws.WithChefMeals(func(ctx context.Context, s auth.Subject) ([]string, error) {
		meals, err := api.MealsByChef(backend.ContextWithToken(ctx, s.Upstream), s.Email)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(meals))
		for _, m := range meals {
			ids = append(ids, m.ID)
		}
		return ids, nil
	}))
	queue := reconcile.NewStore(pool)
	gate := payment.NewGate(api, payment.NewStripeProcessor(cfg.StripeSecretKey), queue, engine,
		payment.WithNotifier(hub))

	svc := router.Services{
		Sessions: session.NewManager(verifier, api, cfg.JWTSecret),
		Orders:   service.NewOrderService(api, engine, hub, service.WithPendingPayments(queue)),
		Meals:    service.NewMealService(api, caps),
		Accounts: service.NewAccountService(api, caps),
		Guard:    guard.New(api, caps),
		Gate:     gate,
	}

	go hub.Run(ctx)
	if cfg.BackendServiceToken == "" {
		log.Println("WARNING: BACKEND_SERVICE_TOKEN not set, reconciliation retries will be unauthenticated")
	}
	go reconcile.NewPoller(queue, gate, cfg.ReconcileInterval).Run(backend.ContextWithToken(ctx, cfg.BackendServiceToken))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router.New(cfg, svc, hub),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 20*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (backend %s)", cfg.Port, cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server forced to shutdown: %v", err)
	}
}

func newVerifier(ctx context.Context, cfg *config.Config) (session.Verifier, error) {
	if cfg.DevIdentity {
		log.Println("WARNING: DEV_IDENTITY enabled, accepting HMAC-signed ID tokens")
		return session.NewHMACVerifier(cfg.JWTSecret), nil
	}
	return session.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
}
