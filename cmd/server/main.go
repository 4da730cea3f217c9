package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stripelite/backend/internal/config"
	"github.com/stripelite/backend/internal/handler"
	appMiddleware "github.com/stripelite/backend/internal/middleware"
	"github.com/stripelite/backend/internal/repository"
	"github.com/stripelite/backend/internal/service"
	"github.com/stripelite/backend/pkg/payment"
)

func main() {
	// Load .env file if present (for local development)
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}

	ctx := context.Background()

	db, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database error")
	}
	defer db.Close()

	if err := repository.Bootstrap(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("schema bootstrap error")
	}
	logger.Info().Msg("database connected and schema bootstrapped")

	// Repositories
	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	// Services
	policy := service.AdminPromotionPolicy{Secret: cfg.AdminSecretKey}
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.BcryptCost, policy, userRepo)
	planSvc := service.NewPlanService(planRepo)
	subSvc := service.NewSubscriptionService(subRepo, planRepo)
	gateway := payment.NewSimulatedGateway()
	invoiceSvc := service.NewInvoiceService(invoiceRepo, subRepo, gateway)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	plansHandler := handler.NewPlansHandler(planSvc)
	subHandler := handler.NewSubscriptionHandler(subSvc)
	invoiceHandler := handler.NewInvoiceHandler(invoiceSvc)
	userHandler := handler.NewUserHandler(authSvc)
	setupHandler := handler.NewSetupHandler(db, authSvc, cfg.SetupToken)
	healthHandler := handler.NewHealthHandler(db)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Setup-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	globalRL := appMiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	r.Use(globalRL.Middleware())

	// Public routes
	r.Get("/health", healthHandler.Check)
	r.Get("/api/plans", plansHandler.List)
	r.Get("/api/plans/{id}", plansHandler.Get)

	// Operator bootstrap (gated by X-Setup-Token)
	r.Post("/api/setup/database", setupHandler.Database)
	r.Post("/api/setup/admin", setupHandler.MakeAdmin)

	// Auth routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter())
		r.Post("/api/auth/signup", authHandler.Signup)
		r.Post("/api/auth/login", authHandler.Login)
	})
	r.Post("/api/auth/logout", authHandler.Logout)

	// Protected API routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		r.Get("/api/auth/me", authHandler.Me)

		// Subscriptions
		r.Post("/api/subscriptions", subHandler.Create)
		r.Get("/api/subscriptions", subHandler.List)
		r.Get("/api/subscriptions/{id}/history", subHandler.History)
		r.Post("/api/subscriptions/{id}/pause", subHandler.Pause)
		r.Post("/api/subscriptions/{id}/resume", subHandler.Resume)
		r.Post("/api/subscriptions/{id}/cancel", subHandler.Cancel)

		// Invoices
		r.Get("/api/invoices", invoiceHandler.List)
		r.Get("/api/invoices/{id}", invoiceHandler.Get)
		r.Post("/api/invoices/{id}/pay", invoiceHandler.Pay)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)

			r.Get("/api/admin/plans", plansHandler.ListAll)
			r.Post("/api/admin/plans", plansHandler.Create)
			r.Put("/api/admin/plans/{id}", plansHandler.Update)
			r.Post("/api/admin/plans/{id}/toggle", plansHandler.Toggle)
			r.Delete("/api/admin/plans/{id}", plansHandler.Delete)

			r.Get("/api/admin/subscriptions", subHandler.ListAll)
			r.Get("/api/admin/invoices", invoiceHandler.ListAll)
			r.Post("/api/admin/invoices/{id}/mark-paid", invoiceHandler.MarkPaid)
			r.Post("/api/admin/invoices/{id}/mark-failed", invoiceHandler.MarkFailed)
			r.Post("/api/admin/invoices/{id}/refund", invoiceHandler.Refund)

			r.Get("/api/admin/metrics", invoiceHandler.Metrics)
			r.Get("/api/admin/metrics/monthly", invoiceHandler.MonthlyChart)
			r.Get("/api/admin/users", userHandler.List)
		})
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	logger.Info().Str("addr", addr).Msg("billing backend listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}
