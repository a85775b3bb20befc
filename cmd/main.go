package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/broker"
	"github.com/juggajay/RiskSure.AI-sub002/internal/config"
	"github.com/juggajay/RiskSure.AI-sub002/internal/controllers"
	"github.com/juggajay/RiskSure.AI-sub002/internal/database"
	"github.com/juggajay/RiskSure.AI-sub002/internal/logger"
	"github.com/juggajay/RiskSure.AI-sub002/internal/procore"
	"github.com/juggajay/RiskSure.AI-sub002/internal/repository"
	"github.com/juggajay/RiskSure.AI-sub002/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	// Initialize database
	db, err := database.New(cfg.Database.ConnectionString(), zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Create repositories
	connRepo := repository.NewOAuthConnectionRepository(db)
	mappingRepo := repository.NewEntityMappingRepository(db)
	subRepo := repository.NewSubcontractorRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	pushRepo := repository.NewCompliancePushRepository(db)
	trustedServiceRepo := repository.NewTrustedServiceRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Create broker publisher
	publisher, err := broker.NewPublisher(&cfg.Broker, zl)
	if err != nil {
		zl.Fatal("failed to create broker publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Create external API client
	client := procore.NewClient(cfg.Procore.BaseURL)

	// Create services
	oauthService := services.NewOAuthService(
		cfg.Procore.BaseURL,
		cfg.Procore.ClientID,
		cfg.Procore.ClientSecret,
		cfg.Procore.RedirectURI,
		connRepo,
		zl,
	)
	coordinator := services.NewTokenCoordinator(connRepo, oauthService, zl)
	resolver := services.NewConflictResolver(subRepo)
	syncEngine := services.NewSyncEngine(coordinator, client, mappingRepo, subRepo, projectRepo, resolver, auditRepo, publisher, zl)
	complianceService := services.NewComplianceService(coordinator, client, mappingRepo, subRepo, verificationRepo, pushRepo, auditRepo, publisher, zl)
	webhookService := services.NewWebhookService(cfg.WebhookSecret, publisher)
	authService := services.NewAuthService(trustedServiceRepo)
	consumerService := services.NewConsumerService(authService, syncEngine, complianceService, zl)

	// Create broker consumer
	consumer, err := broker.NewConsumer(&cfg.Broker, publisher, zl)
	if err != nil {
		zl.Fatal("failed to create broker consumer", zap.Error(err))
	}
	defer consumer.Close()

	// Register handlers and start consumer
	consumerService.RegisterHandlers(consumer)
	if err := consumer.Start(); err != nil {
		zl.Fatal("failed to start consumer", zap.Error(err))
	}

	// Create handlers
	webhookHandler := controllers.NewWebhookHandler(webhookService, zl)
	oauthHandler := controllers.NewOAuthHandler(oauthService, cfg.AppURL, zl)
	syncHandler := controllers.NewSyncHandler(syncEngine, zl)
	complianceHandler := controllers.NewComplianceHandler(complianceService, zl)

	// Create router
	router := mux.NewRouter()

	// Enable CORS for the web app
	router.Use(corsMiddleware)

	// Mount routes
	router.HandleFunc("/hook", webhookHandler.HandleWebhook).Methods("POST")
	router.HandleFunc("/health", webhookHandler.HandleHealth).Methods("GET")
	router.HandleFunc("/oauth/callback", oauthHandler.HandleCallback).Methods("GET")
	router.HandleFunc("/api/oauth/select-company", oauthHandler.HandleSelectCompany).Methods("POST")
	router.HandleFunc("/api/oauth/disconnect", oauthHandler.HandleDisconnect).Methods("POST")
	router.HandleFunc("/api/sync/vendors", syncHandler.HandleSyncVendors).Methods("POST")
	router.HandleFunc("/api/sync/projects", syncHandler.HandleSyncProjects).Methods("POST")
	router.HandleFunc("/api/subcontractors/{id}/compliance/push", complianceHandler.HandlePush).Methods("POST")
	router.HandleFunc("/api/subcontractors/{id}/compliance/history", complianceHandler.HandleHistory).Methods("GET")

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		zl.Info("server running", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zl.Fatal("server forced to shutdown", zap.Error(err))
	}

	zl.Info("server stopped")
}

// corsMiddleware adds CORS headers for the web app
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
