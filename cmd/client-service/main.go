package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/healthchain/ledger-client/internal/api"
	"github.com/healthchain/ledger-client/internal/ledger"
	"github.com/healthchain/ledger-client/internal/session"
	"github.com/healthchain/ledger-client/pkg/config"
	"github.com/healthchain/ledger-client/pkg/logger"
	"github.com/healthchain/ledger-client/pkg/monitoring"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.WithField("version", "1.0.0").Info("Starting Ledger Client Service")

	// Initialize metrics collector
	metrics := monitoring.NewMetricsCollector("ledger-client")

	// Initialize ledger gateway
	gateway := ledger.NewRPCGateway(&cfg.Ledger, log, metrics)

	// Initialize session manager
	sessions := session.NewManager(gateway, log, metrics)

	// Initialize HTTP handlers
	handlers := api.NewHandlers(sessions, &cfg.Auth, log)

	// Setup router
	router := mux.NewRouter()
	router.Use(metrics.HTTPMiddleware)
	handlers.RegisterRoutes(router)

	if cfg.Monitoring.Enabled {
		router.Handle(cfg.Monitoring.MetricsPath, metrics.Handler()).Methods("GET")
	}

	// Setup HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("address", server.Addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Failed to start HTTP server")
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Ledger Client Service...")

	// Close the active session so the event subscription shuts down
	if s := sessions.Current(); s != nil {
		s.Close()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
		os.Exit(1)
	}

	log.Info("Ledger Client Service stopped")
}
