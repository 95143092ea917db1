package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillahandlers "github.com/gorilla/handlers"

	"github.com/markjakearzadon/zapshift-gobackend/internal/auth"
	"github.com/markjakearzadon/zapshift-gobackend/internal/config"
	"github.com/markjakearzadon/zapshift-gobackend/internal/db"
	"github.com/markjakearzadon/zapshift-gobackend/internal/handlers"
	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", err)
	}

	logFile, err := logger.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logger.Fatal("failed to set up logging", err)
	}
	defer logFile.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		cancel()
		logger.Fatal("failed to connect to MongoDB", err)
	}
	database := client.Database(cfg.DatabaseName)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		cancel()
		logger.Fatal("failed to create indexes", err)
	}
	cancel()
	logger.Success("connected to MongoDB", "database", cfg.DatabaseName, "transactions", cfg.MongoTransactions)

	store := db.NewStore(client, database, cfg.MongoTransactions)
	tracking := services.NewTrackingLogger(store.TrackingLogs, services.TrackingLoggerOptions{
		QueueSize:   cfg.TrackingQueueSize,
		MaxAttempts: cfg.TrackingMaxAttempts,
	})
	gateway := services.NewStripeGateway(cfg.PaymentAPIKey, nil)
	verifier := auth.NewFirebaseVerifier(cfg.FirebaseProjectID, cfg.FirebaseCertsURL,
		&http.Client{Timeout: 10 * time.Second})

	router := handlers.NewRouter(handlers.Services{
		Users:   services.NewUserService(store.Users),
		Riders:  services.NewRiderService(store),
		Parcels: services.NewParcelService(store, tracking),
		Payments: services.NewPaymentService(store, gateway, tracking, services.PaymentConfig{
			SiteDomain: cfg.SiteDomain,
			Currency:   cfg.PaymentCurrency,
		}),
		Tracking: tracking,
	}, verifier)

	var handler http.Handler = router
	handler = gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(cfg.CORSOrigins),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type", handlers.RequestIDHeader}),
	)(handler)
	handler = gorillahandlers.RecoveryHandler(gorillahandlers.PrintRecoveryStack(true))(handler)
	handler = gorillahandlers.CombinedLoggingHandler(os.Stdout, handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Success("server running", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logger.Error("server stopped", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down server", err)
	}
	if err := tracking.Close(shutdownCtx); err != nil {
		logger.Error("tracking logs not fully flushed", err)
	}
	if err := db.Disconnect(shutdownCtx, client); err != nil {
		logger.Error("failed to disconnect from MongoDB", err)
	}
	logger.Info("server stopped")
}
