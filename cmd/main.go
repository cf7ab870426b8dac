package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gohmolo58-collab/caisse-manger/internal/config"
	"github.com/gohmolo58-collab/caisse-manger/internal/database"
	"github.com/gohmolo58-collab/caisse-manger/internal/logger"
	"github.com/gohmolo58-collab/caisse-manger/internal/messaging"
	"github.com/gohmolo58-collab/caisse-manger/internal/metrics"
	"github.com/gohmolo58-collab/caisse-manger/internal/services/catalog"
	"github.com/gohmolo58-collab/caisse-manger/internal/services/inventory"
	"github.com/gohmolo58-collab/caisse-manger/internal/services/order"
	"github.com/gohmolo58-collab/caisse-manger/internal/services/settings"
)

func main() {
	var (
		configPath     = flag.String("config", "config.yaml", "Path to config file")
		port           = flag.Int("port", 0, "HTTP port (overrides config)")
		migrationsPath = flag.String("migrations", "migrations", "Path to SQL migrations")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	log := logger.New("caisse-pos")
	requestID := logger.GenerateRequestID()

	log.Info("service_started", "Starting caisse-pos backend", requestID, map[string]interface{}{
		"port": cfg.HTTP.Port,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
	}()

	if err := run(ctx, cfg, log, *migrationsPath); err != nil {
		log.Error("service_failed", "POS backend failed", requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, migrationsPath string) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

	if err := db.RunMigrations(ctx, migrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

	publisher := messaging.NewPublisher(conn, log)
	m := metrics.New()

	catalogStore := catalog.NewStore(db)
	ledger := inventory.NewLedger(db, log)
	settingsStore := settings.NewStore(db)
	orderStore := order.NewPostgresStore(db)

	service := order.NewService(orderStore, catalogStore, ledger, settingsStore, publisher, m, log)
	handler := order.NewHandler(service, catalogStore, ledger, settingsStore, db, m, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.SetupRoutes(),
	}

	go func() {
		log.Info("http_listening", fmt.Sprintf("POS backend listening on port %d", cfg.HTTP.Port), requestID, nil)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server_failed", "HTTP server failed", requestID, err, nil)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}
