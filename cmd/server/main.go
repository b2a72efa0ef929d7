package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/billflow/billflow/internal/auth"
	"github.com/billflow/billflow/internal/config"
	"github.com/billflow/billflow/internal/db"
	"github.com/billflow/billflow/internal/mailer"
	"github.com/billflow/billflow/internal/models"
	"github.com/billflow/billflow/internal/services"
	"github.com/joho/godotenv"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	conn, err := db.Connect(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *migrateOnlyFlag {
		if err := db.Migrate(conn); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
		return
	}

	if cfg.App.Migrations {
		if err := db.Migrate(conn); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed")
	}

	// Configure auth verifier to check the session user still exists.
	auth.SetUserVerifier(func(ctx context.Context, uid uint) bool {
		var count int64
		conn.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Count(&count)
		return count > 0
	})

	sender := buildSender(cfg)

	engine := services.NewAutomationEngine(conn, sender)
	if cfg.Scheduler.Enabled {
		if err := engine.Start(cfg.Scheduler.SweepSpec); err != nil {
			log.Fatalf("Failed to start automation scheduler: %v", err)
		}
	}

	svc := services.NewInvoiceService(conn, engine)
	appHandler := NewApp(conn, svc, sender)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      appHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s (dev=%v)", cfg.Server.Port, cfg.App.Dev)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	engine.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// buildSender picks SMTP when configured, otherwise falls back to logging
// deliveries so dev environments work without a mail relay.
func buildSender(cfg *config.Config) mailer.Sender {
	if cfg.App.Dev && cfg.SMTP.Username == "" {
		log.Println("SMTP not configured, mail deliveries will be logged only")
		return mailer.Log{}
	}
	sender, err := mailer.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	if err != nil {
		log.Fatalf("Failed to configure SMTP: %v", err)
	}
	return sender
}
