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

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"libraquant/configs"
	"libraquant/internal/adapter/gemini"
	"libraquant/internal/adapter/sheets"
	"libraquant/internal/adapter/telegram"
	"libraquant/internal/auth"
	httpdelivery "libraquant/internal/delivery/http"
	"libraquant/internal/domain"
	"libraquant/internal/infra"
	"libraquant/internal/seed"
	"libraquant/internal/service"
	"libraquant/internal/usecase"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	// Local store
	store, err := infra.OpenStore(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer store.Close()
	local := service.NewLocalStore(store.Repo, store.Feed)

	// Remote sheet
	sheet := sheets.NewClient(cfg.Sheet.Endpoint, cfg.Sheet.HTTPTimeout)
	if !sheet.Configured() {
		log.Println("[WARN] SHEET_ENDPOINT is not configured, syncs will fail until it is set")
	}

	var demo *domain.Snapshot
	if cfg.Sheet.SeedDemo {
		if demo, err = seed.Demo(time.Now()); err != nil {
			log.Fatalf("Failed to load demo data: %v", err)
		}
	}

	analyst, err := gemini.NewAnalyst(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Fatalf("Failed to initialize analyst: %v", err)
	}

	var notifier domain.SignalNotifier
	if tg := telegram.NewNotificationService(cfg.Telegram.BotToken, cfg.Telegram.ChatID); tg.Enabled() {
		notifier = tg
		log.Println("[OK] Telegram alerts enabled")
	}

	trust := usecase.NewTrustManager(sheet, local, auth.NewTokenIssuer(cfg.Auth.JWTSecret), usecase.TrustOptions{
		SessionTTL:  cfg.Auth.SessionTTL,
		AdminSuffix: cfg.Auth.AdminSuffix,
	})

	terminal := usecase.NewTerminal(usecase.TerminalDeps{
		Trust:    trust,
		Source:   sheet,
		Pusher:   sheet,
		Store:    local,
		Analyst:  analyst,
		Notifier: notifier,
		Engine: usecase.EngineOptions{
			PollInterval: cfg.Sheet.PollInterval,
			Seed:         demo,
		},
	})
	defer terminal.Close()

	if session, err := terminal.Restore(ctx); err != nil {
		log.Printf("[WARN] Could not resume session: %v", err)
	} else if session == nil {
		log.Println("No active session, waiting for login")
	}

	// HTTP API
	e := echo.New()
	e.HideBanner = true
	httpdelivery.SetupRoutes(e, &httpdelivery.RouterConfig{
		Sessions:     terminal,
		AuthHandler:  httpdelivery.NewAuthHandler(terminal),
		UserHandler:  httpdelivery.NewUserHandler(terminal),
		AdminHandler: httpdelivery.NewAdminHandler(terminal),
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 LibraQuant terminal starting on %s", addr)
	log.Printf("📊 Environment: %s", cfg.Server.Env)
	log.Printf("🗄  Store: %s", store.Driver)
	log.Printf("🔄 Poll interval: %s", cfg.Sheet.PollInterval)
	log.Println("========================================")

	srv := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}

	log.Println("[OK] Server exited gracefully")
}
