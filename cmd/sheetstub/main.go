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

	"libraquant/configs"
	"libraquant/internal/seed"
	"libraquant/internal/sheetstub"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	demo, err := seed.DemoWithUsers(time.Now())
	if err != nil {
		log.Fatalf("Failed to load demo data: %v", err)
	}
	stub, err := sheetstub.New(demo)
	if err != nil {
		log.Fatalf("Failed to create sheet stub: %v", err)
	}

	addr := fmt.Sprintf(":%s", cfg.Stub.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      stub.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start sheet stub: %v", err)
		}
	}()
	log.Printf("[OK] Sheet stub listening on %s, set SHEET_ENDPOINT=http://localhost%s/", addr, addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("ERROR: Sheet stub forced to shutdown: %v", err)
	}
	log.Printf("[OK] Sheet stub stopped after %d writes", stub.Writes())
}
