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

	"bookcraft-backend/internal/config"
	"bookcraft-backend/internal/handlers"
	"bookcraft-backend/internal/router"
	"bookcraft-backend/internal/services"
)

func main() {
	log.Println("🚀 Starting AI Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.LoadAIBackend()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)

	// ──── Step 3: Initialize Image and Book Services ────
	imagenKey := cfg.ImagenAPIKey
	if imagenKey == "" {
		imagenKey = cfg.GeminiAPIKey
	}
	imageService := services.NewImageService(imagenKey, 2*time.Minute)

	bookService, err := services.NewBookService(geminiService, imageService, cfg.StoragePath)
	if err != nil {
		log.Fatalf("✗ Book storage initialization failed: %v", err)
	}
	log.Printf("✓ Book storage ready (%s)", cfg.StoragePath)

	// ──── Step 4: Start HTTP Server ────
	r := router.NewAIBackend(handlers.NewAIBackendHandler(geminiService, bookService), cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 6 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ AI Backend ready on http://localhost:%s", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
