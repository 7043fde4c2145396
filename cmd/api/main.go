package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justsurfingit/jobapp-ai/internal/auth"
	"github.com/justsurfingit/jobapp-ai/internal/config"
	"github.com/justsurfingit/jobapp-ai/internal/database"
	"github.com/justsurfingit/jobapp-ai/internal/handlers"
	"github.com/justsurfingit/jobapp-ai/internal/services"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// 2. Database Connection
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}

	// 3. Core Services
	llmService, err := services.NewLLMService(ctx, cfg.LLM)
	if err != nil {
		log.Fatalf("❌ Failed to create LLM client: %v", err)
	}
	appService := services.NewApplicationService(db)
	matcherService := services.NewMatcherService(appService)
	resumeService := services.NewResumeService(nil)

	// 4. Gmail Integration (optional)
	log.Println("Initializing Gmail Client...")
	var gmailService *gmail.Service
	httpClient, err := auth.GetGmailClient(ctx, cfg.Gmail)
	switch {
	case errors.Is(err, auth.ErrNoCredentials):
		log.Printf("⚠️ %v", err)
	case err != nil:
		log.Printf("⚠️ Gmail auth failed: %v", err)
	default:
		gmailService, err = gmail.NewService(ctx, option.WithHTTPClient(httpClient))
		if err != nil {
			log.Printf("⚠️ Failed to create Gmail Service: %v", err)
		} else {
			log.Println("✅ Gmail Service connected successfully.")
		}
	}

	// 5. Email Watcher
	emailService := services.NewEmailService(db, llmService, gmailService, matcherService, appService, cfg.Gmail.PollInterval)
	emailService.StartWatcher(ctx)

	// 6. Router
	r := handlers.NewRouter(handlers.Deps{
		Applications: appService,
		LLM:          llmService,
		Resume:       resumeService,
		CORSOrigins:  cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 Server starting on port %s...", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
