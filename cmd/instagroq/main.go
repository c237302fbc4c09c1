package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/antoniostano/instagroq/internal/access"
	"github.com/antoniostano/instagroq/internal/audit"
	"github.com/antoniostano/instagroq/internal/bot"
	"github.com/antoniostano/instagroq/internal/chat"
	"github.com/antoniostano/instagroq/internal/config"
	"github.com/antoniostano/instagroq/internal/httpapi"
	"github.com/antoniostano/instagroq/internal/memory"
	"github.com/antoniostano/instagroq/internal/observability"
	"github.com/antoniostano/instagroq/internal/provider"
	"github.com/antoniostano/instagroq/internal/webapp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	accessBackend, err := access.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("access store init failed: %v", err)
	}
	defer accessBackend.Close()
	accessStore := access.NewCachedStore(accessBackend, cfg.AccessCacheSize, cfg.AccessCacheTTL, metrics)

	memoryStore, err := memory.NewStore(ctx, cfg.DatabaseURL, cfg.MemoryRetention)
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}
	defer memoryStore.Close()

	var completer provider.Completer
	chatMode := strings.ToLower(strings.TrimSpace(cfg.ChatProvider))
	switch {
	case chatMode == "mock":
		completer = provider.NewMockCompleter()
		log.Printf("chat provider: mock")
	case chatMode == "groq" && cfg.GroqAPIKey == "":
		log.Fatalf("CHAT_PROVIDER=groq but GROQ_API_KEY is not set")
	case cfg.GroqAPIKey != "":
		completer = provider.NewGroqCompleter(provider.GroqConfig{
			APIKey:  cfg.GroqAPIKey,
			BaseURL: cfg.GroqBaseURL,
			Model:   cfg.GroqModel,
			Timeout: cfg.GroqTimeout,
		})
		log.Printf("chat provider: groq (%s)", cfg.GroqModel)
	default:
		completer = provider.NewMockCompleter()
		log.Printf("chat provider: mock (no groq key)")
	}

	var images provider.ImageGenerator
	imageMode := strings.ToLower(strings.TrimSpace(cfg.ImageProvider))
	switch {
	case imageMode == "mock":
		images = provider.NewMockImageGenerator()
		log.Printf("image provider: mock")
	case imageMode == "stability" && cfg.StabilityAPIKey == "":
		log.Fatalf("IMAGE_PROVIDER=stability but STABILITY_API_KEY is not set")
	case cfg.StabilityAPIKey != "":
		images = provider.NewStabilityClient(provider.StabilityConfig{
			APIKey:  cfg.StabilityAPIKey,
			Timeout: cfg.StabilityTimeout,
		})
		log.Printf("image provider: stability")
	default:
		images = provider.NewMockImageGenerator()
		log.Printf("image provider: mock (no stability key)")
	}

	var (
		botAPI   *tgbotapi.BotAPI
		notifier audit.Notifier = audit.Nop{}
		verifier *webapp.Verifier
	)
	if cfg.BotToken != "" {
		botAPI, err = tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			log.Fatalf("telegram bot init failed: %v", err)
		}
		verifier = webapp.NewVerifier(cfg.BotToken, cfg.InitDataMaxAge)
		if cfg.LogGroupID != 0 {
			notifier = audit.NewTelegramNotifier(botAPI, cfg.LogGroupID)
			log.Printf("audit: telegram group %d", cfg.LogGroupID)
		} else {
			log.Printf("audit: disabled (LOG_GROUP_ID not set)")
		}
	} else {
		log.Printf("telegram bot: disabled (BOT_TOKEN not set)")
	}

	orchestrator := chat.NewOrchestrator(
		accessStore,
		memoryStore,
		completer,
		images,
		notifier,
		metrics,
		cfg.MemoryLimit,
	)

	api := httpapi.New(cfg, orchestrator, accessStore, verifier, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	if botAPI != nil {
		tgBot := bot.New(botAPI, bot.Config{
			AdminUserID:  cfg.AdminUserID,
			AdminGroupID: cfg.LogGroupID,
			MiniAppURL:   cfg.MiniAppURL,
		}, accessStore, notifier)
		go tgBot.Run(runCtx)
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
