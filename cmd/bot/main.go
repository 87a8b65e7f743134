package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hf-quote-tgbot-go/internal/config"
	"github.com/hf-quote-tgbot-go/internal/handlers"
	"github.com/hf-quote-tgbot-go/internal/i18n"
	"github.com/hf-quote-tgbot-go/internal/middleware"
	"github.com/hf-quote-tgbot-go/internal/services/ai"
	"github.com/hf-quote-tgbot-go/internal/services/preferences"
	"github.com/hf-quote-tgbot-go/internal/services/quotes"
	"github.com/hf-quote-tgbot-go/internal/services/storage"
	"github.com/hf-quote-tgbot-go/pkg/logger"
)

func main() {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	configPath := os.Getenv("BOT_CONFIG")
	if configPath == "" {
		configPath = config.DefaultConfigPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting quote bot...")

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}
	bot.Debug = cfg.Bot.Debug
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	metrics := middleware.NewMetrics()

	storageManager, err := storage.NewManager(cfg, log, metrics)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	defer storageManager.Close()
	log.WithField("backend", storageManager.Backend()).Info("User directory ready")

	quoteStore, err := quotes.Load(cfg.Quotes.Path, quotes.WithLogger(log))
	if err != nil {
		log.WithError(err).Fatal("Failed to load quotes")
	}

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	location, err := cfg.Timezone.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load timezone")
	}

	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	defer rateLimiter.Stop()

	dispatcher := handlers.NewDispatcher(
		storageManager,
		ai.NewHuggingFaceClient(&cfg.Inference, log),
		quoteStore,
		preferences.NewStore(),
		rateLimiter,
		localizer,
		metrics,
		location,
		log,
	)
	dispatcher.SetBotUsername(bot.Self.UserName)

	handler := handlers.NewTelegramHandler(dispatcher, bot, bot.Self.ID, cfg.Bot.Workers, metrics, log)

	var metricsServer *http.Server
	if cfg.Monitoring.Metrics.Enabled {
		metricsServer = middleware.NewMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path)
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	reportUsers(context.Background(), storageManager, metrics, log)
	scheduler, err := startPeriodicTasks(cfg.Monitoring.ReportSchedule, storageManager, metrics, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to schedule directory report")
	}

	// Setup update channel
	var (
		updates       tgbotapi.UpdatesChannel
		webhookServer *http.Server
	)
	if cfg.Bot.Webhook.Enabled {
		webhookURL := fmt.Sprintf("%s/%s", cfg.Bot.Webhook.URL, bot.Token)
		webhook, err := tgbotapi.NewWebhook(webhookURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to create webhook")
		}
		if _, err := bot.Request(webhook); err != nil {
			log.WithError(err).Fatal("Failed to set webhook")
		}

		updates = bot.ListenForWebhook("/" + bot.Token)
		webhookServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Bot.Webhook.Port),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := webhookServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Fatal("Webhook server failed")
			}
		}()
		log.WithField("port", cfg.Bot.Webhook.Port).Info("Webhook set")
	} else {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = cfg.Bot.UpdateTimeout

		updates = bot.GetUpdatesChan(u)
		log.Info("Using long polling")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	stopLoop := make(chan struct{})
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		for {
			select {
			case <-stopLoop:
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				handler.HandleUpdate(ctx, update)
			}
		}
	}()

	<-sigChan
	log.Info("Shutdown signal received")

	close(stopLoop)
	<-loopDone

	if cfg.Bot.Webhook.Enabled {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.WithError(err).Error("Failed to delete webhook")
		}
	} else {
		bot.StopReceivingUpdates()
	}

	// let in-flight messages finish their replies
	handler.Wait()
	cancel()

	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	for _, srv := range []*http.Server{webhookServer, metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP server shutdown failed")
		}
	}

	log.Info("Bot stopped")
}
