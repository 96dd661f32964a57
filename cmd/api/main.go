package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"khadamat/internal/api"
	"khadamat/internal/config"
	"khadamat/internal/database"
	"khadamat/internal/domain"
	"khadamat/internal/events"
	"khadamat/internal/logging"
	"khadamat/internal/metrics"
	"khadamat/internal/notify"
	"khadamat/internal/poller"
	"khadamat/internal/repository"
	"khadamat/internal/service"
	"khadamat/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := logging.Component(baseLogger, "api-main")

	if err := prepareDirectories(cfg); err != nil {
		logger.Error().Err(err).Msg("prepare directories failed")
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("database init failed")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, cursors := initCursorRepository(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		go serveMetrics(cfg.Monitoring.PrometheusPort, &logger)
	}

	bot := initTelegram(cfg, &logger)

	var chatIDs []int64
	var telegram domain.TelegramSender
	if bot != nil {
		telegram = bot
		chatIDs = cfg.Telegram.OperatorChatIDs
	}

	var sender domain.MessageSender
	if telegram != nil && len(chatIDs) > 0 {
		sender = notify.NewTelegramRelaySender(telegram, chatIDs)
	} else {
		sender = notify.NewLogSender(&logger)
	}

	notifier := worker.NewNotifier(db, sender, redisClient, worker.RetryPolicy{
		MaxRetries:   cfg.Notifier.MaxRetries,
		InitialDelay: time.Duration(cfg.Notifier.InitialDelaySeconds) * time.Second,
		MaxDelay:     time.Duration(cfg.Notifier.MaxDelaySeconds) * time.Second,
	}, &logger)
	go notifier.Start(ctx)

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, &logger)

	bookingService := service.NewBookingService(db, db, db, eventBus, notifier, cfg.Notifier.Channel, &logger)
	catalogService := service.NewCatalogService(db, &logger)
	providerService := service.NewProviderService(db, &logger)

	if err := catalogService.SeedCategories(ctx, cfg.Categories); err != nil {
		logger.Error().Err(err).Msg("category seed failed")
		return err
	}

	dispatcher := notify.NewDispatcher(cfg.Alerts.AutoDismissMs, cfg.Alerts.Sound, telegram, chatIDs, &logger)

	changePoller := poller.New(db, cursors, dispatcher, time.Duration(cfg.Poller.IntervalSeconds)*time.Second, &logger)
	changePoller.SetEnabled(cfg.Poller.Enabled)
	go changePoller.Start(ctx)

	if cfg.API.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, bookingService, catalogService, providerService, dispatcher, changePoller, cursors, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
	}

	logger.Info().Str("version", cfg.App.Version).Msg("khadamat started")
	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return nil
}

func prepareDirectories(cfg *config.Config) error {
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return err
		}
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// initCursorRepository returns the redis-backed cursor store wrapped in
// a memory failover, or plain memory when redis is disabled or down.
func initCursorRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.CursorRepository) {
	memory := repository.NewMemoryCursorRepository()

	if !cfg.Redis.Enabled {
		logger.Info().Msg("redis disabled, using in-memory cursor store")
		return nil, memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable at startup, failover to memory")
	}

	return client, repository.NewFailoverCursorRepository(repository.NewRedisCursorRepository(client), memory, logger)
}

func initTelegram(cfg *config.Config, logger *zerolog.Logger) *tgbotapi.BotAPI {
	if !cfg.Telegram.Enabled {
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, operator relay disabled")
		return nil
	}
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram relay connected")
	return bot
}

func subscribeBookingEvents(bus *events.EventBus, logger *zerolog.Logger) {
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingInProgress,
		events.EventBookingCompleted,
		events.EventBookingCancelled,
		events.EventBookingDeleted,
	} {
		bus.Subscribe(eventType, func(e *events.Event) error {
			logger.Info().
				Str("event_type", e.Type).
				RawJSON("payload", e.Payload).
				Msg("booking event")
			return nil
		})
	}
}

func serveMetrics(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.Info().Str("addr", addr).Msg("metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
