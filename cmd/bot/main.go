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

	"kiybot/internal/api"
	"kiybot/internal/bot"
	"kiybot/internal/config"
	"kiybot/internal/database"
	"kiybot/internal/events"
	"kiybot/internal/google"
	"kiybot/internal/logging"
	"kiybot/internal/models"
	"kiybot/internal/repository"
	"kiybot/internal/schedule"
	"kiybot/internal/service"
	"kiybot/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	yamlv2 "gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, tables, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer closer.Close()
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, tables, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	calc, err := schedule.NewCalculator(cfg.Booking)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка в бизнес-правилах бронирования")
		return err
	}

	redisClient, stateService := initStateService(ctx, cfg, &logger)

	sheetsService := initGoogleSheets(ctx, cfg, &logger)

	// Воркер зеркалирования расписания в Google Sheets
	var sheetsWorker *worker.SheetsWorker
	if sheetsService != nil {
		retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
		sheetsWorker = worker.NewSheetsWorker(db, sheetsService, redisClient, retryPolicy, cfg.Booking.MaxBookingDays, &logger)
		go sheetsWorker.Start(ctx)
	}

	eventBus := events.NewEventBus()

	bookingService := newBookingService(db, calc, eventBus, sheetsWorker, cfg, &logger)
	tournamentService := service.NewTournamentService(db, cfg.Tournament, &logger)
	metrics := bot.NewMetrics()

	// Фоновая чистка протухших временных броней
	sweeper := worker.NewSweeper(db, time.Duration(cfg.Booking.SweepIntervalMin)*time.Minute, &logger)
	sweeper.OnSweep(func(removed int64) {
		if removed > 0 {
			metrics.HoldsExpired.Add(float64(removed))
		}
	})
	go sweeper.Start(ctx)

	if cfg.API.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, db, calc, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			_ = apiServer.Shutdown(context.Background())
		}()
	}

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	return startBot(ctx, cfg, stateService, bookingService, tournamentService, sweeper, eventBus, metrics, &logger)
}

func loadConfigAndLogger() (*config.Config, []models.Table, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	tablesPath := os.Getenv("TABLES_PATH")
	if tablesPath == "" {
		tablesPath = "configs/tables.yaml"
	}
	tablesData, err := os.ReadFile(tablesPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Ошибка чтения %s", tablesPath)
		return nil, nil, zerolog.Logger{}, closer, err
	}

	var tablesConfig struct {
		Tables []models.Table `yaml:"tables"`
	}
	if err := yamlv2.Unmarshal(tablesData, &tablesConfig); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга tables.yaml")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	if err := config.ValidateTables(tablesConfig.Tables); err != nil {
		logger.Error().Err(err).Msg("Tables validation failed")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, tablesConfig.Tables, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, tables []models.Table, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, err
	}

	if err := db.SyncTables(context.Background(), tables); err != nil {
		logger.Error().Err(err).Msg("Ошибка синхронизации столов")
	}
	return db, nil
}

// initGoogleSheets возвращает nil, если зеркало не настроено: бот
// полноценно работает и без него.
func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.ReservationsSpreadsheet == "" {
		logger.Info().Msg("Google Sheets mirror is not configured, skipping")
		return nil
	}

	sheetsSvc, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.ReservationsSpreadsheet)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets service")
		return nil
	}

	if err := sheetsSvc.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}

	logger.Info().Msg("Google Sheets service initialized successfully")
	return sheetsSvc
}

func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.StateService) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	primaryRepo := repository.NewRedisStateRepository(redisClient, time.Duration(models.DefaultRedisTTL)*time.Second)
	fallbackRepo := repository.NewMemoryStateRepository(time.Duration(models.DefaultRedisTTL) * time.Second)
	stateRepo := repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
	return redisClient, service.NewStateService(stateRepo, logger)
}

func newBookingService(
	db *database.DB,
	calc *schedule.Calculator,
	eventBus *events.EventBus,
	syncWorker *worker.SheetsWorker,
	cfg *config.Config,
	logger *zerolog.Logger,
) *service.BookingService {
	// Типизированный nil в интерфейсном поле ломает проверку на nil
	if syncWorker == nil {
		return service.NewBookingService(db, calc, eventBus, nil, cfg.Booking.HoldTimeoutMinutes, logger)
	}
	return service.NewBookingService(db, calc, eventBus, syncWorker, cfg.Booking.HoldTimeoutMinutes, logger)
}

func startMetricsServer(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info().Str("addr", addr).Msg("Prometheus metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("Metrics server error")
	}
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	stateService *service.StateService,
	bookingService *service.BookingService,
	tournamentService *service.TournamentService,
	sweeper *worker.Sweeper,
	eventBus *events.EventBus,
	metrics *bot.Metrics,
	logger *zerolog.Logger,
) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	botWrapper := bot.NewBotWrapper(botAPI)
	tgService := service.NewTelegramService(botWrapper)

	keyboards := bot.NewKeyboardCache(time.Minute)
	telegramBot, err := bot.NewBot(
		tgService, cfg, stateService, bookingService,
		tournamentService, sweeper, keyboards, metrics, logger,
	)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания бота")
		return err
	}

	telegramBot.SubscribeNotifications(eventBus)

	logger.Info().Msg("Бот запущен...")
	telegramBot.StartReminders(ctx)
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}
