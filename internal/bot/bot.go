package bot

import (
	"context"
	"os"
	"time"

	"kiybot/internal/config"
	"kiybot/internal/domain"
	"kiybot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// holdSweeper чистит протухшие временные брони. Бот дергает его
// перед обработкой обновления, не дожидаясь фонового тика.
type holdSweeper interface {
	Sweep(ctx context.Context)
}

type Bot struct {
	tgService         domain.TelegramService
	config            *config.Config
	stateService      domain.StateManager
	bookingService    *service.BookingService
	tournamentService *service.TournamentService
	sweeper           holdSweeper
	keyboards         *KeyboardCache
	metrics           *Metrics
	logger            *zerolog.Logger
}

func NewBot(
	tgService domain.TelegramService,
	cfg *config.Config,
	stateService domain.StateManager,
	bookingService *service.BookingService,
	tournamentService *service.TournamentService,
	sweeper holdSweeper,
	keyboards *KeyboardCache,
	metrics *Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}
	if keyboards == nil {
		keyboards = NewKeyboardCache(time.Minute)
	}

	return &Bot{
		tgService:         tgService,
		config:            cfg,
		stateService:      stateService,
		bookingService:    bookingService,
		tournamentService: tournamentService,
		sweeper:           sweeper,
		keyboards:         keyboards,
		metrics:           metrics,
		logger:            logger,
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) Stop() {
	if b == nil || b.tgService == nil {
		return
	}
	b.tgService.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	// Контекст на обработку одного обновления
	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID int64
		if update.Message != nil {
			userID = update.Message.From.ID
		} else if update.CallbackQuery != nil {
			userID = update.CallbackQuery.From.ID
		}

		if userID == 0 {
			return
		}

		if !b.isAdmin(userID) {
			allowed, err := b.stateService.CheckRateLimit(updateCtx, userID,
				b.config.Booking.RateLimitMessages,
				time.Duration(b.config.Booking.RateLimitWindowSec)*time.Second)
			if err != nil {
				b.logger.Error().Err(err).Int64("user_id", userID).Msg("Rate limit check failed")
			} else if !allowed {
				b.logger.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
				if update.Message != nil {
					b.sendMessage(update.Message.Chat.ID, "⚠️ Вы отправляете сообщения слишком часто. Пожалуйста, подождите немного.")
				}
				return
			}
		}

		// Протухшие временные брони не должны блокировать чужой выбор
		if b.sweeper != nil {
			b.sweeper.Sweep(updateCtx)
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update)
			return
		}

		if update.Message == nil {
			return
		}

		b.handleMessage(updateCtx, update)
	})
}

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.config.IsAdmin(userID)
}
