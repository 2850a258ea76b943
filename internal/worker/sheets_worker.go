package worker

import (
	"context"
	"encoding/json"
	"time"

	"kiybot/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SheetsWorker зеркалирует актуальное расписание во внешнюю таблицу.
// Задачи коалесцируются: сколько бы событий ни пришло между проходами,
// выгружается один снимок ближайших дней.
type SheetsWorker struct {
	repo          domain.Repository
	writer        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	signal        chan struct{}
	horizonDays   int
	deadLetterKey string
	logger        *zerolog.Logger
}

// deadLetter is what lands in redis after all retries are exhausted.
type deadLetter struct {
	FailedAt time.Time `json:"failed_at"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error"`
}

func NewSheetsWorker(repo domain.Repository, writer domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, horizonDays int, logger *zerolog.Logger) *SheetsWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if horizonDays <= 0 {
		horizonDays = 7
	}

	return &SheetsWorker{
		repo:          repo,
		writer:        writer,
		redis:         redisClient,
		retryPolicy:   retry,
		signal:        make(chan struct{}, 1),
		horizonDays:   horizonDays,
		deadLetterKey: "sheets:deadletter",
		logger:        logger,
	}
}

// EnqueueSync schedules a mirror refresh. Never blocks: a pending
// signal already covers this request.
func (w *SheetsWorker) EnqueueSync(ctx context.Context) error {
	select {
	case w.signal <- struct{}{}:
	default:
	}
	return nil
}

// Start blocks until ctx is cancelled.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Sheets worker started")
	defer w.logger.Info().Msg("Sheets worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.signal:
			w.syncWithRetry(ctx)
		}
	}
}

func (w *SheetsWorker) syncWithRetry(ctx context.Context) {
	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		lastErr = w.syncOnce(ctx)
		if lastErr == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		delay := w.retryPolicy.NextDelay(attempt)
		w.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("retry_in", delay).
			Msg("Sheets sync failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	w.logger.Error().Err(lastErr).Int("attempts", w.retryPolicy.MaxRetries).
		Msg("Sheets sync gave up")
	w.pushDeadLetter(ctx, lastErr)
}

func (w *SheetsWorker) syncOnce(ctx context.Context) error {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, w.horizonDays+1)

	reservations, err := w.repo.GetReservationsByRange(ctx, start, end)
	if err != nil {
		return err
	}
	tables, err := w.repo.GetActiveTables(ctx)
	if err != nil {
		return err
	}

	return w.writer.ReplaceReservations(ctx, reservations, tables)
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, cause error) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(deadLetter{
		FailedAt: time.Now(),
		Attempts: w.retryPolicy.MaxRetries,
		Error:    cause.Error(),
	})
	if err != nil {
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to push sheets dead letter")
	}
}
