package bot

import (
	"context"
	"fmt"
	"time"

	"kiybot/internal/models"
)

// StartReminders запускает ежедневную рассылку напоминаний о бронях
// на завтра.
func (b *Bot) StartReminders(ctx context.Context) {
	if b == nil || b.tgService == nil {
		return
	}

	go func() {
		wait := timeUntilNextHour(models.ReminderHour)
		timer := time.NewTimer(wait)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.sendTomorrowReminders(ctx)
				timer.Reset(24 * time.Hour)
			}
		}
	}()
}

func (b *Bot) sendTomorrowReminders(ctx context.Context) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, 1)

	reservations, err := b.bookingService.GetReservationsByRange(ctx, start, end)
	if err != nil {
		b.logger.Error().Err(err).Time("start", start).Msg("reminder: get reservations error")
		return
	}

	for i := range reservations {
		r := &reservations[i]
		if r.Username == "admin" {
			continue
		}

		text := fmt.Sprintf("Напоминание: завтра у вас бронь!\n\n%s",
			b.formatReservation(r, b.tableName(ctx, r.TableID)))
		if _, err := b.tgService.SendMessage(r.UserID, text); err != nil {
			b.logger.Error().Err(err).Int64("user_id", r.UserID).Msg("reminder: send error")
		}
	}
}

func timeUntilNextHour(hour int) time.Duration {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
