package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"kiybot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Вспомогательные методы для работы с состояниями пользователей

func (b *Bot) setUserState(ctx context.Context, userID int64, step string, tempData map[string]interface{}) {
	if err := b.stateService.SetUserState(ctx, userID, step, tempData); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to set user state")
	}
}

func (b *Bot) getUserState(ctx context.Context, userID int64) *models.UserState {
	state, err := b.stateService.GetUserState(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to get user state")
		return nil
	}
	return state
}

func (b *Bot) clearUserState(ctx context.Context, userID int64) {
	if err := b.stateService.ClearUserState(ctx, userID); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to clear user state")
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.ReplyKeyboardMarkup) {
	if _, err := b.tgService.SendWithKeyboard(chatID, text, keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if _, err := b.tgService.SendWithInlineKeyboard(chatID, text, keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

var weekdayNames = [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

func formatDateButton(d time.Time) string {
	return fmt.Sprintf("%s (%s)", d.Format("02.01.2006"), weekdayNames[d.Weekday()])
}

// parseDateButton принимает и "02.01.2006 (Пн)", и голую дату.
func parseDateButton(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, " ("); idx > 0 {
		text = text[:idx]
	}
	return time.ParseInLocation("02.01.2006", text, time.Local)
}

// findSlot сопоставляет подпись кнопки HH:MM конкретному слоту.
// Слоты рабочего дня уникальны по HH:MM: день короче суток.
func findSlot(slots []time.Time, label string) (time.Time, bool) {
	label = strings.TrimSpace(label)
	for _, s := range slots {
		if s.Format("15:04") == label {
			return s, true
		}
	}
	return time.Time{}, false
}

func parseDurationButton(text string) (int, bool) {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "ч"))
	var hours int
	if _, err := fmt.Sscanf(text, "%d", &hours); err != nil {
		return 0, false
	}
	return hours, hours > 0
}

var phoneRe = regexp.MustCompile(`^\+?\d{10,15}$`)

// normalizePhone чистит номер от разделителей и проверяет формат.
func normalizePhone(raw string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if !phoneRe.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}

func sanitizeInput(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\n", " ")
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func formatTimeRange(start, end time.Time) string {
	if start.Day() == end.Day() {
		return fmt.Sprintf("%s–%s", start.Format("15:04"), end.Format("15:04"))
	}
	// Бронь через полночь
	return fmt.Sprintf("%s–%s (+1)", start.Format("15:04"), end.Format("15:04"))
}

func (b *Bot) formatReservation(r *models.Reservation, tableName string) string {
	return fmt.Sprintf("🎱 %s\n📅 %s\n🕐 %s",
		tableName,
		formatDateButton(r.StartTime),
		formatTimeRange(r.StartTime, r.EndTime))
}

func (b *Bot) tableName(ctx context.Context, tableID int64) string {
	table, err := b.bookingService.GetTableByID(ctx, tableID)
	if err != nil {
		return fmt.Sprintf("Стол %d", tableID)
	}
	return table.Name
}
