package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"kiybot/internal/database"
	"kiybot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) {
	callback := update.CallbackQuery
	data := callback.Data
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	// Отвечаем на callback сразу, чтобы убрать "часики"
	if err := b.tgService.AnswerCallback(callback.ID, ""); err != nil {
		b.logger.Error().Err(err).Msg("Failed to answer callback")
	}

	if b.isAdmin(userID) && b.handleAdminCallback(ctx, update) {
		return
	}

	switch {
	case strings.HasPrefix(data, "table:"):
		tableID, _ := strconv.ParseInt(strings.TrimPrefix(data, "table:"), 10, 64)
		b.handleTableChosen(ctx, chatID, userID, tableID)

	case data == "confirm_booking":
		b.handleConfirmBooking(ctx, chatID, userID, callback.From.UserName)

	case data == "cancel_booking":
		b.resetDialog(ctx, chatID, userID)

	case strings.HasPrefix(data, "ucancel:"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(data, "ucancel:"), 10, 64)
		b.handleUserCancel(ctx, chatID, userID, callback.From.UserName, id)

	case data == "tournament_register":
		b.startTournamentRegistration(ctx, chatID, userID)

	case data == "tournament_confirm":
		b.handleTournamentConfirm(ctx, chatID, userID, callback.From.UserName)

	case data == "tournament_cancel":
		b.handleTournamentCancel(ctx, chatID, userID)
	}
}

// handleTableChosen держит слот за пользователем на время ввода
// телефона. Проверка и установка временной брони атомарны на уровне
// сервиса: параллельный выбор того же стола получит отказ.
func (b *Bot) handleTableChosen(ctx context.Context, chatID, userID, tableID int64) {
	state := b.getUserState(ctx, userID)
	if state == nil || state.CurrentStep != models.StateChoosingTable {
		b.sendMessage(chatID, "Диалог устарел. Начните бронирование заново.")
		return
	}

	start := state.GetTime(models.KeySelectedTime)
	end := state.GetTime(models.KeyEndTime)
	if start.IsZero() || end.IsZero() {
		b.resetDialog(ctx, chatID, userID)
		return
	}

	if err := b.bookingService.HoldSlot(ctx, userID, tableID, start, end); err != nil {
		if errors.Is(err, database.ErrNotAvailable) {
			if b.metrics != nil {
				b.metrics.ReservationsBlocked.Inc()
			}
			b.sendMessage(chatID, "⚠️ Этот стол только что заняли. Выберите другой.")
			b.showFreeTables(ctx, chatID, userID, start, end)
			return
		}
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	state.TempData[models.KeyTableID] = tableID
	b.setUserState(ctx, userID, models.StateEnteringPhone, state.TempData)
	b.sendWithKeyboard(chatID,
		"📱 Отправьте номер телефона для связи:", phoneKeyboard())
}

func (b *Bot) handleConfirmBooking(ctx context.Context, chatID, userID int64, username string) {
	state := b.getUserState(ctx, userID)
	if state == nil || state.CurrentStep != models.StateConfirming {
		b.sendMessage(chatID, "Диалог устарел. Начните бронирование заново.")
		return
	}

	start := state.GetTime(models.KeySelectedTime)
	end := state.GetTime(models.KeyEndTime)
	tableID := state.GetInt64(models.KeyTableID)
	phone := state.GetString(models.KeyPhone)
	if start.IsZero() || end.IsZero() || tableID == 0 || phone == "" {
		b.resetDialog(ctx, chatID, userID)
		return
	}

	reservation := &models.Reservation{
		UserID:    userID,
		Username:  username,
		TableID:   tableID,
		StartTime: start,
		EndTime:   end,
		Phone:     phone,
		Status:    models.StatusActive,
		CreatedAt: time.Now(),
	}

	// Третья, решающая проверка: конфликт ловится внутри транзакции
	if err := b.bookingService.ConfirmReservation(ctx, reservation); err != nil {
		if errors.Is(err, database.ErrNotAvailable) {
			if b.metrics != nil {
				b.metrics.ReservationsBlocked.Inc()
			}
			b.sendMessage(chatID, "⚠️ Увы, это время только что заняли. Попробуйте выбрать другое.")
			b.resetDialog(ctx, chatID, userID)
			return
		}
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	tableName := b.tableName(ctx, tableID)
	if b.metrics != nil {
		b.metrics.ReservationsCreated.WithLabelValues(tableName).Inc()
	}
	b.keyboards.Invalidate()

	b.clearUserState(ctx, userID)
	b.sendMessage(chatID, "✅ Бронь подтверждена!\n\n"+b.formatReservation(reservation, tableName)+
		"\n\nЖдём вас! Если планы изменятся, отмените бронь в «Мои брони».")
	b.showMainMenu(ctx, chatID, userID)
}

func (b *Bot) handleUserCancel(ctx context.Context, chatID, userID int64, username string, reservationID int64) {
	reservation, err := b.bookingService.GetReservation(ctx, reservationID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if reservation.UserID != userID {
		b.sendMessage(chatID, "Эту бронь может отменить только её владелец.")
		return
	}

	ok, _, err := b.bookingService.CancelReservation(ctx, reservationID, username, userID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if !ok {
		b.sendMessage(chatID, "Эта бронь уже отменена.")
		return
	}

	b.keyboards.Invalidate()
	b.sendMessage(chatID, "✅ Бронь отменена.")
}
