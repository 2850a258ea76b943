package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kiybot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	text := update.Message.Text
	l := zerolog.Ctx(ctx)

	if b.metrics != nil {
		b.metrics.MessagesProcessed.Inc()
		if strings.HasPrefix(text, "/") {
			b.metrics.CommandsProcessed.Inc()
		}
	}

	l.Debug().
		Int64("user_id", userID).
		Str("username", update.Message.From.UserName).
		Str("text", text).
		Msg("Handling message")

	if b.isAdmin(userID) && b.handleAdminCommand(ctx, update) {
		return
	}

	state := b.getUserState(ctx, userID)

	switch {
	case text == "/start" || strings.EqualFold(text, "сброс") || strings.EqualFold(text, "reset"):
		b.resetDialog(ctx, update.Message.Chat.ID, userID)
		return

	case text == btnCancel:
		b.resetDialog(ctx, update.Message.Chat.ID, userID)
		return

	case text == btnBack:
		b.handleBack(ctx, update, state)
		return

	case text == btnBook:
		b.startBooking(ctx, update)
		return

	case text == btnMyReservations:
		b.showMyReservations(ctx, update)
		return

	case text == btnTournament:
		b.showTournament(ctx, update)
		return

	case text == btnSupport:
		b.startSupport(ctx, update)
		return
	}

	if state != nil && b.handleUserStateSteps(ctx, update, state) {
		return
	}

	b.showMainMenu(ctx, update.Message.Chat.ID, userID)
}

// handleUserStateSteps обрабатывает ввод в зависимости от текущего шага
func (b *Bot) handleUserStateSteps(ctx context.Context, update tgbotapi.Update, state *models.UserState) bool {
	text := update.Message.Text

	switch state.CurrentStep {
	case models.StateChoosingDate:
		b.handleDateChosen(ctx, update, text)
		return true

	case models.StateChoosingTime:
		b.handleTimeChosen(ctx, update, text, state)
		return true

	case models.StateChoosingDuration:
		b.handleDurationChosen(ctx, update, text, state)
		return true

	case models.StateEnteringPhone:
		b.handlePhoneEntered(ctx, update, state)
		return true

	case models.StateTournamentName:
		b.handleTournamentName(ctx, update, state)
		return true

	case models.StateTournamentPhone:
		b.handleTournamentPhone(ctx, update, state)
		return true

	case models.StateSupportMessage:
		b.handleSupportMessage(ctx, update)
		return true
	}

	return false
}

func (b *Bot) showMainMenu(ctx context.Context, chatID, userID int64) {
	b.sendWithKeyboard(chatID,
		"Привет! Я помогу забронировать бильярдный стол. Выберите действие:",
		b.mainMenuKeyboard(b.isAdmin(userID)))
}

// resetDialog снимает временные брони и возвращает в главное меню.
func (b *Bot) resetDialog(ctx context.Context, chatID, userID int64) {
	if err := b.bookingService.ReleaseHolds(ctx, userID); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to release holds")
	}
	b.clearUserState(ctx, userID)
	b.showMainMenu(ctx, chatID, userID)
}

func (b *Bot) handleBack(ctx context.Context, update tgbotapi.Update, state *models.UserState) {
	if state == nil {
		b.showMainMenu(ctx, update.Message.Chat.ID, update.Message.From.ID)
		return
	}

	switch state.CurrentStep {
	case models.StateChoosingTime:
		b.startBooking(ctx, update)
	case models.StateChoosingDuration:
		b.showTimes(ctx, update.Message.Chat.ID, update.Message.From.ID, state.GetTime(models.KeySelectedDate))
	default:
		b.resetDialog(ctx, update.Message.Chat.ID, update.Message.From.ID)
	}
}

func (b *Bot) startBooking(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	calc := b.bookingService.Calculator()

	now := time.Now()
	dates := calc.AvailableDates(now)
	if len(dates) == 0 {
		b.sendMessage(update.Message.Chat.ID, "Сейчас нет доступных дат для бронирования.")
		return
	}

	kb := b.keyboards.Get("dates:"+now.Format("2006-01-02"), func() tgbotapi.ReplyKeyboardMarkup {
		return datesKeyboard(dates)
	})

	b.setUserState(ctx, userID, models.StateChoosingDate, nil)
	b.sendWithKeyboard(update.Message.Chat.ID, "📅 Выберите дату:", kb)
}

func (b *Bot) handleDateChosen(ctx context.Context, update tgbotapi.Update, text string) {
	date, err := parseDateButton(text)
	if err != nil {
		b.sendMessage(update.Message.Chat.ID, "Не получилось разобрать дату. Выберите дату кнопкой или введите как ДД.ММ.ГГГГ.")
		return
	}

	b.setUserState(ctx, update.Message.From.ID, models.StateChoosingTime, map[string]interface{}{
		models.KeySelectedDate: date.Format(time.RFC3339),
	})
	b.showTimes(ctx, update.Message.Chat.ID, update.Message.From.ID, date)
}

func (b *Bot) showTimes(ctx context.Context, chatID, userID int64, date time.Time) {
	calc := b.bookingService.Calculator()
	slots := calc.Slots(date, time.Now())
	if len(slots) == 0 {
		b.sendMessage(chatID, "На эту дату нет доступного времени. Выберите другую дату.")
		b.setUserState(ctx, userID, models.StateChoosingDate, nil)
		return
	}

	b.setUserState(ctx, userID, models.StateChoosingTime, map[string]interface{}{
		models.KeySelectedDate: date.Format(time.RFC3339),
	})
	b.sendWithKeyboard(chatID, "🕐 Выберите время начала:", timesKeyboard(slots))
}

func (b *Bot) handleTimeChosen(ctx context.Context, update tgbotapi.Update, text string, state *models.UserState) {
	date := state.GetTime(models.KeySelectedDate)
	if date.IsZero() {
		b.resetDialog(ctx, update.Message.Chat.ID, update.Message.From.ID)
		return
	}

	calc := b.bookingService.Calculator()
	slot, ok := findSlot(calc.Slots(date, time.Now()), text)
	if !ok {
		b.sendMessage(update.Message.Chat.ID, "Такого времени нет в списке. Выберите время кнопкой.")
		return
	}

	state.TempData[models.KeySelectedTime] = slot.Format(time.RFC3339)
	b.setUserState(ctx, update.Message.From.ID, models.StateChoosingDuration, state.TempData)
	b.sendWithKeyboard(update.Message.Chat.ID, "⏳ На сколько часов?",
		durationKeyboard(calc.MinHours(), calc.MaxHours()))
}

func (b *Bot) handleDurationChosen(ctx context.Context, update tgbotapi.Update, text string, state *models.UserState) {
	hours, ok := parseDurationButton(text)
	if !ok {
		b.sendMessage(update.Message.Chat.ID, "Выберите длительность кнопкой, например «2 ч».")
		return
	}

	start := state.GetTime(models.KeySelectedTime)
	if start.IsZero() {
		b.resetDialog(ctx, update.Message.Chat.ID, update.Message.From.ID)
		return
	}

	if err := b.bookingService.ValidateSelection(start, hours); err != nil {
		b.sendMessage(update.Message.Chat.ID, b.getErrorMessage(err))
		return
	}

	end := start.Add(time.Duration(hours) * time.Hour)
	state.TempData[models.KeyDuration] = hours
	state.TempData[models.KeyEndTime] = end.Format(time.RFC3339)
	b.setUserState(ctx, update.Message.From.ID, models.StateChoosingTable, state.TempData)

	b.showFreeTables(ctx, update.Message.Chat.ID, update.Message.From.ID, start, end)
}

// showFreeTables — первая проверка доступности: до выбора стола.
func (b *Bot) showFreeTables(ctx context.Context, chatID, userID int64, start, end time.Time) {
	tables, err := b.bookingService.GetActiveTables(ctx)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	var free []models.Table
	for _, t := range tables {
		ok, err := b.bookingService.CheckSlot(ctx, t.ID, start, end, userID)
		if err != nil {
			b.sendMessage(chatID, b.getErrorMessage(err))
			return
		}
		if ok {
			free = append(free, t)
		}
	}

	if len(free) == 0 {
		b.sendMessage(chatID, "😔 На это время все столы заняты. Попробуйте другое время.")
		date := start
		if start.Hour() < b.config.Booking.EarlyMorningCutoff {
			date = start.AddDate(0, 0, -1)
		}
		b.showTimes(ctx, chatID, userID, date)
		return
	}

	b.sendWithInlineKeyboard(chatID,
		fmt.Sprintf("🎱 Свободные столы на %s %s:", formatDateButton(start), formatTimeRange(start, end)),
		tablesInlineKeyboard(free))
}

func (b *Bot) handlePhoneEntered(ctx context.Context, update tgbotapi.Update, state *models.UserState) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	raw := update.Message.Text
	if update.Message.Contact != nil {
		raw = update.Message.Contact.PhoneNumber
	}

	phone, ok := normalizePhone(raw)
	if !ok {
		b.sendMessage(chatID, "Не похоже на номер телефона. Отправьте номер в формате +79991234567 или кнопкой ниже.")
		return
	}

	start := state.GetTime(models.KeySelectedTime)
	end := state.GetTime(models.KeyEndTime)
	tableID := state.GetInt64(models.KeyTableID)
	if start.IsZero() || end.IsZero() || tableID == 0 {
		b.resetDialog(ctx, chatID, userID)
		return
	}

	// Вторая проверка доступности: слот могли занять, пока
	// пользователь вводил телефон.
	free, err := b.bookingService.CheckSlot(ctx, tableID, start, end, userID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if !free {
		if b.metrics != nil {
			b.metrics.ReservationsBlocked.Inc()
		}
		b.sendMessage(chatID, "⚠️ Увы, это время только что заняли. Выберите другое.")
		b.resetDialog(ctx, chatID, userID)
		return
	}

	state.TempData[models.KeyPhone] = phone
	b.setUserState(ctx, userID, models.StateConfirming, state.TempData)

	summary := fmt.Sprintf("Проверьте бронь:\n\n%s\n📞 %s",
		b.formatReservation(&models.Reservation{StartTime: start, EndTime: end}, b.tableName(ctx, tableID)),
		phone)
	b.sendWithInlineKeyboard(chatID, summary, confirmInlineKeyboard())
}

func (b *Bot) showMyReservations(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	reservations, err := b.bookingService.GetUserReservations(ctx, userID)
	if err != nil {
		b.sendMessage(update.Message.Chat.ID, b.getErrorMessage(err))
		return
	}

	if len(reservations) == 0 {
		b.sendMessage(update.Message.Chat.ID, "У вас нет активных броней.")
		return
	}

	for i := range reservations {
		r := &reservations[i]
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("❌ Отменить", fmt.Sprintf("ucancel:%d", r.ID)),
			),
		)
		b.sendWithInlineKeyboard(update.Message.Chat.ID, b.formatReservation(r, b.tableName(ctx, r.TableID)), kb)
	}
}

func (b *Bot) startSupport(ctx context.Context, update tgbotapi.Update) {
	b.setUserState(ctx, update.Message.From.ID, models.StateSupportMessage, nil)
	b.sendMessage(update.Message.Chat.ID, "💬 Напишите ваше сообщение, мы передадим его администраторам.")
}

func (b *Bot) handleSupportMessage(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	text := sanitizeInput(update.Message.Text)
	if text == "" {
		b.sendMessage(update.Message.Chat.ID, "Сообщение пустое. Напишите текстом, что случилось.")
		return
	}

	username := update.Message.From.UserName
	if username == "" {
		username = update.Message.From.FirstName
	}

	b.notifyAdmins(fmt.Sprintf("💬 Сообщение от @%s (id %d):\n\n%s", username, userID, text))

	b.clearUserState(ctx, userID)
	b.sendMessage(update.Message.Chat.ID, "✅ Сообщение отправлено. Мы свяжемся с вами при необходимости.")
	b.showMainMenu(ctx, update.Message.Chat.ID, userID)
}

// notifyAdmins рассылает текст всем администраторам. Ошибка доставки
// одному получателю не мешает остальным.
func (b *Bot) notifyAdmins(text string) {
	for _, adminID := range b.config.Admins {
		if _, err := b.tgService.SendMessage(adminID, text); err != nil {
			b.logger.Error().Err(err).Int64("admin_id", adminID).Msg("Failed to notify admin")
		}
	}
}
