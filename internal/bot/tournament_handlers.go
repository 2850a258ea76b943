package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kiybot/internal/database"
	"kiybot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) showTournament(ctx context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	if b.tournamentService.Date() == "" {
		b.sendMessage(chatID, "Сейчас турниры не запланированы. Следите за анонсами!")
		return
	}

	existing, err := b.tournamentService.GetUserRegistration(ctx, userID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	if existing != nil {
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("❌ Отменить участие", "tournament_cancel"),
			),
		)
		b.sendWithInlineKeyboard(chatID,
			fmt.Sprintf("🏆 Вы зарегистрированы на турнир %s.\n👤 %s\n📞 %s",
				b.tournamentService.Date(), existing.FullName, existing.Phone),
			kb)
		return
	}

	free, err := b.tournamentService.FreeSlots(ctx)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if free <= 0 {
		b.sendMessage(chatID, fmt.Sprintf("🏆 Турнир %s: все места заняты.", b.tournamentService.Date()))
		return
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Записаться", "tournament_register"),
		),
	)
	b.sendWithInlineKeyboard(chatID,
		fmt.Sprintf("🏆 Турнир %s\nСвободных мест: %d из %d",
			b.tournamentService.Date(), free, b.tournamentService.MaxParticipants()),
		kb)
}

func (b *Bot) startTournamentRegistration(ctx context.Context, chatID, userID int64) {
	b.setUserState(ctx, userID, models.StateTournamentName, nil)
	b.sendMessage(chatID, "Как вас записать? Введите имя и фамилию:")
}

func (b *Bot) handleTournamentName(ctx context.Context, update tgbotapi.Update, state *models.UserState) {
	name := sanitizeInput(update.Message.Text)
	if name == "" {
		b.sendMessage(update.Message.Chat.ID, "Имя не может быть пустым. Введите имя и фамилию:")
		return
	}

	state.TempData[models.KeyFullName] = name
	b.setUserState(ctx, update.Message.From.ID, models.StateTournamentPhone, state.TempData)
	b.sendWithKeyboard(update.Message.Chat.ID, "📱 Отправьте номер телефона:", phoneKeyboard())
}

func (b *Bot) handleTournamentPhone(ctx context.Context, update tgbotapi.Update, state *models.UserState) {
	raw := update.Message.Text
	if update.Message.Contact != nil {
		raw = update.Message.Contact.PhoneNumber
	}

	phone, ok := normalizePhone(raw)
	if !ok {
		b.sendMessage(update.Message.Chat.ID, "Не похоже на номер телефона. Отправьте номер в формате +79991234567.")
		return
	}

	state.TempData[models.KeyPhone] = phone
	b.setUserState(ctx, update.Message.From.ID, models.StateTournamentConfirm, state.TempData)

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnConfirm, "tournament_confirm"),
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel_booking"),
		),
	)
	b.sendWithInlineKeyboard(update.Message.Chat.ID,
		fmt.Sprintf("🏆 Запись на турнир %s\n👤 %s\n📞 %s\n\nВсё верно?",
			b.tournamentService.Date(), state.GetString(models.KeyFullName), phone),
		kb)
}

func (b *Bot) handleTournamentConfirm(ctx context.Context, chatID, userID int64, username string) {
	state := b.getUserState(ctx, userID)
	if state == nil || state.CurrentStep != models.StateTournamentConfirm {
		b.sendMessage(chatID, "Диалог устарел. Начните запись заново.")
		return
	}

	reg := &models.TournamentRegistration{
		UserID:    userID,
		Username:  username,
		FullName:  state.GetString(models.KeyFullName),
		Phone:     state.GetString(models.KeyPhone),
		Status:    models.StatusActive,
		CreatedAt: time.Now(),
	}

	if err := b.tournamentService.Register(ctx, reg); err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		b.clearUserState(ctx, userID)
		return
	}

	b.clearUserState(ctx, userID)
	b.sendMessage(chatID, fmt.Sprintf("✅ Вы записаны на турнир %s. До встречи!", b.tournamentService.Date()))
	b.notifyAdmins(fmt.Sprintf("🏆 Новая запись на турнир: %s (@%s, %s)", reg.FullName, username, reg.Phone))
	b.showMainMenu(ctx, chatID, userID)
}

func (b *Bot) handleTournamentCancel(ctx context.Context, chatID, userID int64) {
	existing, err := b.tournamentService.GetUserRegistration(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			b.sendMessage(chatID, "У вас нет активной записи на турнир.")
			return
		}
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	ok, err := b.tournamentService.Cancel(ctx, existing.ID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if !ok {
		b.sendMessage(chatID, "Запись уже отменена.")
		return
	}

	b.sendMessage(chatID, "✅ Участие в турнире отменено.")
	b.notifyAdmins(fmt.Sprintf("🏆 Отмена записи на турнир: %s (id %d)", existing.FullName, userID))
}
