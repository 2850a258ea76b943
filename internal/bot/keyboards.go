package bot

import (
	"fmt"
	"time"

	"kiybot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	btnBook           = "🎱 Забронировать стол"
	btnMyReservations = "📋 Мои брони"
	btnTournament     = "🏆 Турнир"
	btnSupport        = "💬 Связаться с нами"
	btnCancel         = "❌ Отмена"
	btnBack           = "⬅️ Назад"
	btnConfirm        = "✅ Подтвердить"
	btnSharePhone     = "📱 Отправить номер"
)

func (b *Bot) mainMenuKeyboard(isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBook),
			tgbotapi.NewKeyboardButton(btnMyReservations),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnTournament),
			tgbotapi.NewKeyboardButton(btnSupport),
		),
	}

	if isAdmin {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/today"),
			tgbotapi.NewKeyboardButton("/export"),
		))
	}

	return tgbotapi.NewReplyKeyboard(rows...)
}

// datesKeyboard — даты горизонта бронирования, по две в ряд.
func datesKeyboard(dates []time.Time) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton

	for _, d := range dates {
		row = append(row, tgbotapi.NewKeyboardButton(formatDateButton(d)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)))

	return tgbotapi.NewReplyKeyboard(rows...)
}

// timesKeyboard — времена начала, по четыре в ряд. Слоты после
// полуночи показываются как обычные HH:MM того же рабочего дня.
func timesKeyboard(slots []time.Time) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton

	for _, s := range slots {
		row = append(row, tgbotapi.NewKeyboardButton(s.Format("15:04")))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnBack),
		tgbotapi.NewKeyboardButton(btnCancel),
	))

	return tgbotapi.NewReplyKeyboard(rows...)
}

func durationKeyboard(minHours, maxHours int) tgbotapi.ReplyKeyboardMarkup {
	var row []tgbotapi.KeyboardButton
	for h := minHours; h <= maxHours; h++ {
		row = append(row, tgbotapi.NewKeyboardButton(fmt.Sprintf("%d ч", h)))
	}

	return tgbotapi.NewReplyKeyboard(
		row,
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBack),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
}

func tablesInlineKeyboard(tables []models.Table) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range tables {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t.Name, fmt.Sprintf("table:%d", t.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel_booking"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnConfirm, "confirm_booking"),
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel_booking"),
		),
	)
}

func phoneKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact(btnSharePhone),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.OneTimeKeyboard = true
	return kb
}
