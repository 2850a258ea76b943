package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kiybot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleAdminCommand обработка команд администратора
func (b *Bot) handleAdminCommand(ctx context.Context, update tgbotapi.Update) bool {
	text := strings.TrimSpace(update.Message.Text)
	chatID := update.Message.Chat.ID
	adminID := update.Message.From.ID

	switch {
	case text == "/today":
		b.showDaySchedule(ctx, chatID, time.Now())
		return true

	case strings.HasPrefix(text, "/date"):
		arg := strings.TrimSpace(strings.TrimPrefix(text, "/date"))
		date, err := parseDateButton(arg)
		if err != nil {
			b.sendMessage(chatID, "Формат: /date ДД.ММ.ГГГГ")
			return true
		}
		b.showDaySchedule(ctx, chatID, date)
		return true

	case strings.HasPrefix(text, "/cancel"):
		b.handleAdminCancel(ctx, chatID, adminID, strings.TrimSpace(strings.TrimPrefix(text, "/cancel")))
		return true

	case strings.HasPrefix(text, "/edit"):
		b.handleAdminEdit(ctx, chatID, adminID, strings.Fields(strings.TrimPrefix(text, "/edit")))
		return true

	case strings.HasPrefix(text, "/block"):
		b.handleAdminBlock(ctx, chatID, adminID, strings.Fields(strings.TrimPrefix(text, "/block")))
		return true

	case text == "/export":
		b.handleExport(ctx, update)
		return true

	case text == "/tournament":
		b.showTournamentList(ctx, chatID)
		return true
	}

	return false
}

// showTournamentList — список записанных на турнир.
func (b *Bot) showTournamentList(ctx context.Context, chatID int64) {
	regs, err := b.tournamentService.ListActive(ctx)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(regs) == 0 {
		b.sendMessage(chatID, "На турнир пока никто не записан.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏆 Участники турнира (%d из %d):\n\n",
		len(regs), b.tournamentService.MaxParticipants()))
	for i, reg := range regs {
		sb.WriteString(fmt.Sprintf("%d. %s @%s %s\n", i+1, reg.FullName, reg.Username, reg.Phone))
	}
	b.sendMessage(chatID, sb.String())
}

func (b *Bot) handleAdminCallback(ctx context.Context, update tgbotapi.Update) bool {
	callback := update.CallbackQuery
	data := callback.Data

	if strings.HasPrefix(data, "acancel:") {
		id, _ := strconv.ParseInt(strings.TrimPrefix(data, "acancel:"), 10, 64)
		b.handleAdminCancel(ctx, callback.Message.Chat.ID, callback.From.ID, strconv.FormatInt(id, 10))
		return true
	}

	return false
}

// showDaySchedule — расписание календарной даты: активные брони
// первыми, затем отменённые.
func (b *Bot) showDaySchedule(ctx context.Context, chatID int64, date time.Time) {
	reservations, err := b.bookingService.GetReservationsByDate(ctx, date)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	if len(reservations) == 0 {
		b.sendMessage(chatID, fmt.Sprintf("На %s броней нет.", formatDateButton(date)))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 Брони на %s:\n\n", formatDateButton(date)))
	for i := range reservations {
		r := &reservations[i]
		statusEmoji := "✅"
		if r.Status == models.StatusCancelled {
			statusEmoji = "❌"
		}
		sb.WriteString(fmt.Sprintf("%s #%d %s %s @%s %s\n",
			statusEmoji, r.ID, b.tableName(ctx, r.TableID),
			formatTimeRange(r.StartTime, r.EndTime), r.Username, r.Phone))
	}
	sb.WriteString("\nОтмена: /cancel N, правка длительности: /edit N часы")

	b.sendMessage(chatID, sb.String())
}

func (b *Bot) handleAdminCancel(ctx context.Context, chatID, adminID int64, arg string) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		b.sendMessage(chatID, "Формат: /cancel N, где N — номер брони.")
		return
	}

	ok, reservation, err := b.bookingService.CancelReservation(ctx, id, "admin", adminID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if !ok {
		b.sendMessage(chatID, fmt.Sprintf("Бронь #%d уже отменена.", id))
		return
	}

	b.keyboards.Invalidate()
	b.sendMessage(chatID, fmt.Sprintf("✅ Бронь #%d отменена.", id))

	// Владельцу сообщаем об отмене, кроме админских блоков
	if reservation != nil && reservation.UserID != adminID && reservation.Username != "admin" {
		b.sendMessage(reservation.UserID, fmt.Sprintf(
			"⚠️ Ваша бронь отменена администратором:\n\n%s\n\nСвяжитесь с нами, если есть вопросы.",
			b.formatReservation(reservation, b.tableName(ctx, reservation.TableID))))
	}
}

func (b *Bot) handleAdminEdit(ctx context.Context, chatID, adminID int64, args []string) {
	if len(args) != 2 {
		b.sendMessage(chatID, "Формат: /edit N часы")
		return
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		b.sendMessage(chatID, "Формат: /edit N часы")
		return
	}
	hours, err := strconv.Atoi(args[1])
	if err != nil {
		b.sendMessage(chatID, "Формат: /edit N часы")
		return
	}

	reservation, err := b.bookingService.UpdateDuration(ctx, id, hours, adminID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.keyboards.Invalidate()
	b.sendMessage(chatID, fmt.Sprintf("✅ Бронь #%d: новая длительность %d ч (%s).",
		id, hours, formatTimeRange(reservation.StartTime, reservation.EndTime)))

	if reservation.UserID != adminID && reservation.Username != "admin" {
		b.sendMessage(reservation.UserID, fmt.Sprintf(
			"ℹ️ Администратор изменил вашу бронь:\n\n%s",
			b.formatReservation(reservation, b.tableName(ctx, reservation.TableID))))
	}
}

// handleAdminBlock: /block ДД.ММ.ГГГГ HH:MM-HH:MM [столы через запятую].
// Без списка столов блокируется весь зал.
func (b *Bot) handleAdminBlock(ctx context.Context, chatID, adminID int64, args []string) {
	const usage = "Формат: /block ДД.ММ.ГГГГ HH:MM-HH:MM [1,2]"
	if len(args) < 2 || len(args) > 3 {
		b.sendMessage(chatID, usage)
		return
	}

	date, err := parseDateButton(args[0])
	if err != nil {
		b.sendMessage(chatID, usage)
		return
	}

	start, end, err := parseBlockRange(date, args[1])
	if err != nil {
		b.sendMessage(chatID, usage)
		return
	}

	var tableIDs []int64
	if len(args) == 3 {
		for _, part := range strings.Split(args[2], ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id <= 0 {
				b.sendMessage(chatID, usage)
				return
			}
			tableIDs = append(tableIDs, id)
		}
	}

	created, err := b.bookingService.CreateBlock(ctx, adminID, tableIDs, start, end)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.keyboards.Invalidate()
	b.sendMessage(chatID, fmt.Sprintf("✅ Заблокировано столов: %d, %s %s.",
		len(created), formatDateButton(start), formatTimeRange(start, end)))
}

// parseBlockRange разбирает "HH:MM-HH:MM" относительно даты.
// Конец раньше начала означает переход через полночь.
func parseBlockRange(date time.Time, raw string) (start, end time.Time, err error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return start, end, fmt.Errorf("invalid range %q", raw)
	}

	from, err := time.Parse("15:04", strings.TrimSpace(parts[0]))
	if err != nil {
		return start, end, err
	}
	to, err := time.Parse("15:04", strings.TrimSpace(parts[1]))
	if err != nil {
		return start, end, err
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.Local)
	start = day.Add(time.Duration(from.Hour())*time.Hour + time.Duration(from.Minute())*time.Minute)
	end = day.Add(time.Duration(to.Hour())*time.Hour + time.Duration(to.Minute())*time.Minute)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}
