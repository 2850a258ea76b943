package bot

import (
	"errors"

	"kiybot/internal/database"
	"kiybot/internal/schedule"
)

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, database.ErrNotAvailable) {
		return "⚠️ Увы, это время уже занято. Пожалуйста, выберите другое время или стол."
	}

	if errors.Is(err, schedule.ErrPastTime) {
		return "⚠️ Нельзя забронировать время в прошлом."
	}

	if errors.Is(err, schedule.ErrDateTooFar) {
		return "⚠️ Так далеко вперёд бронировать нельзя. Выберите более раннюю дату."
	}

	if errors.Is(err, schedule.ErrOutsideHours) {
		return "⚠️ Это время за пределами часов работы клуба."
	}

	if errors.Is(err, schedule.ErrBadDuration) {
		return "⚠️ Недопустимая длительность брони."
	}

	if errors.Is(err, schedule.ErrBlackoutDate) {
		return "⚠️ В этот день клуб закрыт для бронирования."
	}

	if errors.Is(err, database.ErrTournamentFull) {
		return "⚠️ К сожалению, все места на турнир уже заняты."
	}

	if errors.Is(err, database.ErrAlreadyRegistered) {
		return "⚠️ Вы уже зарегистрированы на турнир."
	}

	if errors.Is(err, database.ErrNotFound) {
		return "⚠️ Запись не найдена."
	}

	return "❌ Произошла ошибка при обработке вашего запроса. Пожалуйста, попробуйте позже."
}
