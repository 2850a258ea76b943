package schedule

import "errors"

var (
	// ErrOutsideHours — интервал выходит за часы работы.
	ErrOutsideHours = errors.New("interval is outside working hours")

	// ErrPastTime — начало брони в прошлом.
	ErrPastTime = errors.New("start time is in the past")

	// ErrDateTooFar — дата дальше максимального горизонта бронирования.
	ErrDateTooFar = errors.New("date is beyond the booking horizon")

	// ErrBadDuration — длительность вне настроенных границ.
	ErrBadDuration = errors.New("duration is out of allowed bounds")

	// ErrBlackoutDate — на дату бронирование закрыто (турнир и т.п.).
	ErrBlackoutDate = errors.New("date is blacked out")
)
