package schedule

import (
	"fmt"
	"sort"
	"time"

	"kiybot/internal/config"
)

// Calculator вычисляет границы рабочего дня и допустимые слоты.
// Чистые вычисления без побочных эффектов: все методы безопасны для
// конкурентных вызовов.
type Calculator struct {
	step       time.Duration
	minHours   int
	maxHours   int
	maxDays    int
	cutoffHour int
	hours      weekHours
	blackout   map[string]bool
}

type weekHours struct {
	weekday dayHours
	friday  dayHours
	weekend dayHours
	sunday  dayHours
}

type dayHours struct {
	open  config.TimeOfDay
	close config.TimeOfDay
}

// NewCalculator строит калькулятор из бизнес-правил конфигурации.
func NewCalculator(cfg config.BookingConfig) (*Calculator, error) {
	parse := func(h config.DayHours) (dayHours, error) {
		open, err := config.ParseTimeOfDay(h.Open)
		if err != nil {
			return dayHours{}, fmt.Errorf("parse open time: %w", err)
		}
		cl, err := config.ParseTimeOfDay(h.Close)
		if err != nil {
			return dayHours{}, fmt.Errorf("parse close time: %w", err)
		}
		return dayHours{open: open, close: cl}, nil
	}

	var hours weekHours
	var err error
	if hours.weekday, err = parse(cfg.Hours.Weekday); err != nil {
		return nil, err
	}
	if hours.friday, err = parse(cfg.Hours.Friday); err != nil {
		return nil, err
	}
	if hours.weekend, err = parse(cfg.Hours.Weekend); err != nil {
		return nil, err
	}
	if hours.sunday, err = parse(cfg.Hours.Sunday); err != nil {
		return nil, err
	}

	blackout := make(map[string]bool, len(cfg.BlackoutDates))
	for _, d := range cfg.BlackoutDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, fmt.Errorf("invalid blackout date %q: %w", d, err)
		}
		blackout[d] = true
	}

	return &Calculator{
		step:       time.Duration(cfg.StepMinutes) * time.Minute,
		minHours:   cfg.MinHours,
		maxHours:   cfg.MaxHours,
		maxDays:    cfg.MaxBookingDays,
		cutoffHour: cfg.EarlyMorningCutoff,
		hours:      hours,
		blackout:   blackout,
	}, nil
}

func (c *Calculator) Step() time.Duration { return c.step }
func (c *Calculator) MinHours() int       { return c.minHours }
func (c *Calculator) MaxHours() int       { return c.maxHours }
func (c *Calculator) MaxDays() int        { return c.maxDays }

// WorkingHours возвращает часы работы для календарной даты.
// Пн-Чт — будний шаблон, Пт и Сб — свои шаблоны, Вс — воскресный.
func (c *Calculator) WorkingHours(date time.Time) (open, close config.TimeOfDay) {
	var h dayHours
	switch date.Weekday() {
	case time.Friday:
		h = c.hours.friday
	case time.Saturday:
		h = c.hours.weekend
	case time.Sunday:
		h = c.hours.sunday
	default:
		h = c.hours.weekday
	}
	return h.open, h.close
}

// BusinessDay возвращает явные границы рабочего дня даты.
// Если время закрытия меньше времени открытия, закрытие лежит на
// следующей календарной дате.
func (c *Calculator) BusinessDay(date time.Time) (open, close time.Time) {
	openTod, closeTod := c.WorkingHours(date)

	day := midnight(date)
	open = day.Add(time.Duration(openTod.Hour)*time.Hour + time.Duration(openTod.Minute)*time.Minute)
	close = day.Add(time.Duration(closeTod.Hour)*time.Hour + time.Duration(closeTod.Minute)*time.Minute)
	if !close.After(open) {
		close = close.AddDate(0, 0, 1)
	}
	return open, close
}

// IsBlackout сообщает, закрыта ли дата для бронирования.
func (c *Calculator) IsBlackout(date time.Time) bool {
	return c.blackout[date.Format("2006-01-02")]
}

// Slots перечисляет допустимые времена начала брони для рабочего дня
// указанной даты: от открытия до закрытия минус минимальная
// длительность включительно, с фиксированным шагом, только будущие.
// Рабочий день, уходящий за полночь, продолжается слотами на
// следующей календарной дате. Результат строго возрастает и не
// содержит дубликатов.
func (c *Calculator) Slots(date, now time.Time) []time.Time {
	if c.IsBlackout(date) {
		return nil
	}

	open, close := c.BusinessDay(date)
	last := close.Add(-time.Duration(c.minHours) * time.Hour)

	var slots []time.Time
	boundary := midnight(date).AddDate(0, 0, 1)

	// Сегмент до полуночи и сегмент раннего утра следующей даты
	// генерируются независимо; порядок выравнивается ниже.
	for cur := open; !cur.After(last) && cur.Before(boundary); cur = cur.Add(c.step) {
		if cur.After(now) {
			slots = append(slots, cur)
		}
	}
	if close.After(boundary) {
		start := boundary
		if open.After(boundary) {
			start = open
		}
		for cur := start; !cur.After(last); cur = cur.Add(c.step) {
			if cur.After(now) {
				slots = append(slots, cur)
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return dedupe(slots)
}

// AvailableDates возвращает даты, открытые для бронирования, начиная
// с сегодняшней, в пределах горизонта.
func (c *Calculator) AvailableDates(now time.Time) []time.Time {
	today := midnight(now)
	dates := make([]time.Time, 0, c.maxDays)
	for i := 0; i < c.maxDays; i++ {
		d := today.AddDate(0, 0, i)
		if c.IsBlackout(d) {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// ValidateInterval проверяет допустимость интервала бронирования.
// Раннее утро (до часа-отсечки) относится к рабочему дню предыдущей
// даты, если тот уходит за полночь.
func (c *Calculator) ValidateInterval(start time.Time, durationHours int, now time.Time) error {
	if !start.After(now) {
		return ErrPastTime
	}

	open, _ := c.businessDayFor(start)
	if midnight(open).After(midnight(now).AddDate(0, 0, c.maxDays-1)) {
		return ErrDateTooFar
	}

	return c.ValidateWindow(start, durationHours)
}

// ValidateWindow проверяет интервал против часов работы и границ
// длительности, без привязки к текущему моменту. Используется и при
// бронировании, и при админской правке длительности существующей
// брони.
func (c *Calculator) ValidateWindow(start time.Time, durationHours int) error {
	if durationHours < c.minHours || durationHours > c.maxHours {
		return ErrBadDuration
	}

	open, close := c.businessDayFor(start)
	if c.IsBlackout(midnight(open)) {
		return ErrBlackoutDate
	}

	end := start.Add(time.Duration(durationHours) * time.Hour)
	if start.Before(open) || end.After(close) {
		return ErrOutsideHours
	}
	return nil
}

// businessDayFor определяет рабочий день, к которому относится момент.
// Час-отсечка — эвристика, настраивается в конфигурации и не выводится
// из бизнес-правил.
func (c *Calculator) businessDayFor(t time.Time) (open, close time.Time) {
	if t.Hour() < c.cutoffHour {
		prevOpen, prevClose := c.BusinessDay(midnight(t).AddDate(0, 0, -1))
		if prevClose.Day() != prevOpen.Day() {
			return prevOpen, prevClose
		}
	}
	return c.BusinessDay(t)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dedupe(ts []time.Time) []time.Time {
	if len(ts) < 2 {
		return ts
	}
	out := ts[:1]
	for _, t := range ts[1:] {
		if !t.Equal(out[len(out)-1]) {
			out = append(out, t)
		}
	}
	return out
}
