package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiybot/internal/config"
)

func testConfig() config.BookingConfig {
	return config.BookingConfig{
		StepMinutes:        60,
		MinHours:           1,
		MaxHours:           4,
		MaxBookingDays:     7,
		EarlyMorningCutoff: 6,
		Hours: config.WeekHours{
			Weekday: config.DayHours{Open: "16:00", Close: "02:00"},
			Friday:  config.DayHours{Open: "16:00", Close: "04:00"},
			Weekend: config.DayHours{Open: "15:00", Close: "04:00"},
			Sunday:  config.DayHours{Open: "15:00", Close: "02:00"},
		},
	}
}

func newTestCalculator(t *testing.T, cfg config.BookingConfig) *Calculator {
	t.Helper()
	calc, err := NewCalculator(cfg)
	require.NoError(t, err)
	return calc
}

// 2026-09-03 — четверг, 2026-09-04 — пятница и так далее.
func day(d int) time.Time {
	return time.Date(2026, 9, d, 0, 0, 0, 0, time.Local)
}

func at(d, hour, minute int) time.Time {
	return time.Date(2026, 9, d, hour, minute, 0, 0, time.Local)
}

func TestNewCalculator_BadHours(t *testing.T) {
	cfg := testConfig()
	cfg.Hours.Friday.Close = "25:00"
	_, err := NewCalculator(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.BlackoutDates = []string{"05.09.2026"}
	_, err = NewCalculator(cfg)
	assert.Error(t, err)
}

func TestBusinessDay_PastMidnight(t *testing.T) {
	calc := newTestCalculator(t, testConfig())

	open, close := calc.BusinessDay(day(3)) // четверг
	assert.Equal(t, at(3, 16, 0), open)
	assert.Equal(t, at(4, 2, 0), close)

	open, close = calc.BusinessDay(day(5)) // суббота
	assert.Equal(t, at(5, 15, 0), open)
	assert.Equal(t, at(6, 4, 0), close)
}

func TestSlots_PerDayCounts(t *testing.T) {
	calc := newTestCalculator(t, testConfig())
	now := at(1, 10, 0)

	cases := []struct {
		name  string
		date  time.Time
		count int
		first string
		last  string
	}{
		{"thursday", day(3), 10, "16:00", "01:00"},
		{"friday", day(4), 12, "16:00", "03:00"},
		{"saturday", day(5), 13, "15:00", "03:00"},
		{"sunday", day(6), 11, "15:00", "01:00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slots := calc.Slots(tc.date, now)
			require.Len(t, slots, tc.count)
			assert.Equal(t, tc.first, slots[0].Format("15:04"))
			assert.Equal(t, tc.last, slots[len(slots)-1].Format("15:04"))

			for i := 1; i < len(slots); i++ {
				assert.True(t, slots[i].After(slots[i-1]), "слоты должны строго возрастать")
			}
		})
	}
}

func TestSlots_SkipsPastTimes(t *testing.T) {
	calc := newTestCalculator(t, testConfig())

	// Четверг, 22:30: остались 23:00 и ранние утренние слоты пятницы.
	slots := calc.Slots(day(3), at(3, 22, 30))
	require.Len(t, slots, 3)
	assert.Equal(t, at(3, 23, 0), slots[0])
	assert.Equal(t, at(4, 0, 0), slots[1])
	assert.Equal(t, at(4, 1, 0), slots[2])
}

func TestSlots_CrossMidnightSlotsOnNextDate(t *testing.T) {
	calc := newTestCalculator(t, testConfig())

	slots := calc.Slots(day(4), at(1, 10, 0)) // пятница
	last := slots[len(slots)-1]
	assert.Equal(t, 5, last.Day(), "последний слот пятницы лежит на субботней дате")
	assert.Equal(t, 3, last.Hour())
}

func TestSlots_Blackout(t *testing.T) {
	cfg := testConfig()
	cfg.BlackoutDates = []string{"2026-09-05"}
	calc := newTestCalculator(t, cfg)

	assert.Empty(t, calc.Slots(day(5), at(1, 10, 0)))
	assert.True(t, calc.IsBlackout(day(5)))
	assert.False(t, calc.IsBlackout(day(6)))
}

func TestAvailableDates_HorizonAndBlackout(t *testing.T) {
	cfg := testConfig()
	cfg.BlackoutDates = []string{"2026-09-05"}
	calc := newTestCalculator(t, cfg)

	dates := calc.AvailableDates(at(3, 12, 0))
	require.Len(t, dates, 6) // 7 дней минус одна закрытая дата
	assert.Equal(t, day(3), dates[0])
	for _, d := range dates {
		assert.NotEqual(t, day(5), d)
	}
	assert.Equal(t, day(9), dates[len(dates)-1])
}

func TestValidateInterval(t *testing.T) {
	calc := newTestCalculator(t, testConfig())
	now := at(3, 12, 0) // четверг, полдень

	assert.NoError(t, calc.ValidateInterval(at(3, 16, 0), 2, now))
	assert.NoError(t, calc.ValidateInterval(at(3, 22, 0), 4, now)) // до 02:00 ровно

	assert.ErrorIs(t, calc.ValidateInterval(at(3, 11, 0), 1, now), ErrPastTime)
	assert.ErrorIs(t, calc.ValidateInterval(at(11, 16, 0), 1, now), ErrDateTooFar)
	assert.ErrorIs(t, calc.ValidateInterval(at(3, 16, 0), 5, now), ErrBadDuration)
	assert.ErrorIs(t, calc.ValidateInterval(at(3, 16, 0), 0, now), ErrBadDuration)
	assert.ErrorIs(t, calc.ValidateInterval(at(3, 15, 0), 1, now), ErrOutsideHours)
	assert.ErrorIs(t, calc.ValidateInterval(at(3, 23, 0), 4, now), ErrOutsideHours) // конец 03:00 позже закрытия
}

func TestValidateWindow_EarlyMorningBelongsToPreviousDay(t *testing.T) {
	calc := newTestCalculator(t, testConfig())

	// Пятница 01:00 — это ещё рабочий день четверга (закрытие 02:00).
	assert.NoError(t, calc.ValidateWindow(at(4, 1, 0), 1))
	assert.ErrorIs(t, calc.ValidateWindow(at(4, 1, 0), 2), ErrOutsideHours)

	// Суббота 03:00 — хвост пятницы с закрытием в 04:00.
	assert.NoError(t, calc.ValidateWindow(at(5, 3, 0), 1))
}

func TestValidateWindow_BlackoutByBusinessDay(t *testing.T) {
	cfg := testConfig()
	cfg.BlackoutDates = []string{"2026-09-04"}
	calc := newTestCalculator(t, cfg)

	assert.ErrorIs(t, calc.ValidateWindow(at(4, 16, 0), 1), ErrBlackoutDate)
	// Раннее утро пятницы относится к четвергу и не задето блокировкой.
	assert.NoError(t, calc.ValidateWindow(at(4, 1, 0), 1))
	// А раннее утро субботы — к пятнице, которая закрыта.
	assert.ErrorIs(t, calc.ValidateWindow(at(5, 3, 0), 1), ErrBlackoutDate)
}

func TestValidateInterval_LastHorizonDay(t *testing.T) {
	calc := newTestCalculator(t, testConfig())
	now := at(3, 12, 0)

	// Седьмой день горизонта включительно, восьмой — уже нет.
	assert.NoError(t, calc.ValidateInterval(at(9, 16, 0), 1, now))
	assert.ErrorIs(t, calc.ValidateInterval(at(10, 16, 0), 1, now), ErrDateTooFar)
}
