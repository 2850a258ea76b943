package bot

import (
	"encoding/json"
	"fmt"

	"kiybot/internal/events"
)

// SubscribeNotifications подписывает бота на доменные события и
// рассылает уведомления администраторам.
func (b *Bot) SubscribeNotifications(bus *events.EventBus) {
	bus.Subscribe(events.EventReservationCreated, b.notifyReservationEvent("🆕 Новая бронь"))
	bus.Subscribe(events.EventReservationCancelled, b.notifyReservationEvent("❌ Отмена брони"))
	bus.Subscribe(events.EventReservationUpdated, b.notifyReservationEvent("✏️ Изменение брони"))
	bus.Subscribe(events.EventBlockCreated, b.notifyReservationEvent("⛔ Блокировка"))

	bus.Subscribe(events.EventReservationCreated, func(*events.Event) error {
		b.keyboards.Invalidate()
		return nil
	})
	bus.Subscribe(events.EventReservationCancelled, func(*events.Event) error {
		b.keyboards.Invalidate()
		return nil
	})
}

func (b *Bot) notifyReservationEvent(title string) events.EventHandler {
	return func(event *events.Event) error {
		var payload events.ReservationEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			b.logger.Error().Err(err).Str("event", event.Type).Msg("Failed to decode event payload")
			return err
		}

		tableName := payload.TableName
		if tableName == "" {
			tableName = fmt.Sprintf("Стол %d", payload.TableID)
		}

		text := fmt.Sprintf("%s #%d\n🎱 %s\n📅 %s %s\n👤 @%s",
			title, payload.ReservationID, tableName,
			formatDateButton(payload.StartTime),
			formatTimeRange(payload.StartTime, payload.EndTime),
			payload.Username)
		if payload.Phone != "" && payload.Phone != "-" {
			text += "\n📞 " + payload.Phone
		}
		if payload.ChangedBy != "" {
			text += "\n✍️ " + payload.ChangedBy
		}

		b.notifyAdmins(text)
		return nil
	}
}
