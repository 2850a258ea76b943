package bot

import (
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// KeyboardCache переиспользует собранные клавиатуры между
// обновлениями. Сбрасывается по TTL и по событиям брони: состав
// дат меняется в полночь и при появлении блэкаутов.
type KeyboardCache struct {
	mu  sync.Mutex
	ttl time.Duration

	entries map[string]keyboardEntry
}

type keyboardEntry struct {
	keyboard tgbotapi.ReplyKeyboardMarkup
	builtAt  time.Time
}

func NewKeyboardCache(ttl time.Duration) *KeyboardCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &KeyboardCache{
		ttl:     ttl,
		entries: make(map[string]keyboardEntry),
	}
}

// Get возвращает клавиатуру из кеша или собирает её заново.
func (c *KeyboardCache) Get(key string, build func() tgbotapi.ReplyKeyboardMarkup) tgbotapi.ReplyKeyboardMarkup {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && time.Since(e.builtAt) < c.ttl {
		return e.keyboard
	}

	kb := build()
	c.entries[key] = keyboardEntry{keyboard: kb, builtAt: time.Now()}
	return kb
}

// Invalidate сбрасывает весь кеш. Подписывается на события брони.
func (c *KeyboardCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]keyboardEntry)
}
