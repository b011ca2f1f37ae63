package feed

import (
	"sync"
	"time"

	"github.com/vam876/lllmscanner/internal/model"
)

const (
	// DefaultWindow — глубина окна дедупликации лога. Окно намеренно
	// маленькое и без хеширования: нужен recency-bias, а не глобальный дедуп.
	DefaultWindow = 5

	DefaultTTL = 3 * time.Second
)

// Notification — транзиентное уведомление. Видимо максимум одно:
// новое вытесняет текущее.
type Notification struct {
	Message string         `json:"message"`
	Type    model.LogLevel `json:"type"`
}

// Feed — лог скана плюс одно-слотовые уведомления с самоочисткой.
type Feed struct {
	mu      sync.Mutex
	window  int
	entries []model.LogEntry

	ttl      time.Duration
	notif    *Notification
	notifSeq uint64
	timer    *time.Timer
}

func New(window int, ttl time.Duration) *Feed {
	if window <= 0 {
		window = DefaultWindow
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Feed{window: window, ttl: ttl}
}

// Append добавляет запись, если среди последних window записей нет
// идентичной по (message, type). Возвращает false для отброшенного дубля.
func (f *Feed) Append(message string, level model.LogLevel) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := len(f.entries) - f.window
	if start < 0 {
		start = 0
	}
	for _, e := range f.entries[start:] {
		if e.Message == message && e.Type == level {
			return false
		}
	}

	f.entries = append(f.entries, model.LogEntry{
		Message:   message,
		Type:      level,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return true
}

func (f *Feed) Entries() []model.LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.LogEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
}

// Notify показывает уведомление и перевзводит таймер самоочистки.
// seq защищает от гонки: протухший таймер не стирает более новое уведомление.
func (f *Feed) Notify(message string, level model.LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.notif = &Notification{Message: message, Type: level}
	f.notifSeq++
	seq := f.notifSeq

	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.ttl, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.notifSeq == seq {
			f.notif = nil
		}
	})
}

// Current возвращает живое уведомление, если оно ещё не протухло.
func (f *Feed) Current() (Notification, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notif == nil {
		return Notification{}, false
	}
	return *f.notif, true
}

// Dismiss скрывает текущее уведомление вручную.
func (f *Feed) Dismiss() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notif = nil
	f.notifSeq++
}

// Close останавливает таймер самоочистки. Идемпотентен.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	return nil
}
