package engine

import (
	"encoding/json"
	"sync"
)

// Виды событий, которые публикует движок.
const (
	KindProgress       = "scan_progress"
	KindProgressUpdate = "scan_progress_update"
	KindResult         = "scan_result"
	KindLog            = "scan_log"
	KindComplete       = "scan_complete"
)

// Kinds — все виды в порядке подписки.
var Kinds = []string{KindProgress, KindProgressUpdate, KindResult, KindLog, KindComplete}

// Envelope — сырое событие: тип + полезная нагрузка как есть.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Sink — подписка без потерь для ядра: на полном буфере Publish ждёт
// потребителя, а не отбрасывает событие. Обратное давление доходит до
// поставщика событий.
type Sink struct {
	C    chan json.RawMessage
	quit chan struct{}
}

// Quit закрывается при Detach; потребитель по нему добирает буфер и выходит.
func (s *Sink) Quit() <-chan struct{} { return s.quit }

// Hub раздаёт события по виду двум классам получателей: best-effort
// подписки (SSE-зрители, отставших не ждём) и lossless-стоки (ядро).
// FIFO внутри одного вида, между видами порядок не гарантируется.
type Hub struct {
	mu    sync.Mutex
	subs  map[string]map[chan json.RawMessage]struct{}
	sinks map[string][]*Sink
}

func NewHub() *Hub {
	return &Hub{
		subs:  make(map[string]map[chan json.RawMessage]struct{}),
		sinks: make(map[string][]*Sink),
	}
}

func (h *Hub) Subscribe(kind string) chan json.RawMessage {
	ch := make(chan json.RawMessage, 64)
	h.mu.Lock()
	if h.subs[kind] == nil {
		h.subs[kind] = make(map[chan json.RawMessage]struct{})
	}
	h.subs[kind][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(kind string, ch chan json.RawMessage) {
	h.mu.Lock()
	if set, ok := h.subs[kind]; ok {
		if _, ok := set[ch]; ok {
			delete(set, ch)
			close(ch)
		}
	}
	h.mu.Unlock()
}

// Attach регистрирует lossless-сток для вида kind.
func (h *Hub) Attach(kind string) *Sink {
	s := &Sink{
		C:    make(chan json.RawMessage, 64),
		quit: make(chan struct{}),
	}
	h.mu.Lock()
	h.sinks[kind] = append(h.sinks[kind], s)
	h.mu.Unlock()
	return s
}

// Detach снимает сток и будит заблокированные на нём Publish. Канал стока
// не закрывается: по нему ещё может идти доставка из снятого снимка.
func (h *Hub) Detach(kind string, s *Sink) {
	h.mu.Lock()
	list := h.sinks[kind]
	for i := range list {
		if list[i] == s {
			h.sinks[kind] = append(list[:i], list[i+1:]...)
			close(s.quit)
			break
		}
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(kind string, payload json.RawMessage) {
	h.mu.Lock()
	for ch := range h.subs[kind] {
		select {
		case ch <- payload:
		default:
			// медленный зритель: событие для него теряется, hub не блокируется
		}
	}
	sinks := make([]*Sink, len(h.sinks[kind]))
	copy(sinks, h.sinks[kind])
	h.mu.Unlock()

	// стокам ядра доставляем обязательно; блокирующая отправка идёт вне
	// мьютекса, чтобы занятый обработчик не тормозил другие виды
	for _, s := range sinks {
		select {
		case s.C <- payload:
		case <-s.quit:
		}
	}
}
