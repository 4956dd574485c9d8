package gateway

import (
	"sync"
)

type subscription struct {
	id       int
	table    string
	filter   Filter
	onInsert func(Row)
}

// Hub раздает уведомления о вставках подписчикам внутри процесса.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe регистрирует обработчик новых строк таблицы.
func (h *Hub) Subscribe(table string, filter Filter, onInsert func(Row)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscription{id: id, table: table, filter: filter, onInsert: onInsert})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish вызывает обработчики, чей фильтр подходит строке.
func (h *Hub) Publish(table string, rows ...Row) {
	h.mu.RLock()
	matched := make([]subscription, 0, len(h.subs))
	for _, s := range h.subs {
		if s.table == table {
			matched = append(matched, s)
		}
	}
	h.mu.RUnlock()

	for _, row := range rows {
		for _, s := range matched {
			if s.filter.Matches(row) {
				s.onInsert(row.Clone())
			}
		}
	}
}
