// Package events - синхронная рассылка доменных событий наблюдателям.
package events

import "sync"

// Bus хранит обработчики событий типа T в порядке подписки.
type Bus[T any] struct {
	mu       sync.RWMutex
	nextID   int
	handlers []handler[T]
}

type handler[T any] struct {
	id int
	fn func(T)
}

// Subscribe добавляет обработчик и возвращает функцию отписки.
func (b *Bus[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, handler[T]{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, h := range b.handlers {
			if h.id == id {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish вызывает обработчики в вызывающей горутине.
func (b *Bus[T]) Publish(event T) {
	b.mu.RLock()
	hs := append([]handler[T](nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range hs {
		h.fn(event)
	}
}
