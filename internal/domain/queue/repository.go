package queue

import (
	"context"
)

// LocalStore - долговременное хранилище очереди на устройстве.
type LocalStore interface {
	// Save вставляет элемент или перезаписывает его по id.
	Save(ctx context.Context, item *Item) error
	// Pending возвращает несинхронизированные элементы без dead-letter в порядке создания.
	Pending(ctx context.Context) ([]*Item, error)
	DeadLetters(ctx context.Context) ([]*Item, error)
	// MarkSynced помечает элемент синхронизированным; отсутствующий id не ошибка.
	MarkSynced(ctx context.Context, id string) error
}
