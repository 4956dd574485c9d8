package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"liftkeeper/internal/domain/queue"
)

type storedItem struct {
	seq  int
	item queue.Item
}

// QueueStore - локальное хранилище очереди в памяти. Порядок выдачи - created_at,
// при равенстве - порядок первого сохранения, как у SQLite-хранилища.
type QueueStore struct {
	mu      sync.Mutex
	items   map[string]storedItem
	nextSeq int
	err     error
}

var _ queue.LocalStore = (*QueueStore)(nil)

func NewQueueStore() *QueueStore {
	return &QueueStore{items: make(map[string]storedItem)}
}

// Fail заставляет все операции хранилища возвращать err; nil снимает ошибку.
func (s *QueueStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *QueueStore) Save(_ context.Context, item *queue.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	stored, ok := s.items[item.ID]
	if !ok {
		s.nextSeq++
		stored.seq = s.nextSeq
	}
	stored.item = *item
	s.items[item.ID] = stored
	return nil
}

func (s *QueueStore) Pending(_ context.Context) ([]*queue.Item, error) {
	return s.list(func(it queue.Item) bool { return !it.Synced && !it.DeadLetter })
}

func (s *QueueStore) DeadLetters(_ context.Context) ([]*queue.Item, error) {
	return s.list(func(it queue.Item) bool { return !it.Synced && it.DeadLetter })
}

func (s *QueueStore) MarkSynced(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if stored, ok := s.items[id]; ok {
		stored.item.Synced = true
		s.items[id] = stored
	}
	return nil
}

// Purge удаляет синхронизированные элементы, созданные раньше before.
func (s *QueueStore) Purge(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	var n int64
	for id, stored := range s.items {
		if stored.item.Synced && stored.item.CreatedAt.Before(before) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

// Get возвращает элемент по id.
func (s *QueueStore) Get(id string) (queue.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[id]
	return stored.item, ok
}

func (s *QueueStore) list(keep func(queue.Item) bool) ([]*queue.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	var kept []storedItem
	for _, stored := range s.items {
		if keep(stored.item) {
			kept = append(kept, stored)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if !a.item.CreatedAt.Equal(b.item.CreatedAt) {
			return a.item.CreatedAt.Before(b.item.CreatedAt)
		}
		return a.seq < b.seq
	})

	out := make([]*queue.Item, len(kept))
	for i := range kept {
		cp := kept[i].item
		out[i] = &cp
	}
	return out, nil
}
