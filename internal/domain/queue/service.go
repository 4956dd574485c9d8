// Package queue - журнал мутирующих операций, накопленных без связи с хранилищем.
package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/connectivity"
	"liftkeeper/internal/domain/gateway"
)

// Config - настройки очереди.
type Config struct {
	// MaxAttempts ограничивает число попыток воспроизведения одного элемента.
	// 0 - без ограничения: элемент повторяется на каждом проходе.
	MaxAttempts int
}

// Queue - общая для процесса очередь отложенных операций.
// Создается один раз при старте приложения и передается потребителям явно.
type Queue struct {
	remote gateway.Gateway
	local  LocalStore
	log    *slog.Logger
	config Config

	mu      sync.Mutex
	pending []*Item
	dead    []*Item
	synced  map[string]bool
	monitor *connectivity.Monitor

	replaying atomic.Bool
	wg        sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// New создает очередь. remote - сырой шлюз, без обертки NewGateway.
func New(remote gateway.Gateway, local LocalStore, log *slog.Logger, config Config) *Queue {
	return &Queue{
		remote: remote,
		local:  local,
		log:    log.With("component", "offline_queue"),
		config: config,
		synced: make(map[string]bool),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Hydrate восстанавливает несинхронизированные элементы из локального хранилища
// и удаленной таблицы очереди. Ошибка удаленного чтения не фатальна.
func (q *Queue) Hydrate(ctx context.Context) error {
	local, err := q.local.Pending(ctx)
	if err != nil {
		return fmt.Errorf("load local queue: %w", err)
	}
	dead, err := q.local.DeadLetters(ctx)
	if err != nil {
		return fmt.Errorf("load dead letters: %w", err)
	}

	// порядок локального хранилища сохраняется: он различает элементы с одинаковым created_at
	q.mu.Lock()
	q.pending = append([]*Item(nil), local...)
	q.dead = dead
	q.mu.Unlock()

	if q.IsOnline() {
		q.mergeRemote(ctx)
	}

	q.log.Info("queue hydrated", "pending", q.Len(), "dead_letters", len(dead))
	return nil
}

// mergeRemote добавляет в очередь несинхронизированные элементы удаленной таблицы,
// которых еще нет в памяти, и возвращает их количество.
func (q *Queue) mergeRemote(ctx context.Context) int {
	rows, err := q.remote.Select(ctx, gateway.TableOfflineQueue,
		gateway.Where(gateway.Eq("synced", false)).OrderAsc("created_at"))
	if err != nil {
		q.log.Warn("failed to load remote queue, using local copy only", "error", err)
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	known := make(map[string]bool, len(q.pending)+len(q.dead)+len(q.synced))
	for _, it := range q.pending {
		known[it.ID] = true
	}
	for _, it := range q.dead {
		known[it.ID] = true
	}
	for id := range q.synced {
		known[id] = true
	}

	added := 0
	for _, row := range rows {
		var it Item
		if err := gateway.Decode(row, &it); err != nil {
			q.log.Warn("skipping malformed remote queue row", "id", row["id"], "error", err)
			continue
		}
		if known[it.ID] || it.DeadLetter {
			continue
		}
		known[it.ID] = true
		q.pending = append(q.pending, &it)
		added++
	}
	if added > 0 {
		sort.SliceStable(q.pending, func(i, j int) bool {
			return q.pending[i].CreatedAt.Before(q.pending[j].CreatedAt)
		})
		q.log.Info("remote queue items merged", "added", added)
	}
	return added
}

// Enqueue ставит операцию в очередь и всегда возвращает id элемента.
// Онлайн элемент пишется в удаленную таблицу очереди, иначе - в локальное хранилище.
// Воспроизведение при этом не запускается.
func (q *Queue) Enqueue(ctx context.Context, action Action, target string, payload gateway.Row, opts ...Option) string {
	item := &Item{
		ID:        q.newID(),
		Action:    action,
		Target:    target,
		Payload:   payload,
		CreatedAt: q.now().UTC(),
	}
	for _, opt := range opts {
		opt(item)
	}

	if err := action.Validate(); err != nil {
		q.log.Error("refusing to enqueue", "item_id", item.ID, "error", err)
		return item.ID
	}

	q.mu.Lock()
	q.pending = append(q.pending, item)
	q.mu.Unlock()

	if q.IsOnline() {
		row, err := gateway.Encode(item)
		if err == nil {
			err = q.remote.Insert(ctx, gateway.TableOfflineQueue, row)
		}
		if err == nil {
			q.log.Debug("item enqueued remotely", "item_id", item.ID, "action", action, "target", target)
			return item.ID
		}
		q.log.Warn("remote enqueue failed, falling back to local store", "item_id", item.ID, "error", err)
	}

	if err := q.local.Save(ctx, item); err != nil {
		q.log.Error("failed to persist queue item locally", "item_id", item.ID, "error", err)
	} else {
		q.log.Debug("item enqueued locally", "item_id", item.ID, "action", action, "target", target)
	}
	return item.ID
}

// Replay воспроизводит элементы в порядке постановки. Ошибка одного элемента
// не прерывает проход: элемент остается в очереди до следующего запуска.
func (q *Queue) Replay(ctx context.Context) (*ReplayResult, error) {
	if !q.replaying.CompareAndSwap(false, true) {
		return nil, ErrReplayInProgress
	}
	defer q.replaying.Store(false)

	start := q.now()
	q.mu.Lock()
	batch := append([]*Item(nil), q.pending...)
	q.mu.Unlock()

	result := &ReplayResult{}
	q.log.Info("replay started", "items", len(batch))

	for _, it := range batch {
		if ctx.Err() != nil {
			q.log.Warn("replay interrupted", "error", ctx.Err())
			break
		}
		result.Attempted++

		if err := q.dispatch(ctx, it); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{
				ItemID: it.ID,
				Action: it.Action,
				Target: it.Target,
				Error:  err.Error(),
			})
			if q.recordFailure(ctx, it, err) {
				result.DeadLettered++
			}
			continue
		}

		q.markSynced(ctx, it)
		result.Synced++
	}

	result.Duration = q.now().Sub(start)
	q.log.Info("replay finished",
		"attempted", result.Attempted,
		"synced", result.Synced,
		"failed", result.Failed,
		"dead_lettered", result.DeadLettered,
		"duration", result.Duration,
	)
	return result, nil
}

func (q *Queue) dispatch(ctx context.Context, it *Item) error {
	switch it.Action {
	case ActionInsert:
		if len(it.ConflictKey) > 0 {
			return q.remote.Upsert(ctx, it.Target, []gateway.Row{it.Payload}, it.ConflictKey...)
		}
		return q.remote.Insert(ctx, it.Target, it.Payload)
	case ActionUpdate:
		return q.remote.Update(ctx, it.Target, it.Payload, it.Match)
	case ActionDelete:
		return q.remote.Delete(ctx, it.Target, it.Match)
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, it.Action)
}

func (q *Queue) markSynced(ctx context.Context, it *Item) {
	q.mu.Lock()
	it.Synced = true
	q.synced[it.ID] = true
	q.removePending(it.ID)
	q.mu.Unlock()

	if err := q.remote.Update(ctx, gateway.TableOfflineQueue,
		gateway.Row{"synced": true}, gateway.Where(gateway.Eq("id", it.ID))); err != nil {
		q.log.Warn("failed to mark item synced remotely", "item_id", it.ID, "error", err)
	}
	if err := q.local.MarkSynced(ctx, it.ID); err != nil {
		q.log.Warn("failed to mark item synced locally", "item_id", it.ID, "error", err)
	}
}

// recordFailure сохраняет попытку и сообщает, ушел ли элемент в dead-letter.
func (q *Queue) recordFailure(ctx context.Context, it *Item, cause error) bool {
	q.mu.Lock()
	it.Attempts++
	it.LastError = cause.Error()
	dead := q.config.MaxAttempts > 0 && it.Attempts >= q.config.MaxAttempts
	if dead {
		it.DeadLetter = true
		q.removePending(it.ID)
		q.dead = append(q.dead, it)
	}
	snapshot := *it
	q.mu.Unlock()

	if dead {
		q.log.Error("queue item dead-lettered",
			"item_id", it.ID, "target", it.Target, "attempts", snapshot.Attempts, "error", cause)
	} else {
		q.log.Warn("queue item replay failed",
			"item_id", it.ID, "target", it.Target, "attempts", snapshot.Attempts, "error", cause)
	}

	if err := q.local.Save(ctx, &snapshot); err != nil {
		q.log.Error("failed to persist replay failure", "item_id", it.ID, "error", err)
	}
	return dead
}

// removePending вызывается под q.mu.
func (q *Queue) removePending(id string) {
	for i, p := range q.pending {
		if p.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// ObserveConnectivity подписывает очередь на переходы связи. При каждом переходе
// в online очередь дополняется элементами удаленной таблицы и, если она не пуста,
// воспроизводится, когда проход еще не идет.
func (q *Queue) ObserveConnectivity(ctx context.Context, monitor *connectivity.Monitor) func() {
	q.mu.Lock()
	q.monitor = monitor
	q.mu.Unlock()

	return monitor.Subscribe(func(online bool) {
		if !online {
			q.log.Info("connectivity lost, queueing writes")
			return
		}
		if q.replaying.Load() {
			return
		}
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			// элементы, записанные прошлым процессом только в удаленную таблицу
			q.mergeRemote(ctx)
			if q.Len() == 0 {
				return
			}
			if _, err := q.Replay(ctx); err != nil {
				q.log.Debug("automatic replay skipped", "error", err)
			}
		}()
	})
}

// IsOnline возвращает состояние связи; без монитора очередь считает себя онлайн.
func (q *Queue) IsOnline() bool {
	q.mu.Lock()
	m := q.monitor
	q.mu.Unlock()
	if m == nil {
		return true
	}
	return m.Online()
}

// IsReplaying сообщает, идет ли воспроизведение.
func (q *Queue) IsReplaying() bool {
	return q.replaying.Load()
}

// Wait дожидается автоматически запущенных проходов.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Len - количество ожидающих элементов.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Pending возвращает копии ожидающих элементов в порядке постановки.
func (q *Queue) Pending() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.pending))
	for i, it := range q.pending {
		out[i] = *it
	}
	return out
}

// DeadLetters возвращает элементы, исчерпавшие попытки.
func (q *Queue) DeadLetters() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.dead))
	for i, it := range q.dead {
		out[i] = *it
	}
	return out
}
