// Package sqlite - локальное хранилище очереди на устройстве.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"liftkeeper/internal/domain/gateway"
	"liftkeeper/internal/domain/queue"
)

// createdAtLayout - RFC 3339 с фиксированной дробной частью, чтобы строки
// сравнивались в ORDER BY так же, как моменты времени.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// QueueStore хранит элементы очереди в файле SQLite и переживает перезапуск процесса.
type QueueStore struct {
	db *sql.DB
}

var _ queue.LocalStore = (*QueueStore)(nil)

func NewQueueStore(path string) (*QueueStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}
	// один писатель, иначе WAL ловит SQLITE_BUSY на параллельных Save
	db.SetMaxOpenConns(1)

	store := &QueueStore{db: db}
	if err := store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init queue tables: %w", err)
	}
	return store, nil
}

func (s *QueueStore) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS offline_queue (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			action TEXT NOT NULL,
			target_collection TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}',
			match TEXT NOT NULL DEFAULT '{}',
			conflict_key TEXT NOT NULL DEFAULT '[]',
			synced BOOLEAN NOT NULL DEFAULT 0,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			dead_letter BOOLEAN NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_queue_pending ON offline_queue(synced, dead_letter, created_at);
	`)
	return err
}

func (s *QueueStore) Save(ctx context.Context, item *queue.Item) error {
	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	match, err := json.Marshal(item.Match)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	conflictKey, err := json.Marshal(item.ConflictKey)
	if err != nil {
		return fmt.Errorf("marshal conflict key: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO offline_queue (id, action, target_collection, payload, match, conflict_key,
		                           synced, attempts, last_error, dead_letter, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			synced = excluded.synced,
			attempts = excluded.attempts,
			last_error = excluded.last_error,
			dead_letter = excluded.dead_letter
	`, item.ID, string(item.Action), item.Target, string(payload), string(match), string(conflictKey),
		item.Synced, item.Attempts, item.LastError, item.DeadLetter,
		item.CreatedAt.UTC().Format(createdAtLayout))
	if err != nil {
		return fmt.Errorf("save queue item %s: %w", item.ID, err)
	}
	return nil
}

func (s *QueueStore) Pending(ctx context.Context) ([]*queue.Item, error) {
	return s.list(ctx, "WHERE synced = 0 AND dead_letter = 0")
}

func (s *QueueStore) DeadLetters(ctx context.Context) ([]*queue.Item, error) {
	return s.list(ctx, "WHERE synced = 0 AND dead_letter = 1")
}

func (s *QueueStore) MarkSynced(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE offline_queue SET synced = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark queue item %s synced: %w", id, err)
	}
	return nil
}

// Purge удаляет синхронизированные элементы, созданные раньше before.
func (s *QueueStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM offline_queue WHERE synced = 1 AND created_at < ?",
		before.UTC().Format(createdAtLayout))
	if err != nil {
		return 0, fmt.Errorf("purge queue: %w", err)
	}
	return res.RowsAffected()
}

func (s *QueueStore) list(ctx context.Context, where string) ([]*queue.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, target_collection, payload, match, conflict_key,
		       synced, attempts, last_error, dead_letter, created_at
		FROM offline_queue `+where+`
		ORDER BY created_at, seq`)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}
	defer rows.Close()

	var items []*queue.Item
	for rows.Next() {
		var (
			it                          queue.Item
			action                      string
			payload, match, conflictKey string
			createdAt                   string
		)
		if err := rows.Scan(&it.ID, &action, &it.Target, &payload, &match, &conflictKey,
			&it.Synced, &it.Attempts, &it.LastError, &it.DeadLetter, &createdAt); err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		it.Action = queue.Action(action)

		if err := json.Unmarshal([]byte(payload), &it.Payload); err != nil {
			return nil, fmt.Errorf("parse payload of %s: %w", it.ID, err)
		}
		var filter gateway.Filter
		if err := json.Unmarshal([]byte(match), &filter); err != nil {
			return nil, fmt.Errorf("parse match of %s: %w", it.ID, err)
		}
		it.Match = filter
		if err := json.Unmarshal([]byte(conflictKey), &it.ConflictKey); err != nil {
			return nil, fmt.Errorf("parse conflict key of %s: %w", it.ID, err)
		}
		if it.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", it.ID, err)
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (s *QueueStore) Close() error {
	return s.db.Close()
}
