package queue

import (
	"fmt"
	"time"

	"liftkeeper/internal/domain/gateway"
)

// Action - вид отложенной операции.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Validate проверяет, что действие поддерживается.
func (a Action) Validate() error {
	switch a {
	case ActionInsert, ActionUpdate, ActionDelete:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, a)
}

// Item - одна отложенная мутирующая операция.
type Item struct {
	ID          string         `json:"id" validate:"required"`
	Action      Action         `json:"action" validate:"required,oneof=insert update delete"`
	Target      string         `json:"target_collection" validate:"required"`
	Payload     gateway.Row    `json:"payload"`
	Match       gateway.Filter `json:"match"`
	ConflictKey []string       `json:"conflict_key,omitempty"`
	Synced      bool           `json:"synced"`
	Attempts    int            `json:"attempts"`
	LastError   string         `json:"last_error,omitempty"`
	DeadLetter  bool           `json:"dead_letter"`
	CreatedAt   time.Time      `json:"created_at" validate:"required"`
}

// Option дополняет ставку в очередь.
type Option func(*Item)

// WithMatch задает фильтр строк для Update и Delete.
func WithMatch(filter gateway.Filter) Option {
	return func(it *Item) {
		it.Match = filter
	}
}

// WithConflictKey превращает Insert в upsert по указанным колонкам при воспроизведении.
func WithConflictKey(columns ...string) Option {
	return func(it *Item) {
		it.ConflictKey = append([]string(nil), columns...)
	}
}

// ReplayResult - итог одного прохода воспроизведения.
type ReplayResult struct {
	Attempted    int           `json:"attempted"`
	Synced       int           `json:"synced"`
	Failed       int           `json:"failed"`
	DeadLettered int           `json:"dead_lettered"`
	Errors       []ItemError   `json:"errors,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// ItemError - ошибка воспроизведения конкретного элемента.
type ItemError struct {
	ItemID string `json:"item_id"`
	Action Action `json:"action"`
	Target string `json:"target"`
	Error  string `json:"error"`
}
