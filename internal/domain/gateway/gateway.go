// Package gateway описывает удаленное хранилище, через которое ядро читает и пишет строки.
package gateway

import (
	"context"
)

// Имена таблиц, с которыми работает ядро.
const (
	TableClients            = "clients"
	TableElevators          = "elevators"
	TableChecklistQuestions = "checklist_questions"
	TableChecklistSessions  = "checklist_sessions"
	TableChecklistAnswers   = "checklist_answers"
	TableEmergencyVisits    = "emergency_visits"
	TableEmergencyReports   = "emergency_reports"
	TableSupportRequests    = "support_requests"
	TableOfflineQueue       = "offline_queue"
	TableActivityLog        = "activity_log"
)

// Tables перечисляет все таблицы, доступные через шлюз.
var Tables = []string{
	TableClients,
	TableElevators,
	TableChecklistQuestions,
	TableChecklistSessions,
	TableChecklistAnswers,
	TableEmergencyVisits,
	TableEmergencyReports,
	TableSupportRequests,
	TableOfflineQueue,
	TableActivityLog,
}

// KnownTable проверяет, что таблица входит в список разрешенных.
func KnownTable(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}

// Row - строка таблицы в виде "колонка -> значение".
type Row map[string]any

// Gateway - табличный CRUD удаленного хранилища.
type Gateway interface {
	Select(ctx context.Context, table string, filter Filter) ([]Row, error)
	Insert(ctx context.Context, table string, rows ...Row) error
	Update(ctx context.Context, table string, patch Row, filter Filter) error
	// Upsert вставляет строки, а при конфликте по conflictKey обновляет их.
	// Если строка содержит updated_at, более старая запись не затирает более новую.
	Upsert(ctx context.Context, table string, rows []Row, conflictKey ...string) error
	Delete(ctx context.Context, table string, filter Filter) error
}

// ObjectStorage - файловое хранилище с публичными ссылками.
type ObjectStorage interface {
	Upload(ctx context.Context, bucket, path, contentType string, data []byte) (string, error)
	PublicURL(bucket, path string) string
}

// Subscriber уведомляет о новых строках.
type Subscriber interface {
	Subscribe(table string, filter Filter, onInsert func(Row)) (unsubscribe func())
}

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}
