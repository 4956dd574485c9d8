// Package activity - журнал действий техников.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/gateway"
)

// Действия, которые пишет ядро.
const (
	ActionChecklistStarted   = "checklist.started"
	ActionChecklistResumed   = "checklist.resumed"
	ActionChecklistCompleted = "checklist.completed"
	ActionVisitStarted       = "emergency.visit_started"
	ActionReportSubmitted    = "emergency.report_submitted"
	ActionVisitCompleted     = "emergency.completed"
)

// Entry - запись журнала.
type Entry struct {
	ID        string         `json:"id" validate:"required"`
	ActorID   string         `json:"actor_id" validate:"required"`
	Action    string         `json:"action" validate:"required"`
	Entity    string         `json:"entity" validate:"required"`
	EntityID  string         `json:"entity_id"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at" validate:"required"`
}

// Recorder принимает записи журнала. Ошибки записи не доходят до вызывающего.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// GatewayRecorder пишет журнал в таблицу activity_log.
type GatewayRecorder struct {
	gw  gateway.Gateway
	log *slog.Logger
	now func() time.Time
}

func NewGatewayRecorder(gw gateway.Gateway, log *slog.Logger) *GatewayRecorder {
	return &GatewayRecorder{
		gw:  gw,
		log: log.With("component", "activity"),
		now: time.Now,
	}
}

func (r *GatewayRecorder) Record(ctx context.Context, e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}

	row, err := gateway.Encode(e)
	if err == nil {
		err = r.gw.Insert(ctx, gateway.TableActivityLog, row)
	}
	if err != nil {
		r.log.Warn("failed to record activity", "action", e.Action, "entity_id", e.EntityID, "error", err)
	}
}

// Nop отбрасывает записи.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
