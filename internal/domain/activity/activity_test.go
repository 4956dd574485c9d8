package activity

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/gateway"
	"liftkeeper/internal/infrastructure/storage/memory"
)

func TestGatewayRecorder_Record(t *testing.T) {
	gw := memory.NewGateway()
	r := NewGatewayRecorder(gw, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.now = func() time.Time { return time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC) }

	r.Record(context.Background(), Entry{
		ActorID:  "tech-1",
		Action:   ActionChecklistStarted,
		Entity:   gateway.TableChecklistSessions,
		EntityID: "s1",
		Details:  map[string]any{"period": "2026-04"},
	})

	rows := gw.Rows(gateway.TableActivityLog)
	require.Len(t, rows, 1)
	assert.NotEmpty(t, rows[0]["id"])
	assert.Equal(t, "checklist.started", rows[0]["action"])
	assert.Equal(t, "2026-04-02T09:00:00Z", rows[0]["created_at"])
	assert.Equal(t, map[string]any{"period": "2026-04"}, rows[0]["details"])
}

func TestGatewayRecorder_SwallowsErrors(t *testing.T) {
	gw := memory.NewGateway()
	gw.Fail(memory.OpInsert, errors.New("disk full"))
	r := NewGatewayRecorder(gw, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.NotPanics(t, func() {
		r.Record(context.Background(), Entry{ActorID: "tech-1", Action: ActionVisitStarted, Entity: gateway.TableEmergencyVisits})
	})
	assert.Empty(t, gw.Rows(gateway.TableActivityLog))
}
