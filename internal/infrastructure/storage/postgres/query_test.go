package postgres

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/gateway"
)

func TestBuildSelect(t *testing.T) {
	st, err := buildSelect("checklist_sessions", gateway.Where(
		gateway.Eq("technician_id", "t1"),
		gateway.Gte("month", float64(3)),
		gateway.Eq("completed_at", nil),
	).OrderDesc("created_at").OrderAsc("id").WithLimit(10))
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "checklist_sessions" WHERE "technician_id" = $1 AND "month" >= $2 AND "completed_at" IS NULL ORDER BY "created_at" DESC, "id" ASC LIMIT 10`, st.sql)
	assert.Equal(t, []any{"t1", int64(3)}, st.args)
}

func TestBuildSelect_RejectsBadColumns(t *testing.T) {
	_, err := buildSelect("clients", gateway.Where(gateway.Eq(`id" OR 1=1 --`, 1)))
	assert.ErrorIs(t, err, gateway.ErrInvalidFilter)
}

func TestBuildInsert(t *testing.T) {
	st, err := buildInsert("emergency_reports", gateway.Row{
		"id":            "r1",
		"before_photos": []any{"u1", "u2"},
		"requires_parts": true,
	})
	require.NoError(t, err)

	assert.Equal(t, `INSERT INTO "emergency_reports" ("before_photos", "id", "requires_parts") VALUES ($1, $2, $3)`, st.sql)
	assert.Equal(t, []any{`["u1","u2"]`, "r1", true}, st.args)

	_, err = buildInsert("clients", gateway.Row{})
	assert.ErrorIs(t, err, gateway.ErrInvalidRow)

	_, err = buildInsert("clients", gateway.Row{"Name": "x"})
	assert.ErrorIs(t, err, gateway.ErrInvalidRow)
}

func TestBuildUpsert(t *testing.T) {
	st, err := buildUpsert("checklist_answers", gateway.Row{
		"session_id":  "s1",
		"question_id": float64(4),
		"status":      "approved",
		"updated_at":  "2026-03-10T10:00:00Z",
	}, []string{"session_id", "question_id"})
	require.NoError(t, err)

	assert.Equal(t, `INSERT INTO "checklist_answers" ("question_id", "session_id", "status", "updated_at") VALUES ($1, $2, $3, $4)`+
		` ON CONFLICT ("session_id", "question_id") DO UPDATE SET "status" = EXCLUDED."status", "updated_at" = EXCLUDED."updated_at"`+
		` WHERE "checklist_answers"."updated_at" IS NULL OR "checklist_answers"."updated_at" <= EXCLUDED."updated_at"`, st.sql)
	assert.Equal(t, int64(4), st.args[0])
}

func TestBuildUpsert_KeyOnlyRowDoesNothing(t *testing.T) {
	st, err := buildUpsert("clients", gateway.Row{"id": "c1"}, []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "clients" ("id") VALUES ($1) ON CONFLICT ("id") DO NOTHING`, st.sql)

	_, err = buildUpsert("clients", gateway.Row{"id": "c1"}, nil)
	assert.ErrorIs(t, err, gateway.ErrInvalidRow)

	_, err = buildUpsert("clients", gateway.Row{"id": "c1"}, []string{"name"})
	assert.ErrorIs(t, err, gateway.ErrInvalidRow)
}

func TestBuildUpdateAndDelete(t *testing.T) {
	st, err := buildUpdate("offline_queue", gateway.Row{"synced": true}, gateway.Where(gateway.Eq("id", "q1")))
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "offline_queue" SET "synced" = $1 WHERE "id" = $2`, st.sql)
	assert.Equal(t, []any{true, "q1"}, st.args)

	st, err = buildDelete("clients", gateway.Where(gateway.Neq("name", nil)))
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "clients" WHERE "name" IS NOT NULL`, st.sql)

	_, err = buildUpdate("clients", gateway.Row{"name": "x"}, gateway.All())
	assert.ErrorIs(t, err, gateway.ErrInvalidFilter)
	_, err = buildDelete("clients", gateway.All())
	assert.ErrorIs(t, err, gateway.ErrInvalidFilter)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, int64(7), normalize(float64(7)))
	assert.Equal(t, 7.5, normalize(7.5))
	assert.Equal(t, `{"a":1}`, normalize(map[string]any{"a": 1}))
	assert.Equal(t, "text", normalize("text"))
	assert.Nil(t, normalize(nil))
}

type MockDB struct {
	mock.Mock
}

func (m *MockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	called := m.Called(ctx, sql, args)
	return pgconn.NewCommandTag(called.String(0)), called.Error(1)
}

func (m *MockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	called := m.Called(ctx, sql, args)
	return nil, called.Error(1)
}

func (m *MockDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	m.Called(ctx, b)
	return nil
}

func (m *MockDB) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func testGateway(db DB) *Gateway {
	return NewGateway(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGateway_InsertPublishesToSubscribers(t *testing.T) {
	db := new(MockDB)
	db.On("Exec", mock.Anything, `INSERT INTO "support_requests" ("id", "status") VALUES ($1, $2)`, []any{"s1", "pending"}).
		Return("INSERT 0 1", nil).Once()

	g := testGateway(db)
	var got []gateway.Row
	g.Subscribe(gateway.TableSupportRequests, gateway.All(), func(r gateway.Row) { got = append(got, r) })

	require.NoError(t, g.Insert(context.Background(), gateway.TableSupportRequests, gateway.Row{"id": "s1", "status": "pending"}))
	require.Len(t, got, 1)
	db.AssertExpectations(t)
}

func TestGateway_ErrorsAreWrapped(t *testing.T) {
	db := new(MockDB)
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("connection refused"))
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	g := testGateway(db)
	ctx := context.Background()

	err := g.Update(ctx, gateway.TableClients, gateway.Row{"name": "x"}, gateway.Where(gateway.Eq("id", "c1")))
	assert.ErrorContains(t, err, "update clients")

	_, err = g.Select(ctx, gateway.TableClients, gateway.All())
	assert.ErrorContains(t, err, "select clients")
}

func TestGateway_RejectsUnknownTable(t *testing.T) {
	g := testGateway(new(MockDB))
	ctx := context.Background()

	_, err := g.Select(ctx, "pg_user", gateway.All())
	assert.ErrorIs(t, err, gateway.ErrUnknownTable)
	assert.ErrorIs(t, g.Insert(ctx, "pg_user", gateway.Row{"a": 1}), gateway.ErrUnknownTable)
	assert.ErrorIs(t, g.Delete(ctx, "pg_user", gateway.Where(gateway.Eq("a", 1))), gateway.ErrUnknownTable)
}
