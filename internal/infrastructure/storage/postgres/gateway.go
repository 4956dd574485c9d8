package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/gateway"
)

// DB - часть pgxpool.Pool, которой пользуется шлюз.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Ping(ctx context.Context) error
}

// Gateway - табличный шлюз поверх PostgreSQL. Имена таблиц сверяются со списком
// gateway.Tables, имена колонок экранируются.
type Gateway struct {
	db  DB
	log *slog.Logger
	hub *gateway.Hub
}

var (
	_ gateway.Gateway    = (*Gateway)(nil)
	_ gateway.Subscriber = (*Gateway)(nil)
	_ gateway.Pinger     = (*Gateway)(nil)
)

func NewGateway(db DB, log *slog.Logger) *Gateway {
	return &Gateway{
		db:  db,
		log: log.With("component", "pg_gateway"),
		hub: gateway.NewHub(),
	}
}

func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.Ping(ctx)
}

func checkTable(table string) error {
	if !gateway.KnownTable(table) {
		return fmt.Errorf("%w: %s", gateway.ErrUnknownTable, table)
	}
	return nil
}

func (g *Gateway) Select(ctx context.Context, table string, filter gateway.Filter) ([]gateway.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	st, err := buildSelect(table, filter)
	if err != nil {
		return nil, err
	}

	rows, err := g.db.Query(ctx, st.sql, st.args...)
	if err != nil {
		g.log.Error("select failed", "table", table, "error", err)
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []gateway.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make(gateway.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = outbound(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return out, nil
}

func (g *Gateway) Insert(ctx context.Context, table string, rows ...gateway.Row) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	statements := make([]statement, 0, len(rows))
	for _, row := range rows {
		st, err := buildInsert(table, row)
		if err != nil {
			return err
		}
		statements = append(statements, st)
	}
	if err := g.exec(ctx, statements); err != nil {
		g.log.Error("insert failed", "table", table, "rows", len(rows), "error", err)
		return fmt.Errorf("insert %s: %w", table, err)
	}

	g.hub.Publish(table, rows...)
	return nil
}

func (g *Gateway) Update(ctx context.Context, table string, patch gateway.Row, filter gateway.Filter) error {
	if err := checkTable(table); err != nil {
		return err
	}
	st, err := buildUpdate(table, patch, filter)
	if err != nil {
		return err
	}
	if _, err := g.db.Exec(ctx, st.sql, st.args...); err != nil {
		g.log.Error("update failed", "table", table, "error", err)
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

func (g *Gateway) Upsert(ctx context.Context, table string, rows []gateway.Row, conflictKey ...string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	statements := make([]statement, 0, len(rows))
	for _, row := range rows {
		st, err := buildUpsert(table, row, conflictKey)
		if err != nil {
			return err
		}
		statements = append(statements, st)
	}
	if err := g.exec(ctx, statements); err != nil {
		g.log.Error("upsert failed", "table", table, "rows", len(rows), "error", err)
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

func (g *Gateway) Delete(ctx context.Context, table string, filter gateway.Filter) error {
	if err := checkTable(table); err != nil {
		return err
	}
	st, err := buildDelete(table, filter)
	if err != nil {
		return err
	}
	if _, err := g.db.Exec(ctx, st.sql, st.args...); err != nil {
		g.log.Error("delete failed", "table", table, "error", err)
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func (g *Gateway) Subscribe(table string, filter gateway.Filter, onInsert func(gateway.Row)) func() {
	return g.hub.Subscribe(table, filter, onInsert)
}

// exec выполняет одну команду напрямую, несколько - одним пакетом.
func (g *Gateway) exec(ctx context.Context, statements []statement) error {
	if len(statements) == 1 {
		_, err := g.db.Exec(ctx, statements[0].sql, statements[0].args...)
		return err
	}

	batch := &pgx.Batch{}
	for _, st := range statements {
		batch.Queue(st.sql, st.args...)
	}
	results := g.db.SendBatch(ctx, batch)

	var errs []error
	for range statements {
		if _, err := results.Exec(); err != nil {
			errs = append(errs, err)
			break
		}
	}
	if err := results.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// outbound приводит значения драйвера к виду, пригодному для JSON.
func outbound(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", x[0:4], x[4:6], x[6:8], x[8:10], x[10:16])
	case time.Time:
		return x.UTC()
	}
	return v
}
