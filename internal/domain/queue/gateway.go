package queue

import (
	"context"

	"liftkeeper/internal/domain/gateway"
)

// Gateway пропускает чтение к удаленному шлюзу, а записи без связи
// отправляет в очередь. Upsert без связи ставится как Insert с ключом конфликта.
type Gateway struct {
	next  gateway.Gateway
	queue *Queue
}

var _ gateway.Gateway = (*Gateway)(nil)

func NewGateway(next gateway.Gateway, queue *Queue) *Gateway {
	return &Gateway{next: next, queue: queue}
}

func (g *Gateway) Select(ctx context.Context, table string, filter gateway.Filter) ([]gateway.Row, error) {
	return g.next.Select(ctx, table, filter)
}

func (g *Gateway) Insert(ctx context.Context, table string, rows ...gateway.Row) error {
	if g.queue.IsOnline() {
		return g.next.Insert(ctx, table, rows...)
	}
	for _, row := range rows {
		g.queue.Enqueue(ctx, ActionInsert, table, row)
	}
	return nil
}

func (g *Gateway) Update(ctx context.Context, table string, patch gateway.Row, filter gateway.Filter) error {
	if g.queue.IsOnline() {
		return g.next.Update(ctx, table, patch, filter)
	}
	g.queue.Enqueue(ctx, ActionUpdate, table, patch, WithMatch(filter))
	return nil
}

func (g *Gateway) Upsert(ctx context.Context, table string, rows []gateway.Row, conflictKey ...string) error {
	if g.queue.IsOnline() {
		return g.next.Upsert(ctx, table, rows, conflictKey...)
	}
	for _, row := range rows {
		g.queue.Enqueue(ctx, ActionInsert, table, row, WithConflictKey(conflictKey...))
	}
	return nil
}

func (g *Gateway) Delete(ctx context.Context, table string, filter gateway.Filter) error {
	if g.queue.IsOnline() {
		return g.next.Delete(ctx, table, filter)
	}
	g.queue.Enqueue(ctx, ActionDelete, table, nil, WithMatch(filter))
	return nil
}
