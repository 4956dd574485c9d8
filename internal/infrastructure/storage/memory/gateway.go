// Package memory - реализации шлюза и локальной очереди в памяти процесса.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"liftkeeper/internal/domain/gateway"
)

// Имена операций для Fail.
const (
	OpSelect = "select"
	OpInsert = "insert"
	OpUpdate = "update"
	OpUpsert = "upsert"
	OpDelete = "delete"
	OpUpload = "upload"
	OpPing   = "ping"
)

// Call - записанный вызов шлюза.
type Call struct {
	Op    string
	Table string
	Rows  []gateway.Row
}

// Gateway хранит таблицы и файлы в памяти. Безопасен для конкурентного использования.
type Gateway struct {
	mu       sync.RWMutex
	tables   map[string][]gateway.Row
	files    map[string][]byte
	failures map[string]error
	calls    []Call
	hub      *gateway.Hub
	baseURL  string
}

var (
	_ gateway.Gateway       = (*Gateway)(nil)
	_ gateway.ObjectStorage = (*Gateway)(nil)
	_ gateway.Subscriber    = (*Gateway)(nil)
	_ gateway.Pinger        = (*Gateway)(nil)
)

func NewGateway() *Gateway {
	return &Gateway{
		tables:   make(map[string][]gateway.Row),
		files:    make(map[string][]byte),
		failures: make(map[string]error),
		hub:      gateway.NewHub(),
		baseURL:  "memory://",
	}
}

// Fail заставляет все последующие вызовы op возвращать err до Recover.
func (g *Gateway) Fail(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[op] = err
}

// Recover снимает внедренные ошибки.
func (g *Gateway) Recover() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = make(map[string]error)
}

// Calls возвращает записанные мутирующие вызовы в порядке выполнения.
func (g *Gateway) Calls() []Call {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Call(nil), g.calls...)
}

// CallsTo возвращает вызовы, затронувшие таблицу.
func (g *Gateway) CallsTo(table string) []Call {
	var out []Call
	for _, c := range g.Calls() {
		if c.Table == table {
			out = append(out, c)
		}
	}
	return out
}

// Seed вставляет строки без записи вызова и без уведомления подписчиков.
func (g *Gateway) Seed(table string, rows ...gateway.Row) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range rows {
		g.tables[table] = append(g.tables[table], r.Clone())
	}
}

// Rows возвращает копии всех строк таблицы.
func (g *Gateway) Rows(table string) []gateway.Row {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]gateway.Row, 0, len(g.tables[table]))
	for _, r := range g.tables[table] {
		out = append(out, r.Clone())
	}
	return out
}

// File возвращает загруженный объект.
func (g *Gateway) File(bucket, path string) ([]byte, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	data, ok := g.files[bucket+"/"+path]
	return data, ok
}

func (g *Gateway) failure(op string) error {
	if err, ok := g.failures[op]; ok {
		return err
	}
	return nil
}

func (g *Gateway) check(table string) error {
	if !gateway.KnownTable(table) {
		return fmt.Errorf("%w: %s", gateway.ErrUnknownTable, table)
	}
	return nil
}

// requireConditions повторяет правило PostgreSQL-шлюза: Update и Delete без условий запрещены.
func requireConditions(filter gateway.Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	if len(filter.Conditions) == 0 {
		return fmt.Errorf("%w: no conditions", gateway.ErrInvalidFilter)
	}
	return nil
}

func (g *Gateway) Ping(_ context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.failure(OpPing)
}

func (g *Gateway) Select(_ context.Context, table string, filter gateway.Filter) ([]gateway.Row, error) {
	if err := g.check(table); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.failure(OpSelect); err != nil {
		return nil, err
	}

	var out []gateway.Row
	for _, r := range g.tables[table] {
		if filter.Matches(r) {
			out = append(out, r.Clone())
		}
	}

	if len(filter.OrderBy) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range filter.OrderBy {
				cmp, ok := gateway.Compare(out[i][o.Column], out[j][o.Column])
				if !ok || cmp == 0 {
					continue
				}
				if o.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (g *Gateway) Insert(_ context.Context, table string, rows ...gateway.Row) error {
	if err := g.check(table); err != nil {
		return err
	}

	g.mu.Lock()
	g.calls = append(g.calls, Call{Op: OpInsert, Table: table, Rows: cloneRows(rows)})
	if err := g.failure(OpInsert); err != nil {
		g.mu.Unlock()
		return err
	}
	for _, r := range rows {
		g.tables[table] = append(g.tables[table], r.Clone())
	}
	g.mu.Unlock()

	g.hub.Publish(table, rows...)
	return nil
}

func (g *Gateway) Update(_ context.Context, table string, patch gateway.Row, filter gateway.Filter) error {
	if err := g.check(table); err != nil {
		return err
	}
	if err := requireConditions(filter); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: OpUpdate, Table: table, Rows: []gateway.Row{patch.Clone()}})
	if err := g.failure(OpUpdate); err != nil {
		return err
	}

	for _, r := range g.tables[table] {
		if !filter.Matches(r) {
			continue
		}
		for k, v := range patch {
			r[k] = v
		}
	}
	return nil
}

func (g *Gateway) Upsert(_ context.Context, table string, rows []gateway.Row, conflictKey ...string) error {
	if err := g.check(table); err != nil {
		return err
	}
	if len(conflictKey) == 0 {
		return fmt.Errorf("%w: upsert needs a conflict key", gateway.ErrInvalidRow)
	}

	g.mu.Lock()
	g.calls = append(g.calls, Call{Op: OpUpsert, Table: table, Rows: cloneRows(rows)})
	if err := g.failure(OpUpsert); err != nil {
		g.mu.Unlock()
		return err
	}

	var inserted []gateway.Row
	for _, r := range rows {
		conds := make([]gateway.Condition, 0, len(conflictKey))
		for _, k := range conflictKey {
			conds = append(conds, gateway.Eq(k, r[k]))
		}
		match := gateway.Where(conds...)

		found := false
		for _, existing := range g.tables[table] {
			if !match.Matches(existing) {
				continue
			}
			found = true
			if newer(existing, r) {
				break
			}
			for k, v := range r {
				existing[k] = v
			}
			break
		}
		if !found {
			g.tables[table] = append(g.tables[table], r.Clone())
			inserted = append(inserted, r)
		}
	}
	g.mu.Unlock()

	g.hub.Publish(table, inserted...)
	return nil
}

func (g *Gateway) Delete(_ context.Context, table string, filter gateway.Filter) error {
	if err := g.check(table); err != nil {
		return err
	}
	if err := requireConditions(filter); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: OpDelete, Table: table})
	if err := g.failure(OpDelete); err != nil {
		return err
	}

	kept := g.tables[table][:0]
	for _, r := range g.tables[table] {
		if !filter.Matches(r) {
			kept = append(kept, r)
		}
	}
	g.tables[table] = kept
	return nil
}

func (g *Gateway) Subscribe(table string, filter gateway.Filter, onInsert func(gateway.Row)) func() {
	return g.hub.Subscribe(table, filter, onInsert)
}

func (g *Gateway) Upload(_ context.Context, bucket, path, _ string, data []byte) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: OpUpload, Table: bucket + "/" + path})
	if err := g.failure(OpUpload); err != nil {
		return "", err
	}
	g.files[bucket+"/"+path] = append([]byte(nil), data...)
	return g.baseURL + bucket + "/" + path, nil
}

func (g *Gateway) PublicURL(bucket, path string) string {
	return g.baseURL + bucket + "/" + path
}

// newer сообщает, что у существующей строки updated_at позже входящей.
func newer(existing, incoming gateway.Row) bool {
	cur, ok1 := existing["updated_at"]
	next, ok2 := incoming["updated_at"]
	if !ok1 || !ok2 {
		return false
	}
	cmp, ok := gateway.Compare(cur, next)
	return ok && cmp > 0
}

func cloneRows(rows []gateway.Row) []gateway.Row {
	out := make([]gateway.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
