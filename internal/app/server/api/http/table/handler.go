// Package table - обобщенный CRUD по таблицам шлюза.
package table

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/gateway"
)

// Store - то, что обработчику нужно от хранилища строк
type Store interface {
	gateway.Gateway
	gateway.Subscriber
}

type Handler struct {
	store      Store
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(store Store, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		store:      store,
		log:        log.With("component", "table_handler"),
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.selectOp(), h.selectRows)
	huma.Register(api, h.insertOp(), h.insert)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.upsertOp(), h.upsert)
	huma.Register(api, h.deleteOp(), h.delete)
	sse.Register(api, h.eventsOp(), map[string]any{
		"insert": gateway.Row{},
	}, h.events)
}

func (h *Handler) selectRows(ctx context.Context, input *selectInput) (*selectOutput, error) {
	filter, err := parseFilter(input.Filter)
	if err != nil {
		return nil, err
	}
	rows, err := h.store.Select(ctx, input.Table, filter)
	if err != nil {
		return nil, h.mapError(err)
	}
	if rows == nil {
		rows = []gateway.Row{}
	}
	return &selectOutput{Body: rows}, nil
}

func (h *Handler) insert(ctx context.Context, input *insertInput) (*output, error) {
	if err := h.store.Insert(ctx, input.Table, input.Body.Rows...); err != nil {
		return nil, h.mapError(err)
	}
	return &output{Body: response{Status: "Ok", Affected: len(input.Body.Rows)}}, nil
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*output, error) {
	if err := h.store.Update(ctx, input.Table, input.Body.Patch, input.Body.Filter); err != nil {
		return nil, h.mapError(err)
	}
	return &output{Body: response{Status: "Ok"}}, nil
}

func (h *Handler) upsert(ctx context.Context, input *upsertInput) (*output, error) {
	if err := h.store.Upsert(ctx, input.Table, input.Body.Rows, input.Body.ConflictKey...); err != nil {
		return nil, h.mapError(err)
	}
	return &output{Body: response{Status: "Ok", Affected: len(input.Body.Rows)}}, nil
}

func (h *Handler) delete(ctx context.Context, input *deleteInput) (*output, error) {
	filter, err := parseFilter(input.Filter)
	if err != nil {
		return nil, err
	}
	if err := h.store.Delete(ctx, input.Table, filter); err != nil {
		return nil, h.mapError(err)
	}
	return &output{Body: response{Status: "Ok"}}, nil
}

// events держит поток, пока клиент не отключится.
func (h *Handler) events(ctx context.Context, input *eventsInput, send sse.Sender) {
	filter, err := parseFilter(input.Filter)
	if err != nil || !gateway.KnownTable(input.Table) {
		h.log.Warn("rejected event stream", "table", input.Table, "error", err)
		return
	}

	rows := make(chan gateway.Row, 16)
	unsubscribe := h.store.Subscribe(input.Table, filter, func(row gateway.Row) {
		select {
		case rows <- row:
		default:
			h.log.Warn("event stream is lagging, dropping row", "table", input.Table)
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case row := <-rows:
			if err := send.Data(row); err != nil {
				h.log.Debug("event stream closed", "table", input.Table, "error", err)
				return
			}
		}
	}
}

func parseFilter(raw string) (gateway.Filter, error) {
	var f gateway.Filter
	if raw == "" {
		return f, nil
	}
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return f, huma.Error422UnprocessableEntity("filter is not valid JSON", err)
	}
	return f, nil
}

func (h *Handler) mapError(err error) error {
	switch {
	case errors.Is(err, gateway.ErrUnknownTable):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, gateway.ErrInvalidFilter), errors.Is(err, gateway.ErrInvalidRow):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, gateway.ErrUnavailable):
		return huma.Error503ServiceUnavailable(err.Error())
	}
	h.log.Error("table operation failed", "error", err)
	return huma.Error500InternalServerError("storage error")
}
