package table

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/gateway"
	"liftkeeper/internal/infrastructure/storage/memory"
)

func setup(t *testing.T) (humatest.TestAPI, *memory.Gateway) {
	t.Helper()
	_, api := humatest.New(t)
	store := memory.NewGateway()
	NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)), huma.Middlewares{}).SetupRoutes(api)
	return api, store
}

func filterQuery(t *testing.T, f gateway.Filter) string {
	t.Helper()
	data, err := json.Marshal(f)
	require.NoError(t, err)
	return "?filter=" + url.QueryEscape(string(data))
}

func TestHandler_InsertAndSelect(t *testing.T) {
	api, store := setup(t)

	resp := api.Post("/api/v1/tables/clients", map[string]any{
		"rows": []map[string]any{
			{"id": "c1", "name": "Torre Norte"},
			{"id": "c2", "name": "Torre Sur"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Len(t, store.Rows(gateway.TableClients), 2)

	resp = api.Get("/api/v1/tables/clients" + filterQuery(t, gateway.Where(gateway.Eq("id", "c2"))))
	require.Equal(t, http.StatusOK, resp.Code)

	var rows []gateway.Row
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Torre Sur", rows[0]["name"])
}

func TestHandler_SelectEmptyTableReturnsArray(t *testing.T) {
	api, _ := setup(t)

	resp := api.Get("/api/v1/tables/elevators")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[]`, resp.Body.String())
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	api, store := setup(t)
	store.Seed(gateway.TableEmergencyVisits, gateway.Row{"id": "v1", "current_elevator_index": 0})

	resp := api.Patch("/api/v1/tables/emergency_visits", map[string]any{
		"patch":  map[string]any{"current_elevator_index": 1},
		"filter": gateway.Where(gateway.Eq("id", "v1")),
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.EqualValues(t, 1, store.Rows(gateway.TableEmergencyVisits)[0]["current_elevator_index"])

	resp = api.Delete("/api/v1/tables/emergency_visits" + filterQuery(t, gateway.Where(gateway.Eq("id", "v1"))))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Empty(t, store.Rows(gateway.TableEmergencyVisits))
}

func TestHandler_Upsert(t *testing.T) {
	api, store := setup(t)

	body := map[string]any{
		"rows": []map[string]any{
			{"session_id": "s1", "question_id": 1, "status": "rejected", "updated_at": "2026-03-01T10:00:00Z"},
		},
		"conflict_key": []string{"session_id", "question_id"},
	}
	require.Equal(t, http.StatusOK, api.Put("/api/v1/tables/checklist_answers", body).Code)

	body["rows"] = []map[string]any{
		{"session_id": "s1", "question_id": 1, "status": "approved", "updated_at": "2026-03-01T11:00:00Z"},
	}
	require.Equal(t, http.StatusOK, api.Put("/api/v1/tables/checklist_answers", body).Code)

	rows := store.Rows(gateway.TableChecklistAnswers)
	require.Len(t, rows, 1)
	assert.Equal(t, "approved", rows[0]["status"])
}

func TestHandler_Errors(t *testing.T) {
	api, store := setup(t)

	resp := api.Get("/api/v1/tables/pg_shadow")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Get("/api/v1/tables/clients?filter=" + url.QueryEscape("{not json"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = api.Delete("/api/v1/tables/clients" + filterQuery(t, gateway.All()))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	store.Fail(memory.OpInsert, errors.New("disk full"))
	resp = api.Post("/api/v1/tables/clients", map[string]any{"rows": []map[string]any{{"id": "c1"}}})
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotContains(t, resp.Body.String(), "disk full")
}
