package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/app/server/api"
	"liftkeeper/internal/domain/gateway"
	"liftkeeper/internal/infrastructure/storage/filestore"
	"liftkeeper/internal/infrastructure/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer поднимает настоящий HTTP API поверх шлюза в памяти
func startServer(t *testing.T) (*httptest.Server, *memory.Gateway) {
	t.Helper()
	log := testLogger()
	store := memory.NewGateway()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	files, err := filestore.New(t.TempDir(), srv.URL+"/files", log)
	require.NoError(t, err)
	mux.Handle("/", api.New(store, files, []string{"*"}, log))
	return srv, store
}

func TestHTTPGateway_CRUD(t *testing.T) {
	srv, store := startServer(t)
	gw := NewHTTPGateway(srv.URL, time.Second, testLogger())
	ctx := context.Background()

	require.NoError(t, gw.Ping(ctx))

	require.NoError(t, gw.Insert(ctx, gateway.TableClients,
		gateway.Row{"id": "c1", "name": "Torre Norte"},
		gateway.Row{"id": "c2", "name": "Torre Sur"},
	))
	assert.Len(t, store.Rows(gateway.TableClients), 2)

	rows, err := gw.Select(ctx, gateway.TableClients, gateway.All().OrderDesc("name"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c2", rows[0]["id"])

	require.NoError(t, gw.Update(ctx, gateway.TableClients, gateway.Row{"name": "Torre Este"},
		gateway.Where(gateway.Eq("id", "c1"))))
	rows, err = gw.Select(ctx, gateway.TableClients, gateway.Where(gateway.Eq("id", "c1")))
	require.NoError(t, err)
	assert.Equal(t, "Torre Este", rows[0]["name"])

	require.NoError(t, gw.Upsert(ctx, gateway.TableChecklistAnswers,
		[]gateway.Row{{"session_id": "s1", "question_id": 3, "status": "approved"}},
		"session_id", "question_id"))
	assert.Len(t, store.Rows(gateway.TableChecklistAnswers), 1)

	require.NoError(t, gw.Delete(ctx, gateway.TableClients, gateway.Where(gateway.Eq("id", "c2"))))
	assert.Len(t, store.Rows(gateway.TableClients), 1)
}

func TestHTTPGateway_SubscribeSeesOwnInserts(t *testing.T) {
	srv, _ := startServer(t)
	gw := NewHTTPGateway(srv.URL, time.Second, testLogger())

	var got []gateway.Row
	unsubscribe := gw.Subscribe(gateway.TableSupportRequests, gateway.Where(gateway.Eq("status", "pending")),
		func(r gateway.Row) { got = append(got, r) })
	defer unsubscribe()

	require.NoError(t, gw.Insert(context.Background(), gateway.TableSupportRequests,
		gateway.Row{"id": "r1", "status": "pending"},
		gateway.Row{"id": "r2", "status": "closed"},
	))
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0]["id"])
}

func TestHTTPGateway_Upload(t *testing.T) {
	srv, _ := startServer(t)
	gw := NewHTTPGateway(srv.URL, time.Second, testLogger())

	url, err := gw.Upload(context.Background(), "emergency-photos", "v1/e1/before_1.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, gw.PublicURL("emergency-photos", "v1/e1/before_1.jpg"), url)

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "jpeg", string(data))
}

func TestHTTPGateway_Errors(t *testing.T) {
	srv, store := startServer(t)
	gw := NewHTTPGateway(srv.URL, time.Second, testLogger())
	ctx := context.Background()

	_, err := gw.Select(ctx, "pg_roles", gateway.All())
	assert.ErrorIs(t, err, gateway.ErrUnknownTable)

	err = gw.Delete(ctx, gateway.TableClients, gateway.All())
	assert.ErrorIs(t, err, gateway.ErrInvalidRow)

	store.Fail(memory.OpPing, assert.AnError)
	assert.ErrorIs(t, gw.Ping(ctx), gateway.ErrUnavailable)

	srv.Close()
	err = gw.Insert(ctx, gateway.TableClients, gateway.Row{"id": "c9"})
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
}
