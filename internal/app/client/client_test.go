package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liftkeeper/internal/app/client/config"
	"liftkeeper/internal/domain/gateway"
	"liftkeeper/internal/domain/queue"
	"liftkeeper/internal/infrastructure/storage/memory"
)

func testConfig(serverURL string) *config.Config {
	return &config.Config{
		Env:                "local",
		ServerAddress:      strings.TrimPrefix(serverURL, "http://"),
		ChecklistSaveEvery: 5,
		EmergencyAutoSave:  time.Hour,
		ProbeSchedule:      "@every 1h",
		RequestTimeout:     time.Second,
	}
}

func TestApp_StartOnline(t *testing.T) {
	srv, _ := startServer(t)
	cfg := testConfig(srv.URL)
	app := NewWith(cfg, NewHTTPGateway(cfg.BaseURL(), time.Second, testLogger()), memory.NewQueueStore(), nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx))
	defer app.Close()

	st := app.Status()
	assert.True(t, st.Online)
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, srv.URL, st.Server)
}

func TestApp_OfflineWritesReplayOnReconnect(t *testing.T) {
	srv, store := startServer(t)
	cfg := testConfig(srv.URL)
	app := NewWith(cfg, NewHTTPGateway(cfg.BaseURL(), time.Second, testLogger()), memory.NewQueueStore(), nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx))
	defer app.Close()

	app.Monitor().Set(false)
	require.NoError(t, app.Gateway().Insert(ctx, gateway.TableClients, gateway.Row{"id": "c1", "name": "Edificio Central"}))
	require.NoError(t, app.Gateway().Update(ctx, gateway.TableClients, gateway.Row{"name": "Edificio Central II"},
		gateway.Where(gateway.Eq("id", "c1"))))

	assert.Empty(t, store.Rows(gateway.TableClients))
	assert.Equal(t, 2, app.Status().Pending)

	app.Monitor().Set(true)
	assert.Eventually(t, func() bool { return app.Status().Pending == 0 }, 2*time.Second, 10*time.Millisecond)
	app.Queue().Wait()

	rows := store.Rows(gateway.TableClients)
	require.Len(t, rows, 1)
	assert.Equal(t, "Edificio Central II", rows[0]["name"])
}

func TestApp_HydratesLocalQueueOnStart(t *testing.T) {
	srv, store := startServer(t)
	cfg := testConfig(srv.URL)

	local := memory.NewQueueStore()
	require.NoError(t, local.Save(context.Background(), &queue.Item{
		ID:        "left-from-last-run",
		Action:    queue.ActionInsert,
		Target:    gateway.TableClients,
		Payload:   gateway.Row{"id": "c7", "name": "Plaza"},
		CreatedAt: time.Now().UTC(),
	}))

	app := NewWith(cfg, NewHTTPGateway(cfg.BaseURL(), time.Second, testLogger()), local, nil, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx))

	assert.Eventually(t, func() bool { return len(store.Rows(gateway.TableClients)) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, app.Close())

	_, ok := local.Get("left-from-last-run")
	require.True(t, ok)
	pending, err := local.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestApp_StartOffline(t *testing.T) {
	srv, _ := startServer(t)
	cfg := testConfig(srv.URL)
	srv.Close()

	app := NewWith(cfg, NewHTTPGateway(cfg.BaseURL(), 200*time.Millisecond, testLogger()), memory.NewQueueStore(), nil, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx))
	defer app.Close()

	assert.False(t, app.Status().Online)
}

func TestApp_PrepareDoesNotReplay(t *testing.T) {
	srv, store := startServer(t)
	cfg := testConfig(srv.URL)

	local := memory.NewQueueStore()
	require.NoError(t, local.Save(context.Background(), &queue.Item{
		ID:        "q1",
		Action:    queue.ActionInsert,
		Target:    gateway.TableClients,
		Payload:   gateway.Row{"id": "c9", "name": "Torre Sur"},
		CreatedAt: time.Now().UTC(),
	}))

	app := NewWith(cfg, NewHTTPGateway(cfg.BaseURL(), time.Second, testLogger()), local, nil, testLogger())
	require.NoError(t, app.Prepare(context.Background()))

	assert.True(t, app.Status().Online)
	assert.Equal(t, 1, app.Status().Pending)
	require.NoError(t, app.Close())
	assert.Empty(t, store.Rows(gateway.TableClients))
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	srv, _ := startServer(t)
	cfg := testConfig(srv.URL)
	app := NewWith(cfg, NewHTTPGateway(cfg.BaseURL(), time.Second, testLogger()), memory.NewQueueStore(), nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	assert.Eventually(t, func() bool { return app.Status().Online }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
	assert.NoError(t, app.Close())
}

func TestFromContext(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.Error(t, err)

	app := &App{}
	got, err := FromContext(WithApp(context.Background(), app))
	require.NoError(t, err)
	assert.Same(t, app, got)
}

func TestApp_PrepareRemovesOldSyncedItems(t *testing.T) {
	srv, _ := startServer(t)
	cfg := testConfig(srv.URL)
	cfg.QueueRetention = 24 * time.Hour

	ctx := context.Background()
	local := memory.NewQueueStore()
	for _, it := range []*queue.Item{
		{ID: "old-synced", Synced: true, CreatedAt: time.Now().UTC().Add(-48 * time.Hour)},
		{ID: "fresh-synced", Synced: true, CreatedAt: time.Now().UTC().Add(-time.Hour)},
		{ID: "old-pending", CreatedAt: time.Now().UTC().Add(-48 * time.Hour)},
	} {
		it.Action = queue.ActionInsert
		it.Target = gateway.TableClients
		it.Payload = gateway.Row{"id": it.ID, "name": "Plaza"}
		require.NoError(t, local.Save(ctx, it))
	}

	app := NewWith(cfg, NewHTTPGateway(cfg.BaseURL(), time.Second, testLogger()), local, nil, testLogger())
	require.NoError(t, app.Prepare(ctx))
	defer app.Close()

	_, ok := local.Get("old-synced")
	assert.False(t, ok)
	_, ok = local.Get("fresh-synced")
	assert.True(t, ok)
	_, ok = local.Get("old-pending")
	assert.True(t, ok)
	assert.Equal(t, 1, app.Status().Pending)
}

func TestApp_PurgeSyncedDisabledByZeroRetention(t *testing.T) {
	srv, _ := startServer(t)
	cfg := testConfig(srv.URL)

	ctx := context.Background()
	local := memory.NewQueueStore()
	require.NoError(t, local.Save(ctx, &queue.Item{
		ID:        "old-synced",
		Action:    queue.ActionInsert,
		Target:    gateway.TableClients,
		Payload:   gateway.Row{"id": "c1", "name": "Plaza"},
		Synced:    true,
		CreatedAt: time.Now().UTC().Add(-365 * 24 * time.Hour),
	}))

	app := NewWith(cfg, NewHTTPGateway(cfg.BaseURL(), time.Second, testLogger()), local, nil, testLogger())
	n, err := app.PurgeSynced(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, ok := local.Get("old-synced")
	assert.True(t, ok)
}
