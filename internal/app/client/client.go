// Package client собирает полевое приложение техника: шлюз, очередь, связь и сервисы.
package client

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"liftkeeper/internal/app/client/config"
	"liftkeeper/internal/domain/activity"
	"liftkeeper/internal/domain/checklist"
	"liftkeeper/internal/domain/connectivity"
	"liftkeeper/internal/domain/emergency"
	"liftkeeper/internal/domain/gateway"
	"liftkeeper/internal/domain/queue"
	"liftkeeper/internal/domain/site"
	"liftkeeper/internal/infrastructure/storage/sqlite"
)

// Remote - то, что приложению нужно от удаленного шлюза
type Remote interface {
	gateway.Gateway
	gateway.ObjectStorage
	gateway.Pinger
}

// purger - локальное хранилище, умеющее чистить синхронизированные элементы
type purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

type App struct {
	config  *config.Config
	log     *slog.Logger
	remote  Remote
	store   queue.LocalStore
	closer  func() error
	monitor *connectivity.Monitor
	prober  *connectivity.Prober
	queue   *queue.Queue
	gateway gateway.Gateway

	directory *site.Directory
	checklist *checklist.Service
	emergency *emergency.Service

	wg          gosync.WaitGroup
	unsubscribe []func()
}

// Status - сводка для команды status
type Status struct {
	Server      string `json:"server"`
	Online      bool   `json:"online"`
	Pending     int    `json:"pending"`
	DeadLetters int    `json:"dead_letters"`
	Replaying   bool   `json:"replaying"`
}

// New открывает локальную очередь на диске и собирает приложение
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	store, err := sqlite.NewQueueStore(cfg.QueueDBPath)
	if err != nil {
		return nil, fmt.Errorf("open local queue: %w", err)
	}
	remote := NewHTTPGateway(cfg.BaseURL(), cfg.RequestTimeout, log)
	return NewWith(cfg, remote, store, store.Close, log), nil
}

// NewWith собирает приложение на готовых шлюзе и локальном хранилище
func NewWith(cfg *config.Config, remote Remote, store queue.LocalStore, closer func() error, log *slog.Logger) *App {
	monitor := connectivity.NewMonitor(false)
	q := queue.New(remote, store, log, queue.Config{MaxAttempts: cfg.QueueMaxAttempts})

	// все записи сервисов идут через очередь: без связи они ставятся в нее
	gw := queue.NewGateway(remote, q)
	recorder := activity.NewGatewayRecorder(gw, log)

	autosave := cfg.EmergencyAutoSave
	if autosave <= 0 {
		autosave = emergency.DefaultAutoSaveInterval
	}

	a := &App{
		config:    cfg,
		log:       log.With("component", "app"),
		remote:    remote,
		store:     store,
		closer:    closer,
		monitor:   monitor,
		prober:    connectivity.NewProber(monitor, remote, log),
		queue:     q,
		gateway:   gw,
		directory: site.NewDirectory(gw),
		checklist: checklist.NewService(gw, recorder, log, checklist.Config{SaveEvery: cfg.ChecklistSaveEvery}),
		emergency: emergency.NewService(gw, remote, q, recorder, log, emergency.Config{AutoSaveInterval: autosave}),
	}

	a.unsubscribe = append(a.unsubscribe,
		a.checklist.OnCompleted(func(e checklist.CompletedEvent) {
			a.log.Info("checklist completed", "session_id", e.SessionID, "elevator_id", e.ElevatorID)
		}),
		a.emergency.OnCompleted(func(e emergency.CompletedEvent) {
			a.log.Info("emergency visit completed", "visit_id", e.VisitID, "elevators", e.Elevators)
		}),
	)
	return a
}

// Prepare проверяет связь и загружает очередь, ничего не запуская в фоне.
// Его достаточно для разовых команд CLI.
func (a *App) Prepare(ctx context.Context) error {
	a.prober.Probe(ctx)
	a.unsubscribe = append(a.unsubscribe, a.queue.ObserveConnectivity(ctx, a.monitor))
	if err := a.queue.Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrate queue: %w", err)
	}
	if _, err := a.PurgeSynced(ctx); err != nil {
		a.log.Warn("local queue cleanup failed", "error", err)
	}
	return nil
}

// PurgeSynced удаляет из локального хранилища синхронизированные элементы
// старше QUEUE_RETENTION. Нулевой срок отключает очистку.
func (a *App) PurgeSynced(ctx context.Context) (int64, error) {
	p, ok := a.store.(purger)
	if !ok || a.config.QueueRetention <= 0 {
		return 0, nil
	}
	n, err := p.Purge(ctx, time.Now().UTC().Add(-a.config.QueueRetention))
	if err != nil {
		return 0, fmt.Errorf("purge synced items: %w", err)
	}
	if n > 0 {
		a.log.Info("synced queue items purged", "count", n, "retention", a.config.QueueRetention)
	}
	return n, nil
}

// Start дополняет Prepare первым проходом очереди и пробером по расписанию.
func (a *App) Start(ctx context.Context) error {
	if err := a.Prepare(ctx); err != nil {
		return err
	}

	// переход в online случился до подписки очереди, поэтому первый проход запускаем сами
	if a.monitor.Online() && a.queue.Len() > 0 {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if _, err := a.queue.Replay(ctx); err != nil {
				a.log.Debug("startup replay skipped", "error", err)
			}
		}()
	}

	if err := a.prober.Start(ctx, a.config.ProbeSchedule); err != nil {
		return err
	}

	a.log.Info("client started",
		"server", a.config.BaseURL(),
		"env", a.config.Env,
		"online", a.monitor.Online(),
		"pending", a.queue.Len(),
	)
	return nil
}

// Run запускает фоновые части и работает до отмены ctx
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.log.Info("shutting down")
	return nil
}

// Close дожидается фоновых проходов очереди и закрывает локальное хранилище
func (a *App) Close() error {
	for _, fn := range a.unsubscribe {
		fn()
	}
	a.unsubscribe = nil

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		a.queue.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		a.log.Warn("background replay did not finish in time")
	}

	if a.closer == nil {
		return nil
	}
	closer := a.closer
	a.closer = nil
	return closer()
}

func (a *App) Status() Status {
	return Status{
		Server:      a.config.BaseURL(),
		Online:      a.monitor.Online(),
		Pending:     a.queue.Len(),
		DeadLetters: len(a.queue.DeadLetters()),
		Replaying:   a.queue.IsReplaying(),
	}
}

func (a *App) Config() *config.Config { return a.config }
func (a *App) Queue() *queue.Queue { return a.queue }
func (a *App) Monitor() *connectivity.Monitor { return a.monitor }
func (a *App) Gateway() gateway.Gateway { return a.gateway }
func (a *App) Directory() *site.Directory { return a.directory }
func (a *App) Checklist() *checklist.Service { return a.checklist }
func (a *App) Emergency() *emergency.Service { return a.emergency }

type appKey struct{}

// WithApp кладет приложение в контекст команды
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

// FromContext достает приложение, положенное WithApp
func FromContext(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(appKey{}).(*App)
	if !ok || app == nil {
		return nil, fmt.Errorf("application is not initialized")
	}
	return app, nil
}
