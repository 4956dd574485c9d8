package connectivity

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/gateway"
)

const DefaultSchedule = "@every 15s"

// Prober по расписанию проверяет шлюз и переводит монитор в соответствующее состояние.
// Вне процесса браузера это единственный источник сигнала связи.
type Prober struct {
	monitor *Monitor
	pinger  gateway.Pinger
	log     *slog.Logger
	cron    *cron.Cron
	timeout time.Duration
}

func NewProber(monitor *Monitor, pinger gateway.Pinger, log *slog.Logger) *Prober {
	return &Prober{
		monitor: monitor,
		pinger:  pinger,
		log:     log.With("component", "connectivity_prober"),
		cron:    cron.New(),
		timeout: 5 * time.Second,
	}
}

// Start планирует проверки. schedule - выражение cron, например "@every 15s".
func (p *Prober) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := p.cron.AddFunc(schedule, func() { p.Probe(ctx) }); err != nil {
		return fmt.Errorf("schedule probe %q: %w", schedule, err)
	}
	p.cron.Start()
	p.log.Info("connectivity prober started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		<-p.cron.Stop().Done()
		p.log.Info("connectivity prober stopped")
	}()
	return nil
}

// Probe выполняет одну проверку.
func (p *Prober) Probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.pinger.Ping(pctx)
	online := err == nil
	if !online && p.monitor.Online() {
		p.log.Warn("gateway unreachable", "error", err)
	}
	if online && !p.monitor.Online() {
		p.log.Info("gateway reachable again")
	}
	p.monitor.Set(online)
}
