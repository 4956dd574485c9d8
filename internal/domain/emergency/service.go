package emergency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/activity"
	"liftkeeper/internal/domain/events"
	"liftkeeper/internal/domain/gateway"
	"liftkeeper/internal/domain/queue"
	"liftkeeper/internal/domain/site"
)

// DefaultAutoSaveInterval - период отметки last_saved_at у открытого выезда.
const DefaultAutoSaveInterval = 30 * time.Second

type Config struct {
	AutoSaveInterval time.Duration
}

// Enqueuer - офлайн-очередь, куда уходят записи, не принятые хранилищем.
type Enqueuer interface {
	Enqueue(ctx context.Context, action queue.Action, target string, payload gateway.Row, opts ...queue.Option) string
}

type Service struct {
	gw       gateway.Gateway
	storage  gateway.ObjectStorage
	queue    Enqueuer
	sites    *site.Directory
	activity activity.Recorder
	log      *slog.Logger
	config   Config

	completed events.Bus[CompletedEvent]

	now   func() time.Time
	newID func() string
}

func NewService(gw gateway.Gateway, storage gateway.ObjectStorage, q Enqueuer, recorder activity.Recorder,
	log *slog.Logger, config Config) *Service {
	return &Service{
		gw:       gw,
		storage:  storage,
		queue:    q,
		sites:    site.NewDirectory(gw),
		activity: recorder,
		log:      log.With("component", "emergency"),
		config:   config,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// OnCompleted подписывает fn на подписание выездов.
func (s *Service) OnCompleted(fn func(CompletedEvent)) func() {
	return s.completed.Subscribe(fn)
}

// Scan разбирает QR-код площадки и загружает клиента с его лифтами.
// Возвращенная сессия ждет выбора неисправных лифтов.
func (s *Service) Scan(ctx context.Context, qrPayload, technicianID string) (*Session, error) {
	clientID, err := site.ParseQR(qrPayload)
	if err != nil {
		return nil, err
	}

	client, err := s.sites.Client(ctx, clientID)
	if err != nil {
		return nil, err
	}
	elevators, err := s.sites.Elevators(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	if len(elevators) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoElevators, client.ID)
	}

	s.log.Info("site scanned", "client_id", client.ID, "elevators", len(elevators))
	return &Session{
		svc:          s,
		log:          s.log.With("technician_id", technicianID),
		phase:        PhaseSelecting,
		technicianID: technicianID,
		client:       *client,
		elevators:    elevators,
	}, nil
}

// InProgress перечисляет незавершенные выезды техника, новые первыми.
func (s *Service) InProgress(ctx context.Context, technicianID string) ([]Visit, error) {
	rows, err := s.gw.Select(ctx, gateway.TableEmergencyVisits, gateway.Where(
		gateway.Eq("technician_id", technicianID),
		gateway.Eq("status", string(VisitInProgress)),
	).OrderDesc("started_at"))
	if err != nil {
		return nil, fmt.Errorf("list in-progress visits: %w", err)
	}
	return gateway.DecodeAll[Visit](rows)
}

// Resume восстанавливает выезд: клиента, парк лифтов, список неисправных и отправленные
// отчеты. Текущий лифт - первый в списке без отчета.
func (s *Service) Resume(ctx context.Context, visitID string) (*Session, error) {
	rows, err := s.gw.Select(ctx, gateway.TableEmergencyVisits,
		gateway.Where(gateway.Eq("id", visitID)).WithLimit(1))
	if err != nil {
		return nil, fmt.Errorf("load emergency visit: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("emergency visit %s: %w", visitID, gateway.ErrNotFound)
	}

	var visit Visit
	if err := gateway.Decode(rows[0], &visit); err != nil {
		return nil, err
	}
	if visit.Status == VisitCompleted {
		return nil, ErrVisitCompleted
	}

	client, err := s.sites.Client(ctx, visit.ClientID)
	if err != nil {
		return nil, err
	}
	elevators, err := s.sites.Elevators(ctx, client.ID)
	if err != nil {
		return nil, err
	}

	rows, err = s.gw.Select(ctx, gateway.TableEmergencyReports,
		gateway.Where(gateway.Eq("visit_id", visit.ID)).OrderAsc("completed_at"))
	if err != nil {
		return nil, fmt.Errorf("load emergency reports: %w", err)
	}
	saved, err := gateway.DecodeAll[Report](rows)
	if err != nil {
		return nil, err
	}

	byElevator := make(map[string]Report, len(saved))
	for _, r := range saved {
		byElevator[r.ElevatorID] = r
	}
	var reports []Report
	index := 0
	for index < len(visit.ElevatorIDs) {
		r, ok := byElevator[visit.ElevatorIDs[index]]
		if !ok {
			break
		}
		reports = append(reports, r)
		index++
	}

	log := s.log.With("technician_id", visit.TechnicianID, "visit_id", visit.ID)
	if index != visit.CurrentIndex {
		log.Warn("stored visit index differs from submitted reports", "stored", visit.CurrentIndex, "restored", index)
	}
	visit.CurrentIndex = index

	phase := PhaseReporting
	if index == len(visit.ElevatorIDs) {
		phase = PhaseAwaitingSignature
	}

	sess := &Session{
		svc:          s,
		log:          log,
		phase:        phase,
		technicianID: visit.TechnicianID,
		client:       *client,
		elevators:    elevators,
		visit:        &visit,
		reports:      reports,
	}
	sess.mu.Lock()
	sess.startAutoSaveLocked()
	sess.mu.Unlock()

	log.Info("emergency visit resumed", "index", index, "of", len(visit.ElevatorIDs))
	return sess, nil
}
