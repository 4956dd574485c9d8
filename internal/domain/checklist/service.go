package checklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/activity"
	"liftkeeper/internal/domain/events"
	"liftkeeper/internal/domain/gateway"
	"liftkeeper/internal/domain/site"
	"liftkeeper/internal/domain/validation"
)

// DefaultSaveEvery - число правок между автосохранениями.
const DefaultSaveEvery = 5

type Config struct {
	SaveEvery int
}

// StartRequest - выбор лифта техником с данными сертификата.
type StartRequest struct {
	ElevatorID    string        `json:"elevator_id" validate:"required"`
	TechnicianID  string        `json:"technician_id" validate:"required"`
	Period        Period        `json:"period"`
	Certification Certification `json:"certification"`
}

// Service создает и продолжает сессии осмотра.
type Service struct {
	gw       gateway.Gateway
	sites    *site.Directory
	activity activity.Recorder
	log      *slog.Logger
	config   Config

	completed events.Bus[CompletedEvent]

	now   func() time.Time
	newID func() string
}

func NewService(gw gateway.Gateway, recorder activity.Recorder, log *slog.Logger, config Config) *Service {
	if config.SaveEvery <= 0 {
		config.SaveEvery = DefaultSaveEvery
	}
	return &Service{
		gw:       gw,
		sites:    site.NewDirectory(gw),
		activity: recorder,
		log:      log.With("component", "checklist"),
		config:   config,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// OnCompleted подписывает fn на завершение сессий.
func (s *Service) OnCompleted(fn func(CompletedEvent)) func() {
	return s.completed.Subscribe(fn)
}

// Start открывает осмотр. Если за период у техника уже есть незавершенная сессия
// по этому лифту, она продолжается вместо создания новой.
func (s *Service) Start(ctx context.Context, req StartRequest) (*Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.FindInProgress(ctx, req.ElevatorID, req.TechnicianID, req.Period)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.log.Info("in-progress session found, resuming",
			"session_id", existing.ID, "elevator_id", req.ElevatorID, "period", req.Period.String())
		return s.open(ctx, *existing, true)
	}

	if !req.Certification.Captured() {
		verr := &validation.Error{}
		verr.Add("certification", "is required")
		return nil, fmt.Errorf("%w: %w", ErrCertificationNeeded, verr)
	}

	elevator, err := s.sites.Elevator(ctx, req.ElevatorID)
	if err != nil {
		return nil, err
	}

	cert := NewCertification(req.Certification.LastDate, req.Certification.NotLegible)
	now := s.now().UTC()
	record := SessionRecord{
		ID:                s.newID(),
		ElevatorID:        elevator.ID,
		TechnicianID:      req.TechnicianID,
		ClientID:          elevator.ClientID,
		Month:             req.Period.Month,
		Year:              req.Period.Year,
		LastCertification: cert.LastDate,
		NextCertification: cert.NextDate,
		NotLegible:        cert.NotLegible,
		Status:            SessionInProgress,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	questions, err := s.questions(ctx, record.Month, elevator.Hydraulic)
	if err != nil {
		return nil, err
	}

	row, err := gateway.Encode(record)
	if err != nil {
		return nil, err
	}
	if err := s.gw.Insert(ctx, gateway.TableChecklistSessions, row); err != nil {
		return nil, fmt.Errorf("create checklist session: %w", err)
	}

	s.activity.Record(ctx, activity.Entry{
		ActorID:  record.TechnicianID,
		Action:   activity.ActionChecklistStarted,
		Entity:   gateway.TableChecklistSessions,
		EntityID: record.ID,
		Details: map[string]any{
			"elevator_id":          record.ElevatorID,
			"period":               req.Period.String(),
			"certification_status": string(cert.Status(now)),
		},
	})
	s.log.Info("checklist session started",
		"session_id", record.ID, "elevator_id", record.ElevatorID, "questions", len(questions))

	return s.session(record, questions, nil, false), nil
}

// Resume загружает сессию по id вместе с сохраненными ответами.
func (s *Service) Resume(ctx context.Context, sessionID string) (*Session, error) {
	rows, err := s.gw.Select(ctx, gateway.TableChecklistSessions,
		gateway.Where(gateway.Eq("id", sessionID)).WithLimit(1))
	if err != nil {
		return nil, fmt.Errorf("load checklist session: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("checklist session %s: %w", sessionID, gateway.ErrNotFound)
	}

	var record SessionRecord
	if err := gateway.Decode(rows[0], &record); err != nil {
		return nil, err
	}
	return s.open(ctx, record, true)
}

// FindInProgress ищет незавершенную сессию; nil без ошибки, если ее нет.
func (s *Service) FindInProgress(ctx context.Context, elevatorID, technicianID string, period Period) (*SessionRecord, error) {
	rows, err := s.gw.Select(ctx, gateway.TableChecklistSessions, gateway.Where(
		gateway.Eq("elevator_id", elevatorID),
		gateway.Eq("technician_id", technicianID),
		gateway.Eq("month", period.Month),
		gateway.Eq("year", period.Year),
		gateway.Eq("status", string(SessionInProgress)),
	).OrderDesc("created_at").WithLimit(1))
	if err != nil {
		return nil, fmt.Errorf("find in-progress session: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var record SessionRecord
	if err := gateway.Decode(rows[0], &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// InProgress перечисляет незавершенные сессии техника.
func (s *Service) InProgress(ctx context.Context, technicianID string) ([]SessionRecord, error) {
	rows, err := s.gw.Select(ctx, gateway.TableChecklistSessions, gateway.Where(
		gateway.Eq("technician_id", technicianID),
		gateway.Eq("status", string(SessionInProgress)),
	).OrderDesc("created_at"))
	if err != nil {
		return nil, fmt.Errorf("list in-progress sessions: %w", err)
	}
	return gateway.DecodeAll[SessionRecord](rows)
}

func (s *Service) open(ctx context.Context, record SessionRecord, resumed bool) (*Session, error) {
	elevator, err := s.sites.Elevator(ctx, record.ElevatorID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questions(ctx, record.Month, elevator.Hydraulic)
	if err != nil {
		return nil, err
	}

	rows, err := s.gw.Select(ctx, gateway.TableChecklistAnswers,
		gateway.Where(gateway.Eq("session_id", record.ID)))
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	answers, err := gateway.DecodeAll[Answer](rows)
	if err != nil {
		return nil, err
	}

	if resumed {
		s.activity.Record(ctx, activity.Entry{
			ActorID:  record.TechnicianID,
			Action:   activity.ActionChecklistResumed,
			Entity:   gateway.TableChecklistSessions,
			EntityID: record.ID,
		})
	}
	return s.session(record, questions, answers, resumed), nil
}

func (s *Service) questions(ctx context.Context, month int, hydraulic bool) ([]Question, error) {
	catalog, err := LoadCatalog(ctx, s.gw)
	if err != nil {
		return nil, err
	}
	questions := Filter(catalog, month, hydraulic)
	if len(questions) == 0 {
		return nil, errors.New("no checklist questions apply to this elevator")
	}
	return questions, nil
}

func (s *Service) session(record SessionRecord, questions []Question, answers []Answer, resumed bool) *Session {
	sess := newSession(s.gw, s.log, s.config.SaveEvery, s.now, record, questions, answers)
	sess.resumed = resumed
	sess.onCompleted = func(ctx context.Context, e CompletedEvent) {
		s.activity.Record(ctx, activity.Entry{
			ActorID:  e.TechnicianID,
			Action:   activity.ActionChecklistCompleted,
			Entity:   gateway.TableChecklistSessions,
			EntityID: e.SessionID,
			Details:  map[string]any{"rejected": e.Rejected},
		})
		s.completed.Publish(e)
	}
	return sess
}
