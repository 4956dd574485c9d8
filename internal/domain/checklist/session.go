package checklist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/gateway"
	"liftkeeper/internal/domain/validation"
)

const autoSaveTimeout = 30 * time.Second

// Session - активный осмотр одного лифта одним техником за один период.
// Сессией владеет один вызывающий; мьютекс нужен из-за фоновых автосохранений.
type Session struct {
	gw        gateway.Gateway
	log       *slog.Logger
	saveEvery int
	now       func() time.Time

	mu        sync.Mutex
	record    SessionRecord
	questions []Question
	answers   map[int]*Answer
	resumed   bool

	// saveMu упорядочивает записи; savedCounter хранит счетчик последней из них.
	saveMu       sync.Mutex
	savedCounter int

	wg          sync.WaitGroup
	onCompleted func(context.Context, CompletedEvent)
}

type snapshot struct {
	answers []Answer
	counter int
}

func newSession(gw gateway.Gateway, log *slog.Logger, saveEvery int, now func() time.Time,
	record SessionRecord, questions []Question, saved []Answer) *Session {
	byID := make(map[int]Answer, len(saved))
	for _, a := range saved {
		byID[a.QuestionID] = a
	}

	answers := make(map[int]*Answer, len(questions))
	for _, q := range questions {
		a, ok := byID[q.ID]
		if !ok {
			a = Answer{QuestionID: q.ID, Status: StatusPending}
		}
		a.SessionID = record.ID
		answers[q.ID] = &a
	}

	if saveEvery <= 0 {
		saveEvery = DefaultSaveEvery
	}

	return &Session{
		gw:        gw,
		log:       log.With("session_id", record.ID),
		saveEvery: saveEvery,
		now:       now,
		record:    record,
		questions: questions,
		answers:   answers,
	}
}

func (s *Session) ID() string {
	return s.record.ID
}

// Record возвращает копию строки сессии.
func (s *Session) Record() SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Status
}

// Resumed сообщает, что сессия продолжена, а не создана заново.
func (s *Session) Resumed() bool {
	return s.resumed
}

func (s *Session) ChangeCounter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.ChangeCounter
}

func (s *Session) LastSavedAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.LastSavedAt
}

func (s *Session) Certification() Certification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Certification()
}

func (s *Session) CertificationStatus(today time.Time) CertificationStatus {
	return s.Certification().Status(today)
}

// Questions возвращает применимые вопросы в порядке отображения.
func (s *Session) Questions() []Question {
	return append([]Question(nil), s.questions...)
}

func (s *Session) Sections() []Section {
	return GroupBySection(s.questions)
}

// Answer возвращает копию ответа на вопрос.
func (s *Session) Answer(questionID int) (Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[questionID]
	if !ok {
		return Answer{}, false
	}
	return *a, true
}

// Answers возвращает копии всех ответов в порядке вопросов.
func (s *Session) Answers() []Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answersLocked()
}

func (s *Session) answersLocked() []Answer {
	out := make([]Answer, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, *s.answers[q.ID])
	}
	return out
}

// SetAnswerStatus меняет статус ответа. Approved сбрасывает замечание и фотографии,
// Rejected сохраняет их.
func (s *Session) SetAnswerStatus(questionID int, status AnswerStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}
	return s.edit(questionID, func(a *Answer) {
		a.Status = status
		if status == StatusApproved {
			a.Observations = ""
			a.Photo1URL = nil
			a.Photo2URL = nil
		}
	})
}

func (s *Session) SetObservations(questionID int, text string) error {
	return s.edit(questionID, func(a *Answer) {
		a.Observations = text
	})
}

// SetPhotos задает ссылки на обе фотографии; пустая строка очищает ссылку.
func (s *Session) SetPhotos(questionID int, url1, url2 string) error {
	return s.edit(questionID, func(a *Answer) {
		a.Photo1URL = optional(url1)
		a.Photo2URL = optional(url2)
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Session) edit(questionID int, apply func(*Answer)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record.Status == SessionCompleted {
		return ErrSessionCompleted
	}
	a, ok := s.answers[questionID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownQuestion, questionID)
	}

	apply(a)
	a.UpdatedAt = s.now().UTC()
	s.record.ChangeCounter++

	if s.record.ChangeCounter%s.saveEvery == 0 {
		snap := s.snapshotLocked()
		s.wg.Add(1)
		go s.autoSave(snap)
	}
	return nil
}

func (s *Session) snapshotLocked() snapshot {
	return snapshot{answers: s.answersLocked(), counter: s.record.ChangeCounter}
}

func (s *Session) autoSave(snap snapshot) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), autoSaveTimeout)
	defer cancel()

	if err := s.persist(ctx, snap, nil); err != nil {
		s.log.Warn("checklist auto-save failed", "change_counter", snap.counter, "error", err)
		return
	}
	s.log.Debug("checklist auto-saved", "change_counter", snap.counter, "answers", len(snap.answers))
}

// Save сохраняет все ответы независимо от счетчика правок.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.record.Status == SessionCompleted {
		s.mu.Unlock()
		return ErrSessionCompleted
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.persist(ctx, snap, nil); err != nil {
		return fmt.Errorf("save checklist: %w", err)
	}
	return nil
}

// persist пишет ответы и отметку сохранения. extra дополняет патч строки сессии.
func (s *Session) persist(ctx context.Context, snap snapshot, extra gateway.Row) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	// Снимок старше уже записанного не должен откатывать ответы.
	if extra == nil && snap.counter < s.savedCounter {
		s.log.Debug("stale checklist snapshot skipped", "change_counter", snap.counter, "saved_counter", s.savedCounter)
		return nil
	}

	rows := make([]gateway.Row, 0, len(snap.answers))
	for _, a := range snap.answers {
		row, err := gateway.Encode(a)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	if len(rows) > 0 {
		if err := s.gw.Upsert(ctx, gateway.TableChecklistAnswers, rows, "session_id", "question_id"); err != nil {
			return fmt.Errorf("upsert answers: %w", err)
		}
	}

	savedAt := s.now().UTC()
	patch := gateway.Row{
		"last_saved_at":  savedAt,
		"change_counter": snap.counter,
		"updated_at":     savedAt,
	}
	for k, v := range extra {
		patch[k] = v
	}
	// Счетчик в хранилище только растет, даже если запись пришла с другого устройства.
	filter := gateway.Where(gateway.Eq("id", s.record.ID), gateway.Lte("change_counter", snap.counter))
	if err := s.gw.Update(ctx, gateway.TableChecklistSessions, patch, filter); err != nil {
		return fmt.Errorf("stamp session: %w", err)
	}
	s.savedCounter = snap.counter

	s.mu.Lock()
	if s.record.LastSavedAt == nil || s.record.LastSavedAt.Before(savedAt) {
		s.record.LastSavedAt = &savedAt
	}
	s.mu.Unlock()
	return nil
}

// Validate перечисляет, что мешает завершить осмотр.
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateLocked()
}

func (s *Session) validateLocked() error {
	verr := &validation.Error{}
	for _, q := range s.questions {
		a := s.answers[q.ID]
		field := fmt.Sprintf("answers[%d]", q.ID)
		switch a.Status {
		case StatusPending:
			verr.Add(field+".status", "must be answered")
		case StatusRejected:
			if a.Observations == "" {
				verr.Add(field+".observations", "is required for a rejected answer")
			}
			if !nonEmpty(a.Photo1URL) || !nonEmpty(a.Photo2URL) {
				verr.Add(field+".photos", "two photos are required for a rejected answer")
			}
		}
	}
	return verr.OrNil()
}

// CanComplete - все вопросы отвечены, у отклоненных есть замечание и две фотографии.
func (s *Session) CanComplete() bool {
	return s.Validate() == nil
}

// Complete сохраняет ответы и закрывает сессию. При ошибке сохранения
// сессия остается в работе со всеми правками в памяти.
func (s *Session) Complete(ctx context.Context) error {
	s.mu.Lock()
	if s.record.Status == SessionCompleted {
		s.mu.Unlock()
		return ErrSessionCompleted
	}
	if err := s.validateLocked(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrIncomplete, err)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	completedAt := s.now().UTC()
	err := s.persist(ctx, snap, gateway.Row{
		"status":       string(SessionCompleted),
		"completed_at": completedAt,
	})
	if err != nil {
		return fmt.Errorf("complete checklist: %w", err)
	}

	rejected := 0
	for _, a := range snap.answers {
		if a.Status == StatusRejected {
			rejected++
		}
	}

	s.mu.Lock()
	s.record.Status = SessionCompleted
	s.record.CompletedAt = &completedAt
	event := CompletedEvent{
		SessionID:    s.record.ID,
		ElevatorID:   s.record.ElevatorID,
		TechnicianID: s.record.TechnicianID,
		ClientID:     s.record.ClientID,
		Period:       s.record.Period(),
		Rejected:     rejected,
		CompletedAt:  completedAt,
	}
	s.mu.Unlock()

	s.log.Info("checklist completed", "rejected", rejected)
	if s.onCompleted != nil {
		s.onCompleted(ctx, event)
	}
	return nil
}

// Wait дожидается фоновых автосохранений.
func (s *Session) Wait() {
	s.wg.Wait()
}
