package emergency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/activity"
	"liftkeeper/internal/domain/gateway"
	"liftkeeper/internal/domain/queue"
	"liftkeeper/internal/domain/site"
	"liftkeeper/internal/domain/validation"
)

// Session ведет техника по отчетам для каждого неисправного лифта и подписи.
type Session struct {
	svc *Service
	log *slog.Logger

	mu           sync.Mutex
	phase        Phase
	technicianID string
	client       site.Client
	elevators    []site.Elevator
	visit        *Visit
	reports      []Report

	stop context.CancelFunc
	wg   sync.WaitGroup
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Client() site.Client {
	return s.client
}

// Elevators - весь парк лифтов клиента.
func (s *Session) Elevators() []site.Elevator {
	return append([]site.Elevator(nil), s.elevators...)
}

// Visit возвращает копию выезда; false до выбора лифтов.
func (s *Session) Visit() (Visit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visit == nil {
		return Visit{}, false
	}
	v := *s.visit
	v.ElevatorIDs = append([]string(nil), s.visit.ElevatorIDs...)
	return v, true
}

// Reports возвращает отправленные отчеты в порядке списка неисправных лифтов.
func (s *Session) Reports() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Report(nil), s.reports...)
}

func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visit == nil {
		return 0
	}
	return s.visit.CurrentIndex
}

// CurrentElevator - лифт, по которому ожидается отчет.
func (s *Session) CurrentElevator() (site.Elevator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseReporting {
		return site.Elevator{}, false
	}
	return s.elevator(s.visit.ElevatorIDs[s.visit.CurrentIndex])
}

func (s *Session) elevator(id string) (site.Elevator, bool) {
	for _, e := range s.elevators {
		if e.ID == id {
			return e, true
		}
	}
	return site.Elevator{}, false
}

// SelectFailedElevators создает выезд по выбранным лифтам. Данные площадки и список
// лифтов после этого не меняются.
func (s *Session) SelectFailedElevators(ctx context.Context, elevatorIDs []string, building Building) error {
	s.mu.Lock()
	if s.phase != PhaseSelecting {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWrongPhase, s.phase)
	}
	verr := &validation.Error{}
	if len(elevatorIDs) == 0 {
		verr.Add("elevators_in_failure", "select at least one elevator")
	}
	seen := make(map[string]bool, len(elevatorIDs))
	for i, id := range elevatorIDs {
		field := fmt.Sprintf("elevators_in_failure[%d]", i)
		if _, ok := s.elevator(id); !ok {
			verr.Add(field, "is not an elevator of this client")
		}
		if seen[id] {
			verr.Add(field, "is selected twice")
		}
		seen[id] = true
	}
	s.mu.Unlock()
	if err := verr.OrNil(); err != nil {
		return err
	}

	if building.Name == "" {
		building.Name = s.client.BuildingName
		if building.Name == "" {
			building.Name = s.client.Name
		}
	}
	if building.Address == "" {
		building.Address = s.client.Address
	}

	now := s.svc.now().UTC()
	visit := &Visit{
		ID:           s.svc.newID(),
		ClientID:     s.client.ID,
		TechnicianID: s.technicianID,
		BuildingName: building.Name,
		Address:      building.Address,
		ElevatorIDs:  append([]string(nil), elevatorIDs...),
		Status:       VisitInProgress,
		StartedAt:    now,
		LastSavedAt:  &now,
	}

	row, err := gateway.Encode(visit)
	if err != nil {
		return err
	}
	if err := s.svc.gw.Insert(ctx, gateway.TableEmergencyVisits, row); err != nil {
		return fmt.Errorf("create emergency visit: %w", err)
	}

	s.mu.Lock()
	s.visit = visit
	s.phase = PhaseReporting
	s.log = s.log.With("visit_id", visit.ID)
	s.startAutoSaveLocked()
	s.mu.Unlock()

	s.svc.activity.Record(ctx, activity.Entry{
		ActorID:  s.technicianID,
		Action:   activity.ActionVisitStarted,
		Entity:   gateway.TableEmergencyVisits,
		EntityID: visit.ID,
		Details:  map[string]any{"client_id": visit.ClientID, "elevators": len(visit.ElevatorIDs)},
	})
	s.log.Info("emergency visit started", "elevators", len(visit.ElevatorIDs))
	return nil
}

// SubmitCurrentReport проверяет форму, загружает четыре фотографии по порядку
// и сохраняет отчет по текущему лифту. Ошибка загрузки прерывает отправку целиком.
func (s *Session) SubmitCurrentReport(ctx context.Context, data ReportData) (*Report, error) {
	s.mu.Lock()
	if s.phase != PhaseReporting {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrWrongPhase, s.phase)
	}
	visitID := s.visit.ID
	index := s.visit.CurrentIndex
	total := len(s.visit.ElevatorIDs)
	elevatorID := s.visit.ElevatorIDs[index]
	s.mu.Unlock()

	if err := validation.Struct(data); err != nil {
		return nil, err
	}

	urls := make([]string, 0, 4)
	slots := []struct {
		name  string
		photo Photo
	}{
		{"before_1", data.BeforePhotos[0]},
		{"before_2", data.BeforePhotos[1]},
		{"after_1", data.AfterPhotos[0]},
		{"after_2", data.AfterPhotos[1]},
	}
	for _, slot := range slots {
		url, err := s.upload(ctx, BucketPhotos, visitID+"/"+elevatorID+"/"+slot.name, slot.photo)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUpload, slot.name, err)
		}
		urls = append(urls, url)
	}

	now := s.svc.now().UTC()
	report := Report{
		ID:                        s.svc.newID(),
		VisitID:                   visitID,
		ElevatorID:                elevatorID,
		InitialStatus:             data.InitialStatus,
		FailureDetails:            data.FailureDetails,
		BeforePhotos:              urls[:2],
		FinalStatus:               data.FinalStatus,
		Observations:              data.Observations,
		AfterPhotos:               urls[2:],
		RequiresParts:             data.RequiresParts,
		RequiresRepair:            data.RequiresRepair,
		RequiresTechnicianSupport: data.RequiresTechnicianSupport,
		SupportDetails:            data.SupportDetails,
		CompletedAt:               now,
	}
	if data.FinalStatus == FinalUnderObservation {
		until := now.Add(ObservationWindow)
		report.ObservationUntil = &until
	}

	row, err := gateway.Encode(report)
	if err != nil {
		return nil, err
	}
	if err := s.svc.gw.Insert(ctx, gateway.TableEmergencyReports, row); err != nil {
		return nil, fmt.Errorf("save emergency report: %w", err)
	}

	if report.RequiresTechnicianSupport {
		s.requestSupport(ctx, report)
	}

	next := index + 1
	patch := gateway.Row{"current_elevator_index": next, "last_saved_at": now}
	match := gateway.Where(gateway.Eq("id", visitID))
	if err := s.svc.gw.Update(ctx, gateway.TableEmergencyVisits, patch, match); err != nil {
		s.log.Warn("failed to advance visit index, queueing update", "index", next, "error", err)
		s.svc.queue.Enqueue(ctx, queue.ActionUpdate, gateway.TableEmergencyVisits, patch, queue.WithMatch(match))
	}

	s.mu.Lock()
	s.reports = append(s.reports, report)
	s.visit.CurrentIndex = next
	s.visit.LastSavedAt = &now
	if next == total {
		s.phase = PhaseAwaitingSignature
	}
	s.mu.Unlock()

	s.svc.activity.Record(ctx, activity.Entry{
		ActorID:  s.technicianID,
		Action:   activity.ActionReportSubmitted,
		Entity:   gateway.TableEmergencyReports,
		EntityID: report.ID,
		Details:  map[string]any{"visit_id": visitID, "elevator_id": elevatorID, "final_status": string(report.FinalStatus)},
	})
	s.log.Info("emergency report submitted", "elevator_id", elevatorID, "index", next, "of", total)
	return &report, nil
}

// requestSupport создает заявку; при ошибке заявка уходит в офлайн-очередь.
func (s *Session) requestSupport(ctx context.Context, report Report) {
	req := SupportRequest{
		ID:           s.svc.newID(),
		VisitID:      report.VisitID,
		ReportID:     report.ID,
		ElevatorID:   report.ElevatorID,
		TechnicianID: s.technicianID,
		Details:      report.SupportDetails,
		Status:       SupportRequestPending,
		CreatedAt:    report.CompletedAt,
	}
	row, err := gateway.Encode(req)
	if err != nil {
		s.log.Error("failed to encode support request", "error", err)
		return
	}
	if err := s.svc.gw.Insert(ctx, gateway.TableSupportRequests, row); err != nil {
		id := s.svc.queue.Enqueue(ctx, queue.ActionInsert, gateway.TableSupportRequests, row)
		s.log.Warn("support request queued", "item_id", id, "error", err)
	}
}

// FinalizeWithSignature загружает подпись и закрывает выезд.
func (s *Session) FinalizeWithSignature(ctx context.Context, name string, image Photo) error {
	s.mu.Lock()
	switch s.phase {
	case PhaseAwaitingSignature:
	case PhaseReporting:
		s.mu.Unlock()
		return ErrReportsPending
	case PhaseCompleted:
		s.mu.Unlock()
		return ErrVisitCompleted
	default:
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWrongPhase, s.phase)
	}
	visitID := s.visit.ID
	total := len(s.visit.ElevatorIDs)
	s.mu.Unlock()

	verr := &validation.Error{}
	if name == "" {
		verr.Add("signature_name", "is required")
	}
	if len(image.Data) == 0 {
		verr.Add("signature_image", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	url, err := s.upload(ctx, BucketSignatures, visitID+"/signature", image)
	if err != nil {
		return fmt.Errorf("%w: signature: %w", ErrUpload, err)
	}

	ended := s.svc.now().UTC()
	err = s.svc.gw.Update(ctx, gateway.TableEmergencyVisits, gateway.Row{
		"status":                 string(VisitCompleted),
		"signature_name":         name,
		"signature_url":          url,
		"ended_at":               ended,
		"current_elevator_index": total,
		"last_saved_at":          ended,
	}, gateway.Where(gateway.Eq("id", visitID)))
	if err != nil {
		return fmt.Errorf("finalize emergency visit: %w", err)
	}

	s.mu.Lock()
	s.visit.Status = VisitCompleted
	s.visit.SignatureName = name
	s.visit.SignatureURL = url
	s.visit.EndedAt = &ended
	s.visit.LastSavedAt = &ended
	s.visit.CurrentIndex = total
	s.phase = PhaseCompleted
	event := CompletedEvent{
		VisitID:      visitID,
		ClientID:     s.visit.ClientID,
		TechnicianID: s.technicianID,
		Elevators:    total,
		EndedAt:      ended,
	}
	s.mu.Unlock()

	s.Close()

	s.svc.activity.Record(ctx, activity.Entry{
		ActorID:  s.technicianID,
		Action:   activity.ActionVisitCompleted,
		Entity:   gateway.TableEmergencyVisits,
		EntityID: visitID,
		Details:  map[string]any{"elevators": total, "signed_by": name},
	})
	s.log.Info("emergency visit completed", "elevators", total)
	s.svc.completed.Publish(event)
	return nil
}

func (s *Session) upload(ctx context.Context, bucket, base string, p Photo) (string, error) {
	contentType := p.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return s.svc.storage.Upload(ctx, bucket, base+extension(contentType), contentType, p.Data)
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ""
}

// startAutoSaveLocked запускает периодическую отметку last_saved_at. Вызывается под s.mu.
func (s *Session) startAutoSaveLocked() {
	if s.stop != nil || s.svc.config.AutoSaveInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.wg.Add(1)
	go s.runAutoSave(ctx, s.svc.config.AutoSaveInterval)
}

func (s *Session) runAutoSave(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.autoSave(ctx)
		}
	}
}

func (s *Session) autoSave(ctx context.Context) {
	s.mu.Lock()
	if s.visit == nil || s.phase == PhaseCompleted {
		s.mu.Unlock()
		return
	}
	visitID := s.visit.ID
	s.mu.Unlock()

	savedAt := s.svc.now().UTC()
	err := s.svc.gw.Update(ctx, gateway.TableEmergencyVisits,
		gateway.Row{"last_saved_at": savedAt}, gateway.Where(gateway.Eq("id", visitID)))
	if err != nil {
		s.log.Warn("emergency auto-save failed", "error", err)
		return
	}

	s.mu.Lock()
	s.visit.LastSavedAt = &savedAt
	s.mu.Unlock()
	s.log.Debug("emergency visit auto-saved")
}

// Close останавливает автосохранение. Выезд остается в работе и может быть продолжен.
func (s *Session) Close() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.wg.Wait()
}
