// Package emergency - аварийный выезд на площадку с несколькими неисправными лифтами.
package emergency

import (
	"time"
)

// ObservationWindow - срок, в течение которого повторный отказ лифта "под наблюдением"
// должен закрываться конкретным исходом. Правило применяется вне ядра.
const ObservationWindow = 15 * 24 * time.Hour

// Бакеты файлового хранилища.
const (
	BucketPhotos     = "emergency-photos"
	BucketSignatures = "signatures"
)

// Phase - этап прохождения выезда.
type Phase string

const (
	PhaseScanning          Phase = "scanning"
	PhaseSelecting         Phase = "selecting_failed_elevators"
	PhaseReporting         Phase = "reporting"
	PhaseAwaitingSignature Phase = "awaiting_signature"
	PhaseCompleted         Phase = "completed"
)

type VisitStatus string

const (
	VisitInProgress VisitStatus = "in_progress"
	VisitCompleted  VisitStatus = "completed"
)

type InitialStatus string

const (
	InitialStopped InitialStatus = "stopped"
	InitialRunning InitialStatus = "running"
)

type FinalStatus string

const (
	FinalOperational      FinalStatus = "operational"
	FinalUnderObservation FinalStatus = "under_observation"
	FinalStopped          FinalStatus = "stopped"
)

// Building - данные площадки, фиксируются при создании выезда.
type Building struct {
	Name    string `json:"building_name"`
	Address string `json:"building_address"`
}

// Visit - строка таблицы emergency_visits.
type Visit struct {
	ID            string      `json:"id" validate:"required"`
	ClientID      string      `json:"client_id" validate:"required"`
	TechnicianID  string      `json:"technician_id" validate:"required"`
	BuildingName  string      `json:"building_name"`
	Address       string      `json:"building_address"`
	ElevatorIDs   []string    `json:"elevators_in_failure" validate:"min=1,dive,required"`
	CurrentIndex  int         `json:"current_elevator_index" validate:"min=0"`
	Status        VisitStatus `json:"status" validate:"required,oneof=in_progress completed"`
	SignatureName string      `json:"signature_name"`
	SignatureURL  string      `json:"signature_url"`
	StartedAt     time.Time   `json:"started_at"`
	EndedAt       *time.Time  `json:"ended_at"`
	LastSavedAt   *time.Time  `json:"last_saved_at"`
}

// Photo - снимок до загрузки в хранилище.
type Photo struct {
	Data        []byte `json:"data" validate:"min=1"`
	ContentType string `json:"content_type"`
}

// ReportData - форма отчета по текущему лифту.
type ReportData struct {
	InitialStatus             InitialStatus `json:"initial_status" validate:"required,oneof=stopped running"`
	FailureDetails            string        `json:"failure_details" validate:"required"`
	BeforePhotos              []Photo       `json:"before_photos" validate:"len=2,dive"`
	FinalStatus               FinalStatus   `json:"final_status" validate:"required,oneof=operational under_observation stopped"`
	Observations              string        `json:"observations" validate:"required"`
	AfterPhotos               []Photo       `json:"after_photos" validate:"len=2,dive"`
	RequiresParts             bool          `json:"requires_parts"`
	RequiresRepair            bool          `json:"requires_repair"`
	RequiresTechnicianSupport bool          `json:"requires_technician_support"`
	SupportDetails            string        `json:"support_details"`
}

// Report - строка таблицы emergency_reports, создается только при отправке отчета.
type Report struct {
	ID                        string        `json:"id" validate:"required"`
	VisitID                   string        `json:"visit_id" validate:"required"`
	ElevatorID                string        `json:"elevator_id" validate:"required"`
	InitialStatus             InitialStatus `json:"initial_status" validate:"required,oneof=stopped running"`
	FailureDetails            string        `json:"failure_details" validate:"required"`
	BeforePhotos              []string      `json:"before_photos" validate:"len=2"`
	FinalStatus               FinalStatus   `json:"final_status" validate:"required,oneof=operational under_observation stopped"`
	Observations              string        `json:"observations"`
	AfterPhotos               []string      `json:"after_photos" validate:"len=2"`
	RequiresParts             bool          `json:"requires_parts"`
	RequiresRepair            bool          `json:"requires_repair"`
	RequiresTechnicianSupport bool          `json:"requires_technician_support"`
	SupportDetails            string        `json:"support_details"`
	ObservationUntil          *time.Time    `json:"observation_until"`
	CompletedAt               time.Time     `json:"completed_at"`
}

// SupportRequestPending - начальный статус заявки на помощь.
const SupportRequestPending = "pending"

// SupportRequest - заявка на помощь второго техника по отчету.
type SupportRequest struct {
	ID           string    `json:"id" validate:"required"`
	VisitID      string    `json:"visit_id" validate:"required"`
	ReportID     string    `json:"report_id" validate:"required"`
	ElevatorID   string    `json:"elevator_id" validate:"required"`
	TechnicianID string    `json:"technician_id" validate:"required"`
	Details      string    `json:"details"`
	Status       string    `json:"status" validate:"required"`
	CreatedAt    time.Time `json:"created_at"`
}

// CompletedEvent публикуется после подписи выезда.
type CompletedEvent struct {
	VisitID      string
	ClientID     string
	TechnicianID string
	Elevators    int
	EndedAt      time.Time
}
