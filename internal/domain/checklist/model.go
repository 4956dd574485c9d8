// Package checklist - ежемесячный осмотр лифта: каталог вопросов, сессия и сертификация.
package checklist

import (
	"fmt"
	"time"
)

// Frequency - периодичность вопроса каталога.
type Frequency string

const (
	Monthly    Frequency = "monthly"
	Quarterly  Frequency = "quarterly"
	Semiannual Frequency = "semiannual"
)

// Question - неизменяемая запись каталога.
type Question struct {
	ID             int       `json:"id" validate:"required"`
	SequenceNumber int       `json:"sequence_number" validate:"min=0"`
	Section        string    `json:"section" validate:"required"`
	Text           string    `json:"text" validate:"required"`
	Frequency      Frequency `json:"frequency" validate:"required,oneof=monthly quarterly semiannual"`
	HydraulicOnly  bool      `json:"hydraulic_only"`
}

// AnswerStatus - состояние ответа на вопрос.
type AnswerStatus string

const (
	StatusPending  AnswerStatus = "pending"
	StatusApproved AnswerStatus = "approved"
	StatusRejected AnswerStatus = "rejected"
)

func (s AnswerStatus) Validate() error {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Answer - ответ на один вопрос в рамках сессии. Ключ upsert - (session_id, question_id).
type Answer struct {
	SessionID    string       `json:"session_id" validate:"required"`
	QuestionID   int          `json:"question_id" validate:"required"`
	Status       AnswerStatus `json:"status" validate:"required,oneof=pending approved rejected"`
	Observations string       `json:"observations"`
	Photo1URL    *string      `json:"photo1_url"`
	Photo2URL    *string      `json:"photo2_url"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// HasEvidence проверяет наличие замечания и обеих фотографий.
func (a Answer) HasEvidence() bool {
	return a.Observations != "" && nonEmpty(a.Photo1URL) && nonEmpty(a.Photo2URL)
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

// Period - отчетный месяц.
type Period struct {
	Month int `json:"month" validate:"min=1,max=12"`
	Year  int `json:"year" validate:"min=2000"`
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// PeriodOf возвращает период, в который попадает t.
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// SessionStatus - состояние сессии осмотра.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// SessionRecord - строка таблицы checklist_sessions.
type SessionRecord struct {
	ID                string        `json:"id" validate:"required"`
	ElevatorID        string        `json:"elevator_id" validate:"required"`
	TechnicianID      string        `json:"technician_id" validate:"required"`
	ClientID          string        `json:"client_id" validate:"required"`
	Month             int           `json:"month" validate:"min=1,max=12"`
	Year              int           `json:"year" validate:"min=2000"`
	LastCertification *time.Time    `json:"last_certification_date"`
	NextCertification *time.Time    `json:"next_certification_date"`
	NotLegible        bool          `json:"certification_not_legible"`
	Status            SessionStatus `json:"status" validate:"required,oneof=in_progress completed"`
	ChangeCounter     int           `json:"change_counter" validate:"min=0"`
	LastSavedAt       *time.Time    `json:"last_saved_at"`
	CompletedAt       *time.Time    `json:"completed_at"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func (r SessionRecord) Period() Period {
	return Period{Month: r.Month, Year: r.Year}
}

func (r SessionRecord) Certification() Certification {
	return Certification{
		LastDate:   r.LastCertification,
		NextDate:   r.NextCertification,
		NotLegible: r.NotLegible,
	}
}

// CompletedEvent публикуется после завершения сессии.
type CompletedEvent struct {
	SessionID    string
	ElevatorID   string
	TechnicianID string
	ClientID     string
	Period       Period
	Rejected     int
	CompletedAt  time.Time
}
