package checklist

import (
	"time"
)

// ExpiringSoonDays - граница, до которой сертификат считается истекающим.
const ExpiringSoonDays = 120

// CertificationStatus вычисляется из даты следующей сертификации, не хранится.
type CertificationStatus string

const (
	CertificationExpired      CertificationStatus = "expired"
	CertificationExpiringSoon CertificationStatus = "expiring_soon"
	CertificationValid        CertificationStatus = "valid"
	CertificationUnknown      CertificationStatus = "unknown"
)

// Certification - данные с таблички сертификата, снимаются один раз перед осмотром.
type Certification struct {
	LastDate   *time.Time `json:"last_date"`
	NextDate   *time.Time `json:"next_date"`
	NotLegible bool       `json:"not_legible"`
}

// NewCertification заполняет NextDate по последней дате.
// Нечитаемая табличка хранится без дат.
func NewCertification(lastDate *time.Time, notLegible bool) Certification {
	if notLegible || lastDate == nil {
		return Certification{NotLegible: notLegible}
	}
	last := dateOf(*lastDate)
	next := NextCertificationDate(last)
	return Certification{LastDate: &last, NextDate: &next}
}

// Captured сообщает, что техник снял данные сертификата.
func (c Certification) Captured() bool {
	return c.NotLegible || c.LastDate != nil
}

// NextCertificationDate прибавляет календарный год. 29 февраля переходит в 28 февраля.
func NextCertificationDate(last time.Time) time.Time {
	y, m, d := last.Date()
	next := time.Date(y+1, m, d, 0, 0, 0, 0, time.UTC)
	if next.Month() != m {
		next = time.Date(y+1, m+1, 0, 0, 0, 0, 0, time.UTC)
	}
	return next
}

// DaysUntil - разница в календарных днях между today и date.
func DaysUntil(date, today time.Time) int {
	return int(dateOf(date).Sub(dateOf(today)).Hours() / 24)
}

// Status вычисляет состояние сертификата на дату today.
func (c Certification) Status(today time.Time) CertificationStatus {
	if c.NotLegible || c.NextDate == nil {
		return CertificationUnknown
	}
	return StatusForDays(DaysUntil(*c.NextDate, today))
}

// StatusForDays классифицирует остаток дней до истечения.
func StatusForDays(days int) CertificationStatus {
	switch {
	case days < 0:
		return CertificationExpired
	case days <= ExpiringSoonDays:
		return CertificationExpiringSoon
	}
	return CertificationValid
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
