package emergency

import "errors"

var (
	ErrWrongPhase     = errors.New("operation is not allowed in the current phase")
	ErrReportsPending = errors.New("not every elevator has a report yet")
	ErrVisitCompleted = errors.New("emergency visit is already completed")
	ErrNoElevators    = errors.New("client has no registered elevators")
	ErrUpload         = errors.New("photo upload failed")
)
