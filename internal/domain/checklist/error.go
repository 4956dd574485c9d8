package checklist

import "errors"

var (
	ErrInvalidStatus       = errors.New("invalid answer status")
	ErrUnknownQuestion     = errors.New("question is not part of this checklist")
	ErrSessionCompleted    = errors.New("checklist session is already completed")
	ErrIncomplete          = errors.New("checklist is not ready to complete")
	ErrCertificationNeeded = errors.New("certification must be captured before the checklist")
)
