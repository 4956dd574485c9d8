package gateway

import "errors"

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrInvalidRow    = errors.New("invalid row")
	ErrMalformedRow  = errors.New("malformed row")
	ErrNotFound      = errors.New("row not found")
	ErrUnavailable   = errors.New("gateway unavailable")
)
