package queue

import "errors"

var (
	ErrUnknownAction    = errors.New("unknown queue action")
	ErrReplayInProgress = errors.New("replay already in progress")
	ErrItemNotFound     = errors.New("queue item not found")
)
