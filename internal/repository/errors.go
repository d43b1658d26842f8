package repository

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrNoSeatsAvailable = errors.New("no seats available")
	ErrSlotInactive     = errors.New("schedule event inactive")
	ErrReferenced       = errors.New("still referenced")
)
