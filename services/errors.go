package services

import "errors"

var (
	ErrMissionNotFound  = errors.New("mission not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrValidation       = errors.New("validation failed")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrInvalidSeed      = errors.New("invalid mission seed")
)
