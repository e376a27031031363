package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrBackpressure      = errors.New("submission queue is full")
	ErrNotStarted        = errors.New("service not started")
	ErrNoStanding        = errors.New("user has no entry in event")
)
