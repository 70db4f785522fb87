package domain

import "errors"

// Caller-visible failures. None of them are retried by the service.
var (
	ErrNotFound              = errors.New("resource not found")
	ErrInvalidCredentials    = errors.New("invalid password or name")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrDuplicateReview       = errors.New("movie already reviewed by user")
	ErrInvalidRating         = errors.New("invalid rating")
	ErrInvalidInput          = errors.New("invalid input")
)
