package store

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrSessionNotFound   = errors.New("session not found")
	ErrItineraryNotFound = errors.New("itinerary not found")
)
