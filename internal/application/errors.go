package application

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a create collides with an existing record.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when authentication input does not match a user.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrNotAllowlisted is returned when the email is not on the sign-in allow-list.
	ErrNotAllowlisted = errors.New("application: email not allow-listed")
	// ErrSessionExpired is returned when the presented session token has expired.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when the presented session token was revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrLoginLinkInvalid is returned when a login link token is unknown, expired or already used.
	ErrLoginLinkInvalid = errors.New("application: login link invalid")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ConflictError reports that a requested interval overlaps committed
// reservations for the same room. The slots that blocked the request are
// attached so callers can render them.
type ConflictError struct {
	RoomID    string
	Conflicts []Reservation
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("room %s is already reserved for the requested time", c.RoomID)
}

// SeriesOccurrenceConflict identifies one occurrence of a requested weekly
// series that collided with committed reservations. Week is numbered from 1
// to match the occurrence labels shown to users; Start is the occurrence's
// start instant.
type SeriesOccurrenceConflict struct {
	Week  int
	Start time.Time
}

// SeriesConflictError reports which occurrences of a requested weekly series
// collide with committed reservations. The series is never partially written.
type SeriesConflictError struct {
	RoomID      string
	Occurrences []SeriesOccurrenceConflict
}

// Error implements the error interface.
func (c *SeriesConflictError) Error() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("series has %d conflicting occurrences", len(c.Occurrences))
}

// Weeks lists the 1-indexed week numbers of the conflicting occurrences.
func (c *SeriesConflictError) Weeks() []int {
	if c == nil {
		return nil
	}
	weeks := make([]int, 0, len(c.Occurrences))
	for _, occurrence := range c.Occurrences {
		weeks = append(weeks, occurrence.Week)
	}
	return weeks
}
