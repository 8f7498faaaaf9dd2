package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotRegistered         = errors.New("participant is not registered")
	ErrAlreadyRegistered     = errors.New("participant is already registered")
	ErrGameAlreadyStarted    = errors.New("the round has already started")
	ErrNotEnoughParticipants = errors.New("at least 2 participants are required")
	ErrDuplicateParticipant  = errors.New("participant appears more than once")
	ErrInfeasible            = errors.New("no valid assignment found within the attempt budget")
	ErrNoAssignment          = errors.New("no assignment for this participant")
	ErrReceiverMissing       = errors.New("assigned receiver is no longer registered")
	ErrIdeasDisabled         = errors.New("gift ideas are not configured")
)

// ValidationError reports an empty or otherwise unusable input field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must not be empty", e.Field)
}

// MissingWishlistError names the first participant blocking a round start.
type MissingWishlistError struct {
	UserID      string
	DisplayName string
}

func (e *MissingWishlistError) Error() string {
	return fmt.Sprintf("participant %s has not submitted a wishlist", e.DisplayName)
}

// StorageError wraps a failed load or save of a persisted document.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// DeliveryFailure records one recipient the transport rejected.
type DeliveryFailure struct {
	ConversationID string
	DisplayName    string
	Err            error
}

// DeliveryReport aggregates a fan-out; one failure never stops the rest.
type DeliveryReport struct {
	Sent     int
	Failures []DeliveryFailure
}

func (r DeliveryReport) Failed() int { return len(r.Failures) }
