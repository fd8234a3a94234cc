package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrLedgerUnavailable is returned when the ledger gateway cannot be reached or answers
	// with a server error. Callers may retry.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrMintRejected is returned when the ledger refuses a broadcast transaction
	ErrMintRejected = errors.New("mint rejected by ledger")

	// ErrMintInProgress is returned when another mint holds the mint slot
	ErrMintInProgress = errors.New("mint in progress")

	// ErrUploadFailed is returned when media or metadata cannot be stored
	ErrUploadFailed = errors.New("upload failed")

	// ErrConsistency is returned when an event refers to state the store does not have yet
	ErrConsistency = errors.New("consistency error")

	// ErrAssetNotFound is returned when an asset is not found
	ErrAssetNotFound = errors.New("asset not found")

	// ErrDuplicateEvent is returned when an event was already applied
	ErrDuplicateEvent = errors.New("event already applied")

	// ErrMaxRetriesExceeded is returned when the subscriber gives up reconnecting
	ErrMaxRetriesExceeded = errors.New("max reconnect retries exceeded")

	// ErrInvalidConfig is returned when configuration fails validation
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidRequest is returned when a mint request fails validation
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidEvent is returned for events that can never be applied
	ErrInvalidEvent = errors.New("invalid event")
)

// RejectedError carries the ledger's rejection reason for a broadcast
type RejectedError struct {
	TxID       string
	Reason     string
	ReasonData string
}

func (e *RejectedError) Error() string {
	if e.ReasonData != "" {
		return fmt.Sprintf("%s: %s (%s)", ErrMintRejected.Error(), e.Reason, e.ReasonData)
	}
	return fmt.Sprintf("%s: %s", ErrMintRejected.Error(), e.Reason)
}

// Is lets errors.Is match ErrMintRejected
func (e *RejectedError) Is(target error) bool {
	return target == ErrMintRejected
}
