package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyNotified is returned by the ledger when a record already exists
	// for the content item, whatever its status.
	ErrAlreadyNotified = errors.New("content already notified")
	// ErrUnknownToken is returned by Complete for a token with no pending record.
	ErrUnknownToken    = errors.New("unknown or already completed ledger token")
	// ErrNotResettable is returned when a reset targets a non-failed record without force.
	ErrNotResettable   = errors.New("notification record is not resettable")
	ErrRecordNotFound  = errors.New("notification record not found")
	ErrContactNotFound = errors.New("contact message not found")
	ErrValidation      = errors.New("validation failed")

	// Provider error classes. Unavailable and server errors are transient.
	ErrProviderUnavailable = errors.New("email provider unavailable")
	ErrProviderRejected    = errors.New("email provider rejected request")
	ErrProviderServerError = errors.New("email provider server error")
)

// ProviderError carries the remote response details of a failed provider call.
type ProviderError struct {
	Class      error
	Op         string
	StatusCode int
	Message    string
}

// Error formats the operation, class, status and provider message.
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %v (status %d): %s", e.Op, e.Class, e.StatusCode, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Class, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Class)
}

// Unwrap exposes the error class for errors.Is.
func (e *ProviderError) Unwrap() error { return e.Class }

// CampaignError reports which step of the create/send-now sequence failed.
// CampaignID is set when the campaign exists at the provider but was not sent.
type CampaignError struct {
	Stage      FailureStage
	CampaignID string
	Err        error
}

// Error names the failed stage and, when known, the campaign.
func (e *CampaignError) Error() string {
	if e.CampaignID != "" {
		return fmt.Sprintf("campaign %s %s: %v", e.CampaignID, e.Stage, e.Err)
	}
	return fmt.Sprintf("campaign %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *CampaignError) Unwrap() error { return e.Err }

// CreatedNotSent reports whether the campaign exists but the send-now step failed.
func (e *CampaignError) CreatedNotSent() bool {
	return e.Stage == StageSend && e.CampaignID != ""
}

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrProviderServerError)
}

// FieldErrors maps input field names to human readable messages.
type FieldErrors map[string][]string

// Add appends msg to field.
func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// ValidationError is returned for rejected client input. It matches ErrValidation.
type ValidationError struct {
	Fields FieldErrors
}

// Error summarises how many fields were rejected.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %d field(s)", ErrValidation, len(e.Fields))
}

// Unwrap makes every ValidationError match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }
