/*
errors.go - Centralized error types for the loyalty engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Only the Recorder and the stores return errors. Evaluators are total and
  degrade malformed campaign data to safe values instead.

ERROR CATEGORIES:
  1. Validation errors - Recorder preconditions, surfaced verbatim to the user
  2. Store errors - Lookup misses, duplicate ids, forbidden campaign edits

USAGE:
  tx, err := recorder.Record(ctx, input)
  if errors.Is(err, loyalty.ErrMissingClient) {
      // ask the operator for the client's ID
  }

  var verr *loyalty.ValidationError
  if errors.As(err, &verr) {
      resp.Code = verr.Code
  }

SEE ALSO:
  - recorder.go: Produces validation errors in a fixed order
  - store.go: Store interfaces returning store errors
*/
package loyalty

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingClient is returned when the client id is blank after trimming.
	ErrMissingClient = errors.New("missing client")

	// ErrCampaignNotFound is returned when the campaign id does not resolve.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrCampaignNotActive is returned when recording against a campaign whose
	// lifecycle status is neither active nor open.
	ErrCampaignNotActive = errors.New("campaign not active")

	// ErrNoItems is returned when a purchase has no items.
	ErrNoItems = errors.New("no items")

	// ErrDuplicateTransaction is returned when appending an id that exists.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")

	// ErrTransactionNotFound is returned when deleting an unknown transaction.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrClientNotFound is returned when a referenced client doesn't exist.
	ErrClientNotFound = errors.New("client not found")

	// ErrCampaignTypeChange is returned when a save would change the type of
	// an existing campaign. Types are immutable after creation.
	ErrCampaignTypeChange = errors.New("campaign type cannot change")
)

// Validation codes carried by ValidationError.Code.
const (
	CodeMissingClient     = "missing_client"
	CodeCampaignNotFound  = "campaign_not_found"
	CodeCampaignNotActive = "campaign_not_active"
	CodeNoItems           = "no_items"
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes the first failed Recorder precondition.
type ValidationError struct {
	Code    string
	Field   string
	Message string
	err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

func newValidationError(sentinel error, code, field, message string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: message, err: sentinel}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if err is a Recorder precondition failure.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrClientNotFound)
}
