package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"notical/internal/notion"
)

// Upstream error classes. The fetcher maps source API error codes onto
// these; callers classify with errors.Is.
var (
	ErrSourceUnavailable = errors.New("source database unavailable")
	ErrUnauthorized      = errors.New("source rejected credentials")
	ErrInvalidFilter     = errors.New("source rejected date filter")
	ErrInvalidSortField  = errors.New("source rejected sort field")
)

// ConversionError records why a single record could not be normalized.
// It is created during normalization, collected by the aggregator, and
// never fatal on its own.
type ConversionError struct {
	RecordID string
	Reason   string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("record %s: %s", e.RecordID, e.Reason)
}

// AllRecordsInvalidError is the escalated failure when a batch produced
// zero usable events but at least one conversion error.
type AllRecordsInvalidError struct {
	FirstReason string
	Additional  int
}

func (e *AllRecordsInvalidError) Error() string {
	if e.Additional == 0 {
		return fmt.Sprintf("all records invalid: %s", e.FirstReason)
	}
	return fmt.Sprintf("all records invalid: %s (and %d more)", e.FirstReason, e.Additional)
}

// classifyQueryError maps a source API error onto the pipeline taxonomy.
// Transport failures (including context cancellation) are wrapped as-is
// so errors.Is still sees the cause.
func classifyQueryError(err error) error {
	var apiErr *notion.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("query source: %w", err)
	}
	switch apiErr.Code {
	case notion.CodeObjectNotFound:
		return fmt.Errorf("%w: %s", ErrSourceUnavailable, apiErr.Message)
	case notion.CodeUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	case notion.CodeValidationError:
		// The source uses one code for both bad filters and bad sorts;
		// the message is the only discriminator.
		if strings.Contains(strings.ToLower(apiErr.Message), "sort") {
			return fmt.Errorf("%w: %s", ErrInvalidSortField, apiErr.Message)
		}
		return fmt.Errorf("%w: %s", ErrInvalidFilter, apiErr.Message)
	default:
		return fmt.Errorf("%w: %s", ErrSourceUnavailable, apiErr.Message)
	}
}
