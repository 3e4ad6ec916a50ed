package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock-insight/src/logger"
)

// User-visible messages.
const (
	MsgGenericFailure = "Unable to analyze this stock. Please try another ticker."
	MsgEmptySeries    = "No data found for this ticker. Check the symbol and date range."
	MsgNotEnoughData  = "Not enough data available for this stock."
)

// ErrNotFound marks an upstream 404; sources treat it as an empty result.
var ErrNotFound = errors.New("resource not found")

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type InsightError struct {
	Message string
	Cause   error
}

func (e *InsightError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InsightError) Unwrap() error {
	return e.Cause
}

// Distinct error kinds for errors.As
type ConfigurationError struct{ InsightError }
type NetworkError struct{ InsightError }
type DataSourceError struct{ InsightError }
type DatabaseError struct{ InsightError }
type ValidationError struct{ InsightError }
type PredictionError struct{ InsightError }
type EmptySeriesError struct{ InsightError }

// -----------------------------------------------------------------------------

func NewNetworkError(msg string, cause error) error {
	return &NetworkError{InsightError{Message: msg, Cause: cause}}
}

func NewDataSourceError(msg string, cause error) error {
	return &DataSourceError{InsightError{Message: msg, Cause: cause}}
}

func NewDatabaseError(msg string, cause error) error {
	return &DatabaseError{InsightError{Message: msg, Cause: cause}}
}

func NewValidationError(msg string) error {
	return &ValidationError{InsightError{Message: msg}}
}

func NewPredictionError(msg string, cause error) error {
	return &PredictionError{InsightError{Message: msg, Cause: cause}}
}

func NewEmptySeriesError(ticker string) error {
	return &EmptySeriesError{InsightError{Message: fmt.Sprintf("no data returned for %s", ticker)}}
}

// -----------------------------------------------------------------------------

// IsValidation reports whether err is caused by bad user input.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsEmptySeries reports whether err means the fetch returned nothing.
func IsEmptySeries(err error) bool {
	var e *EmptySeriesError
	return errors.As(err, &e)
}

// -----------------------------------------------------------------------------

// UserMessage maps any pipeline error to the text shown to the user.
// Validation messages pass through; everything else collapses to one message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	if IsEmptySeries(err) {
		return MsgEmptySeries
	}
	return MsgGenericFailure
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to maxRetries times, doubling baseDelay between attempts.
func RetryWithBackoff(ctx context.Context, log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &InsightError{Message: fmt.Sprintf("%s failed after %d attempts", operation, maxRetries), Cause: lastErr}
}
