package model

import (
	"strings"
	"unicode/utf8"
)

// Outcome is the terminal state of one row-processing invocation.
type Outcome string

const (
	OutcomeSkipped         Outcome = "skipped"
	OutcomeCacheHit        Outcome = "cache_hit"
	OutcomeInvalidURL      Outcome = "invalid_url"
	OutcomeFetchError      Outcome = "fetch_error"
	OutcomeGenerationError Outcome = "generation_error"
	OutcomeGenerated       Outcome = "generated"
)

// ErrorPrefix marks a row-local failure recorded in the Email Body column.
const ErrorPrefix = "ERROR:"

// Fixed row-local error bodies.
const (
	BodyInvalidURL = "ERROR: Invalid website URL"
	BodyFetchError = "ERROR: Could not fetch website"
)

// ProcessedThreshold is the Email Body length, in characters, above which a row counts as
// already processed.
const ProcessedThreshold = 10

// ErrorBody formats a row-local failure detail as an Email Body value.
func ErrorBody(detail string) string {
	return ErrorPrefix + " " + detail
}

// IsErrorBody reports whether an Email Body value records a failure.
func IsErrorBody(body string) bool {
	return strings.HasPrefix(body, ErrorPrefix)
}

// IsProcessedBody reports whether an Email Body value marks the row done.
func IsProcessedBody(body string) bool {
	return utf8.RuneCountInString(body) > ProcessedThreshold
}

// IsError reports whether the outcome is a row-local failure.
func (o Outcome) IsError() bool {
	switch o {
	case OutcomeInvalidURL, OutcomeFetchError, OutcomeGenerationError:
		return true
	default:
		return false
	}
}
