package roster

import (
	"errors"

	"roster_parser/internal/daterange"
)

// Trip-level error taxonomy. None of these abort a file: the trip is
// excluded from the aggregates that need the missing data and the issue is
// tallied.
var (
	ErrMalformedDateExpression = daterange.ErrMalformedDateExpression
	ErrMalformedTripBlock      = errors.New("malformed trip block")
	ErrMissingCreditData       = errors.New("missing credit data")
	ErrUnknownBaseAirport      = errors.New("unknown base airport")
)

// Issue kinds as they appear in diagnostics output.
const (
	IssueMalformedDate  = "malformed_date_expression"
	IssueMalformedBlock = "malformed_trip_block"
	IssueMissingCredit  = "missing_credit_data"
	IssueUnknownBase    = "unknown_base_airport"
	IssueInvalidTime    = "invalid_time"
	IssueOther          = "other"
)

// Issue is a recoverable problem found while parsing or classifying a trip.
type Issue struct {
	Kind   string `json:"kind"`
	Trip   string `json:"trip,omitempty"`
	Line   int    `json:"line,omitempty"`
	Detail string `json:"detail"`
}

// NewIssue builds an Issue whose kind is derived from err.
func NewIssue(err error, trip string, line int) Issue {
	return Issue{
		Kind:   KindOf(err),
		Trip:   trip,
		Line:   line,
		Detail: err.Error(),
	}
}

// KindOf maps an error onto its diagnostic kind.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrMalformedDateExpression):
		return IssueMalformedDate
	case errors.Is(err, ErrMalformedTripBlock):
		return IssueMalformedBlock
	case errors.Is(err, ErrMissingCreditData):
		return IssueMissingCredit
	case errors.Is(err, ErrUnknownBaseAirport):
		return IssueUnknownBase
	case errors.Is(err, ErrInvalidTime):
		return IssueInvalidTime
	default:
		return IssueOther
	}
}
