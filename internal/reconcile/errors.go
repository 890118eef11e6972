package reconcile

import (
	"errors"
	"fmt"

	"sacco/internal/core"
)

var (
	ErrInvalidLimit    = errors.New("limit must not be negative")
	ErrEmptyMemberID   = errors.New("member id is required")
	errNoMemberCounter = errors.New("no member count source configured")
)

// AggregationError reports that one of the two contribution fetches failed,
// so no consistent result could be produced.
type AggregationError struct {
	Source core.SourceType
	Err    error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s fetch failed: %v", sourceName(e.Source), e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

func sourceName(s core.SourceType) string {
	switch s {
	case core.Periodic:
		return "periodic dues"
	case core.Capital:
		return "capital subscriptions"
	}
	return string(s)
}
