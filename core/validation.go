package core

import (
	"fmt"
	"strings"
	"time"
)

// ValidateRecord checks a record before it is written to a store.
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.Key == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrMissingKey)
	}

	if strings.TrimSpace(record.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyText)
	}

	if err := ValidateKind(record.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if !IsValidTimestamp(record.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrInvalidTimestamp)
	}

	return nil
}

func ValidateQueryRecord(record *QueryRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidQueryRecord)
	}

	if strings.TrimSpace(record.Query) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQueryRecord, ErrEmptyText)
	}

	if !IsValidTimestamp(record.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidQueryRecord, ErrInvalidTimestamp)
	}

	return nil
}

func ValidateKind(kind Kind) error {
	if _, ok := kindNames[kind]; !ok {
		return fmt.Errorf("%w: value %d", ErrInvalidKind, kind)
	}
	return nil
}

// IsValidTimestamp reports whether ts is not in the future, allowing one
// second of clock skew.
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now().Add(time.Second))
}
