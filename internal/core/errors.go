package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrCapacityExceeded = errors.New("allocation exceeds available balance")
	ErrStorage          = errors.New("storage failure")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// ValidationError carries per-field problems for malformed or missing input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError with a single field message.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records a problem for field. The first message for a field wins.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// Merge copies the field messages of other into e.
func (e *ValidationError) Merge(other error) {
	var verr *ValidationError
	if errors.As(other, &verr) {
		for f, m := range verr.Fields {
			e.Add(f, m)
		}
	}
}

// OrNil returns nil when no field was recorded, so callers never return a typed nil.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func NewNotFound(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// CapacityExceededError rejects an allocation larger than the funding account's headroom.
type CapacityExceededError struct {
	AccountID int64
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("allocation would exceed account balance: available %s, requested %s",
		e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }

// StorageError wraps a failure of the persistence layer itself.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// WrapStorage wraps err as a StorageError unless it already belongs to the taxonomy.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrCapacityExceeded) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
