package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInUse              = errors.New("resource is still referenced")
	ErrTerminalStatus     = errors.New("order is in a terminal status")
	ErrInvalidStatus      = errors.New("invalid status transition")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DeniedError carries the reason an authorization decision was negative.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return "permission denied: " + e.Reason }

func (e *DeniedError) Is(target error) bool { return target == ErrPermissionDenied }

// ValidationError maps field names to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// notFound turns gorm's miss into ErrNotFound and wraps everything else.
func notFound(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
