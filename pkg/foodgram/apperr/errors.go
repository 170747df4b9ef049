// Package apperr defines the error categories returned by the service layer and
// maps them onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Client-facing details for responses that carry no field map
const (
	DetailNotFound = "Страница не найдена."
	DetailInternal = "Внутренняя ошибка сервера."
)

var (
	// ErrForbidden is returned when the caller mutates a row they do not own
	ErrForbidden = errors.New("У вас недостаточно прав для выполнения данного действия.")
	// ErrEmptyCart is returned when a shopping list is requested for an empty cart
	ErrEmptyCart = errors.New("Список покупок пуст!")
	// ErrGenerationExhausted is returned when no free short id was found within the retry budget
	ErrGenerationExhausted = errors.New("Не удалось создать короткую ссылку, попробуйте ещё раз.")
)

// ValidationError carries per-field messages for a rejected payload
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError builds a ValidationError with a single field message
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// Add appends a message for a field
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any field message was recorded
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// NotFoundError reports a referenced entity that does not exist
type NotFoundError struct {
	Resource string
	ID       any
}

// NotFound is a shorthand constructor for NotFoundError
func NotFound(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// ConflictError reports a duplicate association or a forbidden self-reference
type ConflictError struct {
	Message string
}

// Conflict is a shorthand constructor for ConflictError
func Conflict(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func (e *ConflictError) Error() string {
	return e.Message
}
