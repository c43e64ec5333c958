// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidArgument is returned when a repository operation receives empty or nil input.
// It indicates a caller bug and is never retried.
type InvalidArgument struct {
	base
}

// Error returns the error message for InvalidArgument.
func (i InvalidArgument) Error() string {
	return i.error()
}

// NewInvalidArgument creates a new InvalidArgument error with the provided message.
func NewInvalidArgument(message string, err ...error) InvalidArgument {
	return InvalidArgument{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag,omitempty"`
	Message string `json:"message"`
}

// String renders the field error as "field: message".
func (f FieldError) String() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// ValidationFailed rejects a whole batch before any store mutation happened.
type ValidationFailed struct {
	base
	DocumentID string
	Fields     []FieldError
}

// Error returns the error message for ValidationFailed including the field errors.
func (v ValidationFailed) Error() string {
	if len(v.Fields) == 0 {
		return v.error()
	}
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("%s [%s]", v.error(), strings.Join(parts, "; "))
}

// NewValidationFailed creates a new ValidationFailed error carrying the field errors.
func NewValidationFailed(message string, fields []FieldError, err ...error) ValidationFailed {
	return ValidationFailed{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
		Fields: fields,
	}
}

// ItemError describes a document the store refused in a bulk request.
type ItemError struct {
	ID     string `json:"id"`
	Index  string `json:"index,omitempty"`
	Status int    `json:"status,omitempty"`
	Reason string `json:"reason"`
}

// StoreWriteFailed is returned when a bulk write or delete was partially or fully rejected.
// Items the store already applied in the same request are not rolled back.
type StoreWriteFailed struct {
	base
	Items []ItemError
}

// Error returns the error message for StoreWriteFailed.
func (s StoreWriteFailed) Error() string {
	if len(s.Items) == 0 {
		return s.error()
	}
	ids := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		ids = append(ids, item.ID)
	}
	return fmt.Sprintf("%s (failed items: %s)", s.error(), strings.Join(ids, ","))
}

// NewStoreWriteFailed creates a new StoreWriteFailed error naming the failing items.
func NewStoreWriteFailed(message string, items []ItemError, err ...error) StoreWriteFailed {
	return StoreWriteFailed{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
		Items: items,
	}
}

// StoreQueryFailed is returned when a search or scroll page request failed.
type StoreQueryFailed struct {
	base
}

// Error returns the error message for StoreQueryFailed.
func (s StoreQueryFailed) Error() string {
	return s.error()
}

// NewStoreQueryFailed creates a new StoreQueryFailed error with the provided message.
func NewStoreQueryFailed(message string, err ...error) StoreQueryFailed {
	return StoreQueryFailed{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}
