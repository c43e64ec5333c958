// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package validation implements document validation using struct tags.
package validation

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
)

// StructValidator validates documents with go-playground/validator struct tags.
// Field errors are reported with their JSON names.
type StructValidator struct {
	validate *validator.Validate
}

// Ensure StructValidator implements the Validator interface
var _ port.Validator = (*StructValidator)(nil)

// NewStructValidator creates a validator reporting JSON field names
func NewStructValidator() *StructValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &StructValidator{validate: v}
}

// Validate validates doc and returns errors.ValidationFailed describing every failing field
func (s *StructValidator) Validate(ctx context.Context, doc any) error {
	err := s.validate.StructCtx(ctx, doc)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if stderrors.As(err, &invalid) {
		return errors.NewValidationFailed("document cannot be validated", nil, err)
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.NewValidationFailed("document is invalid", nil, err)
	}

	fields := make([]errors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, errors.FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: message(fe),
		})
	}

	vf := errors.NewValidationFailed("document is invalid", fields)
	if d, ok := doc.(model.Document); ok {
		vf.DocumentID = d.GetID()
	}

	slog.DebugContext(ctx, "document failed validation",
		"document_id", vf.DocumentID,
		"field_errors", len(fields),
	)
	return vf
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
