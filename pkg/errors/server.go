// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package errors

import "errors"

// Unexpected is returned for failures that retrying will not fix, such as an
// unreadable configuration file or a payload that cannot be encoded.
type Unexpected struct {
	base
}

// Error returns the error message for Unexpected.
func (u Unexpected) Error() string {
	return u.error()
}

// NewUnexpected creates a new Unexpected error with the provided message.
func NewUnexpected(message string, err ...error) Unexpected {
	return Unexpected{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// ServiceUnavailable is returned when the index store, the cache or NATS could
// not be reached. The operation may succeed when retried.
type ServiceUnavailable struct {
	base
}

// Error returns the error message for ServiceUnavailable.
func (su ServiceUnavailable) Error() string {
	return su.error()
}

// NewServiceUnavailable creates a new ServiceUnavailable error with the provided message.
func NewServiceUnavailable(message string, err ...error) ServiceUnavailable {
	return ServiceUnavailable{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// IsPermanent reports whether err can never succeed on retry: invalid input,
// a missing or conflicting document, or an unexpected failure.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var (
		invalidArgument  InvalidArgument
		validationFailed ValidationFailed
		validation       Validation
		notFound         NotFound
		conflict         Conflict
		unexpected       Unexpected
	)
	return errors.As(err, &invalidArgument) ||
		errors.As(err, &validationFailed) ||
		errors.As(err, &validation) ||
		errors.As(err, &notFound) ||
		errors.As(err, &conflict) ||
		errors.As(err, &unexpected)
}

// IsTransient reports whether err is worth retrying: an unreachable dependency,
// a failed search page or a bulk write the store refused.
// Errors that are also permanent are never transient.
func IsTransient(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}

	var (
		unavailable ServiceUnavailable
		queryFailed StoreQueryFailed
		writeFailed StoreWriteFailed
	)
	return errors.As(err, &unavailable) || errors.As(err, &queryFailed) || errors.As(err, &writeFailed)
}
