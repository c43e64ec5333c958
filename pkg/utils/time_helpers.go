// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package utils provides utility functions for the entity store service.
package utils

import (
	"fmt"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
)

// ValidateRFC3339 validates that a timestamp string is in RFC3339 format.
// Returns the parsed time.Time and nil error if valid, or zero time and error if invalid.
func ValidateRFC3339(timestamp string) (time.Time, error) {
	if timestamp == "" {
		return time.Time{}, fmt.Errorf(constants.ErrEmptyTimestamp)
	}

	t, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", constants.ErrInvalidTimestampFormat, err)
	}

	return t, nil
}

// ParseTimestampPtr safely parses a timestamp pointer into a time.Time pointer.
// Returns nil if the input is nil or empty, or a pointer to the parsed time.
// Returns an error if parsing fails.
func ParseTimestampPtr(timestamp *string) (*time.Time, error) {
	if timestamp == nil || *timestamp == "" {
		return nil, nil
	}

	t, err := ValidateRFC3339(*timestamp)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// NowUTC returns the current time in UTC truncated to milliseconds,
// the precision the index store keeps for date fields.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// StartOfMonthUTC returns midnight of the first day of the month containing t, in UTC.
func StartOfMonthUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
