// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import "context"

// Validator validates a single document before it is written.
// Failures are reported as errors.ValidationFailed.
type Validator interface {
	Validate(ctx context.Context, doc any) error
}

// IDGenerator allocates ids for documents written without one
type IDGenerator interface {
	NewID() string
}
