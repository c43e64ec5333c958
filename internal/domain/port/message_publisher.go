// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"
	"time"
)

// MessagePublisher defines the interface for publishing entity store messages.
// This interface is implemented by the NATS messaging infrastructure so other
// processes can react to document changes
type MessagePublisher interface {
	// Publish encodes the message and sends it on subject. A positive delay
	// schedules delivery; Publish returns once the message is accepted.
	Publish(ctx context.Context, subject string, message any, delay time.Duration) error
}
