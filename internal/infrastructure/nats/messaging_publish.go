// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
)

// messagingPublisher implements the MessagePublisher interface using NATS
type messagingPublisher struct {
	client *NATSClient

	mu      sync.Mutex
	pending map[*time.Timer]struct{}
	closed  bool
}

// Publish sends message to subject. A positive delay defers delivery; the
// payload is encoded up front so later mutation by the caller is not observed.
func (m *messagingPublisher) Publish(ctx context.Context, subject string, message any, delay time.Duration) error {
	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal message to JSON",
			"error", err,
			"subject", subject,
		)
		return errors.NewUnexpected("failed to marshal message", err)
	}

	if delay <= 0 {
		return m.publish(ctx, subject, data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.NewServiceUnavailable("publisher is closed")
	}

	detached := context.WithoutCancel(ctx)
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		delete(m.pending, timer)
		m.mu.Unlock()
		// delivery failures are logged by publish
		_ = m.publish(detached, subject, data)
	})
	m.pending[timer] = struct{}{}

	slog.DebugContext(ctx, "message scheduled",
		"subject", subject,
		"delay", delay.String(),
	)
	return nil
}

// Close drops messages that were scheduled but not yet delivered and returns how many were dropped
func (m *messagingPublisher) Close() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	dropped := 0
	for timer := range m.pending {
		if timer.Stop() {
			dropped++
		}
		delete(m.pending, timer)
	}
	return dropped
}

// publish is the common method for publishing messages to NATS
func (m *messagingPublisher) publish(ctx context.Context, subject string, data []byte) error {
	if err := m.client.IsReady(ctx); err != nil {
		slog.ErrorContext(ctx, "NATS client is not ready for publishing",
			"error", err,
			"subject", subject,
		)
		return errors.NewServiceUnavailable("NATS client is not ready", err)
	}

	if err := m.client.conn.Publish(subject, data); err != nil {
		slog.ErrorContext(ctx, "failed to publish message to NATS",
			"error", err,
			"subject", subject,
		)
		return errors.NewServiceUnavailable("failed to publish message", err)
	}

	slog.DebugContext(ctx, "message published successfully",
		"subject", subject,
		"message_size", len(data),
	)

	return nil
}

// MessagePublisher is a NATS backed port.MessagePublisher that can drop pending deliveries on shutdown
type MessagePublisher interface {
	port.MessagePublisher
	Close() int
}

// NewMessagePublisher creates a new MessagePublisher using NATS
func NewMessagePublisher(client *NATSClient) MessagePublisher {
	return &messagingPublisher{
		client:  client,
		pending: make(map[*time.Timer]struct{}),
	}
}
