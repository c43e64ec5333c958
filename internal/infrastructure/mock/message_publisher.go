// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
)

// PublishedMessage is a message accepted by MockMessagePublisher
type PublishedMessage struct {
	Subject string
	Message any
	Delay   time.Duration
}

// MockMessagePublisher is a mock implementation of the MessagePublisher interface
// that records every published message
type MockMessagePublisher struct {
	mu       sync.Mutex
	messages []PublishedMessage
	err      error
}

// Ensure MockMessagePublisher implements the MessagePublisher interface
var _ port.MessagePublisher = (*MockMessagePublisher)(nil)

// NewMockMessagePublisher creates a new mock publisher for testing
func NewMockMessagePublisher() *MockMessagePublisher {
	return &MockMessagePublisher{}
}

// Publish records the message (mock implementation - logs only)
func (m *MockMessagePublisher) Publish(ctx context.Context, subject string, message any, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.messages = append(m.messages, PublishedMessage{Subject: subject, Message: message, Delay: delay})
	slog.InfoContext(ctx, "mock message published",
		"subject", subject,
		"delay", delay,
	)
	return nil
}

// SetError makes every following publish fail with err; a nil err clears it.
func (m *MockMessagePublisher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Messages returns the recorded messages
func (m *MockMessagePublisher) Messages() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedMessage(nil), m.messages...)
}

// Reset clears the recorded messages
func (m *MockMessagePublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
