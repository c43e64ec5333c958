// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package nats provides NATS messaging client implementation and related utilities.
package nats

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/utils"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSClient wraps the NATS connection and the JetStream key-value buckets used by the entity store
type NATSClient struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	config  Config
	mu      sync.RWMutex
	kvStore map[string]jetstream.KeyValue
	timeout time.Duration
}

// NATSClientInterface defines the interface for NATS operations
// This allows for easy mocking and testing
type NATSClientInterface interface {
	Close() error
	IsReady(ctx context.Context) error
}

// Name identifies the client in health checks
func (c *NATSClient) Name() string {
	return "NATS"
}

// Ping reports whether the connection is usable
func (c *NATSClient) Ping(ctx context.Context) error {
	return c.IsReady(ctx)
}

// Close drains subscriptions and closes the NATS connection
func (c *NATSClient) Close() error {
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}

// IsReady checks if the NATS client is ready
func (c *NATSClient) IsReady(ctx context.Context) error {
	if c.conn == nil {
		slog.ErrorContext(ctx, "NATS client is not initialized or not connected")
		return errors.NewServiceUnavailable("NATS client is not initialized or not connected")
	}
	if !c.conn.IsConnected() || c.conn.IsDraining() {
		slog.ErrorContext(ctx, "NATS client is not ready",
			"connected", c.conn.IsConnected(),
			"draining", c.conn.IsDraining(),
		)
		return errors.NewServiceUnavailable("NATS client is not ready, connection is not established or is draining")
	}
	slog.DebugContext(ctx, "NATS client is ready", "url", c.conn.ConnectedUrl())
	return nil
}

// Subscribe creates a subscription delivering every message to this process
func (c *NATSClient) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	if c.conn == nil {
		return nil, errors.NewServiceUnavailable("NATS connection not initialized")
	}
	if !c.conn.IsConnected() {
		return nil, errors.NewServiceUnavailable("NATS connection not ready")
	}
	return c.conn.Subscribe(subject, handler)
}

// QueueSubscribe creates a queue subscription for load-balanced message processing
// Returns subscription handle and error
func (c *NATSClient) QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error) {
	if c.conn == nil {
		return nil, errors.NewServiceUnavailable("NATS connection not initialized")
	}
	if !c.conn.IsConnected() {
		return nil, errors.NewServiceUnavailable("NATS connection not ready")
	}
	return c.conn.QueueSubscribe(subject, queue, handler)
}

// KeyValueStore binds the named bucket, creating it when the configuration allows.
// Binding is retried with backoff since JetStream may still be starting.
func (c *NATSClient) KeyValueStore(ctx context.Context, bucketName string) (jetstream.KeyValue, error) {
	c.mu.RLock()
	kv, ok := c.kvStore[bucketName]
	c.mu.RUnlock()
	if ok {
		return kv, nil
	}

	// a missing bucket that may not be created will not appear on its own
	retry := utils.NewRetryConfig(3, 500*time.Millisecond, 5*time.Second).WithRetryable(func(err error) bool {
		return !stderrors.Is(err, jetstream.ErrBucketNotFound)
	})
	err := utils.RetryWithExponentialBackoff(ctx, retry, func() error {
		var errBind error
		kv, errBind = c.js.KeyValue(ctx, bucketName)
		if errBind == nil {
			return nil
		}
		if !stderrors.Is(errBind, jetstream.ErrBucketNotFound) || !c.config.CreateBuckets {
			return errBind
		}
		slog.InfoContext(ctx, "creating NATS key-value bucket", "bucket", bucketName)
		kv, errBind = c.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucketName,
			Description: fmt.Sprintf("%s document cache", constants.ServiceName),
			TTL:         c.config.BucketMaxAge,
		})
		return errBind
	})
	if err != nil {
		slog.ErrorContext(ctx, "error getting NATS JetStream key-value store",
			"error", err,
			"nats_url", c.conn.ConnectedUrl(),
			"bucket", bucketName,
		)
		return nil, err
	}

	c.mu.Lock()
	if c.kvStore == nil {
		c.kvStore = make(map[string]jetstream.KeyValue)
	}
	c.kvStore[bucketName] = kv
	c.mu.Unlock()
	return kv, nil
}

// NewClient creates a new NATS client with the given configuration
func NewClient(ctx context.Context, config Config) (*NATSClient, error) {
	slog.InfoContext(ctx, "creating NATS client",
		"url", config.URL,
		"timeout", config.Timeout,
	)

	// Validate configuration
	if config.URL == "" {
		return nil, errors.NewUnexpected("NATS URL is required")
	}

	// Configure NATS connection options
	opts := []nats.Option{
		nats.Name(constants.ServiceName),
		nats.Timeout(config.Timeout),
		nats.MaxReconnects(config.MaxReconnect),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.WarnContext(ctx, "NATS disconnected",
				"error", err,
				"url", nc.ConnectedUrl(),
				"status", nc.Status(),
			)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With("error", err, "subject", s.Subject, "queue", s.Queue).Error("async NATS error")
			} else {
				slog.With("error", err).Error("async NATS error outside subscription")
			}
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection closed",
				"url", nc.ConnectedUrl(),
				"status", nc.Status(),
			)
		}),
	}

	if config.CredentialsFile != "" {
		opts = append(opts, nats.UserCredentials(config.CredentialsFile))
	}

	// Establish connection
	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, errors.NewServiceUnavailable("failed to connect to NATS", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.NewServiceUnavailable("failed to create NATS JetStream client", err)
	}

	client := &NATSClient{
		conn:    conn,
		js:      js,
		config:  config,
		kvStore: make(map[string]jetstream.KeyValue),
		timeout: config.Timeout,
	}

	// Initialize the key-value store backing the document cache
	if config.CacheBucket != "" {
		if _, err := client.KeyValueStore(ctx, config.CacheBucket); err != nil {
			slog.ErrorContext(ctx, "failed to initialize NATS key-value store",
				"error", err,
				"bucket", config.CacheBucket,
			)
			conn.Close()
			return nil, errors.NewServiceUnavailable("failed to initialize NATS key-value store", err)
		}
	}

	slog.InfoContext(ctx, "NATS client created successfully",
		"connected_url", conn.ConnectedUrl(),
		"status", conn.Status(),
	)

	return client, nil
}
