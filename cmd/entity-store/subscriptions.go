// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-entity-store/cmd/entity-store/service"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
)

const messageTimeout = 30 * time.Second

// messageHandler processes a single NATS message
type messageHandler interface {
	HandleMessage(ctx context.Context, msg *nats.Msg) error
}

// handleEntityChangedSync subscribes the cache invalidation handler to entity changed messages.
// Every process keeps its own local cache tier, so the subscription is not load balanced.
func handleEntityChangedSync(ctx context.Context, wg *sync.WaitGroup) error {
	slog.InfoContext(ctx, "starting entity changed sync")

	syncService := service.EntityChangedSyncService(ctx)
	return subscribe(ctx, wg, "entity changed sync", "", syncService, constants.EntityChangedSubject)
}

// handleMaintenance subscribes the maintenance handler to organization wide requests
func handleMaintenance(ctx context.Context, wg *sync.WaitGroup) error {
	slog.InfoContext(ctx, "starting maintenance handlers")

	maintenanceService := service.MaintenanceService(ctx)
	return subscribe(ctx, wg, "maintenance", constants.EntityStoreQueue, maintenanceService,
		constants.OrganizationRemovedSubject,
		constants.StacksFixedSubject,
	)
}

// subscribe registers handler on subjects; an empty queue delivers every message to this process
func subscribe(ctx context.Context, wg *sync.WaitGroup, name, queue string, handler messageHandler, subjects ...string) error {
	natsClient := service.GetNATSClient(ctx)

	for _, subject := range subjects {
		msgHandler := func(msg *nats.Msg) {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "rejecting message - service shutting down",
					"subject", msg.Subject)
				if msg.Reply != "" {
					if nakErr := msg.Nak(); nakErr != nil {
						slog.ErrorContext(ctx, "failed to nak message during shutdown", "error", nakErr)
					}
				}
				return
			default:
			}

			// Not derived from the shutdown context so in-flight work can finish
			msgCtx, cancel := context.WithTimeout(context.Background(), messageTimeout)
			defer cancel()
			if msg.Header != nil {
				msgCtx = middleware.WithRequestID(msgCtx, msg.Header.Get(constants.RequestIDHeader))
			}

			if handleErr := handler.HandleMessage(msgCtx, msg); handleErr != nil && errors.IsPermanent(handleErr) {
				// redelivery cannot fix invalid payloads
				slog.ErrorContext(msgCtx, "failed to process message, dropping it",
					"error", handleErr,
					"subject", msg.Subject,
					"handler", name)
				if msg.Reply != "" {
					if termErr := msg.Term(); termErr != nil {
						slog.ErrorContext(msgCtx, "failed to terminate message", "error", termErr)
					}
				}
			} else if handleErr != nil {
				slog.ErrorContext(msgCtx, "failed to process message, will retry",
					"error", handleErr,
					"subject", msg.Subject,
					"handler", name)
				if msg.Reply != "" {
					if nakErr := msg.Nak(); nakErr != nil {
						slog.ErrorContext(msgCtx, "failed to nak message", "error", nakErr)
					}
				}
			} else if msg.Reply != "" {
				if ackErr := msg.Ack(); ackErr != nil {
					slog.ErrorContext(msgCtx, "failed to ack message", "error", ackErr)
				}
			}
		}

		var subErr error
		if queue == "" {
			_, subErr = natsClient.Subscribe(subject, msgHandler)
		} else {
			_, subErr = natsClient.QueueSubscribe(subject, queue, msgHandler)
		}
		if subErr != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, subErr)
		}
		slog.InfoContext(ctx, "subscribed to subject",
			"subject", subject,
			"queue", queue,
			"handler", name)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		slog.InfoContext(ctx, "shutting down subscriptions", "handler", name)
	}()

	return nil
}
