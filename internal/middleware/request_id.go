// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package middleware provides HTTP middleware for the service.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/log"
)

// RequestIDMiddleware propagates the X-Request-Id header, generating one when
// the caller did not send it. The id is stored in the context and attached to
// every log record written with that context.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(constants.RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set(constants.RequestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
		})
	}
}

// WithRequestID stores requestID in ctx and in the context log attributes
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, constants.RequestIDContextKey, requestID)
	return log.AppendCtx(ctx, slog.String("request_id", requestID))
}

// RequestID returns the request id stored in ctx, if any
func RequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(constants.RequestIDContextKey).(string)
	return requestID
}
