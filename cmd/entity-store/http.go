// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"goa.design/clue/health"

	"github.com/linuxfoundation/lfx-v2-entity-store/cmd/entity-store/service"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
)

// handleHTTPServer serves the liveness and readiness endpoints until ctx is done
func handleHTTPServer(ctx context.Context, addr string, wg *sync.WaitGroup) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/readyz", health.Handler(health.NewChecker(service.Pingers()...)))

	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(middleware.RequestIDMiddleware()(mux), constants.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		slog.InfoContext(ctx, "shutting down health server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "health server shutdown failed", "error", err)
		}
	}()

	slog.InfoContext(ctx, "health server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
