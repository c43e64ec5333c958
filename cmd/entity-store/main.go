// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// The entity-store service keeps the document repositories of the platform
// entities and reacts to entity changed and maintenance messages.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/linuxfoundation/lfx-v2-entity-store/cmd/entity-store/service"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/log"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/utils"
)

const gracefulShutdownSeconds = 25

func main() {
	var (
		port = flag.String("p", "8080", "health server listen port")
		bind = flag.String("bind", "*", "interface to bind on")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log.InitStructureLogConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up OpenTelemetry SDK", "error", err)
		os.Exit(1)
	}

	// Build every dependency up front so misconfiguration fails at startup
	service.GetRepositories(ctx)

	var wg sync.WaitGroup
	g, gctx := errgroup.WithContext(ctx)

	if err := handleEntityChangedSync(gctx, &wg); err != nil {
		slog.ErrorContext(ctx, "failed to start entity changed sync", "error", err)
		os.Exit(1)
	}
	if err := handleMaintenance(gctx, &wg); err != nil {
		slog.ErrorContext(ctx, "failed to start maintenance handlers", "error", err)
		os.Exit(1)
	}

	addr := ":" + *port
	if *bind != "*" {
		addr = *bind + ":" + *port
	}
	g.Go(func() error {
		return handleHTTPServer(gctx, addr, &wg)
	})

	slog.InfoContext(ctx, "entity store started", "addr", addr)

	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "service stopped with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
	defer cancel()

	wg.Wait()
	service.Shutdown(shutdownCtx)

	if err := otelShutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "failed to shut down OpenTelemetry SDK", "error", err)
	}

	slog.InfoContext(shutdownCtx, "entity store stopped")
}
