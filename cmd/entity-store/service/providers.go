// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service wires the adapters and repositories of the entity store binary.
package service

import (
	"context"
	"log"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"goa.design/clue/health"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/infrastructure/identity"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/infrastructure/memory"
	infrastructure "github.com/linuxfoundation/lfx-v2-entity-store/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/infrastructure/nats"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/infrastructure/opensearch"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/infrastructure/validation"
	internalService "github.com/linuxfoundation/lfx-v2-entity-store/internal/service"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/constants"
)

const (
	sourceNATS       = "nats"
	sourceOpenSearch = "opensearch"
	sourceMock       = "mock"
)

var (
	natsClient    *nats.NATSClient
	natsPublisher nats.MessagePublisher
	natsDoOnce    sync.Once

	indexStore     port.IndexStore
	indexStoreOnce sync.Once

	cacheProvider     *memory.CacheProvider
	cacheProviderOnce sync.Once

	instanceID     string
	instanceIDOnce sync.Once

	repositoryConfig     internalService.RepositoryConfig
	repositoryConfigOnce sync.Once

	repositories     *Repositories
	repositoriesOnce sync.Once

	pingers []health.Pinger
	mu      sync.Mutex
)

// Repositories groups the document repositories of the service
type Repositories struct {
	Organizations *internalService.DocumentRepository[model.Organization, *model.Organization]
	Projects      *internalService.DocumentRepository[model.Project, *model.Project]
	Stacks        *internalService.DocumentRepository[model.Stack, *model.Stack]
	Events        *internalService.DocumentRepository[model.Event, *model.Event]
}

func addPinger(p health.Pinger) {
	mu.Lock()
	defer mu.Unlock()
	pingers = append(pingers, p)
}

// Pingers returns the dependencies checked by the readiness endpoint
func Pingers() []health.Pinger {
	mu.Lock()
	defer mu.Unlock()
	return append([]health.Pinger(nil), pingers...)
}

func natsInit(ctx context.Context) {
	natsDoOnce.Do(func() {
		config := nats.NewConfigFromEnv()

		client, errNewClient := nats.NewClient(ctx, config)
		if errNewClient != nil {
			log.Fatalf("failed to create NATS client: %v", errNewClient)
		}
		natsClient = client
		natsPublisher = nats.NewMessagePublisher(client)
		addPinger(client)
	})
}

// GetNATSClient returns the shared NATS client
func GetNATSClient(ctx context.Context) *nats.NATSClient {
	natsInit(ctx)
	return natsClient
}

// Shutdown drops pending delayed messages and drains the NATS connection
func Shutdown(ctx context.Context) {
	if natsPublisher != nil {
		if dropped := natsPublisher.Close(); dropped > 0 {
			slog.WarnContext(ctx, "dropped pending delayed messages", "count", dropped)
		}
	}
	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close NATS client", "error", err)
		}
	}
}

func source(env, fallback string) string {
	if value := os.Getenv(env); value != "" {
		return value
	}
	return fallback
}

// RepositoryConfig loads the shared repository configuration
func RepositoryConfig(ctx context.Context) internalService.RepositoryConfig {
	repositoryConfigOnce.Do(func() {
		config, err := internalService.LoadRepositoryConfig(os.Getenv(constants.EnvRepositoryConfig))
		if err != nil {
			log.Fatalf("failed to load repository configuration: %v", err)
		}
		slog.InfoContext(ctx, "repository configuration loaded",
			"page_size", config.PageSize,
			"scroll_ttl", config.ScrollTTL.String(),
			"id_format", config.IDFormat,
		)
		repositoryConfig = config
	})
	return repositoryConfig
}

// IndexStore initializes the index store implementation based on INDEX_SOURCE
func IndexStore(ctx context.Context) port.IndexStore {
	indexStoreOnce.Do(func() {
		switch indexSource := source("INDEX_SOURCE", sourceOpenSearch); indexSource {
		case sourceMock:
			slog.InfoContext(ctx, "initializing mock index store")
			indexStore = infrastructure.NewMockIndexStore()
		case sourceOpenSearch:
			slog.InfoContext(ctx, "initializing OpenSearch index store")
			store, err := opensearch.NewIndexStore(opensearch.NewConfigFromEnv())
			if err != nil {
				log.Fatalf("failed to initialize OpenSearch index store: %v", err)
			}
			addPinger(store)
			indexStore = store
		default:
			log.Fatalf("unsupported index store implementation: %s", indexSource)
		}
	})
	return indexStore
}

// CacheProvider initializes the shared cache based on CACHE_SOURCE and layers
// the process-local tier over it
func CacheProvider(ctx context.Context) *memory.CacheProvider {
	cacheProviderOnce.Do(func() {
		var shared port.CacheProvider
		switch cacheSource := source("CACHE_SOURCE", sourceNATS); cacheSource {
		case sourceMock:
			slog.InfoContext(ctx, "initializing mock cache")
			shared = infrastructure.NewMockCacheProvider()
		case sourceNATS:
			slog.InfoContext(ctx, "initializing NATS KV cache")
			provider, err := nats.NewCacheProvider(ctx, GetNATSClient(ctx))
			if err != nil {
				log.Fatalf("failed to initialize NATS KV cache: %v", err)
			}
			shared = provider
		default:
			log.Fatalf("unsupported cache implementation: %s", cacheSource)
		}

		config := memory.NewConfigFromEnv()
		slog.InfoContext(ctx, "initializing local cache tier",
			"size", config.Size,
			"max_ttl", config.MaxTTL.String(),
		)
		cacheProvider = memory.NewCacheProvider(shared, config)
	})
	return cacheProvider
}

// InstanceID identifies this process on entity changed messages
func InstanceID(ctx context.Context) string {
	instanceIDOnce.Do(func() {
		instanceID = uuid.NewString()
		slog.InfoContext(ctx, "process instance id assigned", "instance_id", instanceID)
	})
	return instanceID
}

// MessagePublisher initializes the publisher implementation based on PUBLISHER_SOURCE
func MessagePublisher(ctx context.Context) port.MessagePublisher {
	switch publisherSource := source("PUBLISHER_SOURCE", sourceNATS); publisherSource {
	case sourceMock:
		slog.InfoContext(ctx, "initializing mock message publisher")
		return infrastructure.NewMockMessagePublisher()
	case sourceNATS:
		slog.InfoContext(ctx, "initializing NATS message publisher")
		natsInit(ctx)
		return natsPublisher
	default:
		log.Fatalf("unsupported message publisher implementation: %s", publisherSource)
	}
	return nil
}

// GetRepositories builds the repositories of every entity type once
func GetRepositories(ctx context.Context) *Repositories {
	repositoriesOnce.Do(func() {
		config := RepositoryConfig(ctx)

		ids, err := identity.NewGenerator(identity.Format(config.IDFormat))
		if err != nil {
			log.Fatalf("failed to initialize id generator: %v", err)
		}

		opts := []internalService.RepositoryOption{
			internalService.WithIndexStore(IndexStore(ctx)),
			internalService.WithCacheProvider(CacheProvider(ctx)),
			internalService.WithPublisher(MessagePublisher(ctx)),
			internalService.WithValidator(validation.NewStructValidator()),
			internalService.WithIDGenerator(ids),
			internalService.WithRepositoryConfig(config),
			internalService.WithInstanceID(InstanceID(ctx)),
		}

		repos := &Repositories{}
		if repos.Organizations, err = internalService.NewDocumentRepository[model.Organization](OrganizationDescriptor, opts...); err != nil {
			log.Fatalf("failed to create organization repository: %v", err)
		}
		if repos.Projects, err = internalService.NewDocumentRepository[model.Project](ProjectDescriptor, opts...); err != nil {
			log.Fatalf("failed to create project repository: %v", err)
		}
		if repos.Stacks, err = internalService.NewDocumentRepository[model.Stack](StackDescriptor, opts...); err != nil {
			log.Fatalf("failed to create stack repository: %v", err)
		}
		if repos.Events, err = internalService.NewDocumentRepository[model.Event](EventDescriptor, opts...); err != nil {
			log.Fatalf("failed to create event repository: %v", err)
		}

		repositories = repos
	})
	return repositories
}

// EntityChangedSyncService registers the local cache tier of every cached entity
// type for invalidation by other processes
func EntityChangedSyncService(ctx context.Context) *internalService.EntityChangedSyncService {
	repos := GetRepositories(ctx)
	caches := CacheProvider(ctx)

	syncService := internalService.NewEntityChangedSyncService(InstanceID(ctx))
	for _, descriptor := range []model.EntityDescriptor{
		repos.Organizations.Descriptor(),
		repos.Projects.Descriptor(),
		repos.Stacks.Descriptor(),
		repos.Events.Descriptor(),
	} {
		if descriptor.CachingEnabled() {
			syncService.Register(descriptor.Name, caches.Local(descriptor.CacheNamespace))
		}
	}
	return syncService
}

// MaintenanceService builds the maintenance handler; owned data is removed children first
func MaintenanceService(ctx context.Context) *internalService.MaintenanceService {
	repos := GetRepositories(ctx)
	return internalService.NewMaintenanceService(
		repos.Organizations,
		repos.Stacks,
		repos.Events,
		repos.Stacks,
		repos.Projects,
	)
}
