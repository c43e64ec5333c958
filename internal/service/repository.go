// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service implements the document repositories and the message handlers built on them.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-entity-store/pkg/utils"
)

const instrumentationName = "github.com/linuxfoundation/lfx-v2-entity-store/internal/service"

// repositoryOptions holds the collaborators shared by every document repository
type repositoryOptions struct {
	store         port.IndexStore
	cacheProvider port.CacheProvider
	publisher     port.MessagePublisher
	validator     port.Validator
	ids           port.IDGenerator
	config        RepositoryConfig
	instanceID    string
	now           func() time.Time
}

// RepositoryOption defines a function type for setting options on a document repository
type RepositoryOption func(*repositoryOptions)

// WithIndexStore sets the index store
func WithIndexStore(store port.IndexStore) RepositoryOption {
	return func(o *repositoryOptions) {
		o.store = store
	}
}

// WithCacheProvider sets the cache provider (may be nil to disable caching)
func WithCacheProvider(provider port.CacheProvider) RepositoryOption {
	return func(o *repositoryOptions) {
		o.cacheProvider = provider
	}
}

// WithPublisher sets the publisher (may be nil to disable change notifications)
func WithPublisher(publisher port.MessagePublisher) RepositoryOption {
	return func(o *repositoryOptions) {
		o.publisher = publisher
	}
}

// WithValidator sets the document validator
func WithValidator(validator port.Validator) RepositoryOption {
	return func(o *repositoryOptions) {
		o.validator = validator
	}
}

// WithIDGenerator sets the id generator
func WithIDGenerator(ids port.IDGenerator) RepositoryOption {
	return func(o *repositoryOptions) {
		o.ids = ids
	}
}

// WithRepositoryConfig sets the repository configuration
func WithRepositoryConfig(config RepositoryConfig) RepositoryOption {
	return func(o *repositoryOptions) {
		o.config = config
	}
}

// WithInstanceID sets the origin stamped on published entity changed messages
func WithInstanceID(id string) RepositoryOption {
	return func(o *repositoryOptions) {
		o.instanceID = id
	}
}

// WithClock sets the time source used for document timestamps
func WithClock(now func() time.Time) RepositoryOption {
	return func(o *repositoryOptions) {
		o.now = now
	}
}

type repositoryMetrics struct {
	written metric.Int64Counter
	removed metric.Int64Counter
	updated metric.Int64Counter
}

// DocumentRepository provides uniform write semantics for one entity type on top
// of the index store, the cache, the validator and the message publisher.
// T is the pointer type of the entity E.
type DocumentRepository[E any, T interface {
	*E
	model.Document
}] struct {
	descriptor model.EntityDescriptor
	caps       model.Capabilities
	store      port.IndexStore
	cache      port.Cache
	publisher  port.MessagePublisher
	validator  port.Validator
	ids        port.IDGenerator
	config     RepositoryConfig
	instanceID string
	now        func() time.Time

	beforeChange []ChangeHook[T]
	afterChange  []ChangeHook[T]

	loads   singleflight.Group
	tracer  trace.Tracer
	metrics repositoryMetrics
	attrs   metric.MeasurementOption
}

// NewDocumentRepository creates a repository for the entity described by descriptor
func NewDocumentRepository[E any, T interface {
	*E
	model.Document
}](descriptor model.EntityDescriptor, opts ...RepositoryOption) (*DocumentRepository[E, T], error) {
	o := &repositoryOptions{
		config: DefaultRepositoryConfig(),
		now:    utils.NowUTC,
	}
	for _, opt := range opts {
		opt(o)
	}

	if descriptor.Name == "" || descriptor.Index == "" {
		return nil, errors.NewValidation("entity descriptor requires a name and an index")
	}
	if o.store == nil {
		return nil, errors.NewValidation(fmt.Sprintf("index store is required for %s repository", descriptor.Name))
	}
	if o.validator == nil {
		return nil, errors.NewValidation(fmt.Sprintf("validator is required for %s repository", descriptor.Name))
	}
	if o.ids == nil {
		return nil, errors.NewValidation(fmt.Sprintf("id generator is required for %s repository", descriptor.Name))
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	caps := model.CapabilitiesOf[T]()
	if caps.Partitioned && descriptor.Partitioner == nil {
		return nil, errors.NewValidation(fmt.Sprintf("%s is partitioned but has no partitioner", descriptor.Name))
	}

	r := &DocumentRepository[E, T]{
		descriptor: descriptor,
		caps:       caps,
		store:      o.store,
		publisher:  o.publisher,
		validator:  o.validator,
		ids:        o.ids,
		config:     o.config,
		instanceID: o.instanceID,
		now:        o.now,
		tracer:     otel.Tracer(instrumentationName),
		attrs:      metric.WithAttributes(attribute.String("entity.type", descriptor.Name)),
	}
	if o.cacheProvider != nil && descriptor.CachingEnabled() {
		r.cache = o.cacheProvider.Namespace(descriptor.CacheNamespace)
	}

	meter := otel.Meter(instrumentationName)
	var err error
	if r.metrics.written, err = meter.Int64Counter("entity_store.documents.written",
		metric.WithDescription("Documents added or saved")); err != nil {
		return nil, err
	}
	if r.metrics.removed, err = meter.Int64Counter("entity_store.documents.removed",
		metric.WithDescription("Documents removed")); err != nil {
		return nil, err
	}
	if r.metrics.updated, err = meter.Int64Counter("entity_store.documents.bulk_updated",
		metric.WithDescription("Documents changed by bulk updates")); err != nil {
		return nil, err
	}

	return r, nil
}

// Descriptor returns the entity descriptor of the repository
func (r *DocumentRepository[E, T]) Descriptor() model.EntityDescriptor {
	return r.descriptor
}

// Capabilities returns the resolved capabilities of the entity type
func (r *DocumentRepository[E, T]) Capabilities() model.Capabilities {
	return r.caps
}

// Cache returns the cache namespace of the repository, nil when caching is disabled
func (r *DocumentRepository[E, T]) Cache() port.Cache {
	return r.cache
}

func (r *DocumentRepository[E, T]) startSpan(ctx context.Context, operation string, count int) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "DocumentRepository."+operation, trace.WithAttributes(
		attribute.String("entity.type", r.descriptor.Name),
		attribute.Int("document.count", count),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *DocumentRepository[E, T]) decode(id string, source json.RawMessage) (T, error) {
	doc := T(new(E))
	if len(source) > 0 {
		if err := json.Unmarshal(source, doc); err != nil {
			return nil, errors.NewStoreQueryFailed(fmt.Sprintf("failed to decode %s %s", r.descriptor.Name, id), err)
		}
	}
	if doc.GetID() == "" {
		doc.SetID(id)
	}
	return doc, nil
}

func (r *DocumentRepository[E, T]) decodeHits(hits []model.Hit) ([]T, error) {
	docs := make([]T, 0, len(hits))
	for _, h := range hits {
		doc, err := r.decode(h.ID, h.Source)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func documentIDs[T model.Document](docs []T) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if id := d.GetID(); id != "" {
			out = append(out, id)
		}
	}
	return out
}
