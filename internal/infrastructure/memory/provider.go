// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package memory

import (
	"sync"

	"github.com/linuxfoundation/lfx-v2-entity-store/internal/domain/port"
)

// CacheProvider layers a local tier over every namespace of a shared provider.
// A namespace always gets the same local tier.
type CacheProvider struct {
	shared port.CacheProvider
	config Config

	mu     sync.Mutex
	locals map[string]*Cache
}

// Ensure CacheProvider implements the CacheProvider interface
var _ port.CacheProvider = (*CacheProvider)(nil)

// NewCacheProvider creates a tiered cache provider over shared
func NewCacheProvider(shared port.CacheProvider, config Config) *CacheProvider {
	return &CacheProvider{
		shared: shared,
		config: config,
		locals: make(map[string]*Cache),
	}
}

// Namespace returns the tiered cache of the namespace
func (p *CacheProvider) Namespace(name string) port.Cache {
	return NewTieredCache(p.Local(name), p.shared.Namespace(name))
}

// Local returns the local tier of the namespace, creating it on first use
func (p *CacheProvider) Local(name string) *Cache {
	p.mu.Lock()
	defer p.mu.Unlock()

	local, ok := p.locals[name]
	if !ok {
		local = NewCache(p.config.Size, p.config.MaxTTL)
		p.locals[name] = local
	}
	return local
}
