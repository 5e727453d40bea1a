// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package overlay

import (
	"context"

	"github.com/agentweb-project/agentweb/internal/logger"
)

// FallbackOverlay publishes to the DHT and, best-effort, to the
// Indexer's record cache, and reads cache-first with DHT fallback.
// This mirrors the reference agent's "demo mode": the cache gives
// reliable discovery within seconds of publish, at the cost of
// centralizing the record store; the DHT remains the durable,
// decentralized source of truth.
type FallbackOverlay struct {
	dht   Client
	cache Client
	log   logger.Logger
}

// NewFallbackOverlay combines a DHT-backed Client with a cache-backed
// Client, used when fallback_discovery_enabled is set.
func NewFallbackOverlay(dhtClient, cacheClient Client) *FallbackOverlay {
	return &FallbackOverlay{
		dht:   dhtClient,
		cache: cacheClient,
		log:   logger.Default().WithFields(logger.String("component", "overlay")),
	}
}

// Put writes to the DHT (authoritative) and, best-effort, to the cache.
// A cache write failure is logged but does not fail the publish.
func (f *FallbackOverlay) Put(ctx context.Context, key, value string) error {
	if err := f.dht.Put(ctx, key, value); err != nil {
		return err
	}
	if err := f.cache.Put(ctx, key, value); err != nil {
		f.log.Warn("fallback cache publish failed, proceeding with DHT only",
			logger.String("key", key), logger.Error(err))
	}
	return nil
}

// Get tries the cache first, falling back to the DHT on a cache miss
// or error.
func (f *FallbackOverlay) Get(ctx context.Context, key string) (string, bool, error) {
	if value, found, err := f.cache.Get(ctx, key); err == nil && found {
		return value, true, nil
	} else if err != nil {
		f.log.Warn("cache lookup failed, falling back to dht", logger.String("key", key), logger.Error(err))
	}
	return f.dht.Get(ctx, key)
}

// Close closes the DHT-backed Client when it supports closing.
func (f *FallbackOverlay) Close() error {
	if closer, ok := f.dht.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
