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

import "context"

// RecordCache is the subset of IndexerClient's behavior CachedOverlay
// needs: the Indexer's demo-mode cache endpoints, /publish_record and
// /discover/{did}. Declared here (rather than importing pkg/indexer)
// so any client satisfying this shape can back a CachedOverlay.
type RecordCache interface {
	PublishRecordCache(ctx context.Context, key, value string) error
	DiscoverRecordCache(ctx context.Context, key string) (value string, found bool, err error)
}

// CachedOverlay implements Client against the Indexer's fallback
// record cache instead of a DHT. It exists for environments where the
// DHT's best-effort visibility isn't good enough — the reference
// agent's "demo mode" guarantees publish-then-discover works within
// seconds, at the cost of centralizing the record store.
type CachedOverlay struct {
	cache RecordCache
}

// NewCachedOverlay wraps an Indexer client's cache endpoints as a Client.
func NewCachedOverlay(cache RecordCache) *CachedOverlay {
	return &CachedOverlay{cache: cache}
}

// Put publishes value to the Indexer's cache under key.
func (c *CachedOverlay) Put(ctx context.Context, key, value string) error {
	return c.cache.PublishRecordCache(ctx, key, value)
}

// Get looks up value from the Indexer's cache by key.
func (c *CachedOverlay) Get(ctx context.Context, key string) (string, bool, error) {
	return c.cache.DiscoverRecordCache(ctx, key)
}
