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

// Package overlay provides the abstract distributed key-value store
// that RecordRegistry publishes and fetches AgentRecords through: a
// Kademlia DHT implementation for production use, and an
// Indexer-cache-backed implementation for environments where
// best-effort DHT visibility isn't good enough.
package overlay

import "context"

// Client abstracts a content-addressed key-value overlay. Keys are
// agent identifiers; values are JSON-encoded AgentRecords. Consistency
// is best-effort: a Put from one node may not be immediately visible
// to a Get from another.
type Client interface {
	// Put stores value under key. It does not guarantee the value is
	// retrievable by any other node at any particular point in time.
	Put(ctx context.Context, key, value string) error
	// Get retrieves the value stored under key. The second return value
	// reports whether anything was found.
	Get(ctx context.Context, key string) (value string, found bool, err error)
}
