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

package rpc

import (
	"fmt"
	"sync"
	"time"
)

// DefaultReplayWindow bounds how far a payload's timestamp may drift
// from the receiver's clock, in either direction, before it is
// rejected as stale. The wire protocol itself only mandates the
// timestamp field; enforcing a window on it is this fabric's chosen
// replay defense.
const DefaultReplayWindow = 5 * time.Minute

// ReplayGuard rejects payloads whose timestamp falls outside a sliding
// window around the current time, and additionally refuses to accept
// the exact same (sender, timestamp) pair twice within that window —
// closing the gap a pure timestamp check leaves open for a byte-exact
// replay sent within the freshness window.
type ReplayGuard struct {
	window time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewReplayGuard creates a ReplayGuard with the given window. A
// non-positive window falls back to DefaultReplayWindow.
func NewReplayGuard(window time.Duration) *ReplayGuard {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	return &ReplayGuard{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// Check validates payload freshness and first-use, returning an error
// if the payload should be rejected. now is injected for testability.
func (g *ReplayGuard) Check(senderID string, timestamp float64, now time.Time) error {
	payloadTime := time.Unix(int64(timestamp), 0)
	delta := now.Sub(payloadTime)
	if delta < 0 {
		delta = -delta
	}
	if delta > g.window {
		return fmt.Errorf("rpc: payload timestamp outside replay window (delta=%s, window=%s)", delta, g.window)
	}

	key := fmt.Sprintf("%s:%d", senderID, int64(timestamp))

	g.mu.Lock()
	defer g.mu.Unlock()

	g.evictLocked(now)
	if _, exists := g.seen[key]; exists {
		return fmt.Errorf("rpc: duplicate payload from %s at timestamp %d", senderID, int64(timestamp))
	}
	g.seen[key] = now
	return nil
}

func (g *ReplayGuard) evictLocked(now time.Time) {
	for key, seenAt := range g.seen {
		if now.Sub(seenAt) > g.window {
			delete(g.seen, key)
		}
	}
}
