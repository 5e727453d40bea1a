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

// Package record publishes and fetches AgentRecords through an
// overlay.Client, verifying on every fetch that the record's embedded
// public key digests to the identifier it was looked up under.
package record

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentweb-project/agentweb/internal/logger"
	"github.com/agentweb-project/agentweb/internal/metrics"
	"github.com/agentweb-project/agentweb/pkg/identity"
	"github.com/agentweb-project/agentweb/pkg/overlay"
)

// AgentRecord is the directory entry an agent publishes under its own
// identifier: its public key (for independent identity verification),
// reachable endpoint, price, payment method, and advertised
// capabilities.
type AgentRecord struct {
	PublicKeyPEM   string   `json:"public_key_pem"`
	Endpoint       string   `json:"endpoint"`
	Price          float64  `json:"price"`
	PaymentMethod  string   `json:"payment_method"`
	Capabilities   []string `json:"capabilities,omitempty"`
}

// Registry publishes and fetches AgentRecords through an overlay.Client.
type Registry struct {
	overlay overlay.Client
	log     logger.Logger
}

// NewRegistry creates a Registry backed by the given overlay.
func NewRegistry(client overlay.Client) *Registry {
	return &Registry{
		overlay: client,
		log:     logger.Default().WithFields(logger.String("component", "record_registry")),
	}
}

// Publish stores rec in the overlay under identifier.
func (r *Registry) Publish(ctx context.Context, identifier string, rec *AgentRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("record: marshal: %w", err)
	}
	if err := r.overlay.Put(ctx, identifier, string(data)); err != nil {
		return fmt.Errorf("record: publish: %w", err)
	}
	return nil
}

// Fetch retrieves the AgentRecord stored under identifier and verifies
// that the record's embedded public key digests to identifier. A
// record that fails to parse, fails to verify, or simply isn't found
// is reported as logger.ErrDiscovery (not found) or
// logger.ErrIdentityMismatch (tampered/forged), never returned as a
// usable record.
func (r *Registry) Fetch(ctx context.Context, identifier string) (*AgentRecord, error) {
	raw, found, err := r.overlay.Get(ctx, identifier)
	if err != nil {
		return nil, logger.ErrDiscovery.WithCause(err).WithDetails("identifier", identifier)
	}
	if !found {
		r.log.Debug("overlay lookup miss", logger.String("identifier", identifier))
		return nil, logger.ErrDiscovery.WithDetails("identifier", identifier).WithDetails("reason", "not_found")
	}

	var rec AgentRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		r.log.Warn("failed to parse fetched record", logger.String("identifier", identifier), logger.Error(err))
		return nil, logger.ErrDiscovery.WithCause(err).WithDetails("identifier", identifier)
	}

	expected := identity.IdentifierOfPEM(rec.PublicKeyPEM)
	if expected != identifier {
		r.log.Warn("security alert: record public key does not match identifier; tampering suspected",
			logger.String("identifier", identifier))
		metrics.IdentityMismatches.Inc()
		return nil, logger.ErrIdentityMismatch.WithDetails("identifier", identifier)
	}

	return &rec, nil
}
