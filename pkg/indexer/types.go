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

// Package indexer implements the centralized capability index and
// reputation bureau (IndexerService), and the HTTP client agents use
// to talk to it (Client).
package indexer

// CapabilityRegistration registers an identifier's advertised
// capabilities with the index.
type CapabilityRegistration struct {
	AgentID      string   `json:"agent_id"`
	Capabilities []string `json:"capabilities"`
}

// TransactionReport reports the outcome of a single RPC call for
// reputation accounting.
type TransactionReport struct {
	AgentID         string  `json:"agent_id"`
	Success         bool    `json:"success"`
	ResponseTimeMs  float64 `json:"response_time_ms"`
}

// ReputationStats holds the raw counters and derived metrics for one
// identifier. Successes/Failures/TotalResponseTimeMs/Count are
// mutated on every report; SuccessRate/AvgResponseTimeMs/ReputationScore
// are derived from them and recomputed after every report.
type ReputationStats struct {
	Successes           int     `json:"successes"`
	Failures             int     `json:"failures"`
	TotalResponseTimeMs   float64 `json:"total_response_time_ms"`
	Count                 int     `json:"count"`
	SuccessRate           float64 `json:"success_rate"`
	AvgResponseTimeMs     float64 `json:"avg_response_time_ms"`
	ReputationScore       float64 `json:"reputation_score"`
}

// derive recomputes SuccessRate, AvgResponseTimeMs, and ReputationScore
// from the raw counters, matching the reference bureau's computed
// fields exactly:
//
//	success_rate     = successes / count * 100
//	avg_response_ms  = total_response_time_ms / count
//	reputation_score = max(0.1, success_rate/100*5.0 - max(0, (avg_ms-500)/1000))
//
// An identifier with no reports yet (count == 0) scores 5.0, the
// default score a new agent should receive over an established but
// poorly-performing one.
func (s *ReputationStats) derive() {
	if s.Count == 0 {
		s.SuccessRate = 0
		s.AvgResponseTimeMs = 0
		s.ReputationScore = 5.0
		return
	}
	s.SuccessRate = float64(s.Successes) / float64(s.Count) * 100.0
	s.AvgResponseTimeMs = s.TotalResponseTimeMs / float64(s.Count)

	rate := s.SuccessRate / 100.0
	timePenalty := (s.AvgResponseTimeMs - 500.0) / 1000.0
	if timePenalty < 0 {
		timePenalty = 0
	}
	score := rate*5.0 - timePenalty
	if score < 0.1 {
		score = 0.1
	}
	s.ReputationScore = score
}

// ReputationRequest batches a reputation lookup for several identifiers.
type ReputationRequest struct {
	AgentIDs []string `json:"agent_ids"`
}

// ReputationResponse is the batched reputation lookup result, keyed by
// identifier.
type ReputationResponse struct {
	Reputations map[string]ReputationStats `json:"reputations"`
}

// CacheRecord is the Indexer's fallback-mode publish/discover record:
// the fields of record.AgentRecord except the payment method, plus the
// identifier itself, since the cache is indexed and returned by
// identifier directly.
type CacheRecord struct {
	DID           string   `json:"did"`
	Endpoint      string   `json:"endpoint"`
	PublicKeyPEM  string   `json:"public_key_pem"`
	Capabilities  []string `json:"capabilities"`
	Price         float64  `json:"price"`
}
