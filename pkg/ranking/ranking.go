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

// Package ranking implements the concurrent candidate-gather /
// normalize / score / select pipeline that picks a counterparty for a
// given capability.
package ranking

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentweb-project/agentweb/internal/logger"
	"github.com/agentweb-project/agentweb/internal/metrics"
	"github.com/agentweb-project/agentweb/pkg/indexer"
	"github.com/agentweb-project/agentweb/pkg/record"
)

// Policy weights price and reputation when scoring candidates. Weights
// need not sum to 1; the engine uses them as provided.
type Policy struct {
	Price      float64
	Reputation float64
}

// DefaultPolicy matches the reference fabric's default weighting.
var DefaultPolicy = Policy{Price: 0.6, Reputation: 0.4}

// Candidate is a verified counterparty under consideration, carrying
// everything the scoring step needs.
type Candidate struct {
	Identifier string
	Record     *record.AgentRecord
	Reputation indexer.ReputationStats
}

// IndexerSearcher is the subset of indexer.Client the engine needs to
// discover candidates and their reputations.
type IndexerSearcher interface {
	Search(ctx context.Context, capability string) ([]string, error)
	GetReputations(ctx context.Context, agentIDs []string) (map[string]indexer.ReputationStats, error)
}

// RecordFetcher is the subset of record.Registry the engine needs to
// resolve and verify a candidate's AgentRecord.
type RecordFetcher interface {
	Fetch(ctx context.Context, identifier string) (*record.AgentRecord, error)
}

// Engine runs the gather/verify/score/select pipeline for a capability.
type Engine struct {
	indexerClient IndexerSearcher
	records       RecordFetcher
	log           logger.Logger
}

// NewEngine creates a ranking Engine.
func NewEngine(indexerClient IndexerSearcher, records RecordFetcher) *Engine {
	return &Engine{
		indexerClient: indexerClient,
		records:       records,
		log:           logger.Default().WithFields(logger.String("component", "ranking_engine")),
	}
}

// Select runs the full pipeline for capability under policy and
// returns the winning identifier. It is deterministic given identical
// inputs from collaborators.
func (e *Engine) Select(ctx context.Context, capability string, policy Policy) (string, error) {
	start := time.Now()
	result := "winner"
	defer func() {
		metrics.RankingDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	ids, err := e.indexerClient.Search(ctx, capability)
	if err != nil {
		result = "discovery_error"
		return "", logger.ErrDiscovery.WithCause(err).WithDetails("capability", capability)
	}
	if len(ids) == 0 {
		result = "no_candidates"
		return "", logger.ErrNoCandidates.WithDetails("capability", capability)
	}

	candidates, err := e.gather(ctx, ids)
	if err != nil {
		result = "discovery_error"
		return "", err
	}

	metrics.RankingCandidatesVerified.Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		result = "no_verified_candidates"
		return "", logger.ErrNoVerifiedCandidates.WithDetails("capability", capability)
	}
	if len(candidates) == 1 {
		return candidates[0].Identifier, nil
	}

	return e.score(candidates, policy), nil
}

// gather concurrently fetches each identifier's AgentRecord (each
// fetch independently verified) and a single batched reputation
// request, waits for all to settle, then drops every candidate whose
// record fetch failed (unreachable or tampered).
func (e *Engine) gather(ctx context.Context, ids []string) ([]Candidate, error) {
	records := make([]*record.AgentRecord, len(ids))

	var reps map[string]indexer.ReputationStats

	g, gctx := errgroup.WithContext(ctx)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			rec, err := e.records.Fetch(gctx, id)
			if err != nil {
				e.log.Debug("candidate record fetch failed, dropping",
					logger.String("identifier", id), logger.Error(err))
				return nil
			}
			records[i] = rec
			return nil
		})
	}

	g.Go(func() error {
		r, err := e.indexerClient.GetReputations(gctx, ids)
		if err != nil {
			return err
		}
		reps = r
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, logger.ErrDiscovery.WithCause(err)
	}

	candidates := make([]Candidate, 0, len(ids))
	for i, id := range ids {
		if records[i] == nil {
			continue
		}
		candidates = append(candidates, Candidate{
			Identifier: id,
			Record:     records[i],
			Reputation: reps[id],
		})
	}
	return candidates, nil
}

// score normalizes price and reputation over the surviving candidate
// set and returns the identifier with the greatest utility, breaking
// ties in favor of the first candidate encountered.
func (e *Engine) score(candidates []Candidate, policy Policy) string {
	pmin, pmax := candidates[0].Record.Price, candidates[0].Record.Price
	rmin, rmax := candidates[0].Reputation.ReputationScore, candidates[0].Reputation.ReputationScore

	for _, c := range candidates[1:] {
		if c.Record.Price < pmin {
			pmin = c.Record.Price
		}
		if c.Record.Price > pmax {
			pmax = c.Record.Price
		}
		if c.Reputation.ReputationScore < rmin {
			rmin = c.Reputation.ReputationScore
		}
		if c.Reputation.ReputationScore > rmax {
			rmax = c.Reputation.ReputationScore
		}
	}

	bestIdentifier := candidates[0].Identifier
	bestUtility := -1.0

	for _, c := range candidates {
		priceScore := 1.0
		if pmax != pmin {
			priceScore = 1 - (c.Record.Price-pmin)/(pmax-pmin)
		}

		repScore := 1.0
		if rmax != rmin {
			repScore = (c.Reputation.ReputationScore - rmin) / (rmax - rmin)
		}

		utility := priceScore*policy.Price + repScore*policy.Reputation
		if utility > bestUtility {
			bestUtility = utility
			bestIdentifier = c.Identifier
		}
	}

	return bestIdentifier
}
