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

package indexer

import (
	"net/http"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/agentweb-project/agentweb/internal/logger"
	"github.com/agentweb-project/agentweb/internal/metrics"
)

// Service is the centralized capability index and reputation bureau.
// It holds three in-memory tables, each guarded by its own mutex: the
// capability index, the reputation stats table, and (for agents
// running with fallback discovery enabled) the AgentRecord cache.
//
// The Indexer performs no authentication on register_capabilities or
// report: any caller can register capabilities under any identifier,
// or inject reputation data for one. This mirrors the reference
// bureau and is a known, documented limitation rather than an
// oversight — see the deployment notes in SPEC_FULL.md.
type Service struct {
	capMu sync.RWMutex
	index map[string][]string // capability -> ordered, deduped agent IDs

	repMu sync.RWMutex
	reps  map[string]*ReputationStats

	cacheMu sync.RWMutex
	cache   map[string]CacheRecord

	log logger.Logger
}

// NewService creates an empty IndexerService.
func NewService() *Service {
	return &Service{
		index: make(map[string][]string),
		reps:  make(map[string]*ReputationStats),
		cache: make(map[string]CacheRecord),
		log:   logger.Default().WithFields(logger.String("component", "indexer")),
	}
}

// Router builds the gin engine serving this Service's HTTP API.
func (s *Service) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(cors.Default())

	r.POST("/register_capabilities", s.handleRegisterCapabilities)
	r.POST("/report", s.handleReport)
	r.GET("/search", s.handleSearch)
	r.POST("/get_reputations", s.handleGetReputations)
	r.POST("/publish_record", s.handlePublishRecord)
	r.GET("/discover/:did", s.handleDiscover)

	return r
}

func (s *Service) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Debug("handled request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
		)
	}
}

func (s *Service) handleRegisterCapabilities(c *gin.Context) {
	var reg CapabilityRegistration
	if err := c.ShouldBindJSON(&reg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.capMu.Lock()
	for _, capability := range reg.Capabilities {
		ids := s.index[capability]
		if !containsString(ids, reg.AgentID) {
			s.index[capability] = append(ids, reg.AgentID)
		}
	}
	numCapabilities := len(s.index)
	s.capMu.Unlock()

	metrics.IndexedCapabilities.Set(float64(numCapabilities))
	s.log.Info("registered capabilities", logger.String("agent_id", reg.AgentID), logger.Any("capabilities", reg.Capabilities))

	c.JSON(http.StatusCreated, gin.H{"status": "success", "agent_id": reg.AgentID})
}

func (s *Service) handleReport(c *gin.Context) {
	var report TransactionReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.repMu.Lock()
	stats, ok := s.reps[report.AgentID]
	if !ok {
		stats = &ReputationStats{}
		s.reps[report.AgentID] = stats
	}
	stats.Count++
	stats.TotalResponseTimeMs += report.ResponseTimeMs
	if report.Success {
		stats.Successes++
	} else {
		stats.Failures++
	}
	stats.derive()
	s.repMu.Unlock()

	metrics.ReputationReports.WithLabelValues(boolLabel(report.Success)).Inc()

	c.JSON(http.StatusOK, gin.H{"status": "reputation_updated"})
}

func (s *Service) handleSearch(c *gin.Context) {
	capability := c.Query("capability")

	s.capMu.RLock()
	ids := append([]string(nil), s.index[capability]...)
	s.capMu.RUnlock()

	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, ids)
}

func (s *Service) handleGetReputations(c *gin.Context) {
	var req ReputationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := make(map[string]ReputationStats, len(req.AgentIDs))

	s.repMu.RLock()
	for _, id := range req.AgentIDs {
		if stats, ok := s.reps[id]; ok {
			result[id] = *stats
		} else {
			fresh := ReputationStats{}
			fresh.derive()
			result[id] = fresh
		}
	}
	s.repMu.RUnlock()

	c.JSON(http.StatusOK, ReputationResponse{Reputations: result})
}

func (s *Service) handlePublishRecord(c *gin.Context) {
	var rec CacheRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.cacheMu.Lock()
	s.cache[rec.DID] = rec
	size := len(s.cache)
	s.cacheMu.Unlock()

	metrics.RecordCacheSize.Set(float64(size))
	s.log.Debug("cached record", logger.String("did", rec.DID))

	c.JSON(http.StatusCreated, gin.H{"status": "cached", "did": rec.DID})
}

func (s *Service) handleDiscover(c *gin.Context) {
	did := c.Param("did")

	s.cacheMu.RLock()
	rec, ok := s.cache[did]
	s.cacheMu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "did not found in cache: " + did})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
