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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/agentweb-project/agentweb/internal/logger"
)

// Client talks to a remote IndexerService over HTTP: capability
// registration and search, reputation reporting and batch lookup, and
// (when fallback discovery is enabled) the record cache endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client pointed at an Indexer's base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithHTTPClient creates a Client with a caller-supplied
// *http.Client, for custom timeouts, transports, or TLS configuration.
func NewClientWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// RegisterCapabilities registers agentID's capabilities with the index.
func (c *Client) RegisterCapabilities(ctx context.Context, agentID string, capabilities []string) error {
	reg := CapabilityRegistration{AgentID: agentID, Capabilities: capabilities}
	return c.postJSON(ctx, "/register_capabilities", reg, nil)
}

// Report reports the outcome of a single RPC call, best-effort: the
// caller should treat a returned error as non-fatal, matching the
// reference agent's always-report-in-finally semantics.
func (c *Client) Report(ctx context.Context, agentID string, success bool, responseTimeMs float64) error {
	report := TransactionReport{AgentID: agentID, Success: success, ResponseTimeMs: responseTimeMs}
	return c.postJSON(ctx, "/report", report, nil)
}

// Search returns the identifiers registered for capability.
func (c *Client) Search(ctx context.Context, capability string) ([]string, error) {
	u := c.baseURL + "/search?" + url.Values{"capability": {capability}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("indexer: build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, logger.ErrDiscovery.WithCause(err).WithDetails("capability", capability)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, logger.ErrDiscovery.WithDetails("capability", capability).WithDetails("status", resp.StatusCode)
	}

	var ids []string
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return nil, fmt.Errorf("indexer: decode search response: %w", err)
	}
	return ids, nil
}

// GetReputations fetches reputation stats for a batch of identifiers.
func (c *Client) GetReputations(ctx context.Context, agentIDs []string) (map[string]ReputationStats, error) {
	var resp ReputationResponse
	if err := c.postJSON(ctx, "/get_reputations", ReputationRequest{AgentIDs: agentIDs}, &resp); err != nil {
		return nil, err
	}
	return resp.Reputations, nil
}

// PublishRecordCache publishes an AgentRecord to the Indexer's
// fallback cache. key is the publishing agent's identifier; value is
// the JSON-encoded record.AgentRecord. It satisfies overlay.RecordCache.
func (c *Client) PublishRecordCache(ctx context.Context, key, value string) error {
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(value), &decoded); err != nil {
		return fmt.Errorf("indexer: decode record for cache publish: %w", err)
	}
	cacheRec := CacheRecord{
		DID:          key,
		Endpoint:     stringField(decoded, "endpoint"),
		PublicKeyPEM: stringField(decoded, "public_key_pem"),
		Price:        floatField(decoded, "price"),
		Capabilities: stringSliceField(decoded, "capabilities"),
	}
	return c.postJSON(ctx, "/publish_record", cacheRec, nil)
}

// DiscoverRecordCache looks up an AgentRecord by identifier from the
// Indexer's fallback cache. It satisfies overlay.RecordCache.
func (c *Client) DiscoverRecordCache(ctx context.Context, key string) (string, bool, error) {
	u := c.baseURL + "/discover/" + url.PathEscape(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, fmt.Errorf("indexer: build discover request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("indexer: discover returned status %d", resp.StatusCode)
	}

	var rec CacheRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return "", false, fmt.Errorf("indexer: decode cache record: %w", err)
	}

	// Re-encode in the same shape record.AgentRecord expects: the cache's
	// wire shape carries a `did` that the record shape does not, and no
	// payment method, so `did` is dropped and payment_method is "none".
	out, err := json.Marshal(map[string]interface{}{
		"public_key_pem": rec.PublicKeyPEM,
		"endpoint":       rec.Endpoint,
		"price":          rec.Price,
		"payment_method": "none",
		"capabilities":   rec.Capabilities,
	})
	if err != nil {
		return "", false, fmt.Errorf("indexer: re-encode cache record: %w", err)
	}
	return string(out), true, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("indexer: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("indexer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return logger.ErrReporting.WithCause(err).WithDetails("path", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("indexer: %s returned status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("indexer: decode response from %s: %w", path, err)
		}
	}
	return nil
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func floatField(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}

func stringSliceField(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
