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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentweb-project/agentweb/internal/jsoncanon"
	"github.com/agentweb-project/agentweb/internal/logger"
	"github.com/agentweb-project/agentweb/internal/metrics"
	"github.com/agentweb-project/agentweb/pkg/record"
	"github.com/agentweb-project/agentweb/pkg/signature"
)

// defaultSendTimeout bounds a single outbound /invoke call.
const defaultSendTimeout = 10 * time.Second

// Reporter reports a completed call's outcome for reputation
// accounting. It is satisfied by *indexer.Client.
type Reporter interface {
	Report(ctx context.Context, agentID string, success bool, responseTimeMs float64) error
}

// RecordResolver resolves a peer's verified AgentRecord. It is
// satisfied by *record.Registry.
type RecordResolver interface {
	Fetch(ctx context.Context, identifier string) (*record.AgentRecord, error)
}

// Transport sends signed RPC calls; the receiving side is Server.
type Transport struct {
	selfID     string
	signer     *signature.Signer
	records    RecordResolver
	reporter   Reporter
	httpClient *http.Client
	canon      *jsoncanon.Canonicalizer
	log        logger.Logger
}

// NewTransport creates an outbound RPC Transport for an agent
// identified by selfID, signing with signer, resolving peers through
// records, and reporting call outcomes through reporter.
func NewTransport(selfID string, signer *signature.Signer, records RecordResolver, reporter Reporter) *Transport {
	return &Transport{
		selfID:     selfID,
		signer:     signer,
		records:    records,
		reporter:   reporter,
		httpClient: &http.Client{Timeout: defaultSendTimeout},
		canon:      jsoncanon.NewCanonicalizer(),
		log:        logger.Default().WithFields(logger.String("component", "rpc_transport")),
	}
}

// Send resolves target, builds and signs a payload wrapping body, POSTs
// it to the target's {endpoint}/invoke, and always reports the
// outcome to the reputation bureau on a best-effort basis. The
// response body is JSON-decoded into out when non-nil.
func (t *Transport) Send(ctx context.Context, target string, body interface{}, out interface{}) error {
	start := time.Now()
	success := false

	defer func() {
		latency := time.Since(start)
		metrics.RPCLatency.Observe(latency.Seconds())
		if success {
			metrics.RPCOutcomes.WithLabelValues("success").Inc()
		} else {
			metrics.RPCOutcomes.WithLabelValues("failure").Inc()
		}
		if err := t.reporter.Report(context.Background(), target, success, float64(latency.Milliseconds())); err != nil {
			t.log.Debug("failed to report RPC outcome", logger.String("target", target), logger.Error(err))
		}
	}()

	rec, err := t.records.Fetch(ctx, target)
	if err != nil {
		return logger.ErrDiscovery.WithCause(err).WithDetails("target", target)
	}

	rawBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("rpc: marshal body: %w", err)
	}

	payload := Payload{
		SenderID:  t.selfID,
		Body:      rawBody,
		Timestamp: float64(time.Now().Unix()),
	}

	canonBytes, err := t.canon.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rpc: canonicalize payload: %w", err)
	}

	sig, err := t.signer.Sign(canonBytes)
	if err != nil {
		return logger.ErrTransport.WithCause(err).WithDetails("op", "sign")
	}

	envelope := Envelope{
		Payload:   base64.StdEncoding.EncodeToString(canonBytes),
		Signature: base64.StdEncoding.EncodeToString(sig),
	}

	envData, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("rpc: marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rec.Endpoint+"/invoke", bytes.NewReader(envData))
	if err != nil {
		return fmt.Errorf("rpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return logger.ErrTransport.WithCause(err).WithDetails("target", target)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return logger.ErrTransport.WithCause(err).WithDetails("target", target)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return logger.ErrTransport.WithDetails("target", target).WithDetails("status", resp.StatusCode).
			WithDetails("body", string(respBody))
	}

	success = true

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("rpc: decode response: %w", err)
		}
	}
	return nil
}
