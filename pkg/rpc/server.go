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
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/agentweb-project/agentweb/internal/logger"
	"github.com/agentweb-project/agentweb/internal/metrics"
	"github.com/agentweb-project/agentweb/pkg/identity"
	"github.com/agentweb-project/agentweb/pkg/signature"
)

// Handler processes a dispatched call's body on behalf of senderID and
// returns a JSON-encodable result, or an error to surface as a 500.
type Handler func(ctx context.Context, senderID string, body json.RawMessage) (interface{}, error)

// Server exposes the /invoke endpoint: it authenticates the sender,
// verifies the signature, and dispatches to a user-supplied Handler.
type Server struct {
	records RecordResolver
	guard   *ReplayGuard
	log     logger.Logger
}

// NewServer creates an inbound RPC Server. A zero or negative
// replayWindow uses DefaultReplayWindow.
func NewServer(records RecordResolver, replayWindow time.Duration) *Server {
	return &Server{
		records: records,
		guard:   NewReplayGuard(replayWindow),
		log:     logger.Default().WithFields(logger.String("component", "rpc_server")),
	}
}

// Invoke returns the http.HandlerFunc for POST /invoke. handler is
// called once the envelope has been authenticated and verified.
func (s *Server) Invoke(handler Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithRequestID(r.Context(), uuid.NewString())

		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errBody(err))
			return
		}
		defer r.Body.Close()

		var envelope Envelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			metrics.RPCAuthFailures.WithLabelValues("decode").Inc()
			s.writeJSON(w, http.StatusBadRequest, errBody(err))
			return
		}

		payloadBytes, err := base64.StdEncoding.DecodeString(envelope.Payload)
		if err != nil {
			metrics.RPCAuthFailures.WithLabelValues("decode").Inc()
			s.writeJSON(w, http.StatusBadRequest, errBody(err))
			return
		}
		sigBytes, err := base64.StdEncoding.DecodeString(envelope.Signature)
		if err != nil {
			metrics.RPCAuthFailures.WithLabelValues("decode").Inc()
			s.writeJSON(w, http.StatusBadRequest, errBody(err))
			return
		}

		var payload Payload
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			metrics.RPCAuthFailures.WithLabelValues("decode").Inc()
			s.writeJSON(w, http.StatusBadRequest, errBody(err))
			return
		}

		senderRecord, err := s.records.Fetch(ctx, payload.SenderID)
		if err != nil {
			metrics.RPCAuthFailures.WithLabelValues("unresolved_sender").Inc()
			s.writeJSON(w, http.StatusForbidden, errMsg("could not authenticate sender"))
			return
		}

		senderPub, err := identity.ParsePublicKeyPEM(senderRecord.PublicKeyPEM)
		if err != nil {
			metrics.RPCAuthFailures.WithLabelValues("unresolved_sender").Inc()
			s.writeJSON(w, http.StatusForbidden, errMsg("could not authenticate sender"))
			return
		}

		verifier := signature.NewVerifier(senderPub)
		if !verifier.Verify(payloadBytes, sigBytes) {
			metrics.RPCAuthFailures.WithLabelValues("bad_signature").Inc()
			s.writeJSON(w, http.StatusForbidden, errMsg("invalid signature"))
			return
		}

		if err := s.guard.Check(payload.SenderID, payload.Timestamp, time.Now()); err != nil {
			metrics.RPCAuthFailures.WithLabelValues("stale_timestamp").Inc()
			s.writeJSON(w, http.StatusForbidden, errMsg(err.Error()))
			return
		}

		result, err := handler(ctx, payload.SenderID, payload.Body)
		if err != nil {
			metrics.RPCHandlerErrors.Inc()
			s.log.WithContext(ctx).Warn("handler failed", logger.String("sender_id", payload.SenderID), logger.Error(err))
			s.writeJSON(w, http.StatusInternalServerError, errBody(err))
			return
		}

		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("failed to encode response", logger.Error(err))
	}
}

func errBody(err error) map[string]string { return map[string]string{"error": err.Error()} }
func errMsg(msg string) map[string]string { return map[string]string{"error": msg} }
