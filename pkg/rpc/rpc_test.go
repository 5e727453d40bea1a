package rpc

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentweb-project/agentweb/internal/jsoncanon"
	"github.com/agentweb-project/agentweb/pkg/identity"
	"github.com/agentweb-project/agentweb/pkg/record"
	"github.com/agentweb-project/agentweb/pkg/signature"
)

type peer struct {
	id     string
	kp     *identity.Keypair
	record *record.AgentRecord
}

func newPeer(t *testing.T, endpoint string) *peer {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	kp := &identity.Keypair{Private: priv}
	id, err := identity.IdentifierOf(kp)
	require.NoError(t, err)
	pemText, err := identity.PublicKeyPEM(kp.PublicKey())
	require.NoError(t, err)
	return &peer{
		id: id,
		kp: kp,
		record: &record.AgentRecord{
			PublicKeyPEM: pemText,
			Endpoint:     endpoint,
		},
	}
}

type fakeRecordResolver struct {
	byID map[string]*record.AgentRecord
}

func (f *fakeRecordResolver) Fetch(ctx context.Context, identifier string) (*record.AgentRecord, error) {
	rec, ok := f.byID[identifier]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return rec, nil
}

type fakeReporter struct {
	calls []string
}

func (f *fakeReporter) Report(ctx context.Context, agentID string, success bool, responseTimeMs float64) error {
	f.calls = append(f.calls, agentID)
	return nil
}

func TestTransportServer_RoundTrip(t *testing.T) {
	handlerCalls := 0
	var mux *http.ServeMux
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
	}))
	defer srv.Close()

	client := newPeer(t, "http://unused")
	server := newPeer(t, srv.URL)

	resolver := &fakeRecordResolver{byID: map[string]*record.AgentRecord{
		client.id: client.record,
		server.id: server.record,
	}}
	reporter := &fakeReporter{}

	rpcServer := NewServer(resolver, 0)
	mux = http.NewServeMux()
	mux.HandleFunc("/invoke", rpcServer.Invoke(func(ctx context.Context, senderID string, body json.RawMessage) (interface{}, error) {
		handlerCalls++
		assert.Equal(t, client.id, senderID)
		return map[string]string{"echo": string(body)}, nil
	}))

	transport := NewTransport(client.id, signature.NewSigner(client.kp), resolver, reporter)

	var out map[string]string
	err := transport.Send(context.Background(), server.id, map[string]int{"x": 1}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, handlerCalls)
	assert.Contains(t, out["echo"], `"x":1`)
	assert.Equal(t, []string{server.id}, reporter.calls)
}

func TestServer_Invoke(t *testing.T) {
	t.Run("S4_TamperedPayloadIsRejected", func(t *testing.T) {
		client := newPeer(t, "http://unused")
		server := newPeer(t, "http://unused")
		resolver := &fakeRecordResolver{byID: map[string]*record.AgentRecord{
			client.id: client.record,
			server.id: server.record,
		}}

		canon := jsoncanon.NewCanonicalizer()
		origBody, _ := json.Marshal(map[string]int{"x": 1})
		payload := Payload{SenderID: client.id, Body: origBody, Timestamp: float64(time.Now().Unix())}
		canonBytes, err := canon.Marshal(payload)
		require.NoError(t, err)

		signer := signature.NewSigner(client.kp)
		sig, err := signer.Sign(canonBytes)
		require.NoError(t, err)

		tamperedBody, _ := json.Marshal(map[string]int{"x": 2})
		tamperedPayload := Payload{SenderID: client.id, Body: tamperedBody, Timestamp: payload.Timestamp}
		tamperedCanon, err := canon.Marshal(tamperedPayload)
		require.NoError(t, err)

		envelope := Envelope{
			Payload:   base64.StdEncoding.EncodeToString(tamperedCanon),
			Signature: base64.StdEncoding.EncodeToString(sig),
		}
		envData, _ := json.Marshal(envelope)

		handlerCalled := false
		rpcServer := NewServer(resolver, 0)
		handler := rpcServer.Invoke(func(ctx context.Context, senderID string, body json.RawMessage) (interface{}, error) {
			handlerCalled = true
			return nil, nil
		})

		req := httptest.NewRequest(http.MethodPost, "/invoke", bytes.NewReader(envData))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.False(t, handlerCalled)
	})

	t.Run("RejectsUnresolvedSender", func(t *testing.T) {
		server := newPeer(t, "http://unused")
		resolver := &fakeRecordResolver{byID: map[string]*record.AgentRecord{
			server.id: server.record,
		}}

		ghost := newPeer(t, "http://unused")
		canon := jsoncanon.NewCanonicalizer()
		body, _ := json.Marshal(map[string]int{"x": 1})
		payload := Payload{SenderID: ghost.id, Body: body, Timestamp: float64(time.Now().Unix())}
		canonBytes, err := canon.Marshal(payload)
		require.NoError(t, err)
		sig, err := signature.NewSigner(ghost.kp).Sign(canonBytes)
		require.NoError(t, err)
		envelope := Envelope{
			Payload:   base64.StdEncoding.EncodeToString(canonBytes),
			Signature: base64.StdEncoding.EncodeToString(sig),
		}
		envData, _ := json.Marshal(envelope)

		rpcServer := NewServer(resolver, 0)
		handler := rpcServer.Invoke(func(ctx context.Context, senderID string, body json.RawMessage) (interface{}, error) {
			return nil, nil
		})

		req := httptest.NewRequest(http.MethodPost, "/invoke", bytes.NewReader(envData))
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("RejectsStaleTimestamp", func(t *testing.T) {
		client := newPeer(t, "http://unused")
		server := newPeer(t, "http://unused")
		resolver := &fakeRecordResolver{byID: map[string]*record.AgentRecord{
			client.id: client.record,
			server.id: server.record,
		}}

		canon := jsoncanon.NewCanonicalizer()
		body, _ := json.Marshal(map[string]int{"x": 1})
		stale := time.Now().Add(-1 * time.Hour)
		payload := Payload{SenderID: client.id, Body: body, Timestamp: float64(stale.Unix())}
		canonBytes, err := canon.Marshal(payload)
		require.NoError(t, err)
		sig, err := signature.NewSigner(client.kp).Sign(canonBytes)
		require.NoError(t, err)
		envelope := Envelope{
			Payload:   base64.StdEncoding.EncodeToString(canonBytes),
			Signature: base64.StdEncoding.EncodeToString(sig),
		}
		envData, _ := json.Marshal(envelope)

		rpcServer := NewServer(resolver, 5*time.Minute)
		handlerCalled := false
		handler := rpcServer.Invoke(func(ctx context.Context, senderID string, body json.RawMessage) (interface{}, error) {
			handlerCalled = true
			return nil, nil
		})

		req := httptest.NewRequest(http.MethodPost, "/invoke", bytes.NewReader(envData))
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.False(t, handlerCalled)
	})

	t.Run("RejectsMalformedEnvelope", func(t *testing.T) {
		resolver := &fakeRecordResolver{byID: map[string]*record.AgentRecord{}}
		rpcServer := NewServer(resolver, 0)
		handler := rpcServer.Invoke(func(ctx context.Context, senderID string, body json.RawMessage) (interface{}, error) {
			return nil, nil
		})

		req := httptest.NewRequest(http.MethodPost, "/invoke", bytes.NewReader([]byte("not json")))
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("HandlerErrorSurfacesAs500", func(t *testing.T) {
		client := newPeer(t, "http://unused")
		server := newPeer(t, "http://unused")
		resolver := &fakeRecordResolver{byID: map[string]*record.AgentRecord{
			client.id: client.record,
			server.id: server.record,
		}}

		canon := jsoncanon.NewCanonicalizer()
		body, _ := json.Marshal(map[string]int{"x": 1})
		payload := Payload{SenderID: client.id, Body: body, Timestamp: float64(time.Now().Unix())}
		canonBytes, err := canon.Marshal(payload)
		require.NoError(t, err)
		sig, err := signature.NewSigner(client.kp).Sign(canonBytes)
		require.NoError(t, err)
		envelope := Envelope{
			Payload:   base64.StdEncoding.EncodeToString(canonBytes),
			Signature: base64.StdEncoding.EncodeToString(sig),
		}
		envData, _ := json.Marshal(envelope)

		rpcServer := NewServer(resolver, 0)
		handler := rpcServer.Invoke(func(ctx context.Context, senderID string, body json.RawMessage) (interface{}, error) {
			return nil, assertError{}
		})

		req := httptest.NewRequest(http.MethodPost, "/invoke", bytes.NewReader(envData))
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

type assertError struct{}

func (assertError) Error() string { return "handler boom" }
