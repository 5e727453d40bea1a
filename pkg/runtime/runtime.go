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

package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/agentweb-project/agentweb/internal/config"
	"github.com/agentweb-project/agentweb/internal/logger"
	"github.com/agentweb-project/agentweb/pkg/identity"
	"github.com/agentweb-project/agentweb/pkg/indexer"
	"github.com/agentweb-project/agentweb/pkg/overlay"
	"github.com/agentweb-project/agentweb/pkg/ranking"
	"github.com/agentweb-project/agentweb/pkg/record"
	"github.com/agentweb-project/agentweb/pkg/rpc"
	"github.com/agentweb-project/agentweb/pkg/signature"
)

// AgentRuntime composes a single long-running agent process: identity,
// overlay membership, an HTTP listener, directory registration, and
// the signed RPC transport, advancing through State in one direction.
type AgentRuntime struct {
	cfg *config.AgentConfig

	mu    sync.Mutex
	state State

	Keypair    *identity.Keypair
	Identifier string

	Overlay      overlay.Client
	Records      *record.Registry
	IndexerClient *indexer.Client
	Ranking      *ranking.Engine
	Transport    *rpc.Transport
	rpcServer    *rpc.Server

	endpoint     string
	capabilities []string
	price        float64
	paymentMethod string
	handler      rpc.Handler

	httpServer *http.Server
	log        logger.Logger
}

// Option customizes an AgentRuntime before Start.
type Option func(*AgentRuntime)

// WithCapabilities sets the capabilities this agent advertises and
// registers with the Indexer.
func WithCapabilities(capabilities ...string) Option {
	return func(r *AgentRuntime) { r.capabilities = capabilities }
}

// WithPricing sets the price and payment method published in this
// agent's AgentRecord.
func WithPricing(price float64, paymentMethod string) Option {
	return func(r *AgentRuntime) {
		r.price = price
		r.paymentMethod = paymentMethod
	}
}

// WithHandler sets the user-supplied handler dispatched for every
// verified inbound /invoke call.
func WithHandler(handler rpc.Handler) Option {
	return func(r *AgentRuntime) { r.handler = handler }
}

// New creates an AgentRuntime from cfg, reachable at endpoint (the URL
// peers should use to reach this agent's /invoke listener).
func New(cfg *config.AgentConfig, endpoint string, opts ...Option) *AgentRuntime {
	r := &AgentRuntime{
		cfg:           cfg,
		state:         Initializing,
		endpoint:      endpoint,
		paymentMethod: "none",
		handler: func(ctx context.Context, senderID string, body json.RawMessage) (interface{}, error) {
			return nil, fmt.Errorf("runtime: no handler configured")
		},
		log: logger.Default().WithFields(logger.String("component", "agent_runtime")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the runtime's current lifecycle state.
func (r *AgentRuntime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// advance moves the runtime to next, refusing to move backward.
func (r *AgentRuntime) advance(next State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if next < r.state {
		r.log.Warn("refusing to move runtime state backward",
			logger.String("current", r.state.String()), logger.String("requested", next.String()))
		return
	}
	r.state = next
	r.log.Info("runtime state transition", logger.String("state", next.String()))
}

// Start runs the full startup sequence: key material, overlay
// membership, the HTTP listener, directory publication, then begins
// serving. A failure to register with the Indexer (REGISTERED) is
// logged but does not abort startup — the agent still becomes
// reachable and discoverable through the overlay alone.
func (r *AgentRuntime) Start(ctx context.Context) error {
	kp, err := identity.LoadOrCreate(r.cfg.KeyFile)
	if err != nil {
		return fmt.Errorf("runtime: load identity: %w", err)
	}
	r.Keypair = kp
	r.Identifier, err = identity.IdentifierOf(kp)
	if err != nil {
		return fmt.Errorf("runtime: derive identifier: %w", err)
	}
	r.advance(KeyReady)

	dhtOverlay, err := overlay.NewDHTOverlay(ctx, r.cfg.DHTHost, r.cfg.DHTPort, bootstrapAddr(r.cfg))
	if err != nil {
		return fmt.Errorf("runtime: join overlay: %w", err)
	}

	r.IndexerClient = indexer.NewClient(r.cfg.RegistryURL)

	if r.cfg.FallbackDiscoveryEnabled {
		r.Overlay = overlay.NewFallbackOverlay(dhtOverlay, overlay.NewCachedOverlay(r.IndexerClient))
	} else {
		r.Overlay = dhtOverlay
	}
	r.advance(OverlayJoined)

	r.Records = record.NewRegistry(r.Overlay)
	r.Ranking = ranking.NewEngine(r.IndexerClient, r.Records)
	r.rpcServer = rpc.NewServer(r.Records, r.cfg.ReplayWindow)
	r.Transport = rpc.NewTransport(r.Identifier, signature.NewSigner(r.Keypair), r.Records, r.IndexerClient)

	mux := http.NewServeMux()
	mux.HandleFunc("/invoke", r.rpcServer.Invoke(func(ctx context.Context, senderID string, body json.RawMessage) (interface{}, error) {
		return r.handler(ctx, senderID, body)
	}))

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTPHost, r.cfg.HTTPPort)
	r.httpServer = &http.Server{Addr: addr, Handler: mux}

	listenErrCh := make(chan error, 1)
	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			listenErrCh <- err
		}
	}()
	select {
	case err := <-listenErrCh:
		return fmt.Errorf("runtime: start http listener: %w", err)
	default:
	}
	r.advance(Listening)

	r.register(ctx)
	r.advance(Serving)

	return nil
}

// register publishes this agent's record to the overlay (and, in
// fallback mode, to the Indexer cache) and registers its capabilities.
// Failure here is non-fatal: it is logged and the runtime still
// reaches SERVING.
func (r *AgentRuntime) register(ctx context.Context) {
	pemText, err := identity.PublicKeyPEM(r.Keypair.PublicKey())
	if err != nil {
		r.log.Warn("failed to render public key PEM for registration", logger.Error(err))
		return
	}

	rec := &record.AgentRecord{
		PublicKeyPEM:  pemText,
		Endpoint:      r.endpoint,
		Price:         r.price,
		PaymentMethod: r.paymentMethod,
		Capabilities:  r.capabilities,
	}

	if err := r.Records.Publish(ctx, r.Identifier, rec); err != nil {
		r.log.Warn("failed to publish agent record, continuing unregistered", logger.Error(err))
		return
	}

	if len(r.capabilities) > 0 {
		if err := r.IndexerClient.RegisterCapabilities(ctx, r.Identifier, r.capabilities); err != nil {
			r.log.Warn("failed to register capabilities, continuing unregistered", logger.Error(err))
			return
		}
	}

	r.advance(Registered)
}

// Shutdown gracefully stops the HTTP listener and the overlay node.
func (r *AgentRuntime) Shutdown(ctx context.Context) error {
	defer r.advance(Shutdown)

	if r.httpServer != nil {
		if err := r.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("runtime: shutdown http listener: %w", err)
		}
	}
	if closer, ok := r.Overlay.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("runtime: close overlay: %w", err)
		}
	}
	return nil
}

func bootstrapAddr(cfg *config.AgentConfig) string {
	if cfg.BootstrapNode == nil {
		return ""
	}
	return fmt.Sprintf("/ip4/%s/tcp/%d", cfg.BootstrapNode.Host, cfg.BootstrapNode.Port)
}
