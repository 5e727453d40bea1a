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

// Command agentd runs a single long-running agent: it joins the
// overlay, publishes its record and capabilities, and serves signed
// RPC invocations until terminated.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/agentweb-project/agentweb/internal/config"
	"github.com/agentweb-project/agentweb/internal/logger"
	"github.com/agentweb-project/agentweb/pkg/runtime"
)

func main() {
	configPath := flag.String("config", "", "path to an agent config file (YAML or JSON)")
	endpoint := flag.String("endpoint", "", "URL peers should use to reach this agent's /invoke listener (required)")
	capabilities := flag.String("capabilities", "", "comma-separated list of capabilities this agent offers")
	price := flag.Float64("price", 0, "price advertised in this agent's record")
	paymentMethod := flag.String("payment-method", "none", "free-form payment method tag advertised in this agent's record")
	flag.Parse()

	if *endpoint == "" {
		fmt.Fprintln(os.Stderr, "agentd: -endpoint is required")
		os.Exit(1)
	}

	var cfg *config.AgentConfig
	if *configPath != "" {
		var err error
		cfg, err = config.LoadAgentConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "agentd: load config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg = config.NewAgentConfig()
	}

	log := logger.Default().WithFields(logger.String("component", "agentd"))

	var caps []string
	for _, c := range strings.Split(*capabilities, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			caps = append(caps, c)
		}
	}

	rt := runtime.New(cfg, *endpoint,
		runtime.WithCapabilities(caps...),
		runtime.WithPricing(*price, *paymentMethod),
		runtime.WithHandler(echoHandler(log)),
	)

	ctx := context.Background()
	if err := rt.Start(ctx); err != nil {
		log.Fatal("failed to start agent runtime", logger.Error(err))
	}
	log.Info("agent serving",
		logger.String("identifier", rt.Identifier),
		logger.String("endpoint", *endpoint),
		logger.String("state", rt.State().String()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", logger.Error(err))
	}
}

// echoHandler is the default handler wired when no application-specific
// logic is supplied: it reflects the decoded request body back to the
// caller, useful for smoke-testing a fresh deployment end to end.
func echoHandler(log logger.Logger) func(ctx context.Context, senderID string, body json.RawMessage) (interface{}, error) {
	return func(ctx context.Context, senderID string, body json.RawMessage) (interface{}, error) {
		log.Info("invoke received", logger.String("sender_id", senderID))
		var payload interface{}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("agentd: decode request body: %w", err)
		}
		return map[string]interface{}{"echo": payload, "from": senderID}, nil
	}
}
