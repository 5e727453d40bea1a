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

// Command indexerd runs the centralized capability index and
// reputation bureau.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentweb-project/agentweb/internal/config"
	"github.com/agentweb-project/agentweb/internal/logger"
	"github.com/agentweb-project/agentweb/internal/metrics"
	"github.com/agentweb-project/agentweb/pkg/indexer"
)

func main() {
	configPath := flag.String("config", "", "path to an indexer config file (YAML or JSON)")
	flag.Parse()

	var cfg *config.IndexerConfig
	if *configPath != "" {
		var err error
		cfg, err = config.LoadIndexerConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "indexerd: load config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg = config.NewIndexerConfig()
	}

	log := logger.Default().WithFields(logger.String("component", "indexerd"))

	svc := indexer.NewService()
	apiServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: svc.Router(),
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			log.Info("metrics listening", logger.String("addr", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("metrics server failed", logger.Error(err))
			}
		}()
	}

	go func() {
		log.Info("indexer API listening", logger.String("addr", apiServer.Addr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("indexer API server failed", logger.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		log.Warn("indexer API shutdown error", logger.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Warn("metrics shutdown error", logger.Error(err))
		}
	}
}
