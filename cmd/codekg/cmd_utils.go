// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/codekg/services/codegraph"
	"github.com/AleutianAI/codekg/services/codegraph/config"
	"github.com/AleutianAI/codekg/services/codegraph/store"
)

// openStore loads configuration and connects to the graph store. The caller
// must Close the store.
func openStore(ctx context.Context) (*store.Store, config.Config, error) {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return nil, config.Config{}, err
	}

	opts := cfg.StoreOptions()
	opts.Logger = slog.Default()
	s, err := store.New(ctx, opts)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("connect to %s: %w", cfg.Neo4j.URI, err)
	}
	return s, cfg, nil
}

// newEngine wires a store into the engine facade.
func newEngine(s *store.Store, cfg config.Config) *codegraph.Service {
	return codegraph.NewService(s, codegraph.ServiceConfig{
		MaxASTDepth:  cfg.Graph.MaxASTDepth,
		ChunkSize:    cfg.Graph.ChunkSize,
		ChunkOverlap: cfg.Graph.ChunkOverlap,
		WorkerCount:  cfg.Graph.WorkerCount,
		Logger:       slog.Default(),
	})
}
