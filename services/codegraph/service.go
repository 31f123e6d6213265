// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package codegraph provides the code knowledge-graph engine.
//
// The engine walks a repository, parses supported source files into
// depth-bounded syntax trees, chunks text files by markdown headers, and
// persists the resulting graph to a shared store where many repositories
// coexist, each partitioned by reachability from its own root node.
package codegraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/codekg/services/codegraph/graph"
)

// GraphStore is the persistence surface the engine requires. *store.Store
// satisfies it.
type GraphStore interface {
	MaxNodeID(ctx context.Context) (int64, error)
	WriteGraph(ctx context.Context, g *graph.KnowledgeGraph) error
	LoadGraph(ctx context.Context, rootNodeID int64,
		maxASTDepth, chunkSize, chunkOverlap int) (*graph.KnowledgeGraph, error)
	GraphExists(ctx context.Context, rootNodeID int64) (bool, error)
	DeleteGraph(ctx context.Context, rootNodeID int64) error
}

// ServiceConfig configures the engine.
type ServiceConfig struct {
	// MaxASTDepth bounds how deep below each file's AST root the extractor
	// descends. Default: graph.DefaultMaxASTDepth
	MaxASTDepth int

	// ChunkSize is the target text chunk size in characters.
	// Default: graph.DefaultChunkSize
	ChunkSize int

	// ChunkOverlap is the character overlap between adjacent chunks.
	// Default: graph.DefaultChunkOverlap
	ChunkOverlap int

	// WorkerCount bounds the parse fan-out. Default: number of CPUs.
	WorkerCount int

	// Logger receives build and store events. Default: slog.Default()
	Logger *slog.Logger
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxASTDepth:  graph.DefaultMaxASTDepth,
		ChunkSize:    graph.DefaultChunkSize,
		ChunkOverlap: graph.DefaultChunkOverlap,
		WorkerCount:  graph.DefaultWorkerCount,
	}
}

// Service is the knowledge-graph engine facade.
//
// Thread Safety:
//
//	Reads (LoadGraph, GraphExists) are safe for unbounded concurrent use.
//	The caller must ensure at most one BuildGraph or DeleteGraph is in
//	flight per repository; the engine does not serialize across callers.
type Service struct {
	store  GraphStore
	config ServiceConfig
	log    *slog.Logger
}

// NewService creates an engine backed by the given store.
func NewService(store GraphStore, config ServiceConfig) *Service {
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}
	if config.MaxASTDepth <= 0 {
		config.MaxASTDepth = graph.DefaultMaxASTDepth
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = graph.DefaultChunkSize
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = graph.DefaultChunkOverlap
	}
	return &Service{store: store, config: config, log: log}
}

// BuildGraph builds the knowledge graph for the repository at rootDir and
// persists it, returning the new graph's root node id.
//
// Description:
//
//	The id space of the new graph starts one past the highest node id
//	already stored, so graphs of different repositories never collide.
//	The in-memory build completes before the first write; a store failure
//	leaves no partially referenced graph since upsert batches can simply
//	be rerun and the root id is only returned on success.
//
// Inputs:
//   - ctx: cancels the build and outstanding writes.
//   - rootDir: repository root to walk.
//   - maxASTDepth: AST depth bound for this build; values <= 0 fall back
//     to the configured default.
//
// Outputs:
//   - int64: root node id of the persisted graph.
//   - error: non-nil when the walk or the store fails.
func (s *Service) BuildGraph(ctx context.Context, rootDir string, maxASTDepth int) (int64, error) {
	if maxASTDepth <= 0 {
		maxASTDepth = s.config.MaxASTDepth
	}

	maxID, err := s.store.MaxNodeID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate id space: %w", err)
	}
	base := maxID + 1

	g := graph.NewKnowledgeGraph(
		graph.WithRootNodeID(base),
		graph.WithMaxASTDepth(maxASTDepth),
		graph.WithChunking(s.config.ChunkSize, s.config.ChunkOverlap),
		graph.WithWorkerCount(s.config.WorkerCount),
		graph.WithLogger(s.log),
	)
	if err := g.Build(ctx, rootDir); err != nil {
		return 0, fmt.Errorf("build graph: %w", err)
	}
	if err := s.store.WriteGraph(ctx, g); err != nil {
		return 0, fmt.Errorf("persist graph: %w", err)
	}
	return g.RootNodeID(), nil
}

// LoadGraph reconstructs a stored graph by its root node id.
func (s *Service) LoadGraph(
	ctx context.Context, rootNodeID int64, maxASTDepth, chunkSize, chunkOverlap int,
) (*graph.KnowledgeGraph, error) {
	if maxASTDepth <= 0 {
		maxASTDepth = s.config.MaxASTDepth
	}
	if chunkSize <= 0 {
		chunkSize = s.config.ChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = s.config.ChunkOverlap
	}
	return s.store.LoadGraph(ctx, rootNodeID, maxASTDepth, chunkSize, chunkOverlap)
}

// GraphExists reports whether a graph with the given root node id is stored.
func (s *Service) GraphExists(ctx context.Context, rootNodeID int64) (bool, error) {
	return s.store.GraphExists(ctx, rootNodeID)
}

// DeleteGraph removes a stored graph and everything reachable from its root.
func (s *Service) DeleteGraph(ctx context.Context, rootNodeID int64) error {
	return s.store.DeleteGraph(ctx, rootNodeID)
}
