// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists knowledge graphs to Neo4j and reconstructs them.
//
// The store is shared across repositories: every graph lives in the same
// database, partitioned only by reachability from its root node id. Three
// node labels (FileNode, ASTNode, TextNode) are each uniquely constrained on
// node_id; writes are idempotent upserts keyed by node_id, so retrying a
// failed batch is safe.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// DefaultBatchSize is the number of nodes or edges written per query.
const DefaultBatchSize = 500

// Options configures the Neo4j connection.
type Options struct {
	URI      string
	Username string
	Password string

	// Database is the Neo4j database name. Empty uses the server default.
	Database string

	// BatchSize caps rows per UNWIND write. Defaults to DefaultBatchSize.
	BatchSize int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store is a Neo4j-backed graph store.
//
// Thread Safety: safe for concurrent use; the underlying driver pools
// connections and reads take no locks.
type Store struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
	log       *slog.Logger
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(
		opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	return &Store{
		driver:    driver,
		database:  opts.Database,
		batchSize: opts.BatchSize,
		log:       opts.Logger,
	}, nil
}

// Close releases the driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// RunRead runs one read-only query and returns its rows as maps.
func (s *Store) RunRead(
	ctx context.Context, query string, params map[string]any,
) ([]map[string]any, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		data := make([]map[string]any, 0, len(records))
		for _, record := range records {
			data = append(data, record.AsMap())
		}
		return data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("run read query: %w", err)
	}
	return rows.([]map[string]any), nil
}

// runWrite runs statements inside one write transaction.
func (s *Store) runWrite(
	ctx context.Context, fn func(tx neo4j.ManagedTransaction) error,
) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(tx)
	})
	return err
}
