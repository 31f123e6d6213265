// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AleutianAI/codekg/services/codegraph/graph"
)

// Uniqueness constraints per node label. Creating them also indexes node_id.
var constraintQueries = []string{
	"CREATE CONSTRAINT unique_file_node_id IF NOT EXISTS " +
		"FOR (n:FileNode) REQUIRE n.node_id IS UNIQUE",
	"CREATE CONSTRAINT unique_ast_node_id IF NOT EXISTS " +
		"FOR (n:ASTNode) REQUIRE n.node_id IS UNIQUE",
	"CREATE CONSTRAINT unique_text_node_id IF NOT EXISTS " +
		"FOR (n:TextNode) REQUIRE n.node_id IS UNIQUE",
}

const (
	writeFileNodesQuery = `
		UNWIND $rows AS row
		MERGE (n:FileNode {node_id: row.node_id})
		SET n.basename = row.basename, n.relative_path = row.relative_path`

	writeASTNodesQuery = `
		UNWIND $rows AS row
		MERGE (n:ASTNode {node_id: row.node_id})
		SET n.type = row.type, n.start_line = row.start_line,
		    n.end_line = row.end_line, n.text = row.text`

	writeTextNodesQuery = `
		UNWIND $rows AS row
		MERGE (n:TextNode {node_id: row.node_id})
		SET n.text = row.text, n.metadata = row.metadata`
)

// edgeWriteQuery builds the batched upsert for one edge kind. MERGE keeps
// edge writes retryable without duplicating relationships.
func edgeWriteQuery(sourceLabel, targetLabel string, kind graph.EdgeKind) string {
	return fmt.Sprintf(`
		UNWIND $rows AS row
		MATCH (source:%s {node_id: row.source_id})
		MATCH (target:%s {node_id: row.target_id})
		MERGE (source)-[:%s]->(target)`, sourceLabel, targetLabel, kind)
}

// EnsureConstraints creates the node_id uniqueness constraints. Idempotent,
// safe to run before every write.
func (s *Store) EnsureConstraints(ctx context.Context) error {
	return s.runWrite(ctx, func(tx neo4j.ManagedTransaction) error {
		for _, query := range constraintQueries {
			if _, err := tx.Run(ctx, query, nil); err != nil {
				return fmt.Errorf("create constraint: %w", err)
			}
		}
		return nil
	})
}

// WriteGraph persists the whole graph.
//
// Description:
//
//	Ensures constraints, then writes all FileNodes, ASTNodes, and TextNodes
//	before any edge referencing them, then the smaller edge kinds, and
//	finally PARENT_OF in its own pass since it is typically the largest
//	set. Every statement is an upsert keyed by node_id so a partially
//	failed write can simply be rerun.
//
// Inputs:
//   - ctx: cancels outstanding batches.
//   - g: the graph to persist.
//
// Outputs:
//   - error: nil once every batch is committed.
//
// Thread Safety: safe, but callers must not write the same graph from two
// goroutines while also deleting it.
func (s *Store) WriteGraph(ctx context.Context, g *graph.KnowledgeGraph) error {
	start := time.Now()

	if err := s.EnsureConstraints(ctx); err != nil {
		return err
	}

	fileRows := make([]map[string]any, 0, len(g.FileNodes()))
	for _, n := range g.FileNodes() {
		fileRows = append(fileRows, fileNodeRowFromNode(n).toMap())
	}
	astRows := make([]map[string]any, 0, len(g.ASTNodes()))
	for _, n := range g.ASTNodes() {
		astRows = append(astRows, astNodeRowFromNode(n).toMap())
	}
	textRows := make([]map[string]any, 0, len(g.TextNodes()))
	for _, n := range g.TextNodes() {
		textRows = append(textRows, textNodeRowFromNode(n).toMap())
	}

	if err := s.writeBatched(ctx, writeFileNodesQuery, fileRows); err != nil {
		return fmt.Errorf("write file nodes: %w", err)
	}
	if err := s.writeBatched(ctx, writeASTNodesQuery, astRows); err != nil {
		return fmt.Errorf("write ast nodes: %w", err)
	}
	if err := s.writeBatched(ctx, writeTextNodesQuery, textRows); err != nil {
		return fmt.Errorf("write text nodes: %w", err)
	}

	edgePasses := []struct {
		kind  graph.EdgeKind
		query string
	}{
		{graph.EdgeHasAST, edgeWriteQuery("FileNode", "ASTNode", graph.EdgeHasAST)},
		{graph.EdgeHasFile, edgeWriteQuery("FileNode", "FileNode", graph.EdgeHasFile)},
		{graph.EdgeHasText, edgeWriteQuery("FileNode", "TextNode", graph.EdgeHasText)},
		{graph.EdgeNextChunk, edgeWriteQuery("TextNode", "TextNode", graph.EdgeNextChunk)},
		{graph.EdgeParentOf, edgeWriteQuery("ASTNode", "ASTNode", graph.EdgeParentOf)},
	}
	for _, pass := range edgePasses {
		edges := g.EdgesByKind(pass.kind)
		rows := make([]map[string]any, 0, len(edges))
		for _, e := range edges {
			rows = append(rows, edgeRow{SourceID: e.Source.ID, TargetID: e.Target.ID}.toMap())
		}
		if err := s.writeBatched(ctx, pass.query, rows); err != nil {
			return fmt.Errorf("write %s edges: %w", pass.kind, err)
		}
	}

	s.log.Info("knowledge graph written",
		"root_node_id", g.RootNodeID(),
		"nodes", len(g.Nodes()),
		"edges", len(g.Edges()),
		"duration", time.Since(start))
	writeDuration.Observe(time.Since(start).Seconds())
	return nil
}

// writeBatched runs one UNWIND statement over rows in batchSize slices, each
// batch in its own transaction.
func (s *Store) writeBatched(ctx context.Context, query string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		err := s.runWrite(ctx, func(tx neo4j.ManagedTransaction) error {
			_, err := tx.Run(ctx, query, map[string]any{"rows": batch})
			return err
		})
		if err != nil {
			return err
		}
		batchesWritten.Inc()
	}
	return nil
}
