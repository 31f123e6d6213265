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

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AleutianAI/codekg/services/codegraph/graph"
)

// Root-scoped node reads. Every query anchors at the root FileNode so that
// graphs of other repositories sharing the store are never touched.
const (
	readFileNodesQuery = `
		MATCH (root:FileNode {node_id: $root_id})
		MATCH (root)-[:HAS_FILE*0..]->(f:FileNode)
		RETURN DISTINCT f.node_id AS node_id, f.basename AS basename,
		       f.relative_path AS relative_path`

	readASTNodesQuery = `
		MATCH (root:FileNode {node_id: $root_id})
		MATCH (root)-[:HAS_FILE|HAS_AST|PARENT_OF*]->(a:ASTNode)
		RETURN DISTINCT a.node_id AS node_id, a.type AS type,
		       a.start_line AS start_line, a.end_line AS end_line, a.text AS text`

	readTextNodesQuery = `
		MATCH (root:FileNode {node_id: $root_id})
		MATCH (root)-[:HAS_FILE|HAS_TEXT|NEXT_CHUNK*]->(t:TextNode)
		RETURN DISTINCT t.node_id AS node_id, t.text AS text, t.metadata AS metadata`
)

// edgeReadQuery lists every edge of one kind in the store; LoadGraph keeps
// only those whose endpoints were both reconstructed, which induces exactly
// the subgraph reachable from the root.
func edgeReadQuery(sourceLabel, targetLabel string, kind graph.EdgeKind) string {
	return fmt.Sprintf(`
		MATCH (source:%s)-[:%s]->(target:%s)
		RETURN source.node_id AS source_id, target.node_id AS target_id`,
		sourceLabel, kind, targetLabel)
}

// LoadGraph reconstructs the subgraph reachable from rootNodeID.
//
// maxASTDepth, chunkSize, and chunkOverlap are reconstruction metadata
// recorded on the returned graph; they are not re-derived from the data.
// Reconstructing immediately after WriteGraph yields a graph equal to the
// written one up to node ordering.
func (s *Store) LoadGraph(
	ctx context.Context, rootNodeID int64, maxASTDepth, chunkSize, chunkOverlap int,
) (*graph.KnowledgeGraph, error) {
	params := map[string]any{"root_id": rootNodeID}

	var nodes []*graph.Node
	inGraph := make(map[int64]*graph.Node)

	nodeReads := []struct {
		query   string
		mapping func(map[string]any) (*graph.Node, error)
	}{
		{readFileNodesQuery, fileNodeFromRecord},
		{readASTNodesQuery, astNodeFromRecord},
		{readTextNodesQuery, textNodeFromRecord},
	}
	for _, read := range nodeReads {
		records, err := s.RunRead(ctx, read.query, params)
		if err != nil {
			return nil, fmt.Errorf("load nodes: %w", err)
		}
		for _, record := range records {
			node, err := read.mapping(record)
			if err != nil {
				return nil, fmt.Errorf("load nodes: %w", err)
			}
			nodes = append(nodes, node)
			inGraph[node.ID] = node
		}
	}

	if _, ok := inGraph[rootNodeID]; !ok {
		return nil, fmt.Errorf("no graph with root node id %d", rootNodeID)
	}

	var edges []graph.Edge
	edgeReads := []struct {
		kind  graph.EdgeKind
		query string
	}{
		{graph.EdgeParentOf, edgeReadQuery("ASTNode", "ASTNode", graph.EdgeParentOf)},
		{graph.EdgeHasFile, edgeReadQuery("FileNode", "FileNode", graph.EdgeHasFile)},
		{graph.EdgeHasAST, edgeReadQuery("FileNode", "ASTNode", graph.EdgeHasAST)},
		{graph.EdgeHasText, edgeReadQuery("FileNode", "TextNode", graph.EdgeHasText)},
		{graph.EdgeNextChunk, edgeReadQuery("TextNode", "TextNode", graph.EdgeNextChunk)},
	}
	for _, read := range edgeReads {
		records, err := s.RunRead(ctx, read.query, nil)
		if err != nil {
			return nil, fmt.Errorf("load %s edges: %w", read.kind, err)
		}
		for _, record := range records {
			row, err := edgeRowFromRecord(record)
			if err != nil {
				return nil, fmt.Errorf("load %s edges: %w", read.kind, err)
			}
			source, sourceOK := inGraph[row.SourceID]
			target, targetOK := inGraph[row.TargetID]
			if !sourceOK || !targetOK {
				// Edge of an unrelated repository's graph.
				continue
			}
			edges = append(edges, graph.Edge{Source: source, Target: target, Kind: read.kind})
		}
	}

	return graph.FromParts(nodes, edges,
		graph.WithRootNodeID(rootNodeID),
		graph.WithMaxASTDepth(maxASTDepth),
		graph.WithChunking(chunkSize, chunkOverlap),
		graph.WithLogger(s.log)), nil
}

// GraphExists reports whether a graph with the given root node id is stored.
func (s *Store) GraphExists(ctx context.Context, rootNodeID int64) (bool, error) {
	records, err := s.RunRead(ctx,
		"MATCH (n:FileNode {node_id: $root_id}) RETURN COUNT(n) > 0 AS graph_exists",
		map[string]any{"root_id": rootNodeID})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}
	exists, ok := records[0]["graph_exists"].(bool)
	return ok && exists, nil
}

// MaxNodeID returns the highest node id stored across all graphs, or -1 when
// the store is empty. New builds start their id space above it.
func (s *Store) MaxNodeID(ctx context.Context) (int64, error) {
	records, err := s.RunRead(ctx, `
		MATCH (n)
		WHERE n:FileNode OR n:ASTNode OR n:TextNode
		RETURN max(n.node_id) AS max_id`, nil)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 || records[0]["max_id"] == nil {
		return -1, nil
	}
	maxID, ok := records[0]["max_id"].(int64)
	if !ok {
		return 0, fmt.Errorf("max_id is %T, want int64", records[0]["max_id"])
	}
	return maxID, nil
}

// DeleteGraph removes the root node and everything reachable from it, with
// all incident relationships, in one operation. Best effort: deleting a root
// that does not exist is not an error.
func (s *Store) DeleteGraph(ctx context.Context, rootNodeID int64) error {
	err := s.runWrite(ctx, func(tx neo4j.ManagedTransaction) error {
		_, err := tx.Run(ctx, `
			MATCH (root:FileNode {node_id: $root_id})
			OPTIONAL MATCH (root)-[*]->(descendant)
			DETACH DELETE root, descendant`,
			map[string]any{"root_id": rootNodeID})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete graph %d: %w", rootNodeID, err)
	}
	s.log.Info("knowledge graph deleted", "root_node_id", rootNodeID)
	return nil
}

// deleteAllAttempts bounds the wipe-verify loop of DeleteAll.
const deleteAllAttempts = 3

// DeleteAll wipes every stored graph, retrying until the store verifies
// empty or the attempt budget is exhausted.
func (s *Store) DeleteAll(ctx context.Context) error {
	for attempt := 1; attempt <= deleteAllAttempts; attempt++ {
		err := s.runWrite(ctx, func(tx neo4j.ManagedTransaction) error {
			_, err := tx.Run(ctx, `
				MATCH (n)
				WHERE n:FileNode OR n:ASTNode OR n:TextNode
				DETACH DELETE n`, nil)
			return err
		})
		if err != nil {
			s.log.Warn("delete all failed", "attempt", attempt, "error", err)
			continue
		}

		records, err := s.RunRead(ctx, `
			MATCH (n)
			WHERE n:FileNode OR n:ASTNode OR n:TextNode
			RETURN COUNT(n) AS remaining`, nil)
		if err != nil {
			s.log.Warn("delete all verification failed", "attempt", attempt, "error", err)
			continue
		}
		if len(records) == 1 {
			if remaining, ok := records[0]["remaining"].(int64); ok && remaining == 0 {
				return nil
			}
		}
	}
	return fmt.Errorf("store not empty after %d delete attempts", deleteAllAttempts)
}
