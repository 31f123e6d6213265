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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codekg/services/codegraph/graph"
)

// Integration tests need a running Neo4j instance. They are skipped unless
// CODEKG_NEO4J_URI is set, e.g.:
//
//	CODEKG_NEO4J_URI=neo4j://localhost:7687 \
//	CODEKG_NEO4J_USERNAME=neo4j CODEKG_NEO4J_PASSWORD=password go test ./...
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("CODEKG_NEO4J_URI")
	if uri == "" {
		t.Skip("CODEKG_NEO4J_URI not set")
	}

	s, err := New(context.Background(), Options{
		URI:      uri,
		Username: os.Getenv("CODEKG_NEO4J_USERNAME"),
		Password: os.Getenv("CODEKG_NEO4J_PASSWORD"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.DeleteAll(context.Background()))
		require.NoError(t, s.Close(context.Background()))
	})
	require.NoError(t, s.DeleteAll(context.Background()))
	return s
}

// buildFixtureGraph assembles a small graph in memory without touching the
// filesystem: a root with one source file and one two-chunk document.
func buildFixtureGraph(rootNodeID int64) *graph.KnowledgeGraph {
	root := &graph.Node{
		ID:      rootNodeID,
		Payload: graph.FileNode{Basename: "repo", RelativePath: "."},
	}
	source := &graph.Node{
		ID:      rootNodeID + 1,
		Payload: graph.FileNode{Basename: "main.py", RelativePath: "main.py"},
	}
	astRoot := &graph.Node{
		ID:      rootNodeID + 2,
		Payload: graph.ASTNode{Type: "module", StartLine: 0, EndLine: 0, Text: "print(1)"},
	}
	astChild := &graph.Node{
		ID:      rootNodeID + 3,
		Payload: graph.ASTNode{Type: "expression_statement", StartLine: 0, EndLine: 0, Text: "print(1)"},
	}
	doc := &graph.Node{
		ID:      rootNodeID + 4,
		Payload: graph.FileNode{Basename: "readme.md", RelativePath: "readme.md"},
	}
	chunk1 := &graph.Node{
		ID:      rootNodeID + 5,
		Payload: graph.TextNode{Text: "Intro.", Metadata: "{'Header 1': 'Top'}"},
	}
	chunk2 := &graph.Node{
		ID:      rootNodeID + 6,
		Payload: graph.TextNode{Text: "More.", Metadata: "{'Header 1': 'Top', 'Header 2': 'Next'}"},
	}

	nodes := []*graph.Node{root, source, astRoot, astChild, doc, chunk1, chunk2}
	edges := []graph.Edge{
		{Source: root, Target: source, Kind: graph.EdgeHasFile},
		{Source: root, Target: doc, Kind: graph.EdgeHasFile},
		{Source: source, Target: astRoot, Kind: graph.EdgeHasAST},
		{Source: astRoot, Target: astChild, Kind: graph.EdgeParentOf},
		{Source: doc, Target: chunk1, Kind: graph.EdgeHasText},
		{Source: chunk1, Target: chunk2, Kind: graph.EdgeNextChunk},
	}
	return graph.FromParts(nodes, edges, graph.WithRootNodeID(rootNodeID))
}

func TestWriteAndLoadGraphRoundTrip(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	original := buildFixtureGraph(0)
	require.NoError(t, s.WriteGraph(ctx, original))

	loaded, err := s.LoadGraph(ctx, 0,
		original.MaxASTDepth(), original.ChunkSize(), original.ChunkOverlap())
	require.NoError(t, err)
	assert.True(t, original.Equal(loaded))
}

func TestWriteGraphIsIdempotent(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	g := buildFixtureGraph(0)
	require.NoError(t, s.WriteGraph(ctx, g))
	require.NoError(t, s.WriteGraph(ctx, g))

	loaded, err := s.LoadGraph(ctx, 0, g.MaxASTDepth(), g.ChunkSize(), g.ChunkOverlap())
	require.NoError(t, err)
	assert.True(t, g.Equal(loaded), "rewriting must not duplicate nodes or edges")
}

func TestLoadGraphScopedToRoot(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	first := buildFixtureGraph(0)
	second := buildFixtureGraph(100)
	require.NoError(t, s.WriteGraph(ctx, first))
	require.NoError(t, s.WriteGraph(ctx, second))

	loaded, err := s.LoadGraph(ctx, 100,
		second.MaxASTDepth(), second.ChunkSize(), second.ChunkOverlap())
	require.NoError(t, err)
	assert.True(t, second.Equal(loaded))
	for _, n := range loaded.Nodes() {
		assert.GreaterOrEqual(t, n.ID, int64(100),
			"loading one graph must not pull in another repository's nodes")
	}
}

func TestGraphExists(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	exists, err := s.GraphExists(ctx, 0)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.WriteGraph(ctx, buildFixtureGraph(0)))

	exists, err = s.GraphExists(ctx, 0)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMaxNodeID(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	maxID, err := s.MaxNodeID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, -1, maxID)

	require.NoError(t, s.WriteGraph(ctx, buildFixtureGraph(40)))

	maxID, err = s.MaxNodeID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 46, maxID)
}

func TestDeleteGraphRemovesOnlyOneRepository(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	first := buildFixtureGraph(0)
	second := buildFixtureGraph(100)
	require.NoError(t, s.WriteGraph(ctx, first))
	require.NoError(t, s.WriteGraph(ctx, second))

	require.NoError(t, s.DeleteGraph(ctx, 0))

	exists, err := s.GraphExists(ctx, 0)
	require.NoError(t, err)
	assert.False(t, exists)

	loaded, err := s.LoadGraph(ctx, 100,
		second.MaxASTDepth(), second.ChunkSize(), second.ChunkOverlap())
	require.NoError(t, err)
	assert.True(t, second.Equal(loaded))
}

func TestDeleteAll(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteGraph(ctx, buildFixtureGraph(0)))
	require.NoError(t, s.DeleteAll(ctx))

	maxID, err := s.MaxNodeID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, -1, maxID)
}
