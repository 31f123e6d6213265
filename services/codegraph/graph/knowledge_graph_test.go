// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestGraph(t *testing.T, opts ...Option) *KnowledgeGraph {
	t.Helper()
	g := NewKnowledgeGraph(opts...)
	require.NoError(t, g.Build(context.Background(), testProjectDir))
	return g
}

func TestBuildGraphCounts(t *testing.T) {
	g := buildTestGraph(t, WithMaxASTDepth(1000))

	assert.Len(t, g.FileNodes(), 8)
	assert.Len(t, g.ASTNodes(), 84)
	assert.Len(t, g.TextNodes(), 4)

	assert.Len(t, g.EdgesByKind(EdgeParentOf), 81)
	assert.Len(t, g.EdgesByKind(EdgeHasFile), 7)
	assert.Len(t, g.EdgesByKind(EdgeHasAST), 3)
	assert.Len(t, g.EdgesByKind(EdgeHasText), 1)
	assert.Len(t, g.EdgesByKind(EdgeNextChunk), 3)

	assert.Len(t, g.Nodes(), 96)
	assert.EqualValues(t, 96, g.NextNodeID())
}

func TestBuildGraphRootNode(t *testing.T) {
	g := buildTestGraph(t)

	root := g.NodeByID(g.RootNodeID())
	require.NotNil(t, root)
	assert.EqualValues(t, 0, root.ID)
	assert.Equal(t, FileNode{Basename: "test_project", RelativePath: "."}, root.Payload)

	// The root is the only FileNode without an incoming HAS_FILE edge, and
	// every other FileNode has exactly one.
	incoming := make(map[int64]int)
	for _, e := range g.EdgesByKind(EdgeHasFile) {
		incoming[e.Target.ID]++
	}
	for _, n := range g.FileNodes() {
		if n.ID == g.RootNodeID() {
			assert.Zero(t, incoming[n.ID])
			continue
		}
		assert.Equal(t, 1, incoming[n.ID], "file node %d", n.ID)
	}
}

func TestBuildGraphDeterministicIDs(t *testing.T) {
	a := buildTestGraph(t, WithMaxASTDepth(1000))
	b := buildTestGraph(t, WithMaxASTDepth(1000))

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
}

func TestBuildGraphRootNodeIDOffset(t *testing.T) {
	g := buildTestGraph(t, WithRootNodeID(500))

	assert.EqualValues(t, 500, g.RootNodeID())
	for _, n := range g.Nodes() {
		assert.GreaterOrEqual(t, n.ID, int64(500))
	}
	assert.EqualValues(t, 596, g.NextNodeID())
}

func TestBuildGraphDepthBound(t *testing.T) {
	const maxDepth = 2
	g := buildTestGraph(t, WithMaxASTDepth(maxDepth))

	children := make(map[int64][]*Node)
	for _, e := range g.EdgesByKind(EdgeParentOf) {
		children[e.Source.ID] = append(children[e.Source.ID], e.Target)
	}

	type hop struct {
		node  *Node
		depth int
	}
	for _, e := range g.EdgesByKind(EdgeHasAST) {
		queue := []hop{{node: e.Target, depth: 0}}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			assert.LessOrEqual(t, cur.depth, maxDepth)
			for _, child := range children[cur.node.ID] {
				queue = append(queue, hop{node: child, depth: cur.depth + 1})
			}
		}
	}
}

func TestBuildGraphChunkPath(t *testing.T) {
	g := buildTestGraph(t)

	outDegree := make(map[int64]int)
	inDegree := make(map[int64]int)
	for _, e := range g.EdgesByKind(EdgeNextChunk) {
		outDegree[e.Source.ID]++
		inDegree[e.Target.ID]++
	}
	for _, n := range g.TextNodes() {
		assert.LessOrEqual(t, outDegree[n.ID], 1)
		assert.LessOrEqual(t, inDegree[n.ID], 1)
	}

	// Exactly one chunk per file carries HAS_TEXT, and it is the chain head.
	hasText := g.EdgesByKind(EdgeHasText)
	require.Len(t, hasText, 1)
	head := hasText[0].Target
	assert.Zero(t, inDegree[head.ID])

	// Following NEXT_CHUNK from the head visits every chunk of the file.
	next := make(map[int64]*Node)
	for _, e := range g.EdgesByKind(EdgeNextChunk) {
		next[e.Source.ID] = e.Target
	}
	visited := 0
	for n := head; n != nil; n = next[n.ID] {
		visited++
	}
	assert.Equal(t, len(g.TextNodes()), visited)
}

func TestBuildGraphSkipsUnsupportedFiles(t *testing.T) {
	g := buildTestGraph(t)

	var dummy *Node
	for _, n := range g.FileNodes() {
		if n.Payload.(FileNode).Basename == "test.dummy" {
			dummy = n
		}
	}
	require.NotNil(t, dummy, "unsupported files still get a FileNode")

	for _, e := range g.Edges() {
		if e.Source.ID == dummy.ID {
			t.Fatalf("unsupported file should have no outgoing edges, got %s", e)
		}
	}
}

func TestGetFileTree(t *testing.T) {
	g := buildTestGraph(t)

	want := "test_project\n" +
		"├── bar\n" +
		"|   ├── test.java\n" +
		"|   └── test.py\n" +
		"├── foo\n" +
		"|   ├── test.dummy\n" +
		"|   └── test.md\n" +
		"└── test.c"
	assert.Equal(t, want, g.GetFileTree(DefaultTreeMaxDepth, DefaultTreeMaxLines))
}

func TestGetFileTreeDepthLimit(t *testing.T) {
	g := buildTestGraph(t)

	tree := g.GetFileTree(1, DefaultTreeMaxLines)
	assert.Contains(t, tree, "bar")
	assert.NotContains(t, tree, "test.java")
}

func TestGetAllASTNodeTypes(t *testing.T) {
	g := buildTestGraph(t)

	types := g.GetAllASTNodeTypes()
	assert.Contains(t, types, "module")
	assert.Contains(t, types, "translation_unit")
	assert.Contains(t, types, "program")
	assert.Contains(t, types, "binary_expression")
	assert.IsNonDecreasing(t, types)
}

func TestEqualDetectsDifferences(t *testing.T) {
	a := buildTestGraph(t)
	b := buildTestGraph(t)
	require.True(t, a.Equal(b))

	c := FromParts(b.Nodes()[:len(b.Nodes())-1], b.Edges(),
		WithMaxASTDepth(b.MaxASTDepth()))
	assert.False(t, a.Equal(c))
}

func TestFromPartsRoundTrip(t *testing.T) {
	a := buildTestGraph(t)

	b := FromParts(a.Nodes(), a.Edges(),
		WithRootNodeID(a.RootNodeID()),
		WithMaxASTDepth(a.MaxASTDepth()),
		WithChunking(a.ChunkSize(), a.ChunkOverlap()))

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.NextNodeID(), b.NextNodeID())
}
