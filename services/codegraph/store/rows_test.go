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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codekg/services/codegraph/graph"
)

func TestFileNodeRowMapping(t *testing.T) {
	node := &graph.Node{
		ID:      7,
		Payload: graph.FileNode{Basename: "test.py", RelativePath: "bar/test.py"},
	}

	row := fileNodeRowFromNode(node).toMap()
	assert.Equal(t, map[string]any{
		"node_id":       int64(7),
		"basename":      "test.py",
		"relative_path": "bar/test.py",
	}, row)

	back, err := fileNodeFromRecord(row)
	require.NoError(t, err)
	assert.Equal(t, node.ID, back.ID)
	assert.Equal(t, node.Payload, back.Payload)
}

func TestASTNodeRowMapping(t *testing.T) {
	node := &graph.Node{
		ID: 12,
		Payload: graph.ASTNode{
			Type: "call", StartLine: 0, EndLine: 0, Text: "print(1 + 2)",
		},
	}

	row := astNodeRowFromNode(node).toMap()
	assert.Equal(t, "call", row["type"])

	// Neo4j returns integers as int64.
	row["start_line"] = int64(0)
	row["end_line"] = int64(0)
	back, err := astNodeFromRecord(row)
	require.NoError(t, err)
	assert.Equal(t, node.Payload, back.Payload)
}

func TestTextNodeRowMapping(t *testing.T) {
	node := &graph.Node{
		ID:      3,
		Payload: graph.TextNode{Text: "Text under header A.", Metadata: "{'Header 1': 'A'}"},
	}

	back, err := textNodeFromRecord(textNodeRowFromNode(node).toMap())
	require.NoError(t, err)
	assert.Equal(t, node.ID, back.ID)
	assert.Equal(t, node.Payload, back.Payload)
}

func TestNodeFromRecordRejectsBadFields(t *testing.T) {
	_, err := fileNodeFromRecord(map[string]any{"node_id": "nope"})
	assert.Error(t, err)

	_, err = astNodeFromRecord(map[string]any{
		"node_id": int64(1), "type": 5,
	})
	assert.Error(t, err)

	_, err = textNodeFromRecord(map[string]any{
		"node_id": int64(1), "text": "x",
	})
	assert.Error(t, err, "missing metadata field")
}

func TestEdgeRowMapping(t *testing.T) {
	row, err := edgeRowFromRecord(map[string]any{
		"source_id": int64(4), "target_id": int64(9),
	})
	require.NoError(t, err)
	assert.Equal(t, edgeRow{SourceID: 4, TargetID: 9}, row)

	_, err = edgeRowFromRecord(map[string]any{"source_id": int64(4)})
	assert.Error(t, err)
}

func TestEdgeWriteQueryShape(t *testing.T) {
	query := edgeWriteQuery("FileNode", "ASTNode", graph.EdgeHasAST)
	assert.Contains(t, query, "MATCH (source:FileNode {node_id: row.source_id})")
	assert.Contains(t, query, "MERGE (source)-[:HAS_AST]->(target)")
}
