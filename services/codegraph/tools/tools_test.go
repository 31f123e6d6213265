// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records the queries it receives and plays back canned rows.
type fakeRunner struct {
	rows    [][]map[string]any
	queries []string
	params  []map[string]any
	err     error
}

func (f *fakeRunner) RunRead(
	_ context.Context, query string, params map[string]any,
) ([]map[string]any, error) {
	f.queries = append(f.queries, query)
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.rows) == 0 {
		return nil, nil
	}
	rows := f.rows[0]
	f.rows = f.rows[1:]
	return rows, nil
}

func TestToolsBindRootNodeID(t *testing.T) {
	runner := &fakeRunner{}
	ts := New(runner, 42, nil)

	_, _, err := ts.FindFileNodeWithBasename(context.Background(), "main.go", 1000)
	require.NoError(t, err)

	require.Len(t, runner.params, 1)
	assert.EqualValues(t, 42, runner.params[0]["root_id"])
	assert.Equal(t, "main.go", runner.params[0]["basename"])
	assert.Contains(t, runner.queries[0], "LIMIT 30")
}

func TestFindFileNodeNoMatchesReturnsSentinel(t *testing.T) {
	ts := New(&fakeRunner{}, 0, nil)

	formatted, records, err := ts.FindFileNodeWithBasename(context.Background(), "missing.go", 1000)
	require.NoError(t, err)
	assert.Equal(t, EmptyDataMessage, formatted)
	assert.Empty(t, records)
}

func TestFindASTNodeWithTextOrdersBySize(t *testing.T) {
	runner := &fakeRunner{}
	ts := New(runner, 0, nil)

	_, _, err := ts.FindASTNodeWithText(context.Background(), "print", 1000)
	require.NoError(t, err)
	assert.Contains(t, runner.queries[0], "ORDER BY SIZE(a.text)")
	assert.Contains(t, runner.queries[0], "CONTAINS $text")
}

func TestFindASTNodeWithTypeOrdersByNodeID(t *testing.T) {
	runner := &fakeRunner{}
	ts := New(runner, 0, nil)

	_, _, err := ts.FindASTNodeWithType(context.Background(), "call", 1000)
	require.NoError(t, err)
	assert.Contains(t, runner.queries[0], "ORDER BY a.node_id")
}

func TestToolsPropagateStoreErrors(t *testing.T) {
	runner := &fakeRunner{err: errors.New("connection refused")}
	ts := New(runner, 0, nil)

	_, _, err := ts.FindASTNodeWithType(context.Background(), "call", 1000)
	assert.ErrorContains(t, err, "connection refused")
}

func TestGetParentNodeRecordKeys(t *testing.T) {
	runner := &fakeRunner{rows: [][]map[string]any{{
		{
			"ASTNode":    map[string]any{"node_id": int64(30), "type": "(", "text": "("},
			"ParentNode": map[string]any{"node_id": int64(29), "type": "parameter_list", "text": "()"},
		},
	}}}
	ts := New(runner, 0, nil)

	formatted, records, err := ts.GetParentNode(context.Background(), 30, 1000)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, formatted, "ParentNode")
	assert.Contains(t, formatted, "'type': 'parameter_list'")
}

func TestPreviewFileContent(t *testing.T) {
	runner := &fakeRunner{rows: [][]map[string]any{
		{
			{
				"FileNode": map[string]any{"basename": "test.c", "relative_path": "test.c", "node_id": int64(1)},
				"content":  "int main() {\n  return 0;\n}\n",
			},
		},
		{}, // no text-file rows
	}}
	ts := New(runner, 0, nil)

	formatted, records, err := ts.PreviewFileContentWithBasename(context.Background(), "test.c", 4000)
	require.NoError(t, err)
	require.Len(t, records, 1)

	preview := records[0]["preview"].(map[string]any)
	assert.Equal(t, 1, preview["start_line"])
	assert.Equal(t, 3, preview["end_line"])
	assert.Equal(t, "1. int main() {\n2.   return 0;\n3. }", preview["text"])
	assert.Contains(t, formatted, "preview")
	assert.Contains(t, formatted, "'basename': 'test.c'")
}

func TestPreviewTextFileUsesChainHead(t *testing.T) {
	runner := &fakeRunner{rows: [][]map[string]any{
		{}, // no source rows
		{
			{
				"FileNode": map[string]any{"basename": "test.md", "relative_path": "foo/test.md", "node_id": int64(5)},
				"content":  "Text under header A.",
			},
		},
	}}
	ts := New(runner, 0, nil)

	formatted, records, err := ts.PreviewFileContentWithBasename(context.Background(), "test.md", 4000)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, formatted, "1. Text under header A.")
	assert.Contains(t, runner.queries[1], "NOT (:TextNode)-[:NEXT_CHUNK]->(head)")
}

func TestPreviewFileWithoutContentReturnsSentinel(t *testing.T) {
	ts := New(&fakeRunner{}, 0, nil)

	formatted, records, err := ts.PreviewFileContentWithBasename(context.Background(), "empty.md", 4000)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, EmptyDataMessage, formatted)
}

func TestPreviewCapsAtMaxLines(t *testing.T) {
	content := ""
	for i := 0; i < previewMaxLines+50; i++ {
		content += "x\n"
	}
	runner := &fakeRunner{rows: [][]map[string]any{
		{
			{
				"FileNode": map[string]any{"basename": "big.c", "relative_path": "big.c", "node_id": int64(1)},
				"content":  content,
			},
		},
		{},
	}}
	ts := New(runner, 0, nil)

	_, records, err := ts.PreviewFileContentWithBasename(context.Background(), "big.c", 1<<20)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, previewMaxLines, records[0]["preview"].(map[string]any)["end_line"])
}

func TestReadCodeWithLineNumbers(t *testing.T) {
	runner := &fakeRunner{rows: [][]map[string]any{
		{
			{
				"FileNode": map[string]any{"basename": "test.c", "relative_path": "test.c", "node_id": int64(1)},
				"content":  "line one\nline two\nline three\nline four\n",
			},
		},
	}}
	ts := New(runner, 0, nil)

	formatted, records, err := ts.ReadCodeWithLineNumbers(context.Background(), "test.c", 2, 4, 4000)
	require.NoError(t, err)
	require.Len(t, records, 1)

	selected := records[0]["SelectedLines"].(map[string]any)
	assert.Equal(t, 2, selected["start_line"])
	assert.Equal(t, 4, selected["end_line"])
	assert.Equal(t, "2. line two\n3. line three", selected["text"])
	assert.Contains(t, formatted, "SelectedLines")
}

func TestReadCodeWithLineNumbersInvalidRange(t *testing.T) {
	runner := &fakeRunner{}
	ts := New(runner, 0, nil)

	formatted, records, err := ts.ReadCodeWithLineNumbers(context.Background(), "test.c", 5, 3, 4000)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Contains(t, formatted, "must be greater than")
	assert.Empty(t, runner.queries, "invalid ranges must not reach the store")
}

func TestGetNextTextNodeQueryShape(t *testing.T) {
	runner := &fakeRunner{}
	ts := New(runner, 7, nil)

	_, _, err := ts.GetNextTextNodeWithNodeID(context.Background(), 36, 1000)
	require.NoError(t, err)
	assert.Contains(t, runner.queries[0], "[:NEXT_CHUNK]->")
	assert.EqualValues(t, 36, runner.params[0]["node_id"])
	assert.EqualValues(t, 7, runner.params[0]["root_id"])
}
