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
	"fmt"
	"regexp"
	"strings"
)

// previewMaxLines caps how much of a file a preview returns.
const previewMaxLines = 1000

// lineEnding splits file content regardless of platform conventions.
var lineEnding = regexp.MustCompile(`\r\n|\r|\n`)

// Source previews come from the file's AST root, whose text is the whole
// file. Text previews come from the head of the chunk chain: the one chunk
// with no incoming NEXT_CHUNK edge.
const (
	previewSourceQuery = `
		MATCH (root:FileNode {node_id: $root_id})
		MATCH (root)-[:HAS_FILE*0..]->(f:FileNode {%s: $file})-[:HAS_AST]->(ast:ASTNode)
		RETURN f{.*} AS FileNode, ast.text AS content
		ORDER BY f.node_id`

	previewTextQuery = `
		MATCH (root:FileNode {node_id: $root_id})
		MATCH (root)-[:HAS_FILE*0..]->(f:FileNode {%s: $file})-[:HAS_TEXT]->(head:TextNode)
		WHERE NOT (:TextNode)-[:NEXT_CHUNK]->(head)
		RETURN f{.*} AS FileNode, head.text AS content
		ORDER BY f.node_id`
)

// PreviewFileContentWithBasename previews files matching a basename: up to
// the first 1000 lines with 1-based line numbers prefixed.
func (t *Toolset) PreviewFileContentWithBasename(
	ctx context.Context, basename string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	return t.previewFileContent(ctx, "basename", basename, maxTokenPerResult)
}

// PreviewFileContentWithRelativePath previews the file at an exact
// repository-relative path.
func (t *Toolset) PreviewFileContentWithRelativePath(
	ctx context.Context, relativePath string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	return t.previewFileContent(ctx, "relative_path", relativePath, maxTokenPerResult)
}

func (t *Toolset) previewFileContent(
	ctx context.Context, property, value string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	params := map[string]any{"root_id": t.rootNodeID, "file": value}

	var records []map[string]any
	for _, query := range []string{
		fmt.Sprintf(previewSourceQuery, property),
		fmt.Sprintf(previewTextQuery, property),
	} {
		rows, err := t.runner.RunRead(ctx, query, params)
		if err != nil {
			return "", nil, fmt.Errorf("preview_file_content: %w", err)
		}
		for _, row := range rows {
			content, ok := row["content"].(string)
			if !ok {
				continue
			}
			records = append(records, map[string]any{
				"FileNode": row["FileNode"],
				"preview":  previewRecord(content),
			})
		}
	}

	queriesTotal.WithLabelValues("preview_file_content").Inc()
	return FormatRecords(records, maxTokenPerResult), records, nil
}

// splitContentLines splits on any line ending, without a phantom empty line
// for content that ends in a newline.
func splitContentLines(content string) []string {
	lines := lineEnding.Split(content, -1)
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// numberLines prefixes each line with its 1-indexed number, starting at
// startLine.
func numberLines(lines []string, startLine int) string {
	numbered := make([]string, len(lines))
	for i, line := range lines {
		numbered[i] = fmt.Sprintf("%d. %s", startLine+i, line)
	}
	return strings.Join(numbered, "\n")
}

// previewRecord numbers the first previewMaxLines lines of content.
func previewRecord(content string) map[string]any {
	lines := splitContentLines(content)
	if len(lines) > previewMaxLines {
		lines = lines[:previewMaxLines]
	}
	return map[string]any{
		"start_line": 1,
		"end_line":   len(lines),
		"text":       numberLines(lines, 1),
	}
}

// ReadCodeWithLineNumbers reads lines [startLine, endLine) of a source file,
// 1-indexed, with line numbers prefixed.
//
// An end line below the start line is an agent mistake, reported as a
// formatted error string rather than a Go error so the agent can correct
// itself on the next call.
func (t *Toolset) ReadCodeWithLineNumbers(
	ctx context.Context, relativePath string, startLine, endLine int, maxTokenPerResult int,
) (string, []map[string]any, error) {
	if endLine < startLine {
		message := fmt.Sprintf(
			"The end line number %d must be greater than the start line number %d.",
			endLine, startLine)
		return message, nil, nil
	}
	if startLine < 1 {
		startLine = 1
	}

	query := fmt.Sprintf(previewSourceQuery, "relative_path")
	rows, err := t.runner.RunRead(ctx, query,
		map[string]any{"root_id": t.rootNodeID, "file": relativePath})
	if err != nil {
		return "", nil, fmt.Errorf("read_code_with_line_numbers: %w", err)
	}

	var records []map[string]any
	for _, row := range rows {
		content, ok := row["content"].(string)
		if !ok {
			continue
		}

		lines := splitContentLines(content)
		if startLine > len(lines) {
			continue
		}
		end := endLine - 1
		if end > len(lines) {
			end = len(lines)
		}
		text := numberLines(lines[startLine-1:end], startLine)

		records = append(records, map[string]any{
			"FileNode": row["FileNode"],
			"SelectedLines": map[string]any{
				"start_line": startLine,
				"end_line":   endLine,
				"text":       text,
			},
		})
	}

	queriesTotal.WithLabelValues("read_code_with_line_numbers").Inc()
	return FormatRecords(records, maxTokenPerResult), records, nil
}
