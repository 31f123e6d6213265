// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools is the closed catalogue of read-only graph queries exposed
// to the agent pipeline.
//
// Every tool is scoped to one repository's root node id, returns at most
// MaxResult records, and formats its output under a caller-supplied token
// budget. Invalid parameters come back as formatted error strings in the
// normal result channel, never as Go errors, so the calling agent can see
// and react to them.
package tools

import (
	"context"
	"fmt"
	"log/slog"
)

// MaxResult caps the records any single tool returns.
const MaxResult = 30

// QueryRunner runs one read-only Cypher query. *store.Store satisfies it.
type QueryRunner interface {
	RunRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// Toolset answers traversal queries against one repository's stored graph.
//
// Thread Safety: safe for concurrent use; tools are read-only and hold no
// mutable state.
type Toolset struct {
	runner     QueryRunner
	rootNodeID int64
	log        *slog.Logger
}

// New returns a Toolset scoped to the graph rooted at rootNodeID.
func New(runner QueryRunner, rootNodeID int64, logger *slog.Logger) *Toolset {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toolset{runner: runner, rootNodeID: rootNodeID, log: logger}
}

// run executes one query with the root id bound and formats the result.
func (t *Toolset) run(
	ctx context.Context, tool, query string, params map[string]any, maxTokenPerResult int,
) (string, []map[string]any, error) {
	if params == nil {
		params = map[string]any{}
	}
	params["root_id"] = t.rootNodeID

	records, err := t.runner.RunRead(ctx, query, params)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", tool, err)
	}
	queriesTotal.WithLabelValues(tool).Inc()
	return FormatRecords(records, maxTokenPerResult), records, nil
}

// =====================
// FileNode lookups
// =====================

// FindFileNodeWithBasename finds files and directories by exact basename.
func (t *Toolset) FindFileNodeWithBasename(
	ctx context.Context, basename string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	query := fmt.Sprintf(`
		MATCH (root:FileNode {node_id: $root_id})
		MATCH (root)-[:HAS_FILE*0..]->(f:FileNode {basename: $basename})
		RETURN f{.*} AS FileNode
		ORDER BY f.node_id
		LIMIT %d`, MaxResult)
	return t.run(ctx, "find_file_node_with_basename", query,
		map[string]any{"basename": basename}, maxTokenPerResult)
}

// FindFileNodeWithRelativePath finds the file or directory at an exact
// repository-relative path.
func (t *Toolset) FindFileNodeWithRelativePath(
	ctx context.Context, relativePath string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	query := fmt.Sprintf(`
		MATCH (root:FileNode {node_id: $root_id})
		MATCH (root)-[:HAS_FILE*0..]->(f:FileNode {relative_path: $relative_path})
		RETURN f{.*} AS FileNode
		ORDER BY f.node_id
		LIMIT %d`, MaxResult)
	return t.run(ctx, "find_file_node_with_relative_path", query,
		map[string]any{"relative_path": relativePath}, maxTokenPerResult)
}

// =====================
// ASTNode searches
// =====================

// astScope renders the FileNode match clause for an optional file filter.
const (
	astScopeAll          = "MATCH (root)-[:HAS_FILE*0..]->(f:FileNode)-[:HAS_AST]->(ast:ASTNode)"
	astScopeBasename     = "MATCH (root)-[:HAS_FILE*0..]->(f:FileNode {basename: $basename})-[:HAS_AST]->(ast:ASTNode)"
	astScopeRelativePath = `MATCH (root)-[:HAS_FILE*0..]->(f:FileNode)-[:HAS_AST]->(ast:ASTNode)
		WHERE f.relative_path = $relative_path OR f.relative_path STARTS WITH $relative_path + '/'`
)

// astTextQuery searches AST text by substring containment. Shortest matched
// text sorts first so the most specific node leads the output.
func astTextQuery(scope string) string {
	return fmt.Sprintf(`
		MATCH (root:FileNode {node_id: $root_id})
		%s
		MATCH (ast)-[:PARENT_OF*0..]->(a:ASTNode)
		WHERE a.text CONTAINS $text
		RETURN f{.*} AS FileNode, a{.*} AS ASTNode
		ORDER BY SIZE(a.text)
		LIMIT %d`, scope, MaxResult)
}

func astTypeQuery(scope string) string {
	return fmt.Sprintf(`
		MATCH (root:FileNode {node_id: $root_id})
		%s
		MATCH (ast)-[:PARENT_OF*0..]->(a:ASTNode {type: $type})
		RETURN f{.*} AS FileNode, a{.*} AS ASTNode
		ORDER BY a.node_id
		LIMIT %d`, scope, MaxResult)
}

// FindASTNodeWithText finds syntax nodes whose source text contains text.
func (t *Toolset) FindASTNodeWithText(
	ctx context.Context, text string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	return t.run(ctx, "find_ast_node_with_text", astTextQuery(astScopeAll),
		map[string]any{"text": text}, maxTokenPerResult)
}

// FindASTNodeWithTextInFile scopes the text search to files with the given
// basename.
func (t *Toolset) FindASTNodeWithTextInFile(
	ctx context.Context, text, basename string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	return t.run(ctx, "find_ast_node_with_text_in_file", astTextQuery(astScopeBasename),
		map[string]any{"text": text, "basename": basename}, maxTokenPerResult)
}

// FindASTNodeWithTextInRelativePath scopes the text search to one file or
// directory subtree by repository-relative path.
func (t *Toolset) FindASTNodeWithTextInRelativePath(
	ctx context.Context, text, relativePath string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	return t.run(ctx, "find_ast_node_with_text_in_relative_path", astTextQuery(astScopeRelativePath),
		map[string]any{"text": text, "relative_path": relativePath}, maxTokenPerResult)
}

// FindASTNodeWithType finds syntax nodes by their grammar type tag.
func (t *Toolset) FindASTNodeWithType(
	ctx context.Context, nodeType string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	return t.run(ctx, "find_ast_node_with_type", astTypeQuery(astScopeAll),
		map[string]any{"type": nodeType}, maxTokenPerResult)
}

// FindASTNodeWithTypeInFile scopes the type search to files with the given
// basename.
func (t *Toolset) FindASTNodeWithTypeInFile(
	ctx context.Context, nodeType, basename string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	return t.run(ctx, "find_ast_node_with_type_in_file", astTypeQuery(astScopeBasename),
		map[string]any{"type": nodeType, "basename": basename}, maxTokenPerResult)
}

// FindASTNodeWithTypeInRelativePath scopes the type search to one file or
// directory subtree by repository-relative path.
func (t *Toolset) FindASTNodeWithTypeInRelativePath(
	ctx context.Context, nodeType, relativePath string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	return t.run(ctx, "find_ast_node_with_type_in_relative_path", astTypeQuery(astScopeRelativePath),
		map[string]any{"type": nodeType, "relative_path": relativePath}, maxTokenPerResult)
}

// FindASTNodeWithTypeAndText finds syntax nodes matching both a grammar type
// and a text substring.
func (t *Toolset) FindASTNodeWithTypeAndText(
	ctx context.Context, nodeType, text string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	query := fmt.Sprintf(`
		MATCH (root:FileNode {node_id: $root_id})
		%s
		MATCH (ast)-[:PARENT_OF*0..]->(a:ASTNode {type: $type})
		WHERE a.text CONTAINS $text
		RETURN f{.*} AS FileNode, a{.*} AS ASTNode
		ORDER BY SIZE(a.text)
		LIMIT %d`, astScopeAll, MaxResult)
	return t.run(ctx, "find_ast_node_with_type_and_text", query,
		map[string]any{"type": nodeType, "text": text}, maxTokenPerResult)
}

// =====================
// TextNode searches
// =====================

func textNodeQuery(fileFilter string) string {
	return fmt.Sprintf(`
		MATCH (root:FileNode {node_id: $root_id})
		MATCH (root)-[:HAS_FILE*0..]->(f:FileNode%s)-[:HAS_TEXT]->(:TextNode)-[:NEXT_CHUNK*0..]->(t:TextNode)
		WHERE t.text CONTAINS $text
		RETURN f{.*} AS FileNode, t{.*} AS TextNode
		ORDER BY t.node_id
		LIMIT %d`, fileFilter, MaxResult)
}

// FindTextNodeWithText finds documentation chunks containing text.
func (t *Toolset) FindTextNodeWithText(
	ctx context.Context, text string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	return t.run(ctx, "find_text_node_with_text", textNodeQuery(""),
		map[string]any{"text": text}, maxTokenPerResult)
}

// FindTextNodeWithTextInFile scopes the chunk search to files with the given
// basename.
func (t *Toolset) FindTextNodeWithTextInFile(
	ctx context.Context, text, basename string, maxTokenPerResult int,
) (string, []map[string]any, error) {
	return t.run(ctx, "find_text_node_with_text_in_file", textNodeQuery(" {basename: $basename}"),
		map[string]any{"text": text, "basename": basename}, maxTokenPerResult)
}

// GetNextTextNodeWithNodeID returns the NEXT_CHUNK successor of a chunk.
func (t *Toolset) GetNextTextNodeWithNodeID(
	ctx context.Context, nodeID int64, maxTokenPerResult int,
) (string, []map[string]any, error) {
	query := `
		MATCH (root:FileNode {node_id: $root_id})
		MATCH (root)-[*]->(t:TextNode {node_id: $node_id})-[:NEXT_CHUNK]->(next:TextNode)
		RETURN next{.*} AS TextNode`
	return t.run(ctx, "get_next_text_node_with_node_id", query,
		map[string]any{"node_id": nodeID}, maxTokenPerResult)
}

// =====================
// AST navigation
// =====================

// GetParentNode returns the PARENT_OF parent of a syntax node.
func (t *Toolset) GetParentNode(
	ctx context.Context, nodeID int64, maxTokenPerResult int,
) (string, []map[string]any, error) {
	query := `
		MATCH (root:FileNode {node_id: $root_id})
		MATCH (root)-[*]->(parent:ASTNode)-[:PARENT_OF]->(child:ASTNode {node_id: $node_id})
		RETURN child{.*} AS ASTNode, parent{.*} AS ParentNode`
	return t.run(ctx, "get_parent_node", query,
		map[string]any{"node_id": nodeID}, maxTokenPerResult)
}

// GetChildrenNode returns the direct PARENT_OF children of a syntax node.
func (t *Toolset) GetChildrenNode(
	ctx context.Context, nodeID int64, maxTokenPerResult int,
) (string, []map[string]any, error) {
	query := fmt.Sprintf(`
		MATCH (root:FileNode {node_id: $root_id})
		MATCH (root)-[*]->(parent:ASTNode {node_id: $node_id})-[:PARENT_OF]->(child:ASTNode)
		RETURN parent{.*} AS ASTNode, child{.*} AS ChildNode
		ORDER BY child.node_id
		LIMIT %d`, MaxResult)
	return t.run(ctx, "get_children_node", query,
		map[string]any{"node_id": nodeID}, maxTokenPerResult)
}
