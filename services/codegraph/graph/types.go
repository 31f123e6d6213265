// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph holds the in-memory knowledge-graph representation of one
// repository snapshot.
//
// The graph has three node payload kinds:
//   - FileNode: a file or directory
//   - ASTNode:  one tree-sitter syntax node
//   - TextNode: one chunk of a text/markdown document
//
// and five edge kinds:
//   - HAS_FILE:   parent directory -> child file/directory
//   - HAS_AST:    file -> its AST root node
//   - PARENT_OF:  syntax parent -> syntax child
//   - HAS_TEXT:   file -> its first text chunk
//   - NEXT_CHUNK: chunk -> the next chunk in document order
//
// Together these capture the directory structure, the source code, and the
// documentation of a codebase in a single graph that an agent can traverse
// to locate context. Payloads are immutable value types; a node is never
// mutated after creation.
package graph

import "fmt"

// FileNode represents a file or directory.
type FileNode struct {
	// Basename is the file or directory name, like "bar.py" or "foo".
	Basename string

	// RelativePath is the path from the repository root, like
	// "foo/bar/baz.java". The root itself uses ".".
	RelativePath string
}

// ASTNode represents one tree-sitter syntax node.
type ASTNode struct {
	// Type is the node type tag from the language grammar, like
	// "function_definition".
	Type string

	// StartLine is the starting line number, 0-indexed and inclusive.
	StartLine int

	// EndLine is the ending line number, 0-indexed and inclusive.
	EndLine int

	// Text is the exact source slice covered by the node.
	Text string
}

// TextNode represents one chunk of a text document.
type TextNode struct {
	// Text is the chunk content.
	Text string

	// Metadata is the serialized header path enclosing the chunk, e.g.
	// "{'Header 1': 'A'}". Empty when the chunk precedes any header.
	Metadata string
}

// Payload is the tagged union of node payload types.
//
// Exactly FileNode, ASTNode, and TextNode implement it. All three are
// comparable value types, so Node values compare with ==.
type Payload interface {
	payloadTag() string
}

func (FileNode) payloadTag() string { return "FileNode" }
func (ASTNode) payloadTag() string  { return "ASTNode" }
func (TextNode) payloadTag() string { return "TextNode" }

// Node is one node of the knowledge graph.
type Node struct {
	// ID uniquely identifies the node within one graph. IDs are assigned
	// by a monotonically increasing counter owned by the builder; the
	// repository root FileNode always carries the graph's root id.
	ID int64

	// Payload is the node content: FileNode, ASTNode, or TextNode.
	Payload Payload
}

// EdgeKind is the relationship type of an Edge. The values are the
// relationship names persisted in the store.
type EdgeKind string

const (
	// EdgeParentOf connects a syntax parent to a syntax child (ASTNode -> ASTNode).
	EdgeParentOf EdgeKind = "PARENT_OF"

	// EdgeHasFile connects a directory to a direct child (FileNode -> FileNode).
	EdgeHasFile EdgeKind = "HAS_FILE"

	// EdgeHasAST connects a file to its AST root (FileNode -> ASTNode).
	EdgeHasAST EdgeKind = "HAS_AST"

	// EdgeHasText connects a file to its first chunk (FileNode -> TextNode).
	EdgeHasText EdgeKind = "HAS_TEXT"

	// EdgeNextChunk connects a chunk to its successor (TextNode -> TextNode).
	EdgeNextChunk EdgeKind = "NEXT_CHUNK"
)

// Edge is one directed relationship between two graph nodes.
type Edge struct {
	Source *Node
	Target *Node
	Kind   EdgeKind
}

// String renders the edge for logs and test failure messages.
func (e Edge) String() string {
	return fmt.Sprintf("(%d)-[%s]->(%d)", e.Source.ID, e.Kind, e.Target.ID)
}
