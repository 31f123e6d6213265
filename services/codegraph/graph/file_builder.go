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
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/codekg/services/codegraph/chunker"
	"github.com/AleutianAI/codekg/services/codegraph/parser"
)

// FileGraphBuilder builds the knowledge-graph fragment for a single file.
//
// Source files are flattened from their tree-sitter syntax tree into ASTNodes
// connected by PARENT_OF edges, bounded at maxASTDepth. Text and markdown
// files are split into a NEXT_CHUNK chain of TextNodes. The builder never
// allocates node ids on its own: the caller threads the next free id through
// every call and receives the updated value back.
type FileGraphBuilder struct {
	maxASTDepth int

	// chunkSize and chunkOverlap are carried as graph reconstruction
	// metadata. The header-based chunker does not consume them.
	chunkSize    int
	chunkOverlap int
}

// NewFileGraphBuilder returns a builder with the given AST depth bound and
// chunking metadata.
func NewFileGraphBuilder(maxASTDepth, chunkSize, chunkOverlap int) *FileGraphBuilder {
	return &FileGraphBuilder{
		maxASTDepth:  maxASTDepth,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// SupportsFile reports whether the file contributes graph content beyond its
// own FileNode (parseable source or chunkable text).
func (b *FileGraphBuilder) SupportsFile(path string) bool {
	return parser.SupportsFile(path) || parser.SupportsTextFile(path)
}

// BuildFileGraph builds all nodes and edges for one file.
//
// parent must wrap a FileNode. nextNodeID is the next free node id; the
// returned id accounts for every node allocated here. The returned slices are
// empty (not an error) for files whose syntax tree is broken or empty; such
// files contribute only their FileNode.
func (b *FileGraphBuilder) BuildFileGraph(
	ctx context.Context, parent *Node, path string, content []byte, nextNodeID int64,
) (int64, []*Node, []Edge, error) {
	if _, ok := parent.Payload.(FileNode); !ok {
		return nextNodeID, nil, nil, fmt.Errorf("parent node %d is not a FileNode", parent.ID)
	}

	if parser.SupportsFile(path) {
		return b.treeSitterFileGraph(ctx, parent, path, content, nextNodeID)
	}
	return b.textFileGraph(parent, content, nextNodeID)
}

// treeSitterFileGraph flattens the file's syntax tree.
//
// The traversal is iterative with an explicit stack so that deeply nested
// trees cannot exhaust goroutine stack space. Children of nodes at depth
// maxASTDepth are never materialized.
func (b *FileGraphBuilder) treeSitterFileGraph(
	ctx context.Context, parent *Node, path string, content []byte, nextNodeID int64,
) (int64, []*Node, []Edge, error) {
	tree, err := parser.Parse(ctx, path, content)
	if err != nil {
		return nextNodeID, nil, nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() || root.ChildCount() == 0 {
		// Broken or empty trees contribute nothing.
		return nextNodeID, nil, nil, nil
	}

	var (
		nodes []*Node
		edges []Edge
	)

	astRoot := &Node{ID: nextNodeID, Payload: newASTNode(root, content)}
	nextNodeID++
	nodes = append(nodes, astRoot)
	edges = append(edges, Edge{Source: parent, Target: astRoot, Kind: EdgeHasAST})

	type frame struct {
		syntax *sitter.Node
		node   *Node
		depth  int
	}
	stack := []frame{{syntax: root, node: astRoot, depth: 1}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.depth > b.maxASTDepth {
			continue
		}

		for i := 0; i < int(top.syntax.ChildCount()); i++ {
			child := top.syntax.Child(i)

			childNode := &Node{ID: nextNodeID, Payload: newASTNode(child, content)}
			nextNodeID++
			nodes = append(nodes, childNode)
			edges = append(edges, Edge{Source: top.node, Target: childNode, Kind: EdgeParentOf})

			stack = append(stack, frame{syntax: child, node: childNode, depth: top.depth + 1})
		}
	}

	return nextNodeID, nodes, edges, nil
}

// textFileGraph splits a document into chunks and links them into a chain.
//
// Only the first chunk is attached to the file via HAS_TEXT; the rest are
// reachable through NEXT_CHUNK, keeping the chain a simple path.
func (b *FileGraphBuilder) textFileGraph(
	parent *Node, content []byte, nextNodeID int64,
) (int64, []*Node, []Edge, error) {
	chunks := chunker.Split(string(content))

	var (
		nodes    []*Node
		edges    []Edge
		previous *Node
	)

	for _, chunk := range chunks {
		node := &Node{ID: nextNodeID, Payload: TextNode{Text: chunk.Text, Metadata: chunk.Metadata}}
		nextNodeID++
		nodes = append(nodes, node)

		if previous == nil {
			edges = append(edges, Edge{Source: parent, Target: node, Kind: EdgeHasText})
		} else {
			edges = append(edges, Edge{Source: previous, Target: node, Kind: EdgeNextChunk})
		}
		previous = node
	}

	return nextNodeID, nodes, edges, nil
}

// newASTNode converts one tree-sitter node into its graph payload.
// Line numbers stay 0-indexed, matching tree-sitter points.
func newASTNode(n *sitter.Node, content []byte) ASTNode {
	return ASTNode{
		Type:      n.Type(),
		StartLine: int(n.StartPoint().Row),
		EndLine:   int(n.EndPoint().Row),
		Text:      n.Content(content),
	}
}
