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
	"fmt"

	"github.com/AleutianAI/codekg/services/codegraph/graph"
)

// Row shapes mirror the persisted property names exactly. Each node payload
// variant has two pure mapping functions: payload -> row map for writes, and
// record map -> node for reads.

type fileNodeRow struct {
	NodeID       int64
	Basename     string
	RelativePath string
}

func (r fileNodeRow) toMap() map[string]any {
	return map[string]any{
		"node_id":       r.NodeID,
		"basename":      r.Basename,
		"relative_path": r.RelativePath,
	}
}

type astNodeRow struct {
	NodeID    int64
	Type      string
	StartLine int
	EndLine   int
	Text      string
}

func (r astNodeRow) toMap() map[string]any {
	return map[string]any{
		"node_id":    r.NodeID,
		"type":       r.Type,
		"start_line": r.StartLine,
		"end_line":   r.EndLine,
		"text":       r.Text,
	}
}

type textNodeRow struct {
	NodeID   int64
	Text     string
	Metadata string
}

func (r textNodeRow) toMap() map[string]any {
	return map[string]any{
		"node_id":  r.NodeID,
		"text":     r.Text,
		"metadata": r.Metadata,
	}
}

type edgeRow struct {
	SourceID int64
	TargetID int64
}

func (r edgeRow) toMap() map[string]any {
	return map[string]any{
		"source_id": r.SourceID,
		"target_id": r.TargetID,
	}
}

func fileNodeRowFromNode(n *graph.Node) fileNodeRow {
	payload := n.Payload.(graph.FileNode)
	return fileNodeRow{
		NodeID:       n.ID,
		Basename:     payload.Basename,
		RelativePath: payload.RelativePath,
	}
}

func astNodeRowFromNode(n *graph.Node) astNodeRow {
	payload := n.Payload.(graph.ASTNode)
	return astNodeRow{
		NodeID:    n.ID,
		Type:      payload.Type,
		StartLine: payload.StartLine,
		EndLine:   payload.EndLine,
		Text:      payload.Text,
	}
}

func textNodeRowFromNode(n *graph.Node) textNodeRow {
	payload := n.Payload.(graph.TextNode)
	return textNodeRow{
		NodeID:   n.ID,
		Text:     payload.Text,
		Metadata: payload.Metadata,
	}
}

func fileNodeFromRecord(record map[string]any) (*graph.Node, error) {
	id, err := int64Field(record, "node_id")
	if err != nil {
		return nil, err
	}
	basename, err := stringField(record, "basename")
	if err != nil {
		return nil, err
	}
	relativePath, err := stringField(record, "relative_path")
	if err != nil {
		return nil, err
	}
	return &graph.Node{
		ID:      id,
		Payload: graph.FileNode{Basename: basename, RelativePath: relativePath},
	}, nil
}

func astNodeFromRecord(record map[string]any) (*graph.Node, error) {
	id, err := int64Field(record, "node_id")
	if err != nil {
		return nil, err
	}
	nodeType, err := stringField(record, "type")
	if err != nil {
		return nil, err
	}
	startLine, err := int64Field(record, "start_line")
	if err != nil {
		return nil, err
	}
	endLine, err := int64Field(record, "end_line")
	if err != nil {
		return nil, err
	}
	text, err := stringField(record, "text")
	if err != nil {
		return nil, err
	}
	return &graph.Node{
		ID: id,
		Payload: graph.ASTNode{
			Type:      nodeType,
			StartLine: int(startLine),
			EndLine:   int(endLine),
			Text:      text,
		},
	}, nil
}

func textNodeFromRecord(record map[string]any) (*graph.Node, error) {
	id, err := int64Field(record, "node_id")
	if err != nil {
		return nil, err
	}
	text, err := stringField(record, "text")
	if err != nil {
		return nil, err
	}
	metadata, err := stringField(record, "metadata")
	if err != nil {
		return nil, err
	}
	return &graph.Node{
		ID:      id,
		Payload: graph.TextNode{Text: text, Metadata: metadata},
	}, nil
}

func edgeRowFromRecord(record map[string]any) (edgeRow, error) {
	sourceID, err := int64Field(record, "source_id")
	if err != nil {
		return edgeRow{}, err
	}
	targetID, err := int64Field(record, "target_id")
	if err != nil {
		return edgeRow{}, err
	}
	return edgeRow{SourceID: sourceID, TargetID: targetID}, nil
}

func int64Field(record map[string]any, key string) (int64, error) {
	value, ok := record[key]
	if !ok {
		return 0, fmt.Errorf("record missing field %q", key)
	}
	i, ok := value.(int64)
	if !ok {
		return 0, fmt.Errorf("record field %q is %T, want int64", key, value)
	}
	return i, nil
}

func stringField(record map[string]any, key string) (string, error) {
	value, ok := record[key]
	if !ok {
		return "", fmt.Errorf("record missing field %q", key)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("record field %q is %T, want string", key, value)
	}
	return s, nil
}
