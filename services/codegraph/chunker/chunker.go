// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chunker splits text and markdown documents into ordered chunks at
// header boundaries.
//
// A chunk is the contiguous text between one ATX header (levels 1-3) and the
// next, tagged with the stack of enclosing headers serialized as metadata.
// Headers inside fenced code blocks are ignored. The chunk order is document
// order; the graph builder links chunks into a NEXT_CHUNK chain.
package chunker

import (
	"fmt"
	"strings"
)

// maxSplitLevel is the deepest ATX header level that starts a new chunk.
// Levels 4-6 are kept as ordinary chunk content.
const maxSplitLevel = 3

// Chunk is one contiguous piece of a document.
type Chunk struct {
	// Text is the chunk body with surrounding blank lines trimmed. May be
	// empty for a header section with no body.
	Text string

	// Metadata is the serialized header path enclosing this chunk, e.g.
	// "{'Header 1': 'A', 'Header 2': 'B'}". Empty for text before the
	// first header.
	Metadata string
}

// header is one entry of the enclosing-header stack.
type header struct {
	level int
	title string
}

// Split chunks content at header boundaries.
//
// Text before the first header becomes a chunk with empty metadata, but only
// when it is non-empty. Every header section yields exactly one chunk, even
// when its body is empty, so that the header path itself is represented in
// the graph. Returns nil for blank documents.
func Split(content string) []Chunk {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var (
		chunks   []Chunk
		stack    []header
		body     []string
		inHeader bool // true once the first split header was seen
		inFence  bool
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		if !inHeader && text == "" {
			return
		}
		chunks = append(chunks, Chunk{Text: text, Metadata: serializeHeaders(stack)})
	}

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			body = append(body, line)
			continue
		}

		level, title, ok := parseHeader(line)
		if !ok || inFence {
			body = append(body, line)
			continue
		}

		flush()
		inHeader = true

		// Pop headers at the same or deeper level, then push the new one.
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, header{level: level, title: title})
	}
	flush()

	return chunks
}

// parseHeader recognizes an ATX header at levels 1..maxSplitLevel.
func parseHeader(line string) (level int, title string, ok bool) {
	trimmed := strings.TrimSpace(line)
	for level = 0; level < len(trimmed) && trimmed[level] == '#'; level++ {
	}
	if level == 0 || level > maxSplitLevel {
		return 0, "", false
	}
	rest := trimmed[level:]
	if rest != "" && !strings.HasPrefix(rest, " ") {
		// "#hashtag" is not a header.
		return 0, "", false
	}
	return level, strings.TrimSpace(rest), true
}

// serializeHeaders renders the header stack in the persisted metadata format.
//
// The format intentionally matches what the query tools and existing graphs
// store: a dict-style string keyed by "Header <level>".
func serializeHeaders(stack []header) string {
	if len(stack) == 0 {
		return ""
	}
	parts := make([]string, 0, len(stack))
	for _, h := range stack {
		parts = append(parts, fmt.Sprintf("'Header %d': '%s'", h.level, h.title))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
