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
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreMatcher decides which walk entries stay out of the graph.
//
// It applies the repository's top-level .gitignore patterns plus a built-in
// rule for the .git directory itself. Patterns use gitignore conventions:
// a trailing slash restricts the pattern to directories, a leading slash
// anchors it to the repository root, and a pattern without any slash matches
// the basename at any depth. Negation patterns are not supported; matching
// entries are simply skipped.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	glob    string
	dirOnly bool
}

// NewIgnoreMatcher builds a matcher from raw gitignore lines.
func NewIgnoreMatcher(lines []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}

		p := ignorePattern{}
		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}

		switch {
		case strings.HasPrefix(line, "/"):
			p.glob = strings.TrimPrefix(line, "/")
		case strings.Contains(line, "/"):
			p.glob = line
		default:
			// No slash: the pattern matches at any depth.
			p.glob = "**/" + line
		}
		m.patterns = append(m.patterns, p)
	}
	return m
}

// LoadIgnoreMatcher reads rootDir/.gitignore. A missing file yields a matcher
// with only the built-in .git rule.
func LoadIgnoreMatcher(rootDir string) (*IgnoreMatcher, error) {
	content, err := os.ReadFile(filepath.Join(rootDir, ".gitignore"))
	if os.IsNotExist(err) {
		return NewIgnoreMatcher(nil), nil
	}
	if err != nil {
		return nil, err
	}
	return NewIgnoreMatcher(strings.Split(string(content), "\n")), nil
}

// Match reports whether the entry at relPath should be skipped. relPath uses
// forward slashes and is relative to the repository root.
func (m *IgnoreMatcher) Match(relPath string, isDir bool) bool {
	if relPath == ".git" || strings.HasSuffix(relPath, "/.git") {
		return true
	}
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if ok, err := doublestar.Match(p.glob, relPath); err == nil && ok {
			return true
		}
	}
	return false
}
