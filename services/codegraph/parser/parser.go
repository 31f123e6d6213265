// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package parser maps file extensions to tree-sitter grammars and parses
// source files into syntax trees.
//
// The set of supported languages is fixed: a file either maps to one of the
// bundled grammars, is a plain text/markdown file (handled by the chunker,
// not by this package), or is unsupported and contributes nothing to the
// knowledge graph.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/sql"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// ErrUnsupportedFile is returned by Parse for files with no registered grammar.
var ErrUnsupportedFile = fmt.Errorf("file type is not supported by the tree-sitter parser")

// languageForExt maps a file extension (with leading dot, lower-case) to its
// tree-sitter grammar. The set mirrors the languages the engine ships
// grammars for; extending it is a matter of adding an entry here.
var languageForExt = map[string]func() *sitter.Language{
	".sh":   bash.GetLanguage,
	".bash": bash.GetLanguage,
	".c":    c.GetLanguage,
	".h":    c.GetLanguage,
	".cpp":  cpp.GetLanguage,
	".cc":   cpp.GetLanguage,
	".cxx":  cpp.GetLanguage,
	".hpp":  cpp.GetLanguage,
	".cs":   csharp.GetLanguage,
	".go":   golang.GetLanguage,
	".java": java.GetLanguage,
	".js":   javascript.GetLanguage,
	".jsx":  javascript.GetLanguage,
	".kt":   kotlin.GetLanguage,
	".kts":  kotlin.GetLanguage,
	".php":  php.GetLanguage,
	".py":   python.GetLanguage,
	".rb":   ruby.GetLanguage,
	".rs":   rust.GetLanguage,
	".sql":  sql.GetLanguage,
	".ts":   typescript.GetLanguage,
	".yaml": yaml.GetLanguage,
	".yml":  yaml.GetLanguage,
}

// textExts are extensions handled by the document chunker rather than the
// tree-sitter parser.
var textExts = map[string]bool{
	".markdown": true,
	".md":       true,
	".txt":      true,
	".rst":      true,
}

// SupportsFile reports whether path maps to a registered tree-sitter grammar.
//
// Text/markdown files return false here; use SupportsTextFile for those.
func SupportsFile(path string) bool {
	_, ok := languageForExt[normalizedExt(path)]
	return ok
}

// SupportsTextFile reports whether path is a plain text or markdown file that
// the document chunker can process.
func SupportsTextFile(path string) bool {
	return textExts[normalizedExt(path)]
}

// Parse parses content as the language inferred from path's extension.
//
// The returned tree is owned by the caller. Parse never mutates content.
// Returns ErrUnsupportedFile when no grammar is registered for the extension.
func Parse(ctx context.Context, path string, content []byte) (*sitter.Tree, error) {
	lang, ok := languageForExt[normalizedExt(path)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFile)
	}

	p := sitter.NewParser()
	p.SetLanguage(lang())

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tree, nil
}

func normalizedExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
