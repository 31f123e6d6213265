// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package textutil provides token-budget truncation and line numbering for
// query results handed to an LLM agent.
package textutil

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TruncatedText is appended to any output cut short by a token budget.
const TruncatedText = "...truncated"

// encodingName is the tokenizer used for all budget accounting.
const encodingName = "cl100k_base"

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
	tokenizerErr  error
)

// Tokenizer returns the shared encoder. The first call may fetch the BPE
// dictionary; later calls reuse it.
func Tokenizer() (*tiktoken.Tiktoken, error) {
	tokenizerOnce.Do(func() {
		tokenizer, tokenizerErr = tiktoken.GetEncoding(encodingName)
	})
	return tokenizer, tokenizerErr
}

// Truncate cuts text down to at most maxToken encoded tokens.
//
// Text already within budget is returned unchanged. Otherwise the token
// stream is cut to leave room for the TruncatedText marker, which is
// appended so the reader knows output was dropped. If the tokenizer is
// unavailable the text passes through unchanged.
func Truncate(text string, maxToken int) string {
	if text == "" {
		return text
	}

	enc, err := Tokenizer()
	if err != nil {
		slog.Warn("tokenizer unavailable, skipping truncation", "error", err)
		return text
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxToken {
		return text
	}

	reserved := len(enc.Encode(TruncatedText, nil, nil))
	keep := maxToken - reserved
	if keep < 0 {
		keep = 0
	}
	return enc.Decode(tokens[:keep]) + TruncatedText
}

// PrependLineNumbers prefixes every line of text with "N. ", numbering from
// startLine. A trailing newline does not produce an extra empty line.
func PrependLineNumbers(text string, startLine int) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	numbered := make([]string, len(lines))
	for i, line := range lines {
		numbered[i] = fmt.Sprintf("%d. %s", startLine+i, line)
	}
	return strings.Join(numbered, "\n")
}
