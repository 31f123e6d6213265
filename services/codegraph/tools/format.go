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
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/codekg/services/codegraph/textutil"
)

// EmptyDataMessage is returned instead of an empty formatted result so the
// calling agent sees an explicit outcome it can react to.
const EmptyDataMessage = "Your query returned empty result, please try a different query!"

// FormatRecords renders query records for an LLM agent.
//
// Each record becomes a "Result N:" block listing its keys in sorted order,
// blocks are separated by blank lines, and the whole output is cut to
// maxTokenPerResult tokens. No records yields EmptyDataMessage.
func FormatRecords(records []map[string]any, maxTokenPerResult int) string {
	if len(records) == 0 {
		return EmptyDataMessage
	}

	blocks := make([]string, 0, len(records))
	for i, record := range records {
		keys := make([]string, 0, len(record))
		for key := range record {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var b strings.Builder
		fmt.Fprintf(&b, "Result %d:\n", i+1)
		for _, key := range keys {
			fmt.Fprintf(&b, "%s: %s\n", key, formatValue(record[key], false))
		}
		blocks = append(blocks, b.String())
	}

	output := strings.TrimSpace(strings.Join(blocks, "\n\n"))
	return textutil.Truncate(output, maxTokenPerResult)
}

// formatValue renders one value. Nested maps render dict-style with sorted
// keys and quoted strings; top-level strings stay unquoted.
func formatValue(value any, nested bool) string {
	switch v := value.(type) {
	case nil:
		return "None"
	case string:
		if nested {
			return "'" + v + "'"
		}
		return v
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("'%s': %s", key, formatValue(v[key], true)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, formatValue(item, true))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
