// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codekg/services/codegraph/tools"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	flagQueryRootID int64
	flagMaxTokens   int
)

// toolInvocation runs one named tool against a toolset.
type toolInvocation struct {
	usage string
	arity int
	run   func(ctx context.Context, ts *tools.Toolset, args []string, budget int) (string, error)
}

// queryTools maps CLI tool names to toolset methods. Names follow the wire
// names agents use.
var queryTools = map[string]toolInvocation{
	"find_file_node_with_basename": {"BASENAME", 1,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.FindFileNodeWithBasename(ctx, a[0], b)
			return text, err
		}},
	"find_file_node_with_relative_path": {"RELATIVE_PATH", 1,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.FindFileNodeWithRelativePath(ctx, a[0], b)
			return text, err
		}},
	"find_ast_node_with_text": {"TEXT", 1,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.FindASTNodeWithText(ctx, a[0], b)
			return text, err
		}},
	"find_ast_node_with_text_in_file": {"TEXT BASENAME", 2,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.FindASTNodeWithTextInFile(ctx, a[0], a[1], b)
			return text, err
		}},
	"find_ast_node_with_text_in_relative_path": {"TEXT RELATIVE_PATH", 2,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.FindASTNodeWithTextInRelativePath(ctx, a[0], a[1], b)
			return text, err
		}},
	"find_ast_node_with_type": {"TYPE", 1,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.FindASTNodeWithType(ctx, a[0], b)
			return text, err
		}},
	"find_ast_node_with_type_in_file": {"TYPE BASENAME", 2,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.FindASTNodeWithTypeInFile(ctx, a[0], a[1], b)
			return text, err
		}},
	"find_ast_node_with_type_in_relative_path": {"TYPE RELATIVE_PATH", 2,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.FindASTNodeWithTypeInRelativePath(ctx, a[0], a[1], b)
			return text, err
		}},
	"find_ast_node_with_type_and_text": {"TYPE TEXT", 2,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.FindASTNodeWithTypeAndText(ctx, a[0], a[1], b)
			return text, err
		}},
	"find_text_node_with_text": {"TEXT", 1,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.FindTextNodeWithText(ctx, a[0], b)
			return text, err
		}},
	"find_text_node_with_text_in_file": {"TEXT BASENAME", 2,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.FindTextNodeWithTextInFile(ctx, a[0], a[1], b)
			return text, err
		}},
	"get_next_text_node_with_node_id": {"NODE_ID", 1,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			nodeID, err := parseNodeID(a[0])
			if err != nil {
				return "", err
			}
			text, _, err := ts.GetNextTextNodeWithNodeID(ctx, nodeID, b)
			return text, err
		}},
	"get_parent_node": {"NODE_ID", 1,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			nodeID, err := parseNodeID(a[0])
			if err != nil {
				return "", err
			}
			text, _, err := ts.GetParentNode(ctx, nodeID, b)
			return text, err
		}},
	"get_children_node": {"NODE_ID", 1,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			nodeID, err := parseNodeID(a[0])
			if err != nil {
				return "", err
			}
			text, _, err := ts.GetChildrenNode(ctx, nodeID, b)
			return text, err
		}},
	"preview_file_content_with_basename": {"BASENAME", 1,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.PreviewFileContentWithBasename(ctx, a[0], b)
			return text, err
		}},
	"preview_file_content_with_relative_path": {"RELATIVE_PATH", 1,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			text, _, err := ts.PreviewFileContentWithRelativePath(ctx, a[0], b)
			return text, err
		}},
	"read_code_with_line_numbers": {"RELATIVE_PATH START_LINE END_LINE", 3,
		func(ctx context.Context, ts *tools.Toolset, a []string, b int) (string, error) {
			startLine, err := strconv.Atoi(a[1])
			if err != nil {
				return "", fmt.Errorf("start line %q is not an integer", a[1])
			}
			endLine, err := strconv.Atoi(a[2])
			if err != nil {
				return "", fmt.Errorf("end line %q is not an integer", a[2])
			}
			text, _, err := ts.ReadCodeWithLineNumbers(ctx, a[0], startLine, endLine, b)
			return text, err
		}},
}

func parseNodeID(arg string) (int64, error) {
	nodeID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("node id %q is not an integer", arg)
	}
	return nodeID, nil
}

// queryCmd runs one traversal tool against a stored graph.
var queryCmd = &cobra.Command{
	Use:   "query TOOL [ARGS...]",
	Short: "Run a graph traversal tool against a stored graph",
	Long: `Run one of the seventeen traversal tools against the graph rooted at
--root-id and print the formatted result.

Examples:
  codekg query find_file_node_with_basename main.go --root-id 0
  codekg query find_ast_node_with_type function_definition --root-id 0
  codekg query read_code_with_line_numbers src/app.py 10 25 --root-id 0

Run 'codekg query' with no arguments to list the available tools.`,
	Args: cobra.ArbitraryArgs,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Int64Var(&flagQueryRootID, "root-id", 0,
		"Root node id of the graph to query")
	queryCmd.Flags().IntVar(&flagMaxTokens, "max-tokens", 4000,
		"Token budget for the formatted result")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Available tools:")
		for _, name := range sortedToolNames() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", name, queryTools[name].usage)
		}
		return nil
	}

	name := args[0]
	tool, ok := queryTools[name]
	if !ok {
		return fmt.Errorf("unknown tool %q, run 'codekg query' to list tools", name)
	}
	toolArgs := args[1:]
	if len(toolArgs) != tool.arity {
		return fmt.Errorf("%s takes %d argument(s): %s", name, tool.arity, tool.usage)
	}

	ctx := context.Background()
	s, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	ts := tools.New(s, flagQueryRootID, nil)
	result, err := tool.run(ctx, ts, toolArgs, flagMaxTokens)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

func sortedToolNames() []string {
	names := make([]string, 0, len(queryTools))
	for name := range queryTools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
