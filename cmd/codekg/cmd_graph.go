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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codekg/services/codegraph/graph"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	flagRootNodeID int64
	flagDepth      int
	flagTreeDepth  int
	flagTreeLines  int
	flagDeleteAll  bool
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

// buildCmd builds and persists the knowledge graph of one repository.
var buildCmd = &cobra.Command{
	Use:   "build ROOT_DIR",
	Short: "Build and persist the knowledge graph of a repository",
	Long: `Walk ROOT_DIR, parse supported source files into depth-bounded syntax
trees, chunk markdown and plain-text files, and persist the resulting graph.

The new graph's node ids start above every id already in the store, so
repositories never collide. The printed root node id is the handle for
every later query.

Examples:
  codekg build .
  codekg build /srv/checkouts/api --depth 50`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

// deleteCmd removes one stored graph, or the whole store.
var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a stored knowledge graph",
	Long: `Delete the graph rooted at --root-id, or with --all every graph in
the store (verified empty, retried a fixed number of times).

Examples:
  codekg delete --root-id 0
  codekg delete --all`,
	Args: cobra.NoArgs,
	RunE: runDelete,
}

// existsCmd reports whether a graph is stored.
var existsCmd = &cobra.Command{
	Use:   "exists",
	Short: "Check whether a graph with the given root node id is stored",
	Args:  cobra.NoArgs,
	RunE:  runExists,
}

// treeCmd prints the stored file hierarchy as an ASCII tree.
var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the file tree of a stored graph",
	Long: `Load the graph rooted at --root-id and print its FileNode hierarchy
as an ASCII tree, depth- and line-limited.

Examples:
  codekg tree --root-id 0
  codekg tree --root-id 96 --max-depth 3`,
	Args: cobra.NoArgs,
	RunE: runTree,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	buildCmd.Flags().IntVar(&flagDepth, "depth", 0,
		"Maximum AST depth below each file's root (0 = configured default)")

	deleteCmd.Flags().Int64Var(&flagRootNodeID, "root-id", 0,
		"Root node id of the graph to delete")
	deleteCmd.Flags().BoolVar(&flagDeleteAll, "all", false,
		"Delete every graph in the store")

	existsCmd.Flags().Int64Var(&flagRootNodeID, "root-id", 0,
		"Root node id to check")

	treeCmd.Flags().Int64Var(&flagRootNodeID, "root-id", 0,
		"Root node id of the graph to print")
	treeCmd.Flags().IntVar(&flagTreeDepth, "max-depth", graph.DefaultTreeMaxDepth,
		"Maximum directory depth to print")
	treeCmd.Flags().IntVar(&flagTreeLines, "max-lines", graph.DefaultTreeMaxLines,
		"Maximum number of tree lines to print")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(existsCmd)
	rootCmd.AddCommand(treeCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	rootNodeID, err := newEngine(s, cfg).BuildGraph(ctx, args[0], flagDepth)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Graph built. Root node id: %d\n", rootNodeID)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	if flagDeleteAll {
		if err := s.DeleteAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All graphs deleted.")
		return nil
	}

	if err := newEngine(s, cfg).DeleteGraph(ctx, flagRootNodeID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Graph %d deleted.\n", flagRootNodeID)
	return nil
}

func runExists(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	exists, err := newEngine(s, cfg).GraphExists(ctx, flagRootNodeID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%t\n", exists)
	return nil
}

func runTree(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	g, err := newEngine(s, cfg).LoadGraph(ctx, flagRootNodeID, 0, 0, -1)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), g.GetFileTree(flagTreeDepth, flagTreeLines))
	return nil
}
