// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command codekg builds, inspects, and queries code knowledge graphs.
//
// Usage:
//
//	codekg build /path/to/repo
//	codekg exists --root-id 0
//	codekg tree --root-id 0
//	codekg query find_file_node_with_basename main.go --root-id 0
//	codekg delete --root-id 0
//
// Store credentials come from codekg.yaml, a .env file, or CODEKG_NEO4J_*
// environment variables.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/codekg/pkg/logging"
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

var (
	flagConfigPath string
	flagLogDir     string
	flagVerbose    bool

	appLogger *logging.Logger
)

// rootCmd is the top-level codekg command.
var rootCmd = &cobra.Command{
	Use:   "codekg",
	Short: "Code knowledge-graph engine",
	Long: `codekg walks a repository, parses source files into syntax trees,
chunks text files by markdown headers, and persists the result as a
knowledge graph that agents can traverse with token-budgeted queries.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "",
		"Path to codekg.yaml (default: ./codekg.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "",
		"Also write JSON logs to this directory")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"Enable debug logging")
}

func setupLogging() {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	appLogger = logging.New(logging.Config{
		Level:   level,
		LogDir:  flagLogDir,
		Service: "codekg",
	})
	slog.SetDefault(appLogger.Slog())
}

func main() {
	// Credentials may live in a .env file next to the binary.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	err := rootCmd.Execute()
	if appLogger != nil {
		_ = appLogger.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
