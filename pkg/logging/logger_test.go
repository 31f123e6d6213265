// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToStderrOnly(t *testing.T) {
	logger := New(Config{})
	defer logger.Close()

	require.NotNil(t, logger.Slog())
	assert.Nil(t, logger.file)
}

func TestFileLoggingWritesJSON(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Service: "codekg", Quiet: true})
	logger.Slog().Info("graph built", "root_node_id", int64(96))
	require.NoError(t, logger.Close())

	name := "codekg_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "graph built", entry["msg"])
	assert.Equal(t, "codekg", entry["service"])
	assert.EqualValues(t, 96, entry["root_node_id"])
}

func TestBadLogDirDegradesToStderr(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	logger := New(Config{LogDir: filepath.Join(file, "logs")})
	defer logger.Close()
	assert.Nil(t, logger.file)
	logger.Slog().Info("still works")
}

func TestLevelFilter(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Level: slog.LevelWarn, Quiet: true})
	logger.Slog().Info("dropped")
	logger.Slog().Warn("kept")
	require.NoError(t, logger.Close())

	name := "codekg_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestCloseIsIdempotent(t *testing.T) {
	logger := New(Config{LogDir: t.TempDir(), Quiet: true})
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
}

func TestFanoutHandlerEnabled(t *testing.T) {
	var empty fanoutHandler
	assert.False(t, empty.Enabled(context.Background(), slog.LevelError))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".codekg", "logs"), expandHome("~/.codekg/logs"))
	assert.Equal(t, "/var/log/codekg", expandHome("/var/log/codekg"))
}
