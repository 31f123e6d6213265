// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads engine configuration from a YAML file with
// environment-variable overrides for the store credentials.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/codekg/services/codegraph/graph"
	"github.com/AleutianAI/codekg/services/codegraph/store"
)

// DefaultConfigFile is looked for in the working directory when no explicit
// path is given.
const DefaultConfigFile = "codekg.yaml"

// Neo4jConfig holds store connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`

	// BatchSize is rows per UNWIND transaction. Default: 500
	BatchSize int `yaml:"batch_size"`
}

// GraphConfig holds build settings.
type GraphConfig struct {
	MaxASTDepth  int `yaml:"max_ast_depth"`
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// WorkerCount bounds the parse fan-out. 0 means one worker per CPU.
	WorkerCount int `yaml:"worker_count"`
}

// Config is the full engine configuration.
type Config struct {
	Neo4j Neo4jConfig `yaml:"neo4j"`
	Graph GraphConfig `yaml:"graph"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	return Config{
		Neo4j: Neo4jConfig{
			URI:       "bolt://localhost:7687",
			Username:  "neo4j",
			BatchSize: store.DefaultBatchSize,
		},
		Graph: GraphConfig{
			MaxASTDepth:  graph.DefaultMaxASTDepth,
			ChunkSize:    graph.DefaultChunkSize,
			ChunkOverlap: graph.DefaultChunkOverlap,
			WorkerCount:  graph.DefaultWorkerCount,
		},
	}
}

// Load reads the YAML file at path, falling back to defaults when the file
// does not exist, then applies environment overrides.
//
// An empty path means DefaultConfigFile, and its absence is not an error;
// an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file, defaults plus environment apply.
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Environment overrides, applied after the file so deployments can keep
// credentials out of YAML.
func (c *Config) applyEnv() {
	c.Neo4j.URI = envString("CODEKG_NEO4J_URI", c.Neo4j.URI)
	c.Neo4j.Username = envString("CODEKG_NEO4J_USERNAME", c.Neo4j.Username)
	c.Neo4j.Password = envString("CODEKG_NEO4J_PASSWORD", c.Neo4j.Password)
	c.Neo4j.Database = envString("CODEKG_NEO4J_DATABASE", c.Neo4j.Database)
	c.Neo4j.BatchSize = envInt("CODEKG_NEO4J_BATCH_SIZE", c.Neo4j.BatchSize)
	c.Graph.MaxASTDepth = envInt("CODEKG_MAX_AST_DEPTH", c.Graph.MaxASTDepth)
	c.Graph.ChunkSize = envInt("CODEKG_CHUNK_SIZE", c.Graph.ChunkSize)
	c.Graph.ChunkOverlap = envInt("CODEKG_CHUNK_OVERLAP", c.Graph.ChunkOverlap)
	c.Graph.WorkerCount = envInt("CODEKG_WORKER_COUNT", c.Graph.WorkerCount)
}

func (c *Config) validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri must not be empty")
	}
	if c.Neo4j.BatchSize <= 0 {
		return fmt.Errorf("neo4j.batch_size must be positive, got %d", c.Neo4j.BatchSize)
	}
	if c.Graph.MaxASTDepth <= 0 {
		return fmt.Errorf("graph.max_ast_depth must be positive, got %d", c.Graph.MaxASTDepth)
	}
	if c.Graph.ChunkSize <= 0 {
		return fmt.Errorf("graph.chunk_size must be positive, got %d", c.Graph.ChunkSize)
	}
	if c.Graph.ChunkOverlap < 0 {
		return fmt.Errorf("graph.chunk_overlap must not be negative, got %d", c.Graph.ChunkOverlap)
	}
	if c.Graph.ChunkOverlap >= c.Graph.ChunkSize {
		return fmt.Errorf("graph.chunk_overlap %d must be below graph.chunk_size %d",
			c.Graph.ChunkOverlap, c.Graph.ChunkSize)
	}
	return nil
}

// StoreOptions maps the config onto store construction options.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		URI:       c.Neo4j.URI,
		Username:  c.Neo4j.Username,
		Password:  c.Neo4j.Password,
		Database:  c.Neo4j.Database,
		BatchSize: c.Neo4j.BatchSize,
	}
}

func envString(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
