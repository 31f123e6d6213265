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
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Default knowledge-graph configuration values.
const (
	// DefaultMaxASTDepth bounds how deep the flattened syntax tree goes.
	DefaultMaxASTDepth = 100

	// DefaultChunkSize and DefaultChunkOverlap are recorded on the graph as
	// reconstruction metadata for stored graphs.
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100

	// DefaultWorkerCount is the number of parallel file parsers.
	// Zero means runtime.NumCPU().
	DefaultWorkerCount = 0
)

// Options configures a KnowledgeGraph.
type Options struct {
	// MaxASTDepth is the maximum PARENT_OF distance from an AST root.
	MaxASTDepth int

	// ChunkSize and ChunkOverlap are chunking metadata carried on the
	// graph so a stored graph can be reconstructed with the same values.
	ChunkSize    int
	ChunkOverlap int

	// RootNodeID is the first id the allocator hands out; the repository
	// root FileNode receives it. Builds that share a store pick a base
	// above every previously stored id so id spaces stay disjoint.
	RootNodeID int64

	// WorkerCount is the number of goroutines parsing files in parallel.
	WorkerCount int

	// Logger receives build progress and skip messages. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxASTDepth:  DefaultMaxASTDepth,
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		RootNodeID:   0,
		WorkerCount:  DefaultWorkerCount,
	}
}

// Option is a functional option for configuring a KnowledgeGraph.
type Option func(*Options)

// WithMaxASTDepth sets the AST depth bound.
func WithMaxASTDepth(depth int) Option {
	return func(o *Options) {
		o.MaxASTDepth = depth
	}
}

// WithChunking sets the chunk size and overlap metadata.
func WithChunking(size, overlap int) Option {
	return func(o *Options) {
		o.ChunkSize = size
		o.ChunkOverlap = overlap
	}
}

// WithRootNodeID sets the id the root FileNode receives.
func WithRootNodeID(id int64) Option {
	return func(o *Options) {
		o.RootNodeID = id
	}
}

// WithWorkerCount sets the number of parallel file parsers.
func WithWorkerCount(n int) Option {
	return func(o *Options) {
		o.WorkerCount = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// KnowledgeGraph is the in-memory graph of one repository snapshot.
//
// Build populates it from a directory tree; FromParts reconstructs it from
// stored rows. A KnowledgeGraph is not safe for concurrent mutation; build it
// once, then read it from as many goroutines as needed.
type KnowledgeGraph struct {
	opts    Options
	builder *FileGraphBuilder
	log     *slog.Logger

	rootNodeID int64
	nextNodeID int64
	nodes      []*Node
	edges      []Edge
}

// NewKnowledgeGraph returns an empty graph configured by opts.
func NewKnowledgeGraph(opts ...Option) *KnowledgeGraph {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.WorkerCount <= 0 {
		o.WorkerCount = runtime.NumCPU()
	}

	return &KnowledgeGraph{
		opts:       o,
		builder:    NewFileGraphBuilder(o.MaxASTDepth, o.ChunkSize, o.ChunkOverlap),
		log:        o.Logger,
		rootNodeID: o.RootNodeID,
		nextNodeID: o.RootNodeID,
	}
}

// FromParts reconstructs a graph from already materialized nodes and edges,
// as read back from the store. The node slice must contain the root FileNode
// carrying rootNodeID.
func FromParts(nodes []*Node, edges []Edge, opts ...Option) *KnowledgeGraph {
	g := NewKnowledgeGraph(opts...)
	g.nodes = nodes
	g.edges = edges
	for _, n := range nodes {
		if n.ID >= g.nextNodeID {
			g.nextNodeID = n.ID + 1
		}
	}
	return g
}

// pendingFile is one file discovered during the walk whose content graph is
// built in the parallel phase.
type pendingFile struct {
	fileNode *Node
	absPath  string
}

// fileFragment is the content graph of one file, built with a private id
// space starting at zero and renumbered during the merge.
type fileFragment struct {
	nodes []*Node
	edges []Edge
}

// Build walks rootDir and populates the graph.
//
// Description:
//
//	The walk is an explicit-stack depth-first traversal over directories.
//	Children are visited in sorted order so that two builds of the same
//	tree allocate the same ids. Every file and directory gets a FileNode
//	and a HAS_FILE edge from its parent; parseable and chunkable files are
//	queued and their content graphs are built by a pool of workers, then
//	merged back in walk order through the single id allocator.
//
// Inputs:
//   - ctx: cancels the build.
//   - rootDir: directory to walk. Must exist.
//
// Outputs:
//   - error: nil on success. Unsupported, unreadable, or non-UTF-8 files
//     are logged and skipped, never failing the build.
//
// Thread Safety: not safe to call concurrently with itself or any reader.
func (g *KnowledgeGraph) Build(ctx context.Context, rootDir string) error {
	start := time.Now()
	buildID := uuid.NewString()
	log := g.log.With("build_id", buildID, "root_dir", rootDir)

	info, err := os.Stat(rootDir)
	if err != nil {
		return fmt.Errorf("stat root dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %q is not a directory", rootDir)
	}

	ignore, err := LoadIgnoreMatcher(rootDir)
	if err != nil {
		log.Warn("failed to load ignore rules, continuing without", "error", err)
		ignore = NewIgnoreMatcher(nil)
	}

	pending := g.walkTree(log, rootDir, ignore)

	fragments, err := g.buildFragments(ctx, log, pending)
	if err != nil {
		return err
	}

	g.mergeFragments(pending, fragments)

	log.Info("knowledge graph built",
		"nodes", len(g.nodes),
		"edges", len(g.edges),
		"files_parsed", len(pending),
		"duration", time.Since(start))
	buildDuration.Observe(time.Since(start).Seconds())
	return nil
}

// walkTree creates all FileNodes and HAS_FILE edges and returns the files
// whose content still needs processing, in deterministic walk order.
func (g *KnowledgeGraph) walkTree(log *slog.Logger, rootDir string, ignore *IgnoreMatcher) []pendingFile {
	root := &Node{
		ID:      g.allocateID(),
		Payload: FileNode{Basename: filepath.Base(rootDir), RelativePath: "."},
	}
	g.nodes = append(g.nodes, root)

	var pending []pendingFile

	type dirFrame struct {
		node    *Node
		absPath string
		relPath string
	}
	stack := []dirFrame{{node: root, absPath: rootDir, relPath: "."}}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir.absPath)
		if err != nil {
			log.Warn("skipping unreadable directory", "path", dir.relPath, "error", err)
			filesSkipped.WithLabelValues("unreadable_dir").Inc()
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			name := entry.Name()
			relPath := name
			if dir.relPath != "." {
				relPath = dir.relPath + "/" + name
			}

			if ignore.Match(relPath, entry.IsDir()) {
				log.Debug("skipping ignored entry", "path", relPath)
				filesSkipped.WithLabelValues("ignored").Inc()
				continue
			}

			child := &Node{
				ID:      g.allocateID(),
				Payload: FileNode{Basename: name, RelativePath: relPath},
			}
			g.nodes = append(g.nodes, child)
			g.edges = append(g.edges, Edge{Source: dir.node, Target: child, Kind: EdgeHasFile})

			absPath := filepath.Join(dir.absPath, name)
			switch {
			case entry.IsDir():
				stack = append(stack, dirFrame{node: child, absPath: absPath, relPath: relPath})
			case g.builder.SupportsFile(relPath):
				pending = append(pending, pendingFile{fileNode: child, absPath: absPath})
			default:
				log.Debug("skipping unsupported file", "path", relPath)
				filesSkipped.WithLabelValues("unsupported").Inc()
			}
		}
	}

	return pending
}

// buildFragments parses queued files in parallel. Each fragment uses a
// private id space starting at zero; ids become real during the merge, which
// keeps the global allocator single-threaded.
func (g *KnowledgeGraph) buildFragments(
	ctx context.Context, log *slog.Logger, pending []pendingFile,
) ([]fileFragment, error) {
	fragments := make([]fileFragment, len(pending))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.WorkerCount)

	for i, pf := range pending {
		i, pf := i, pf
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rel := pf.fileNode.Payload.(FileNode).RelativePath
			content, err := os.ReadFile(pf.absPath)
			if err != nil {
				log.Warn("skipping unreadable file", "path", rel, "error", err)
				filesSkipped.WithLabelValues("unreadable").Inc()
				return nil
			}
			if !utf8.Valid(content) {
				log.Warn("skipping non-UTF-8 file", "path", rel)
				filesSkipped.WithLabelValues("not_utf8").Inc()
				return nil
			}

			_, nodes, edges, err := g.builder.BuildFileGraph(ctx, pf.fileNode, rel, content, 0)
			if err != nil {
				log.Warn("skipping unparseable file", "path", rel, "error", err)
				filesSkipped.WithLabelValues("parse_error").Inc()
				return nil
			}
			fragments[i] = fileFragment{nodes: nodes, edges: edges}
			filesProcessed.Inc()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("build file graphs: %w", err)
	}
	return fragments, nil
}

// mergeFragments renumbers fragment ids through the global allocator and
// appends the fragments in walk order.
func (g *KnowledgeGraph) mergeFragments(pending []pendingFile, fragments []fileFragment) {
	for i := range pending {
		for _, n := range fragments[i].nodes {
			n.ID = g.allocateID()
			g.nodes = append(g.nodes, n)
		}
		g.edges = append(g.edges, fragments[i].edges...)
	}
}

// allocateID hands out the next node id. Never called concurrently.
func (g *KnowledgeGraph) allocateID() int64 {
	id := g.nextNodeID
	g.nextNodeID++
	return id
}

// =====================
// Accessors
// =====================

// RootNodeID returns the id of the repository root FileNode.
func (g *KnowledgeGraph) RootNodeID() int64 { return g.rootNodeID }

// NextNodeID returns the next id the allocator would hand out, which is one
// past the highest id in the graph.
func (g *KnowledgeGraph) NextNodeID() int64 { return g.nextNodeID }

// MaxASTDepth returns the configured AST depth bound.
func (g *KnowledgeGraph) MaxASTDepth() int { return g.opts.MaxASTDepth }

// ChunkSize returns the configured chunk size metadata.
func (g *KnowledgeGraph) ChunkSize() int { return g.opts.ChunkSize }

// ChunkOverlap returns the configured chunk overlap metadata.
func (g *KnowledgeGraph) ChunkOverlap() int { return g.opts.ChunkOverlap }

// Nodes returns all nodes. The slice is owned by the graph; do not mutate.
func (g *KnowledgeGraph) Nodes() []*Node { return g.nodes }

// Edges returns all edges. The slice is owned by the graph; do not mutate.
func (g *KnowledgeGraph) Edges() []Edge { return g.edges }

// FileNodes returns every node carrying a FileNode payload, in id order.
func (g *KnowledgeGraph) FileNodes() []*Node {
	return g.nodesOfKind(func(p Payload) bool { _, ok := p.(FileNode); return ok })
}

// ASTNodes returns every node carrying an ASTNode payload, in id order.
func (g *KnowledgeGraph) ASTNodes() []*Node {
	return g.nodesOfKind(func(p Payload) bool { _, ok := p.(ASTNode); return ok })
}

// TextNodes returns every node carrying a TextNode payload, in id order.
func (g *KnowledgeGraph) TextNodes() []*Node {
	return g.nodesOfKind(func(p Payload) bool { _, ok := p.(TextNode); return ok })
}

func (g *KnowledgeGraph) nodesOfKind(match func(Payload) bool) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if match(n.Payload) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EdgesByKind returns every edge of the given kind.
func (g *KnowledgeGraph) EdgesByKind(kind EdgeKind) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// NodeByID returns the node with the given id, or nil.
func (g *KnowledgeGraph) NodeByID(id int64) *Node {
	for _, n := range g.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// GetAllASTNodeTypes returns the sorted set of distinct syntax type tags
// present in the graph.
func (g *KnowledgeGraph) GetAllASTNodeTypes() []string {
	seen := make(map[string]struct{})
	for _, n := range g.nodes {
		if ast, ok := n.Payload.(ASTNode); ok {
			seen[ast.Type] = struct{}{}
		}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Equal reports whether two graphs hold the same nodes and edges, ignoring
// ordering. Nodes compare by id and payload; edges by endpoint ids and kind.
func (g *KnowledgeGraph) Equal(other *KnowledgeGraph) bool {
	if other == nil {
		return false
	}
	if len(g.nodes) != len(other.nodes) || len(g.edges) != len(other.edges) {
		return false
	}

	nodes := make(map[int64]Payload, len(g.nodes))
	for _, n := range g.nodes {
		nodes[n.ID] = n.Payload
	}
	for _, n := range other.nodes {
		payload, ok := nodes[n.ID]
		if !ok || payload != n.Payload {
			return false
		}
	}

	type edgeKey struct {
		source, target int64
		kind           EdgeKind
	}
	edges := make(map[edgeKey]int, len(g.edges))
	for _, e := range g.edges {
		edges[edgeKey{e.Source.ID, e.Target.ID, e.Kind}]++
	}
	for _, e := range other.edges {
		key := edgeKey{e.Source.ID, e.Target.ID, e.Kind}
		if edges[key] == 0 {
			return false
		}
		edges[key]--
	}
	return true
}

// =====================
// File tree rendering
// =====================

// File tree drawing pieces.
const (
	treeSpace  = "    "
	treeBranch = "|   "
	treeTee    = "├── "
	treeLast   = "└── "

	// DefaultTreeMaxDepth and DefaultTreeMaxLines bound the rendered tree
	// so huge repositories stay readable.
	DefaultTreeMaxDepth = 5
	DefaultTreeMaxLines = 5000
)

// GetFileTree renders the directory structure as an ASCII tree rooted at the
// repository root, depth-limited to maxDepth levels below the root and capped
// at maxLines lines.
func (g *KnowledgeGraph) GetFileTree(maxDepth, maxLines int) string {
	children := make(map[int64][]*Node)
	for _, e := range g.EdgesByKind(EdgeHasFile) {
		children[e.Source.ID] = append(children[e.Source.ID], e.Target)
	}
	for id := range children {
		sort.Slice(children[id], func(i, j int) bool {
			return children[id][i].Payload.(FileNode).Basename < children[id][j].Payload.(FileNode).Basename
		})
	}

	root := g.NodeByID(g.rootNodeID)
	if root == nil {
		return ""
	}

	lines := []string{root.Payload.(FileNode).Basename}

	var render func(node *Node, prefix string, depth int)
	render = func(node *Node, prefix string, depth int) {
		if depth > maxDepth || len(lines) >= maxLines {
			return
		}
		kids := children[node.ID]
		for i, kid := range kids {
			if len(lines) >= maxLines {
				return
			}
			connector, childPrefix := treeTee, prefix+treeBranch
			if i == len(kids)-1 {
				connector, childPrefix = treeLast, prefix+treeSpace
			}
			lines = append(lines, prefix+connector+kid.Payload.(FileNode).Basename)
			render(kid, childPrefix, depth+1)
		}
	}
	render(root, "", 1)

	if len(lines) >= maxLines {
		lines = append(lines[:maxLines], "...")
	}
	return strings.Join(lines, "\n")
}
