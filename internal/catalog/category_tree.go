package catalog

import (
	"sort"
	"strings"

	"github.com/raine/catalog-feed-import/internal/textutil"
	"github.com/raine/catalog-feed-import/internal/uniq"
)

const (
	// PathSeparator separates segments of a raw category path.
	PathSeparator = ">"

	keySeparator = " > "
)

// CategoryNode represents a node in the category hierarchy tree.
// Key is the normalized path prefix the node stands for.
type CategoryNode struct {
	Key       string
	Title     string
	ParentKey string
	Depth     int
	Children  []*CategoryNode
}

// CategoryTree represents the category forest referenced by a feed.
type CategoryTree struct {
	// roots contains the top-level category nodes
	roots []*CategoryNode
	// nodeByKey allows quick lookup of any node by path key
	nodeByKey map[string]*CategoryNode
}

// CategorySeed is one category ready for import.
type CategorySeed struct {
	Name         string         `json:"name"`
	Handle       string         `json:"handle"`
	IsActive     bool           `json:"is_active"`
	ParentHandle string         `json:"parent_handle,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// CategoryHandles maps node keys to their assigned handles.
type CategoryHandles map[string]string

// NormalizePath splits a raw path into trimmed, non-empty segments with
// inner whitespace collapsed. Repeated separators yield no empty segments.
func NormalizePath(raw string) []string {
	var segments []string
	for _, part := range strings.Split(raw, PathSeparator) {
		if part = textutil.CollapseWhitespace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// PathKey returns the canonical key of a raw path, or "" for an empty one.
func PathKey(raw string) string {
	return strings.Join(NormalizePath(raw), keySeparator)
}

// BuildCategoryTree registers one node per prefix of every path, so
// "Tea > Green Tea" yields "Tea" and "Tea > Green Tea".
func BuildCategoryTree(paths []string) *CategoryTree {
	tree := &CategoryTree{
		nodeByKey: make(map[string]*CategoryNode),
	}

	for _, raw := range paths {
		segments := NormalizePath(raw)
		parentKey := ""
		for depth, segment := range segments {
			key := strings.Join(segments[:depth+1], keySeparator)
			tree.getOrCreateNode(key, segment, parentKey, depth)
			parentKey = key
		}
	}

	// link children to parents; every parent exists because prefixes are
	// registered before their extensions
	for _, node := range tree.Nodes() {
		if node.ParentKey == "" {
			tree.roots = append(tree.roots, node)
			continue
		}
		parent := tree.nodeByKey[node.ParentKey]
		parent.Children = append(parent.Children, node)
	}

	return tree
}

// getOrCreateNode returns existing node or creates a new one
func (t *CategoryTree) getOrCreateNode(key, title, parentKey string, depth int) *CategoryNode {
	if node, exists := t.nodeByKey[key]; exists {
		return node
	}
	node := &CategoryNode{
		Key:       key,
		Title:     title,
		ParentKey: parentKey,
		Depth:     depth,
	}
	t.nodeByKey[key] = node
	return node
}

// Nodes returns every node sorted by depth, then by key.
func (t *CategoryTree) Nodes() []*CategoryNode {
	nodes := make([]*CategoryNode, 0, len(t.nodeByKey))
	for _, node := range t.nodeByKey {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Depth != nodes[j].Depth {
			return nodes[i].Depth < nodes[j].Depth
		}
		return nodes[i].Key < nodes[j].Key
	})
	return nodes
}

// Len returns the number of nodes.
func (t *CategoryTree) Len() int {
	return len(t.nodeByKey)
}

// GetRoots returns the top-level category nodes.
func (t *CategoryTree) GetRoots() []*CategoryNode {
	return t.roots
}

// GetChildren returns the children of a node by key.
// Returns nil if the node doesn't exist or has no children.
func (t *CategoryTree) GetChildren(key string) []*CategoryNode {
	node, exists := t.nodeByKey[key]
	if !exists {
		return nil
	}
	return node.Children
}

// GetNode returns the node for a given key, or nil.
func (t *CategoryTree) GetNode(key string) *CategoryNode {
	return t.nodeByKey[key]
}

// IsLeaf returns true if the category has no children.
func (t *CategoryTree) IsLeaf(key string) bool {
	node, exists := t.nodeByKey[key]
	if !exists {
		return true
	}
	return len(node.Children) == 0
}

// AssignHandles claims a handle for every node in depth-then-key order and
// returns the seeds in that order. Parents are always handled before their
// children, so ParentHandle is set for every non-root node.
func (t *CategoryTree) AssignHandles(handles *uniq.Set) ([]CategorySeed, CategoryHandles) {
	nodes := t.Nodes()
	seeds := make([]CategorySeed, 0, len(nodes))
	byKey := make(CategoryHandles, len(nodes))

	for _, node := range nodes {
		seed := textutil.Slugify(node.Title)
		if seed == "" {
			seed = "category"
		}
		handle := handles.Claim(seed)
		byKey[node.Key] = handle

		seeds = append(seeds, CategorySeed{
			Name:         node.Title,
			Handle:       handle,
			IsActive:     true,
			ParentHandle: byKey[node.ParentKey],
			Metadata: map[string]any{
				"source_path": node.Key,
				"depth":       node.Depth,
			},
		})
	}
	return seeds, byKey
}

// Resolve returns the handle of a raw category path.
func (h CategoryHandles) Resolve(raw string) (string, bool) {
	key := PathKey(raw)
	if key == "" {
		return "", false
	}
	handle, ok := h[key]
	return handle, ok
}
