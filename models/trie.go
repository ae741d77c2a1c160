package models

import (
	"maps"
	"slices"
	"strconv"
)

// TrieNode is one prefix position in the securities trie. The path of code
// points from the root spells the canonical prefix. Securities holds the
// listings whose canonical ticker ends exactly here and is authoritative;
// IsEnd is only a hint carried by the wire format.
type TrieNode struct {
	Children   map[rune]*TrieNode
	Securities []Security
	IsEnd      bool
}

// Child returns the child reached by r, or nil.
func (n *TrieNode) Child(r rune) *TrieNode {
	if n == nil || n.Children == nil {
		return nil
	}
	return n.Children[r]
}

// Terminal reports whether at least one ticker ends at n.
func (n *TrieNode) Terminal() bool {
	return n != nil && len(n.Securities) > 0
}

// Keys returns the child code points in ascending order.
func (n *TrieNode) Keys() []rune {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(n.Children))
}

// Trie builds a securities trie keyed by canonical ticker. It is used on
// the serving side; clients only ever read decoded nodes.
type Trie struct {
	Root *TrieNode
	Size int
}

// NewTrie creates an empty trie.
func NewTrie() *Trie {
	return &Trie{
		Root: &TrieNode{Children: make(map[rune]*TrieNode)},
	}
}

// Insert adds a security under its canonical ticker. Securities sharing a
// ticker are kept in insertion order at the same node.
func (t *Trie) Insert(security Security) {
	node := t.Root
	for _, char := range security.CanonicalTicker() {
		if node.Children == nil {
			node.Children = make(map[rune]*TrieNode)
		}
		child, ok := node.Children[char]
		if !ok {
			child = &TrieNode{Children: make(map[rune]*TrieNode)}
			node.Children[char] = child
		}
		node = child
	}
	node.IsEnd = true
	node.Securities = append(node.Securities, security)
	t.Size++
}

// TrieResponse is the serialized trie payload served by the securities
// trie endpoint.
type TrieResponse struct {
	Trie      *WireTrie `json:"trie"`
	Count     int       `json:"count"`
	Version   string    `json:"version"`
	BuildTime string    `json:"build_time"`
}

// WireTrie is the trie envelope inside TrieResponse.
type WireTrie struct {
	Root *WireNode `json:"root"`
	Size int       `json:"size"`
}

// WireNode is the serialized form of a TrieNode. Child keys are decimal
// encoded code points.
type WireNode struct {
	Children   map[string]*WireNode `json:"children,omitempty"`
	Securities []Security           `json:"securities,omitempty"`
	IsEnd      bool                 `json:"is_end"`
}

// Response converts the trie into its wire representation.
func (t *Trie) Response(version, buildTime string) TrieResponse {
	return TrieResponse{
		Trie:      &WireTrie{Root: toWire(t.Root), Size: t.Size},
		Count:     t.Size,
		Version:   version,
		BuildTime: buildTime,
	}
}

func toWire(n *TrieNode) *WireNode {
	if n == nil {
		return nil
	}
	w := &WireNode{
		Securities: n.Securities,
		IsEnd:      n.IsEnd,
	}
	if len(n.Children) > 0 {
		w.Children = make(map[string]*WireNode, len(n.Children))
		for r, child := range n.Children {
			w.Children[strconv.Itoa(int(r))] = toWire(child)
		}
	}
	return w
}
