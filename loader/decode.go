package loader

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"

	"securities-search/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMaxDepth bounds the decoded trie depth, i.e. the longest ticker.
const DefaultMaxDepth = 32

// Payload is a decoded trie response.
type Payload struct {
	Root      *models.TrieNode
	Size      int
	Count     int
	Version   string
	BuildTime string
}

// Decode reads a serialized trie response. Malformed JSON is returned as
// is; a payload without a root, with a non numeric child key or deeper than
// maxDepth yields a *DecodeError. No partial trie is ever returned.
func Decode(r io.Reader, maxDepth int) (*Payload, error) {
	var resp models.TrieResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, err
	}
	if resp.Trie == nil || resp.Trie.Root == nil {
		return nil, &DecodeError{Err: ErrNoRoot}
	}
	root, err := DecodeNode(resp.Trie.Root, maxDepth)
	if err != nil {
		return nil, err
	}
	return &Payload{
		Root:      root,
		Size:      resp.Trie.Size,
		Count:     resp.Count,
		Version:   resp.Version,
		BuildTime: resp.BuildTime,
	}, nil
}

// DecodeNode converts a wire node tree into integer keyed nodes, parsing
// every child key exactly once.
func DecodeNode(w *models.WireNode, maxDepth int) (*models.TrieNode, error) {
	if w == nil {
		return nil, &DecodeError{Err: ErrNoRoot}
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	type frame struct {
		wire *models.WireNode
		node *models.TrieNode
		path []rune
	}

	root := newNode(w)
	stack := []frame{{wire: w, node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(f.wire.Children) == 0 {
			continue
		}
		if len(f.path) >= maxDepth {
			return nil, &DecodeError{Path: string(f.path), Err: fmt.Errorf("trie deeper than %d code points", maxDepth)}
		}

		f.node.Children = make(map[rune]*models.TrieNode, len(f.wire.Children))
		for key, child := range f.wire.Children {
			code, err := strconv.ParseInt(key, 10, 32)
			// Only the canonical spelling is accepted so that no two keys
			// name the same code point.
			if err != nil || !utf8.ValidRune(rune(code)) || strconv.FormatInt(code, 10) != key {
				return nil, &DecodeError{Path: string(f.path), Err: fmt.Errorf("invalid child key %q", key)}
			}
			if child == nil {
				continue
			}
			r := rune(code)
			node := newNode(child)
			f.node.Children[r] = node
			stack = append(stack, frame{
				wire: child,
				node: node,
				path: append(slices.Clip(f.path), r),
			})
		}
	}
	return root, nil
}

func newNode(w *models.WireNode) *models.TrieNode {
	return &models.TrieNode{
		Securities: w.Securities,
		IsEnd:      len(w.Securities) > 0,
	}
}
