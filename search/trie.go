package search

import (
	"slices"
	"strings"
	"unicode/utf8"

	"securities-search/models"
)

// Search returns every security whose canonical ticker starts with query,
// ranked by Rank. It never mutates the trie and never fails: an empty
// query, a nil root or a prefix absent from the trie yields an empty
// result after at most len(query) descents.
func Search(root *models.TrieNode, query string) []models.Security {
	if query == "" || root == nil {
		return []models.Security{}
	}

	canonical := models.Canonical(query)
	node := descend(root, canonical)
	if node == nil {
		return []models.Security{}
	}

	results := collect(node)
	Rank(results, canonical)
	return results
}

// ExactMatch returns the securities whose canonical ticker equals ticker.
func ExactMatch(root *models.TrieNode, ticker string) []models.Security {
	if ticker == "" || root == nil {
		return []models.Security{}
	}
	node := descend(root, models.Canonical(ticker))
	if !node.Terminal() {
		return []models.Security{}
	}
	return slices.Clone(node.Securities)
}

func descend(root *models.TrieNode, canonical string) *models.TrieNode {
	node := root
	for _, r := range canonical {
		node = node.Child(r)
		if node == nil {
			return nil
		}
	}
	return node
}

// collect gathers the securities of node and all its descendants in
// pre-order, visiting children in ascending code point order.
func collect(node *models.TrieNode) []models.Security {
	var results []models.Security
	stack := []*models.TrieNode{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		results = append(results, n.Securities...)

		keys := n.Keys()
		for i := len(keys) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[keys[i]])
		}
	}
	if results == nil {
		return []models.Security{}
	}
	return results
}

// Rank orders securities for a canonical query: tickers starting with the
// query first, then shorter tickers, then ascending ticker. The sort is
// stable so listings sharing a ticker keep their relative order.
func Rank(securities []models.Security, canonical string) {
	slices.SortStableFunc(securities, func(a, b models.Security) int {
		at, bt := a.CanonicalTicker(), b.CanonicalTicker()

		ap, bp := strings.HasPrefix(at, canonical), strings.HasPrefix(bt, canonical)
		if ap != bp {
			if ap {
				return -1
			}
			return 1
		}

		if al, bl := utf8.RuneCountInString(at), utf8.RuneCountInString(bt); al != bl {
			return al - bl
		}
		return strings.Compare(at, bt)
	})
}
