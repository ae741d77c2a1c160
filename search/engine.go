package search

import (
	"strings"

	"securities-search/models"
)

type SearchEngine interface {
	Search(query string) []models.Security
	GetBySymbol(symbol string) *models.Security
	GetStock(symbol, exchange string) *models.Security
}

// RootFunc returns the current trie root, or nil while none is available.
type RootFunc func() *models.TrieNode

// TrieEngine answers queries from an in-memory trie. It is safe to use
// before the trie is loaded; it then behaves like an empty trie.
type TrieEngine struct {
	root RootFunc
}

func NewTrieEngine(root RootFunc) *TrieEngine {
	return &TrieEngine{root: root}
}

func (e *TrieEngine) current() *models.TrieNode {
	if e == nil || e.root == nil {
		return nil
	}
	return e.root()
}

// Search returns the ranked prefix matches for query.
func (e *TrieEngine) Search(query string) []models.Security {
	return Search(e.current(), query)
}

func (e *TrieEngine) GetBySymbol(symbol string) *models.Security {
	matches := ExactMatch(e.current(), symbol)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

func (e *TrieEngine) GetStock(symbol, exchange string) *models.Security {
	for _, security := range ExactMatch(e.current(), symbol) {
		if strings.EqualFold(security.PrimaryExchange, exchange) {
			return &security
		}
	}
	// Fallback to GetBySymbol if exchange doesn't match
	return e.GetBySymbol(symbol)
}

// InMemoryEngine scans a flat slice. It ranks exactly like TrieEngine and
// serves as its reference implementation.
type InMemoryEngine struct {
	securities []models.Security
}

func NewInMemoryEngine(securities []models.Security) *InMemoryEngine {
	return &InMemoryEngine{securities: securities}
}

func (e *InMemoryEngine) Search(query string) []models.Security {
	results := []models.Security{}
	if query == "" {
		return results
	}
	q := models.Canonical(query)
	for _, security := range e.securities {
		if strings.HasPrefix(security.CanonicalTicker(), q) {
			results = append(results, security)
		}
	}
	Rank(results, q)
	return results
}

func (e *InMemoryEngine) GetBySymbol(symbol string) *models.Security {
	for _, security := range e.securities {
		if strings.EqualFold(security.Ticker, symbol) {
			return &security
		}
	}
	return nil
}

func (e *InMemoryEngine) GetStock(symbol, exchange string) *models.Security {
	for _, security := range e.securities {
		if strings.EqualFold(security.Ticker, symbol) && strings.EqualFold(security.PrimaryExchange, exchange) {
			return &security
		}
	}
	// Fallback to GetBySymbol if exchange doesn't match
	return e.GetBySymbol(symbol)
}
