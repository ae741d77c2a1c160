package api

import (
	"bytes"
	"net/http"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzip"

	"securities-search/logger"
	"securities-search/models"
	"securities-search/search"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler serves the serialized securities trie and exact ticker lookups
// over the same data. Prefix search is left to clients, which hold the
// whole trie.
type Handler struct {
	Engine    search.SearchEngine
	Trie      *models.Trie
	Version   string
	BuildTime string

	once    sync.Once
	plain   []byte
	gzipped []byte
	err     error
}

func NewHandler(engine search.SearchEngine, trie *models.Trie) *Handler {
	return &Handler{Engine: engine, Trie: trie, Version: "1"}
}

// Routes registers the handler endpoints on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/securities/trie", h.TrieHandler)
	mux.HandleFunc("GET /api/securities/lookup", h.GetSecurity)
	return mux
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type securityResponse struct {
	Success bool             `json:"success"`
	Data    *models.Security `json:"data"`
}

// TrieHandler returns the whole trie. The body is encoded once and served
// gzip-compressed to clients that accept it.
func (h *Handler) TrieHandler(w http.ResponseWriter, r *http.Request) {
	h.once.Do(h.encodeTrie)
	if h.err != nil {
		logger.FromContext(r.Context()).Error(h.err, "failed to encode securities trie")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to encode securities trie"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Vary", "Accept-Encoding")

	body := h.plain
	if acceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		body = h.gzipped
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) encodeTrie() {
	trie := h.Trie
	if trie == nil {
		trie = models.NewTrie()
	}
	h.plain, h.err = json.Marshal(trie.Response(h.Version, h.BuildTime))
	if h.err != nil {
		return
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		h.err = err
		return
	}
	if _, err := zw.Write(h.plain); err != nil {
		h.err = err
		return
	}
	if err := zw.Close(); err != nil {
		h.err = err
		return
	}
	h.gzipped = buf.Bytes()
}

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(coding, "gzip") {
			return true
		}
	}
	return false
}

// GetSecurity looks up a single security by exact ticker, optionally on a
// given exchange.
func (h *Handler) GetSecurity(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing symbol parameter"})
		return
	}

	var security *models.Security
	if exchange := r.URL.Query().Get("exchange"); exchange != "" {
		security = h.Engine.GetStock(symbol, exchange)
	} else {
		security = h.Engine.GetBySymbol(symbol)
	}
	if security == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "security not found"})
		return
	}

	logger.FromContext(r.Context()).V(1).Info("security lookup", "symbol", symbol, "ticker", security.Ticker)
	writeJSON(w, http.StatusOK, securityResponse{Success: true, Data: security})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
