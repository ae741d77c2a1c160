package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"

	"securities-search/credentials"
	"securities-search/logger"
)

// HTTPFetcher fetches the serialized securities trie from the API.
type HTTPFetcher struct {
	BaseURL     string
	Path        string
	CacheBust   bool
	MaxDepth    int
	TokenKey    string
	Client      *http.Client
	Credentials credentials.Provider
	// Limiter spaces out successive fetches so that repeated retries after
	// a failure cannot hammer the API.
	Limiter *rate.Limiter

	now func() time.Time
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

func WithPath(path string) FetcherOption {
	return func(f *HTTPFetcher) { f.Path = path }
}

func WithCacheBust(enabled bool) FetcherOption {
	return func(f *HTTPFetcher) { f.CacheBust = enabled }
}

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.Client = c }
}

func WithCredentials(p credentials.Provider, key string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.Credentials = p
		f.TokenKey = key
	}
}

// WithMinInterval allows at most one fetch per interval. Zero disables the
// limit.
func WithMinInterval(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d <= 0 {
			f.Limiter = nil
			return
		}
		f.Limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

func WithMaxDepth(n int) FetcherOption {
	return func(f *HTTPFetcher) { f.MaxDepth = n }
}

// NewHTTPFetcher creates a fetcher for baseURL with the default trie path
// and cache busting enabled.
func NewHTTPFetcher(baseURL string, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Path:      "/api/securities/trie",
		CacheBust: true,
		MaxDepth:  DefaultMaxDepth,
		Client:    &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the request URL, with a millisecond timestamp parameter when
// cache busting is enabled.
func (f *HTTPFetcher) URL() (string, error) {
	u, err := url.Parse(f.BaseURL + f.Path)
	if err != nil {
		return "", err
	}
	if f.CacheBust {
		q := u.Query()
		q.Set("t", strconv.FormatInt(f.now().UnixMilli(), 10))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// FetchTrie performs one GET of the trie endpoint and decodes the payload.
// Every failure is returned as a *LoadError.
func (f *HTTPFetcher) FetchTrie(ctx context.Context) (*Payload, error) {
	log := logger.FromContext(ctx)

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, &LoadError{Op: "throttle", Err: err}
		}
	}

	target, err := f.URL()
	if err != nil {
		return nil, &LoadError{Op: "fetch", URL: f.BaseURL + f.Path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &LoadError{Op: "fetch", URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	if f.Credentials != nil {
		if token, err := f.Credentials.GetCredential(f.TokenKey); err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		} else if err != nil {
			log.V(1).Info("fetching trie without credentials", "reason", err.Error())
		}
	}

	log.V(1).Info("fetching securities trie", "url", target)
	start := time.Now()

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &LoadError{Op: "fetch", URL: target, Err: err}
	}
	defer resp.Body.Close()

	body := io.Reader(resp.Body)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &LoadError{Op: "read", URL: target, StatusCode: statusIfFailed(resp), Err: err}
		}
		defer gz.Close()
		body = gz
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{Op: "status", URL: target, StatusCode: resp.StatusCode, Err: errorMessage(body, resp.Status)}
	}

	payload, err := Decode(body, f.MaxDepth)
	if err != nil {
		return nil, &LoadError{Op: "decode", URL: target, Err: err}
	}

	log.Info("securities trie loaded",
		"count", payload.Count,
		"size", payload.Size,
		"version", payload.Version,
		"duration", time.Since(start).String())
	return payload, nil
}

func statusIfFailed(resp *http.Response) int {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode
	}
	return 0
}

// errorMessage extracts {"error": "..."} from an error body, falling back
// to the HTTP status text.
func errorMessage(body io.Reader, status string) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err == nil && json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return errors.New(payload.Error)
	}
	return fmt.Errorf("unexpected status %s", status)
}
