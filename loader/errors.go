package loader

import (
	"errors"
	"fmt"
)

// ErrNoRoot is reported when the payload parses but carries no root node.
var ErrNoRoot = errors.New("no root node found in trie response")

// LoadError describes a failed trie load: transport failure, non-success
// HTTP status, or a payload that could not be decoded.
type LoadError struct {
	Op         string // "throttle", "fetch", "status", "read", "decode"
	URL        string
	StatusCode int
	Err        error
}

func (e *LoadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("load securities trie: %s %s: HTTP %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	if e.URL != "" {
		return fmt.Sprintf("load securities trie: %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("load securities trie: %s: %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DecodeError is a LoadError cause for payloads that parse but do not form
// a usable trie. Path is the canonical prefix of the offending node.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("node %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
