package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned when a provider has no value for a key.
var ErrNotFound = errors.New("credential not found")

// Provider supplies the bearer token used for authenticated trie fetches.
type Provider interface {
	GetCredential(key string) (string, error)
}

// EnvProvider retrieves credentials from environment variables
type EnvProvider struct{}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

func (p *EnvProvider) GetCredential(key string) (string, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return value, nil
}

// FuncProvider delegates to a host supplied token source, e.g. a session
// manager that refreshes access tokens.
type FuncProvider struct {
	TokenFunc func(key string) (string, error)
}

func NewFuncProvider(fn func(string) (string, error)) *FuncProvider {
	return &FuncProvider{TokenFunc: fn}
}

func (p *FuncProvider) GetCredential(key string) (string, error) {
	if p.TokenFunc == nil {
		return "", fmt.Errorf("token function not configured")
	}
	return p.TokenFunc(key)
}

// StaticProvider for testing with hardcoded credentials
type StaticProvider struct {
	credentials map[string]string
}

func NewStaticProvider(creds map[string]string) *StaticProvider {
	return &StaticProvider{
		credentials: creds,
	}
}

func (p *StaticProvider) GetCredential(key string) (string, error) {
	value, ok := p.credentials[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return value, nil
}
