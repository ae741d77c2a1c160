package models

import "strings"

// Security is one listing from the securities dataset. Ticker is the key;
// several listings may share it.
type Security struct {
	Ticker          string `json:"ticker"`
	Name            string `json:"name"`
	Market          string `json:"market,omitempty"`
	Locale          string `json:"locale,omitempty"`
	PrimaryExchange string `json:"primary_exchange,omitempty"`
	Type            string `json:"type,omitempty"`
	Active          bool   `json:"active"`
	CurrencyName    string `json:"currency_name,omitempty"`
	Cik             string `json:"cik,omitempty"`
	CompositeFigi   string `json:"composite_figi,omitempty"`
	ShareClassFigi  string `json:"share_class_figi,omitempty"`
	LastUpdatedUtc  string `json:"last_updated_utc,omitempty"`
}

// Canonical returns the uppercase form used for trie keys and comparisons.
func Canonical(s string) string {
	return strings.ToUpper(s)
}

// CanonicalTicker returns the canonical form of the security's ticker.
func (s Security) CanonicalTicker() string {
	return Canonical(s.Ticker)
}
