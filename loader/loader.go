package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"securities-search/models"
)

// LoadSecurities reads a securities CSV file. The first row is a header
// naming the columns; ticker and name are required, any of market, locale,
// primary_exchange, type, active, currency_name, cik, composite_figi,
// share_class_figi and last_updated_utc are optional. Inactive rows and rows
// without a ticker are skipped.
func LoadSecurities(filePath string) ([]models.Security, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadSecurities(f)
}

// ReadSecurities parses securities CSV from r. See LoadSecurities.
func ReadSecurities(r io.Reader) ([]models.Security, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"ticker", "name"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing %q column in header", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var securities []models.Security
	for line, record := range records[1:] {
		ticker := field(record, "ticker")
		if ticker == "" {
			continue
		}

		active := true
		if raw := field(record, "active"); raw != "" {
			active, err = strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid active value %q", line+2, raw)
			}
		}
		if !active {
			continue
		}

		securities = append(securities, models.Security{
			Ticker:          ticker,
			Name:            field(record, "name"),
			Market:          field(record, "market"),
			Locale:          field(record, "locale"),
			PrimaryExchange: field(record, "primary_exchange"),
			Type:            field(record, "type"),
			Active:          active,
			CurrencyName:    field(record, "currency_name"),
			Cik:             field(record, "cik"),
			CompositeFigi:   field(record, "composite_figi"),
			ShareClassFigi:  field(record, "share_class_figi"),
			LastUpdatedUtc:  field(record, "last_updated_utc"),
		})
	}

	return securities, nil
}

// BuildTrie inserts securities into a new trie.
func BuildTrie(securities []models.Security) *models.Trie {
	trie := models.NewTrie()
	for _, security := range securities {
		trie.Insert(security)
	}
	return trie
}
