// Package quote resolves ticker symbols to a company name and latest price
// through an IEX-compatible HTTP API.
package quote

import (
	"context"
	"errors"
	"strings"

	"github.com/hongminglow/papertrade/internal/models"
)

var (
	// ErrSymbolNotFound means the service does not know the symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrMalformedResponse means the service answered with something unusable.
	ErrMalformedResponse = errors.New("malformed quote response")
	// ErrUnavailable means the service could not be reached after retrying.
	ErrUnavailable = errors.New("quote service unavailable")
)

// Provider looks up quotes.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (models.Quote, error)
}

// NormalizeSymbol trims and upper-cases a ticker. It returns "" when the input
// contains characters no ticker uses.
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if len(symbol) > 16 {
		return ""
	}
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
		default:
			return ""
		}
	}
	return symbol
}
