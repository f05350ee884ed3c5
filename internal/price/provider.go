package price

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the price of one unit of the asset in a single currency.
type Quote struct {
	Price     decimal.Decimal
	Change24h decimal.Decimal // percent; zero when the API omits it
}

// QuoteResult holds the quotes for every requested currency the API
// answered for. Currencies missing from the response are absent here.
type QuoteResult struct {
	Asset       string
	LastUpdated time.Time
	Quotes      map[string]Quote
}

// Lookup returns the quote for code, ignoring case.
func (r QuoteResult) Lookup(code string) (Quote, bool) {
	q, ok := r.Quotes[normalizeCode(code)]
	return q, ok
}

// Provider fetches current and historical prices for one asset.
type Provider interface {
	Name() string
	FetchCurrent(ctx context.Context, req QuoteRequest) (QuoteResult, error)
	FetchHistory(ctx context.Context, currency string, days int) (HistorySeries, error)
}
