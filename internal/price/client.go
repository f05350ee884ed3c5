package price

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// HTTPClient describes the part of *http.Client the price client needs.
//
//go:generate mockgen -package=price_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	defaultBaseURL  = "https://api.coingecko.com/api/v3"
	defaultAsset    = "bitcoin"
	defaultInterval = "daily"

	// CoinGecko accepts this header for both demo and pro keys.
	apiKeyHeader = "x-cg-pro-api-key"
)

// CoinGecko fetches quotes from the CoinGecko v3 API.
// Docs: https://docs.coingecko.com/
type CoinGecko struct {
	baseURL    string
	asset      string
	interval   string
	apiKey     string
	httpClient HTTPClient
	header     http.Header
	log        logrus.FieldLogger
}

// Option configures a CoinGecko client.
type Option func(*CoinGecko)

// WithBaseURL sets the API root, e.g. https://api.coingecko.com/api/v3.
func WithBaseURL(baseURL string) Option {
	return func(c *CoinGecko) {
		if s := strings.TrimRight(strings.TrimSpace(baseURL), "/"); s != "" {
			c.baseURL = s
		}
	}
}

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *CoinGecko) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithAPIKey sends key on every request. Empty keys are ignored.
func WithAPIKey(key string) Option {
	return func(c *CoinGecko) {
		c.apiKey = strings.TrimSpace(key)
	}
}

func WithUserAgent(ua string) Option {
	return func(c *CoinGecko) {
		if ua != "" {
			c.header.Set("User-Agent", ua)
		}
	}
}

// WithHeader adds headers to every request.
func WithHeader(header http.Header) Option {
	return func(c *CoinGecko) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithAsset selects the coin id, bitcoin by default.
func WithAsset(id string) Option {
	return func(c *CoinGecko) {
		if s := strings.ToLower(strings.TrimSpace(id)); s != "" {
			c.asset = s
		}
	}
}

// WithHistoryInterval sets the market_chart sampling interval.
func WithHistoryInterval(interval string) Option {
	return func(c *CoinGecko) {
		if interval != "" {
			c.interval = interval
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *CoinGecko) {
		if l != nil {
			c.log = l
		}
	}
}

func NewCoinGecko(opts ...Option) *CoinGecko {
	c := &CoinGecko{
		baseURL:    defaultBaseURL,
		asset:      defaultAsset,
		interval:   defaultInterval,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CoinGecko) Name() string { return "coingecko" }

// Asset returns the coin id the client quotes.
func (c *CoinGecko) Asset() string { return c.asset }
