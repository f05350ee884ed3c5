package price

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"btc-price-tracker/internal/config"
	"btc-price-tracker/internal/httpclient"
)

// NewProviderFromConfig builds the configured price provider.
func NewProviderFromConfig(cfg *config.Config, log logrus.FieldLogger) (Provider, error) {
	switch cfg.API.Type {
	case "coingecko":
		return NewCoinGecko(
			WithBaseURL(cfg.API.BaseURL),
			WithAPIKey(cfg.API.APIKey),
			WithUserAgent(cfg.API.UserAgent),
			WithAsset(cfg.Asset.ID),
			WithHistoryInterval(cfg.History.Interval),
			WithHTTPClient(httpclient.New(cfg.API.Timeout)),
			WithLogger(log),
		), nil
	case "":
		return nil, fmt.Errorf("api.type is required")
	default:
		return nil, fmt.Errorf("unknown price provider: %s", cfg.API.Type)
	}
}
