package price

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxErrorBody = 512

// FetchCurrent returns the latest price and 24h change for every currency in
// req. A response without the asset key fails as a whole; a currency without
// a 24h change gets zero.
func (c *CoinGecko) FetchCurrent(ctx context.Context, req QuoteRequest) (QuoteResult, error) {
	if req.Len() == 0 {
		return QuoteResult{}, ErrEmptyRequest
	}
	q := url.Values{}
	q.Set("ids", c.asset)
	q.Set("vs_currencies", req.CSV())
	q.Set("include_24hr_change", "true")
	q.Set("include_last_updated_at", "true")

	body, err := c.get(ctx, "/simple/price", q)
	if err != nil {
		return QuoteResult{}, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return QuoteResult{}, formatErr("decoding price response", err)
	}
	raw, ok := top[c.asset]
	if !ok {
		return QuoteResult{}, formatErr(fmt.Sprintf("missing %q key", c.asset), nil)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return QuoteResult{}, formatErr(fmt.Sprintf("decoding %q object", c.asset), err)
	}

	updatedRaw, ok := fields["last_updated_at"]
	if !ok || isNull(updatedRaw) {
		return QuoteResult{}, formatErr("missing last_updated_at", nil)
	}
	updated, err := parseDecimal(updatedRaw)
	if err != nil {
		return QuoteResult{}, formatErr("decoding last_updated_at", err)
	}

	res := QuoteResult{
		Asset:       c.asset,
		LastUpdated: time.Unix(updated.IntPart(), 0),
		Quotes:      make(map[string]Quote, req.Len()),
	}
	for _, code := range req.Currencies() {
		priceRaw, ok := fields[code]
		if !ok || isNull(priceRaw) {
			c.log.WithField("currency", code).Debug("currency missing from response")
			continue
		}
		p, err := parseDecimal(priceRaw)
		if err != nil {
			return QuoteResult{}, formatErr("decoding "+code, err)
		}
		change := decimal.Zero
		if changeRaw, ok := fields[code+"_24h_change"]; ok && !isNull(changeRaw) {
			change, err = parseDecimal(changeRaw)
			if err != nil {
				return QuoteResult{}, formatErr("decoding "+code+"_24h_change", err)
			}
		}
		res.Quotes[code] = Quote{Price: p, Change24h: change}
	}
	return res, nil
}

// FetchHistory returns the trailing price series for currency over days,
// sampled at the configured interval.
func (c *CoinGecko) FetchHistory(ctx context.Context, currency string, days int) (HistorySeries, error) {
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return HistorySeries{}, err
	}
	if days <= 0 {
		return HistorySeries{}, fmt.Errorf("%w: %d", ErrInvalidDays, days)
	}
	q := url.Values{}
	q.Set("vs_currency", code)
	q.Set("days", strconv.Itoa(days))
	q.Set("interval", c.interval)

	body, err := c.get(ctx, "/coins/"+url.PathEscape(c.asset)+"/market_chart", q)
	if err != nil {
		return HistorySeries{}, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return HistorySeries{}, formatErr("decoding market chart response", err)
	}
	pricesRaw, ok := top["prices"]
	if !ok || isNull(pricesRaw) {
		return HistorySeries{}, formatErr(`missing "prices" key`, nil)
	}
	var pairs [][]json.RawMessage
	if err := json.Unmarshal(pricesRaw, &pairs); err != nil {
		return HistorySeries{}, formatErr("decoding prices", err)
	}

	points := make([]HistoryPoint, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return HistorySeries{}, formatErr(fmt.Sprintf("prices[%d]: want [timestamp, price], got %d values", i, len(pair)), nil)
		}
		ms, err := parseDecimal(pair[0])
		if err != nil {
			return HistorySeries{}, formatErr(fmt.Sprintf("prices[%d] timestamp", i), err)
		}
		p, err := parseDecimal(pair[1])
		if err != nil {
			return HistorySeries{}, formatErr(fmt.Sprintf("prices[%d] price", i), err)
		}
		points = append(points, HistoryPoint{
			Time:  time.Unix(ms.IntPart()/1000, 0),
			Price: p,
		})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })

	return HistorySeries{Asset: c.asset, Currency: code, Days: days, Points: points}, nil
}

// get performs a GET against the API and returns the body of a 2xx response.
func (c *CoinGecko) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, &NetworkError{Message: "creating request", Err: err}
	}
	req.Header = c.header.Clone()
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	log := c.log.WithFields(logrus.Fields{"path": path})
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		timeout := isTimeout(err)
		msg := "request failed"
		if timeout {
			msg = "request timed out"
		}
		log.WithError(err).Debug(msg)
		return nil, &NetworkError{Message: msg, Timeout: timeout, Err: err}
	}
	defer resp.Body.Close()
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(start).Truncate(time.Millisecond)})

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := http.StatusText(resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests {
			msg = "rate limited"
		}
		if s := strings.TrimSpace(string(snippet)); s != "" {
			log = log.WithField("body", s)
		}
		log.Debug("unexpected status")
		if msg == "" {
			msg = "unexpected status"
		}
		return nil, &NetworkError{StatusCode: resp.StatusCode, Message: msg}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Message: "reading response body", Timeout: isTimeout(err), Err: err}
	}
	log.Debug("request ok")
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseDecimal accepts JSON numbers and numeric strings.
func parseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	if isNull(raw) {
		return decimal.Zero, errors.New("null value")
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(bytes.TrimSpace(raw)); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
