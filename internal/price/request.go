package price

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyRequest    = errors.New("at least one currency is required")
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrInvalidDays     = errors.New("days must be positive")
)

var codePattern = regexp.MustCompile(`^[a-z]{2,8}$`)

// QuoteRequest is a non-empty, ordered set of lower-case currency codes.
type QuoteRequest struct {
	codes []string
}

// NewQuoteRequest normalizes codes to lower case, drops case-insensitive
// duplicates keeping the first occurrence, and rejects anything that is not
// a short alphabetic code.
func NewQuoteRequest(codes ...string) (QuoteRequest, error) {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		code, err := NormalizeCurrency(c)
		if err != nil {
			return QuoteRequest{}, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	if len(out) == 0 {
		return QuoteRequest{}, ErrEmptyRequest
	}
	return QuoteRequest{codes: out}, nil
}

// NormalizeCurrency trims and lower-cases a single code and validates it.
func NormalizeCurrency(code string) (string, error) {
	c := normalizeCode(code)
	if !codePattern.MatchString(c) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return c, nil
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Currencies returns a copy of the codes in request order.
func (r QuoteRequest) Currencies() []string {
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out
}

func (r QuoteRequest) Len() int { return len(r.codes) }

// CSV joins the codes the way the vs_currencies parameter expects them.
func (r QuoteRequest) CSV() string { return strings.Join(r.codes, ",") }
