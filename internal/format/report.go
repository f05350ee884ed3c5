package format

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"btc-price-tracker/internal/price"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	dateLayout = "2006-01-02"
)

// Reporter writes human-readable quote, history and error blocks.
type Reporter struct {
	Name  string
	Table Table
	Loc   *time.Location
}

// NewReporter returns a Reporter for the named asset. Nil table and location
// fall back to DefaultTable and time.Local.
func NewReporter(name string, table Table, loc *time.Location) *Reporter {
	if name == "" {
		name = "Bitcoin"
	}
	if table == nil {
		table = DefaultTable()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Reporter{Name: name, Table: table, Loc: loc}
}

// WriteQuote prints the quote block for every requested currency present in
// res, in request order.
func (r *Reporter) WriteQuote(w io.Writer, req price.QuoteRequest, res price.QuoteResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s Price Information:\n", r.Name)
	fmt.Fprintf(&b, "Last Updated: %s\n", res.LastUpdated.In(r.Loc).Format(timeLayout))
	shown := 0
	for _, code := range req.Currencies() {
		q, ok := res.Lookup(code)
		if !ok {
			continue
		}
		shown++
		label := strings.ToUpper(code)
		fmt.Fprintf(&b, "Current Price (%s): %s\n", label, r.Table.Format(q.Price, code))
		fmt.Fprintf(&b, "24h Change (%s): %s\n", label, Percent(q.Change24h))
	}
	if shown == 0 {
		b.WriteString("No prices returned for the requested currencies.\n")
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteHistory prints one line per point followed by a low/high and period
// change summary.
func (r *Reporter) WriteHistory(w io.Writer, s price.HistorySeries) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s Price History (%s, last %d days):\n", r.Name, strings.ToUpper(s.Currency), s.Days)
	if s.Len() == 0 {
		b.WriteString("No data points returned.\n\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	for _, p := range s.Points {
		fmt.Fprintf(&b, "%s  %s\n", p.Time.In(r.Loc).Format(dateLayout), r.Table.Format(p.Price, s.Currency))
	}
	lo, _ := s.Min()
	hi, _ := s.Max()
	fmt.Fprintf(&b, "Low:    %s (%s)\n", r.Table.Format(lo.Price, s.Currency), lo.Time.In(r.Loc).Format(dateLayout))
	fmt.Fprintf(&b, "High:   %s (%s)\n", r.Table.Format(hi.Price, s.Currency), hi.Time.In(r.Loc).Format(dateLayout))
	fmt.Fprintf(&b, "Change: %s\n\n", Percent(s.Change()))
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteError prints err as a single line prefixed by its failure class.
func (r *Reporter) WriteError(w io.Writer, err error) error {
	_, werr := fmt.Fprintln(w, ErrorLine(r.Name, err))
	return werr
}

// ErrorLine classifies err into a one-line message.
func ErrorLine(name string, err error) string {
	var netErr *price.NetworkError
	var fmtErr *price.ResponseFormatError
	switch {
	case errors.As(err, &netErr):
		return fmt.Sprintf("Error fetching %s price: %v", name, netErr)
	case errors.As(err, &fmtErr):
		return fmt.Sprintf("Error parsing response: %v", fmtErr)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
