package price

import (
	"time"

	"github.com/shopspring/decimal"
)

type HistoryPoint struct {
	Time  time.Time
	Price decimal.Decimal
}

// HistorySeries is a trailing price series ordered by ascending time.
type HistorySeries struct {
	Asset    string
	Currency string
	Days     int
	Points   []HistoryPoint
}

func (s HistorySeries) Len() int { return len(s.Points) }

func (s HistorySeries) First() (HistoryPoint, bool) {
	if len(s.Points) == 0 {
		return HistoryPoint{}, false
	}
	return s.Points[0], true
}

func (s HistorySeries) Last() (HistoryPoint, bool) {
	if len(s.Points) == 0 {
		return HistoryPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Min returns the lowest point; the earliest one wins ties.
func (s HistorySeries) Min() (HistoryPoint, bool) {
	if len(s.Points) == 0 {
		return HistoryPoint{}, false
	}
	lo := s.Points[0]
	for _, p := range s.Points[1:] {
		if p.Price.LessThan(lo.Price) {
			lo = p
		}
	}
	return lo, true
}

// Max returns the highest point; the earliest one wins ties.
func (s HistorySeries) Max() (HistoryPoint, bool) {
	if len(s.Points) == 0 {
		return HistoryPoint{}, false
	}
	hi := s.Points[0]
	for _, p := range s.Points[1:] {
		if p.Price.GreaterThan(hi.Price) {
			hi = p
		}
	}
	return hi, true
}

// Change is the percentage move from the first to the last point. It is
// zero for fewer than two points or a zero starting price.
func (s HistorySeries) Change() decimal.Decimal {
	first, ok := s.First()
	if !ok || len(s.Points) < 2 || first.Price.IsZero() {
		return decimal.Zero
	}
	last, _ := s.Last()
	return last.Price.Sub(first.Price).Div(first.Price).Mul(decimal.NewFromInt(100))
}
