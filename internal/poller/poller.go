// Package poller repeatedly fetches and prints the current price until the
// context is cancelled.
package poller

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"btc-price-tracker/internal/format"
	"btc-price-tracker/internal/price"
)

// DefaultInterval is the pause between two fetches.
const DefaultInterval = 60 * time.Second

type State int32

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// QuoteFetcher is the part of price.Provider the poller uses.
type QuoteFetcher interface {
	FetchCurrent(ctx context.Context, req price.QuoteRequest) (price.QuoteResult, error)
}

// Observer is notified after every completed cycle. err is nil on success.
type Observer interface {
	ObserveCycle(res price.QuoteResult, err error, elapsed time.Duration)
}

// SleepFunc blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Poller struct {
	fetcher   QuoteFetcher
	req       price.QuoteRequest
	reporter  *format.Reporter
	out       io.Writer
	interval  time.Duration
	sleep     SleepFunc
	observer  Observer
	maxCycles int
	log       logrus.FieldLogger

	state  atomic.Int32
	cycles atomic.Int64
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithSleep(fn SleepFunc) Option {
	return func(p *Poller) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

func WithOutput(w io.Writer) Option {
	return func(p *Poller) {
		if w != nil {
			p.out = w
		}
	}
}

func WithReporter(r *format.Reporter) Option {
	return func(p *Poller) {
		if r != nil {
			p.reporter = r
		}
	}
}

func WithObserver(o Observer) Option {
	return func(p *Poller) { p.observer = o }
}

// WithMaxCycles stops the loop after n cycles. Zero means unbounded.
func WithMaxCycles(n int) Option {
	return func(p *Poller) {
		if n >= 0 {
			p.maxCycles = n
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}

func New(fetcher QuoteFetcher, req price.QuoteRequest, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		req:      req,
		reporter: format.NewReporter("Bitcoin", nil, nil),
		out:      os.Stdout,
		interval: DefaultInterval,
		sleep:    Sleep,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) State() State { return State(p.state.Load()) }

// Cycles returns the number of completed fetch cycles.
func (p *Poller) Cycles() int { return int(p.cycles.Load()) }

// Run polls until ctx is cancelled or MaxCycles is reached. A failed fetch is
// reported and the loop carries on. Cancellation is a clean stop: exactly one
// shutdown line is printed and Run returns nil.
func (p *Poller) Run(ctx context.Context) error {
	p.state.Store(int32(Running))
	p.log.WithFields(logrus.Fields{
		"interval":   p.interval,
		"currencies": p.req.CSV(),
	}).Info("polling started")

	for {
		if ctx.Err() != nil {
			return p.stop()
		}

		start := time.Now()
		res, err := p.fetcher.FetchCurrent(ctx, p.req)
		elapsed := time.Since(start)
		if ctx.Err() != nil {
			return p.stop()
		}
		p.report(res, err)
		if p.observer != nil {
			p.observer.ObserveCycle(res, err, elapsed)
		}

		n := p.cycles.Add(1)
		if p.maxCycles > 0 && n >= int64(p.maxCycles) {
			p.state.Store(int32(Stopped))
			p.log.WithField("cycles", n).Debug("cycle limit reached")
			return nil
		}

		if err := p.sleep(ctx, p.interval); err != nil {
			return p.stop()
		}
	}
}

func (p *Poller) report(res price.QuoteResult, err error) {
	var werr error
	if err != nil {
		p.log.WithError(err).Warn("fetch failed")
		werr = p.reporter.WriteError(p.out, err)
	} else {
		werr = p.reporter.WriteQuote(p.out, p.req, res)
	}
	if werr != nil {
		p.log.WithError(werr).Error("write output")
	}
}

func (p *Poller) stop() error {
	if State(p.state.Swap(int32(Stopped))) == Stopped {
		return nil
	}
	fmt.Fprintf(p.out, "\nStopped watching %s price.\n", p.reporter.Name)
	p.log.WithField("cycles", p.cycles.Load()).Info("polling stopped")
	return nil
}
