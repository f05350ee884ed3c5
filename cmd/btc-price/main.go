package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"btc-price-tracker/internal/config"
	"btc-price-tracker/internal/exporter"
	"btc-price-tracker/internal/format"
	"btc-price-tracker/internal/logging"
	"btc-price-tracker/internal/poller"
	"btc-price-tracker/internal/price"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath string
	watch      bool
	history    bool
	once       bool
	interval   time.Duration
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("btc-price", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Path to YAML config file (optional)")
	fs.BoolVar(&o.watch, "watch", false, "Poll the current price until interrupted")
	fs.BoolVar(&o.history, "history", false, "Also print the trailing price history")
	fs.BoolVar(&o.once, "once", false, "With -watch, run a single poll cycle")
	fs.DurationVar(&o.interval, "interval", 0, "Override poll.interval")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.interval < 0 {
		return o, fmt.Errorf("-interval must be positive")
	}
	return o, nil
}

// run returns the process exit code: 2 for usage errors, 1 for
// configuration errors and 0 otherwise, including fetch failures.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	if opts.interval > 0 {
		cfg.Poll.Interval = opts.interval
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	logger.SetOutput(stderr)

	app, err := newApp(cfg, logger, stdout)
	if err != nil {
		logger.WithError(err).Error("setup failed")
		return 1
	}

	switch {
	case opts.watch:
		err = app.watch(ctx, opts.once)
	default:
		app.current(ctx)
		if opts.history {
			app.history(ctx)
		}
	}
	if err != nil {
		logger.WithError(err).Error("exiting")
		return 1
	}
	return 0
}

type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	out      io.Writer
	provider price.Provider
	req      price.QuoteRequest
	reporter *format.Reporter
}

func newApp(cfg *config.Config, log *logrus.Logger, out io.Writer) (*app, error) {
	req, err := price.NewQuoteRequest(cfg.Currencies...)
	if err != nil {
		return nil, fmt.Errorf("currencies: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	prov, err := price.NewProviderFromConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		log:      log,
		out:      out,
		provider: prov,
		req:      req,
		reporter: format.NewReporter(cfg.Asset.Name, format.NewTable(cfg.Formats), loc),
	}, nil
}

func (a *app) current(ctx context.Context) {
	res, err := a.provider.FetchCurrent(ctx, a.req)
	if err != nil {
		a.log.WithError(err).Warn("fetch current price")
		a.report(a.reporter.WriteError(a.out, err))
		return
	}
	a.report(a.reporter.WriteQuote(a.out, a.req, res))
}

func (a *app) history(ctx context.Context) {
	h := a.cfg.History
	series, err := a.provider.FetchHistory(ctx, h.Currency, h.Days)
	if err != nil {
		a.log.WithError(err).WithField("currency", h.Currency).Warn("fetch price history")
		a.report(a.reporter.WriteError(a.out, err))
		return
	}
	a.report(a.reporter.WriteHistory(a.out, series))
}

func (a *app) report(err error) {
	if err != nil {
		a.log.WithError(err).Error("write output")
	}
}

// watch runs the poller, and the metrics server alongside it when enabled.
func (a *app) watch(ctx context.Context, once bool) error {
	popts := []poller.Option{
		poller.WithInterval(a.cfg.Poll.Interval),
		poller.WithOutput(a.out),
		poller.WithReporter(a.reporter),
		poller.WithLogger(a.log),
	}
	if once {
		popts = append(popts, poller.WithMaxCycles(1))
	}

	if a.cfg.Metrics.ListenAddress == "" {
		return poller.New(a.provider, a.req, popts...).Run(ctx)
	}

	exp := exporter.New(a.cfg.Metrics, a.provider.Name(), a.log)
	p := poller.New(a.provider, a.req, append(popts, poller.WithObserver(exp))...)

	g, gctx := errgroup.WithContext(ctx)
	pollCtx, stopServer := context.WithCancel(gctx)
	g.Go(func() error {
		defer stopServer()
		return p.Run(pollCtx)
	})
	g.Go(func() error {
		return exp.Run(pollCtx, shutdownTimeout)
	})
	return g.Wait()
}
