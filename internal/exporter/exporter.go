package exporter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"btc-price-tracker/internal/config"
	"btc-price-tracker/internal/price"
)

// Exporter publishes the poller's latest quotes as Prometheus metrics.
type Exporter struct {
	Provider string

	registry *prometheus.Registry
	mux      *http.ServeMux
	server   *http.Server
	log      logrus.FieldLogger

	// metrics
	priceGauge    *prometheus.GaugeVec
	changeGauge   *prometheus.GaugeVec
	lastUpdated   prometheus.Gauge
	reqTotal      *prometheus.CounterVec
	cycleDur      prometheus.Summary
	lastSuccessTS *prometheus.GaugeVec
}

func New(cfg config.Metrics, provider string, log logrus.FieldLogger) *Exporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	mux := http.NewServeMux()
	e := &Exporter{
		Provider: provider,
		registry: prometheus.NewRegistry(),
		mux:      mux,
		log:      log,
	}
	e.priceGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "btc",
		Name:      "price",
		Help:      "Price of 1 BTC by currency",
	}, []string{"currency"})
	e.changeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "btc",
		Name:      "price_change_24h_percent",
		Help:      "24 hour price change in percent by currency",
	}, []string{"currency"})
	e.lastUpdated = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "btc",
		Name:      "price_last_updated_timestamp_seconds",
		Help:      "Unix timestamp the upstream quote was last updated",
	})
	e.reqTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btc_price_tracker",
		Name:      "requests_total",
		Help:      "Number of provider requests by status",
	}, []string{"provider", "status"})
	e.cycleDur = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "btc_price_tracker",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent fetching the current price",
	})
	e.lastSuccessTS = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "btc_price_tracker",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful fetch",
	}, []string{"provider"})

	e.registry.MustRegister(
		e.priceGauge, e.changeGauge, e.lastUpdated,
		e.reqTotal, e.cycleDur, e.lastSuccessTS,
	)

	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	e.server = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return e
}

func (e *Exporter) Handler() http.Handler { return e.mux }

// Registry exposes the exporter's registry, mainly for tests.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// ObserveCycle records one poll cycle.
func (e *Exporter) ObserveCycle(res price.QuoteResult, err error, elapsed time.Duration) {
	e.cycleDur.Observe(elapsed.Seconds())
	if err != nil {
		e.reqTotal.WithLabelValues(e.Provider, errorStatus(err)).Inc()
		return
	}
	e.reqTotal.WithLabelValues(e.Provider, "ok").Inc()
	for code, q := range res.Quotes {
		cur := strings.ToUpper(code)
		e.priceGauge.WithLabelValues(cur).Set(q.Price.InexactFloat64())
		e.changeGauge.WithLabelValues(cur).Set(q.Change24h.InexactFloat64())
	}
	if !res.LastUpdated.IsZero() {
		e.lastUpdated.Set(float64(res.LastUpdated.Unix()))
	}
	e.lastSuccessTS.WithLabelValues(e.Provider).Set(float64(time.Now().Unix()))
}

func errorStatus(err error) string {
	var netErr *price.NetworkError
	var fmtErr *price.ResponseFormatError
	switch {
	case errors.As(err, &netErr):
		if netErr.Timeout {
			return "timeout"
		}
		return "network_error"
	case errors.As(err, &fmtErr):
		return "format_error"
	default:
		return "error"
	}
}

// Serve blocks until the server stops. A graceful shutdown returns nil.
func (e *Exporter) Serve() error {
	ln, err := net.Listen("tcp", e.server.Addr)
	if err != nil {
		return err
	}
	return e.serve(ln)
}

func (e *Exporter) serve(ln net.Listener) error {
	e.log.WithField("addr", ln.Addr().String()).Info("serving /metrics")
	if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (e *Exporter) Shutdown(ctx context.Context) error { return e.server.Shutdown(ctx) }

// Run serves until ctx is done, then shuts the server down within timeout.
func (e *Exporter) Run(ctx context.Context, timeout time.Duration) error {
	ln, err := net.Listen("tcp", e.server.Addr)
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() { errCh <- e.serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
