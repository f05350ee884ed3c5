package poller

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btc-price-tracker/internal/format"
	"btc-price-tracker/internal/price"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	errs  []error // per call; nil or missing entries succeed

	// onCall runs inside FetchCurrent, after the call is counted.
	onCall func(n int)
}

func (f *fakeFetcher) FetchCurrent(ctx context.Context, req price.QuoteRequest) (price.QuoteResult, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	var err error
	if n-1 < len(f.errs) {
		err = f.errs[n-1]
	}
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(n)
	}
	if err != nil {
		return price.QuoteResult{}, err
	}
	return price.QuoteResult{
		Asset:       "bitcoin",
		LastUpdated: time.Unix(1700000000, 0),
		Quotes:      map[string]price.Quote{"usd": {Price: decimal.NewFromInt(42000), Change24h: decimal.NewFromFloat(1.5)}},
	}, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingObserver struct {
	errs []error
}

func (o *recordingObserver) ObserveCycle(_ price.QuoteResult, err error, _ time.Duration) {
	o.errs = append(o.errs, err)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func usdRequest(t *testing.T) price.QuoteRequest {
	t.Helper()
	req, err := price.NewQuoteRequest("usd")
	require.NoError(t, err)
	return req
}

// cancelAfterSleeps returns a SleepFunc that cancels after n sleeps and
// records every requested duration.
func cancelAfterSleeps(n int, cancel context.CancelFunc, got *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*got = append(*got, d)
		if len(*got) >= n {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}
}

func TestRun_InterruptDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	var slept []time.Duration
	f := &fakeFetcher{}
	p := New(f, usdRequest(t),
		WithOutput(&out),
		WithLogger(quietLogger()),
		WithSleep(cancelAfterSleeps(3, cancel, &slept)),
	)

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, Stopped, p.State())
	assert.Equal(t, 3, f.Calls())
	assert.Equal(t, 3, p.Cycles())
	assert.Equal(t, []time.Duration{DefaultInterval, DefaultInterval, DefaultInterval}, slept)
	assert.Equal(t, 3, strings.Count(out.String(), "Current Price (USD): $42,000.00"))
	assert.Equal(t, 1, strings.Count(out.String(), "Stopped watching Bitcoin price."))
	assert.True(t, strings.HasSuffix(out.String(), "Stopped watching Bitcoin price.\n"))
}

func TestRun_InterruptDuringFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	f := &fakeFetcher{
		errs: []error{nil, &price.NetworkError{Message: "request failed", Err: context.Canceled}},
		onCall: func(n int) {
			if n == 2 {
				cancel()
			}
		},
	}
	sleeps := 0
	p := New(f, usdRequest(t),
		WithOutput(&out),
		WithLogger(quietLogger()),
		WithSleep(func(context.Context, time.Duration) error { sleeps++; return nil }),
	)

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, Stopped, p.State())
	assert.Equal(t, 2, f.Calls())
	assert.Equal(t, 1, sleeps)
	// The interrupted fetch is not reported as an error.
	assert.NotContains(t, out.String(), "Error")
	assert.Equal(t, 1, strings.Count(out.String(), "Stopped watching"))
}

func TestRun_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	f := &fakeFetcher{}
	p := New(f, usdRequest(t), WithOutput(&out), WithLogger(quietLogger()))

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, f.Calls())
	assert.Equal(t, "\nStopped watching Bitcoin price.\n", out.String())
}

func TestRun_FailedFetchDoesNotStopLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	var slept []time.Duration
	obs := &recordingObserver{}
	netErr := &price.NetworkError{StatusCode: 503, Message: "Service Unavailable"}
	fmtErr := &price.ResponseFormatError{Reason: `missing "bitcoin" key`}
	f := &fakeFetcher{errs: []error{netErr, fmtErr, nil}}
	p := New(f, usdRequest(t),
		WithOutput(&out),
		WithLogger(quietLogger()),
		WithObserver(obs),
		WithInterval(5*time.Second),
		WithSleep(cancelAfterSleeps(3, cancel, &slept)),
	)

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 3, f.Calls())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, slept)

	lines := out.String()
	assert.Contains(t, lines, "Error fetching Bitcoin price: http 503: Service Unavailable\n")
	assert.Contains(t, lines, "Error parsing response: missing \"bitcoin\" key\n")
	assert.Equal(t, 1, strings.Count(lines, "Current Price (USD)"))

	require.Len(t, obs.errs, 3)
	assert.ErrorIs(t, obs.errs[0], netErr)
	assert.ErrorIs(t, obs.errs[1], fmtErr)
	assert.NoError(t, obs.errs[2])
}

func TestRun_MaxCycles(t *testing.T) {
	var out bytes.Buffer
	f := &fakeFetcher{}
	sleeps := 0
	p := New(f, usdRequest(t),
		WithOutput(&out),
		WithLogger(quietLogger()),
		WithMaxCycles(1),
		WithSleep(func(context.Context, time.Duration) error { sleeps++; return nil }),
	)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 1, f.Calls())
	assert.Zero(t, sleeps)
	assert.Equal(t, Stopped, p.State())
	assert.NotContains(t, out.String(), "Stopped watching")
}

func TestRun_CustomReporterName(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	var slept []time.Duration
	p := New(&fakeFetcher{}, usdRequest(t),
		WithOutput(&out),
		WithLogger(quietLogger()),
		WithReporter(format.NewReporter("Ethereum", nil, time.UTC)),
		WithSleep(cancelAfterSleeps(1, cancel, &slept)),
	)

	require.NoError(t, p.Run(ctx))
	assert.Contains(t, out.String(), "Ethereum Price Information:")
	assert.Contains(t, out.String(), "Stopped watching Ethereum price.")
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), time.Second)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "State(7)", State(7).String())
}
