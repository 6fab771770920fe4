package finguard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultYahooBaseURL = "https://query1.finance.yahoo.com"
	yahooService        = "yahoo"
	tradingDaysPerYear  = 252
	secondsPerYear      = 365.25 * 24 * 60 * 60

	// maxResponseSize limits external API responses to 4MB; five years of
	// daily bars is well under that.
	maxResponseSize = 4 << 20
)

// ErrServiceCooldown is returned while an upstream is skipped after repeated failures.
var ErrServiceCooldown = errors.New("service in cooldown")

// HTTPDoer is an interface for making HTTP requests. It enables dependency
// injection for testing without network calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// YahooOptions configures a YahooRiskSource. Zero values take defaults.
type YahooOptions struct {
	Logger        *slog.Logger
	HTTPClient    HTTPDoer
	BaseURL       string
	Range         string
	Bands         *RiskBands
	CacheTTL      time.Duration
	FailThreshold int
	FailWindow    time.Duration
	Cooldown      time.Duration
	HTTPTimeout   time.Duration

	// RequestsPerSecond and Burst throttle outgoing chart requests.
	// Defaults: 2 per second, burst 3.
	RequestsPerSecond float64
	Burst             int
}

// YahooRiskSource derives risk metrics from Yahoo chart history.
type YahooRiskSource struct {
	logger  *slog.Logger
	client  HTTPDoer
	baseURL string
	rng     string
	bands   RiskBands
	cache   *ttlCache[RiskMetrics]
	breaker *circuitBreaker
	limiter *rate.Limiter
}

// NewYahooRiskSource builds a risk source against the Yahoo chart API.
func NewYahooRiskSource(opts YahooOptions) *YahooRiskSource {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultDuration(opts.HTTPTimeout, 10*time.Second)}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	rng := opts.Range
	if rng == "" {
		rng = "5y"
	}
	bands := DefaultRiskBands
	if opts.Bands != nil {
		bands = *opts.Bands
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &YahooRiskSource{
		logger:  logger,
		client:  client,
		baseURL: baseURL,
		rng:     rng,
		bands:   bands,
		cache:   newTTLCache[RiskMetrics](defaultDuration(opts.CacheTTL, 15*time.Minute)),
		breaker: newCircuitBreaker(opts.FailThreshold, opts.FailWindow, opts.Cooldown),
		limiter: rate.NewLimiter(rate.Limit(rps), defaultInt(opts.Burst, 3)),
	}
}

// FetchRisk returns CAGR, annualized volatility and the risk band for symbol.
func (y *YahooRiskSource) FetchRisk(ctx context.Context, symbol string) (RiskMetrics, error) {
	if cached, ok := y.cache.get(symbol); ok {
		return cached, nil
	}
	if !y.breaker.available(yahooService) {
		return RiskMetrics{}, fmt.Errorf("%s: %w", yahooService, ErrServiceCooldown)
	}
	if err := y.limiter.Wait(ctx); err != nil {
		return RiskMetrics{}, fmt.Errorf("%s rate limit: %w", yahooService, err)
	}

	series, err := y.fetchCloses(ctx, symbol)
	if err != nil {
		if errors.Is(err, ErrUnknownSymbol) {
			// The upstream answered; the symbol just has no history.
			y.breaker.recordSuccess(yahooService)
		} else {
			y.breaker.recordFailure(yahooService)
			y.logger.Warn("yahoo chart fetch failed", "symbol", symbol, "err", err)
		}
		return RiskMetrics{}, err
	}
	y.breaker.recordSuccess(yahooService)

	cagr, volatility, err := series.metrics()
	if err != nil {
		return RiskMetrics{}, fmt.Errorf("%s: %w", symbol, err)
	}
	result := RiskMetrics{
		Level:      y.bands.Classify(cagr, volatility),
		CAGR:       cagr,
		Volatility: volatility,
	}
	y.cache.set(symbol, result)
	return result, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type priceSeries struct {
	times  []int64
	closes []float64
}

func (y *YahooRiskSource) fetchCloses(ctx context.Context, symbol string) (priceSeries, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		y.baseURL, url.PathEscape(symbol), url.QueryEscape(y.rng))
	body, err := y.httpGet(ctx, endpoint)
	if err != nil {
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) && statusErr.status == http.StatusNotFound {
			return priceSeries{}, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
		}
		return priceSeries{}, err
	}

	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return priceSeries{}, fmt.Errorf("decode chart: %w", err)
	}
	if len(payload.Chart.Result) == 0 {
		return priceSeries{}, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return priceSeries{}, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}

	var series priceSeries
	for i, c := range result.Indicators.Quote[0].Close {
		// Yahoo leaves nulls for halted days.
		if c == nil || *c <= 0 {
			continue
		}
		series.closes = append(series.closes, *c)
		if i < len(result.Timestamp) {
			series.times = append(series.times, result.Timestamp[i])
		}
	}
	if len(series.closes) < 2 {
		return priceSeries{}, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	return series, nil
}

// metrics returns CAGR in percent and the annualized standard deviation of
// daily log returns.
func (s priceSeries) metrics() (float64, float64, error) {
	n := len(s.closes)
	if n < 2 {
		return 0, 0, ErrNoData
	}

	years := float64(n-1) / tradingDaysPerYear
	if len(s.times) == n {
		if span := float64(s.times[n-1] - s.times[0]); span > 0 {
			years = span / secondsPerYear
		}
	}
	cagr := (math.Pow(s.closes[n-1]/s.closes[0], 1/years) - 1) * 100

	returns := make([]float64, 0, n-1)
	var sum float64
	for i := 1; i < n; i++ {
		r := math.Log(s.closes[i] / s.closes[i-1])
		returns = append(returns, r)
		sum += r
	}
	mean := sum / float64(len(returns))
	var sq float64
	for _, r := range returns {
		sq += (r - mean) * (r - mean)
	}
	variance := 0.0
	if len(returns) > 1 {
		variance = sq / float64(len(returns)-1)
	}
	volatility := math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
	return cagr, volatility, nil
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http status %d", e.status)
}

func (y *YahooRiskSource) httpGet(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{status: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}
