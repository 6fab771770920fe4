package finguard

import (
	"context"
	"fmt"
	"time"
)

// Defaults reported for symbols a data source does not know.
var (
	DefaultRiskMetrics      = RiskMetrics{Level: RiskModerate, CAGR: 10.5, Volatility: 0.35}
	DefaultSentimentMetrics = SentimentMetrics{Score: 0.1, Classification: SentimentNormal}
)

type catalogEntry struct {
	Symbol    string
	Name      string
	Risk      RiskMetrics
	Sentiment SentimentMetrics
}

var demoCatalog = []catalogEntry{
	{
		Symbol:    "AAPL",
		Name:      "Apple Inc.",
		Risk:      RiskMetrics{Level: RiskLow, CAGR: 15.23, Volatility: 0.23},
		Sentiment: SentimentMetrics{Score: 0.2, Classification: SentimentNormal},
	},
	{
		Symbol:    "MSFT",
		Name:      "Microsoft Corporation",
		Risk:      RiskMetrics{Level: RiskLow, CAGR: 17.89, Volatility: 0.21},
		Sentiment: SentimentMetrics{Score: 0.8, Classification: SentimentOverhype},
	},
	{
		Symbol:    "TSLA",
		Name:      "Tesla, Inc.",
		Risk:      RiskMetrics{Level: RiskHigh, CAGR: 42.32, Volatility: 0.78},
		Sentiment: SentimentMetrics{Score: -0.5, Classification: SentimentManipulation},
	},
	{
		Symbol:    "AMZN",
		Name:      "Amazon.com, Inc.",
		Risk:      RiskMetrics{Level: RiskModerate, CAGR: 22.45, Volatility: 0.45},
		Sentiment: SentimentMetrics{Score: 0.1, Classification: SentimentNormal},
	},
	{
		Symbol:    "GOOGL",
		Name:      "Alphabet Inc.",
		Risk:      RiskMetrics{Level: RiskLow, CAGR: 18.76, Volatility: 0.28},
		Sentiment: SentimentMetrics{Score: 0.3, Classification: SentimentNormal},
	},
}

// CatalogOptions configures the built-in demonstration data source.
type CatalogOptions struct {
	// Simulated per-call delays; zero means immediate.
	RiskLatency      time.Duration
	SentimentLatency time.Duration
}

// Catalog serves risk and sentiment from a fixed demonstration dataset.
// It implements RiskFetcher, SentimentFetcher and SymbolNamer.
type Catalog struct {
	opts    CatalogOptions
	entries map[string]catalogEntry
}

// NewCatalog returns the demonstration data source.
func NewCatalog(opts CatalogOptions) *Catalog {
	entries := make(map[string]catalogEntry, len(demoCatalog))
	for _, e := range demoCatalog {
		entries[e.Symbol] = e
	}
	return &Catalog{opts: opts, entries: entries}
}

// FetchRisk returns the catalogued risk metrics or ErrUnknownSymbol.
func (c *Catalog) FetchRisk(ctx context.Context, symbol string) (RiskMetrics, error) {
	if err := sleepContext(ctx, c.opts.RiskLatency); err != nil {
		return RiskMetrics{}, err
	}
	entry, ok := c.entries[symbol]
	if !ok {
		return RiskMetrics{}, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	return entry.Risk, nil
}

// FetchSentiment returns the catalogued sentiment or ErrUnknownSymbol.
func (c *Catalog) FetchSentiment(ctx context.Context, symbol string) (SentimentMetrics, error) {
	if err := sleepContext(ctx, c.opts.SentimentLatency); err != nil {
		return SentimentMetrics{}, err
	}
	entry, ok := c.entries[symbol]
	if !ok {
		return SentimentMetrics{}, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	return entry.Sentiment, nil
}

// SymbolName returns the company name for a catalogued symbol.
func (c *Catalog) SymbolName(symbol string) (string, bool) {
	entry, ok := c.entries[symbol]
	return entry.Name, ok
}

// DemoHistory returns the first limit catalog entries as history records.
func (c *Catalog) DemoHistory(limit int, at time.Time) []HistoryRecord {
	if limit <= 0 || limit > len(demoCatalog) {
		limit = len(demoCatalog)
	}
	records := make([]HistoryRecord, 0, limit)
	for _, e := range demoCatalog[:limit] {
		records = append(records, HistoryRecord{
			Snapshot: StockSnapshot{
				Symbol:          e.Symbol,
				RiskLevel:       e.Risk.Level,
				CAGR:            Metric(e.Risk.CAGR),
				Volatility:      Metric(e.Risk.Volatility),
				SentimentScore:  Metric(e.Sentiment.Score),
				MarketSentiment: e.Sentiment.Classification,
			},
			Name:       e.Name,
			RecordedAt: at,
		})
	}
	return records
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
