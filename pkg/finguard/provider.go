package finguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RiskFetcher returns risk metrics for an uppercase 1-5 letter symbol.
// Unknown symbols are reported with ErrUnknownSymbol.
type RiskFetcher interface {
	FetchRisk(ctx context.Context, symbol string) (RiskMetrics, error)
}

// SentimentFetcher returns sentiment metrics for an uppercase 1-5 letter symbol.
// Unknown symbols are reported with ErrUnknownSymbol.
type SentimentFetcher interface {
	FetchSentiment(ctx context.Context, symbol string) (SentimentMetrics, error)
}

// SymbolNamer resolves a display name for a symbol.
type SymbolNamer interface {
	SymbolName(symbol string) (string, bool)
}

// ProviderOptions configures an AnalysisProvider.
type ProviderOptions struct {
	Risk      RiskFetcher
	Sentiment SentimentFetcher
	// History receives fire-and-forget appends from FullAnalysis. Optional.
	History HistoryStore
	Namer   SymbolNamer
	Logger  *slog.Logger
	// SaveTimeout bounds a detached history write.
	SaveTimeout time.Duration
	Now         func() time.Time
}

// AnalysisProvider joins a risk fetch and a sentiment fetch into one snapshot.
type AnalysisProvider struct {
	risk        RiskFetcher
	sentiment   SentimentFetcher
	history     HistoryStore
	namer       SymbolNamer
	logger      *slog.Logger
	saveTimeout time.Duration
	now         func() time.Time
}

// NewAnalysisProvider builds a provider. Both fetchers are required.
func NewAnalysisProvider(opts ProviderOptions) (*AnalysisProvider, error) {
	if opts.Risk == nil || opts.Sentiment == nil {
		return nil, errors.New("risk and sentiment fetchers are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AnalysisProvider{
		risk:        opts.Risk,
		sentiment:   opts.Sentiment,
		history:     opts.History,
		namer:       opts.Namer,
		logger:      logger,
		saveTimeout: defaultDuration(opts.SaveTimeout, 10*time.Second),
		now:         now,
	}, nil
}

// FetchRisk runs the risk sub-fetch alone, substituting the default metrics
// for unknown symbols.
func (p *AnalysisProvider) FetchRisk(ctx context.Context, symbol string) (RiskMetrics, error) {
	risk, err := p.risk.FetchRisk(ctx, symbol)
	if errors.Is(err, ErrUnknownSymbol) {
		return DefaultRiskMetrics, nil
	}
	if err != nil {
		return RiskMetrics{}, err
	}
	if !risk.Level.Valid() {
		return RiskMetrics{}, fmt.Errorf("risk level for %s: %w", symbol, ErrNoData)
	}
	return risk, nil
}

// FetchSentiment runs the sentiment sub-fetch alone, substituting the default
// metrics for unknown symbols.
func (p *AnalysisProvider) FetchSentiment(ctx context.Context, symbol string) (SentimentMetrics, error) {
	sentiment, err := p.sentiment.FetchSentiment(ctx, symbol)
	if errors.Is(err, ErrUnknownSymbol) {
		return DefaultSentimentMetrics, nil
	}
	if err != nil {
		return SentimentMetrics{}, err
	}
	return sentiment, nil
}

// Analyze fetches risk and sentiment concurrently and waits for both.
// Any sub-fetch failure yields an ANALYSIS_FAILED error wrapping
// ErrAnalysisFailed and the underlying causes. There is no retry.
func (p *AnalysisProvider) Analyze(ctx context.Context, symbol string) (StockSnapshot, error) {
	var (
		wg           sync.WaitGroup
		risk         RiskMetrics
		sentiment    SentimentMetrics
		riskErr      error
		sentimentErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		risk, riskErr = p.FetchRisk(ctx, symbol)
	}()
	go func() {
		defer wg.Done()
		sentiment, sentimentErr = p.FetchSentiment(ctx, symbol)
	}()
	wg.Wait()

	if riskErr != nil || sentimentErr != nil {
		var errs []error
		if riskErr != nil {
			errs = append(errs, fmt.Errorf("risk: %w", riskErr))
		}
		if sentimentErr != nil {
			errs = append(errs, fmt.Errorf("sentiment: %w", sentimentErr))
		}
		p.logger.Warn("analysis failed", "symbol", symbol, "err", errors.Join(errs...))
		return StockSnapshot{}, analysisFailed(symbol, errors.Join(errs...))
	}

	snapshot, err := NewSnapshot(symbol, risk, sentiment)
	if err != nil {
		p.logger.Warn("analysis produced an invalid snapshot", "symbol", symbol, "err", err)
		return StockSnapshot{}, analysisFailed(symbol, err)
	}
	return snapshot, nil
}

func analysisFailed(symbol string, cause error) error {
	return WrapError(ErrCodeAnalysisFailed,
		fmt.Sprintf("analysis for %s failed", symbol),
		fmt.Errorf("%w: %w", ErrAnalysisFailed, cause))
}

// FullAnalysis is the result of AnalysisProvider.FullAnalysis.
type FullAnalysis struct {
	Snapshot StockSnapshot
	Record   HistoryRecord
	// Saved receives the outcome of the detached history write, then closes.
	// Receiving from it is optional.
	Saved <-chan error
}

// FullAnalysis analyzes symbol and, on success, appends the result to the
// user's history in a detached task. The write outlives ctx and its failure
// is reported only through Saved and the log.
func (p *AnalysisProvider) FullAnalysis(ctx context.Context, userID, symbol string) (FullAnalysis, error) {
	snapshot, err := p.Analyze(ctx, symbol)
	if err != nil {
		return FullAnalysis{}, err
	}
	record := HistoryRecord{Snapshot: snapshot, RecordedAt: p.now()}
	if p.namer != nil {
		if name, ok := p.namer.SymbolName(symbol); ok {
			record.Name = name
		}
	}

	saved := make(chan error, 1)
	if p.history == nil {
		close(saved)
		return FullAnalysis{Snapshot: snapshot, Record: record, Saved: saved}, nil
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.saveTimeout)
	go func() {
		defer close(saved)
		defer cancel()
		err := p.history.Append(saveCtx, userID, record)
		if err != nil {
			p.logger.Warn("history append failed", "user_id", userID, "symbol", symbol, "err", err)
		}
		saved <- err
	}()
	return FullAnalysis{Snapshot: snapshot, Record: record, Saved: saved}, nil
}
