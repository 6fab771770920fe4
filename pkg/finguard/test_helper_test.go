package finguard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubRisk implements RiskFetcher with a fixed answer.
type stubRisk struct {
	metrics RiskMetrics
	err     error
}

func (s stubRisk) FetchRisk(ctx context.Context, symbol string) (RiskMetrics, error) {
	return s.metrics, s.err
}

// stubSentiment implements SentimentFetcher with a fixed answer.
type stubSentiment struct {
	metrics SentimentMetrics
	err     error
}

func (s stubSentiment) FetchSentiment(ctx context.Context, symbol string) (SentimentMetrics, error) {
	return s.metrics, s.err
}

// blockingAnalyzer holds every Analyze call until release is closed.
type blockingAnalyzer struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	result  StockSnapshot
}

func newBlockingAnalyzer(result StockSnapshot) *blockingAnalyzer {
	return &blockingAnalyzer{
		started: make(chan struct{}),
		release: make(chan struct{}),
		result:  result,
	}
}

func (b *blockingAnalyzer) Analyze(ctx context.Context, symbol string) (StockSnapshot, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.result, nil
}

// blockingSaveStore holds the first Save until release is closed.
type blockingSaveStore struct {
	*MemoryStore
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingSaveStore() *blockingSaveStore {
	return &blockingSaveStore{
		MemoryStore: NewMemoryStore(),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (b *blockingSaveStore) Save(ctx context.Context, sessionID string, turns []ChatTurn) error {
	first := false
	b.once.Do(func() {
		first = true
		close(b.started)
	})
	if first {
		<-b.release
	}
	return b.MemoryStore.Save(ctx, sessionID, turns)
}

// failingStore fails every write and read.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Save(ctx context.Context, sessionID string, turns []ChatTurn) error {
	return errStoreDown
}

func (failingStore) Load(ctx context.Context, sessionID string) ([]ChatTurn, error) {
	return nil, errStoreDown
}

func (failingStore) Delete(ctx context.Context, sessionID string) error {
	return errStoreDown
}

func (failingStore) Append(ctx context.Context, userID string, record HistoryRecord) error {
	return errStoreDown
}

func (failingStore) List(ctx context.Context, userID string, limit int) ([]HistoryRecord, error) {
	return nil, errStoreDown
}

func newCatalogProvider(t *testing.T, history HistoryStore) *AnalysisProvider {
	t.Helper()
	catalog := NewCatalog(CatalogOptions{})
	p, err := NewAnalysisProvider(ProviderOptions{
		Risk:      catalog,
		Sentiment: catalog,
		History:   history,
		Namer:     catalog,
		Logger:    discardLogger(),
		Now:       fixedNow,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func mustSnapshot(t *testing.T, symbol string, risk RiskMetrics, sentiment SentimentMetrics) StockSnapshot {
	t.Helper()
	s, err := NewSnapshot(symbol, risk, sentiment)
	if err != nil {
		t.Fatalf("snapshot %s: %v", symbol, err)
	}
	return s
}

// assertFloatEquals fails the test if the floats are not approximately equal.
func assertFloatEquals(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > 0.001 {
		t.Errorf("%s: got %.4f, want %.4f", msg, got, want)
	}
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// assertContains checks if the string contains the substring.
func assertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: string %q does not contain %q", msg, s, substr)
	}
}

func symbolsOf(records []HistoryRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Snapshot.Symbol)
	}
	return out
}
