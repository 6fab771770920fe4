package finguard

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNewSnapshotRejectsInconsistentSentiment(t *testing.T) {
	_, err := NewSnapshot("AAPL",
		RiskMetrics{Level: RiskLow, CAGR: 15.23, Volatility: 0.23},
		SentimentMetrics{Score: 0.9, Classification: SentimentNormal})
	if !errors.Is(err, ErrInconsistentSentiment) {
		t.Fatalf("expected ErrInconsistentSentiment, got %v", err)
	}

	_, err = NewSnapshot("AAPL",
		RiskMetrics{Level: RiskLow},
		SentimentMetrics{Score: 1.2, Classification: SentimentOverhype})
	if !errors.Is(err, ErrScoreOutOfRange) {
		t.Fatalf("expected ErrScoreOutOfRange, got %v", err)
	}

	_, err = NewSnapshot("AAPL", RiskMetrics{}, DefaultSentimentMetrics)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for missing risk level, got %v", err)
	}
}

func TestStockSnapshotJSON(t *testing.T) {
	snapshot := mustSnapshot(t, "TSLA",
		RiskMetrics{Level: RiskHigh, CAGR: 42.32, Volatility: 0.78},
		SentimentMetrics{Score: -0.5, Classification: SentimentManipulation})

	data, err := json.Marshal(snapshot)
	assertNoError(t, err, "marshal")
	want := `{"symbol":"TSLA","risk_level":"High","cagr":42.32,"volatility":0.78,"sentiment_score":-0.5,"market_sentiment":"Manipulation"}`
	if string(data) != want {
		t.Fatalf("got %s\nwant %s", data, want)
	}

	var decoded StockSnapshot
	assertNoError(t, json.Unmarshal(data, &decoded), "unmarshal")
	if decoded != snapshot {
		t.Fatalf("decoded %+v, want %+v", decoded, snapshot)
	}
}

func TestEnumParsing(t *testing.T) {
	for _, level := range []RiskLevel{RiskLow, RiskModerate, RiskHigh} {
		got, err := ParseRiskLevel(level.String())
		if err != nil || got != level {
			t.Errorf("ParseRiskLevel(%s) = %v, %v", level, got, err)
		}
	}
	if _, err := ParseRiskLevel("low"); err == nil {
		t.Errorf("expected lowercase risk level to be rejected")
	}
	if _, err := ParseMarketSentiment("Bullish"); err == nil {
		t.Errorf("expected unknown sentiment to be rejected")
	}
	if _, err := RiskLevel(0).MarshalText(); err == nil {
		t.Errorf("expected zero risk level to fail marshaling")
	}
	if got := MarketSentiment(9).String(); got != "MarketSentiment(9)" {
		t.Errorf("unexpected String for invalid sentiment: %s", got)
	}
}

func TestMetricFormatting(t *testing.T) {
	if got := Metric(15.23).Fixed2(); got != "15.23" {
		t.Errorf("Fixed2 = %s", got)
	}
	if got := Metric(0.2).Fixed2(); got != "0.20" {
		t.Errorf("Fixed2 = %s", got)
	}
	data, err := json.Marshal(Metric(0.1 + 0.2))
	assertNoError(t, err, "marshal metric")
	if string(data) != "0.3" {
		t.Errorf("metric JSON = %s, want 0.3", data)
	}
	var m Metric
	assertNoError(t, json.Unmarshal([]byte(`"1.25"`), &m), "unmarshal quoted")
	assertFloatEquals(t, m.Float64(), 1.25, "quoted metric")
}

func TestAlertFor(t *testing.T) {
	cases := []struct {
		sentiment MarketSentiment
		level     AlertLevel
		message   string
	}{
		{SentimentNormal, AlertSuccess, "AAPL analysis complete!"},
		{SentimentOverhype, AlertWarning, "AAPL may be overhyped. Research thoroughly before investing."},
		{SentimentManipulation, AlertDanger, "Warning: AAPL shows signs of potential market manipulation."},
	}
	for _, tc := range cases {
		got := AlertFor(StockSnapshot{Symbol: "AAPL", MarketSentiment: tc.sentiment})
		if got.Level != tc.level || got.Message != tc.message {
			t.Errorf("AlertFor(%s) = %+v", tc.sentiment, got)
		}
	}
}

func TestIsErrorCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", WrapError(ErrCodeSessionBusy, "busy", ErrSessionBusy))
	if !IsErrorCode(err, ErrCodeSessionBusy) {
		t.Fatalf("expected wrapped code to match")
	}
	if IsErrorCode(errors.New("plain"), ErrCodeSessionBusy) {
		t.Fatalf("plain error should not match")
	}
	if !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("expected sentinel through Unwrap")
	}
}
