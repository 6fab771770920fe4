package finguard

import (
	"fmt"
	"time"
)

// RiskLevel is the risk band of a symbol. The zero value is not a valid level.
type RiskLevel int

const (
	RiskLow RiskLevel = iota + 1
	RiskModerate
	RiskHigh
)

var riskLevelNames = map[RiskLevel]string{
	RiskLow:      "Low",
	RiskModerate: "Moderate",
	RiskHigh:     "High",
}

func (r RiskLevel) String() string {
	if name, ok := riskLevelNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RiskLevel(%d)", int(r))
}

// Valid reports whether r is one of the declared levels.
func (r RiskLevel) Valid() bool {
	_, ok := riskLevelNames[r]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (r RiskLevel) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid risk level %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RiskLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRiskLevel parses "Low", "Moderate" or "High".
func ParseRiskLevel(value string) (RiskLevel, error) {
	for level, name := range riskLevelNames {
		if name == value {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown risk level %q", value)
}

// MarketSentiment is the market tone classification of a symbol.
type MarketSentiment int

const (
	SentimentNormal MarketSentiment = iota + 1
	SentimentOverhype
	SentimentManipulation
)

var sentimentNames = map[MarketSentiment]string{
	SentimentNormal:       "Normal",
	SentimentOverhype:     "Overhype",
	SentimentManipulation: "Manipulation",
}

func (m MarketSentiment) String() string {
	if name, ok := sentimentNames[m]; ok {
		return name
	}
	return fmt.Sprintf("MarketSentiment(%d)", int(m))
}

// Valid reports whether m is one of the declared classifications.
func (m MarketSentiment) Valid() bool {
	_, ok := sentimentNames[m]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (m MarketSentiment) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid market sentiment %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MarketSentiment) UnmarshalText(text []byte) error {
	parsed, err := ParseMarketSentiment(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMarketSentiment parses "Normal", "Overhype" or "Manipulation".
func ParseMarketSentiment(value string) (MarketSentiment, error) {
	for sentiment, name := range sentimentNames {
		if name == value {
			return sentiment, nil
		}
	}
	return 0, fmt.Errorf("unknown market sentiment %q", value)
}

// RiskMetrics is the result of a risk sub-fetch.
type RiskMetrics struct {
	Level      RiskLevel `json:"risk_level"`
	CAGR       float64   `json:"cagr"`
	Volatility float64   `json:"volatility"`
}

// SentimentMetrics is the result of a sentiment sub-fetch.
type SentimentMetrics struct {
	Score          float64         `json:"sentiment_score"`
	Classification MarketSentiment `json:"classification"`
}

// StockSnapshot is one immutable bundle of risk and sentiment for a symbol.
// Every field is required; there is no partially analyzed snapshot.
type StockSnapshot struct {
	Symbol          string          `json:"symbol"`
	RiskLevel       RiskLevel       `json:"risk_level"`
	CAGR            Metric          `json:"cagr"`
	Volatility      Metric          `json:"volatility"`
	SentimentScore  Metric          `json:"sentiment_score"`
	MarketSentiment MarketSentiment `json:"market_sentiment"`
}

// NewSnapshot combines the two sub-fetch results. It rejects sentiment
// metrics whose classification disagrees with the score.
func NewSnapshot(symbol string, risk RiskMetrics, sentiment SentimentMetrics) (StockSnapshot, error) {
	if !risk.Level.Valid() {
		return StockSnapshot{}, fmt.Errorf("risk level for %s: %w", symbol, ErrNoData)
	}
	if err := ValidateSentimentScore(sentiment.Score); err != nil {
		return StockSnapshot{}, err
	}
	if ClassifySentiment(sentiment.Score) != sentiment.Classification {
		return StockSnapshot{}, fmt.Errorf("%s: score %.2f classified %s: %w",
			symbol, sentiment.Score, sentiment.Classification, ErrInconsistentSentiment)
	}
	return StockSnapshot{
		Symbol:          symbol,
		RiskLevel:       risk.Level,
		CAGR:            Metric(risk.CAGR),
		Volatility:      Metric(risk.Volatility),
		SentimentScore:  Metric(sentiment.Score),
		MarketSentiment: sentiment.Classification,
	}, nil
}

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatTurn is one message in a conversation. Order is append order;
// CreatedAt is for display only.
type ChatTurn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRecord is a snapshot as kept in a user's analysis history.
type HistoryRecord struct {
	Snapshot   StockSnapshot `json:"snapshot"`
	Name       string        `json:"name,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// AlertLevel grades the notice shown next to a dashboard analysis.
type AlertLevel string

const (
	AlertSuccess AlertLevel = "success"
	AlertWarning AlertLevel = "warning"
	AlertDanger  AlertLevel = "danger"
)

// Alert is the sentiment-driven notice for a dashboard analysis.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
}

// AlertFor derives the dashboard notice for a snapshot.
func AlertFor(s StockSnapshot) Alert {
	switch s.MarketSentiment {
	case SentimentOverhype:
		return Alert{Level: AlertWarning, Message: fmt.Sprintf("%s may be overhyped. Research thoroughly before investing.", s.Symbol)}
	case SentimentManipulation:
		return Alert{Level: AlertDanger, Message: fmt.Sprintf("Warning: %s shows signs of potential market manipulation.", s.Symbol)}
	default:
		return Alert{Level: AlertSuccess, Message: fmt.Sprintf("%s analysis complete!", s.Symbol)}
	}
}
