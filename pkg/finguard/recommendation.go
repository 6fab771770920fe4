package finguard

import (
	"fmt"
	"strings"
)

// RecommendationRule identifies which advice rule produced a recommendation.
type RecommendationRule int

const (
	RuleStableConservative RecommendationRule = iota + 1
	RuleOverhypedWait
	RuleModeratePositive
	RuleHighVolatility
	RuleManipulationWarning
	RuleGeneral
)

var ruleNames = map[RecommendationRule]string{
	RuleStableConservative:  "stable_conservative",
	RuleOverhypedWait:       "overhyped_wait",
	RuleModeratePositive:    "moderate_positive",
	RuleHighVolatility:      "high_volatility",
	RuleManipulationWarning: "manipulation_warning",
	RuleGeneral:             "general",
}

var ruleTexts = map[RecommendationRule]string{
	RuleStableConservative:  "This appears to be a stable investment with balanced market sentiment. Suitable for conservative investors looking for steady growth.",
	RuleOverhypedWait:       "While this stock has historically been stable, current market sentiment shows signs of overhype. Consider waiting for a potential correction before investing.",
	RuleModeratePositive:    "This moderate-risk investment is currently viewed positively in the market. It might offer a good balance of growth potential and manageable risk for balanced portfolios.",
	RuleHighVolatility:      "This is a high-risk investment that may experience significant price fluctuations. Only suitable for investors with high risk tolerance and as a small portion of a diversified portfolio.",
	RuleManipulationWarning: "⚠️ WARNING: Our AI has detected potential market manipulation signals for this stock. Exercise extreme caution and consider avoiding this investment until market conditions normalize.",
	RuleGeneral:             "Consider how this investment fits with your overall financial goals and risk tolerance. Diversification remains key to managing investment risk.",
}

func (r RecommendationRule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RecommendationRule(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r RecommendationRule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Recommendation is advisory text plus the rule that selected it.
type Recommendation struct {
	Rule RecommendationRule `json:"rule"`
	Text string             `json:"text"`
}

// Recommend evaluates the advice rules top to bottom; the first match wins.
// High risk is checked before manipulation, so a high-risk manipulated
// stock gets the high-volatility advice.
func Recommend(risk RiskLevel, sentiment MarketSentiment, score float64) Recommendation {
	rule := RuleGeneral
	switch {
	case risk == RiskLow && sentiment == SentimentNormal:
		rule = RuleStableConservative
	case risk == RiskLow && sentiment == SentimentOverhype:
		rule = RuleOverhypedWait
	case risk == RiskModerate && score > 0:
		rule = RuleModeratePositive
	case risk == RiskHigh:
		rule = RuleHighVolatility
	case sentiment == SentimentManipulation:
		rule = RuleManipulationWarning
	}
	return Recommendation{Rule: rule, Text: ruleTexts[rule]}
}

// RecommendFor is Recommend applied to a snapshot.
func RecommendFor(s StockSnapshot) Recommendation {
	return Recommend(s.RiskLevel, s.MarketSentiment, s.SentimentScore.Float64())
}

// FormatStockReply renders the assistant reply for an analyzed symbol.
func FormatStockReply(s StockSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's my analysis for %s:\n\n", s.Symbol)

	fmt.Fprintf(&b, "📊 **Risk Assessment**: %s\n", s.RiskLevel)
	fmt.Fprintf(&b, "• CAGR: %s%%\n", s.CAGR.Fixed2())
	fmt.Fprintf(&b, "• Volatility: %s\n\n", s.Volatility.Fixed2())

	fmt.Fprintf(&b, "🧠 **Market Sentiment**: %s\n", s.MarketSentiment)
	fmt.Fprintf(&b, "• Sentiment Score: %s\n\n", s.SentimentScore.Fixed2())

	b.WriteString("💡 **Recommendation**:\n")
	b.WriteString(RecommendFor(s).Text)
	return b.String()
}

const (
	mutualFundReply = "A mutual fund's Net Asset Value (NAV) is the value of one share of the fund. It's calculated by taking the total value of all the investments in the fund, subtracting any liabilities, and dividing by the number of outstanding shares. The NAV changes daily based on the performance of the investments within the fund. Unlike stocks, mutual funds trade only once per day, after market close."

	scamReply = "To identify potential investment scams: \n\n1. Watch for unrealistic promises of high returns with no risk\n2. Be suspicious of pressure to act quickly\n3. Research the investment and the person selling it thoroughly\n4. Verify credentials with regulatory authorities like SEBI\n5. Be wary of unsolicited investment opportunities\n6. Check for proper documentation and transparency\n\nRemember: If something sounds too good to be true, it probably is."

	smallCapReply = "Small-cap investments carry several risks:\n\n1. Higher volatility compared to large-caps\n2. Less liquidity, making them harder to sell in market downturns\n3. Limited public information and analyst coverage\n4. Often more vulnerable to economic downturns\n5. Can face challenges accessing capital\n\nHowever, they also offer higher growth potential for long-term investors who can tolerate higher risk."

	capabilitiesReply = "I apologize, but I don't have specific information on that topic. As FinGuard's AI assistant, I can help with stock analysis, investment strategies, financial education, and fraud prevention. Is there something specific about investments or financial markets you'd like to know?"
)

// CannedReply picks a topic reply by keyword, in order: mutual fund,
// scam or fraud, small-cap, then the generic capabilities message.
func CannedReply(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "mutual fund"):
		return mutualFundReply
	case strings.Contains(lower, "scam"), strings.Contains(lower, "fraud"):
		return scamReply
	case strings.Contains(lower, "small-cap"):
		return smallCapReply
	default:
		return capabilitiesReply
	}
}
