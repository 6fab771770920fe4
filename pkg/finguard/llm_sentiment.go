package finguard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

const sentimentSystemPrompt = `You are a market sentiment analyst. Given a stock ticker, estimate the current market tone around it from news and social chatter you know of.
Respond with JSON only: {"sentiment_score": <number between -1 and 1>}
-1 means strongly negative or manipulated chatter, 0 neutral, 1 euphoric hype.`

// Completer sends one system+user prompt pair to a language model and
// returns the raw text of its reply.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMSentimentSource scores sentiment with a language model. Classification
// is always derived locally from the returned score.
type LLMSentimentSource struct {
	completer Completer
	logger    *slog.Logger
}

// NewLLMSentimentSource wraps a Completer as a SentimentFetcher.
func NewLLMSentimentSource(completer Completer, logger *slog.Logger) *LLMSentimentSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMSentimentSource{completer: completer, logger: logger}
}

type sentimentModelResponse struct {
	SentimentScore *float64 `json:"sentiment_score"`
}

// FetchSentiment asks the model for a score and classifies it.
func (s *LLMSentimentSource) FetchSentiment(ctx context.Context, symbol string) (SentimentMetrics, error) {
	userPrompt := fmt.Sprintf("Ticker: %s", symbol)
	content, err := s.completer.Complete(ctx, sentimentSystemPrompt, userPrompt)
	if err != nil {
		return SentimentMetrics{}, fmt.Errorf("sentiment model request: %w", err)
	}
	s.logger.Debug("sentiment model reply", "symbol", symbol, "content", content)

	score, err := parseSentimentScore(content)
	if err != nil {
		return SentimentMetrics{}, fmt.Errorf("%s: %w", symbol, err)
	}
	return SentimentMetrics{Score: score, Classification: ClassifySentiment(score)}, nil
}

func parseSentimentScore(content string) (float64, error) {
	var parsed sentimentModelResponse
	if err := json.Unmarshal([]byte(cleanupModelJSON(content)), &parsed); err != nil {
		return 0, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	if parsed.SentimentScore == nil {
		return 0, fmt.Errorf("model reply missing sentiment_score: %w", ErrNoData)
	}
	if err := ValidateSentimentScore(*parsed.SentimentScore); err != nil {
		return 0, err
	}
	return *parsed.SentimentScore, nil
}

// cleanupModelJSON strips markdown fences and surrounding prose from a
// model reply, leaving the outermost JSON object.
func cleanupModelJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		lines := strings.Split(trimmed, "\n")
		if len(lines) >= 2 {
			lines = lines[1:]
			if strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			trimmed = strings.Join(lines, "\n")
		}
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		trimmed = trimmed[start : end+1]
	}
	return strings.TrimSpace(trimmed)
}
