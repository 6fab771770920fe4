package finguard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

// Supported model providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	modelTemperature      = 0.2
	modelMaxTokens        = 256
)

// ErrMissingAPIKey is returned when a model provider is selected without a key.
var ErrMissingAPIKey = errors.New("api key is required")

// CompleterConfig selects and configures a model provider.
type CompleterConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// NewCompleter builds the Completer for cfg.Provider.
func NewCompleter(ctx context.Context, cfg CompleterConfig) (Completer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(cfg.Model)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini:
		if model == "" {
			model = defaultGeminiModel
		}
		return newGeminiCompleter(ctx, apiKey, model, cfg.BaseURL)
	case ProviderOpenAI:
		if model == "" {
			model = defaultOpenAIModel
		}
		return newOpenAICompleter(apiKey, model, cfg.BaseURL), nil
	case ProviderAnthropic:
		if model == "" {
			model = defaultAnthropicModel
		}
		return newAnthropicCompleter(apiKey, model, cfg.BaseURL), nil
	default:
		return nil, NewError(ErrCodeUnsupported, fmt.Sprintf("unsupported model provider %q", cfg.Provider))
	}
}

type geminiCompleter struct {
	client *genai.Client
	model  string
}

func newGeminiCompleter(ctx context.Context, apiKey, model, baseURL string) (*geminiCompleter, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(baseURL) != "" {
		base, version, err := parseGeminiBaseURL(baseURL)
		if err != nil {
			return nil, err
		}
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: base, APIVersion: version}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed: %w", err)
	}
	return &geminiCompleter{client: client, model: model}, nil
}

func (g *geminiCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	requestConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		Temperature:      genai.Ptr(float32(modelTemperature)),
		MaxOutputTokens:  modelMaxTokens,
		ResponseMIMEType: "application/json",
	}
	response, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt), requestConfig)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}
	content := strings.TrimSpace(response.Text())
	if content == "" {
		return "", errors.New("ai response content is empty")
	}
	return content, nil
}

// parseGeminiBaseURL splits a configured endpoint into the base URL and the
// API version segment the genai client expects.
func parseGeminiBaseURL(endpoint string) (string, string, error) {
	trimmed := strings.TrimSpace(endpoint)
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("invalid gemini endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", fmt.Errorf("invalid gemini endpoint scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", "", errors.New("invalid gemini endpoint host")
	}

	apiVersion := "v1beta"
	var prefix []string
	for _, segment := range strings.Split(strings.Trim(parsed.Path, "/"), "/") {
		if segment == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(segment), "v1") {
			apiVersion = segment
			break
		}
		prefix = append(prefix, segment)
	}
	baseURL := fmt.Sprintf("%s://%s/", parsed.Scheme, parsed.Host)
	if len(prefix) > 0 {
		baseURL += strings.Join(prefix, "/") + "/"
	}
	return baseURL, apiVersion, nil
}

type openAICompleter struct {
	client openai.Client
	model  string
}

func newOpenAICompleter(apiKey, model, baseURL string) *openAICompleter {
	opts := []openaioption.RequestOption{openaioption.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, openaioption.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	return &openAICompleter{client: openai.NewClient(opts...), model: model}
}

func (o *openAICompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       openai.ChatModel(o.model),
		Temperature: openai.Float(modelTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ai response has no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("ai response content is empty")
	}
	return content, nil
}

type anthropicCompleter struct {
	client anthropic.Client
	model  string
}

func newAnthropicCompleter(apiKey, model, baseURL string) *anthropicCompleter {
	opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	return &anthropicCompleter{client: anthropic.NewClient(opts...), model: model}
}

func (a *anthropicCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   modelMaxTokens,
		Temperature: anthropic.Float(modelTemperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic message failed: %w", err)
	}
	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", errors.New("ai response content is empty")
	}
	return content, nil
}
