package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic calls the Messages API.
type Anthropic struct {
	APIKey string
	Model  string
	client anthropic.Client
}

// NewAnthropic builds the provider. Retries are left to FallbackLLM, which
// moves on to the next provider instead.
func NewAnthropic(apiKey, model string, timeout time.Duration, opts ...option.RequestOption) *Anthropic {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	}
	return &Anthropic{
		APIKey: apiKey,
		Model:  model,
		client: anthropic.NewClient(append(base, opts...)...),
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	if strings.TrimSpace(a.APIKey) == "" {
		return CompletionResponse{}, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(defaultMaxTokens(in.MaxTokens)),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(in.Prompt))},
	}
	if in.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: in.System}}
	}

	start := time.Now()
	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("anthropic: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, block.Text)
		}
	}
	out := strings.TrimSpace(strings.Join(parts, "\n"))
	if out == "" {
		return CompletionResponse{}, fmt.Errorf("empty response from anthropic")
	}
	model := string(msg.Model)
	if model == "" {
		model = a.Model
	}
	return CompletionResponse{Text: out, Provider: a.Name(), Model: model, Latency: time.Since(start)}, nil
}
