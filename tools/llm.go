package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"oposiciones/config"
)

type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

type CompletionResponse struct {
	Text     string
	Provider string
	Model    string
	Latency  time.Duration
}

// LLM is a single chat-completion provider.
type LLM interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

var ErrNoProviders = errors.New("no AI providers configured")

// FallbackLLM tries each provider in order and returns the first successful reply.
type FallbackLLM struct {
	Providers []LLM
}

func (f FallbackLLM) Name() string {
	names := make([]string, 0, len(f.Providers))
	for _, p := range f.Providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

func (f FallbackLLM) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if len(f.Providers) == 0 {
		return CompletionResponse{}, ErrNoProviders
	}
	var errs []error
	for _, p := range f.Providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		start := time.Now()
		resp, err := p.Complete(ctx, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if resp.Provider == "" {
			resp.Provider = p.Name()
		}
		if resp.Latency == 0 {
			resp.Latency = time.Since(start)
		}
		return resp, nil
	}
	return CompletionResponse{}, errors.Join(errs...)
}

// NewLLMFromConfig builds the provider chain in the configured order, skipping providers without a key.
func NewLLMFromConfig(ctx context.Context, conf config.Configuration) (FallbackLLM, error) {
	timeout := time.Duration(conf.AI.TimeoutSeconds) * time.Second
	var chain FallbackLLM
	for _, name := range conf.AI.Providers {
		switch name {
		case "openai":
			if conf.AI.OpenAIKey != "" {
				chain.Providers = append(chain.Providers, NewOpenAI(conf.AI.OpenAIKey, conf.AI.OpenAIModel, timeout))
			}
		case "anthropic":
			if conf.AI.AnthropicKey != "" {
				chain.Providers = append(chain.Providers, NewAnthropic(conf.AI.AnthropicKey, conf.AI.AnthropicModel, timeout))
			}
		case "gemini":
			if conf.AI.GeminiKey != "" {
				g, err := NewGemini(ctx, conf.AI.GeminiKey, conf.AI.GeminiModel)
				if err != nil {
					return chain, err
				}
				chain.Providers = append(chain.Providers, g)
			}
		default:
			return chain, fmt.Errorf("unknown AI provider %q", name)
		}
	}
	return chain, nil
}

func defaultMaxTokens(n int) int {
	if n <= 0 {
		return 800
	}
	return n
}
