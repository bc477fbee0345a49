package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(defaultMaxTokens(in.MaxTokens)),
	}
	if in.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(in.System, genai.RoleUser)
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(in.Prompt), cfg)
	if err != nil {
		return CompletionResponse{}, err
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return CompletionResponse{}, fmt.Errorf("empty response from gemini")
	}
	return CompletionResponse{Text: out, Provider: g.Name(), Model: g.model, Latency: time.Since(start)}, nil
}
