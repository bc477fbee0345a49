package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	name  string
	text  string
	err   error
	calls int
}

func (s *stubLLM) Name() string { return s.name }

func (s *stubLLM) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return CompletionResponse{}, s.err
	}
	return CompletionResponse{Text: s.text, Model: "m"}, nil
}

func TestFallbackLLM_FirstSuccessWins(t *testing.T) {
	bad := &stubLLM{name: "openai", err: errors.New("rate limited")}
	good := &stubLLM{name: "anthropic", text: "hola"}
	never := &stubLLM{name: "gemini", text: "no"}

	resp, err := FallbackLLM{Providers: []LLM{bad, good, never}}.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.Text)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 0, never.calls)
}

func TestFallbackLLM_AllFail(t *testing.T) {
	a := &stubLLM{name: "a", err: errors.New("boom")}
	b := &stubLLM{name: "b", err: errors.New("down")}

	_, err := FallbackLLM{Providers: []LLM{a, b}}.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: boom")
	assert.Contains(t, err.Error(), "b: down")

	_, err = FallbackLLM{}.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestOpenAI_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sys", body["instructions"])
		_, _ = w.Write([]byte(`{"model":"gpt-x","output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"respuesta"}]}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("k", "gpt-4.1-mini", time.Second)
	o.BaseURL = srv.URL
	resp, err := o.Complete(context.Background(), CompletionRequest{System: "sys", Prompt: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "respuesta", resp.Text)
	assert.Equal(t, "gpt-x", resp.Model)
	assert.Equal(t, "openai", resp.Provider)
}

func TestOpenAI_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	o := NewOpenAI("k", "m", time.Second)
	o.BaseURL = srv.URL
	_, err := o.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAnthropic_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude", body["model"])
		assert.NotEmpty(t, body["system"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude",` +
			`"content":[{"type":"text","text":"vale"}],"stop_reason":"end_turn",` +
			`"usage":{"input_tokens":3,"output_tokens":1}}`))
	}))
	defer srv.Close()

	a := NewAnthropic("k", "claude", time.Second, option.WithBaseURL(srv.URL))
	resp, err := a.Complete(context.Background(), CompletionRequest{System: "sé breve", Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "vale", resp.Text)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, "claude", resp.Model)
}

func TestAnthropic_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	a := NewAnthropic("k", "claude", time.Second, option.WithBaseURL(srv.URL))
	_, err := a.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAnthropic_MissingKey(t *testing.T) {
	_, err := NewAnthropic("", "claude", time.Second).Complete(context.Background(), CompletionRequest{})
	assert.Error(t, err)
}
