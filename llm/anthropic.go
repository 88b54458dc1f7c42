package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goextract "github.com/soundprediction/go-extract"
)

const anthropicAPIEndpoint = "https://api.anthropic.com/v1"

// Anthropic is a reference Adapter talking to the Messages API directly
// over net/http (no official Go SDK in this module's stack).
type Anthropic struct {
	apiKey    string
	model     string
	maxTokens int
	params    Parameters

	MaxWorkers int
	Timeout    time.Duration

	client *http.Client
	logger *slog.Logger
}

type anthropicMessage struct {
	Role    string                    `json:"role"`
	Content []anthropicMessageContent `json:"content"`
}

type anthropicMessageContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicChatRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`

	StopSequences []string `json:"stop_sequences,omitempty"`
	Temperature   *float32 `json:"temperature,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	TopP          *float32 `json:"top_p,omitempty"`
}

// NewAnthropic creates a new Anthropic adapter with the specified API key,
// model name, and maximum output token limit.
func NewAnthropic(apiKey, model string, maxTokens int, params Parameters, logger *slog.Logger) Anthropic {
	return Anthropic{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		params:     params,
		MaxWorkers: defaultMaxWorkers,
		Timeout:    time.Minute,
		client:     &http.Client{},
		logger:     logger.With(slog.String("module", "anthropic")),
	}
}

// Infer implements goextract.Adapter against the Anthropic Messages API.
func (a Anthropic) Infer(ctx context.Context, batchPrompts []string) ([][]goextract.ScoredOutput, error) {
	return runBatch(ctx, batchPrompts, a.MaxWorkers, a.inferOne)
}

func (a Anthropic) inferOne(ctx context.Context, prompt string) ([]goextract.ScoredOutput, error) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msgs := []anthropicMessage{{
		Role:    "user",
		Content: []anthropicMessageContent{{Type: "text", Text: prompt}},
	}}

	resp, err := a.doRequest(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var msg anthropicMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	if len(msg.Content) == 0 {
		return nil, fmt.Errorf("empty response content")
	}

	text := strings.TrimSpace(RemoveThinkTags(msg.Content[0].Text))
	return []goextract.ScoredOutput{{Score: 1, HasScore: true, Output: text}}, nil
}

func (a Anthropic) doRequest(ctx context.Context, messages []anthropicMessage) (*http.Response, error) {
	reqBody := anthropicChatRequest{
		Model:     a.model,
		Messages:  messages,
		MaxTokens: a.maxTokens,

		StopSequences: a.params.Stop,
		Temperature:   a.params.Temperature,
		TopK:          a.params.TopK,
		TopP:          a.params.TopP,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		anthropicAPIEndpoint+"/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	return a.client.Do(req)
}
